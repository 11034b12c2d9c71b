package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timelyagent/timely/internal/ratelimit"
)

func testLimiter() *ratelimit.TokenLimiter {
	return ratelimit.NewTokenLimiter(1000, time.Second, 0, time.Second)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		Endpoint: srv.URL,
		APIKey:   "test-key",
		Limiter:  testLimiter(),
	})
	require.NoError(t, err)
	return client, srv
}

func TestCompleteCompletionMessageShape(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultModel, req.Model)
		assert.InDelta(t, DefaultTemperature, req.Temperature, 1e-9)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "system", req.Messages[0].Role)

		_, _ = w.Write([]byte(`{"completion_message":{"content":{"type":"text","text":"  Relevant  "}}}`))
	})

	got, err := client.Complete(context.Background(), "classify this", RelevanceMaxTokens)
	require.NoError(t, err)
	assert.Equal(t, "Relevant", got)
}

func TestCompleteChoicesShape(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Acme Corp"}}]}`))
	})

	got, err := client.Complete(context.Background(), "which vendor", VendorMaxTokens)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got)
}

func TestCompletePrefersCompletionMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"completion_message":{"content":{"text":"first"}},
			"choices":[{"message":{"content":"second"}}]
		}`))
	})

	got, err := client.Complete(context.Background(), "prompt", 10)
	require.NoError(t, err)
	assert.Equal(t, "first", got)
}

func TestCompleteAPIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"quota exceeded"}`))
	})

	_, err := client.Complete(context.Background(), "prompt", 10)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "quota exceeded")
}

func TestCompleteUnknownShape(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"output":"something else entirely"}`))
	})

	_, err := client.Complete(context.Background(), "prompt", 10)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestCompleteInvalidJSON(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json at all`))
	})

	_, err := client.Complete(context.Background(), "prompt", 10)
	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestCompleteContextCancelled(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"x"}}]}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, "prompt", 10)
	require.Error(t, err)
}

func TestNewClientValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing endpoint", cfg: Config{APIKey: "k", Limiter: testLimiter()}},
		{name: "missing key", cfg: Config{Endpoint: "http://x", Limiter: testLimiter()}},
		{name: "missing limiter", cfg: Config{Endpoint: "http://x", APIKey: "k"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			assert.Error(t, err)
		})
	}
}
