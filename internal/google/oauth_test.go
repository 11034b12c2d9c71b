package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestAuthCodeURL(t *testing.T) {
	o := NewOAuth("client-id", "client-secret", "http://localhost:3000/auth/google/callback")

	raw := o.AuthCodeURL("csrf-state")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "csrf-state", q.Get("state"))
	assert.Equal(t, "http://localhost:3000/auth/google/callback", q.Get("redirect_uri"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	for _, scope := range OAuthScopes {
		assert.Contains(t, q.Get("scope"), scope)
	}
}

func TestExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "auth-code", r.FormValue("code"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	o := NewOAuth("client-id", "client-secret", "http://localhost/callback")
	o.conf.Endpoint = oauth2.Endpoint{TokenURL: srv.URL}

	token, err := o.Exchange(context.Background(), "auth-code")
	require.NoError(t, err)
	assert.Equal(t, "at", token.AccessToken)
	assert.Equal(t, "rt", token.RefreshToken)
}

func TestHTTPClientAttachesToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	o := NewOAuth("client-id", "client-secret", "http://localhost/callback")
	client := o.HTTPClient(context.Background(), &oauth2.Token{AccessToken: "session-token", TokenType: "Bearer"})

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "Bearer session-token", gotAuth)
}
