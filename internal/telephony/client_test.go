package telephony

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVoiceClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		APIKey:        "xi-key",
		AgentID:       "agent-1",
		PhoneNumberID: "phone-1",
		BaseURL:       srv.URL,
	})
	require.NoError(t, err)
	return client
}

func TestPlaceCall(t *testing.T) {
	var got outboundCallRequest
	client := newTestVoiceClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/convai/twilio/outbound-call", r.URL.Path)
		assert.Equal(t, "xi-key", r.Header.Get("xi-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write([]byte(`{"success":true,"conversation_id":"conv-1","callSid":"CA123"}`))
	})

	result, err := client.PlaceCall(context.Background(), CallRequest{
		UserName:       "Alex",
		UserRequest:    "book a dentist appointment",
		PhoneNumber:    "+15550100",
		Context:        "Preferred mornings.",
		TaskType:       TaskTypeScheduling,
		OtherPartyRole: "Receptionist",
	})
	require.NoError(t, err)
	assert.Equal(t, "conv-1", result.ConversationID)

	assert.Equal(t, "agent-1", got.AgentID)
	assert.Equal(t, "phone-1", got.PhoneNumberID)
	assert.Equal(t, "+15550100", got.ToNumber)
	assert.Equal(t, "Alex", got.InitiationData.DynamicVariables.UserName)
	assert.Equal(t, "Receptionist", got.InitiationData.DynamicVariables.OtherPartyRole)
	assert.Contains(t, got.InitiationData.ConfigOverride.Agent.Prompt.Prompt, "book a dentist appointment")
	assert.Contains(t, got.InitiationData.ConfigOverride.Agent.Prompt.Prompt, "Preferred mornings.")
	assert.Equal(t, "Hi, I'm calling to schedule an appointment.", got.InitiationData.ConfigOverride.Agent.FirstMessage)
}

func TestPlaceCallLookupFirstMessage(t *testing.T) {
	var got outboundCallRequest
	client := newTestVoiceClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"conversation_id":"conv-2"}`))
	})

	_, err := client.PlaceCall(context.Background(), CallRequest{
		UserName:    "Alex",
		UserRequest: "ask about my order",
		PhoneNumber: "+15550100",
		TaskType:    TaskTypeLookup,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi, this is Alex, I'm calling about an issue.", got.InitiationData.ConfigOverride.Agent.FirstMessage)
}

func TestPlaceCallFallsBackToCallSID(t *testing.T) {
	client := newTestVoiceClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"callSid":"CA999"}`))
	})

	result, err := client.PlaceCall(context.Background(), CallRequest{
		UserName:    "Alex",
		PhoneNumber: "+15550100",
	})
	require.NoError(t, err)
	assert.Equal(t, "CA999", result.ConversationID)
}

func TestPlaceCallAPIError(t *testing.T) {
	client := newTestVoiceClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"invalid api key"}`))
	})

	_, err := client.PlaceCall(context.Background(), CallRequest{
		UserName:    "Alex",
		PhoneNumber: "+15550100",
	})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "invalid api key")
}

func TestPlaceCallRequiresPhoneNumber(t *testing.T) {
	client := newTestVoiceClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.PlaceCall(context.Background(), CallRequest{UserName: "Alex"})
	require.Error(t, err)
}

func TestGetConversation(t *testing.T) {
	client := newTestVoiceClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/convai/conversations/conv-1", r.URL.Path)
		assert.Equal(t, "xi-key", r.Header.Get("xi-api-key"))

		_, _ = w.Write([]byte(`{
			"conversation_id": "conv-1",
			"status": "done",
			"transcript": [
				{"role": "agent", "message": "Hi, I'm calling to schedule an appointment."},
				{"role": "user", "message": "Sure, how about Tuesday at ten?"}
			],
			"metadata": {"call_duration_secs": 95, "start_time_unix_secs": 1748800000}
		}`))
	})

	conv, err := client.GetConversation(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.False(t, conv.Pending())
	assert.Equal(t, int64(95), conv.Metadata.CallDurationSecs)
	assert.Equal(t,
		"agent: Hi, I'm calling to schedule an appointment.\nuser: Sure, how about Tuesday at ten?",
		conv.TranscriptText())
}

func TestConversationPending(t *testing.T) {
	assert.True(t, (&Conversation{Status: StatusProcessing}).Pending())
	assert.True(t, (&Conversation{Status: StatusInProgress}).Pending())
	assert.False(t, (&Conversation{Status: "done"}).Pending())
}

func TestNewClientValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing api key", cfg: Config{AgentID: "a", PhoneNumberID: "p"}},
		{name: "missing agent id", cfg: Config{APIKey: "k", PhoneNumberID: "p"}},
		{name: "missing phone number id", cfg: Config{APIKey: "k", AgentID: "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			assert.Error(t, err)
		})
	}
}
