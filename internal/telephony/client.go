package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/timelyagent/timely/internal/llm"
	"github.com/timelyagent/timely/internal/logging"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	defaultTimeout = 30 * time.Second
)

// APIError is a non-success response from the voice vendor.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("voice API error: status %d: %s", e.StatusCode, e.Body)
}

// Config configures the voice vendor client.
type Config struct {
	APIKey        string
	AgentID       string
	PhoneNumberID string

	// BaseURL overrides the vendor endpoint, for tests.
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client places outbound calls and polls conversations through the voice
// vendor's conversational AI API.
type Client struct {
	apiKey        string
	agentID       string
	phoneNumberID string
	baseURL       string
	httpClient    *http.Client
	logger        *slog.Logger
	now           func() time.Time
}

// NewClient validates the vendor credentials and returns a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("voice API key is required")
	}
	if cfg.AgentID == "" {
		return nil, fmt.Errorf("voice agent ID is required")
	}
	if cfg.PhoneNumberID == "" {
		return nil, fmt.Errorf("voice phone number ID is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		apiKey:        cfg.APIKey,
		agentID:       cfg.AgentID,
		phoneNumberID: cfg.PhoneNumberID,
		baseURL:       baseURL,
		httpClient:    httpClient,
		logger:        logger.With(logging.Service("telephony")),
		now:           time.Now,
	}, nil
}

// firstMessage is what the agent opens the call with. Scheduling calls
// lead with the purpose; lookup calls lead with the caller's name.
func firstMessage(req CallRequest) string {
	if req.TaskType == TaskTypeScheduling {
		return "Hi, I'm calling to schedule an appointment."
	}
	return fmt.Sprintf("Hi, this is %s, I'm calling about an issue.", req.UserName)
}

// PlaceCall starts an outbound call. The agent's persona and opening line
// are overridden per call so it acts as the user for this one task.
func (c *Client) PlaceCall(ctx context.Context, req CallRequest) (*CallResult, error) {
	if req.PhoneNumber == "" {
		return nil, fmt.Errorf("phone number is required")
	}

	body := outboundCallRequest{
		AgentID:       c.agentID,
		PhoneNumberID: c.phoneNumberID,
		ToNumber:      req.PhoneNumber,
	}
	body.InitiationData.DynamicVariables.UserName = req.UserName
	body.InitiationData.DynamicVariables.UserID = c.now().UnixMilli()
	body.InitiationData.DynamicVariables.OtherPartyRole = req.OtherPartyRole
	body.InitiationData.ConfigOverride.Agent.Prompt.Prompt = llm.PersonaPrompt(req.UserName, req.UserRequest, req.Context)
	body.InitiationData.ConfigOverride.Agent.FirstMessage = firstMessage(req)

	var result outboundCallResponse
	if err := c.do(ctx, http.MethodPost, "/v1/convai/twilio/outbound-call", &body, &result); err != nil {
		return nil, err
	}

	conversationID := result.ConversationID
	if conversationID == "" {
		conversationID = result.CallSID
	}
	if conversationID == "" {
		return nil, fmt.Errorf("voice API returned no conversation ID")
	}

	c.logger.Info("call placed", logging.CallID(conversationID))
	return &CallResult{ConversationID: conversationID, CallSID: result.CallSID}, nil
}

// GetConversation fetches the current state of a conversation, including
// its transcript once the call has ended.
func (c *Client) GetConversation(ctx context.Context, conversationID string) (*Conversation, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("conversation ID is required")
	}

	var conv Conversation
	if err := c.do(ctx, http.MethodGet, "/v1/convai/conversations/"+conversationID, nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("voice API request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read voice API response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode voice API response: %w", err)
	}
	return nil
}
