package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/timelyagent/timely/internal/logging"
	"github.com/timelyagent/timely/internal/ratelimit"
)

const (
	// DefaultModel is the completion model requested from the vendor.
	DefaultModel = "Llama-3.3-70B-Instruct"

	// DefaultTemperature keeps sampling deterministic-leaning for
	// classification and extraction tasks.
	DefaultTemperature = 0.1

	// defaultTimeout bounds a single completion request. The vendor has no
	// server-side deadline we can rely on.
	defaultTimeout = 60 * time.Second
)

// APIError is returned when the completion API responds with a non-success
// status. Body carries the vendor's error payload for logging.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("completion API returned status %d: %s", e.StatusCode, e.Body)
}

// ParseError is returned when the response matches neither known shape.
type ParseError struct {
	Body string
}

func (e *ParseError) Error() string {
	return "failed to parse completion API response"
}

// Recorder receives completion and rate-limiter metrics. Implementations
// must be safe for concurrent use.
type Recorder interface {
	RecordCompletion(ctx context.Context, status string, duration time.Duration)
	RecordRateLimitWait(ctx context.Context, wait time.Duration)
}

// Config holds the settings needed to construct a Client.
type Config struct {
	Endpoint    string
	APIKey      string
	Model       string
	Temperature float64

	// Limiter gates every request. Required: the client never talks to the
	// vendor without admission.
	Limiter *ratelimit.TokenLimiter

	HTTPClient *http.Client
	Logger     *slog.Logger

	// Metrics is optional; nil disables recording.
	Metrics Recorder
}

// Client issues rate-limited requests to the text-completion API.
// It performs no retries; callers decide whether a failure is worth retrying.
type Client struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	limiter     *ratelimit.TokenLimiter
	httpClient  *http.Client
	logger      *slog.Logger
	metrics     Recorder
}

// NewClient creates a completion client from the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("completion API endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("completion API key is required")
	}
	if cfg.Limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
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
		endpoint:    cfg.Endpoint,
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: temperature,
		limiter:     cfg.Limiter,
		httpClient:  httpClient,
		logger:      logging.WithService(logger, "llm"),
		metrics:     cfg.Metrics,
	}, nil
}

// chatMessage is one entry of the request's messages list. Prompts are sent
// as a single system message.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// completionEnvelope covers both response shapes the vendor is known to
// return: a "completion message" object and an OpenAI-style choices list.
type completionEnvelope struct {
	CompletionMessage *struct {
		Content struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"completion_message"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// resolve picks the completion text out of the envelope, preferring the
// completion-message shape, falling back to the choices shape.
func (e *completionEnvelope) resolve() (string, bool) {
	if e.CompletionMessage != nil && e.CompletionMessage.Content.Text != "" {
		return e.CompletionMessage.Content.Text, true
	}
	if len(e.Choices) > 0 && e.Choices[0].Message.Content != "" {
		return e.Choices[0].Message.Content, true
	}
	return "", false
}

// Complete sends the prompt and returns the model's trimmed text completion.
// The request is gated by the rate limiter using an estimate of the prompt
// tokens plus the output budget.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	tokens := ratelimit.EstimateTokens(prompt) + maxTokens
	waitStart := time.Now()
	if err := c.limiter.WaitN(ctx, tokens); err != nil {
		return "", fmt.Errorf("rate limiter wait interrupted: %w", err)
	}
	if c.metrics != nil {
		c.metrics.RecordRateLimitWait(ctx, time.Since(waitStart))
	}

	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "system", Content: prompt}},
		Temperature: c.temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	record := func(status string) {
		if c.metrics != nil {
			c.metrics.RecordCompletion(ctx, status, time.Since(start))
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		record(logging.StatusError)
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		record(logging.StatusError)
		return "", fmt.Errorf("failed to read completion response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		record(logging.StatusError)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
		c.logger.Error("completion API error",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(respBody)))
		return "", apiErr
	}

	var envelope completionEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		record(logging.StatusError)
		return "", &ParseError{Body: string(respBody)}
	}

	text, ok := envelope.resolve()
	if !ok {
		record(logging.StatusError)
		c.logger.Error("unexpected completion API response shape",
			slog.String("body", string(respBody)))
		return "", &ParseError{Body: string(respBody)}
	}
	record(logging.StatusSuccess)

	c.logger.Debug("completion finished",
		slog.Duration("duration", time.Since(start)),
		slog.Int("max_tokens", maxTokens))

	return strings.TrimSpace(text), nil
}
