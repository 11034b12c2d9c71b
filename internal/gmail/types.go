package gmail

import (
	"context"

	gmail "google.golang.org/api/gmail/v1"
)

// MessageSource is the mailbox access the pipeline needs. *Client satisfies
// it; tests substitute fakes.
type MessageSource interface {
	Search(ctx context.Context, query string, maxResults int64) ([]*gmail.Message, error)
	GetMessage(ctx context.Context, id string) (*gmail.Message, error)
	GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

// AttachmentFetcher is the subset of MessageSource the content extractor
// needs.
type AttachmentFetcher interface {
	GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

// Completer produces a model completion for a prompt within an output token
// budget.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// ClassificationRecorder counts relevance classification outcomes
// ("relevant", "irrelevant", "failed").
type ClassificationRecorder interface {
	RecordClassification(ctx context.Context, outcome string)
}

// Choice is one candidate email offered to the user for selection.
type Choice struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// LookupResult is the outcome of an inbox search for a user request.
// Either Context carries a human-readable answer (nothing found, nothing
// relevant) or NeedsSelection is set and Choices lists the candidates.
// Skipped counts candidates that could not be classified.
type LookupResult struct {
	NeedsSelection bool     `json:"needsSelection"`
	Context        string   `json:"context,omitempty"`
	Choices        []Choice `json:"choices,omitempty"`
	Skipped        int      `json:"skipped,omitempty"`
}

// EmailDetails holds the structured fields extracted from a single email.
// Phone is an E.164 number when one was found, empty otherwise.
type EmailDetails struct {
	Fields map[string]any `json:"fields"`
	Phone  string         `json:"phone,omitempty"`
}
