package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Client wraps the Gmail Users service.
type Client struct {
	svc *gmail.UsersService
}

// NewClient creates a Gmail client on top of an OAuth2-authenticated HTTP
// client.
func NewClient(ctx context.Context, httpClient *http.Client) (*Client, error) {
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &Client{svc: svc.Users}, nil
}

// Search lists message references matching the query, up to maxResults.
func (c *Client) Search(ctx context.Context, query string, maxResults int64) ([]*gmail.Message, error) {
	res, err := c.svc.Messages.List("me").Q(query).MaxResults(maxResults).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	return res.Messages, nil
}

// GetMessage retrieves a full Gmail message.
func (c *Client) GetMessage(ctx context.Context, id string) (*gmail.Message, error) {
	msg, err := c.svc.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return msg, nil
}

// GetAttachment retrieves and decodes the content of an attachment.
func (c *Client) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	attachment, err := c.svc.Messages.Attachments.Get("me", messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment %s: %w", attachmentID, err)
	}
	return decodeBody(attachment.Data)
}

// decodeBody decodes Gmail body data, which is base64url per RFC 4648 but
// occasionally arrives in standard base64.
func decodeBody(data string) ([]byte, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode body data: %w", err)
		}
	}
	return decoded, nil
}

// HeaderValue returns the value of a message header, or "" when absent.
func HeaderValue(msg *gmail.Message, name string) string {
	if msg == nil || msg.Payload == nil {
		return ""
	}
	for _, h := range msg.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
