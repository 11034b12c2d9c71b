package gmail

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	gmail "google.golang.org/api/gmail/v1"
)

func htmlPart(body string) *gmail.MessagePart {
	return &gmail.MessagePart{
		MimeType: "text/html",
		Body: &gmail.MessagePartBody{
			Data: base64.URLEncoding.EncodeToString([]byte(body)),
		},
	}
}

func TestExtractContentPlainText(t *testing.T) {
	msg := &gmail.Message{
		Id:      "m1",
		Payload: textPart("Your order #123 has shipped."),
	}

	got := ExtractContent(context.Background(), &fakeSource{}, msg)
	assert.Equal(t, "Your order #123 has shipped.", got)
}

func TestExtractContentStripsHTML(t *testing.T) {
	msg := &gmail.Message{
		Id: "m1",
		Payload: htmlPart(`<html><head><style>p { color: red; }</style></head>
<body><p>Order <b>#123</b> confirmed</p><script>track();</script></body></html>`),
	}

	got := ExtractContent(context.Background(), &fakeSource{}, msg)
	assert.Equal(t, "Order #123 confirmed", got)
}

func TestExtractContentWalksNestedParts(t *testing.T) {
	msg := &gmail.Message{
		Id: "m1",
		Payload: &gmail.MessagePart{
			MimeType: "multipart/mixed",
			Parts: []*gmail.MessagePart{
				{
					MimeType: "multipart/alternative",
					Parts:    []*gmail.MessagePart{textPart("inner text")},
				},
				textPart("outer text"),
			},
		},
	}

	got := ExtractContent(context.Background(), &fakeSource{}, msg)
	assert.Contains(t, got, "inner text")
	assert.Contains(t, got, "outer text")
}

func TestExtractContentSnippetFallback(t *testing.T) {
	msg := &gmail.Message{
		Id:      "m1",
		Snippet: "  short preview  ",
		Payload: &gmail.MessagePart{MimeType: "multipart/mixed"},
	}

	got := ExtractContent(context.Background(), &fakeSource{}, msg)
	assert.Equal(t, "short preview", got)
}

func TestExtractContentCollapsesWhitespace(t *testing.T) {
	msg := &gmail.Message{
		Id:      "m1",
		Payload: textPart("line one\n\n\n   line    two\t\tend"),
	}

	got := ExtractContent(context.Background(), &fakeSource{}, msg)
	assert.Equal(t, "line one line two end", got)
}

func TestExtractContentUnfetchablePDF(t *testing.T) {
	msg := &gmail.Message{
		Id: "m1",
		Payload: &gmail.MessagePart{
			MimeType: "multipart/mixed",
			Parts: []*gmail.MessagePart{
				textPart("see attached"),
				{
					MimeType: "application/pdf",
					Filename: "invoice.pdf",
					Body:     &gmail.MessagePartBody{AttachmentId: "att-1"},
				},
			},
		},
	}

	got := ExtractContent(context.Background(), &fakeSource{}, msg)
	assert.Contains(t, got, "see attached")
	assert.Contains(t, got, "[Could not parse PDF: invoice.pdf]")
}

func TestExtractContentCorruptPDF(t *testing.T) {
	src := &fakeSource{attachments: map[string][]byte{"att-1": []byte("not a pdf")}}
	msg := &gmail.Message{
		Id: "m1",
		Payload: &gmail.MessagePart{
			MimeType: "application/pdf",
			Filename: "Receipt.PDF",
			Body:     &gmail.MessagePartBody{AttachmentId: "att-1"},
		},
	}

	got := ExtractContent(context.Background(), src, msg)
	assert.Contains(t, got, "[Could not parse PDF: Receipt.PDF]")
}

func TestHeaderValue(t *testing.T) {
	msg := testMessage("m1", "Order confirmation", "body")

	assert.Equal(t, "Order confirmation", HeaderValue(msg, "subject"))
	assert.Equal(t, "", HeaderValue(msg, "Reply-To"))
	assert.Equal(t, "", HeaderValue(nil, "Subject"))
}
