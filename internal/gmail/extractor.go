package gmail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	gmail "google.golang.org/api/gmail/v1"
)

var (
	stylePattern      = regexp.MustCompile(`(?is)<style.*?</style>`)
	scriptPattern     = regexp.MustCompile(`(?is)<script.*?</script>`)
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// ExtractContent flattens a message into plain text. Text parts are
// appended as-is, HTML parts are stripped of markup, and PDF attachments
// are fetched and converted to text. When nothing usable is found the
// message snippet is returned instead.
func ExtractContent(ctx context.Context, attachments AttachmentFetcher, msg *gmail.Message) string {
	if msg == nil {
		return ""
	}

	var b strings.Builder
	var queue []*gmail.MessagePart
	if msg.Payload != nil {
		queue = append(queue, msg.Payload)
	}

	for len(queue) > 0 {
		part := queue[0]
		queue = queue[1:]
		queue = append(queue, part.Parts...)

		switch {
		case part.MimeType == "text/plain" && hasBodyData(part):
			if text, err := decodeBody(part.Body.Data); err == nil {
				b.Write(text)
				b.WriteString("\n")
			}
		case part.MimeType == "text/html" && hasBodyData(part):
			if text, err := decodeBody(part.Body.Data); err == nil {
				b.WriteString(stripHTML(string(text)))
				b.WriteString("\n")
			}
		case isPDFAttachment(part):
			appendPDF(ctx, &b, attachments, msg.Id, part)
		}
	}

	content := strings.TrimSpace(whitespacePattern.ReplaceAllString(b.String(), " "))
	if content == "" {
		return strings.TrimSpace(msg.Snippet)
	}
	return content
}

func hasBodyData(part *gmail.MessagePart) bool {
	return part.Body != nil && part.Body.Data != ""
}

func isPDFAttachment(part *gmail.MessagePart) bool {
	return strings.HasSuffix(strings.ToLower(part.Filename), ".pdf") &&
		part.Body != nil && part.Body.AttachmentId != ""
}

// appendPDF fetches one PDF attachment and appends its text between
// start/end markers so the model can attribute content to the file. A
// failed fetch or parse appends a placeholder instead of aborting the
// whole extraction.
func appendPDF(ctx context.Context, b *strings.Builder, attachments AttachmentFetcher, messageID string, part *gmail.MessagePart) {
	data, err := attachments.GetAttachment(ctx, messageID, part.Body.AttachmentId)
	if err != nil {
		fmt.Fprintf(b, "[Could not parse PDF: %s]\n", part.Filename)
		return
	}
	text, err := pdfText(data)
	if err != nil {
		fmt.Fprintf(b, "[Could not parse PDF: %s]\n", part.Filename)
		return
	}
	fmt.Fprintf(b, "--- Start of PDF Content: %s ---\n%s\n--- End of PDF Content: %s ---\n", part.Filename, text, part.Filename)
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func stripHTML(s string) string {
	s = stylePattern.ReplaceAllString(s, " ")
	s = scriptPattern.ReplaceAllString(s, " ")
	return htmlTagPattern.ReplaceAllString(s, " ")
}
