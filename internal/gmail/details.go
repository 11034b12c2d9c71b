package gmail

import (
	"context"
	"fmt"
	"strings"

	"github.com/timelyagent/timely/internal/llm"
	"github.com/timelyagent/timely/internal/logging"
)

// GetEmailDetails extracts the fields needed to act on the user request
// from a single email. The field list itself comes from the model, then a
// second completion pulls the values out of the email content. A phone
// number is extracted separately and kept only when it is in E.164 form.
func (p *Pipeline) GetEmailDetails(ctx context.Context, messageID, userRequest string) (*EmailDetails, error) {
	neededFields, err := p.llm.Complete(ctx, llm.NeededFieldsPrompt(userRequest), llm.NeededInfoMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to determine needed fields: %w", err)
	}

	msg, err := p.source.GetMessage(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}
	content := ExtractContent(ctx, p.source, msg)

	raw, err := p.llm.Complete(ctx, llm.ExtractionPrompt(userRequest, neededFields, content), llm.ExtractionMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("failed to extract details: %w", err)
	}
	fields := llm.DecodeExtraction(raw)

	phone := ""
	answer, err := p.llm.Complete(ctx, llm.PhonePrompt(content), llm.PhoneMaxTokens)
	if err != nil {
		p.logger.Warn("phone extraction failed", logging.MessageID(messageID), logging.Err(err))
	} else if candidate := strings.TrimSpace(answer); strings.HasPrefix(candidate, "+") {
		phone = candidate
	}

	return &EmailDetails{Fields: fields, Phone: phone}, nil
}
