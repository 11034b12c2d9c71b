package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
)

type fakeSource struct {
	results     []*gmail.Message
	full        map[string]*gmail.Message
	getErr      map[string]error
	attachments map[string][]byte
}

func (f *fakeSource) Search(_ context.Context, _ string, _ int64) ([]*gmail.Message, error) {
	return f.results, nil
}

func (f *fakeSource) GetMessage(_ context.Context, id string) (*gmail.Message, error) {
	if err := f.getErr[id]; err != nil {
		return nil, err
	}
	msg, ok := f.full[id]
	if !ok {
		return nil, fmt.Errorf("no such message %s", id)
	}
	return msg, nil
}

func (f *fakeSource) GetAttachment(_ context.Context, _, attachmentID string) ([]byte, error) {
	data, ok := f.attachments[attachmentID]
	if !ok {
		return nil, errors.New("no such attachment")
	}
	return data, nil
}

type fakeCompleter struct {
	fn func(prompt string) (string, error)
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, _ int) (string, error) {
	return f.fn(prompt)
}

func textPart(body string) *gmail.MessagePart {
	return &gmail.MessagePart{
		MimeType: "text/plain",
		Body: &gmail.MessagePartBody{
			Data: base64.URLEncoding.EncodeToString([]byte(body)),
		},
	}
}

func testMessage(id, subject, body string) *gmail.Message {
	return &gmail.Message{
		Id: id,
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail.MessagePartHeader{
				{Name: "Subject", Value: subject},
				{Name: "Date", Value: "Mon, 2 Jun 2025 10:00:00 -0700"},
			},
			Parts: []*gmail.MessagePart{textPart(body)},
		},
	}
}

func newTestSource(msgs ...*gmail.Message) *fakeSource {
	src := &fakeSource{
		full:   make(map[string]*gmail.Message),
		getErr: make(map[string]error),
	}
	for _, m := range msgs {
		src.results = append(src.results, &gmail.Message{Id: m.Id})
		src.full[m.Id] = m
	}
	return src
}

func alwaysAnswer(answer string) *fakeCompleter {
	return &fakeCompleter{fn: func(string) (string, error) { return answer, nil }}
}

func TestFindInformationNoMessages(t *testing.T) {
	p := NewPipeline(&fakeSource{}, alwaysAnswer("Relevant"), nil)

	result, err := p.FindInformation(context.Background(), "Acme", "return my order")
	require.NoError(t, err)
	assert.False(t, result.NeedsSelection)
	assert.Contains(t, result.Context, "Acme")
	assert.Empty(t, result.Choices)
}

func TestFindInformationPrioritizesTransactionalSubjects(t *testing.T) {
	src := newTestSource(
		testMessage("m1", "Welcome to Acme", "hello"),
		testMessage("m2", "Your Acme order confirmation", "order #123"),
		testMessage("m3", "Acme community digest", "news"),
		testMessage("m4", "Receipt for your purchase", "receipt"),
	)
	p := NewPipeline(src, alwaysAnswer("Relevant"), nil)

	result, err := p.FindInformation(context.Background(), "Acme", "return my order")
	require.NoError(t, err)
	assert.True(t, result.NeedsSelection)
	require.Len(t, result.Choices, 4)

	// Keyword subjects first, original order preserved within each group.
	assert.Equal(t, "m2", result.Choices[0].ID)
	assert.Equal(t, "m4", result.Choices[1].ID)
	assert.Equal(t, "m1", result.Choices[2].ID)
	assert.Equal(t, "m3", result.Choices[3].ID)
}

func TestFindInformationCountsSkippedCandidates(t *testing.T) {
	src := newTestSource(
		testMessage("m1", "Order confirmation", "order"),
		testMessage("m2", "Promo blast", "sale"),
		testMessage("m3", "Unfetchable", "x"),
	)
	src.getErr["m3"] = errors.New("backend unavailable")

	completer := &fakeCompleter{fn: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Promo blast") {
			return "Irrelevant", nil
		}
		return "Relevant", nil
	}}
	p := NewPipeline(src, completer, nil)

	result, err := p.FindInformation(context.Background(), "Acme", "return my order")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Choices, 1)
	assert.Equal(t, "m1", result.Choices[0].ID)
}

func TestFindInformationAllCandidatesFailed(t *testing.T) {
	src := newTestSource(
		testMessage("m1", "One", "x"),
		testMessage("m2", "Two", "y"),
	)
	completer := &fakeCompleter{fn: func(string) (string, error) {
		return "", errors.New("model unavailable")
	}}
	p := NewPipeline(src, completer, nil)

	_, err := p.FindInformation(context.Background(), "Acme", "return my order")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not classify")
}

func TestFindInformationNoneRelevant(t *testing.T) {
	src := newTestSource(
		testMessage("m1", "Spring sale", "promo"),
		testMessage("m2", "New arrivals", "promo"),
	)
	p := NewPipeline(src, alwaysAnswer("Irrelevant"), nil)

	result, err := p.FindInformation(context.Background(), "Acme", "return my order")
	require.NoError(t, err)
	assert.False(t, result.NeedsSelection)
	assert.Contains(t, result.Context, "none seemed relevant")
}

func TestFindInformationTruncatesChoices(t *testing.T) {
	var msgs []*gmail.Message
	for i := 0; i < MaxChoices+3; i++ {
		id := fmt.Sprintf("m%d", i)
		msgs = append(msgs, testMessage(id, fmt.Sprintf("Order update %d", i), "order"))
	}
	p := NewPipeline(newTestSource(msgs...), alwaysAnswer("Relevant"), nil)

	result, err := p.FindInformation(context.Background(), "Acme", "where is my order")
	require.NoError(t, err)
	assert.Len(t, result.Choices, MaxChoices)
}

func TestIsRelevantAnswer(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"Relevant", true},
		{"relevant.", true},
		{"The email is Relevant", true},
		{"Irrelevant", false},
		{"This email is irrelevant to the request", false},
		{"I cannot tell", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			assert.Equal(t, tt.want, isRelevantAnswer(tt.answer))
		})
	}
}
