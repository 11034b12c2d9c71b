package llm

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestRelevancePromptCapsContent(t *testing.T) {
	long := strings.Repeat("a", MaxContentChars+500)
	prompt := RelevancePrompt("return my order", "Order update", long)

	assert.Contains(t, prompt, strings.Repeat("a", MaxContentChars))
	assert.NotContains(t, prompt, strings.Repeat("a", MaxContentChars+1))
}

func TestRelevancePromptTruncatesOnRuneBoundary(t *testing.T) {
	// A multi-byte rune straddling the cap must be dropped whole, not
	// split into invalid bytes.
	content := strings.Repeat("a", MaxContentChars-1) + strings.Repeat("語", 20)
	prompt := RelevancePrompt("return my order", "Order update", content)

	assert.True(t, utf8.ValidString(prompt))
	assert.NotContains(t, prompt, "語")
}

func TestRelevancePromptKeepsShortContent(t *testing.T) {
	prompt := RelevancePrompt("return my order", "Order update", "Order #123 confirmed")
	assert.Contains(t, prompt, "Order #123 confirmed")
}
