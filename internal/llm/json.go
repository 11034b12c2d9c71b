package llm

import (
	"encoding/json"
)

// ExtractJSONBlock returns the first balanced JSON object literal found in
// the text. Model responses often wrap the object in prose or code fences;
// both are tolerated. The second return value reports whether an object was
// found.
func ExtractJSONBlock(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}

	return "", false
}

// RawTextKey is the catch-all field used when an extraction response cannot
// be parsed as JSON.
const RawTextKey = "Raw Text"

// DecodeExtraction parses an extraction response into a field map. When no
// valid JSON object can be located, the raw text is preserved under
// RawTextKey rather than failing the call.
func DecodeExtraction(raw string) map[string]any {
	block, ok := ExtractJSONBlock(raw)
	if ok {
		var fields map[string]any
		if err := json.Unmarshal([]byte(block), &fields); err == nil {
			return fields
		}
	}
	return map[string]any{RawTextKey: raw}
}

// NextAction describes a follow-up action extracted from a call summary.
type NextAction struct {
	ActionType  string `json:"actionType"`
	Title       string `json:"title"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	TimeZone    string `json:"timeZone"`
	Description string `json:"description"`
}

// ActionCreateCalendarEvent is the next-action type that triggers a
// calendar insert after a call.
const ActionCreateCalendarEvent = "create_calendar_event"

// CallSummary is the structured post-call analysis of a transcript.
type CallSummary struct {
	Summary    string      `json:"summary"`
	Result     string      `json:"result"`
	FollowUp   bool        `json:"followUp"`
	NextAction *NextAction `json:"nextAction"`
}

// ParseSummary decodes a summary response. An unparsable response yields a
// default summary object instead of an error so a bad model response never
// loses the call outcome entirely.
func ParseSummary(raw string) *CallSummary {
	if block, ok := ExtractJSONBlock(raw); ok {
		var summary CallSummary
		if err := json.Unmarshal([]byte(block), &summary); err == nil {
			return &summary
		}
	}
	return &CallSummary{
		Summary: "The summary was not in valid JSON format.",
		Result:  "Summary could not be structured.",
	}
}

// ParseNextAction decodes a fallback event-extraction response into a
// NextAction, or nil when no object can be parsed.
func ParseNextAction(raw string) *NextAction {
	block, ok := ExtractJSONBlock(raw)
	if !ok {
		return nil
	}
	var action NextAction
	if err := json.Unmarshal([]byte(block), &action); err != nil {
		return nil
	}
	action.ActionType = ActionCreateCalendarEvent
	return &action
}
