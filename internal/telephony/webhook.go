package telephony

// EventPostCallTranscription is pushed by the vendor once a call has ended
// and its transcript is final.
const EventPostCallTranscription = "post_call_transcription"

// WebhookEvent is a push notification from the voice vendor.
type WebhookEvent struct {
	Type string      `json:"type"`
	Data WebhookData `json:"data"`
}

// WebhookData carries the conversation state included in a webhook push.
type WebhookData struct {
	ConversationID string           `json:"conversation_id"`
	Status         string           `json:"status"`
	Transcript     []Turn           `json:"transcript"`
	Analysis       *WebhookAnalysis `json:"analysis,omitempty"`
}

// WebhookAnalysis is the vendor's own post-call analysis.
type WebhookAnalysis struct {
	TranscriptSummary string `json:"transcript_summary"`
	CallSuccessful    string `json:"call_successful"`
}
