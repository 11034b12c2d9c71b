package telephony

import "strings"

// Task types for outbound calls.
const (
	TaskTypeLookup     = "lookup"
	TaskTypeScheduling = "scheduling"
)

// CallRequest describes an outbound call to place on the user's behalf.
type CallRequest struct {
	UserName       string
	UserRequest    string
	PhoneNumber    string
	Context        string
	TaskType       string
	OtherPartyRole string
}

// CallResult identifies a placed call.
type CallResult struct {
	ConversationID string `json:"conversation_id"`
	CallSID        string `json:"callSid,omitempty"`
}

type outboundCallRequest struct {
	AgentID        string `json:"agent_id"`
	PhoneNumberID  string `json:"agent_phone_number_id"`
	ToNumber       string `json:"to_number"`
	InitiationData struct {
		DynamicVariables struct {
			UserName       string `json:"user_name"`
			UserID         int64  `json:"user_id"`
			OtherPartyRole string `json:"other_party_role"`
		} `json:"dynamic_variables"`
		ConfigOverride struct {
			Agent struct {
				Prompt struct {
					Prompt string `json:"prompt"`
				} `json:"prompt"`
				FirstMessage string `json:"first_message"`
			} `json:"agent"`
		} `json:"conversation_config_override"`
	} `json:"conversation_initiation_client_data"`
}

type outboundCallResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
	CallSID        string `json:"callSid"`
}

// Conversation statuses while a call is still running.
const (
	StatusProcessing = "processing"
	StatusInProgress = "in-progress"
)

// Turn is one utterance in a conversation transcript.
type Turn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// Conversation is the vendor's view of a call.
type Conversation struct {
	ConversationID string `json:"conversation_id"`
	Status         string `json:"status"`
	Transcript     []Turn `json:"transcript"`
	Metadata       struct {
		CallDurationSecs  int64 `json:"call_duration_secs"`
		StartTimeUnixSecs int64 `json:"start_time_unix_secs"`
	} `json:"metadata"`
	HasAudio         bool `json:"has_audio"`
	HasUserAudio     bool `json:"has_user_audio"`
	HasResponseAudio bool `json:"has_response_audio"`
}

// Pending reports whether the call is still running and has no final
// transcript yet.
func (c *Conversation) Pending() bool {
	return c.Status == StatusProcessing || c.Status == StatusInProgress
}

// TranscriptText flattens turns into "role: message" lines for
// summarization. Both polled conversations and webhook pushes carry
// transcripts in this shape.
func TranscriptText(turns []Turn) string {
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		lines = append(lines, turn.Role+": "+turn.Message)
	}
	return strings.Join(lines, "\n")
}

// TranscriptText flattens the conversation's transcript.
func (c *Conversation) TranscriptText() string {
	return TranscriptText(c.Transcript)
}
