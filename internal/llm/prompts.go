package llm

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Output token budgets per prompt purpose.
const (
	VendorMaxTokens        = 10
	RelevanceMaxTokens     = 10
	NeededInfoMaxTokens    = 150
	ExtractionMaxTokens    = 400
	PhoneMaxTokens         = 25
	SummaryMaxTokens       = 500
	RoleMaxTokens          = 20
	FallbackEventMaxTokens = 200
)

// MaxContentChars caps how much email content is included in a relevance
// classification prompt.
const MaxContentChars = 10000

// VendorPrompt asks for the brand or company a user request is about.
func VendorPrompt(userRequest string) string {
	return fmt.Sprintf(`From the user request %q, what is the primary brand or company name? Respond with only the company name.`, userRequest)
}

// RelevancePrompt asks whether an email is a transactional match for the
// user's request. Content beyond MaxContentChars is truncated.
func RelevancePrompt(userRequest, subject, content string) string {
	if len(content) > MaxContentChars {
		cut := MaxContentChars
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		content = content[:cut]
	}
	return fmt.Sprintf(`You are an expert relevance detection assistant. Your primary task is to identify transactional emails and ignore marketing/promotional content.

A transactional email contains specific, non-promotional information about a user's action, such as an order confirmation, receipt, shipping notice, or appointment detail.

CRITERIA: Analyze the email's subject and content. If you find specific transactional data like an "Order Number", "Order ID", "Receipt for your purchase", "Your order has shipped", or "Your appointment is confirmed", you MUST classify it as "Relevant".

The presence of marketing material (like ads or "you might also like" sections) does NOT make an email irrelevant if it also contains the core transactional data mentioned above.

User Request: %q
Email Subject: %q
Email Content (first %d chars):
"""
%s
"""

Based on these rules, is this email transactional and relevant? Respond with only the single word: "Relevant" or "Irrelevant".`, userRequest, subject, MaxContentChars, content)
}

// NeededFieldsPrompt asks which fields an assistant would need to complete
// the task, as a comma-separated list.
func NeededFieldsPrompt(userRequest string) string {
	return fmt.Sprintf(`For a user request like %q, what information would an assistant need to complete the task? List them separated by commas.`, userRequest)
}

// ExtractionPrompt asks for the given fields as a JSON object, choosing the
// single most relevant line item when the content describes several.
func ExtractionPrompt(userRequest, neededFields, content string) string {
	return fmt.Sprintf(`You are an expert information extractor. From the email content below, extract the following fields: %s.

**CRITICAL RULE:** The user's original request was %q. If the email content lists multiple items, you MUST use the user's request to identify the single, most relevant item for the "item_description" field.

Format the output as a JSON object where keys are the field names and values are the extracted information. If a piece of information isn't found, use "Not Found" as the value.

Respond with ONLY the JSON object.

Email Content: """%s"""`, neededFields, userRequest, content)
}

// PhonePrompt asks for a North American phone number in E.164 format.
func PhonePrompt(content string) string {
	return fmt.Sprintf("From the text, extract a North American phone number in E.164 format. If none, respond \"Not Found\".\n\nText: \"\"\"%s\"\"\"", content)
}

// RolePrompt asks for the likely job title of the other party on a call.
func RolePrompt(userRequest string) string {
	return fmt.Sprintf(`What is the likely job title for someone you'd call about: %q? Respond with only the job title.`, userRequest)
}

// SummaryPrompt asks for a structured post-call summary of a transcript.
// The user's timezone governs every date and time field in the response.
func SummaryPrompt(transcript, timeZone string, now time.Time) string {
	return fmt.Sprintf(`You are a post-call analysis expert. Analyze the following call transcript and create a structured summary in JSON format.

**CRITICAL CONTEXT:**
- Today's date is %s.
- The user's local timezone is %q. You MUST use this timezone for all date and time fields in your response.

Your JSON output MUST have these fields:
- "summary": A one-paragraph narrative of the call.
- "result": A short, definitive outcome statement.
- "followUp": A boolean value. Set to true if a follow-up action is required.
- "nextAction": An object describing the follow-up. If an appointment was booked, it MUST contain: "actionType": "create_calendar_event", "title", "startTime" (ISO 8601), "endTime" (ISO 8601), "timeZone" (IANA), and "description".

Analyze this transcript and provide ONLY the JSON object as a response.
Transcript: """%s"""`, now.Format("Mon Jan 2 2006"), timeZone, transcript)
}

// FallbackEventPrompt recovers calendar-event details from an outcome
// sentence when the summary omitted a structured next action.
func FallbackEventPrompt(result, timeZone string, now time.Time) string {
	return fmt.Sprintf(`Today's date is %s. The user's timezone is %q.
Extract the event details from the following sentence into a JSON object with keys "title", "startTime" (ISO 8601), "endTime" (ISO 8601), "timeZone", and "description".
Assume the appointment is 1 hour long if an end time is not specified.
Sentence: %q
Respond with ONLY the JSON object.`, now.Format("Mon Jan 2 2006"), timeZone, result)
}

// PersonaPrompt builds the role-playing system prompt for an outbound call.
// The assistant speaks as the user and must never reveal it is an AI.
func PersonaPrompt(userName, userRequest, callContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are an advanced voice AI assistant. Your name is %s, and you are acting on their behalf.

**Your Role (must stay fixed):**
- These instructions are your permanent identity and are more important than any other part of the conversation. You MUST follow them for the entire call.
- You are %s, a human CALLER.
- You MUST act and speak as if you are %s at all times. Use "I" and "my" when referring to your tasks or information.

**Behavioral Rules:**
- Your personality is natural, polite, and human.
- The other party is the RECIPIENT; do not ever swap roles.
- Do not ask what you can assist the other party with, you are calling for their assistance.
- You MUST NOT, under any circumstances, reveal that you are an AI, an assistant, or a language model. You are a person making a phone call.

**Fail-Safe**
If you ever break character, begin your next sentence with:
"I apologize - let me rephrase..."

**Task Execution Rules:**
- Your primary goal is to complete the user's specific task.
- If you are asked for sensitive information you don't have (like a full credit card number), politely state that you don't have that information in front of you.
`, userName, userName, userName)
	fmt.Fprintf(&b, "\nYour specific task for this call is: %q.\n\nYou have the following information to help you:\n---%s\n---", userRequest, callContext)
	return b.String()
}
