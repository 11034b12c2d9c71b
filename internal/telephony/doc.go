// Package telephony is the adapter for the conversational voice vendor.
// It places outbound calls with a per-call persona override, polls
// conversations for status and transcript, and declares the webhook event
// shapes the vendor pushes after a call ends.
package telephony
