// Package llm provides a rate-limited client for the text-completion API
// together with every prompt the backend sends to it.
//
// The vendor's response is polymorphic over two known shapes (a
// "completion message" object and an OpenAI-style choices list); Complete
// resolves whichever is present and fails with a ParseError when neither
// matches. Non-success responses surface as an APIError carrying the
// vendor's error body.
//
// The client deliberately performs no retries; the only backpressure is the
// shared rate limiter gating every request.
//
// Model responses that should contain JSON frequently arrive wrapped in
// prose or code fences. ExtractJSONBlock, DecodeExtraction, ParseSummary
// and ParseNextAction salvage structure from such responses, falling back
// to raw-text or default values instead of failing.
package llm
