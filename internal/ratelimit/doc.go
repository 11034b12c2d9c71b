// Package ratelimit bounds the rate and token volume of outbound requests
// to the completion API.
//
// Limiter enforces a sliding-window request limit: at most maxRequests
// admissions inside any trailing window. TokenLimiter layers a rolling token
// budget on top, estimated with the cl100k_base tiktoken encoding.
//
// Both limiters are safe for concurrent use and honor context cancellation
// while waiting. State is process-local; restarting the process resets it.
package ratelimit
