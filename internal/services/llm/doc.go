// Package llm provides an OpenRouter-compatible chat client used for frame
// descriptions and caption correction.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive a JSON reply.
// Client.CompleteVisionJSON: same, with an image attached as a content part.
// Client.HealthCheck: verify API key and model availability.
// DecodeLLMJSON: parse replies that wrap JSON in code fences or prose.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx, empty completions, and network
// timeouts with exponential backoff (base 1s, max 10s, 4 attempts by
// default). Retry-After is honoured. Context cancellation aborts retries
// immediately.
//
// IsUnavailable separates "could not reach or use the model" failures from
// malformed replies so callers can map them onto their own error markers.
package llm
