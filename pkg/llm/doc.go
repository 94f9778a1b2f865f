// Package llm is the model gateway: it sends a transcript and the available
// tool schemas to one model provider and normalizes the reply into a Result.
//
// # Providers
//
// OpenAI is the primary backend and requests JSON-object responses.
// Anthropic is supported through the Messages API and relies on the prompt
// for the JSON shape. Google is recognized but not implemented; every call
// degrades with an invalid provider error.
//
// # Failure model
//
// Call never returns an error and never panics. Any failure becomes a
// degraded Result whose Content.Output describes the problem and whose Err
// carries the classified cause, so the agent loop can keep going and the
// caller can still tell a degraded turn from a real answer.
package llm
