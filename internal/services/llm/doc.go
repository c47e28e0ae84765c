// Package llm provides an OpenRouter-compatible chat completions client used
// by the LLM workflow analyzer.
//
// The client sends a system and user prompt with a JSON-only response format
// and returns the raw JSON content. Import sessions may carry their own API
// credential; when a request supplies one it replaces the configured key for
// that call only.
//
// # Retry Behaviour
//
// Requests are retried on HTTP 408/429/5xx, empty completions, and network
// timeouts with exponential backoff (base 1s, max 10s, up to 4 attempts by
// default). Retry-After headers are honoured up to the max delay. Context
// cancellation aborts retries immediately.
package llm
