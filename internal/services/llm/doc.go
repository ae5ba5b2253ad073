// Package llm provides a chat-completions client for OpenRouter and other
// OpenAI-compatible endpoints.
//
// The translator uses it as the constrained tier: it sends a system prompt
// describing the word budget and tone rules plus the source text, and expects
// a JSON object back. DecodeLLMJSON tolerates code fences and surrounding
// prose that models tend to add.
//
// # Configuration
//
// Requires api_key and model; base_url, referer, title, timeout and
// temperature are optional. When unconfigured the translator skips this tier.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty completions and
// network timeouts with exponential backoff (base 1s, max 10s, up to 5
// attempts by default). Retry-After is honoured. Context cancellation aborts
// retries immediately. Every returned transport or status failure carries
// services.ErrExternalService.
package llm
