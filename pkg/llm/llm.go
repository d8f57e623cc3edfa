// Package llm defines the text-generation capability consumed by the
// recommendation and chat engines, plus its Anthropic-backed implementation.
//
// Consumers must treat every call as best-effort: a missing client, an API
// failure, or unusable output all route to deterministic fallbacks and are
// never surfaced to the end user.
package llm

import "context"

// Client generates free text from a system prompt and a user prompt.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
