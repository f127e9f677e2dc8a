// Package llm abstracts the language-model collaborator. Every call is
// fallible and latency-variable; call sites own their failure defaults.
package llm

import "context"

// Client is the minimal interface agents use to call a language model.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
