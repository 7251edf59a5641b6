package llm

import "context"

// Completer is a single-shot text generation call, used for correctness
// classification and persona synthesis.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}
