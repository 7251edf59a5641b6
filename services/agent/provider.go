package agent

import "context"

// Provider is the external conversational-agent surface the lifecycle
// manager drives: configured agent identities, threads of turns, and runs.
type Provider interface {
	CreateAgent(ctx context.Context, name, instructions string) (string, error)
	DeleteAgent(ctx context.Context, agentID string) error
	CreateThread(ctx context.Context, seedMessage string) (string, error)
	DeleteThread(ctx context.Context, threadID string) error
	PostMessage(ctx context.Context, threadID, content string) error
	RunToCompletion(ctx context.Context, threadID, agentID string) (string, error)
	// ListReplies returns message texts for a run, most relevant first.
	// Callers consume only the first element.
	ListReplies(ctx context.Context, threadID, runID string) ([]string, error)
}
