package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	agentModel       = openai.GPT4oMini
	agentTemperature = float32(0.7)

	runPollInitial = 500 * time.Millisecond
	runPollMax     = 8 * time.Second
	runTimeout     = 90 * time.Second
)

// OpenAIProvider implements Provider on the OpenAI Assistants API.
type OpenAIProvider struct {
	client *openai.Client
}

func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{client: openai.NewClient(apiKey)}
}

func (p *OpenAIProvider) CreateAgent(ctx context.Context, name, instructions string) (string, error) {
	temperature := agentTemperature
	assistant, err := p.client.CreateAssistant(ctx, openai.AssistantRequest{
		Model:        agentModel,
		Name:         &name,
		Instructions: &instructions,
		Temperature:  &temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create assistant: %w", err)
	}

	log.Printf("[INFO] Created assistant %s (%s)", assistant.ID, name)
	return assistant.ID, nil
}

func (p *OpenAIProvider) DeleteAgent(ctx context.Context, agentID string) error {
	if _, err := p.client.DeleteAssistant(ctx, agentID); err != nil {
		return fmt.Errorf("failed to delete assistant %s: %w", agentID, err)
	}
	return nil
}

func (p *OpenAIProvider) CreateThread(ctx context.Context, seedMessage string) (string, error) {
	thread, err := p.client.CreateThread(ctx, openai.ThreadRequest{
		Messages: []openai.ThreadMessage{
			{Role: openai.ThreadMessageRoleUser, Content: seedMessage},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}

	log.Printf("[INFO] Created thread %s", thread.ID)
	return thread.ID, nil
}

func (p *OpenAIProvider) DeleteThread(ctx context.Context, threadID string) error {
	if _, err := p.client.DeleteThread(ctx, threadID); err != nil {
		return fmt.Errorf("failed to delete thread %s: %w", threadID, err)
	}
	return nil
}

func (p *OpenAIProvider) PostMessage(ctx context.Context, threadID, content string) error {
	_, err := p.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    string(openai.ThreadMessageRoleUser),
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("failed to post message to thread %s: %w", threadID, err)
	}
	return nil
}

// RunToCompletion starts a run and polls with exponential backoff until it
// finishes or the run timeout elapses. A timeout surfaces as a retryable
// error rather than an unbounded wait.
func (p *OpenAIProvider) RunToCompletion(ctx context.Context, threadID, agentID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	run, err := p.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: agentID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}

	runID := run.ID
	backoff := runPollInitial
	for {
		switch run.Status {
		case openai.RunStatusCompleted:
			return runID, nil
		case openai.RunStatusFailed, openai.RunStatusCancelled, openai.RunStatusExpired, openai.RunStatusRequiresAction:
			return "", fmt.Errorf("run %s ended with status %s", runID, run.Status)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("run %s timed out: %w", runID, ctx.Err())
		case <-time.After(backoff):
		}

		if backoff < runPollMax {
			backoff *= 2
		}

		run, err = p.client.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			return "", fmt.Errorf("failed to retrieve run %s: %w", runID, err)
		}
	}
}

func (p *OpenAIProvider) ListReplies(ctx context.Context, threadID, runID string) ([]string, error) {
	limit := 10
	order := "desc"
	messages, err := p.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, &runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for run %s: %w", runID, err)
	}

	replies := make([]string, 0, len(messages.Messages))
	for _, msg := range messages.Messages {
		for _, content := range msg.Content {
			if content.Text != nil && content.Text.Value != "" {
				replies = append(replies, content.Text.Value)
				break
			}
		}
	}

	return replies, nil
}
