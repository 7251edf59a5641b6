package agent

import (
	"context"
	"fmt"
	"testing"

	"tutorbot/models"
)

// fakeProvider records lifecycle calls and hands out sequential ids.
type fakeProvider struct {
	agentSeq  int
	threadSeq int

	createdAgents  []string
	createdThreads []string
	deletedAgents  []string
	deletedThreads []string
	posted         []string
	seeds          []string

	createAgentErr  error
	createThreadErr error
	deleteErr       error
	reply           string
}

func (f *fakeProvider) CreateAgent(ctx context.Context, name, instructions string) (string, error) {
	if f.createAgentErr != nil {
		return "", f.createAgentErr
	}
	f.agentSeq++
	id := fmt.Sprintf("agent-%d", f.agentSeq)
	f.createdAgents = append(f.createdAgents, id)
	return id, nil
}

func (f *fakeProvider) DeleteAgent(ctx context.Context, agentID string) error {
	f.deletedAgents = append(f.deletedAgents, agentID)
	return f.deleteErr
}

func (f *fakeProvider) CreateThread(ctx context.Context, seedMessage string) (string, error) {
	if f.createThreadErr != nil {
		return "", f.createThreadErr
	}
	f.threadSeq++
	id := fmt.Sprintf("thread-%d", f.threadSeq)
	f.createdThreads = append(f.createdThreads, id)
	f.seeds = append(f.seeds, seedMessage)
	return id, nil
}

func (f *fakeProvider) DeleteThread(ctx context.Context, threadID string) error {
	f.deletedThreads = append(f.deletedThreads, threadID)
	return f.deleteErr
}

func (f *fakeProvider) PostMessage(ctx context.Context, threadID, content string) error {
	f.posted = append(f.posted, content)
	return nil
}

func (f *fakeProvider) RunToCompletion(ctx context.Context, threadID, agentID string) (string, error) {
	return "run-1", nil
}

func (f *fakeProvider) ListReplies(ctx context.Context, threadID, runID string) ([]string, error) {
	if f.reply == "" {
		return nil, nil
	}
	return []string{f.reply}, nil
}

func tutorSession() *models.Session {
	return &models.Session{
		LearnerID: "learner-1",
		Mode:      models.ModeTutorAsks,
		Level:     models.LevelBeginner,
		Persona:   "You are supportive and encouraging.",
	}
}

func TestEnsureAgentCreatesOnce(t *testing.T) {
	provider := &fakeProvider{}
	service := NewService(provider)
	session := tutorSession()

	first, err := service.EnsureAgent(context.Background(), session)
	if err != nil {
		t.Fatalf("EnsureAgent() returned error: %v", err)
	}

	second, err := service.EnsureAgent(context.Background(), session)
	if err != nil {
		t.Fatalf("EnsureAgent() second call returned error: %v", err)
	}

	if first != second {
		t.Errorf("EnsureAgent() created a second agent: %q vs %q", first, second)
	}
	if len(provider.createdAgents) != 1 {
		t.Errorf("provider created %d agents, expected 1", len(provider.createdAgents))
	}
	if session.AgentMode != models.ModeTutorAsks {
		t.Errorf("session AgentMode = %q, expected %q", session.AgentMode, models.ModeTutorAsks)
	}
}

func TestEnsureAgentModeMismatchTearsDownFirst(t *testing.T) {
	provider := &fakeProvider{}
	service := NewService(provider)
	session := tutorSession()

	if _, err := service.EnsureAgent(context.Background(), session); err != nil {
		t.Fatalf("EnsureAgent() returned error: %v", err)
	}
	if _, err := service.EnsureThread(context.Background(), session, "seed"); err != nil {
		t.Fatalf("EnsureThread() returned error: %v", err)
	}

	// Flip mode without the usual teardown to simulate a stale handle pair.
	session.Mode = models.ModeStudentAsks

	agentID, err := service.EnsureAgent(context.Background(), session)
	if err != nil {
		t.Fatalf("EnsureAgent() after mode flip returned error: %v", err)
	}

	if agentID == "agent-1" {
		t.Error("EnsureAgent() reused an agent created for a different mode")
	}
	if len(provider.deletedAgents) != 1 || len(provider.deletedThreads) != 1 {
		t.Errorf("expected stale agent and thread deleted, got %d/%d",
			len(provider.deletedAgents), len(provider.deletedThreads))
	}
	if session.ThreadID != nil {
		t.Error("stale thread handle survived the mode-mismatch teardown")
	}
}

func TestEnsureThreadReusesHandle(t *testing.T) {
	provider := &fakeProvider{}
	service := NewService(provider)
	session := tutorSession()

	first, err := service.EnsureThread(context.Background(), session, "opening")
	if err != nil {
		t.Fatalf("EnsureThread() returned error: %v", err)
	}

	second, err := service.EnsureThread(context.Background(), session, "different opening")
	if err != nil {
		t.Fatalf("EnsureThread() second call returned error: %v", err)
	}

	if first != second {
		t.Errorf("EnsureThread() created a second thread: %q vs %q", first, second)
	}
	if len(provider.seeds) != 1 || provider.seeds[0] != "opening" {
		t.Errorf("thread seeded with %v, expected the first opening only", provider.seeds)
	}
}

func TestTeardownClearsHandlesDespiteProviderFailure(t *testing.T) {
	provider := &fakeProvider{deleteErr: fmt.Errorf("provider unavailable")}
	service := NewService(provider)
	session := tutorSession()

	if _, err := service.EnsureAgent(context.Background(), session); err != nil {
		t.Fatalf("EnsureAgent() returned error: %v", err)
	}
	if _, err := service.EnsureThread(context.Background(), session, "seed"); err != nil {
		t.Fatalf("EnsureThread() returned error: %v", err)
	}

	service.Teardown(context.Background(), session)

	if session.AgentID != nil || session.ThreadID != nil || session.AgentMode != "" {
		t.Error("Teardown() left local handles set after remote delete failure")
	}
}

func TestEnsureAgentFailureLeavesHandlesUnset(t *testing.T) {
	provider := &fakeProvider{createAgentErr: fmt.Errorf("quota exceeded")}
	service := NewService(provider)
	session := tutorSession()

	if _, err := service.EnsureAgent(context.Background(), session); err == nil {
		t.Fatal("EnsureAgent() expected error")
	}

	if session.AgentID != nil || session.AgentMode != "" {
		t.Error("failed provisioning left a handle set; retry would not start clean")
	}
}

func TestPostAndAwaitReturnsFirstReply(t *testing.T) {
	provider := &fakeProvider{reply: "What do you think DNA is made of?"}
	service := NewService(provider)
	session := tutorSession()

	if _, err := service.EnsureAgent(context.Background(), session); err != nil {
		t.Fatalf("EnsureAgent() returned error: %v", err)
	}
	if _, err := service.EnsureThread(context.Background(), session, "seed"); err != nil {
		t.Fatalf("EnsureThread() returned error: %v", err)
	}

	reply, err := service.PostAndAwait(context.Background(), session, "turn message")
	if err != nil {
		t.Fatalf("PostAndAwait() returned error: %v", err)
	}

	if reply != "What do you think DNA is made of?" {
		t.Errorf("PostAndAwait() = %q, expected the provider reply", reply)
	}
	if len(provider.posted) != 1 || provider.posted[0] != "turn message" {
		t.Errorf("posted messages = %v, expected the turn message", provider.posted)
	}
}

func TestPostAndAwaitWithoutHandles(t *testing.T) {
	service := NewService(&fakeProvider{})

	if _, err := service.PostAndAwait(context.Background(), tutorSession(), "msg"); err == nil {
		t.Error("PostAndAwait() expected error when session has no handles")
	}
}
