package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"tutorbot/models"
)

const provisionTimeout = 30 * time.Second

// Service is the agent lifecycle manager. Per (learner, mode) it moves a
// session through NO_AGENT → AGENT_NO_THREAD → ACTIVE, and tears both
// handles down together on any mode or question change so stale handles are
// never reused across contexts.
type Service struct {
	provider Provider
}

func NewService(provider Provider) *Service {
	return &Service{provider: provider}
}

// EnsureAgent returns the session's agent handle, creating a new agent
// identity when none exists. A handle created for a different mode is torn
// down first; it must never serve the current mode.
func (s *Service) EnsureAgent(ctx context.Context, session *models.Session) (string, error) {
	if session.AgentID != nil {
		if session.AgentMode == session.Mode {
			return *session.AgentID, nil
		}
		log.Printf("[WARN] Session %s holds handles for mode %s but is in mode %s, tearing down",
			session.LearnerID, session.AgentMode, session.Mode)
		s.Teardown(ctx, session)
	}

	ctx, cancel := context.WithTimeout(ctx, provisionTimeout)
	defer cancel()

	name := fmt.Sprintf("tutorbot-%s-%s", session.LearnerID, session.Mode)
	instructions := BuildInstructions(session.Mode, session.Persona)

	agentID, err := s.provider.CreateAgent(ctx, name, instructions)
	if err != nil {
		return "", fmt.Errorf("failed to provision agent: %w", err)
	}

	session.AgentID = &agentID
	session.AgentMode = session.Mode

	log.Printf("[INFO] Provisioned agent %s for learner %s (mode %s)", agentID, session.LearnerID, session.Mode)
	return agentID, nil
}

// EnsureThread returns the session's conversation handle, starting a new
// conversation seeded with openingContent when none exists.
func (s *Service) EnsureThread(ctx context.Context, session *models.Session, openingContent string) (string, error) {
	if session.ThreadID != nil {
		return *session.ThreadID, nil
	}

	ctx, cancel := context.WithTimeout(ctx, provisionTimeout)
	defer cancel()

	threadID, err := s.provider.CreateThread(ctx, openingContent)
	if err != nil {
		return "", fmt.Errorf("failed to provision conversation: %w", err)
	}

	session.ThreadID = &threadID

	log.Printf("[INFO] Provisioned thread %s for learner %s (mode %s)", threadID, session.LearnerID, session.Mode)
	return threadID, nil
}

// Teardown deletes the remote agent and conversation best-effort. Deletion
// failures are logged and swallowed; the local handles are cleared
// unconditionally so the session never points at possibly-deleted remote
// resources.
func (s *Service) Teardown(ctx context.Context, session *models.Session) {
	ctx, cancel := context.WithTimeout(ctx, provisionTimeout)
	defer cancel()

	if session.ThreadID != nil {
		if err := s.provider.DeleteThread(ctx, *session.ThreadID); err != nil {
			log.Printf("[WARN] Failed to delete thread %s for learner %s: %v", *session.ThreadID, session.LearnerID, err)
		}
	}

	if session.AgentID != nil {
		if err := s.provider.DeleteAgent(ctx, *session.AgentID); err != nil {
			log.Printf("[WARN] Failed to delete agent %s for learner %s: %v", *session.AgentID, session.LearnerID, err)
		}
	}

	session.ClearHandles()
	log.Printf("[INFO] Cleared agent handles for learner %s", session.LearnerID)
}

// PostAndAwait posts the turn message to the session's thread, runs the
// agent to completion and returns the reply text.
func (s *Service) PostAndAwait(ctx context.Context, session *models.Session, message string) (string, error) {
	if !session.HasHandles() {
		return "", fmt.Errorf("session %s has no agent handles", session.LearnerID)
	}

	threadID := *session.ThreadID
	agentID := *session.AgentID

	if err := s.provider.PostMessage(ctx, threadID, message); err != nil {
		return "", fmt.Errorf("failed to post turn message: %w", err)
	}

	runID, err := s.provider.RunToCompletion(ctx, threadID, agentID)
	if err != nil {
		return "", fmt.Errorf("agent run failed: %w", err)
	}

	replies, err := s.provider.ListReplies(ctx, threadID, runID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch agent reply: %w", err)
	}

	if len(replies) == 0 {
		return "", fmt.Errorf("agent produced no reply for run %s", runID)
	}

	return replies[0], nil
}
