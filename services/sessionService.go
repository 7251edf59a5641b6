package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"tutorbot/db"
	"tutorbot/models"
	"tutorbot/services/agent"
	"tutorbot/services/llm"
)

const (
	personaTimeout   = 15 * time.Second
	personaMaxTokens = 300
)

const personaSystemPrompt = `You write short persona instructions for a one-on-one tutor bot.
Given a learner level, produce 2-4 sentences, second person, describing how the tutor should behave.
Output only the persona text, no preamble.`

// levelTraits seed persona synthesis and serve as the fallback persona when
// the synthesis call fails.
var levelTraits = map[string]string{
	models.LevelBeginner:     "You are supportive and encouraging. Use very simple language. Provide hints in tiny steps.",
	models.LevelIntermediate: "You are Socratic. Ask probing, clarifying questions. Make the student justify each step.",
	models.LevelAdvanced:     "You are challenging. Push for precise definitions. Make the student defend their claims scientifically.",
}

// ContextProvider supplies grounding context for an utterance.
type ContextProvider interface {
	GetContext(ctx context.Context, utterance string) string
}

// AnswerClassifier labels an utterance against a ground truth.
type AnswerClassifier interface {
	Classify(ctx context.Context, groundTruth, utterance string) Classification
}

// AgentManager owns the external agent identity and conversation lifecycle.
type AgentManager interface {
	EnsureAgent(ctx context.Context, session *models.Session) (string, error)
	EnsureThread(ctx context.Context, session *models.Session, openingContent string) (string, error)
	Teardown(ctx context.Context, session *models.Session)
	PostAndAwait(ctx context.Context, session *models.Session, message string) (string, error)
}

// SessionService is the orchestrator: it owns the per-learner session record
// and dispatches each turn through retrieval, classification, prompt
// assembly and agent invocation.
type SessionService struct {
	sessions  db.SessionRepository
	turnLogs  db.TurnLogRepository
	bank      *QuestionBankService
	retrieval ContextProvider
	classify  AnswerClassifier
	agents    AgentManager
	completer llm.Completer

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSessionService(
	sessions db.SessionRepository,
	turnLogs db.TurnLogRepository,
	bank *QuestionBankService,
	retrieval ContextProvider,
	classify AnswerClassifier,
	agents AgentManager,
	completer llm.Completer,
) *SessionService {
	return &SessionService{
		sessions:  sessions,
		turnLogs:  turnLogs,
		bank:      bank,
		retrieval: retrieval,
		classify:  classify,
		agents:    agents,
		completer: completer,
		locks:     make(map[string]*sync.Mutex),
	}
}

// lockFor serializes turns and navigation per learner: two in-flight turns
// for the same session must never race to create duplicate handles or
// interleave with a teardown. Different learners proceed in parallel.
func (s *SessionService) lockFor(learnerID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[learnerID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[learnerID] = lock
	}
	return lock
}

// Onboard creates (or recreates) the learner's session with defaults and a
// freshly synthesized persona. Re-onboarding regenerates the persona and
// resets progress.
func (s *SessionService) Onboard(ctx context.Context, learnerID, level string) (*models.Session, error) {
	log.Printf("[INFO] Onboarding learner %s at level %s", learnerID, level)

	if learnerID == "" {
		return nil, fmt.Errorf("learner id is required")
	}
	if !models.ValidLevel(level) {
		return nil, fmt.Errorf("invalid level: %q", level)
	}

	lock := s.lockFor(learnerID)
	lock.Lock()
	defer lock.Unlock()

	session := &models.Session{
		LearnerID:            learnerID,
		Mode:                 models.ModeTutorAsks,
		Level:                level,
		Persona:              s.synthesizePersona(ctx, level),
		CurrentQuestionIndex: 0,
	}

	if err := s.sessions.CreateSession(session); err != nil {
		log.Printf("[ERROR] Failed to create session for learner %s: %v", learnerID, err)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Printf("[INFO] Onboarded learner %s", learnerID)
	return session, nil
}

func (s *SessionService) synthesizePersona(ctx context.Context, level string) string {
	ctx, cancel := context.WithTimeout(ctx, personaTimeout)
	defer cancel()

	userPrompt := fmt.Sprintf("Learner level: %s\nLevel traits: %s", level, levelTraits[level])

	var persona string
	err := withRetry(ctx, "persona synthesis", func() error {
		var err error
		persona, err = s.completer.Complete(ctx, personaSystemPrompt, userPrompt, personaMaxTokens)
		return err
	})
	if err != nil || persona == "" {
		log.Printf("[WARN] Persona synthesis failed for level %s, using level traits: %v", level, err)
		return levelTraits[level]
	}

	return persona
}

// GetSession returns the learner's session, lazily creating it with
// defaults when none exists yet.
func (s *SessionService) GetSession(learnerID string) (*models.Session, error) {
	lock := s.lockFor(learnerID)
	lock.Lock()
	defer lock.Unlock()

	return s.loadOrCreate(learnerID)
}

func (s *SessionService) loadOrCreate(learnerID string) (*models.Session, error) {
	session, err := s.sessions.GetSession(learnerID)
	if err == nil {
		return session, nil
	}
	if err != db.ErrSessionNotFound {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	log.Printf("[INFO] No session for learner %s, creating with defaults", learnerID)
	session = &models.Session{
		LearnerID:            learnerID,
		Mode:                 models.ModeTutorAsks,
		Level:                models.LevelBeginner,
		Persona:              levelTraits[models.LevelBeginner],
		CurrentQuestionIndex: 0,
	}
	if err := s.sessions.CreateSession(session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// HandleTurn runs one full turn of the tutoring pipeline and returns the
// agent's reply.
func (s *SessionService) HandleTurn(ctx context.Context, learnerID, utterance string) (string, error) {
	log.Printf("[INFO] Starting turn for learner %s", learnerID)

	if learnerID == "" {
		return "", fmt.Errorf("learner id is required")
	}

	lock := s.lockFor(learnerID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.loadOrCreate(learnerID)
	if err != nil {
		log.Printf("[ERROR] Failed to load session for learner %s: %v", learnerID, err)
		return "", err
	}

	var question, groundTruth string
	if session.Mode == models.ModeTutorAsks {
		entry := s.bank.Get(session.CurrentQuestionIndex)
		question = entry.Question
		groundTruth = entry.Answer
	}

	ragContext := s.retrieval.GetContext(ctx, utterance)

	annotation := models.TurnAnnotation{
		Mode:    session.Mode,
		UsedRAG: ragContext != "",
	}

	label := ""
	if session.Mode == models.ModeTutorAsks {
		idx := s.bank.ClampIndex(session.CurrentQuestionIndex)
		annotation.QuestionIndex = &idx
		annotation.Question = question

		result := s.classify.Classify(ctx, groundTruth, utterance)
		label = result.Label
		annotation.Correctness = result.Label
		annotation.CorrectnessReasoning = result.Reasoning
		annotation.CorrectnessFault = result.Fault
	}

	if _, err := s.agents.EnsureAgent(ctx, session); err != nil {
		log.Printf("[ERROR] Agent provisioning failed for learner %s: %v", learnerID, err)
		return "", fmt.Errorf("failed to provision agent: %w", err)
	}

	seed := agent.BuildThreadSeed(session.Mode, question, groundTruth)
	if _, err := s.agents.EnsureThread(ctx, session, seed); err != nil {
		log.Printf("[ERROR] Conversation provisioning failed for learner %s: %v", learnerID, err)
		return "", fmt.Errorf("failed to provision conversation: %w", err)
	}

	// Persist handles before invoking the agent so a failed run still
	// reuses them on the next attempt.
	if err := s.sessions.UpdateSession(session); err != nil {
		log.Printf("[ERROR] Failed to persist session handles for learner %s: %v", learnerID, err)
		return "", fmt.Errorf("failed to persist session: %w", err)
	}

	message := agent.BuildTurnPrompt(session.Mode, question, groundTruth, utterance, ragContext, label)

	reply, err := s.agents.PostAndAwait(ctx, session, message)
	if err != nil {
		log.Printf("[ERROR] Agent invocation failed for learner %s: %v", learnerID, err)
		return "", fmt.Errorf("agent invocation failed: %w", err)
	}

	turnLog := &models.TurnLog{
		LearnerID:  learnerID,
		Message:    utterance,
		BotReply:   reply,
		Context:    ragContext,
		Annotation: annotation,
	}
	if err := s.turnLogs.CreateTurnLog(turnLog); err != nil {
		// Audit-only data: a logging failure must not fail the turn.
		log.Printf("[ERROR] Failed to append turn log for learner %s: %v", learnerID, err)
	}

	log.Printf("[INFO] Completed turn for learner %s (mode %s)", learnerID, session.Mode)
	return reply, nil
}

// SwitchMode tears down the current agent and conversation, then switches
// the session's mode. Fresh handles are created by the next turn.
func (s *SessionService) SwitchMode(ctx context.Context, learnerID, newMode string) (*models.Session, error) {
	log.Printf("[INFO] Switching learner %s to mode %s", learnerID, newMode)

	if !models.ValidMode(newMode) {
		return nil, fmt.Errorf("invalid mode: %q", newMode)
	}

	lock := s.lockFor(learnerID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.loadOrCreate(learnerID)
	if err != nil {
		return nil, err
	}

	s.agents.Teardown(ctx, session)
	session.Mode = newMode

	if err := s.sessions.UpdateSession(session); err != nil {
		return nil, fmt.Errorf("failed to persist mode switch: %w", err)
	}

	return session, nil
}

// AdvanceQuestion tears down and moves to the next question, clamped to the
// last index. Advancing at the last question is an idempotent no-move.
func (s *SessionService) AdvanceQuestion(ctx context.Context, learnerID string) (*models.Session, error) {
	lock := s.lockFor(learnerID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.loadOrCreate(learnerID)
	if err != nil {
		return nil, err
	}

	s.agents.Teardown(ctx, session)
	session.CurrentQuestionIndex = s.bank.ClampIndex(session.CurrentQuestionIndex + 1)

	if err := s.sessions.UpdateSession(session); err != nil {
		return nil, fmt.Errorf("failed to persist question advance: %w", err)
	}

	log.Printf("[INFO] Learner %s advanced to question %d", learnerID, session.CurrentQuestionIndex)
	return session, nil
}

// JumpToQuestion tears down and jumps to idx. An out-of-range index is a
// no-op: the session is left untouched and no teardown happens.
func (s *SessionService) JumpToQuestion(ctx context.Context, learnerID string, idx int) (*models.Session, error) {
	lock := s.lockFor(learnerID)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.loadOrCreate(learnerID)
	if err != nil {
		return nil, err
	}

	if !s.bank.InRange(idx) {
		log.Printf("[WARN] Learner %s requested out-of-range question %d, ignoring", learnerID, idx)
		return session, nil
	}

	s.agents.Teardown(ctx, session)
	session.CurrentQuestionIndex = idx

	if err := s.sessions.UpdateSession(session); err != nil {
		return nil, fmt.Errorf("failed to persist question jump: %w", err)
	}

	log.Printf("[INFO] Learner %s jumped to question %d", learnerID, idx)
	return session, nil
}
