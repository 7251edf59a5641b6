package models

import "time"

const (
	ModeTutorAsks   = "tutor_asks"
	ModeStudentAsks = "student_asks"
)

const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// Session tracks one learner's progress, conversation mode and the external
// agent/thread handles for the current mode. AgentID and ThreadID are always
// either both set or both nil; AgentMode records which mode the handles were
// created for.
type Session struct {
	LearnerID            string    `json:"learner_id" db:"learner_id"`
	Mode                 string    `json:"mode" db:"mode"`
	Level                string    `json:"level" db:"level"`
	Persona              string    `json:"persona" db:"persona"`
	CurrentQuestionIndex int       `json:"current_question_index" db:"current_question_index"`
	AgentID              *string   `json:"agent_id,omitempty" db:"agent_id"`
	ThreadID             *string   `json:"thread_id,omitempty" db:"thread_id"`
	AgentMode            string    `json:"agent_mode,omitempty" db:"agent_mode"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

func (s *Session) HasHandles() bool {
	return s.AgentID != nil && s.ThreadID != nil
}

func (s *Session) ClearHandles() {
	s.AgentID = nil
	s.ThreadID = nil
	s.AgentMode = ""
}

func ValidMode(mode string) bool {
	return mode == ModeTutorAsks || mode == ModeStudentAsks
}

func ValidLevel(level string) bool {
	return level == LevelBeginner || level == LevelIntermediate || level == LevelAdvanced
}

type RegisterRequest struct {
	LearnerID string `json:"learner_id"`
	Level     string `json:"level"`
}

type ChatRequest struct {
	LearnerID string `json:"learner_id"`
	Message   string `json:"message"`
}

type ChatResponse struct {
	BotMessage string `json:"bot_message"`
}

type SwitchModeRequest struct {
	Mode string `json:"mode"`
}

type JumpRequest struct {
	Index int `json:"index"`
}
