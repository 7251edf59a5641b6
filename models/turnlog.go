package models

import "time"

// TurnAnnotation is the structured audit record attached to every turn.
// Correctness fields are only present for tutor-mode turns.
type TurnAnnotation struct {
	Mode                 string `json:"mode"`
	QuestionIndex        *int   `json:"question_index,omitempty"`
	Question             string `json:"question,omitempty"`
	Correctness          string `json:"correctness,omitempty"`
	CorrectnessReasoning string `json:"correctness_reasoning,omitempty"`
	CorrectnessFault     bool   `json:"correctness_fault,omitempty"`
	UsedRAG              bool   `json:"used_rag"`
}

// TurnLog is append-only and used for audit/analytics only; it is never read
// back into the turn pipeline.
type TurnLog struct {
	ID         int            `json:"id" db:"id"`
	LearnerID  string         `json:"learner_id" db:"learner_id"`
	Message    string         `json:"message" db:"message"`
	BotReply   string         `json:"bot_reply" db:"bot_reply"`
	Context    string         `json:"context" db:"context"`
	Annotation TurnAnnotation `json:"annotation" db:"annotation"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}
