package db

import (
	"database/sql"
	"fmt"

	"tutorbot/models"

	_ "github.com/lib/pq"
)

type SessionRepository interface {
	GetSession(learnerID string) (*models.Session, error)
	CreateSession(session *models.Session) error
	UpdateSession(session *models.Session) error
}

// ErrSessionNotFound lets callers distinguish "no row yet" from a real
// database failure so the orchestrator can lazily create the session.
var ErrSessionNotFound = fmt.Errorf("session not found")

type PostgresSessionRepository struct {
	db *sql.DB
}

func NewPostgresSessionRepository(databaseURL string) (*PostgresSessionRepository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresSessionRepository{db: db}, nil
}

func (r *PostgresSessionRepository) GetSession(learnerID string) (*models.Session, error) {
	query := `
		SELECT learner_id, mode, level, persona, current_question_index,
		       agent_id, thread_id, agent_mode, created_at, updated_at
		FROM tutorbot.sessions
		WHERE learner_id = $1`

	session := &models.Session{}
	var agentMode sql.NullString
	row := r.db.QueryRow(query, learnerID)

	err := row.Scan(&session.LearnerID, &session.Mode, &session.Level, &session.Persona,
		&session.CurrentQuestionIndex, &session.AgentID, &session.ThreadID,
		&agentMode, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session.AgentMode = agentMode.String

	return session, nil
}

func (r *PostgresSessionRepository) CreateSession(session *models.Session) error {
	query := `
		INSERT INTO tutorbot.sessions (learner_id, mode, level, persona, current_question_index)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (learner_id) DO UPDATE
		SET mode = EXCLUDED.mode, level = EXCLUDED.level, persona = EXCLUDED.persona,
		    current_question_index = EXCLUDED.current_question_index,
		    agent_id = NULL, thread_id = NULL, agent_mode = NULL, updated_at = NOW()
		RETURNING created_at, updated_at`

	row := r.db.QueryRow(query, session.LearnerID, session.Mode, session.Level,
		session.Persona, session.CurrentQuestionIndex)

	if err := row.Scan(&session.CreatedAt, &session.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (r *PostgresSessionRepository) UpdateSession(session *models.Session) error {
	query := `
		UPDATE tutorbot.sessions
		SET mode = $2, level = $3, persona = $4, current_question_index = $5,
		    agent_id = $6, thread_id = $7, agent_mode = NULLIF($8, ''), updated_at = NOW()
		WHERE learner_id = $1`

	result, err := r.db.Exec(query, session.LearnerID, session.Mode, session.Level,
		session.Persona, session.CurrentQuestionIndex, session.AgentID,
		session.ThreadID, session.AgentMode)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("session for learner %s not found", session.LearnerID)
	}

	return nil
}

func (r *PostgresSessionRepository) Close() error {
	return r.db.Close()
}
