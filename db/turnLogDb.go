package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"tutorbot/models"

	_ "github.com/lib/pq"
)

type TurnLogRepository interface {
	CreateTurnLog(turnLog *models.TurnLog) error
	GetTurnLogsByLearner(learnerID string) ([]*models.TurnLog, error)
}

type PostgresTurnLogRepository struct {
	db *sql.DB
}

func NewPostgresTurnLogRepository(databaseURL string) (*PostgresTurnLogRepository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresTurnLogRepository{db: db}, nil
}

func (r *PostgresTurnLogRepository) CreateTurnLog(turnLog *models.TurnLog) error {
	annotationJSON, err := json.Marshal(turnLog.Annotation)
	if err != nil {
		return fmt.Errorf("failed to marshal annotation: %w", err)
	}

	query := `
		INSERT INTO tutorbot.turn_logs (learner_id, message, bot_reply, context, annotation)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	row := r.db.QueryRow(query, turnLog.LearnerID, turnLog.Message,
		turnLog.BotReply, turnLog.Context, annotationJSON)

	if err := row.Scan(&turnLog.ID, &turnLog.CreatedAt); err != nil {
		return fmt.Errorf("failed to create turn log: %w", err)
	}

	return nil
}

func (r *PostgresTurnLogRepository) GetTurnLogsByLearner(learnerID string) ([]*models.TurnLog, error) {
	query := `
		SELECT id, learner_id, message, bot_reply, context, annotation, created_at
		FROM tutorbot.turn_logs
		WHERE learner_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.Query(query, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turn logs: %w", err)
	}
	defer rows.Close()

	turnLogs := make([]*models.TurnLog, 0)
	for rows.Next() {
		turnLog := &models.TurnLog{}
		var annotationJSON []byte
		err := rows.Scan(&turnLog.ID, &turnLog.LearnerID, &turnLog.Message,
			&turnLog.BotReply, &turnLog.Context, &annotationJSON, &turnLog.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan turn log: %w", err)
		}

		if err := json.Unmarshal(annotationJSON, &turnLog.Annotation); err != nil {
			return nil, fmt.Errorf("failed to unmarshal annotation: %w", err)
		}

		turnLogs = append(turnLogs, turnLog)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over turn logs: %w", err)
	}

	return turnLogs, nil
}

func (r *PostgresTurnLogRepository) Close() error {
	return r.db.Close()
}
