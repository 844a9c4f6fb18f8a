package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/routeworks/llm-router/models"
	"github.com/routeworks/llm-router/repositories"
)

// ComparisonRepository implements repositories.ComparisonRepository using PostgreSQL
type ComparisonRepository struct {
	db *sql.DB
}

// NewComparisonRepository creates a new PostgreSQL comparison repository
func NewComparisonRepository(db *sql.DB) repositories.ComparisonRepository {
	return &ComparisonRepository{db: db}
}

// InsertSession appends a new comparison session
func (r *ComparisonRepository) InsertSession(ctx context.Context, session *models.ComparisonSession) error {
	query := `
		INSERT INTO comparison_sessions (id, prompt, task_type, complexity, models, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	names := make([]string, len(session.Models))
	for i, m := range session.Models {
		names[i] = string(m)
	}

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.Prompt,
		session.TaskType,
		session.Complexity,
		pq.Array(names),
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert comparison session: %w", err)
	}

	return nil
}

// InsertResult appends one backend's outcome for a session
func (r *ComparisonRepository) InsertResult(ctx context.Context, result *models.ComparisonResult) error {
	query := `
		INSERT INTO comparison_results (
			id, session_id, model, response_text, latency_ms, tokens_used, cost_cents, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		result.ID,
		result.SessionID,
		result.Model,
		result.ResponseText,
		result.LatencyMs,
		result.TokensUsed,
		result.CostCents,
		result.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to insert comparison result: %w", err)
	}

	return nil
}

// SetWinner attaches the voted winner to a session
func (r *ComparisonRepository) SetWinner(ctx context.Context, sessionID string, winner models.ModelName) error {
	query := `UPDATE comparison_sessions SET winner_model = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, winner, sessionID)
	if err != nil {
		return fmt.Errorf("failed to set winner: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// SessionExists reports whether a session ID is known
func (r *ComparisonRepository) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM comparison_sessions WHERE id = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, sessionID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check session existence: %w", err)
	}

	return exists, nil
}
