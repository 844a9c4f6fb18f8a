package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/routeworks/llm-router/models"
	"github.com/routeworks/llm-router/repositories"
)

// RequestRepository implements repositories.RequestRepository using PostgreSQL
type RequestRepository struct {
	db *sql.DB
}

// NewRequestRepository creates a new PostgreSQL request repository
func NewRequestRepository(db *sql.DB) repositories.RequestRepository {
	return &RequestRepository{db: db}
}

// Insert appends one completed request record
func (r *RequestRepository) Insert(ctx context.Context, record *models.RequestRecord) error {
	query := `
		INSERT INTO requests (
			id, prompt, task_type, complexity, confidence, model, was_routed,
			response_text, latency_ms, tokens_used, cost_cents, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.Prompt,
		record.TaskType,
		record.Complexity,
		record.Confidence,
		record.Model,
		record.WasRouted,
		record.ResponseText,
		record.LatencyMs,
		record.TokensUsed,
		record.CostCents,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert request record: %w", err)
	}

	return nil
}

// SpendSince returns the cumulative cost in cents recorded at or after since.
// Missing rows sum to zero, not an error.
func (r *RequestRepository) SpendSince(ctx context.Context, since time.Time) (float64, error) {
	query := `SELECT COALESCE(SUM(cost_cents), 0) FROM requests WHERE created_at >= $1`

	var total float64
	if err := r.db.QueryRowContext(ctx, query, since).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to query spend: %w", err)
	}

	return total, nil
}
