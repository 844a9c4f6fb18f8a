// Package repositories defines the persistence contracts. The store is
// append-only from the core's perspective; the single mutation is attaching a
// winner vote to a comparison session.
package repositories

import (
	"context"
	"time"

	"github.com/routeworks/llm-router/models"
)

// RequestRepository persists single-request completion records and answers
// the spend ledger query consumed by the admission service.
type RequestRepository interface {
	// Insert appends one completed request record.
	Insert(ctx context.Context, record *models.RequestRecord) error

	// SpendSince returns the cumulative cost in cents recorded at or after
	// the given instant.
	SpendSince(ctx context.Context, since time.Time) (float64, error)
}

// ComparisonRepository persists comparison sessions and their per-model
// results.
type ComparisonRepository interface {
	// InsertSession appends a new comparison session.
	InsertSession(ctx context.Context, session *models.ComparisonSession) error

	// InsertResult appends one backend's outcome for a session.
	InsertResult(ctx context.Context, result *models.ComparisonResult) error

	// SetWinner attaches the voted winner to a session.
	SetWinner(ctx context.Context, sessionID string, winner models.ModelName) error

	// SessionExists reports whether a session ID is known.
	SessionExists(ctx context.Context, sessionID string) (bool, error)
}
