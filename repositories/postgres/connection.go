package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/routeworks/llm-router/config"
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	dsn := cfg.DSN()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// InitSchema initializes the database schema
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
		-- Single routed completion records
		CREATE TABLE IF NOT EXISTS requests (
			id UUID PRIMARY KEY,
			prompt TEXT NOT NULL,
			task_type VARCHAR(32) NOT NULL,
			complexity DOUBLE PRECISION NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			model VARCHAR(64) NOT NULL,
			was_routed BOOLEAN NOT NULL DEFAULT TRUE,
			response_text TEXT,
			latency_ms INTEGER,
			tokens_used INTEGER,
			cost_cents DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_requests_created_at ON requests(created_at);
		CREATE INDEX IF NOT EXISTS idx_requests_model ON requests(model);
		CREATE INDEX IF NOT EXISTS idx_requests_task_type ON requests(task_type);

		-- Multi-backend comparison sessions
		CREATE TABLE IF NOT EXISTS comparison_sessions (
			id UUID PRIMARY KEY,
			prompt TEXT NOT NULL,
			task_type VARCHAR(32) NOT NULL,
			complexity DOUBLE PRECISION NOT NULL,
			models TEXT[] NOT NULL,
			winner_model VARCHAR(64),
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_comparison_sessions_created_at ON comparison_sessions(created_at);

		-- Per-backend comparison outcomes
		CREATE TABLE IF NOT EXISTS comparison_results (
			id UUID PRIMARY KEY,
			session_id UUID NOT NULL REFERENCES comparison_sessions(id),
			model VARCHAR(64) NOT NULL,
			response_text TEXT,
			latency_ms INTEGER,
			tokens_used INTEGER,
			cost_cents DOUBLE PRECISION,
			error BOOLEAN NOT NULL DEFAULT FALSE
		);

		CREATE INDEX IF NOT EXISTS idx_comparison_results_session_id ON comparison_results(session_id);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized")
	return nil
}
