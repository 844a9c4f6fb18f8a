package app

import (
	"context"
	"fmt"

	"github.com/routeworks/llm-router/config"
	"github.com/routeworks/llm-router/middleware"
	"github.com/routeworks/llm-router/repositories"
	"github.com/routeworks/llm-router/repositories/postgres"
	"github.com/routeworks/llm-router/services/admission"
	"github.com/routeworks/llm-router/services/analytics"
	"github.com/routeworks/llm-router/services/comparison"
	"github.com/routeworks/llm-router/services/dispatch"
	"github.com/routeworks/llm-router/services/gateway"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repositories
	Requests    repositories.RequestRepository
	Comparisons repositories.ComparisonRepository

	// Services
	Admission  *admission.Service
	Dispatch   *dispatch.Service
	Comparison *comparison.Service
	Analytics  *analytics.Service

	// Transport
	RateLimiter *middleware.RateLimiter
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initServices(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection and schema
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	db, err := postgres.NewDB(cfg.Database, d.Logger)
	if err != nil {
		return err
	}

	if err := db.InitSchema(ctx); err != nil {
		db.Close()
		return err
	}

	d.DB = db
	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	d.Requests = postgres.NewRequestRepository(d.DB.DB)
	d.Comparisons = postgres.NewComparisonRepository(d.DB.DB)
	d.Logger.Info("repositories initialized")
}

// initServices wires the gateways and the core services
func (d *Dependencies) initServices(cfg *config.Config) {
	mock := gateway.NewMock(d.Logger)

	var live gateway.Completer
	if cfg.LiveCredentialConfigured() {
		live = gateway.NewOpenRouter(cfg.Gateway, d.Logger)
		d.Logger.Info("live gateway configured",
			zap.String("base_url", cfg.Gateway.BaseURL))
	} else {
		d.Logger.Warn("no gateway credential configured, serving degraded mode only")
	}

	d.Admission = admission.New(
		cfg.Budget.DailySpendCapCents,
		cfg.LiveCredentialConfigured(),
		cfg.RateLimit.FullMax,
		d.Requests,
		d.Logger,
	)

	d.Dispatch = dispatch.New(d.Admission, live, mock, d.Requests, d.Logger)
	d.Comparison = comparison.New(d.Admission, live, mock, d.Comparisons, d.Logger)
	d.Analytics = analytics.New(d.DB.DB, d.Logger)
	d.RateLimiter = middleware.NewRateLimiter(d.Admission, cfg.RateLimit, d.Logger)

	d.Logger.Info("services initialized")
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
