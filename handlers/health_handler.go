package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/routeworks/llm-router/models"
	"github.com/routeworks/llm-router/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string             `json:"status"`
	Mode      models.ServingMode `json:"mode"`
	Timestamp string             `json:"timestamp"`
	Checks    map[string]string  `json:"checks,omitempty"`
}

// ModeReader reports the current serving mode.
type ModeReader interface {
	CurrentMode() models.ServingMode
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db     *sql.DB
	modes  ModeReader
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *sql.DB, modes ModeReader, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		modes:  modes,
		logger: logger,
	}
}

// HandleHealth handles GET /health
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ok",
		Mode:      h.modes.CurrentMode(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteJSON(w, http.StatusOK, response)
}

// HandleReadiness handles GET /health/ready
// Readiness check - validates that all dependencies are available
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if err := h.checkDatabase(ctx); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		checks["database"] = "unhealthy"
		allHealthy = false
	} else {
		checks["database"] = "healthy"
	}

	status := "ok"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Mode:      h.modes.CurrentMode(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, response); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

// checkDatabase checks database connectivity
func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	if h.db == nil {
		return nil // No database configured
	}

	if err := h.db.PingContext(ctx); err != nil {
		return err
	}

	var result int
	if err := h.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return err
	}

	return nil
}
