package handlers

import (
	"net/http"
	"strconv"

	"github.com/routeworks/llm-router/services/analytics"
	"github.com/routeworks/llm-router/utils"
	"go.uber.org/zap"
)

// AnalyticsHandler serves the dashboard aggregates.
type AnalyticsHandler struct {
	analytics *analytics.Service
	logger    *zap.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(svc *analytics.Service, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: svc, logger: logger}
}

// HandleSummary handles GET /api/analytics/summary
func (h *AnalyticsHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.analytics.Summary(r.Context())
	if err != nil {
		h.fail(w, "summary", err)
		return
	}
	_ = utils.WriteJSON(w, http.StatusOK, summary)
}

// HandleTimeseries handles GET /api/analytics/timeseries?days=7
func (h *AnalyticsHandler) HandleTimeseries(w http.ResponseWriter, r *http.Request) {
	points, err := h.analytics.Timeseries(r.Context(), queryInt(r, "days", 7))
	if err != nil {
		h.fail(w, "timeseries", err)
		return
	}
	_ = utils.WriteJSON(w, http.StatusOK, points)
}

// HandleModelDistribution handles GET /api/analytics/model-distribution
func (h *AnalyticsHandler) HandleModelDistribution(w http.ResponseWriter, r *http.Request) {
	usage, err := h.analytics.ModelDistribution(r.Context())
	if err != nil {
		h.fail(w, "model distribution", err)
		return
	}
	_ = utils.WriteJSON(w, http.StatusOK, usage)
}

// HandleCostComparison handles GET /api/analytics/cost-comparison
func (h *AnalyticsHandler) HandleCostComparison(w http.ResponseWriter, r *http.Request) {
	out, err := h.analytics.CostComparison(r.Context())
	if err != nil {
		h.fail(w, "cost comparison", err)
		return
	}
	_ = utils.WriteJSON(w, http.StatusOK, out)
}

// HandleRecent handles GET /api/analytics/recent?limit=20
func (h *AnalyticsHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	recent, err := h.analytics.Recent(r.Context(), queryInt(r, "limit", 20))
	if err != nil {
		h.fail(w, "recent requests", err)
		return
	}
	_ = utils.WriteJSON(w, http.StatusOK, recent)
}

// HandleComparisonHistory handles GET /api/compare/history?limit=20
func (h *AnalyticsHandler) HandleComparisonHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.analytics.ComparisonHistory(r.Context(), queryInt(r, "limit", 20))
	if err != nil {
		h.fail(w, "comparison history", err)
		return
	}
	_ = utils.WriteJSON(w, http.StatusOK, entries)
}

func (h *AnalyticsHandler) fail(w http.ResponseWriter, what string, err error) {
	h.logger.Error("analytics query failed", zap.String("query", what), zap.Error(err))
	_ = utils.WriteInternalServerError(w, "")
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
