package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/routeworks/llm-router/models"
	"github.com/routeworks/llm-router/services/comparison"
	"github.com/routeworks/llm-router/utils"
	"go.uber.org/zap"
)

// ComparisonHandler serves multi-backend comparison runs and winner votes.
type ComparisonHandler struct {
	comparison *comparison.Service
	logger     *zap.Logger
}

// NewComparisonHandler creates a new ComparisonHandler
func NewComparisonHandler(svc *comparison.Service, logger *zap.Logger) *ComparisonHandler {
	return &ComparisonHandler{comparison: svc, logger: logger}
}

func validComparisonModels(w http.ResponseWriter, req *models.ComparisonRequest) bool {
	for _, m := range req.Models {
		if !m.IsValid() {
			_ = utils.WriteBadRequest(w, "unknown model", map[string]interface{}{
				"model": string(m),
			})
			return false
		}
	}
	return true
}

// HandleCompare handles POST /api/compare. Runs all backends to completion
// and returns the buffered results.
func (h *ComparisonHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	var req models.ComparisonRequest
	if !decodeAndValidate(w, r, &req) || !validComparisonModels(w, &req) {
		return
	}

	outcome, err := h.comparison.CompareAndWait(r.Context(), &req)
	if err != nil {
		h.logger.Error("comparison failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Comparison failed")
		return
	}
	_ = utils.WriteJSON(w, http.StatusOK, outcome)
}

// startEvent opens a comparison stream.
type startEvent struct {
	SessionID  string             `json:"session_id"`
	TaskType   models.TaskType    `json:"task_type"`
	Complexity float64            `json:"complexity"`
	Models     []models.ModelName `json:"models"`
}

// comparisonChunkEvent carries one backend's incremental output.
type comparisonChunkEvent struct {
	Model   models.ModelName `json:"model"`
	Content string           `json:"content"`
}

// modelDoneEvent reports one backend's final outcome.
type modelDoneEvent struct {
	Model        models.ModelName `json:"model"`
	ResponseText string           `json:"response_text"`
	LatencyMs    int              `json:"latency_ms"`
	TokensUsed   int              `json:"tokens_used"`
	CostCents    float64          `json:"cost_cents"`
	Error        bool             `json:"error,omitempty"`
}

type completeEvent struct {
	SessionID string `json:"session_id"`
}

// HandleCompareStream handles POST /api/compare/stream. Chunks from all
// backends interleave in arrival order; each backend ends with a model_done
// event and the session with a single complete event.
func (h *ComparisonHandler) HandleCompareStream(w http.ResponseWriter, r *http.Request) {
	var req models.ComparisonRequest
	if !decodeAndValidate(w, r, &req) || !validComparisonModels(w, &req) {
		return
	}

	sse, ok := newSSEWriter(w)
	if !ok {
		_ = utils.WriteInternalServerError(w, "Streaming not supported")
		return
	}

	handle, err := h.comparison.Compare(r.Context(), &req)
	if err != nil {
		h.logger.Error("failed to start comparison", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Comparison failed")
		return
	}

	for ev := range handle.Events {
		var writeErr error
		switch ev.Type {
		case comparison.EventStart:
			writeErr = sse.WriteEvent("start", startEvent{
				SessionID:  handle.Session.ID,
				TaskType:   handle.Session.TaskType,
				Complexity: handle.Session.Complexity,
				Models:     handle.Session.Models,
			})
		case comparison.EventChunk:
			writeErr = sse.WriteEvent("chunk", comparisonChunkEvent{
				Model:   ev.Model,
				Content: ev.Content,
			})
		case comparison.EventModelDone:
			writeErr = sse.WriteEvent("model_done", modelDoneEvent{
				Model:        ev.Result.Model,
				ResponseText: ev.Result.ResponseText,
				LatencyMs:    ev.Result.LatencyMs,
				TokensUsed:   ev.Result.TokensUsed,
				CostCents:    ev.Result.CostCents,
				Error:        ev.Result.Error,
			})
		case comparison.EventComplete:
			writeErr = sse.WriteEvent("complete", completeEvent{SessionID: handle.Session.ID})
		}
		if writeErr != nil {
			return
		}
	}
}

// HandleVote handles POST /api/compare/{sessionID}/vote.
func (h *ComparisonHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req models.VoteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !req.WinnerModel.IsValid() {
		_ = utils.WriteBadRequest(w, "unknown model", map[string]interface{}{
			"winner_model": string(req.WinnerModel),
		})
		return
	}

	if err := h.comparison.RecordVote(r.Context(), sessionID, req.WinnerModel); err != nil {
		if errors.Is(err, comparison.ErrSessionNotFound) {
			_ = utils.WriteNotFound(w, "Comparison session not found")
			return
		}
		h.logger.Error("failed to record vote", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status":     "ok",
		"session_id": sessionID,
		"winner":     string(req.WinnerModel),
	})
}
