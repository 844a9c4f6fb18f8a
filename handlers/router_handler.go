package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/routeworks/llm-router/models"
	"github.com/routeworks/llm-router/services/dispatch"
	"github.com/routeworks/llm-router/utils"
	"go.uber.org/zap"
)

// RouterHandler serves classification and routed completions.
type RouterHandler struct {
	dispatch *dispatch.Service
	logger   *zap.Logger
}

// NewRouterHandler creates a new RouterHandler
func NewRouterHandler(svc *dispatch.Service, logger *zap.Logger) *RouterHandler {
	return &RouterHandler{dispatch: svc, logger: logger}
}

// HandleClassify handles POST /api/classify. Classification only, nothing is
// dispatched or persisted.
func (h *RouterHandler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	var req models.ClassifyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, h.dispatch.Classify(req.Prompt))
}

// HandleComplete handles POST /api/complete. Streaming is the default; the
// caller opts out with "stream": false.
func (h *RouterHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	var req models.CompletionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.Model != nil && !req.Model.IsValid() {
		_ = utils.WriteBadRequest(w, "unknown model", map[string]interface{}{
			"model": string(*req.Model),
		})
		return
	}

	if req.Streaming() {
		h.streamCompletion(w, r, &req)
		return
	}

	resp, err := h.dispatch.ServeOne(r.Context(), &req)
	if err != nil {
		h.logger.Error("completion failed", zap.Error(err))
		_ = utils.WriteServiceUnavailable(w, "Model unavailable")
		return
	}
	_ = utils.WriteJSON(w, http.StatusOK, resp)
}

// doneEvent is the terminal SSE payload of a single completion stream.
type doneEvent struct {
	LatencyMs  int     `json:"latency_ms"`
	TokensUsed int     `json:"tokens_used"`
	CostCents  float64 `json:"cost_cents"`
}

type chunkEvent struct {
	Content string `json:"content"`
}

func (h *RouterHandler) streamCompletion(w http.ResponseWriter, r *http.Request, req *models.CompletionRequest) {
	sse, ok := newSSEWriter(w)
	if !ok {
		_ = utils.WriteInternalServerError(w, "Streaming not supported")
		return
	}

	handle, err := h.dispatch.ServeStream(r.Context(), req)
	if err != nil {
		h.logger.Error("failed to start completion stream", zap.Error(err))
		_ = utils.WriteServiceUnavailable(w, "Model unavailable")
		return
	}

	if err := sse.WriteEvent("metadata", handle.Metadata); err != nil {
		return
	}

	for ev := range handle.Events {
		switch {
		case ev.Err != nil:
			h.logger.Error("completion stream failed",
				zap.String("request_id", handle.Metadata.RequestID),
				zap.Error(ev.Err))
			_ = sse.WriteEvent("error", map[string]string{"message": "Model unavailable"})
			return
		case ev.Done != nil:
			_ = sse.WriteEvent("done", doneEvent{
				LatencyMs:  ev.Done.LatencyMs,
				TokensUsed: ev.Done.TokensUsed,
				CostCents:  ev.Done.CostCents,
			})
		default:
			if err := sse.WriteEvent("chunk", chunkEvent{Content: ev.Content}); err != nil {
				return
			}
		}
	}
}

// decodeAndValidate decodes the JSON body into dst and runs struct validation,
// writing the 400 response itself on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		_ = utils.WriteBadRequest(w, "invalid JSON body", nil)
		return false
	}
	if err := utils.ValidateStruct(dst); err != nil {
		details := make(map[string]interface{})
		for field, msg := range utils.GetValidationFields(err) {
			details[field] = msg
		}
		_ = utils.WriteBadRequest(w, err.Error(), details)
		return false
	}
	return true
}
