package handlers

import (
	"net/http"

	"github.com/routeworks/llm-router/services/admission"
	"github.com/routeworks/llm-router/utils"
	"go.uber.org/zap"
)

// ModeHandler exposes the current serving mode and budget position.
type ModeHandler struct {
	admission *admission.Service
	logger    *zap.Logger
}

// NewModeHandler creates a new ModeHandler
func NewModeHandler(svc *admission.Service, logger *zap.Logger) *ModeHandler {
	return &ModeHandler{admission: svc, logger: logger}
}

// HandleMode handles GET /api/mode
func (h *ModeHandler) HandleMode(w http.ResponseWriter, r *http.Request) {
	info, err := h.admission.Snapshot(r.Context())
	if err != nil {
		h.logger.Error("failed to read mode snapshot", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
		return
	}
	_ = utils.WriteJSON(w, http.StatusOK, info)
}
