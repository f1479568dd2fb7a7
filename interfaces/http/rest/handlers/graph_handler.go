package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"canvasflow/application/ports"
	"canvasflow/application/services"
	"canvasflow/pkg/common"
	apperrors "canvasflow/pkg/errors"
)

// GraphHandler serves read access to the active canvas document
type GraphHandler struct {
	mutator   *services.NodeMutator
	workspace ports.Workspace
	logger    *zap.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(mutator *services.NodeMutator, workspace ports.Workspace, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{
		mutator:   mutator,
		workspace: workspace,
		logger:    logger,
	}
}

// GetGraph handles GET /graph, returning the raw canvas document
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	graph, ok := h.mutator.ActiveGraph(h.workspace)
	if !ok {
		common.RespondAppError(w, apperrors.NewGraphUnavailableError())
		return
	}

	data, err := graph.GetData()
	if err != nil {
		h.logger.Error("Failed to export graph data", zap.Error(err))
		common.RespondError(w, http.StatusInternalServerError, "EXPORT_FAILED", "Failed to export graph data")
		return
	}

	common.RespondJSON(w, http.StatusOK, data)
}
