package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"canvasflow/application/ports"
	"canvasflow/application/services"
	"canvasflow/pkg/common"
	apperrors "canvasflow/pkg/errors"
	"canvasflow/pkg/utils"
)

// CompletionHandler exposes the request orchestrator over HTTP
type CompletionHandler struct {
	orchestrator *services.Orchestrator
	mutator      *services.NodeMutator
	workspace    ports.Workspace
	logger       *zap.Logger
}

// NewCompletionHandler creates a new completion handler
func NewCompletionHandler(
	orchestrator *services.Orchestrator,
	mutator *services.NodeMutator,
	workspace ports.Workspace,
	logger *zap.Logger,
) *CompletionHandler {
	return &CompletionHandler{
		orchestrator: orchestrator,
		mutator:      mutator,
		workspace:    workspace,
		logger:       logger,
	}
}

// SubmitCompletionRequest represents the request body for a new completion
type SubmitCompletionRequest struct {
	NodeID         string `json:"node_id" validate:"required"`
	Prompt         string `json:"prompt" validate:"required"`
	IncludeRelated bool   `json:"include_related,omitempty"`
}

// SubmitCompletionResponse represents the accepted-request response
type SubmitCompletionResponse struct {
	RequestID string `json:"request_id"`
	NodeID    string `json:"node_id"`
}

// Submit handles POST /completions
func (h *CompletionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body: "+err.Error())
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "Validation error: "+err.Error())
		return
	}

	graph, ok := h.mutator.ActiveGraph(h.workspace)
	if !ok {
		common.RespondAppError(w, apperrors.NewGraphUnavailableError())
		return
	}

	trigger, ok := graph.GetNode(req.NodeID)
	if !ok {
		common.RespondError(w, http.StatusNotFound, "NODE_NOT_FOUND", "Node not found: "+req.NodeID)
		return
	}

	requestID, err := h.orchestrator.Submit(r.Context(), graph, trigger, req.Prompt, req.IncludeRelated)
	if err != nil {
		h.logger.Warn("Completion submit rejected",
			zap.String("nodeID", req.NodeID),
			zap.Error(err),
		)
		common.RespondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusAccepted, SubmitCompletionResponse{
		RequestID: requestID,
		NodeID:    req.NodeID,
	})
}

// Cancel handles DELETE /completions/{requestID}
func (h *CompletionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")
	if requestID == "" {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "Missing request id")
		return
	}

	if !h.orchestrator.Cancel(requestID) {
		common.RespondError(w, http.StatusNotFound, "REQUEST_NOT_FOUND", "No in-flight request with id "+requestID)
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]string{
		"request_id": requestID,
		"status":     "cancelling",
	})
}

// List handles GET /completions
func (h *CompletionHandler) List(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"requests": h.orchestrator.InFlight(),
	})
}

// Cleanup handles DELETE /completions, cancelling everything in flight
func (h *CompletionHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	h.orchestrator.Cleanup()
	common.RespondJSON(w, http.StatusOK, map[string]string{
		"status": "cleaned",
	})
}
