package handler

import (
	"errors"
	"net/http"

	"fastflix/internal/httputil"
	"fastflix/internal/model"
	"fastflix/internal/service"
	"fastflix/internal/transport/http/middleware"
)

type TrialHandler struct {
	entitlementService *service.EntitlementService
}

func NewTrialHandler(entitlementService *service.EntitlementService) *TrialHandler {
	return &TrialHandler{entitlementService: entitlementService}
}

// Start begins the user's one free trial
// POST /api/trial
func (h *TrialHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	status, err := h.entitlementService.StartTrial(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrTrialAlreadyUsed) {
			httputil.WriteConflictWithCode(w, model.CodeTrialAlreadyUsed, "Free trial has already been used")
			return
		}
		httputil.WriteInternalError(w, "Failed to start trial")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.StartTrialResponse{Success: true, Trial: *status})
}

// Status returns the trial block
// GET /api/trial
func (h *TrialHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	status, err := h.entitlementService.TrialStatus(r.Context(), userID)
	if err != nil {
		httputil.WriteInternalError(w, "Failed to get trial")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"trial": status})
}
