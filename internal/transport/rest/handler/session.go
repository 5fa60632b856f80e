package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"radreview/internal/service"
)

// SessionHandler handles session and metric endpoints
type SessionHandler struct {
	evalSvc *service.EvalService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(evalSvc *service.EvalService) *SessionHandler {
	return &SessionHandler{evalSvc: evalSvc}
}

// Start handles GET /v1/session. The doctorId and force query
// parameters mirror the page URL parameters the browser carries; force
// wipes all local scores and completion flags before the session starts.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	doctorID := r.URL.Query().Get("doctorId")
	force := r.URL.Query().Get("force") == "true"

	doctor, err := h.evalSvc.StartSession(r.Context(), doctorID, force)
	if errors.Is(err, service.ErrNoEvaluator) {
		writeError(w, http.StatusBadRequest, "doctorId query parameter is required")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	metrics := h.evalSvc.LoadMetrics(r.Context())

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"doctor":  doctor,
		"metrics": metrics,
		"reset":   force,
	})
}

// Metrics handles GET /v1/metrics
func (h *SessionHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.evalSvc.LoadMetrics(r.Context()))
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
