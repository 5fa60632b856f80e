package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"radreview/internal/service"
)

// CaseHandler handles case review endpoints
type CaseHandler struct {
	evalSvc *service.EvalService
}

// NewCaseHandler creates a new case handler
func NewCaseHandler(evalSvc *service.EvalService) *CaseHandler {
	return &CaseHandler{evalSvc: evalSvc}
}

// Get handles GET /v1/cases/{caseId}. It hydrates the local score
// matrix from the record API before returning the case payload, the
// current matrix and the completion flag in one response.
func (h *CaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["caseId"]

	h.evalSvc.LoadMetrics(r.Context())

	if err := h.evalSvc.HydrateCase(r.Context(), caseID); err != nil {
		if errors.Is(err, service.ErrMetricsNotReady) {
			writeError(w, http.StatusServiceUnavailable, "metric set not loaded yet")
			return
		}
		writeError(w, http.StatusBadGateway, "failed to load case")
		return
	}

	cs, err := h.evalSvc.GetCase(r.Context(), caseID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to load case")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"case":    cs,
		"state":   h.evalSvc.State(caseID),
		"metrics": h.evalSvc.Metrics(),
	})
}

// State handles GET /v1/cases/{caseId}/state
func (h *CaseHandler) State(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["caseId"]
	writeJSON(w, http.StatusOK, h.evalSvc.State(caseID))
}

// ScoreRequest is the request body for a single score edit
type ScoreRequest struct {
	ResponseID string `json:"responseId"`
	MetricID   string `json:"metricId"`
	Score      *int   `json:"score"`
}

// Score handles PUT /v1/cases/{caseId}/scores. Out-of-range values are
// dropped, not errored: the edit protocol discards them silently.
func (h *CaseHandler) Score(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["caseId"]

	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ResponseID == "" || req.MetricID == "" {
		writeError(w, http.StatusBadRequest, "responseId and metricId are required")
		return
	}

	applied := h.evalSvc.RecordScore(caseID, req.ResponseID, req.MetricID, req.Score)
	status := "recorded"
	if !applied {
		status = "ignored"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// Submit handles POST /v1/cases/{caseId}/submit
func (h *CaseHandler) Submit(w http.ResponseWriter, r *http.Request) {
	caseID := mux.Vars(r)["caseId"]

	outcome, err := h.evalSvc.SubmitCase(r.Context(), caseID)
	if errors.Is(err, service.ErrNoEvaluator) {
		writeError(w, http.StatusBadRequest, "no evaluator in session, start a session first")
		return
	}
	if errors.Is(err, service.ErrCaseNotScored) {
		writeError(w, http.StatusBadRequest, "case has no recorded scores")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// DoctorCases handles GET /v1/doctors/{doctorId}/cases
func (h *CaseHandler) DoctorCases(w http.ResponseWriter, r *http.Request) {
	doctorID := mux.Vars(r)["doctorId"]

	cases, err := h.evalSvc.DoctorCases(r.Context(), doctorID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to load cases")
		return
	}
	writeJSON(w, http.StatusOK, cases)
}
