package model

// Evaluation is a persisted score as the record API reports it.
type Evaluation struct {
	ModelResponse string `json:"model_response"`
	Metric        string `json:"metric"`
	Score         int    `json:"score"`
	Evaluator     string `json:"evaluator,omitempty"`
}

// ScoreRecord is the atomic unit of local evaluation state: one metric's
// score for one model response. A nil Score means "unset".
type ScoreRecord struct {
	MetricID string `json:"metricId"`
	Score    *int   `json:"score"`
}

// ResponseScores holds the metric scores entered for one model response.
type ResponseScores struct {
	ResponseID string        `json:"responseId"`
	Scores     []ScoreRecord `json:"scores"`
}

// Clone returns a deep copy. Score pointers are duplicated so later
// edits to the copy never alias the original.
func (r ResponseScores) Clone() ResponseScores {
	out := ResponseScores{ResponseID: r.ResponseID, Scores: make([]ScoreRecord, len(r.Scores))}
	for i, rec := range r.Scores {
		out.Scores[i] = ScoreRecord{MetricID: rec.MetricID}
		if rec.Score != nil {
			v := *rec.Score
			out.Scores[i].Score = &v
		}
	}
	return out
}

// CloneResponseList deep-copies a full per-case score matrix entry.
func CloneResponseList(responses []ResponseScores) []ResponseScores {
	out := make([]ResponseScores, len(responses))
	for i, r := range responses {
		out[i] = r.Clone()
	}
	return out
}

// Evaluation statuses reported by POST /cases/evaluations/update.
const (
	EvalStatusCompleted  = "completed"
	EvalStatusInProgress = "in_progress"
)

// EvalProgress is the completed/total counter pair the record API
// returns with a persist response.
type EvalProgress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// UpdateEvaluationRequest is the body of POST /cases/evaluations/update.
type UpdateEvaluationRequest struct {
	CaseID      string `json:"caseId"`
	ResponseID  string `json:"responseId"`
	MetricID    string `json:"metricId"`
	EvaluatorID string `json:"evaluatorId"`
	Score       int    `json:"score"`
}

// UpdateEvaluationResult is the record API's response to a persist call.
type UpdateEvaluationResult struct {
	Status   string        `json:"status"`
	Progress *EvalProgress `json:"progress,omitempty"`
	Message  string        `json:"message,omitempty"`
}

// SubmissionOutcome summarizes a full-case submission round for the UI.
type SubmissionOutcome struct {
	Done      bool   `json:"done"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}
