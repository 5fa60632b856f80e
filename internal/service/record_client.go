package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"radreview/internal/model"
)

// RecordClient wraps the record API, the system of record for cases,
// metrics and evaluations. Requests share one fixed timeout; a timeout
// surfaces as a generic failure and is not retried.
type RecordClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewRecordClient creates a new record API client.
func NewRecordClient(baseURL string, timeout time.Duration) *RecordClient {
	return &RecordClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// --- wire shapes ---

type modelOutputPayload struct {
	ID          string             `json:"id"`
	Report      string             `json:"report"`
	Evaluations []model.Evaluation `json:"evaluations,omitempty"`
}

type navPayload struct {
	PrevCase string `json:"prev_case,omitempty"`
	NextCase string `json:"next_case,omitempty"`
	Index    int    `json:"index,omitempty"`
	Total    int    `json:"total,omitempty"`
}

type casePayload struct {
	ID           string               `json:"id"`
	ImageURL     string               `json:"image_url"`
	GroundTruth  json.RawMessage      `json:"ground_truth"`
	ModelOutputs []modelOutputPayload `json:"model_outputs"`
	Metrics      []model.Metric       `json:"metrics,omitempty"`
	Evaluations  []model.Evaluation   `json:"evaluations,omitempty"`
	Navigation   *navPayload          `json:"navigation,omitempty"`
}

func (p *casePayload) toCase() *model.Case {
	c := &model.Case{
		ID:          p.ID,
		ImageURL:    p.ImageURL,
		GroundTruth: normalizeGroundTruth(p.GroundTruth),
		Metrics:     p.Metrics,
		Evaluations: p.Evaluations,
	}
	for _, out := range p.ModelOutputs {
		c.ModelOutputs = append(c.ModelOutputs, model.ModelOutput{
			ID:          out.ID,
			Report:      out.Report,
			Evaluations: out.Evaluations,
		})
	}
	if p.Navigation != nil {
		c.Nav = &model.CaseNav{
			PrevID: p.Navigation.PrevCase,
			NextID: p.Navigation.NextCase,
			Index:  p.Navigation.Index,
			Total:  p.Navigation.Total,
		}
	}
	return c
}

// normalizeGroundTruth resolves the record API's three ground-truth
// representations into one shape:
//
//	object                      -> use directly
//	string holding JSON object  -> parse
//	any other string            -> treat as findings
//	anything else               -> empty
func normalizeGroundTruth(raw json.RawMessage) model.GroundTruth {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return model.GroundTruth{}
	}

	switch trimmed[0] {
	case '{':
		var gt model.GroundTruth
		if err := json.Unmarshal(trimmed, &gt); err == nil {
			return gt
		}
		return model.GroundTruth{}
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return model.GroundTruth{}
		}
		inner := strings.TrimSpace(s)
		if strings.HasPrefix(inner, "{") {
			var gt model.GroundTruth
			if err := json.Unmarshal([]byte(inner), &gt); err == nil {
				return gt
			}
		}
		return model.GroundTruth{Findings: s}
	default:
		return model.GroundTruth{}
	}
}

// doRequest performs one HTTP round trip against the record API.
func (c *RecordClient) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	fullURL := c.baseURL + path
	log.Printf("[Record API] %s %s", method, path)

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Record API] ERROR: %s %s failed: %v", method, path, err)
		return nil, fmt.Errorf("record API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("[Record API] ERROR: failed to read response body: %v", err)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		log.Printf("[Record API] ERROR: %s %s returned %d: %s", method, path, resp.StatusCode, string(respBody))
		return nil, fmt.Errorf("record API error %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// Metrics fetches the global metric set. A transport error is returned
// to the caller; a 2xx response that is empty or undecodable degrades to
// the static fallback set.
func (c *RecordClient) Metrics(ctx context.Context) ([]model.Metric, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "/metrics", nil)
	if err != nil {
		return nil, err
	}

	metrics, ok := decodeMetricList(respBody)
	if !ok || len(metrics) == 0 {
		log.Printf("[Record API] metrics response empty or invalid, using fallback set")
		return model.FallbackMetrics(), nil
	}
	return metrics, nil
}

// decodeMetricList accepts both a bare list and a {data: [...]} wrapper.
func decodeMetricList(body []byte) ([]model.Metric, bool) {
	var metrics []model.Metric
	if err := json.Unmarshal(body, &metrics); err == nil {
		return metrics, true
	}
	var wrapper struct {
		Data []model.Metric `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Data != nil {
		return wrapper.Data, true
	}
	return nil, false
}

// User fetches an evaluator account by id.
func (c *RecordClient) User(ctx context.Context, userID string) (*model.User, error) {
	respBody, err := c.doRequest(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, err
	}
	var user model.User
	if err := json.Unmarshal(respBody, &user); err != nil {
		return nil, fmt.Errorf("failed to parse user response: %w", err)
	}
	return &user, nil
}

// CaseDetails fetches the full payload for one case, scoped to the
// acting evaluator. Ground truth is normalized at this boundary.
func (c *RecordClient) CaseDetails(ctx context.Context, caseID, evaluatorID string) (*model.Case, error) {
	path := fmt.Sprintf("/cases/%s/full_details", url.PathEscape(caseID))
	if evaluatorID != "" {
		path += "?evaluator=" + url.QueryEscape(evaluatorID)
	}

	respBody, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var payload casePayload
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse case response: %w", err)
	}
	return payload.toCase(), nil
}

// DoctorCases fetches every case assigned to a doctor, in the same
// payload shape as CaseDetails.
func (c *RecordClient) DoctorCases(ctx context.Context, doctorID string) ([]*model.Case, error) {
	path := fmt.Sprintf("/users/%s/cases", url.PathEscape(doctorID))

	respBody, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var payloads []casePayload
	if err := json.Unmarshal(respBody, &payloads); err != nil {
		var wrapper struct {
			Data []casePayload `json:"data"`
		}
		if err := json.Unmarshal(respBody, &wrapper); err != nil {
			return nil, fmt.Errorf("failed to parse case list response: %w", err)
		}
		payloads = wrapper.Data
	}

	cases := make([]*model.Case, 0, len(payloads))
	for i := range payloads {
		cases = append(cases, payloads[i].toCase())
	}
	return cases, nil
}

// CaseEvaluations fetches the evaluations already recorded for a case.
// Any failure degrades to an empty list; missing remote scores are a
// recoverable condition, not a reason to block hydration.
func (c *RecordClient) CaseEvaluations(ctx context.Context, caseID string) []model.Evaluation {
	path := fmt.Sprintf("/cases/%s/evaluations", url.PathEscape(caseID))

	respBody, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		log.Printf("[Record API] evaluations fetch for case %s failed, treating as empty: %v", caseID, err)
		return []model.Evaluation{}
	}

	var evals []model.Evaluation
	if err := json.Unmarshal(respBody, &evals); err != nil {
		log.Printf("[Record API] evaluations response for case %s invalid, treating as empty: %v", caseID, err)
		return []model.Evaluation{}
	}
	return evals
}

// UpdateEvaluation persists a single score to the record API.
func (c *RecordClient) UpdateEvaluation(ctx context.Context, req *model.UpdateEvaluationRequest) (*model.UpdateEvaluationResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode evaluation update: %w", err)
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, "/cases/evaluations/update", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	var result model.UpdateEvaluationResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse evaluation update response: %w", err)
	}
	return &result, nil
}
