package rest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radreview/internal/model"
	"radreview/internal/service"
	"radreview/internal/store"
	"radreview/internal/transport/rest"
	"radreview/internal/transport/ws"
)

type memMetricCache struct {
	mu      sync.Mutex
	metrics []model.Metric
}

func (c *memMetricCache) Get(ctx context.Context) ([]model.Metric, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics, nil
}

func (c *memMetricCache) Set(ctx context.Context, metrics []model.Metric) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = metrics
	return nil
}

type memCaseCache struct {
	mu    sync.Mutex
	cases map[string]*model.Case
}

func (c *memCaseCache) Get(ctx context.Context, caseID string) (*model.Case, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cases[caseID], nil
}

func (c *memCaseCache) Set(ctx context.Context, cs *model.Case) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cases == nil {
		c.cases = make(map[string]*model.Case)
	}
	c.cases[cs.ID] = cs
	return nil
}

func (c *memCaseCache) Invalidate(ctx context.Context, caseID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cases, caseID)
	return nil
}

// fakeRecordAPI serves just enough of the record API for router tests.
func fakeRecordAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"m1","name":"Accuracy"},{"id":"m2","name":"Completeness"}]`))
	})
	mux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"doc-7","name":"Dr. Grey","email":"grey@hospital.test","role":"doctor"}`))
	})
	mux.HandleFunc("GET /cases/{id}/full_details", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"c1","image_url":"http://img/c1.png","ground_truth":"All clear.","model_outputs":[]}`))
	})
	mux.HandleFunc("GET /cases/{id}/evaluations", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"model_response":"model-1","metric":"m1","score":4}]`))
	})
	mux.HandleFunc("POST /cases/evaluations/update", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"completed","progress":{"completed":1,"total":1}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	backend := fakeRecordAPI(t)

	client := service.NewRecordClient(backend.URL, 5*time.Second)
	evalSvc := service.NewEvalService(client, store.NewEvalStore(), &memMetricCache{}, &memCaseCache{})

	return rest.NewRouter(&rest.Container{
		EvalService: evalSvc,
		WSHub:       ws.NewHub(),
	})
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSessionRequiresDoctorID(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/session", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionStart(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/session?doctorId=doc-7", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Doctor  *model.User    `json:"doctor"`
		Metrics []model.Metric `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Doctor)
	assert.Equal(t, "Dr. Grey", resp.Doctor.Name)
	assert.True(t, model.MetricsReady(resp.Metrics))
}

func TestCaseGetHydrates(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/session?doctorId=doc-7", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/cases/c1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Case  *model.Case        `json:"case"`
		State *service.CaseState `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "All clear.", resp.Case.GroundTruth.Findings)
	require.Len(t, resp.State.Responses, 3)
	require.NotNil(t, resp.State.Responses[0].Scores[0].Score)
	assert.Equal(t, 4, *resp.State.Responses[0].Scores[0].Score)
}

func TestScoreEndpoint(t *testing.T) {
	router := newTestRouter(t)

	put := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/v1/cases/c1/scores", strings.NewReader(body))
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := put(`{"responseId":"model-1","metricId":"m1","score":4}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"recorded"}`, rec.Body.String())

	rec = put(`{"responseId":"model-1","metricId":"m1","score":6}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ignored"}`, rec.Body.String())

	rec = put(`{"metricId":"m1","score":4}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The accepted edit is visible in the state endpoint.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/cases/c1/state", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var state service.CaseState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.Len(t, state.Responses, 3)
	require.NotNil(t, state.Responses[0].Scores[0].Score)
	assert.Equal(t, 4, *state.Responses[0].Scores[0].Score)
}

func TestSubmitWithoutSession(t *testing.T) {
	router := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/cases/c1/submit", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitFlow(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/session?doctorId=doc-7", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/v1/cases/c1/scores", strings.NewReader(`{"responseId":"model-1","metricId":"m1","score":5}`))
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/cases/c1/submit", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var outcome model.SubmissionOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.True(t, outcome.Done)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/cases/c1/state", nil))
	var state service.CaseState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.True(t, state.Done)
}
