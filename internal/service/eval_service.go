package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"radreview/internal/cache"
	"radreview/internal/model"
	"radreview/internal/store"
)

// EvalService reconciles record API truth with local optimistic edits
// for the case an evaluator is reviewing, and turns a batch of
// independent remote writes into one coherent submission outcome.
type EvalService struct {
	client      *RecordClient
	store       *store.EvalStore
	metricCache cache.MetricCache
	caseCache   cache.CaseCache
	broadcaster Broadcaster

	mu          sync.Mutex
	evaluatorID string
	doctor      *model.User
	metrics     []model.Metric
	activeCase  string
}

// NewEvalService creates a new evaluation service. The metric set starts
// at the "Loading..." sentinel until LoadMetrics succeeds.
func NewEvalService(client *RecordClient, st *store.EvalStore, metricCache cache.MetricCache, caseCache cache.CaseCache) *EvalService {
	return &EvalService{
		client:      client,
		store:       st,
		metricCache: metricCache,
		caseCache:   caseCache,
		metrics:     model.PendingMetrics(),
	}
}

// SetBroadcaster sets the broadcaster for WebSocket status events.
func (s *EvalService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// StartSession binds the acting evaluator to the session. The doctorId
// and force flags arrive as page URL parameters; they are handed in here
// once per session rather than read as ambient globals. force triggers
// the global reset, clearing all scores and completion flags. The doctor
// name lookup is best-effort: a failure is logged, never fatal.
func (s *EvalService) StartSession(ctx context.Context, doctorID string, force bool) (*model.User, error) {
	if doctorID == "" {
		return nil, ErrNoEvaluator
	}

	s.mu.Lock()
	s.evaluatorID = doctorID
	s.mu.Unlock()

	if force {
		log.Printf("[Eval] forced reset requested by evaluator %s", doctorID)
		s.store.Reset()
	}
	// Completion flags never survive a session re-initialization, even
	// when the scores themselves do.
	s.store.ResetDone()

	doctor, err := s.client.User(ctx, doctorID)
	if err != nil {
		log.Printf("[Eval] doctor lookup failed for %s: %v", doctorID, err)
		return nil, nil
	}

	s.mu.Lock()
	s.doctor = doctor
	s.mu.Unlock()
	return doctor, nil
}

// EvaluatorID returns the evaluator bound to the session, if any.
func (s *EvalService) EvaluatorID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evaluatorID
}

// Doctor returns the resolved evaluator account, if the lookup succeeded.
func (s *EvalService) Doctor() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doctor
}

// Metrics returns the current global metric set. Until LoadMetrics has
// succeeded this is the sentinel list; gate on model.MetricsReady.
func (s *EvalService) Metrics() []model.Metric {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Metric, len(s.metrics))
	copy(out, s.metrics)
	return out
}

// LoadMetrics resolves the global metric set: cache, then record API,
// then the static fallback. It never fails; the evaluator always gets a
// scorable table.
func (s *EvalService) LoadMetrics(ctx context.Context) []model.Metric {
	if current := s.Metrics(); model.MetricsReady(current) {
		return current
	}

	if cached, err := s.metricCache.Get(ctx); err != nil {
		log.Printf("[Eval] metric cache read failed: %v", err)
	} else if model.MetricsReady(cached) {
		s.setMetrics(cached)
		return cached
	}

	metrics, err := s.client.Metrics(ctx)
	if err != nil {
		log.Printf("[Eval] metric fetch failed, using fallback set: %v", err)
		metrics = model.FallbackMetrics()
	} else if err := s.metricCache.Set(ctx, metrics); err != nil {
		log.Printf("[Eval] metric cache write failed: %v", err)
	}

	s.setMetrics(metrics)
	return metrics
}

func (s *EvalService) setMetrics(metrics []model.Metric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = metrics
}

// GetCase fetches a case payload, serving from the Redis cache when
// possible. Cache failures fall through to a direct fetch.
func (s *EvalService) GetCase(ctx context.Context, caseID string) (*model.Case, error) {
	if cached, err := s.caseCache.Get(ctx, caseID); err != nil {
		log.Printf("[Eval] case cache read failed for %s: %v", caseID, err)
	} else if cached != nil {
		return cached, nil
	}

	cs, err := s.client.CaseDetails(ctx, caseID, s.EvaluatorID())
	if err != nil {
		return nil, err
	}
	if err := s.caseCache.Set(ctx, cs); err != nil {
		log.Printf("[Eval] case cache write failed for %s: %v", caseID, err)
	}
	return cs, nil
}

// DoctorCases lists every case assigned to a doctor.
func (s *EvalService) DoctorCases(ctx context.Context, doctorID string) ([]*model.Case, error) {
	return s.client.DoctorCases(ctx, doctorID)
}

// HydrateCase reconciles the case's local score matrix with the record
// API. It builds the fully-normalized structure (every response slot ×
// every metric, remote score where one exists, nil otherwise) and bulk
// initializes the store with it, so the scoring table renders without
// per-cell existence checks.
//
// Hydration only runs once the metric set is ready. A failed case fetch
// aborts hydration for this case and leaves the store untouched; the
// evaluator can still score via lazy per-cell creation.
func (s *EvalService) HydrateCase(ctx context.Context, caseID string) error {
	metrics := s.Metrics()
	if !model.MetricsReady(metrics) {
		return ErrMetricsNotReady
	}

	s.mu.Lock()
	s.activeCase = caseID
	s.mu.Unlock()

	cs, err := s.GetCase(ctx, caseID)
	if err != nil {
		log.Printf("[Eval] hydration aborted for case %s: %v", caseID, err)
		return fmt.Errorf("failed to load case %s: %w", caseID, err)
	}

	// Known scores keyed by (responseId, metricId). Later sources win:
	// nested per-output evaluations, then the payload's top-level list,
	// then the dedicated evaluations endpoint.
	known := make(map[string]int)
	for _, out := range cs.ModelOutputs {
		for _, ev := range out.Evaluations {
			known[ev.ModelResponse+"\x00"+ev.Metric] = ev.Score
		}
	}
	for _, ev := range cs.Evaluations {
		known[ev.ModelResponse+"\x00"+ev.Metric] = ev.Score
	}
	for _, ev := range s.client.CaseEvaluations(ctx, caseID) {
		known[ev.ModelResponse+"\x00"+ev.Metric] = ev.Score
	}

	responses := make([]model.ResponseScores, 0, model.ResponseSlots)
	for i := 1; i <= model.ResponseSlots; i++ {
		responseID := cs.ResponseID(i)
		records := make([]model.ScoreRecord, 0, len(metrics))
		for _, m := range metrics {
			rec := model.ScoreRecord{MetricID: m.ID}
			if v, ok := known[responseID+"\x00"+m.ID]; ok {
				score := v
				rec.Score = &score
			}
			records = append(records, rec)
		}
		responses = append(responses, model.ResponseScores{ResponseID: responseID, Scores: records})
	}

	// Staleness guard: a hydration that resolves after the evaluator
	// moved to another case must not clobber the newer case's state.
	s.mu.Lock()
	stale := s.activeCase != caseID
	s.mu.Unlock()
	if stale {
		log.Printf("[Eval] dropping stale hydration for case %s", caseID)
		return nil
	}

	s.store.BulkInitialize(caseID, responses)
	return nil
}

// RecordScore applies one score edit. Values outside [1,5] are dropped
// with a log line; nil always clears. The local write is synchronous and
// optimistic; persistence happens in a detached task whose outcome is
// only logged and broadcast, never used to roll the edit back. Returns
// whether the edit was applied locally.
func (s *EvalService) RecordScore(caseID, responseID, metricID string, score *int) bool {
	if score != nil && (*score < 1 || *score > 5) {
		log.Printf("[Eval] dropping out-of-range score %d for case %s (%s/%s)", *score, caseID, responseID, metricID)
		return false
	}

	s.store.SetScore(caseID, responseID, metricID, score)

	if score == nil {
		// Clears stay local; the record API has no "unset" write.
		return true
	}

	evaluatorID := s.EvaluatorID()
	if evaluatorID == "" {
		log.Printf("[Eval] no evaluator in session, keeping score for case %s local only", caseID)
		return true
	}

	attemptID := uuid.NewString()
	req := &model.UpdateEvaluationRequest{
		CaseID:      caseID,
		ResponseID:  responseID,
		MetricID:    metricID,
		EvaluatorID: evaluatorID,
		Score:       *score,
	}

	// Fire-and-forget persist. Last write wins: the local value stays
	// provisionally correct until the next hydration.
	go func() {
		result, err := s.client.UpdateEvaluation(context.Background(), req)
		if err != nil {
			log.Printf("[Eval] persist failed for case %s (%s/%s): %v", caseID, responseID, metricID, err)
			s.notify(evaluatorID, "score_persist_failed", map[string]interface{}{
				"attemptId":  attemptID,
				"caseId":     caseID,
				"responseId": responseID,
				"metricId":   metricID,
			})
			return
		}
		s.notify(evaluatorID, "score_persisted", map[string]interface{}{
			"attemptId":  attemptID,
			"caseId":     caseID,
			"responseId": responseID,
			"metricId":   metricID,
			"status":     result.Status,
		})
	}()

	return true
}

// persistResult pairs one submission call with its outcome, in
// submission order.
type persistResult struct {
	result *model.UpdateEvaluationResult
	err    error
}

// SubmitCase persists every non-nil, positive score of a case in
// independent concurrent calls and folds the results into one outcome.
// A zero score is treated as "not yet scored" and excluded. Any failed
// call makes the whole round report as failed; the case is marked done
// only when the record API reports the evaluation set completed.
func (s *EvalService) SubmitCase(ctx context.Context, caseID string) (*model.SubmissionOutcome, error) {
	evaluatorID := s.EvaluatorID()
	if evaluatorID == "" {
		return nil, ErrNoEvaluator
	}

	entry, ok := s.store.Case(caseID)
	if !ok {
		return nil, ErrCaseNotScored
	}

	var reqs []*model.UpdateEvaluationRequest
	for _, resp := range entry {
		for _, rec := range resp.Scores {
			if rec.Score == nil || *rec.Score <= 0 {
				continue
			}
			reqs = append(reqs, &model.UpdateEvaluationRequest{
				CaseID:      caseID,
				ResponseID:  resp.ResponseID,
				MetricID:    rec.MetricID,
				EvaluatorID: evaluatorID,
				Score:       *rec.Score,
			})
		}
	}

	if len(reqs) == 0 {
		return &model.SubmissionOutcome{Status: "no_scores", Message: "no scores to submit"}, nil
	}

	log.Printf("[Eval] submitting %d evaluations for case %s", len(reqs), caseID)

	results := make([]persistResult, len(reqs))
	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req *model.UpdateEvaluationRequest) {
			defer wg.Done()
			result, err := s.client.UpdateEvaluation(ctx, req)
			results[i] = persistResult{result: result, err: err}
		}(i, req)
	}
	wg.Wait()

	// Aggregate over all settled calls rather than trusting whichever
	// one happened to finish last: concurrent completion order says
	// nothing about which call observed the backend's final state.
	completed := false
	var best *model.EvalProgress
	for _, r := range results {
		if r.err != nil {
			log.Printf("[Eval] submission call failed for case %s: %v", caseID, r.err)
			return &model.SubmissionOutcome{Status: "failed", Message: "submission failed"}, nil
		}
		if r.result.Status == model.EvalStatusCompleted {
			completed = true
		}
		if p := r.result.Progress; p != nil && (best == nil || p.Completed > best.Completed) {
			best = p
		}
	}

	outcome := &model.SubmissionOutcome{}
	if best != nil {
		outcome.Completed = best.Completed
		outcome.Total = best.Total
	}

	if completed {
		s.store.SetDone(caseID, true)
		outcome.Done = true
		outcome.Status = model.EvalStatusCompleted
		// The cached payload no longer reflects the persisted
		// evaluations; drop it so the next hydration refetches.
		if err := s.caseCache.Invalidate(ctx, caseID); err != nil {
			log.Printf("[Eval] case cache invalidation failed for %s: %v", caseID, err)
		}
		s.notify(evaluatorID, "case_submitted", map[string]interface{}{"caseId": caseID})
		log.Printf("[Eval] case %s fully submitted", caseID)
		return outcome, nil
	}

	outcome.Status = model.EvalStatusInProgress
	if best != nil {
		outcome.Message = fmt.Sprintf("saved %d of %d evaluations", best.Completed, best.Total)
	} else {
		outcome.Message = "submission still in progress"
	}
	return outcome, nil
}

// CaseState is the score matrix and completion flag the UI renders for
// one case.
type CaseState struct {
	CaseID    string                 `json:"caseId"`
	Responses []model.ResponseScores `json:"responses"`
	Done      bool                   `json:"done"`
}

// State returns the current local evaluation state for a case. A case
// never seen before yields an empty matrix, not an error.
func (s *EvalService) State(caseID string) *CaseState {
	responses, ok := s.store.Case(caseID)
	if !ok {
		responses = []model.ResponseScores{}
	}
	return &CaseState{
		CaseID:    caseID,
		Responses: responses,
		Done:      s.store.IsDone(caseID),
	}
}

func (s *EvalService) notify(evaluatorID, msgType string, payload interface{}) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastToEvaluator(evaluatorID, msgType, payload)
}
