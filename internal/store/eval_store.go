package store

import (
	"radreview/internal/model"
)

// EvalStore holds the per-case score matrix and the per-case completion
// flags. It is process-lifetime UI state: nothing here is persisted, a
// restart starts empty and re-hydrates from the record API.
//
// All mutations and reads are expressed as commands processed strictly
// in arrival order by a single owner goroutine, so no caller ever
// observes a half-applied mutation. Multiple logical writers (hydration,
// edits, resets) issue commands without coordinating; correctness relies
// on overwrite-wins and idempotent-append semantics, not on exclusion.
type EvalStore struct {
	commands chan command
}

// state is owned exclusively by the run goroutine.
type state struct {
	// case id -> ordered list of per-response score records
	scores map[string][]model.ResponseScores
	// case id -> submission-done flag
	done map[string]bool
}

type command interface {
	apply(st *state)
}

// NewEvalStore creates the store and starts its owner goroutine. The
// store lives for the lifetime of the process; there is no shutdown.
func NewEvalStore() *EvalStore {
	s := &EvalStore{commands: make(chan command, 64)}
	go s.run()
	return s
}

func (s *EvalStore) run() {
	st := &state{
		scores: make(map[string][]model.ResponseScores),
		done:   make(map[string]bool),
	}
	for cmd := range s.commands {
		cmd.apply(st)
	}
}

func (s *EvalStore) do(cmd command, ack chan struct{}) {
	s.commands <- cmd
	<-ack
}

// --- SetScore ---

type setScoreCmd struct {
	caseID     string
	responseID string
	metricID   string
	score      *int
	ack        chan struct{}
}

func (c *setScoreCmd) apply(st *state) {
	defer close(c.ack)

	entry, ok := st.scores[c.caseID]
	if !ok {
		// Lazy creation: pre-populate the conventional 3 response
		// slots with empty metric lists.
		entry = make([]model.ResponseScores, 0, model.ResponseSlots)
		for i := 1; i <= model.ResponseSlots; i++ {
			entry = append(entry, model.ResponseScores{
				ResponseID: model.SyntheticResponseID(i),
				Scores:     []model.ScoreRecord{},
			})
		}
	}

	slot := -1
	for i := range entry {
		if entry[i].ResponseID == c.responseID {
			slot = i
			break
		}
	}
	if slot == -1 {
		entry = append(entry, model.ResponseScores{
			ResponseID: c.responseID,
			Scores:     []model.ScoreRecord{{MetricID: c.metricID, Score: copyScore(c.score)}},
		})
		st.scores[c.caseID] = entry
		return
	}

	recs := entry[slot].Scores
	for i := range recs {
		if recs[i].MetricID == c.metricID {
			recs[i].Score = copyScore(c.score)
			st.scores[c.caseID] = entry
			return
		}
	}
	entry[slot].Scores = append(recs, model.ScoreRecord{MetricID: c.metricID, Score: copyScore(c.score)})
	st.scores[c.caseID] = entry
}

// SetScore records one (response, metric) score for a case. It is the
// sole optimistic local write path: idempotent under repeated identical
// calls, appends missing records, overwrites existing ones, never
// removes anything. The store does not validate the score range; that is
// the controller's job.
func (s *EvalStore) SetScore(caseID, responseID, metricID string, score *int) {
	ack := make(chan struct{})
	s.do(&setScoreCmd{caseID: caseID, responseID: responseID, metricID: metricID, score: score, ack: ack}, ack)
}

// --- BulkInitialize ---

type bulkInitializeCmd struct {
	caseID    string
	responses []model.ResponseScores
	ack       chan struct{}
}

func (c *bulkInitializeCmd) apply(st *state) {
	defer close(c.ack)
	st.scores[c.caseID] = model.CloneResponseList(c.responses)
}

// BulkInitialize unconditionally replaces a case's full entry with a
// deep copy of responses, so later optimistic edits never mutate
// caller-owned data. Used when the controller has freshly reconciled
// server and default state.
func (s *EvalStore) BulkInitialize(caseID string, responses []model.ResponseScores) {
	ack := make(chan struct{})
	s.do(&bulkInitializeCmd{caseID: caseID, responses: responses, ack: ack}, ack)
}

// --- Reset ---

type resetCmd struct {
	ack chan struct{}
}

func (c *resetCmd) apply(st *state) {
	defer close(c.ack)
	st.scores = make(map[string][]model.ResponseScores)
	st.done = make(map[string]bool)
}

// Reset clears all case entries and all completion flags together. This
// is the only destructive bulk operation; there is no per-case eviction.
func (s *EvalStore) Reset() {
	ack := make(chan struct{})
	s.do(&resetCmd{ack: ack}, ack)
}

// --- SetDone / ResetDone ---

type setDoneCmd struct {
	caseID string
	done   bool
	ack    chan struct{}
}

func (c *setDoneCmd) apply(st *state) {
	defer close(c.ack)
	st.done[c.caseID] = c.done
}

// SetDone sets exactly one case's completion flag. The flag is never
// derived from the score matrix; only the submission flow sets it.
func (s *EvalStore) SetDone(caseID string, done bool) {
	ack := make(chan struct{})
	s.do(&setDoneCmd{caseID: caseID, done: done, ack: ack}, ack)
}

type resetDoneCmd struct {
	ack chan struct{}
}

func (c *resetDoneCmd) apply(st *state) {
	defer close(c.ack)
	st.done = make(map[string]bool)
}

// ResetDone clears every completion flag while leaving scores intact.
func (s *EvalStore) ResetDone() {
	ack := make(chan struct{})
	s.do(&resetDoneCmd{ack: ack}, ack)
}

// --- reads ---

type caseCmd struct {
	caseID string
	reply  chan caseReply
}

type caseReply struct {
	responses []model.ResponseScores
	ok        bool
}

func (c *caseCmd) apply(st *state) {
	entry, ok := st.scores[c.caseID]
	if !ok {
		c.reply <- caseReply{}
		return
	}
	c.reply <- caseReply{responses: model.CloneResponseList(entry), ok: true}
}

// Case returns a deep copy of the case's score matrix entry, or false if
// the case has never been initialized or edited.
func (s *EvalStore) Case(caseID string) ([]model.ResponseScores, bool) {
	reply := make(chan caseReply, 1)
	s.commands <- &caseCmd{caseID: caseID, reply: reply}
	r := <-reply
	return r.responses, r.ok
}

type isDoneCmd struct {
	caseID string
	reply  chan bool
}

func (c *isDoneCmd) apply(st *state) {
	c.reply <- st.done[c.caseID]
}

// IsDone reports whether a full submission round finished successfully
// for the case.
func (s *EvalStore) IsDone(caseID string) bool {
	reply := make(chan bool, 1)
	s.commands <- &isDoneCmd{caseID: caseID, reply: reply}
	return <-reply
}

func copyScore(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
