package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radreview/internal/model"
)

func score(v int) *int {
	return &v
}

func findRecord(t *testing.T, entry []model.ResponseScores, responseID, metricID string) *model.ScoreRecord {
	t.Helper()
	for _, r := range entry {
		if r.ResponseID != responseID {
			continue
		}
		for i := range r.Scores {
			if r.Scores[i].MetricID == metricID {
				return &r.Scores[i]
			}
		}
	}
	return nil
}

func TestSetScoreCreatesSyntheticSlots(t *testing.T) {
	s := NewEvalStore()
	s.SetScore("c1", "model-2", "m1", score(3))

	entry, ok := s.Case("c1")
	require.True(t, ok)
	require.Len(t, entry, 3, "lazy creation must pre-populate 3 slots")
	assert.Equal(t, "model-1", entry[0].ResponseID)
	assert.Equal(t, "model-2", entry[1].ResponseID)
	assert.Equal(t, "model-3", entry[2].ResponseID)
	assert.Empty(t, entry[0].Scores)
	assert.Empty(t, entry[2].Scores)

	rec := findRecord(t, entry, "model-2", "m1")
	require.NotNil(t, rec)
	require.NotNil(t, rec.Score)
	assert.Equal(t, 3, *rec.Score)
}

func TestSetScoreLastWriteWins(t *testing.T) {
	s := NewEvalStore()
	for _, v := range []int{1, 5, 2, 4} {
		s.SetScore("c1", "model-1", "m1", score(v))
	}
	s.SetScore("c1", "model-1", "m1", nil)
	s.SetScore("c1", "model-1", "m1", score(3))

	entry, ok := s.Case("c1")
	require.True(t, ok)

	// No duplicate records for the same (response, metric) pair.
	count := 0
	for _, r := range entry {
		if r.ResponseID != "model-1" {
			continue
		}
		for _, rec := range r.Scores {
			if rec.MetricID == "m1" {
				count++
			}
		}
	}
	assert.Equal(t, 1, count)

	rec := findRecord(t, entry, "model-1", "m1")
	require.NotNil(t, rec)
	require.NotNil(t, rec.Score)
	assert.Equal(t, 3, *rec.Score)
}

func TestSetScoreNilClearsValue(t *testing.T) {
	s := NewEvalStore()
	s.SetScore("c1", "model-1", "m1", score(4))
	s.SetScore("c1", "model-1", "m1", nil)

	entry, _ := s.Case("c1")
	rec := findRecord(t, entry, "model-1", "m1")
	require.NotNil(t, rec, "clearing must not remove the record")
	assert.Nil(t, rec.Score)
}

func TestSetScoreAppendsUnknownResponse(t *testing.T) {
	s := NewEvalStore()
	s.SetScore("c1", "model-1", "m1", score(2))
	s.SetScore("c1", "resp-abc", "m2", score(5))

	entry, _ := s.Case("c1")
	require.Len(t, entry, 4, "unknown response ids are appended, never replace slots")
	rec := findRecord(t, entry, "resp-abc", "m2")
	require.NotNil(t, rec)
	assert.Equal(t, 5, *rec.Score)
}

func TestBulkInitializeOverwritesEntry(t *testing.T) {
	s := NewEvalStore()
	s.SetScore("c1", "model-1", "m1", score(1))

	s.BulkInitialize("c1", []model.ResponseScores{
		{ResponseID: "model-1", Scores: []model.ScoreRecord{{MetricID: "m1", Score: score(4)}, {MetricID: "m2"}}},
		{ResponseID: "model-2", Scores: []model.ScoreRecord{{MetricID: "m1"}, {MetricID: "m2"}}},
	})

	entry, ok := s.Case("c1")
	require.True(t, ok)
	require.Len(t, entry, 2, "bulk initialize fully replaces the previous entry")
	rec := findRecord(t, entry, "model-1", "m1")
	require.NotNil(t, rec.Score)
	assert.Equal(t, 4, *rec.Score)
	assert.Nil(t, findRecord(t, entry, "model-2", "m2").Score)
}

func TestBulkInitializeDeepCopies(t *testing.T) {
	s := NewEvalStore()
	responses := []model.ResponseScores{
		{ResponseID: "model-1", Scores: []model.ScoreRecord{{MetricID: "m1", Score: score(4)}}},
	}
	s.BulkInitialize("c1", responses)

	// Mutating the caller's slice after the call must not leak into the
	// stored entry.
	*responses[0].Scores[0].Score = 1
	responses[0].Scores[0].MetricID = "mutated"

	entry, _ := s.Case("c1")
	rec := findRecord(t, entry, "model-1", "m1")
	require.NotNil(t, rec)
	assert.Equal(t, 4, *rec.Score)
}

func TestCaseReturnsIsolatedCopy(t *testing.T) {
	s := NewEvalStore()
	s.SetScore("c1", "model-1", "m1", score(2))

	entry, _ := s.Case("c1")
	*findRecord(t, entry, "model-1", "m1").Score = 5

	again, _ := s.Case("c1")
	assert.Equal(t, 2, *findRecord(t, again, "model-1", "m1").Score)
}

func TestCaseUnknownID(t *testing.T) {
	s := NewEvalStore()
	entry, ok := s.Case("nope")
	assert.False(t, ok)
	assert.Nil(t, entry)
}

func TestResetClearsScoresAndFlags(t *testing.T) {
	s := NewEvalStore()
	s.SetScore("c1", "model-1", "m1", score(4))
	s.SetScore("c2", "model-1", "m1", score(5))
	s.SetDone("c1", true)

	s.Reset()

	_, ok := s.Case("c1")
	assert.False(t, ok)
	_, ok = s.Case("c2")
	assert.False(t, ok)
	assert.False(t, s.IsDone("c1"))
}

func TestSetDoneTouchesOneCase(t *testing.T) {
	s := NewEvalStore()
	s.SetDone("c1", true)
	s.SetDone("c2", true)
	s.SetDone("c2", false)

	assert.True(t, s.IsDone("c1"))
	assert.False(t, s.IsDone("c2"))
	assert.False(t, s.IsDone("c3"))
}

func TestResetDoneKeepsScores(t *testing.T) {
	s := NewEvalStore()
	s.SetScore("c1", "model-1", "m1", score(4))
	s.SetDone("c1", true)

	s.ResetDone()

	assert.False(t, s.IsDone("c1"))
	_, ok := s.Case("c1")
	assert.True(t, ok, "scores survive a completion-only reset")
}
