package optimize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/tunelab/pkg/errors"
	"github.com/XiaoConstantine/tunelab/pkg/factors"
	"github.com/XiaoConstantine/tunelab/pkg/stats"
)

func TestNewIterationAggregateInvariants(t *testing.T) {
	now := time.Now()
	suit := factors.New(map[string]interface{}{"temperature": 0.7})
	batch, err := stats.FromCounts(10, 8, 1000, 50)
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		agg, err := NewIterationAggregate(0, suit, "temperature", batch, now, now.Add(time.Second))
		require.NoError(t, err)
		assert.Equal(t, 0.7, agg.TreatmentValue())
	})

	t.Run("negative iteration", func(t *testing.T) {
		_, err := NewIterationAggregate(-1, suit, "temperature", batch, now, now)
		assert.True(t, errors.HasCode(err, errors.InvalidInput))
	})

	t.Run("treatment factor not in suit", func(t *testing.T) {
		_, err := NewIterationAggregate(0, suit, "model", batch, now, now)
		assert.True(t, errors.HasCode(err, errors.InvalidInput))
	})

	t.Run("end precedes start", func(t *testing.T) {
		_, err := NewIterationAggregate(0, suit, "temperature", batch, now, now.Add(-time.Second))
		assert.True(t, errors.HasCode(err, errors.InvalidInput))
	})
}

func TestNewFailureRecordInvariants(t *testing.T) {
	now := time.Now()
	suit := factors.New(map[string]interface{}{"temperature": 0.7})
	agg, err := NewIterationAggregate(0, suit, "temperature", stats.AggregateStatistics{}, now, now)
	require.NoError(t, err)

	rec, err := NewFailureRecord(agg, IterationExecutionFailed, "provider unreachable")
	require.NoError(t, err)
	assert.Equal(t, 0.0, rec.Score)
	assert.Equal(t, "provider unreachable", rec.FailureReason)

	_, err = NewFailureRecord(agg, IterationExecutionFailed, "")
	assert.Error(t, err)

	_, err = NewFailureRecord(agg, IterationSuccess, "reason")
	assert.Error(t, err)
}

func TestBestIterationMaximize(t *testing.T) {
	h := historyWithScores(t, Maximize, 0.5, 0.9, 0.7)

	assert.Equal(t, 1, h.BestIterationIndex())
	best, ok := h.BestIteration()
	require.True(t, ok)
	assert.Equal(t, 0.9, best.Score)

	score, ok := h.BestScore()
	require.True(t, ok)
	assert.Equal(t, 0.9, score)

	value, ok := h.BestFactorValue()
	require.True(t, ok)
	assert.InDelta(t, 0.1, value.(float64), 1e-9)
}

func TestBestIterationMinimize(t *testing.T) {
	h := historyWithScores(t, Minimize, 0.5, 0.9, 0.2)
	assert.Equal(t, 2, h.BestIterationIndex())
}

func TestBestIterationTieBreaksFirstSeen(t *testing.T) {
	h := historyWithScores(t, Maximize, 0.7, 0.9, 0.9, 0.9)
	assert.Equal(t, 1, h.BestIterationIndex())
}

func TestBestIterationIsStable(t *testing.T) {
	h := historyWithScores(t, Maximize, 0.3, 0.8, 0.8, 0.1)
	first := h.BestIterationIndex()
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, h.BestIterationIndex())
	}
}

func TestBestIterationSkipsFailedRecords(t *testing.T) {
	start := time.Now()
	suit := factors.New(map[string]interface{}{"temperature": 0.7})

	okBatch, err := stats.FromCounts(10, 5, 100, 10)
	require.NoError(t, err)
	okAgg, err := NewIterationAggregate(0, suit, "temperature", okBatch, start, start)
	require.NoError(t, err)

	failAgg, err := NewIterationAggregate(1, suit, "temperature", stats.AggregateStatistics{}, start, start)
	require.NoError(t, err)
	failed, err := NewFailureRecord(failAgg, IterationScoringFailed, "scorer blew up")
	require.NoError(t, err)

	h := RestoreHistory("run", "uc", "temperature", Maximize,
		[]IterationRecord{NewSuccessRecord(okAgg, 0.5), failed}, start, start, nil)

	// The failed record's pinned 0.0 score is excluded even under MINIMIZE.
	assert.Equal(t, 0, h.BestIterationIndex())
	hMin := RestoreHistory("run", "uc", "temperature", Minimize,
		[]IterationRecord{NewSuccessRecord(okAgg, 0.5), failed}, start, start, nil)
	assert.Equal(t, 0, hMin.BestIterationIndex())
}

func TestBestIterationEmptyHistory(t *testing.T) {
	h := RestoreHistory("run", "uc", "temperature", Maximize, nil, time.Now(), time.Now(), nil)
	assert.Equal(t, -1, h.BestIterationIndex())
	_, ok := h.BestIteration()
	assert.False(t, ok)
	_, ok = h.BestScore()
	assert.False(t, ok)
	_, ok = h.BestFactorValue()
	assert.False(t, ok)
}

func TestHistoryTotalTokensAndElapsed(t *testing.T) {
	h := historyWithScores(t, Maximize, 0.5, 0.6, 0.7)
	assert.Equal(t, int64(3000), h.TotalTokens())
	assert.Equal(t, 3*time.Second, h.Elapsed())
	assert.Equal(t, 3, h.IterationCount())
}

func TestHistoryRecordsAreDetached(t *testing.T) {
	h := historyWithScores(t, Maximize, 0.5, 0.6)
	records := h.Records()
	records[0].Score = 99

	rec, ok := h.Record(0)
	require.True(t, ok)
	assert.Equal(t, 0.5, rec.Score)

	_, ok = h.Record(5)
	assert.False(t, ok)
}

func TestParseObjective(t *testing.T) {
	o, err := ParseObjective("maximize")
	require.NoError(t, err)
	assert.Equal(t, Maximize, o)

	o, err = ParseObjective(" MINIMIZE ")
	require.NoError(t, err)
	assert.Equal(t, Minimize, o)

	_, err = ParseObjective("sideways")
	assert.Error(t, err)
}

func TestObjectiveBetter(t *testing.T) {
	assert.True(t, Maximize.Better(0.9, 0.8))
	assert.False(t, Maximize.Better(0.8, 0.8))
	assert.True(t, Minimize.Better(0.1, 0.2))
	assert.False(t, Minimize.Better(0.2, 0.2))
}
