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

func aggregateWith(t *testing.T, successRate float64, totalTokens int64) IterationAggregate {
	t.Helper()
	total := 100
	batch, err := stats.FromCounts(total, int(successRate*float64(total)), totalTokens, 80)
	require.NoError(t, err)

	now := time.Now()
	suit := factors.New(map[string]interface{}{"temperature": 0.7})
	agg, err := NewIterationAggregate(0, suit, "temperature", batch, now, now)
	require.NoError(t, err)
	return agg
}

func TestSuccessRateScorer(t *testing.T) {
	score, err := SuccessRateScorer{}.Score(aggregateWith(t, 0.85, 5000))
	require.NoError(t, err)
	assert.InDelta(t, 0.85, score, 1e-9)
}

func TestCostEfficiencyScorer(t *testing.T) {
	score, err := CostEfficiencyScorer{}.Score(aggregateWith(t, 0.8, 4000))
	require.NoError(t, err)
	// successRate * 1000 / tokens
	assert.InDelta(t, 0.8*1000/4000, score, 1e-9)
}

func TestCostEfficiencyScorerZeroTokens(t *testing.T) {
	score, err := CostEfficiencyScorer{}.Score(aggregateWith(t, 0.8, 0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestWeightedScorer(t *testing.T) {
	scorer, err := NewWeightedScorer(
		WeightedTerm{Scorer: SuccessRateScorer{}, Weight: 3},
		WeightedTerm{Scorer: CostEfficiencyScorer{}, Weight: 1},
	)
	require.NoError(t, err)

	agg := aggregateWith(t, 0.8, 4000)
	score, err := scorer.Score(agg)
	require.NoError(t, err)

	expected := (0.8*3 + (0.8*1000/4000)*1) / 4
	assert.InDelta(t, expected, score, 1e-9)
	assert.Equal(t, "weighted", scorer.Name())
}

func TestWeightedScorerConstructionRejections(t *testing.T) {
	_, err := NewWeightedScorer()
	assert.True(t, errors.HasCode(err, errors.InvalidInput))

	_, err = NewWeightedScorer(WeightedTerm{Scorer: nil, Weight: 1})
	assert.True(t, errors.HasCode(err, errors.InvalidInput))

	_, err = NewWeightedScorer(WeightedTerm{Scorer: SuccessRateScorer{}, Weight: -0.5})
	assert.True(t, errors.HasCode(err, errors.InvalidInput))

	_, err = NewWeightedScorer(WeightedTerm{Scorer: SuccessRateScorer{}, Weight: 0})
	assert.True(t, errors.HasCode(err, errors.InvalidInput))
}

// failingScorer always errors, for propagation tests.
type failingScorer struct{}

func (failingScorer) Score(IterationAggregate) (float64, error) {
	return 0, errors.New(errors.ScoringFailed, "cannot score")
}

func (failingScorer) Name() string { return "failing" }

func TestWeightedScorerPropagatesSubScorerFailure(t *testing.T) {
	scorer, err := NewWeightedScorer(
		WeightedTerm{Scorer: SuccessRateScorer{}, Weight: 1},
		WeightedTerm{Scorer: failingScorer{}, Weight: 1},
	)
	require.NoError(t, err)

	_, err = scorer.Score(aggregateWith(t, 0.5, 100))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ScoringFailed))
}
