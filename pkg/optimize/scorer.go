package optimize

import (
	"github.com/XiaoConstantine/tunelab/pkg/errors"
)

// Scorer maps one iteration's aggregate into a single comparable number.
// A returned error is fatal to the run.
type Scorer interface {
	Score(agg IterationAggregate) (float64, error)
	Name() string
}

// SuccessRateScorer scores an iteration by its raw success rate.
type SuccessRateScorer struct{}

func (SuccessRateScorer) Score(agg IterationAggregate) (float64, error) {
	return agg.Stats.SuccessRate, nil
}

func (SuccessRateScorer) Name() string { return "success_rate" }

// costEfficiencyK normalizes token totals so typical scores stay near the
// success-rate scale.
const costEfficiencyK = 1000.0

// CostEfficiencyScorer rewards high success achieved with fewer tokens:
// successRate * K / totalTokens, zero when no tokens were spent.
type CostEfficiencyScorer struct{}

func (CostEfficiencyScorer) Score(agg IterationAggregate) (float64, error) {
	if agg.Stats.TotalTokens == 0 {
		return 0, nil
	}
	return agg.Stats.SuccessRate * costEfficiencyK / float64(agg.Stats.TotalTokens), nil
}

func (CostEfficiencyScorer) Name() string { return "cost_efficiency" }

// WeightedTerm pairs a scorer with its non-negative weight in a combination.
type WeightedTerm struct {
	Scorer Scorer
	Weight float64
}

// WeightedScorer combines sub-scorers into a weighted average.
type WeightedScorer struct {
	terms []WeightedTerm
}

// NewWeightedScorer validates the term list at construction: it must be
// non-empty, every scorer non-nil, every weight non-negative, and the weights
// must not all be zero.
func NewWeightedScorer(terms ...WeightedTerm) (*WeightedScorer, error) {
	if len(terms) == 0 {
		return nil, errors.New(errors.InvalidInput, "weighted scorer requires at least one term")
	}
	var totalWeight float64
	for i, term := range terms {
		if term.Scorer == nil {
			return nil, errors.Newf(errors.InvalidInput, "weighted scorer term %d has nil scorer", i)
		}
		if term.Weight < 0 {
			return nil, errors.Newf(errors.InvalidInput, "weighted scorer term %d has negative weight %v", i, term.Weight)
		}
		totalWeight += term.Weight
	}
	if totalWeight == 0 {
		return nil, errors.New(errors.InvalidInput, "weighted scorer weights sum to zero")
	}
	return &WeightedScorer{terms: terms}, nil
}

func (s *WeightedScorer) Score(agg IterationAggregate) (float64, error) {
	var weighted, totalWeight float64
	for _, term := range s.terms {
		score, err := term.Scorer.Score(agg)
		if err != nil {
			return 0, errors.Wrap(err, errors.ScoringFailed, "sub-scorer "+term.Scorer.Name()+" failed")
		}
		weighted += score * term.Weight
		totalWeight += term.Weight
	}
	return weighted / totalWeight, nil
}

func (s *WeightedScorer) Name() string { return "weighted" }
