package optimize

import (
	"github.com/XiaoConstantine/tunelab/pkg/errors"
)

// FactorMutator proposes the next candidate value for the treatment factor.
// A returned error is fatal to the run, though prior iterations stay valid.
// Mutators may consult the full history but must be pure with respect to any
// state beyond it.
type FactorMutator interface {
	Mutate(current interface{}, history *History) (interface{}, error)
}

// NoOpMutator returns the current value unchanged. Useful to exercise
// termination policies independent of search dynamics.
type NoOpMutator struct{}

func (NoOpMutator) Mutate(current interface{}, _ *History) (interface{}, error) {
	return current, nil
}

// CandidateListMutator walks a fixed candidate list: the list supplies the
// treatment values for every iteration after the first. It fails with a
// mutation error once the list is exhausted.
type CandidateListMutator struct {
	candidates []interface{}
}

// NewCandidateListMutator rejects an empty candidate list at construction.
func NewCandidateListMutator(candidates ...interface{}) (*CandidateListMutator, error) {
	if len(candidates) == 0 {
		return nil, errors.New(errors.InvalidInput, "candidate list mutator requires at least one candidate")
	}
	return &CandidateListMutator{candidates: candidates}, nil
}

func (m *CandidateListMutator) Mutate(_ interface{}, history *History) (interface{}, error) {
	// The mutator runs after iteration i with i+1 records in history, so the
	// candidate for iteration i+1 sits at index i.
	next := history.IterationCount() - 1
	if next < 0 {
		next = 0
	}
	if next >= len(m.candidates) {
		return nil, errors.WithFields(
			errors.New(errors.MutationFailed, "candidate list exhausted"),
			errors.Fields{"candidates": len(m.candidates)},
		)
	}
	return m.candidates[next], nil
}

// NumericStepMutator hill-climbs a float-valued treatment factor. It keeps
// stepping in the same direction while the score improves, and reverses with
// half the step once it stops improving. Direction and step size are derived
// entirely from history, keeping the mutator stateless.
type NumericStepMutator struct {
	step float64
	min  float64
	max  float64
}

// NewNumericStepMutator rejects non-positive steps and inverted bounds.
func NewNumericStepMutator(step, min, max float64) (*NumericStepMutator, error) {
	if step <= 0 {
		return nil, errors.Newf(errors.InvalidInput, "step must be positive, got %v", step)
	}
	if min >= max {
		return nil, errors.Newf(errors.InvalidInput, "invalid bounds [%v, %v]", min, max)
	}
	return &NumericStepMutator{step: step, min: min, max: max}, nil
}

func (m *NumericStepMutator) Mutate(current interface{}, history *History) (interface{}, error) {
	cur, ok := toFloat64(current)
	if !ok {
		return nil, errors.WithFields(
			errors.New(errors.MutationFailed, "treatment factor is not numeric"),
			errors.Fields{"value": current},
		)
	}

	last, prev, ok := lastTwoSuccesses(history)
	if !ok {
		return m.clamp(cur + m.step), nil
	}

	lastVal, lastOK := toFloat64(last.Aggregate.TreatmentValue())
	prevVal, prevOK := toFloat64(prev.Aggregate.TreatmentValue())
	if !lastOK || !prevOK {
		return m.clamp(cur + m.step), nil
	}

	lastMove := lastVal - prevVal
	if lastMove == 0 {
		return m.clamp(cur + m.step), nil
	}

	if history.Objective().Better(last.Score, prev.Score) {
		return m.clamp(cur + lastMove), nil
	}
	// The last move hurt: back off halfway.
	return m.clamp(cur - lastMove/2), nil
}

func (m *NumericStepMutator) clamp(v float64) float64 {
	if v < m.min {
		return m.min
	}
	if v > m.max {
		return m.max
	}
	return v
}

func lastTwoSuccesses(history *History) (last, prev IterationRecord, ok bool) {
	records := history.Records()
	found := 0
	for i := len(records) - 1; i >= 0 && found < 2; i-- {
		if records[i].Status != IterationSuccess {
			continue
		}
		if found == 0 {
			last = records[i]
		} else {
			prev = records[i]
		}
		found++
	}
	return last, prev, found == 2
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
