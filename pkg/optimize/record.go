package optimize

import (
	"time"

	"github.com/XiaoConstantine/tunelab/pkg/errors"
	"github.com/XiaoConstantine/tunelab/pkg/factors"
	"github.com/XiaoConstantine/tunelab/pkg/stats"
)

// IterationAggregate wraps one iteration's batch statistics with the
// configuration that produced them. One per iteration, immutable.
type IterationAggregate struct {
	Iteration       int
	Suit            factors.Suit
	TreatmentFactor string
	Stats           stats.AggregateStatistics
	StartTime       time.Time
	EndTime         time.Time
}

// NewIterationAggregate validates and builds an iteration aggregate. The
// treatment factor must be bound in the suit and the end time must not
// precede the start.
func NewIterationAggregate(iteration int, suit factors.Suit, treatmentFactor string, s stats.AggregateStatistics, start, end time.Time) (IterationAggregate, error) {
	switch {
	case iteration < 0:
		return IterationAggregate{}, errors.InvariantViolation("IterationAggregate",
			"iteration must be non-negative", errors.Fields{"iteration": iteration})
	case treatmentFactor == "":
		return IterationAggregate{}, errors.InvariantViolation("IterationAggregate",
			"treatment factor name is required", nil)
	case !suit.Has(treatmentFactor):
		return IterationAggregate{}, errors.InvariantViolation("IterationAggregate",
			"treatment factor missing from suit", errors.Fields{"factor": treatmentFactor})
	case end.Before(start):
		return IterationAggregate{}, errors.InvariantViolation("IterationAggregate",
			"end time precedes start time", errors.Fields{"start": start, "end": end})
	}

	return IterationAggregate{
		Iteration:       iteration,
		Suit:            suit,
		TreatmentFactor: treatmentFactor,
		Stats:           s,
		StartTime:       start,
		EndTime:         end,
	}, nil
}

// TreatmentValue returns the treatment factor's value in this iteration.
func (a IterationAggregate) TreatmentValue() interface{} {
	v, _ := a.Suit.Value(a.TreatmentFactor)
	return v
}

// IterationStatus is the terminal state of one iteration. A closed set:
// callers should handle all three cases.
type IterationStatus int

const (
	IterationSuccess IterationStatus = iota
	IterationExecutionFailed
	IterationScoringFailed
)

// String provides the reporting names for iteration statuses.
func (s IterationStatus) String() string {
	return [...]string{"SUCCESS", "EXECUTION_FAILED", "SCORING_FAILED"}[s]
}

// IterationRecord is one entry in the optimization ledger: the aggregate, its
// score, and how the iteration ended. Failed iterations carry a reason and a
// fixed zero score that is excluded from best-iteration comparisons.
type IterationRecord struct {
	Aggregate     IterationAggregate
	Score         float64
	Status        IterationStatus
	FailureReason string
}

// NewSuccessRecord builds a record for a fully scored iteration.
func NewSuccessRecord(agg IterationAggregate, score float64) IterationRecord {
	return IterationRecord{
		Aggregate: agg,
		Score:     score,
		Status:    IterationSuccess,
	}
}

// NewFailureRecord builds a record for an iteration that failed during
// execution or scoring. The reason is mandatory; the score is pinned to zero.
func NewFailureRecord(agg IterationAggregate, status IterationStatus, reason string) (IterationRecord, error) {
	if status == IterationSuccess {
		return IterationRecord{}, errors.InvariantViolation("IterationRecord",
			"failure record cannot carry SUCCESS status", nil)
	}
	if reason == "" {
		return IterationRecord{}, errors.InvariantViolation("IterationRecord",
			"failure record requires a reason", errors.Fields{"status": status.String()})
	}
	return IterationRecord{
		Aggregate:     agg,
		Score:         0.0,
		Status:        status,
		FailureReason: reason,
	}, nil
}
