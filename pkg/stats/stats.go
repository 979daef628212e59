// Package stats folds batches of per-sample verdicts and cost metrics into
// immutable aggregate summaries.
package stats

import (
	"math"

	"github.com/XiaoConstantine/tunelab/pkg/errors"
)

// AggregateStatistics summarizes one iteration's finished sample batch.
// Constructed once via FromCounts and never mutated afterward.
type AggregateStatistics struct {
	SampleCount   int
	SuccessCount  int
	FailureCount  int
	SuccessRate   float64
	TotalTokens   int64
	MeanLatencyMs float64
}

// FromCounts builds an aggregate, deriving failure count and success rate from
// the totals. All invariants are validated here: counts are non-negative,
// successes never exceed the total, and the rate stays in [0,1]. A zero total
// yields a zero rate rather than dividing by zero.
func FromCounts(total, successCount int, totalTokens int64, meanLatencyMs float64) (AggregateStatistics, error) {
	switch {
	case total < 0:
		return AggregateStatistics{}, errors.InvariantViolation("AggregateStatistics",
			"sample count must be non-negative", errors.Fields{"total": total})
	case successCount < 0:
		return AggregateStatistics{}, errors.InvariantViolation("AggregateStatistics",
			"success count must be non-negative", errors.Fields{"success": successCount})
	case successCount > total:
		return AggregateStatistics{}, errors.InvariantViolation("AggregateStatistics",
			"success count exceeds sample count", errors.Fields{"total": total, "success": successCount})
	case totalTokens < 0:
		return AggregateStatistics{}, errors.InvariantViolation("AggregateStatistics",
			"token total must be non-negative", errors.Fields{"tokens": totalTokens})
	case meanLatencyMs < 0:
		return AggregateStatistics{}, errors.InvariantViolation("AggregateStatistics",
			"mean latency must be non-negative", errors.Fields{"latency_ms": meanLatencyMs})
	}

	rate := 0.0
	if total > 0 {
		rate = float64(successCount) / float64(total)
	}

	return AggregateStatistics{
		SampleCount:   total,
		SuccessCount:  successCount,
		FailureCount:  total - successCount,
		SuccessRate:   rate,
		TotalTokens:   totalTokens,
		MeanLatencyMs: meanLatencyMs,
	}, nil
}

// AvgTokensPerSample returns the mean token cost of one sample, zero for an
// empty batch.
func (s AggregateStatistics) AvgTokensPerSample() float64 {
	if s.SampleCount == 0 {
		return 0
	}
	return float64(s.TotalTokens) / float64(s.SampleCount)
}

// MeanLatencyRounded returns the mean latency rounded to whole milliseconds.
func (s AggregateStatistics) MeanLatencyRounded() int {
	return int(math.Round(s.MeanLatencyMs))
}
