package stats

import (
	"math"

	"github.com/XiaoConstantine/tunelab/pkg/errors"
)

// z value for a 95% two-sided interval.
const z95 = 1.96

// Interval is a two-sided confidence interval on an observed rate, clamped to
// [0,1].
type Interval struct {
	Lower float64
	Upper float64
}

// ConfidenceInterval computes the Wald 95% interval for an observed success
// rate p over n samples: p ± 1.96·√(p·(1-p)/n).
func ConfidenceInterval(p float64, n int) (Interval, error) {
	if n <= 0 {
		return Interval{}, errors.InvariantViolation("Interval",
			"sample count must be positive", errors.Fields{"n": n})
	}
	if p < 0 || p > 1 {
		return Interval{}, errors.InvariantViolation("Interval",
			"rate outside [0,1]", errors.Fields{"p": p})
	}

	se := math.Sqrt(p * (1 - p) / float64(n))
	margin := z95 * se

	return Interval{
		Lower: clamp01(p - margin),
		Upper: clamp01(p + margin),
	}, nil
}

// MinimumAcceptableRate derives a conservative threshold from an observed
// rate: the lower Wald bound rounded to 4 decimal places.
func MinimumAcceptableRate(p float64, n int) (float64, error) {
	ci, err := ConfidenceInterval(p, n)
	if err != nil {
		return 0, err
	}
	return math.Round(ci.Lower*10000) / 10000, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
