package optimize

import (
	"fmt"
	"strings"
	"time"

	"github.com/XiaoConstantine/tunelab/pkg/errors"
)

// TerminationCause is the tagged cause explaining why a run stopped.
type TerminationCause int

const (
	CauseMaxIterations TerminationCause = iota
	CauseNoImprovement
	CauseTimeBudget
	CauseExecutionFailure
	CauseScoringFailure
	CauseMutationFailure
)

// String provides the reporting names for termination causes.
func (c TerminationCause) String() string {
	return [...]string{
		"MAX_ITERATIONS",
		"NO_IMPROVEMENT",
		"TIME_BUDGET",
		"EXECUTION_FAILURE",
		"SCORING_FAILURE",
		"MUTATION_FAILURE",
	}[c]
}

// TerminationReason pairs a cause with a human-readable explanation.
type TerminationReason struct {
	Cause       TerminationCause
	Description string
}

// TerminationPolicy decides, after each iteration, whether the run should
// stop. A nil return means continue. Policies are consulted on a read-only
// history snapshot and must never fail.
type TerminationPolicy interface {
	ShouldTerminate(history *History) *TerminationReason
	Description() string
}

// MaxIterationsPolicy stops once the history holds the configured number of
// iterations.
type MaxIterationsPolicy struct {
	max int
}

// NewMaxIterationsPolicy rejects non-positive limits at construction.
func NewMaxIterationsPolicy(max int) (*MaxIterationsPolicy, error) {
	if max <= 0 {
		return nil, errors.Newf(errors.InvalidInput, "max iterations must be positive, got %d", max)
	}
	return &MaxIterationsPolicy{max: max}, nil
}

func (p *MaxIterationsPolicy) ShouldTerminate(history *History) *TerminationReason {
	if history.IterationCount() >= p.max {
		return &TerminationReason{
			Cause:       CauseMaxIterations,
			Description: fmt.Sprintf("reached %d iterations", p.max),
		}
	}
	return nil
}

func (p *MaxIterationsPolicy) Description() string {
	return fmt.Sprintf("stop after %d iterations", p.max)
}

// NoImprovementPolicy stops once the best iteration is at least window
// iterations in the past.
type NoImprovementPolicy struct {
	window int
}

// NewNoImprovementPolicy rejects non-positive windows at construction.
func NewNoImprovementPolicy(window int) (*NoImprovementPolicy, error) {
	if window <= 0 {
		return nil, errors.Newf(errors.InvalidInput, "no-improvement window must be positive, got %d", window)
	}
	return &NoImprovementPolicy{window: window}, nil
}

func (p *NoImprovementPolicy) ShouldTerminate(history *History) *TerminationReason {
	best := history.BestIterationIndex()
	if best < 0 {
		// No scored iteration yet, nothing to measure stagnation against.
		return nil
	}
	current := history.IterationCount() - 1
	if current-best >= p.window {
		return &TerminationReason{
			Cause:       CauseNoImprovement,
			Description: fmt.Sprintf("no improvement in %d iterations since iteration %d", current-best, best),
		}
	}
	return nil
}

func (p *NoImprovementPolicy) Description() string {
	return fmt.Sprintf("stop after %d iterations without improvement", p.window)
}

// TimeBudgetPolicy stops once the run has been going longer than the budget.
// The check happens between iterations only; a long iteration can overshoot
// the budget.
type TimeBudgetPolicy struct {
	budget time.Duration
	now    func() time.Time
}

// NewTimeBudgetPolicy rejects non-positive budgets at construction.
func NewTimeBudgetPolicy(budget time.Duration) (*TimeBudgetPolicy, error) {
	if budget <= 0 {
		return nil, errors.Newf(errors.InvalidInput, "time budget must be positive, got %v", budget)
	}
	return &TimeBudgetPolicy{budget: budget, now: time.Now}, nil
}

func (p *TimeBudgetPolicy) ShouldTerminate(history *History) *TerminationReason {
	elapsed := p.now().Sub(history.StartTime())
	if elapsed > p.budget {
		return &TerminationReason{
			Cause:       CauseTimeBudget,
			Description: fmt.Sprintf("time budget %v exhausted after %v", p.budget, elapsed.Round(time.Millisecond)),
		}
	}
	return nil
}

func (p *TimeBudgetPolicy) Description() string {
	return fmt.Sprintf("stop after %v of wall time", p.budget)
}

// CompositePolicy ORs its sub-policies in declaration order, returning the
// first reason produced.
type CompositePolicy struct {
	policies []TerminationPolicy
}

// NewCompositePolicy rejects an empty policy list at construction.
func NewCompositePolicy(policies ...TerminationPolicy) (*CompositePolicy, error) {
	if len(policies) == 0 {
		return nil, errors.New(errors.InvalidInput, "composite policy requires at least one sub-policy")
	}
	for i, p := range policies {
		if p == nil {
			return nil, errors.Newf(errors.InvalidInput, "composite policy sub-policy %d is nil", i)
		}
	}
	return &CompositePolicy{policies: policies}, nil
}

func (p *CompositePolicy) ShouldTerminate(history *History) *TerminationReason {
	for _, sub := range p.policies {
		if reason := sub.ShouldTerminate(history); reason != nil {
			return reason
		}
	}
	return nil
}

func (p *CompositePolicy) Description() string {
	parts := make([]string, len(p.policies))
	for i, sub := range p.policies {
		parts[i] = sub.Description()
	}
	return strings.Join(parts, " OR ")
}
