package optimize

import (
	"context"

	"github.com/XiaoConstantine/tunelab/pkg/contract"
	"github.com/XiaoConstantine/tunelab/pkg/factors"
)

// SampleOutcome is one judged sample: the ordered contract verdicts plus the
// cost accounting the aggregator needs. Success is determined solely by the
// verdict sequence, never by side fields.
type SampleOutcome struct {
	Checks         []contract.PostconditionResult
	WithinDuration bool
	Tokens         int64
	LatencyMs      float64
}

// Passed reports whether every contract check passed for this sample.
func (o SampleOutcome) Passed() bool {
	return contract.AllPassed(o.Checks)
}

// Executor produces one iteration's sample batch for a factor configuration.
// How the N samples are obtained, sequentially or in parallel, is entirely
// the executor's business; the orchestrator only consumes the materialized
// list. An error means the batch could not be produced and is fatal to the
// run.
type Executor interface {
	Execute(ctx context.Context, suit factors.Suit, samples int) ([]SampleOutcome, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, suit factors.Suit, samples int) ([]SampleOutcome, error)

func (f ExecutorFunc) Execute(ctx context.Context, suit factors.Suit, samples int) ([]SampleOutcome, error) {
	return f(ctx, suit, samples)
}

// ProgressObserver is invoked synchronously once per completed iteration with
// the freshly appended record. Purely observational.
type ProgressObserver func(IterationRecord)
