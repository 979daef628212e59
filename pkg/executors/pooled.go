// Package executors provides sample executors for the optimization loop: a
// bounded-concurrency wrapper around a per-sample function and an executor
// backed by the Anthropic Messages API.
package executors

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/XiaoConstantine/tunelab/pkg/errors"
	"github.com/XiaoConstantine/tunelab/pkg/factors"
	"github.com/XiaoConstantine/tunelab/pkg/optimize"
)

// SampleFunc produces one judged sample for a factor configuration.
type SampleFunc func(ctx context.Context, suit factors.Suit, sample int) (optimize.SampleOutcome, error)

// PooledExecutor fans one iteration's batch out over a bounded goroutine
// pool. The orchestrator sees only the materialized, order-preserving list;
// any sample error fails the whole batch.
type PooledExecutor struct {
	sample        SampleFunc
	maxGoroutines int
}

// PooledExecutorOption configures a PooledExecutor.
type PooledExecutorOption func(*PooledExecutor)

// WithMaxGoroutines bounds the concurrent samples. Defaults to 4.
func WithMaxGoroutines(n int) PooledExecutorOption {
	return func(e *PooledExecutor) {
		if n > 0 {
			e.maxGoroutines = n
		}
	}
}

// NewPooledExecutor wraps a per-sample function into a batch executor.
func NewPooledExecutor(sample SampleFunc, opts ...PooledExecutorOption) (*PooledExecutor, error) {
	if sample == nil {
		return nil, errors.New(errors.InvalidInput, "sample function is required")
	}
	e := &PooledExecutor{
		sample:        sample,
		maxGoroutines: 4,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Execute implements optimize.Executor.
func (e *PooledExecutor) Execute(ctx context.Context, suit factors.Suit, samples int) ([]optimize.SampleOutcome, error) {
	if samples <= 0 {
		return nil, errors.Newf(errors.InvalidInput, "sample count must be positive, got %d", samples)
	}

	outcomes := make([]optimize.SampleOutcome, samples)

	var (
		mu       sync.Mutex
		firstErr error
	)

	p := pool.New().WithMaxGoroutines(e.maxGoroutines)
	for i := 0; i < samples; i++ {
		i := i
		p.Go(func() {
			outcome, err := e.sample(ctx, suit, i)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			outcomes[i] = outcome
		})
	}
	p.Wait()

	if firstErr != nil {
		return nil, errors.WithFields(
			errors.Wrap(firstErr, errors.ExecutionFailed, "sample batch failed"),
			errors.Fields{"suit": suit.String(), "samples": samples},
		)
	}
	return outcomes, nil
}
