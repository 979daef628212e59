// Package testutil provides shared fakes and builders for exercising the
// optimization loop in tests.
package testutil

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/XiaoConstantine/tunelab/pkg/contract"
	"github.com/XiaoConstantine/tunelab/pkg/factors"
	"github.com/XiaoConstantine/tunelab/pkg/optimize"
)

// PassingOutcome builds a sample outcome whose single check passed.
func PassingOutcome(tokens int64, latencyMs float64) optimize.SampleOutcome {
	return optimize.SampleOutcome{
		Checks:         []contract.PostconditionResult{contract.Passed("check")},
		WithinDuration: true,
		Tokens:         tokens,
		LatencyMs:      latencyMs,
	}
}

// FailingOutcome builds a sample outcome whose single check failed.
func FailingOutcome(tokens int64, latencyMs float64) optimize.SampleOutcome {
	return optimize.SampleOutcome{
		Checks:         []contract.PostconditionResult{contract.Failed("check", "did not hold")},
		WithinDuration: true,
		Tokens:         tokens,
		LatencyMs:      latencyMs,
	}
}

// Batch builds a sample batch with the given number of passing samples out of
// total, spending tokens per sample.
func Batch(total, passing int, tokensPerSample int64, latencyMs float64) []optimize.SampleOutcome {
	outcomes := make([]optimize.SampleOutcome, 0, total)
	for i := 0; i < total; i++ {
		if i < passing {
			outcomes = append(outcomes, PassingOutcome(tokensPerSample, latencyMs))
		} else {
			outcomes = append(outcomes, FailingOutcome(tokensPerSample, latencyMs))
		}
	}
	return outcomes
}

// MockExecutor is a testify mock implementation of optimize.Executor.
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, suit factors.Suit, samples int) ([]optimize.SampleOutcome, error) {
	args := m.Called(ctx, suit, samples)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]optimize.SampleOutcome), args.Error(1)
}

// ScriptedExecutor returns pre-baked batches iteration by iteration, tracking
// the suits it was called with. The last batch repeats once the script runs
// out.
type ScriptedExecutor struct {
	mu      sync.Mutex
	batches [][]optimize.SampleOutcome
	calls   int

	Suits []factors.Suit
}

func NewScriptedExecutor(batches ...[]optimize.SampleOutcome) *ScriptedExecutor {
	return &ScriptedExecutor{batches: batches}
}

func (e *ScriptedExecutor) Execute(_ context.Context, suit factors.Suit, _ int) ([]optimize.SampleOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Suits = append(e.Suits, suit)
	i := e.calls
	e.calls++
	if i >= len(e.batches) {
		i = len(e.batches) - 1
	}
	return e.batches[i], nil
}

// Calls returns how many batches were requested.
func (e *ScriptedExecutor) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
