package executors

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/tunelab/pkg/contract"
	"github.com/XiaoConstantine/tunelab/pkg/errors"
	"github.com/XiaoConstantine/tunelab/pkg/factors"
	"github.com/XiaoConstantine/tunelab/pkg/optimize"
)

func TestPooledExecutorPreservesOrder(t *testing.T) {
	sample := func(_ context.Context, _ factors.Suit, i int) (optimize.SampleOutcome, error) {
		return optimize.SampleOutcome{
			Checks: []contract.PostconditionResult{contract.Passed("ok")},
			Tokens: int64(i),
		}, nil
	}

	exec, err := NewPooledExecutor(sample, WithMaxGoroutines(8))
	require.NoError(t, err)

	outcomes, err := exec.Execute(context.Background(), factors.Empty(), 50)
	require.NoError(t, err)
	require.Len(t, outcomes, 50)

	for i, outcome := range outcomes {
		assert.Equal(t, int64(i), outcome.Tokens)
		assert.True(t, outcome.Passed())
	}
}

func TestPooledExecutorFailsBatchOnSampleError(t *testing.T) {
	var calls int32
	sample := func(_ context.Context, _ factors.Suit, i int) (optimize.SampleOutcome, error) {
		atomic.AddInt32(&calls, 1)
		if i == 3 {
			return optimize.SampleOutcome{}, errors.New(errors.LLMGenerationFailed, "rate limited")
		}
		return optimize.SampleOutcome{}, nil
	}

	exec, err := NewPooledExecutor(sample)
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), factors.Empty(), 10)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ExecutionFailed))
}

func TestPooledExecutorRejectsBadInput(t *testing.T) {
	_, err := NewPooledExecutor(nil)
	assert.True(t, errors.HasCode(err, errors.InvalidInput))

	exec, err := NewPooledExecutor(func(context.Context, factors.Suit, int) (optimize.SampleOutcome, error) {
		return optimize.SampleOutcome{}, nil
	})
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), factors.Empty(), 0)
	assert.True(t, errors.HasCode(err, errors.InvalidInput))
}

func TestNewLLMExecutorValidation(t *testing.T) {
	c := contract.New(contract.WithPostcondition("non-empty", nil))
	prompt := func(factors.Suit, int) (string, error) { return "hi", nil }

	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := NewLLMExecutor("", c, prompt)
	assert.True(t, errors.HasCode(err, errors.InvalidInput))

	_, err = NewLLMExecutor("key", nil, prompt)
	assert.True(t, errors.HasCode(err, errors.InvalidInput))

	_, err = NewLLMExecutor("key", c, nil)
	assert.True(t, errors.HasCode(err, errors.InvalidInput))

	exec, err := NewLLMExecutor("key", c, prompt, WithDefaultModel("claude-3-haiku-20240307"), WithDefaultMaxTokens(256))
	require.NoError(t, err)
	assert.NotNil(t, exec)
}
