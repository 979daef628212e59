package executors

import (
	"context"
	stderrors "errors"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/XiaoConstantine/tunelab/pkg/contract"
	"github.com/XiaoConstantine/tunelab/pkg/errors"
	"github.com/XiaoConstantine/tunelab/pkg/factors"
	"github.com/XiaoConstantine/tunelab/pkg/logging"
	"github.com/XiaoConstantine/tunelab/pkg/optimize"
)

// Factor names the LLM executor understands. The treatment factor can be any
// of them; unknown factors are ignored so contracts can carry extra context.
const (
	FactorModel       = "model"
	FactorTemperature = "temperature"
	FactorMaxTokens   = "max_tokens"
)

// PromptFunc renders the prompt for one sample of a configuration. The
// sample index lets callers vary inputs across a batch.
type PromptFunc func(suit factors.Suit, sample int) (string, error)

// LLMExecutor runs a prompt against the Anthropic Messages API once per
// sample and judges each response with the use case's contract. Token usage
// comes from the API response; latency is wall time around the call.
type LLMExecutor struct {
	client   *anthropic.Client
	contract *contract.Contract
	prompt   PromptFunc
	pooled   *PooledExecutor

	defaultModel     anthropic.Model
	defaultMaxTokens int64
}

// LLMExecutorOption configures an LLMExecutor.
type LLMExecutorOption func(*LLMExecutor)

// WithDefaultModel sets the model used when the suit carries none.
func WithDefaultModel(model string) LLMExecutorOption {
	return func(e *LLMExecutor) {
		e.defaultModel = anthropic.Model(model)
	}
}

// WithDefaultMaxTokens sets the completion budget used when the suit carries
// none.
func WithDefaultMaxTokens(n int64) LLMExecutorOption {
	return func(e *LLMExecutor) {
		if n > 0 {
			e.defaultMaxTokens = n
		}
	}
}

// NewLLMExecutor builds an executor from an API key (falling back to
// ANTHROPIC_API_KEY), the contract to judge responses with, and a prompt
// renderer.
func NewLLMExecutor(apiKey string, c *contract.Contract, prompt PromptFunc, opts ...LLMExecutorOption) (*LLMExecutor, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New(errors.InvalidInput, "API key is required")
	}
	if c == nil {
		return nil, errors.New(errors.InvalidInput, "contract is required")
	}
	if prompt == nil {
		return nil, errors.New(errors.InvalidInput, "prompt function is required")
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	e := &LLMExecutor{
		client:           &client,
		contract:         c,
		prompt:           prompt,
		defaultModel:     anthropic.ModelClaude_3_Haiku_20240307,
		defaultMaxTokens: 1024,
	}
	for _, opt := range opts {
		opt(e)
	}

	pooled, err := NewPooledExecutor(e.runSample)
	if err != nil {
		return nil, err
	}
	e.pooled = pooled
	return e, nil
}

// Execute implements optimize.Executor.
func (e *LLMExecutor) Execute(ctx context.Context, suit factors.Suit, samples int) ([]optimize.SampleOutcome, error) {
	return e.pooled.Execute(ctx, suit, samples)
}

func (e *LLMExecutor) runSample(ctx context.Context, suit factors.Suit, sample int) (optimize.SampleOutcome, error) {
	logger := logging.GetLogger()

	prompt, err := e.prompt(suit, sample)
	if err != nil {
		return optimize.SampleOutcome{}, errors.Wrap(err, errors.ExecutionFailed, "failed to render prompt")
	}
	if err := e.contract.CheckPreconditions(prompt); err != nil {
		return optimize.SampleOutcome{}, err
	}

	params := anthropic.MessageNewParams{
		Model: e.model(suit),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(prompt),
			),
		},
		MaxTokens: e.maxTokens(suit),
	}
	if temp, ok := suitFloat(suit, FactorTemperature); ok {
		params.Temperature = anthropic.Float(temp)
	}

	start := time.Now()
	message, err := e.client.Messages.New(ctx, params)
	elapsed := time.Since(start)

	if err != nil {
		var apiErr *anthropic.Error
		if stderrors.As(err, &apiErr) {
			logger.Error(ctx, "Anthropic API error: status code %d", apiErr.StatusCode)
		}
		return optimize.SampleOutcome{}, errors.WithFields(
			errors.Wrap(err, errors.LLMGenerationFailed, "failed to generate response"),
			errors.Fields{"model": string(e.model(suit)), "sample": sample},
		)
	}
	if message == nil || len(message.Content) == 0 {
		return optimize.SampleOutcome{}, errors.New(errors.InvalidResponse, "received empty content from Anthropic API")
	}

	var responseText string
	if block := message.Content[0]; block.Type == "text" {
		responseText = block.Text
	}

	tokens := message.Usage.InputTokens + message.Usage.OutputTokens
	logger.Debug(ctx, "sample %d: %d prompt tokens, %d completion tokens, %v",
		sample, message.Usage.InputTokens, message.Usage.OutputTokens, elapsed)

	return optimize.SampleOutcome{
		Checks:         e.contract.Evaluate(responseText),
		WithinDuration: e.contract.WithinDuration(elapsed),
		Tokens:         tokens,
		LatencyMs:      float64(elapsed) / float64(time.Millisecond),
	}, nil
}

func (e *LLMExecutor) model(suit factors.Suit) anthropic.Model {
	if v, ok := suit.Value(FactorModel); ok {
		if s, ok := v.(string); ok && s != "" {
			return anthropic.Model(s)
		}
	}
	return e.defaultModel
}

func (e *LLMExecutor) maxTokens(suit factors.Suit) int64 {
	if v, ok := suit.Value(FactorMaxTokens); ok {
		switch n := v.(type) {
		case int:
			return int64(n)
		case int64:
			return n
		}
	}
	return e.defaultMaxTokens
}

func suitFloat(suit factors.Suit, name string) (float64, bool) {
	v, ok := suit.Value(name)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}
