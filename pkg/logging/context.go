package logging

import (
	"context"
)

type contextKey string

const (
	runIDKey     contextKey = "tunelab.run_id"
	useCaseIDKey contextKey = "tunelab.use_case_id"
	iterationKey contextKey = "tunelab.iteration"
)

// WithRunID attaches an optimization run identifier to the context so that
// every log entry emitted during the run carries it.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// GetRunID extracts the run identifier from the context.
func GetRunID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok
}

// WithUseCaseID attaches the use case under test to the context.
func WithUseCaseID(ctx context.Context, useCaseID string) context.Context {
	return context.WithValue(ctx, useCaseIDKey, useCaseID)
}

// GetUseCaseID extracts the use case identifier from the context.
func GetUseCaseID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(useCaseIDKey).(string)
	return id, ok
}

// WithIteration attaches the current iteration number to the context.
func WithIteration(ctx context.Context, iteration int) context.Context {
	return context.WithValue(ctx, iterationKey, iteration)
}

// GetIteration extracts the iteration number from the context.
func GetIteration(ctx context.Context) (int, bool) {
	n, ok := ctx.Value(iterationKey).(int)
	return n, ok
}
