package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/tunelab/pkg/errors"
	"github.com/XiaoConstantine/tunelab/pkg/optimize"
)

const fullExperiment = `
use_case: summarize-ticket
experiment_id: exp-7
objective: maximize
samples_per_iteration: 20
treatment:
  factor: temperature
  type: float
  initial: 0.2
  candidates: [0.2, 0.4, 0.7]
fixed_factors:
  model: claude-3-haiku-20240307
scorer:
  kind: success_rate
termination:
  max_iterations: 10
  no_improvement_window: 3
  time_budget: 5m
`

func TestParseFullExperiment(t *testing.T) {
	cfg, err := Parse([]byte(fullExperiment))
	require.NoError(t, err)

	assert.Equal(t, "summarize-ticket", cfg.UseCaseID)
	assert.Equal(t, "exp-7", cfg.ExperimentID)
	assert.Equal(t, optimize.Maximize, cfg.Objective)
	assert.Equal(t, "temperature", cfg.TreatmentFactor)
	assert.Equal(t, optimize.FactorTypeFloat, cfg.TreatmentFactorType)
	assert.Equal(t, 0.2, cfg.InitialValue)
	assert.Equal(t, 20, cfg.SamplesPerIteration)

	model, ok := cfg.FixedFactors.Value("model")
	require.True(t, ok)
	assert.Equal(t, "claude-3-haiku-20240307", model)

	assert.Equal(t, "success_rate", cfg.Scorer.Name())
	assert.IsType(t, &optimize.CandidateListMutator{}, cfg.Mutator)
	assert.Contains(t, cfg.Termination.Description(), " OR ")
}

func TestParseStepMutator(t *testing.T) {
	cfg, err := Parse([]byte(`
use_case: summarize-ticket
samples_per_iteration: 10
treatment:
  factor: temperature
  type: float
  initial: 0.5
  step: {size: 0.1, min: 0.0, max: 1.0}
termination:
  max_iterations: 5
`))
	require.NoError(t, err)
	assert.IsType(t, &optimize.NumericStepMutator{}, cfg.Mutator)
}

func TestParseWeightedScorer(t *testing.T) {
	cfg, err := Parse([]byte(`
use_case: summarize-ticket
samples_per_iteration: 10
treatment:
  factor: temperature
  type: float
  initial: 0.5
scorer:
  kind: weighted
  terms:
    - {kind: success_rate, weight: 0.8}
    - {kind: cost_efficiency, weight: 0.2}
termination:
  max_iterations: 5
`))
	require.NoError(t, err)
	assert.Equal(t, "weighted", cfg.Scorer.Name())
	assert.IsType(t, optimize.NoOpMutator{}, cfg.Mutator)
}

func TestParseRejectsBadExperiments(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", `
use_case: x
samples_per_iteration: 10
treatmnt: {factor: t, type: float, initial: 0.5}
termination: {max_iterations: 5}
`},
		{"missing use case", `
samples_per_iteration: 10
treatment: {factor: t, type: float, initial: 0.5}
termination: {max_iterations: 5}
`},
		{"unknown factor type", `
use_case: x
samples_per_iteration: 10
treatment: {factor: t, type: complex, initial: 0.5}
termination: {max_iterations: 5}
`},
		{"type mismatch", `
use_case: x
samples_per_iteration: 10
treatment: {factor: t, type: float, initial: warm}
termination: {max_iterations: 5}
`},
		{"no termination", `
use_case: x
samples_per_iteration: 10
treatment: {factor: t, type: float, initial: 0.5}
termination: {}
`},
		{"candidates and step", `
use_case: x
samples_per_iteration: 10
treatment:
  factor: t
  type: float
  initial: 0.5
  candidates: [0.1]
  step: {size: 0.1, min: 0, max: 1}
termination: {max_iterations: 5}
`},
		{"step on string factor", `
use_case: x
samples_per_iteration: 10
treatment:
  factor: t
  type: string
  initial: a
  step: {size: 0.1, min: 0, max: 1}
termination: {max_iterations: 5}
`},
		{"bad time budget", `
use_case: x
samples_per_iteration: 10
treatment: {factor: t, type: float, initial: 0.5}
termination: {time_budget: soon}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestParseCoercesWholeFloats(t *testing.T) {
	cfg, err := Parse([]byte(`
use_case: x
samples_per_iteration: 10
treatment:
  factor: temperature
  type: float
  initial: 1
termination: {max_iterations: 5}
`))
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.InitialValue)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experiment.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fullExperiment), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "summarize-ticket", cfg.UseCaseID)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.InvalidInput))
}
