package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/tunelab/pkg/errors"
	"github.com/XiaoConstantine/tunelab/pkg/factors"
)

func validBuilder(t *testing.T) *ConfigBuilder {
	t.Helper()
	policy, err := NewMaxIterationsPolicy(5)
	require.NoError(t, err)

	return NewConfigBuilder().
		WithUseCaseID("summarize-ticket").
		WithTreatmentFactor("temperature", FactorTypeFloat, 0.7).
		WithScorer(SuccessRateScorer{}).
		WithMutator(NoOpMutator{}).
		WithTermination(policy).
		WithSamplesPerIteration(10)
}

func TestConfigBuilderHappyPath(t *testing.T) {
	cfg, err := validBuilder(t).
		WithExperimentID("exp-7").
		WithObjective(Minimize).
		WithFixedFactors(factors.New(map[string]interface{}{"model": "haiku"})).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "summarize-ticket", cfg.UseCaseID)
	assert.Equal(t, "exp-7", cfg.ExperimentID)
	assert.Equal(t, Minimize, cfg.Objective)
	assert.Equal(t, "temperature", cfg.TreatmentFactor)
	assert.Equal(t, 0.7, cfg.InitialValue)
	assert.Equal(t, 10, cfg.SamplesPerIteration)
}

func TestConfigBuilderDefaultsExperimentID(t *testing.T) {
	cfg, err := validBuilder(t).Build()
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.ExperimentID)

	other, err := validBuilder(t).Build()
	require.NoError(t, err)
	assert.NotEqual(t, cfg.ExperimentID, other.ExperimentID)
}

func TestConfigBuilderRequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		alter func(*ConfigBuilder) *ConfigBuilder
	}{
		{"missing use case", func(b *ConfigBuilder) *ConfigBuilder { return b.WithUseCaseID("") }},
		{"missing scorer", func(b *ConfigBuilder) *ConfigBuilder { return b.WithScorer(nil) }},
		{"missing mutator", func(b *ConfigBuilder) *ConfigBuilder { return b.WithMutator(nil) }},
		{"missing termination", func(b *ConfigBuilder) *ConfigBuilder { return b.WithTermination(nil) }},
		{"zero samples", func(b *ConfigBuilder) *ConfigBuilder { return b.WithSamplesPerIteration(0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.alter(validBuilder(t)).Build()
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ValidationFailed))
		})
	}
}

func TestConfigBuilderMissingInitialValue(t *testing.T) {
	_, err := validBuilder(t).
		WithTreatmentFactor("temperature", FactorTypeFloat, nil).
		Build()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ValidationFailed))
}

func TestConfigBuilderFactorTypeMismatch(t *testing.T) {
	_, err := validBuilder(t).
		WithTreatmentFactor("temperature", FactorTypeFloat, "warm").
		Build()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ValidationFailed))

	_, err = validBuilder(t).
		WithTreatmentFactor("model", FactorTypeString, 42).
		Build()
	require.Error(t, err)

	_, err = validBuilder(t).
		WithTreatmentFactor("retries", FactorTypeInt, 3).
		Build()
	assert.NoError(t, err)

	_, err = validBuilder(t).
		WithTreatmentFactor("streaming", FactorTypeBool, true).
		Build()
	assert.NoError(t, err)
}

func TestConfigBuilderRejectsTreatmentInFixedFactors(t *testing.T) {
	_, err := validBuilder(t).
		WithFixedFactors(factors.New(map[string]interface{}{"temperature": 0.2})).
		Build()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ValidationFailed))
}

func TestConfigBuilderRejectsUnknownFactorType(t *testing.T) {
	_, err := validBuilder(t).
		WithTreatmentFactor("temperature", FactorType("complex"), 0.7).
		Build()
	require.Error(t, err)
}
