// Package config loads experiment files: YAML descriptions of an optimization
// run that compile into a validated optimize.Config.
package config

import (
	"bytes"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/XiaoConstantine/tunelab/pkg/errors"
	"github.com/XiaoConstantine/tunelab/pkg/factors"
	"github.com/XiaoConstantine/tunelab/pkg/optimize"
)

// ExperimentFile is the on-disk shape of an experiment.
type ExperimentFile struct {
	UseCase             string                 `yaml:"use_case" validate:"required"`
	ExperimentID        string                 `yaml:"experiment_id"`
	Objective           string                 `yaml:"objective"`
	SamplesPerIteration int                    `yaml:"samples_per_iteration" validate:"required,min=1"`
	Treatment           TreatmentSpec          `yaml:"treatment"`
	FixedFactors        map[string]interface{} `yaml:"fixed_factors"`
	Scorer              ScorerSpec             `yaml:"scorer"`
	Termination         TerminationSpec        `yaml:"termination"`
}

// TreatmentSpec declares the factor under optimization and how to move it.
// Candidates and step are mutually exclusive; with neither the factor stays
// fixed and the run only measures.
type TreatmentSpec struct {
	Factor     string        `yaml:"factor" validate:"required"`
	Type       string        `yaml:"type" validate:"required,oneof=string float int bool"`
	Initial    interface{}   `yaml:"initial"`
	Candidates []interface{} `yaml:"candidates"`
	Step       *StepSpec     `yaml:"step"`
}

// StepSpec configures numeric hill climbing.
type StepSpec struct {
	Size float64 `yaml:"size" validate:"required,gt=0"`
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
}

// ScorerSpec selects the scoring function. Kind defaults to success_rate.
type ScorerSpec struct {
	Kind  string           `yaml:"kind"`
	Terms []ScorerTermSpec `yaml:"terms"`
}

// ScorerTermSpec is one component of a weighted scorer.
type ScorerTermSpec struct {
	Kind   string  `yaml:"kind" validate:"required"`
	Weight float64 `yaml:"weight" validate:"required,gt=0"`
}

// TerminationSpec configures the stop conditions; at least one must be set.
// Multiple conditions compose with OR.
type TerminationSpec struct {
	MaxIterations       int    `yaml:"max_iterations"`
	NoImprovementWindow int    `yaml:"no_improvement_window"`
	TimeBudget          string `yaml:"time_budget"`
}

var validate = validator.New()

// Load reads and compiles an experiment file.
func Load(path string) (optimize.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return optimize.Config{}, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to read experiment file"),
			errors.Fields{"path": path},
		)
	}
	return Parse(data)
}

// Parse compiles raw experiment YAML into a validated optimize.Config.
// Unknown fields are rejected so typos fail loudly.
func Parse(data []byte) (optimize.Config, error) {
	var file ExperimentFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return optimize.Config{}, errors.Wrap(err, errors.InvalidInput, "failed to parse experiment file")
	}

	if err := validate.Struct(file); err != nil {
		return optimize.Config{}, errors.Wrap(err, errors.ValidationFailed, "invalid experiment file")
	}

	return file.Compile()
}

// Compile turns the parsed file into a runnable configuration.
func (f ExperimentFile) Compile() (optimize.Config, error) {
	factorType := optimize.FactorType(f.Treatment.Type)

	initial, err := coerceValue(factorType, f.Treatment.Initial)
	if err != nil {
		return optimize.Config{}, err
	}

	objective := optimize.Maximize
	if f.Objective != "" {
		objective, err = optimize.ParseObjective(f.Objective)
		if err != nil {
			return optimize.Config{}, err
		}
	}

	scorer, err := buildScorer(f.Scorer)
	if err != nil {
		return optimize.Config{}, err
	}
	mutator, err := buildMutator(factorType, f.Treatment)
	if err != nil {
		return optimize.Config{}, err
	}
	termination, err := buildTermination(f.Termination)
	if err != nil {
		return optimize.Config{}, err
	}

	return optimize.NewConfigBuilder().
		WithUseCaseID(f.UseCase).
		WithExperimentID(f.ExperimentID).
		WithTreatmentFactor(f.Treatment.Factor, factorType, initial).
		WithFixedFactors(factors.New(f.FixedFactors)).
		WithObjective(objective).
		WithScorer(scorer).
		WithMutator(mutator).
		WithTermination(termination).
		WithSamplesPerIteration(f.SamplesPerIteration).
		Build()
}

func buildScorer(spec ScorerSpec) (optimize.Scorer, error) {
	switch spec.Kind {
	case "", "success_rate":
		return optimize.SuccessRateScorer{}, nil
	case "cost_efficiency":
		return optimize.CostEfficiencyScorer{}, nil
	case "weighted":
		terms := make([]optimize.WeightedTerm, 0, len(spec.Terms))
		for _, t := range spec.Terms {
			sub, err := buildScorer(ScorerSpec{Kind: t.Kind})
			if err != nil {
				return nil, err
			}
			terms = append(terms, optimize.WeightedTerm{Scorer: sub, Weight: t.Weight})
		}
		return optimize.NewWeightedScorer(terms...)
	default:
		return nil, errors.Newf(errors.ValidationFailed, "unknown scorer kind %q", spec.Kind)
	}
}

func buildMutator(factorType optimize.FactorType, spec TreatmentSpec) (optimize.FactorMutator, error) {
	if len(spec.Candidates) > 0 && spec.Step != nil {
		return nil, errors.New(errors.ValidationFailed, "treatment declares both candidates and step")
	}

	switch {
	case len(spec.Candidates) > 0:
		candidates := make([]interface{}, 0, len(spec.Candidates))
		for _, c := range spec.Candidates {
			coerced, err := coerceValue(factorType, c)
			if err != nil {
				return nil, err
			}
			candidates = append(candidates, coerced)
		}
		return optimize.NewCandidateListMutator(candidates...)
	case spec.Step != nil:
		if factorType != optimize.FactorTypeFloat && factorType != optimize.FactorTypeInt {
			return nil, errors.Newf(errors.ValidationFailed, "step mutation requires a numeric factor, got %q", factorType)
		}
		return optimize.NewNumericStepMutator(spec.Step.Size, spec.Step.Min, spec.Step.Max)
	default:
		return optimize.NoOpMutator{}, nil
	}
}

func buildTermination(spec TerminationSpec) (optimize.TerminationPolicy, error) {
	var policies []optimize.TerminationPolicy

	if spec.MaxIterations > 0 {
		p, err := optimize.NewMaxIterationsPolicy(spec.MaxIterations)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	if spec.NoImprovementWindow > 0 {
		p, err := optimize.NewNoImprovementPolicy(spec.NoImprovementWindow)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	if spec.TimeBudget != "" {
		budget, err := time.ParseDuration(spec.TimeBudget)
		if err != nil {
			return nil, errors.Wrap(err, errors.ValidationFailed, "invalid time budget")
		}
		p, err := optimize.NewTimeBudgetPolicy(budget)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}

	if len(policies) == 0 {
		return nil, errors.New(errors.ValidationFailed, "experiment declares no termination condition")
	}
	if len(policies) == 1 {
		return policies[0], nil
	}
	return optimize.NewCompositePolicy(policies...)
}

// coerceValue normalizes YAML's decoded scalars to the declared factor type.
// YAML hands back int for whole numbers even in float positions.
func coerceValue(t optimize.FactorType, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, errors.New(errors.ValidationFailed, "treatment value is missing")
	}

	switch t {
	case optimize.FactorTypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case optimize.FactorTypeFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		}
	case optimize.FactorTypeInt:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		}
	case optimize.FactorTypeBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	}
	return nil, errors.WithFields(
		errors.Newf(errors.ValidationFailed, "value does not match declared factor type %q", t),
		errors.Fields{"value": v},
	)
}
