package optimize

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/XiaoConstantine/tunelab/pkg/errors"
	"github.com/XiaoConstantine/tunelab/pkg/factors"
)

// FactorType declares the expected kind of the treatment factor's values.
type FactorType string

const (
	FactorTypeString FactorType = "string"
	FactorTypeFloat  FactorType = "float"
	FactorTypeInt    FactorType = "int"
	FactorTypeBool   FactorType = "bool"
)

// Config is the validated configuration for one optimization run. Build it
// through NewConfigBuilder; a zero Config is not usable.
type Config struct {
	UseCaseID           string     `validate:"required"`
	ExperimentID        string     // optional, defaults to a fresh uuid
	TreatmentFactor     string     `validate:"required"`
	TreatmentFactorType FactorType `validate:"required,oneof=string float int bool"`
	InitialValue        interface{}
	FixedFactors        factors.Suit // optional
	Objective           Objective
	Scorer              Scorer            `validate:"required"`
	Mutator             FactorMutator     `validate:"required"`
	Termination         TerminationPolicy `validate:"required"`
	SamplesPerIteration int               `validate:"required,min=1"`
	Observer            ProgressObserver  // optional
}

var validate = validator.New()

// ConfigBuilder assembles a Config with named options and validates it at
// Build time. No behavior lives here beyond validation.
type ConfigBuilder struct {
	cfg Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		cfg: Config{
			FixedFactors: factors.Empty(),
			Objective:    Maximize,
		},
	}
}

func (b *ConfigBuilder) WithUseCaseID(id string) *ConfigBuilder {
	b.cfg.UseCaseID = id
	return b
}

func (b *ConfigBuilder) WithExperimentID(id string) *ConfigBuilder {
	b.cfg.ExperimentID = id
	return b
}

func (b *ConfigBuilder) WithTreatmentFactor(name string, factorType FactorType, initial interface{}) *ConfigBuilder {
	b.cfg.TreatmentFactor = name
	b.cfg.TreatmentFactorType = factorType
	b.cfg.InitialValue = initial
	return b
}

func (b *ConfigBuilder) WithFixedFactors(suit factors.Suit) *ConfigBuilder {
	b.cfg.FixedFactors = suit
	return b
}

func (b *ConfigBuilder) WithObjective(objective Objective) *ConfigBuilder {
	b.cfg.Objective = objective
	return b
}

func (b *ConfigBuilder) WithScorer(scorer Scorer) *ConfigBuilder {
	b.cfg.Scorer = scorer
	return b
}

func (b *ConfigBuilder) WithMutator(mutator FactorMutator) *ConfigBuilder {
	b.cfg.Mutator = mutator
	return b
}

func (b *ConfigBuilder) WithTermination(policy TerminationPolicy) *ConfigBuilder {
	b.cfg.Termination = policy
	return b
}

func (b *ConfigBuilder) WithSamplesPerIteration(n int) *ConfigBuilder {
	b.cfg.SamplesPerIteration = n
	return b
}

func (b *ConfigBuilder) WithObserver(observer ProgressObserver) *ConfigBuilder {
	b.cfg.Observer = observer
	return b
}

// Build validates the assembled configuration and fills defaults. The
// returned Config is safe to hand to NewOrchestrator.
func (b *ConfigBuilder) Build() (Config, error) {
	cfg := b.cfg

	if cfg.ExperimentID == "" {
		cfg.ExperimentID = uuid.NewString()
	}

	if err := validate.Struct(cfg); err != nil {
		return Config{}, errors.Wrap(err, errors.ValidationFailed, "invalid optimization config")
	}

	if cfg.InitialValue == nil {
		return Config{}, errors.New(errors.ValidationFailed, "initial treatment factor value is required")
	}
	if err := checkFactorType(cfg.TreatmentFactorType, cfg.InitialValue); err != nil {
		return Config{}, err
	}
	if cfg.FixedFactors.Has(cfg.TreatmentFactor) {
		return Config{}, errors.WithFields(
			errors.New(errors.ValidationFailed, "treatment factor must not appear in fixed factors"),
			errors.Fields{"factor": cfg.TreatmentFactor},
		)
	}

	return cfg, nil
}

func checkFactorType(t FactorType, value interface{}) error {
	ok := false
	switch t {
	case FactorTypeString:
		_, ok = value.(string)
	case FactorTypeFloat:
		switch value.(type) {
		case float64, float32:
			ok = true
		}
	case FactorTypeInt:
		switch value.(type) {
		case int, int64:
			ok = true
		}
	case FactorTypeBool:
		_, ok = value.(bool)
	}
	if !ok {
		return errors.WithFields(
			errors.Newf(errors.ValidationFailed, "initial value does not match declared factor type %q", t),
			errors.Fields{"value": value},
		)
	}
	return nil
}
