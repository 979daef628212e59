// Package contract declares and evaluates service contracts: ordered
// postconditions and derivations judged against one sample's result, producing
// a per-check verdict sequence and an overall pass/fail.
package contract

import (
	"fmt"
	"time"

	"github.com/XiaoConstantine/tunelab/pkg/errors"
)

// CheckFunc validates a value. A nil return means the check holds; a non-nil
// error carries the reason it does not.
type CheckFunc func(value interface{}) error

// TransformFunc derives a new value from the sample result. Failure gates the
// derivation's nested postconditions.
type TransformFunc func(sample interface{}) (interface{}, error)

// Postcondition is a named check evaluated against a sample's (or derived) result.
type Postcondition struct {
	Description string
	Check       CheckFunc
}

// Derivation is a named, possibly-failing transformation of the sample result.
// Its nested postconditions apply only to the derived value and are skipped
// wholesale when the transformation fails.
type Derivation struct {
	Description    string
	Transform      TransformFunc
	Postconditions []Postcondition
}

// Precondition is a named check over the inputs of a sample, evaluated before
// execution. Violations fail fast and carry the offending input.
type Precondition struct {
	Description string
	Check       CheckFunc
}

// Contract holds the ordered checks for one use case under test. Built once
// and reused across many samples; it carries no per-evaluation state.
type Contract struct {
	preconditions   []Precondition
	postconditions  []Postcondition
	derivations     []Derivation
	durationCeiling time.Duration // zero means no ceiling
}

// Option configures a Contract during construction.
type Option func(*Contract)

// WithPostcondition appends a direct postcondition.
func WithPostcondition(description string, check CheckFunc) Option {
	return func(c *Contract) {
		c.postconditions = append(c.postconditions, Postcondition{
			Description: description,
			Check:       check,
		})
	}
}

// WithDerivation appends a derivation with its nested postconditions.
func WithDerivation(description string, transform TransformFunc, nested ...Postcondition) Option {
	return func(c *Contract) {
		c.derivations = append(c.derivations, Derivation{
			Description:    description,
			Transform:      transform,
			Postconditions: nested,
		})
	}
}

// WithPrecondition appends an input gate checked before execution.
func WithPrecondition(description string, check CheckFunc) Option {
	return func(c *Contract) {
		c.preconditions = append(c.preconditions, Precondition{
			Description: description,
			Check:       check,
		})
	}
}

// WithDurationCeiling sets the wall-time ceiling for one sample. The duration
// verdict is a second pass/fail axis, independent of the postcondition list.
func WithDurationCeiling(d time.Duration) Option {
	return func(c *Contract) {
		c.durationCeiling = d
	}
}

// New builds an immutable contract from the given options.
func New(opts ...Option) *Contract {
	c := &Contract{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckCount returns the total number of postcondition verdicts one
// evaluation emits: direct checks plus, per derivation, one verdict for the
// derivation itself and one per nested check.
func (c *Contract) CheckCount() int {
	count := len(c.postconditions)
	for _, d := range c.derivations {
		count += 1 + len(d.Postconditions)
	}
	return count
}

// HasDurationCeiling reports whether a wall-time ceiling was configured.
func (c *Contract) HasDurationCeiling() bool {
	return c.durationCeiling > 0
}

// DurationCeiling returns the configured ceiling, zero when unset.
func (c *Contract) DurationCeiling() time.Duration {
	return c.durationCeiling
}

// WithinDuration reports whether the measured wall time satisfies the ceiling.
// Contracts without a ceiling always pass this axis.
func (c *Contract) WithinDuration(elapsed time.Duration) bool {
	if c.durationCeiling <= 0 {
		return true
	}
	return elapsed <= c.durationCeiling
}

// CheckPreconditions evaluates the input gates in declaration order and fails
// fast on the first violation. The returned error carries the failing check's
// description and the offending input.
func (c *Contract) CheckPreconditions(input interface{}) error {
	for _, pre := range c.preconditions {
		if err := runCheck(pre.Check, input); err != nil {
			return errors.WithFields(
				errors.Wrap(err, errors.ContractViolated, "precondition violated: "+pre.Description),
				errors.Fields{"input": input},
			)
		}
	}
	return nil
}

// Evaluate judges one sample result against the contract, returning the
// ordered verdict sequence. Direct postconditions come first, each evaluated
// independently; derivations follow in declaration order. A failed
// transformation emits one Failed verdict for the derivation and Skipped
// verdicts for all of its nested postconditions.
func (c *Contract) Evaluate(sample interface{}) []PostconditionResult {
	results := make([]PostconditionResult, 0, c.CheckCount())

	for _, post := range c.postconditions {
		results = append(results, judge(post, sample))
	}

	for _, d := range c.derivations {
		derived, err := runTransform(d.Transform, sample)
		if err != nil {
			results = append(results, Failed(d.Description, err.Error()))
			skipReason := fmt.Sprintf("derivation %q failed", d.Description)
			for _, nested := range d.Postconditions {
				results = append(results, Skipped(nested.Description, skipReason))
			}
			continue
		}

		results = append(results, Passed(d.Description))
		for _, nested := range d.Postconditions {
			results = append(results, judge(nested, derived))
		}
	}

	return results
}

func judge(post Postcondition, value interface{}) PostconditionResult {
	if err := runCheck(post.Check, value); err != nil {
		return Failed(post.Description, err.Error())
	}
	return Passed(post.Description)
}

// runCheck converts a panicking check into an ordinary failure so one bad
// check cannot take down the whole evaluation.
func runCheck(check CheckFunc, value interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("check panicked: %v", r)
		}
	}()
	if check == nil {
		return nil
	}
	return check(value)
}

func runTransform(transform TransformFunc, sample interface{}) (derived interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			derived = nil
			err = fmt.Errorf("transform panicked: %v", r)
		}
	}()
	if transform == nil {
		return sample, nil
	}
	return transform(sample)
}
