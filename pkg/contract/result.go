package contract

// Status is the outcome of a single postcondition check.
// It is a closed set: callers should handle all three cases.
type Status int

const (
	StatusPassed Status = iota
	StatusFailed
	StatusSkipped
)

// String provides human-readable status values.
func (s Status) String() string {
	return [...]string{"PASSED", "FAILED", "SKIPPED"}[s]
}

// PostconditionResult records the verdict of one check against one sample.
// Immutable once produced; Reason is empty for passed checks.
type PostconditionResult struct {
	Status      Status
	Description string
	Reason      string
}

// Passed builds a passing verdict for the named check.
func Passed(description string) PostconditionResult {
	return PostconditionResult{Status: StatusPassed, Description: description}
}

// Failed builds a failing verdict with the reason the check did not hold.
func Failed(description, reason string) PostconditionResult {
	return PostconditionResult{Status: StatusFailed, Description: description, Reason: reason}
}

// Skipped builds a skipped verdict; used for nested postconditions whose
// parent derivation failed and which were therefore never evaluated.
func Skipped(description, reason string) PostconditionResult {
	return PostconditionResult{Status: StatusSkipped, Description: description, Reason: reason}
}

// AllPassed reports whether every result in the sequence passed. This is the
// sole success signal consumed by the optimization loop.
func AllPassed(results []PostconditionResult) bool {
	for _, r := range results {
		if r.Status != StatusPassed {
			return false
		}
	}
	return true
}
