package optimize

import (
	"strings"

	"github.com/XiaoConstantine/tunelab/pkg/errors"
)

// Objective is the direction of optimization used when comparing scores.
type Objective int

const (
	Maximize Objective = iota
	Minimize
)

// String provides human-readable objective values.
func (o Objective) String() string {
	if o == Minimize {
		return "MINIMIZE"
	}
	return "MAXIMIZE"
}

// Better reports whether candidate is strictly better than incumbent under
// this objective. Ties are never better, so the earliest iteration achieving
// an optimum keeps it.
func (o Objective) Better(candidate, incumbent float64) bool {
	if o == Minimize {
		return candidate < incumbent
	}
	return candidate > incumbent
}

// ParseObjective converts a string to an Objective, accepting any case.
func ParseObjective(s string) (Objective, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MAXIMIZE":
		return Maximize, nil
	case "MINIMIZE":
		return Minimize, nil
	default:
		return Maximize, errors.Newf(errors.InvalidInput, "unknown objective %q", s)
	}
}
