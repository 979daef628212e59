// Package factors models immutable factor configurations: the fixed factors
// of an experiment plus the treatment factor being searched.
package factors

import (
	"fmt"
	"hash/fnv"
	"reflect"
	"sort"
)

// Suit is an immutable name→value mapping representing one configuration.
// All mutating operations return a new Suit; the original is untouched.
type Suit struct {
	values map[string]interface{}
}

// New builds a suit from the given values. The map is copied, so later
// mutation of the argument does not leak into the suit.
func New(values map[string]interface{}) Suit {
	copied := make(map[string]interface{}, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Suit{values: copied}
}

// Empty returns a suit with no factors.
func Empty() Suit {
	return Suit{values: map[string]interface{}{}}
}

// With returns a new suit with the given factor set, leaving the receiver
// unchanged.
func (s Suit) With(name string, value interface{}) Suit {
	copied := make(map[string]interface{}, len(s.values)+1)
	for k, v := range s.values {
		copied[k] = v
	}
	copied[name] = value
	return Suit{values: copied}
}

// Value returns the value bound to the factor name.
func (s Suit) Value(name string) (interface{}, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Has reports whether the factor name is bound in this suit.
func (s Suit) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

// Names returns the factor names in sorted order.
func (s Suit) Names() []string {
	names := make([]string, 0, len(s.values))
	for k := range s.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of factors in the suit.
func (s Suit) Len() int {
	return len(s.values)
}

// Map returns a copy of the underlying values, safe for the caller to mutate.
func (s Suit) Map() map[string]interface{} {
	copied := make(map[string]interface{}, len(s.values))
	for k, v := range s.values {
		copied[k] = v
	}
	return copied
}

// Equal reports content equality between two suits.
func (s Suit) Equal(other Suit) bool {
	if len(s.values) != len(other.values) {
		return false
	}
	for k, v := range s.values {
		ov, ok := other.values[k]
		if !ok || !reflect.DeepEqual(v, ov) {
			return false
		}
	}
	return true
}

// Fingerprint returns a stable content hash, usable by mutators to detect
// configurations already tried.
func (s Suit) Fingerprint() string {
	h := fnv.New64a()
	for _, name := range s.Names() {
		fmt.Fprintf(h, "%s=%v;", name, s.values[name])
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// String renders the suit for logs and reports.
func (s Suit) String() string {
	out := "{"
	for i, name := range s.Names() {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%v", name, s.values[name])
	}
	return out + "}"
}
