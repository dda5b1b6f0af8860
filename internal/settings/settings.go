// Package settings holds the mutable configuration values that drive phase
// conditions. All mutation goes through the single Set entry point; guard
// predicates read the store by reference, so a value flipped mid-run is
// observed by the next evaluation.
package settings

import (
	"github.com/zclconf/go-cty/cty"
)

// Store maps setting names to cty values. The engine is single-threaded
// cooperative, so the store carries no locking.
type Store struct {
	values map[string]cty.Value
}

// New returns a store seeded with the given defaults. A nil map is allowed.
func New(defaults map[string]cty.Value) *Store {
	s := &Store{values: make(map[string]cty.Value, len(defaults))}
	for k, v := range defaults {
		s.values[k] = v
	}
	return s
}

// Set is the only mutation entry point.
func (s *Store) Set(name string, v cty.Value) {
	s.values[name] = v
}

// Get returns the named value.
func (s *Store) Get(name string) (cty.Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Bool reads a boolean setting; missing, non-boolean, null, and unknown
// values all read as false.
func (s *Store) Bool(name string) bool {
	v, ok := s.values[name]
	if !ok || v.Type() != cty.Bool || v.IsNull() || !v.IsKnown() {
		return false
	}
	return v.True()
}

// Object packs the current values into a single cty object, suitable for an
// HCL evaluation context. An empty store yields an empty object.
func (s *Store) Object() cty.Value {
	if len(s.values) == 0 {
		return cty.EmptyObjectVal
	}
	vals := make(map[string]cty.Value, len(s.values))
	for k, v := range s.values {
		vals[k] = v
	}
	return cty.ObjectVal(vals)
}
