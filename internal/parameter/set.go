package parameter

import (
	"fmt"
	"strings"
)

// Set is an ordered mapping from parameter name to a single concrete value.
type Set struct {
	names  []string
	values map[string]any
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{values: make(map[string]any)}
}

// Put assigns a value, keeping the position of an existing name.
func (s *Set) Put(name string, value any) {
	if _, ok := s.values[name]; !ok {
		s.names = append(s.names, name)
	}
	s.values[name] = value
}

// Get returns the value stored under name.
func (s *Set) Get(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Names returns the parameter names in declaration order.
func (s *Set) Names() []string {
	return append([]string(nil), s.names...)
}

// Len returns the number of parameters in the set.
func (s *Set) Len() int {
	return len(s.names)
}

// Map returns a copy of the values keyed by name.
func (s *Set) Map() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = deepCopy(v)
	}
	return out
}

// Clone returns a deep copy of the set.
func (s *Set) Clone() *Set {
	c := &Set{
		names:  append([]string(nil), s.names...),
		values: make(map[string]any, len(s.values)),
	}
	for k, v := range s.values {
		c.values[k] = deepCopy(v)
	}
	return c
}

func (s *Set) String() string {
	parts := make([]string, 0, len(s.names))
	for _, n := range s.names {
		parts = append(parts, fmt.Sprintf("%s=%v", n, s.values[n]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// deepCopy copies the container types produced by the config layer so that
// composite values are never shared between sets.
func deepCopy(v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = deepCopy(x[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = deepCopy(vv)
		}
		return out
	default:
		return v
	}
}
