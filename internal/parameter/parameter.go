package parameter

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrEmptyName is returned when a Parameter has no name.
var ErrEmptyName = errors.New("parameter name must not be empty")

// Parameter is one named input of a sweep. When Expandable is set and Value is
// a sized, non-string sequence, Expand produces one set per element.
type Parameter struct {
	Name       string
	Value      any
	Expandable bool
}

// Validate checks the invariants of a single parameter.
func (p Parameter) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (p Parameter) String() string {
	return fmt.Sprintf("Parameter %s = %v", p.Name, p.Value)
}

// GoString renders the parameter for the parameters.txt listing.
func (p Parameter) GoString() string {
	return fmt.Sprintf("Parameter(name = %s, value = %v, expandable = %t)", p.Name, p.Value, p.Expandable)
}

// sequence reports whether v is a sized sequence that can be expanded over and
// returns its reflected value. Strings and byte slices are scalars here.
func sequence(v any) (reflect.Value, bool) {
	if v == nil {
		return reflect.Value{}, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return reflect.Value{}, false
		}
		return rv, true
	case reflect.Array:
		return rv, true
	default:
		return reflect.Value{}, false
	}
}
