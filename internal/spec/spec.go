// Package spec defines the job specification: the self-contained description
// of one unit of work that is written to a job's inputs directory and read by
// the simulation kernel on the cluster.
package spec

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vk/simbatch/internal/parameter"
	"github.com/vk/simbatch/internal/persist"
)

// Extension is the file extension of persisted specifications.
const Extension = ".spec"

// Specification describes one simulation. Parameters holds the concrete
// values produced by the sweep; Extra is an open-ended map for anything the
// kernel needs that this module does not interpret.
type Specification struct {
	Name           string         `msgpack:"name"`
	FileName       int            `msgpack:"file_name"`
	SimulationType string         `msgpack:"simulation_type"`
	Parameters     map[string]any `msgpack:"parameters"`
	ParameterOrder []string       `msgpack:"parameter_order"`
	Extra          map[string]any `msgpack:"extra,omitempty"`
}

// FromSets builds one specification per expanded set. The position of a set
// becomes the specification's file name.
func FromSets(jobName, simulationType string, sets []*parameter.Set) []*Specification {
	out := make([]*Specification, 0, len(sets))
	for i, s := range sets {
		out = append(out, &Specification{
			Name:           fmt.Sprintf("%s_%d", jobName, i),
			FileName:       i,
			SimulationType: simulationType,
			Parameters:     s.Map(),
			ParameterOrder: s.Names(),
		})
	}
	return out
}

// ID is the string form of FileName used for on-disk names.
func (s *Specification) ID() string {
	return strconv.Itoa(s.FileName)
}

// Save writes the specification to dir/<file_name>.spec.
func (s *Specification) Save(dir string) (string, error) {
	path := persist.Path(dir, s.ID(), Extension)
	if err := persist.WriteFile(path, s); err != nil {
		return "", fmt.Errorf("save specification %s: %w", s.Name, err)
	}
	return path, nil
}

// Load reads a specification written by Save.
func Load(path string) (*Specification, error) {
	var s Specification
	if err := persist.ReadFile(path, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Specification) String() string {
	return fmt.Sprintf("Specification: %s (%d) [%s]", s.Name, s.FileName, s.SimulationType)
}

// Info returns a multi-line description listing every parameter in
// declaration order, followed by any extra entries sorted by key.
func (s *Specification) Info() string {
	var b strings.Builder
	b.WriteString(s.String())
	for _, name := range s.orderedNames() {
		fmt.Fprintf(&b, "\n   %s: %v", name, s.Parameters[name])
	}
	if len(s.Extra) > 0 {
		keys := make([]string, 0, len(s.Extra))
		for k := range s.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n   %s (extra): %v", k, s.Extra[k])
		}
	}
	return b.String()
}

func (s *Specification) orderedNames() []string {
	if len(s.ParameterOrder) == len(s.Parameters) {
		return s.ParameterOrder
	}
	names := make([]string, 0, len(s.Parameters))
	for k := range s.Parameters {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

var _ persist.Persistable = (*Specification)(nil)
