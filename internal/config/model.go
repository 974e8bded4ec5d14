package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/simbatch/internal/jobdir"
	"github.com/vk/simbatch/internal/parameter"
	"github.com/vk/simbatch/internal/remote"
)

// Model is the unified representation of every job and cluster defined in
// the loaded configuration.
type Model struct {
	Jobs     map[string]*Job
	Clusters map[string]*Cluster
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{
		Jobs:     make(map[string]*Job),
		Clusters: make(map[string]*Cluster),
	}
}

// Job is a parameter sweep and how to submit it.
type Job struct {
	Name           string
	SimulationType string
	Parameters     []parameter.Parameter
	Submit         jobdir.SubmitOptions
}

// Cluster is a submit host and how to mirror it.
type Cluster struct {
	Name          string
	Remote        remote.Config
	JobsDir       string // relative to the remote home unless absolute
	BlacklistDirs []string
	WhitelistExts []string
}

// Validate checks the invariants of a job definition.
func (j *Job) Validate() error {
	var errs []error
	if strings.TrimSpace(j.Name) == "" {
		errs = append(errs, errors.New("job name is required"))
	}
	seen := make(map[string]struct{}, len(j.Parameters))
	for _, p := range j.Parameters {
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := seen[p.Name]; dup {
			errs = append(errs, fmt.Errorf("parameter %q is defined more than once", p.Name))
		}
		seen[p.Name] = struct{}{}
	}
	return errors.Join(errs...)
}

// Job returns the named job, or the only job when name is empty.
func (m *Model) Job(name string) (*Job, error) {
	return pick("job", m.Jobs, name)
}

// Cluster returns the named cluster, or the only cluster when name is empty.
func (m *Model) Cluster(name string) (*Cluster, error) {
	return pick("cluster", m.Clusters, name)
}

func pick[T any](kind string, items map[string]*T, name string) (*T, error) {
	if name != "" {
		item, ok := items[name]
		if !ok {
			return nil, fmt.Errorf("%s %q is not defined", kind, name)
		}
		return item, nil
	}
	switch len(items) {
	case 0:
		return nil, fmt.Errorf("no %s is defined", kind)
	case 1:
		for _, item := range items {
			return item, nil
		}
	}
	names := make([]string, 0, len(items))
	for n := range items {
		names = append(names, n)
	}
	sort.Strings(names)
	return nil, fmt.Errorf("%d %ss are defined (%s); select one by name", len(items), kind, strings.Join(names, ", "))
}
