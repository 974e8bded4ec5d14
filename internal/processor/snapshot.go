package processor

import (
	"fmt"

	"github.com/vk/simbatch/internal/jobdir"
	"github.com/vk/simbatch/internal/persist"
)

// snapshot is the persisted form of a Processor.
type snapshot struct {
	Name           string         `msgpack:"name"`
	JobDir         string         `msgpack:"job_dir"`
	SimulationType string         `msgpack:"simulation_type"`
	SimNames       []int          `msgpack:"sim_names"`
	Unprocessed    []int          `msgpack:"unprocessed"`
	Data           map[int]Result `msgpack:"data"`
	Corruptions    map[int]int    `msgpack:"corruptions,omitempty"`
	Failed         []int          `msgpack:"failed,omitempty"`
	View           bool           `msgpack:"view,omitempty"`
}

// Save writes the processor to dir/<name>.job.
func (p *Processor) Save(dir string) (string, error) {
	s := snapshot{
		Name:           p.name,
		JobDir:         p.layout.Root,
		SimulationType: p.simulationType,
		SimNames:       p.simNames,
		Unprocessed:    sortedIDs(p.unprocessed),
		Data:           p.data,
		Corruptions:    p.corruptions,
		Failed:         sortedIDs(p.failed),
		View:           p.view,
	}
	path := SnapshotPath(dir, p.name)
	if err := persist.WriteFile(path, &s); err != nil {
		return "", fmt.Errorf("save job processor %s: %w", p.name, err)
	}
	p.logger.Debug("Saved job processor.", "path", path)
	return path, nil
}

// Load restores a processor written by Save. Options are not persisted and
// must be supplied again.
func Load(path string, opts Options) (*Processor, error) {
	var s snapshot
	if err := persist.ReadFile(path, &s); err != nil {
		return nil, err
	}
	p := newProcessor(s.Name, jobdir.Layout{Root: s.JobDir}, s.SimulationType, opts)
	p.simNames = s.SimNames
	p.view = s.View
	for _, id := range s.Unprocessed {
		p.unprocessed[id] = struct{}{}
	}
	for id, r := range s.Data {
		p.data[id] = r
	}
	for id, n := range s.Corruptions {
		p.corruptions[id] = n
	}
	for _, id := range s.Failed {
		p.failed[id] = struct{}{}
	}
	return p, nil
}

var _ persist.Persistable = (*Processor)(nil)
