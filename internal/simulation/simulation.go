// Package simulation holds the record a simulation kernel writes when it
// checkpoints or finishes. The kernels themselves live elsewhere; this module
// only reads these files back.
package simulation

import (
	"fmt"
	"strconv"
	"time"

	"github.com/vk/simbatch/internal/persist"
	"github.com/vk/simbatch/internal/spec"
)

// Extension is the file extension of persisted simulations.
const Extension = ".sim"

// Status is the lifecycle state of a simulation.
type Status string

const (
	StatusInitialized Status = "initialized"
	StatusRunning     Status = "running"
	StatusPaused      Status = "paused"
	StatusFinished    Status = "finished"
)

// Simulation is the persisted state of one run. It can be large; callers that
// only need timing and identity should copy those out and drop the value.
type Simulation struct {
	Name        string               `msgpack:"name"`
	FileName    int                  `msgpack:"file_name"`
	Status      Status               `msgpack:"status"`
	InitTime    time.Time            `msgpack:"init_time"`
	StartTime   time.Time            `msgpack:"start_time"`
	EndTime     time.Time            `msgpack:"end_time"`
	ElapsedTime time.Duration        `msgpack:"elapsed_time"`
	RunningTime time.Duration        `msgpack:"running_time"`
	Restarts    int                  `msgpack:"restarts"`
	Spec        *spec.Specification  `msgpack:"spec"`
	Data        map[string][]float64 `msgpack:"data,omitempty"`
}

// New returns an initialized simulation for s.
func New(s *spec.Specification, now time.Time) *Simulation {
	return &Simulation{
		Name:     s.Name,
		FileName: s.FileName,
		Status:   StatusInitialized,
		InitTime: now,
		Spec:     s,
	}
}

// Finished reports whether the kernel completed the run.
func (s *Simulation) Finished() bool {
	return s.Status == StatusFinished
}

// Save writes the simulation to dir/<file_name>.sim.
func (s *Simulation) Save(dir string) (string, error) {
	path := persist.Path(dir, strconv.Itoa(s.FileName), Extension)
	if err := persist.WriteFile(path, s); err != nil {
		return "", fmt.Errorf("save simulation %s: %w", s.Name, err)
	}
	return path, nil
}

// Load reads a simulation written by Save. Errors are those of
// persist.ReadFile so callers can tell missing, empty and corrupt files apart.
func Load(path string) (*Simulation, error) {
	var s Simulation
	if err := persist.ReadFile(path, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Simulation) String() string {
	return fmt.Sprintf("Simulation: %s (%d) [%s]", s.Name, s.FileName, s.Status)
}

var _ persist.Persistable = (*Simulation)(nil)
