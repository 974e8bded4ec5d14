package jobdir

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Info is metadata about a job that is needed before any processor exists,
// for example to submit or locate the job on the cluster.
type Info struct {
	BatchID        string         `yaml:"batch_id"`
	JobName        string         `yaml:"job_name"`
	BatchName      string         `yaml:"batch_name,omitempty"`
	SimulationType string         `yaml:"simulation_type"`
	SpecCount      int            `yaml:"spec_count"`
	Created        time.Time      `yaml:"created"`
	RemoteDir      string         `yaml:"remote_dir,omitempty"`
	Extra          map[string]any `yaml:"extra,omitempty"`
}

// NewInfo returns Info for a freshly written job with a new batch id.
func NewInfo(jobName, simulationType string, count int) *Info {
	return &Info{
		BatchID:        uuid.NewString(),
		JobName:        jobName,
		SimulationType: simulationType,
		SpecCount:      count,
		Created:        time.Now().UTC().Truncate(time.Second),
	}
}

// SaveInfo writes info to the job's info.yaml.
func SaveInfo(layout Layout, info *Info) error {
	b, err := yaml.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode job info: %w", err)
	}
	if err := os.WriteFile(layout.InfoFile(), b, 0o644); err != nil {
		return fmt.Errorf("write job info: %w", err)
	}
	return nil
}

// LoadInfo reads the job's info.yaml.
func LoadInfo(layout Layout) (*Info, error) {
	b, err := os.ReadFile(layout.InfoFile())
	if err != nil {
		return nil, fmt.Errorf("read job info: %w", err)
	}
	var info Info
	if err := yaml.Unmarshal(b, &info); err != nil {
		return nil, fmt.Errorf("decode job info %s: %w", layout.InfoFile(), err)
	}
	return &info, nil
}
