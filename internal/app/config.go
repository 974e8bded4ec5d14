package app

import (
	"errors"
	"fmt"
	"slices"
)

// Commands understood by App.Run.
const (
	CommandCreate  = "create"
	CommandSubmit  = "submit"
	CommandStatus  = "status"
	CommandMirror  = "mirror"
	CommandProcess = "process"
)

// Commands lists every command in the order they are normally used.
var Commands = []string{CommandCreate, CommandSubmit, CommandStatus, CommandMirror, CommandProcess}

// DefaultJobsDir is the local directory job directories are created in.
const DefaultJobsDir = "jobs"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Command    string
	ConfigPath string // hcl file or directory
	Vars       map[string]string

	JobName     string
	ClusterName string
	JobsDir     string // local parent of job directories
	JobDir      string // overrides JobsDir/JobName for process

	Force          bool // process: retry every unit; mirror: re-download every file
	IntegrityCheck bool
	Archive        bool

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and fills defaults.
func NewConfig(cfg Config) (*Config, error) {
	if !slices.Contains(Commands, cfg.Command) {
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}
	if cfg.JobsDir == "" {
		cfg.JobsDir = DefaultJobsDir
	}

	switch cfg.Command {
	case CommandProcess:
		if cfg.ConfigPath == "" && cfg.JobName == "" && cfg.JobDir == "" {
			return nil, errors.New("process needs a job name, a job directory or a config path")
		}
	default:
		if cfg.ConfigPath == "" {
			return nil, fmt.Errorf("%s needs a config path", cfg.Command)
		}
	}
	return &cfg, nil
}

// needsModel reports whether the command reads the HCL configuration.
func (c *Config) needsModel() bool {
	return c.ConfigPath != ""
}
