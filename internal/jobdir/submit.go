package jobdir

import (
	"errors"
	"fmt"
	"strings"
	"text/template"
)

// Submit script defaults.
const (
	DefaultMemoryGB       = 4
	DefaultDiskGB         = 10
	DefaultMaxMaterialize = 1000
	DefaultExecutable     = "run_sim.sh"
)

// SubmitOptions are the values rendered into the submit script.
type SubmitOptions struct {
	BatchName          string
	Checkpoints        bool
	MemoryGB           float64
	DiskGB             float64
	MaxMaterialize     int
	Executable         string
	TransferInputFiles []string
	Requirements       string
}

func (o SubmitOptions) withDefaults(jobName string) SubmitOptions {
	if o.BatchName == "" {
		o.BatchName = jobName
	}
	if o.MemoryGB == 0 {
		o.MemoryGB = DefaultMemoryGB
	}
	if o.DiskGB == 0 {
		o.DiskGB = DefaultDiskGB
	}
	if o.MaxMaterialize == 0 {
		o.MaxMaterialize = DefaultMaxMaterialize
	}
	if o.Executable == "" {
		o.Executable = DefaultExecutable
	}
	return o
}

// Validate rejects options the scheduler would refuse.
func (o SubmitOptions) Validate() error {
	var errs []error
	if strings.TrimSpace(o.BatchName) == "" {
		errs = append(errs, errors.New("batch name is required"))
	}
	if strings.ContainsAny(o.BatchName, "\"\n") {
		errs = append(errs, fmt.Errorf("batch name %q contains a quote or newline", o.BatchName))
	}
	if o.MemoryGB <= 0 {
		errs = append(errs, fmt.Errorf("memory must be positive, got %v", o.MemoryGB))
	}
	if o.DiskGB <= 0 {
		errs = append(errs, fmt.Errorf("disk must be positive, got %v", o.DiskGB))
	}
	if o.MaxMaterialize < 0 {
		errs = append(errs, fmt.Errorf("max materialize must not be negative, got %d", o.MaxMaterialize))
	}
	return errors.Join(errs...)
}

var submitTemplate = template.Must(template.New("submit").Parse(`universe = vanilla
log = logs/cluster_$(Cluster).log
error = logs/$(Process).err
#
executable = {{.Executable}}
arguments = $(Process)
#
should_transfer_files = YES
when_to_transfer_output = ON_EXIT_OR_EVICT
transfer_input_files = {{range .TransferInputFiles}}{{.}}, {{end}}inputs/$(Process).spec
transfer_output_remaps = "$(Process).sim = outputs/$(Process).sim ; $(Process).log = logs/$(Process).log ; $(Process).mp4 = movies/$(Process).mp4"
#
+JobBatchName = "{{.BatchName}}"
#
+is_resumable = {{.Checkpoints}}
+WantGlideIn = {{.Checkpoints}}
+WantFlocking = {{.Checkpoints}}
#
skip_filechecks = true
max_materialize = {{.MaxMaterialize}}
#
on_exit_remove = (ExitBySignal == False) && (ExitCode == 0)
#
request_cpus = 1
request_memory = {{.MemoryGB}}GB
request_disk = {{.DiskGB}}GB
{{- with .Requirements}}
#
requirements = {{.}}
{{- end}}
#
queue {{.Count}}
`))

// RenderSubmit renders the submit script for count units. The scheduler
// indexes units 0..count-1, so count must equal the number of input files.
func RenderSubmit(opts SubmitOptions, count int) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", fmt.Errorf("invalid submit options: %w", err)
	}
	if count < 0 {
		return "", fmt.Errorf("unit count must not be negative, got %d", count)
	}
	var b strings.Builder
	err := submitTemplate.Execute(&b, struct {
		SubmitOptions
		Count int
	}{opts, count})
	if err != nil {
		return "", fmt.Errorf("render submit script: %w", err)
	}
	return b.String(), nil
}
