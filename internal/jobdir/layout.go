// Package jobdir lays out a batch of specifications as an on-disk job
// directory that the cluster scheduler can run: inputs, output and log
// directories, a rendered submit script and a small info file.
package jobdir

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/vk/simbatch/internal/fsutil"
	"github.com/vk/simbatch/internal/simulation"
	"github.com/vk/simbatch/internal/spec"
)

// SubmitFileName is the scheduler submit script inside a job directory.
const SubmitFileName = "submit_job.sub"

// Layout resolves the well-known paths of one job directory.
type Layout struct {
	Root string
}

func (l Layout) Inputs() string    { return filepath.Join(l.Root, "inputs") }
func (l Layout) Outputs() string   { return filepath.Join(l.Root, "outputs") }
func (l Layout) Logs() string      { return filepath.Join(l.Root, "logs") }
func (l Layout) Movies() string    { return filepath.Join(l.Root, "movies") }
func (l Layout) Plots() string     { return filepath.Join(l.Root, "plots") }
func (l Layout) Summaries() string { return filepath.Join(l.Root, "summaries") }

func (l Layout) SubmitFile() string { return filepath.Join(l.Root, SubmitFileName) }
func (l Layout) InfoFile() string   { return filepath.Join(l.Root, "info.yaml") }

// DiagnosticsFile is the plain-text report written by the processor.
func (l Layout) DiagnosticsFile(jobName string) string {
	return filepath.Join(l.Root, jobName+"_diagnostics.txt")
}

// SpecPath is the input file of unit id.
func (l Layout) SpecPath(id int) string {
	return filepath.Join(l.Inputs(), strconv.Itoa(id)+spec.Extension)
}

// SimPath is the result file of unit id.
func (l Layout) SimPath(id int) string {
	return SimFile(l.Outputs(), id)
}

// SimFile is the result file of unit id in an outputs directory.
func SimFile(outputs string, id int) string {
	return filepath.Join(outputs, strconv.Itoa(id)+simulation.Extension)
}

// Create makes the directories a submitted job needs. With all set it also
// makes the ones only used while processing results.
func (l Layout) Create(all bool) error {
	dirs := []string{l.Inputs(), l.Outputs(), l.Logs(), l.Movies()}
	if all {
		dirs = append(dirs, l.Plots(), l.Summaries())
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}

// SpecIDs returns the sorted ids of the specifications in inputs/.
func (l Layout) SpecIDs() ([]int, error) {
	return SimIDs(l.Inputs(), spec.Extension)
}

// SimIDs returns the sorted numeric names of the files in dir ending in ext.
func SimIDs(dir, ext string) ([]int, error) {
	ids, err := fsutil.NumericStems(dir, ext)
	if err != nil {
		return nil, fmt.Errorf("list %s files in %s: %w", ext, dir, err)
	}
	return ids, nil
}
