package jobdir

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/vk/simbatch/internal/ctxlog"
	"github.com/vk/simbatch/internal/fsutil"
	"github.com/vk/simbatch/internal/parameter"
	"github.com/vk/simbatch/internal/spec"
)

// ErrInputsNotEmpty is returned when a job directory already holds inputs.
var ErrInputsNotEmpty = errors.New("inputs directory is not empty")

// ErrCountMismatch is returned when the number of specification files on
// disk differs from the number that was meant to be written.
var ErrCountMismatch = errors.New("specification count mismatch")

// Job is everything needed to write one job directory.
type Job struct {
	Name           string
	SimulationType string
	Parameters     []parameter.Parameter
	Specs          []*spec.Specification
	Submit         SubmitOptions
}

// Write lays out job below layout.Root: it saves every specification into
// inputs/, writes parameters.txt, specifications.txt and info.yaml, then
// renders the submit script with the number of specification files present.
func Write(ctx context.Context, layout Layout, job Job, logger *slog.Logger) (*Info, error) {
	logger = ctxlog.OrDiscard(logger).With("job", job.Name)

	empty, err := fsutil.IsEmptyDir(layout.Inputs())
	if err != nil {
		return nil, err
	}
	if !empty {
		return nil, fmt.Errorf("%s: %w", layout.Inputs(), ErrInputsNotEmpty)
	}
	opts := job.Submit.withDefaults(job.Name)
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid submit options: %w", err)
	}
	if err := layout.Create(false); err != nil {
		return nil, err
	}

	logger.Info("Saving specifications.", "count", humanize.Comma(int64(len(job.Specs))))
	for _, s := range job.Specs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := s.Save(layout.Inputs()); err != nil {
			return nil, err
		}
	}

	if err := writeLines(layout.Root, "parameters.txt", len(job.Parameters), func(i int) string {
		return job.Parameters[i].GoString()
	}); err != nil {
		return nil, err
	}
	if err := writeLines(layout.Root, "specifications.txt", len(job.Specs), func(i int) string {
		return job.Specs[i].Info()
	}); err != nil {
		return nil, err
	}

	ids, err := layout.SpecIDs()
	if err != nil {
		return nil, err
	}
	if len(ids) != len(job.Specs) {
		return nil, fmt.Errorf("%w: wrote %d, found %d in %s", ErrCountMismatch, len(job.Specs), len(ids), layout.Inputs())
	}

	script, err := RenderSubmit(opts, len(ids))
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(layout.SubmitFile(), []byte(script), 0o644); err != nil {
		return nil, fmt.Errorf("write submit script: %w", err)
	}
	logger.Debug("Wrote submit script.", "path", layout.SubmitFile())

	info := NewInfo(job.Name, job.SimulationType, len(ids))
	info.BatchName = opts.BatchName
	if err := SaveInfo(layout, info); err != nil {
		return nil, err
	}
	logger.Info("Job directory ready.", "root", layout.Root, "batch_id", info.BatchID)
	return info, nil
}

func writeLines(dir, name string, n int, line func(int) string) error {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString(line(i))
		b.WriteByte('\n')
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
