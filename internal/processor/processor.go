// Package processor aggregates the results of a submitted job. It tracks
// which units of work have produced a finished simulation, snapshots each
// one into a Result and persists its own state after every unit so that an
// interrupted run loses at most one unit of progress.
package processor

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/vk/simbatch/internal/ctxlog"
	"github.com/vk/simbatch/internal/jobdir"
	"github.com/vk/simbatch/internal/persist"
	"github.com/vk/simbatch/internal/report"
	"github.com/vk/simbatch/internal/simulation"
)

// Extension is the file extension of persisted processors.
const Extension = ".job"

// DefaultMaxCorruptions is how many corrupt result files a unit may produce
// before it is reported as failed instead of pending.
const DefaultMaxCorruptions = 3

// DefaultResultType names the result kind in diagnostics.
const DefaultResultType = "SimulationResult"

// DefaultWorkers is the number of result files decoded at once.
const DefaultWorkers = 4

// ErrCombinedView is returned by operations that need a job directory of
// inputs, when called on a processor built by Combine.
var ErrCombinedView = errors.New("combined processor is a reporting view")

// Loader reads one simulation result file.
type Loader func(path string) (*simulation.Simulation, error)

// Extractor copies type-specific data out of a simulation into its result.
type Extractor func(sim *simulation.Simulation, r *Result) error

// Options configure behavior that is not persisted with the processor.
type Options struct {
	Logger         *slog.Logger
	Loader         Loader
	Plotter        report.Plotter
	Extractor      Extractor
	MaxCorruptions int
	ResultType     string
	// Workers decode result files concurrently. Extractor may therefore be
	// called from several goroutines at once.
	Workers int
	// OutputsDir replaces the job's outputs/ directory as the place result
	// files are read from, e.g. a local mirror of the cluster's copy.
	OutputsDir string
	// SummaryPlots draws the job's own figures at the end of Summarize.
	SummaryPlots SummaryPlotter
}

func (o Options) withDefaults() Options {
	o.Logger = ctxlog.OrDiscard(o.Logger)
	if o.Loader == nil {
		o.Loader = simulation.Load
	}
	if o.Plotter == nil {
		o.Plotter = report.DataPlotter{}
	}
	if o.MaxCorruptions <= 0 {
		o.MaxCorruptions = DefaultMaxCorruptions
	}
	if o.ResultType == "" {
		o.ResultType = DefaultResultType
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	return o
}

// Processor is the aggregation state of one job.
type Processor struct {
	name           string
	layout         jobdir.Layout
	simulationType string

	simNames    []int
	unprocessed map[int]struct{}
	data        map[int]Result
	corruptions map[int]int
	failed      map[int]struct{}
	view        bool

	opts   Options
	logger *slog.Logger
}

// New scans the job's inputs directory for specifications and returns a
// processor with every unit pending. The processing directories are created.
func New(name, jobDir, simulationType string, opts Options) (*Processor, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("job name is required")
	}
	layout := jobdir.Layout{Root: jobDir}
	if err := layout.Create(true); err != nil {
		return nil, err
	}
	ids, err := layout.SpecIDs()
	if err != nil {
		return nil, err
	}

	p := newProcessor(name, layout, simulationType, opts)
	p.simNames = ids
	for _, id := range ids {
		p.unprocessed[id] = struct{}{}
	}
	p.logger.Debug("Created job processor.", "units", len(ids))
	return p, nil
}

func newProcessor(name string, layout jobdir.Layout, simulationType string, opts Options) *Processor {
	opts = opts.withDefaults()
	return &Processor{
		name:           name,
		layout:         layout,
		simulationType: simulationType,
		unprocessed:    map[int]struct{}{},
		data:           map[int]Result{},
		corruptions:    map[int]int{},
		failed:         map[int]struct{}{},
		opts:           opts,
		logger:         opts.Logger.With("job", name),
	}
}

// Open restores the processor from its snapshot in jobDir when one exists,
// and otherwise builds a new one. A restored processor is rooted at jobDir
// even if the snapshot was written somewhere else.
func Open(name, jobDir, simulationType string, opts Options) (*Processor, error) {
	path := SnapshotPath(jobDir, name)
	p, err := Load(path, opts)
	if err == nil {
		if p.layout.Root != jobDir {
			p.logger.Info("Job directory moved since last snapshot.", "from", p.layout.Root, "to", jobDir)
			p.layout = jobdir.Layout{Root: jobDir}
		}
		p.logger.Info("Resumed job processor from snapshot.", "path", path, "processed", p.ProcessedCount(), "total", len(p.simNames))
		return p, nil
	}
	if !isMissing(err) {
		return nil, err
	}
	return New(name, jobDir, simulationType, opts)
}

// SnapshotPath is where a processor named name persists itself in jobDir.
func SnapshotPath(jobDir, name string) string {
	return persist.Path(jobDir, name, Extension)
}

func (p *Processor) Name() string           { return p.name }
func (p *Processor) JobDir() string         { return p.layout.Root }
func (p *Processor) SimulationType() string { return p.simulationType }
func (p *Processor) Layout() jobdir.Layout  { return p.layout }
func (p *Processor) IsView() bool           { return p.view }

// OutputsDir is where result files are read from.
func (p *Processor) OutputsDir() string {
	if p.opts.OutputsDir != "" {
		return p.opts.OutputsDir
	}
	return p.layout.Outputs()
}

func (p *Processor) simPath(id int) string {
	return jobdir.SimFile(p.OutputsDir(), id)
}

// SimNames returns every tracked unit id in ascending order.
func (p *Processor) SimNames() []int {
	return append([]int(nil), p.simNames...)
}

// Pending returns the ids still awaiting a finished result, in order.
func (p *Processor) Pending() []int {
	return p.filter(func(id int) bool {
		_, ok := p.unprocessed[id]
		return ok
	})
}

// Failed returns the ids that exceeded the corruption threshold.
func (p *Processor) Failed() []int {
	return p.filter(func(id int) bool {
		_, ok := p.failed[id]
		return ok
	})
}

// Corruptions returns how many corrupt result files unit id has produced.
func (p *Processor) Corruptions(id int) int {
	return p.corruptions[id]
}

func (p *Processor) filter(keep func(int) bool) []int {
	var out []int
	for _, id := range p.simNames {
		if keep(id) {
			out = append(out, id)
		}
	}
	return out
}

// ProcessedCount is the number of units with a result.
func (p *Processor) ProcessedCount() int {
	return len(p.simNames) - len(p.unprocessed)
}

// Result returns the result of unit id.
func (p *Processor) Result(id int) (Result, bool) {
	r, ok := p.data[id]
	if !ok {
		return Result{}, false
	}
	return r.clone(), true
}

// Results returns every processed result in unit id order.
func (p *Processor) Results() []Result {
	out := make([]Result, 0, len(p.data))
	for _, id := range p.simNames {
		if r, ok := p.data[id]; ok {
			out = append(out, r.clone())
		}
	}
	return out
}

// RunningTime is the sum of the running times of all results.
func (p *Processor) RunningTime() time.Duration {
	var total float64
	for _, r := range p.data {
		total += r.RunningTime
	}
	return time.Duration(total * float64(time.Second))
}

// ElapsedTime is the span from the earliest init to the latest end over all
// results, or zero without results.
func (p *Processor) ElapsedTime() time.Duration {
	d := p.diagnostics()
	return d.Elapsed
}

func (p *Processor) String() string {
	return fmt.Sprintf("Processor for job %s, processed %d/%d simulations", p.name, p.ProcessedCount(), len(p.simNames))
}

// Combine merges the processed results of ps into a reporting view named
// after all of them and rooted at jobDir. Results are renumbered 0..n-1 in
// argument order, so ids from different jobs cannot collide. The view takes
// its simulation type and options from the first processor.
func Combine(jobDir string, ps ...*Processor) (*Processor, error) {
	if len(ps) == 0 {
		return nil, errors.New("combine needs at least one processor")
	}
	names := make([]string, 0, len(ps))
	for _, p := range ps {
		names = append(names, p.name)
	}

	first := ps[0]
	layout := jobdir.Layout{Root: jobDir}
	if jobDir != "" {
		if err := layout.Create(true); err != nil {
			return nil, err
		}
	}
	c := newProcessor(strings.Join(names, "-"), layout, first.simulationType, first.opts)
	c.view = true
	for _, p := range ps {
		for _, r := range p.Results() {
			id := len(c.simNames)
			c.simNames = append(c.simNames, id)
			c.data[id] = r
		}
	}
	c.logger.Info("Combined job processors.", "sources", len(ps), "results", len(c.simNames))
	return c, nil
}

// sortedIDs returns the keys of set in ascending order.
func sortedIDs(set map[int]struct{}) []int {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
