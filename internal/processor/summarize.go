package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/simbatch/internal/report"
)

// SummaryPlotter draws job-specific figures from the processed results,
// typically into p.Layout().Summaries().
type SummaryPlotter func(ctx context.Context, p *Processor, plotter report.Plotter) error

// Summary lists what Summarize wrote.
type Summary struct {
	Diagnostics report.Diagnostics
	ReportPath  string
	PlotPath    string
}

// Summarize recomputes the job's timing statistics and rewrites the
// diagnostics report and plot, then runs Options.SummaryPlots. Without
// processed results it does nothing.
// Calling it again without new results produces the same files.
func (p *Processor) Summarize(ctx context.Context) (*Summary, error) {
	if len(p.data) == 0 {
		p.logger.Info("No processed simulations to summarize.")
		return nil, nil
	}
	if p.layout.Root == "" {
		return nil, fmt.Errorf("summarize %s: processor has no job directory", p.name)
	}

	d := p.diagnostics()
	s := &Summary{Diagnostics: d, ReportPath: p.layout.DiagnosticsFile(p.name)}
	if err := report.WriteDiagnosticsFile(s.ReportPath, d); err != nil {
		return nil, err
	}

	results := p.Results()
	x := make([]float64, len(results))
	y := make([]float64, len(results))
	for i, r := range results {
		x[i] = float64(r.FileName)
		y[i] = r.RunningTime / time.Hour.Seconds()
	}
	plot, err := p.opts.Plotter.XYPlot(ctx, report.PlotSpec{
		Name:      p.name + "__diagnostics",
		Title:     p.name + " Diagnostics",
		XLabel:    "Simulation Number",
		YLabel:    "Time",
		YUnit:     "hours",
		X:         x,
		Y:         y,
		TargetDir: p.layout.Summaries(),
	})
	if err != nil {
		return nil, fmt.Errorf("diagnostics plot: %w", err)
	}
	s.PlotPath = plot

	if p.opts.SummaryPlots != nil {
		if err := p.opts.SummaryPlots(ctx, p, p.opts.Plotter); err != nil {
			return nil, fmt.Errorf("summary plots: %w", err)
		}
	}

	p.logger.Info("Summarized job.",
		"results", d.Count,
		"elapsed", d.Elapsed,
		"runtime", d.Runtime,
		"report", s.ReportPath,
	)
	return s, nil
}

func (p *Processor) diagnostics() report.Diagnostics {
	d := report.Diagnostics{
		JobName:        p.name,
		Count:          len(p.data),
		SimulationType: p.simulationType,
		ResultType:     p.opts.ResultType,
		Runtime:        p.RunningTime(),
	}
	first := true
	for _, r := range p.data {
		if first {
			d.EarliestInit, d.LatestInit = r.InitTime, r.InitTime
			d.EarliestStart, d.LatestStart = r.StartTime, r.StartTime
			d.EarliestFinish, d.LatestFinish = r.EndTime, r.EndTime
			first = false
			continue
		}
		d.EarliestInit, d.LatestInit = widen(d.EarliestInit, d.LatestInit, r.InitTime)
		d.EarliestStart, d.LatestStart = widen(d.EarliestStart, d.LatestStart, r.StartTime)
		d.EarliestFinish, d.LatestFinish = widen(d.EarliestFinish, d.LatestFinish, r.EndTime)
	}
	if !first {
		d.Elapsed = d.LatestFinish.Sub(d.EarliestInit)
	}
	return d
}

func widen(lo, hi, t time.Time) (time.Time, time.Time) {
	if t.Before(lo) {
		lo = t
	}
	if t.After(hi) {
		hi = t
	}
	return lo, hi
}
