// Package report produces the artifacts a processed job leaves behind for
// humans: plot data for summary figures and a plain-text diagnostics report.
package report

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/vk/simbatch/internal/persist"
)

// PlotSpec describes one x/y figure.
type PlotSpec struct {
	Name      string
	Title     string
	XLabel    string
	YLabel    string
	YUnit     string
	X         []float64
	Y         []float64
	TargetDir string
}

// Plotter renders figures. It returns the path of what it wrote.
type Plotter interface {
	XYPlot(ctx context.Context, spec PlotSpec) (string, error)
}

// DataPlotter writes the series of a figure as a gnuplot-ready tab separated
// .dat file. Rendering the figure itself is left to external tools.
type DataPlotter struct{}

// XYPlot writes <TargetDir>/<Name>.dat.
func (DataPlotter) XYPlot(ctx context.Context, spec PlotSpec) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(spec.X) != len(spec.Y) {
		return "", fmt.Errorf("plot %s: %d x values but %d y values", spec.Name, len(spec.X), len(spec.Y))
	}
	if spec.TargetDir == "" {
		return "", errors.New("plot target directory is required")
	}
	if err := os.MkdirAll(spec.TargetDir, 0o755); err != nil {
		return "", err
	}

	path := persist.Path(spec.TargetDir, spec.Name, ".dat")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "# %s\n", spec.Title)
	yLabel := spec.YLabel
	if spec.YUnit != "" {
		yLabel += " (" + spec.YUnit + ")"
	}
	fmt.Fprintf(w, "# %s\t%s\n", spec.XLabel, yLabel)
	for i := range spec.X {
		w.WriteString(strconv.FormatFloat(spec.X[i], 'g', -1, 64))
		w.WriteByte('\t')
		w.WriteString(strconv.FormatFloat(spec.Y[i], 'g', -1, 64))
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

var _ Plotter = DataPlotter{}
