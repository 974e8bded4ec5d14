package report

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataPlotter_WritesSeries(t *testing.T) {
	dir := t.TempDir()
	path, err := DataPlotter{}.XYPlot(context.Background(), PlotSpec{
		Name:      "sweep__diagnostics",
		Title:     "sweep Diagnostics",
		XLabel:    "Simulation Number",
		YLabel:    "Time",
		YUnit:     "hours",
		X:         []float64{0, 1, 2},
		Y:         []float64{0.5, 1.25, 2},
		TargetDir: dir,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "sweep__diagnostics.dat"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# sweep Diagnostics\n# Simulation Number\tTime (hours)\n0\t0.5\n1\t1.25\n2\t2\n", string(b))
}

func TestDataPlotter_RejectsRaggedSeries(t *testing.T) {
	_, err := DataPlotter{}.XYPlot(context.Background(), PlotSpec{Name: "x", X: []float64{1}, TargetDir: t.TempDir()})
	require.Error(t, err)
}

func TestDiagnostics(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	d := Diagnostics{
		JobName:        "sweep",
		Count:          2,
		SimulationType: "tdse",
		ResultType:     "SimulationResult",
		Elapsed:        2 * time.Hour,
		Runtime:        3 * time.Hour,
		EarliestInit:   t0,
		LatestInit:     t0.Add(time.Minute),
		EarliestStart:  t0,
		LatestStart:    t0.Add(time.Minute),
		EarliestFinish: t0.Add(time.Hour),
		LatestFinish:   t0.Add(2 * time.Hour),
	}
	assert.InDelta(t, 1.5, d.Speedup(), 1e-12)

	path := filepath.Join(t.TempDir(), "sweep_diagnostics.txt")
	require.NoError(t, WriteDiagnosticsFile(path, d))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.Contains(t, out, "Diagnostic Data for sweep:")
	assert.Contains(t, out, "2 tdse simulations")
	assert.Contains(t, out, "Elapsed Time: 2h0m0s")
	assert.Contains(t, out, "Combined Runtime: 3h0m0s")
	assert.Contains(t, out, "Speedup Factor: 1.500")
	assert.Contains(t, out, "Latest Sim Finish: 2024-05-01 12:00:00.000000")
}

func TestDiagnostics_NoSpan(t *testing.T) {
	assert.Contains(t, Diagnostics{}.String(), "Speedup Factor: n/a")
}
