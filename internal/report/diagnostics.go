package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Diagnostics is the timing summary of a job.
type Diagnostics struct {
	JobName        string
	Count          int
	SimulationType string
	ResultType     string
	Elapsed        time.Duration
	Runtime        time.Duration

	EarliestInit, LatestInit     time.Time
	EarliestStart, LatestStart   time.Time
	EarliestFinish, LatestFinish time.Time
}

// Speedup is combined runtime over wall clock span, or zero without a span.
func (d Diagnostics) Speedup() float64 {
	if d.Elapsed <= 0 {
		return 0
	}
	return float64(d.Runtime) / float64(d.Elapsed)
}

const stampLayout = "2006-01-02 15:04:05.000000"

func (d Diagnostics) String() string {
	var b strings.Builder
	speedup := "n/a"
	if d.Elapsed > 0 {
		speedup = fmt.Sprintf("%.3f", d.Speedup())
	}
	lines := []string{
		fmt.Sprintf("Diagnostic Data for %s:", d.JobName),
		"",
		fmt.Sprintf("%d %s simulations", d.Count, d.SimulationType),
		fmt.Sprintf("Simulation Result Type: %s", d.ResultType),
		"",
		fmt.Sprintf("Elapsed Time: %s", d.Elapsed),
		fmt.Sprintf("Combined Runtime: %s", d.Runtime),
		fmt.Sprintf("Speedup Factor: %s", speedup),
		"",
		fmt.Sprintf("Earliest Sim Init: %s", d.EarliestInit.Format(stampLayout)),
		fmt.Sprintf("Latest Sim Init: %s", d.LatestInit.Format(stampLayout)),
		fmt.Sprintf("Earliest Sim Start: %s", d.EarliestStart.Format(stampLayout)),
		fmt.Sprintf("Latest Sim Start: %s", d.LatestStart.Format(stampLayout)),
		fmt.Sprintf("Earliest Sim Finish: %s", d.EarliestFinish.Format(stampLayout)),
		fmt.Sprintf("Latest Sim Finish: %s", d.LatestFinish.Format(stampLayout)),
	}
	b.WriteString(strings.Join(lines, "\n"))
	return b.String()
}

// WriteTo writes the report.
func (d Diagnostics) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, d.String())
	return int64(n), err
}

// WriteDiagnosticsFile replaces path with the report.
func WriteDiagnosticsFile(path string, d Diagnostics) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write diagnostics: %w", err)
	}
	if _, err := d.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write diagnostics: %w", err)
	}
	return f.Close()
}
