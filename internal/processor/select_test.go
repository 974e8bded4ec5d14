package processor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/simbatch/internal/simulation"
)

func processedJob(t *testing.T, n int) *Processor {
	t.Helper()
	dir := newJobDir(t, n)
	p := newProcessorForTest(t, dir, Options{})
	for i := 0; i < n; i++ {
		writeSim(t, dir, i, simulation.StatusFinished, time.Duration(i+1)*time.Hour)
	}
	_, err := p.LoadSims(context.Background(), false)
	require.NoError(t, err)
	return p
}

func fileNames(rs []Result) []int {
	out := make([]int, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.FileName)
	}
	return out
}

func TestSelectByEquality(t *testing.T) {
	p := processedJob(t, 6)

	testCases := []struct {
		name     string
		criteria map[string]any
		want     []int
	}{
		{name: "parameter", criteria: map[string]any{"phase": "sin"}, want: []int{1, 3, 5}},
		{name: "numeric across types", criteria: map[string]any{"amplitude": 0}, want: []int{0, 2, 4}},
		{name: "conjunction", criteria: map[string]any{"phase": "cos", "file_name": 4}, want: []int{4}},
		{name: "builtin", criteria: map[string]any{"name": "sweep_3"}, want: []int{3}},
		{name: "no match", criteria: map[string]any{"phase": "tan"}, want: []int{}},
		{name: "unknown field", criteria: map[string]any{"nope": 1}, want: []int{}},
		{name: "empty criteria", criteria: nil, want: []int{0, 1, 2, 3, 4, 5}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, fileNames(p.SelectByEquality(tc.criteria)))
		})
	}
}

func TestSelectByPredicate(t *testing.T) {
	p := processedJob(t, 5)
	got := p.SelectByPredicate(func(r Result) bool { return r.RunningTime > 2*3600 })
	assert.Equal(t, []int{2, 3, 4}, fileNames(got))
}

func TestParameterValues(t *testing.T) {
	p := processedJob(t, 5)
	assert.Equal(t, []any{"cos", "sin"}, p.ParameterValues("phase"))
	assert.Len(t, p.ParameterValues("amplitude"), 2)
	assert.Empty(t, p.ParameterValues("nope"))
}

func TestSelectionSurvivesSnapshot(t *testing.T) {
	p := processedJob(t, 4)
	reloaded, err := Load(SnapshotPath(p.JobDir(), p.Name()), Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, fileNames(reloaded.SelectByEquality(map[string]any{"amplitude": 0.0})))
}
