package spec

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/simbatch/internal/parameter"
)

func TestFromSets_NumbersByPosition(t *testing.T) {
	sets, err := parameter.Expand([]parameter.Parameter{
		{Name: "amplitude", Value: []any{0.1, 0.2, 0.3}, Expandable: true},
		{Name: "z_points", Value: 2048.0},
	})
	require.NoError(t, err)

	specs := FromSets("scan", "line", sets)
	require.Len(t, specs, 3)
	for i, s := range specs {
		assert.Equal(t, i, s.FileName)
		assert.Equal(t, "line", s.SimulationType)
		assert.Equal(t, []string{"amplitude", "z_points"}, s.ParameterOrder)
	}
	assert.Equal(t, "scan_2", specs[2].Name)
	assert.Equal(t, 0.3, specs[2].Parameters["amplitude"])
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	s := &Specification{
		Name:           "scan_7",
		FileName:       7,
		SimulationType: "line",
		Parameters:     map[string]any{"amplitude": 0.5},
		ParameterOrder: []string{"amplitude"},
		Extra:          map[string]any{"note": "rerun"},
	}

	path, err := s.Save(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "7.spec"), path)

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s.Name, got.Name)
	assert.Equal(t, 7, got.FileName)
	assert.Equal(t, 0.5, got.Parameters["amplitude"])
	assert.Equal(t, "rerun", got.Extra["note"])
}

func TestInfo(t *testing.T) {
	s := &Specification{
		Name:           "scan_0",
		SimulationType: "line",
		Parameters:     map[string]any{"b": 2, "a": 1},
		ParameterOrder: []string{"b", "a"},
	}
	info := s.Info()
	assert.True(t, strings.Index(info, "b: 2") < strings.Index(info, "a: 1"))
}
