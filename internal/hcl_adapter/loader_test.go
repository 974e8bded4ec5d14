package hcl_adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/simbatch/internal/parameter"
)

func writeHCL(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_SweepDefinition(t *testing.T) {
	path := writeHCL(t, t.TempDir(), "sweep.hcl", `
job "sweep" {
  simulation_type = "Beam"

  parameter "length" {
    value      = [1, 2, 3]
    expandable = true
  }
  parameter "widths" {
    value = [0.5, 1.5]
  }
  parameter "label" {
    value = "run-${upper("a")}"
  }

  submit {
    batch_name      = "beams"
    checkpoints     = true
    memory_gb       = 8
    max_materialize = 50
    requirements    = "(OpSysMajorVer == 9)"
  }
}
`)

	model, err := NewLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)

	job, err := model.Job("")
	require.NoError(t, err)
	assert.Equal(t, "sweep", job.Name)
	assert.Equal(t, "Beam", job.SimulationType)

	want := []parameter.Parameter{
		{Name: "length", Value: []any{1.0, 2.0, 3.0}, Expandable: true},
		{Name: "widths", Value: []any{0.5, 1.5}},
		{Name: "label", Value: "run-A"},
	}
	if diff := cmp.Diff(want, job.Parameters); diff != "" {
		t.Errorf("parameters mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, "beams", job.Submit.BatchName)
	assert.True(t, job.Submit.Checkpoints)
	assert.Equal(t, 8.0, job.Submit.MemoryGB)
	assert.Equal(t, 50, job.Submit.MaxMaterialize)
	assert.Equal(t, "(OpSysMajorVer == 9)", job.Submit.Requirements)
}

func TestLoad_FunctionsAndVariables(t *testing.T) {
	path := writeHCL(t, t.TempDir(), "sweep.hcl", `
job "fn" {
  parameter "grid" {
    value      = linspace(0, 1, 3)
    expandable = true
  }
  parameter "steps" {
    value = concat(range(2), [10])
  }
  parameter "mode" {
    value = var.mode
  }
}
`)

	model, err := NewLoader(map[string]string{"mode": "fast"}).Load(context.Background(), path)
	require.NoError(t, err)
	job := model.Jobs["fn"]
	require.NotNil(t, job)

	require.Len(t, job.Parameters, 3)
	assert.Equal(t, []any{0.0, 0.5, 1.0}, job.Parameters[0].Value)
	assert.Equal(t, []any{0.0, 1.0, 10.0}, job.Parameters[1].Value)
	assert.Equal(t, "fast", job.Parameters[2].Value)

	sets, err := parameter.Expand(job.Parameters)
	require.NoError(t, err)
	assert.Len(t, sets, 3)
}

func TestLoad_Cluster(t *testing.T) {
	path := writeHCL(t, t.TempDir(), "cluster.hcl", `
cluster "chtc" {
  host            = "submit.example.org"
  username        = "alice"
  jobs_dir        = "jobs"
  blacklist_dirs  = ["inputs"]
  whitelist_exts  = ["sim", ".txt"]
  command_timeout = "45s"
}
`)

	model, err := NewLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)
	cluster, err := model.Cluster("chtc")
	require.NoError(t, err)

	assert.Equal(t, "submit.example.org", cluster.Remote.Host)
	assert.Equal(t, "alice", cluster.Remote.Username)
	assert.Equal(t, 45*time.Second, cluster.Remote.CommandTimeout)
	assert.Equal(t, "jobs", cluster.JobsDir)
	assert.Equal(t, []string{"inputs"}, cluster.BlacklistDirs)
	assert.Equal(t, []string{"sim", ".txt"}, cluster.WhitelistExts)
}

func TestLoad_DirectoryMergesFiles(t *testing.T) {
	dir := t.TempDir()
	writeHCL(t, dir, "a.hcl", `job "a" {}`)
	writeHCL(t, dir, "b.hcl", `cluster "c" {
  host     = "h"
  username = "u"
}`)
	writeHCL(t, dir, "notes.txt", `ignored`)

	model, err := NewLoader(nil).Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, model.Jobs, 1)
	assert.Len(t, model.Clusters, 1)
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		errMsg  string
	}{
		{name: "invalid syntax", content: `job "x" {`, errMsg: "failed to parse HCL file"},
		{name: "unknown attribute", content: `job "x" { bogus = 1 }`, errMsg: "failed to decode HCL file"},
		{name: "duplicate parameter", content: `job "x" {
  parameter "a" { value = 1 }
  parameter "a" { value = 2 }
}`, errMsg: "defined more than once"},
		{name: "duplicate job", content: `job "x" {}
job "x" {}`, errMsg: `job "x" is defined more than once`},
		{name: "non bool expandable", content: `job "x" {
  parameter "a" {
    value      = [1]
    expandable = "yes"
  }
}`, errMsg: "must be a bool"},
		{name: "bad duration", content: `cluster "c" {
  host            = "h"
  username        = "u"
  command_timeout = "soon"
}`, errMsg: "invalid command_timeout"},
		{name: "missing username", content: `cluster "c" {
  host = "h"
}`, errMsg: "failed to decode HCL file"},
		{name: "bad linspace", content: `job "x" {
  parameter "a" { value = linspace(0, 1, 0) }
}`, errMsg: "num must be at least 1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeHCL(t, t.TempDir(), "bad.hcl", tc.content)
			_, err := NewLoader(nil).Load(context.Background(), path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestLoad_MissingPath(t *testing.T) {
	_, err := NewLoader(nil).Load(context.Background(), filepath.Join(t.TempDir(), "absent.hcl"))
	require.Error(t, err)
}

func TestCtyToNative(t *testing.T) {
	c := NewConverter()
	v, err := c.ToCtyValue(map[string]string{"a": "b"})
	require.NoError(t, err)

	native, err := c.ToNative(v)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "b"}, native)
}
