package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_InvalidConfiguration(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	invalidHCL := `
		job "sweep" {
			parameter "a" {
		// Missing closing brace here
	`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "main.hcl")
	err := os.WriteFile(filePath, []byte(invalidHCL), 0600)
	require.NoError(t, err, "failed to set up test file")

	args := []string{"create", "-jobs-dir", filepath.Join(tempDir, "jobs"), filePath}
	out := &bytes.Buffer{}

	// --- Act ---
	runErr := run(context.Background(), out, args)

	// --- Assert ---
	require.Error(t, runErr, "run() should fail on invalid configuration")
	require.Contains(t, runErr.Error(), "failed to load configuration")
	require.Contains(t, runErr.Error(), "failed to parse")
}

func TestRun_CreatesJob(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	sweep := `
job "demo" {
  simulation_type = "Beam"

  parameter "length" {
    value      = range(1, 5)
    expandable = true
  }
}
`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "demo.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(sweep), 0600))
	jobsDir := filepath.Join(tempDir, "jobs")
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, []string{"create", "-jobs-dir", jobsDir, "-log-level", "error", filePath})

	// --- Assert ---
	require.NoError(t, err)
	require.Contains(t, out.String(), "Created job demo (4 simulations)")
	require.FileExists(t, filepath.Join(jobsDir, "demo", "submit_job.sub"))
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// The "-h" (help) flag should cause cli.Parse to return `shouldExit=true`.
	args := []string{"-h"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, args)

	// --- Assert ---
	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// Providing an unknown flag will cause cli.Parse to return an error.
	args := []string{"create", "--this-is-not-a-valid-flag"}
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(context.Background(), out, args)

	// --- Assert ---
	require.Error(t, err, "run() should return an error when argument parsing fails")
	require.Contains(t, err.Error(), "flag provided but not defined: -this-is-not-a-valid-flag")
}
