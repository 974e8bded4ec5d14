package remote

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/simbatch/internal/testutil"
)

func TestPush_UploadsTreeWithTimes(t *testing.T) {
	local := t.TempDir()
	testutil.WriteFiles(t, local, map[string]string{
		"submit_job.sub":  "queue 2",
		"inputs/0.spec":   "a",
		"inputs/1.spec":   "b",
		"outputs/.keep":   "",
		"logs/readme.txt": "logs go here",
	})
	mtime := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	testutil.SetModTime(t, filepath.Join(local, "inputs", "0.spec"), mtime)

	remoteRoot := t.TempDir()
	fs := testutil.NewDirFS(remoteRoot)
	logger, logs := testutil.NewLogger(t)

	require.NoError(t, Push(context.Background(), fs, local, "/jobs/sweep", logger))

	b, err := os.ReadFile(filepath.Join(remoteRoot, "jobs", "sweep", "inputs", "1.spec"))
	require.NoError(t, err)
	assert.Equal(t, "b", string(b))
	assert.FileExists(t, filepath.Join(remoteRoot, "jobs", "sweep", "submit_job.sub"))

	info, err := os.Stat(filepath.Join(remoteRoot, "jobs", "sweep", "inputs", "0.spec"))
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(mtime))
	assert.Contains(t, logs.String(), "files=5")
}

func TestPush_HonorsCancellation(t *testing.T) {
	local := t.TempDir()
	testutil.WriteFiles(t, local, map[string]string{"a": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Push(ctx, testutil.NewDirFS(t.TempDir()), local, "/x", nil)
	require.ErrorIs(t, err, context.Canceled)
}
