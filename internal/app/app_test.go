package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/simbatch/internal/hcl_adapter"
	"github.com/vk/simbatch/internal/jobdir"
	"github.com/vk/simbatch/internal/remote"
	"github.com/vk/simbatch/internal/simulation"
	"github.com/vk/simbatch/internal/spec"
	"github.com/vk/simbatch/internal/testutil"
)

const sweepHCL = `
job "sweep" {
  simulation_type = "Beam"

  parameter "length" {
    value      = [1, 2, 3]
    expandable = true
  }
  parameter "width" {
    value = 0.5
  }

  submit {
    batch_name = "beams"
  }
}

cluster "lab" {
  host           = "submit.example.org"
  username       = "alice"
  mirror_root    = "%s"
  blacklist_dirs = ["inputs"]
  whitelist_exts = ["sim"]
}
`

// fakeHost serves a local directory as the submit host.
type fakeHost struct {
	*testutil.FakeCommander
	fs *testutil.DirFS
}

func (h fakeHost) FS() remote.WritableFileSystem            { return h.fs }
func (h fakeHost) Home(ctx context.Context) (string, error) { return h.FakeCommander.Home, nil }

type fixture struct {
	dir        string
	configPath string
	jobsDir    string
	mirrorRoot string
	remoteFS   *testutil.DirFS
	commander  *testutil.FakeCommander
	connects   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:        dir,
		configPath: filepath.Join(dir, "sweep.hcl"),
		jobsDir:    filepath.Join(dir, "jobs"),
		mirrorRoot: filepath.Join(dir, "mirror"),
		remoteFS:   testutil.NewDirFS(filepath.Join(dir, "remote")),
	}
	require.NoError(t, os.MkdirAll(f.remoteFS.Root, 0o755))
	f.commander = &testutil.FakeCommander{FS: f.remoteFS, Home: "/home/alice", Queue: "-- Schedd: submit.example.org\n ID  OWNER\n 42.0 alice\n"}
	require.NoError(t, os.WriteFile(f.configPath, []byte(fmt.Sprintf(sweepHCL, filepath.ToSlash(f.mirrorRoot))), 0o644))
	return f
}

func (f *fixture) connect(_ context.Context, _ remote.Config, _ *slog.Logger, fn func(remote.Host) error) error {
	f.connects++
	return fn(fakeHost{FakeCommander: f.commander, fs: f.remoteFS})
}

func (f *fixture) run(t *testing.T, cfg Config, deps Deps) (string, error) {
	t.Helper()
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = f.configPath
	}
	cfg.JobsDir = f.jobsDir
	cfg.LogLevel = "error"
	conf, err := NewConfig(cfg)
	require.NoError(t, err)
	if deps.Connect == nil {
		deps.Connect = f.connect
	}

	out := &testutil.SafeBuffer{}
	a := NewApp(out, conf, hcl_adapter.NewLoader(nil), deps)
	err = a.Run(context.Background())
	return out.String(), err
}

func TestCreate_WritesJobDirectory(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, Config{Command: CommandCreate}, Deps{})
	require.NoError(t, err)
	assert.Contains(t, out, "Created job sweep (3 simulations)")

	layout := jobdir.Layout{Root: filepath.Join(f.jobsDir, "sweep")}
	ids, err := layout.SpecIDs()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, ids)

	s, err := spec.Load(layout.SpecPath(2))
	require.NoError(t, err)
	assert.Equal(t, 3.0, s.Parameters["length"])
	assert.Equal(t, 0.5, s.Parameters["width"])

	submit, err := os.ReadFile(layout.SubmitFile())
	require.NoError(t, err)
	assert.Contains(t, string(submit), "queue 3")

	info, err := jobdir.LoadInfo(layout)
	require.NoError(t, err)
	assert.Equal(t, "Beam", info.SimulationType)
	assert.Equal(t, "beams", info.BatchName)
}

func TestCreate_RefusesExistingInputs(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, Config{Command: CommandCreate}, Deps{})
	require.NoError(t, err)

	_, err = f.run(t, Config{Command: CommandCreate}, Deps{})
	require.ErrorIs(t, err, jobdir.ErrInputsNotEmpty)
}

func TestCreate_UnknownJob(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, Config{Command: CommandCreate, JobName: "nope"}, Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `job "nope" is not defined`)
}

func TestSubmit_PushesAndQueues(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, Config{Command: CommandCreate}, Deps{})
	require.NoError(t, err)

	out, err := f.run(t, Config{Command: CommandSubmit}, Deps{})
	require.NoError(t, err)
	assert.Contains(t, out, "submitted to cluster 42")
	assert.Equal(t, 1, f.connects)
	assert.Equal(t, 1, f.commander.CountCalls("cd '/home/alice/jobs/sweep' && condor_submit 'submit_job.sub'"))

	assert.FileExists(t, filepath.Join(f.remoteFS.Root, "home", "alice", "jobs", "sweep", jobdir.SubmitFileName))
	assert.FileExists(t, filepath.Join(f.remoteFS.Root, "home", "alice", "jobs", "sweep", "inputs", "1.spec"))

	info, err := jobdir.LoadInfo(jobdir.Layout{Root: filepath.Join(f.jobsDir, "sweep")})
	require.NoError(t, err)
	assert.Equal(t, "/home/alice/jobs/sweep", info.RemoteDir)
}

func TestSubmit_RequiresCreatedJob(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, Config{Command: CommandSubmit}, Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has not been created")
	assert.Zero(t, f.connects)
}

func TestStatus_PrintsQueue(t *testing.T) {
	f := newFixture(t)
	out, err := f.run(t, Config{Command: CommandStatus}, Deps{})
	require.NoError(t, err)
	assert.Contains(t, out, "Job Status:\n ID  OWNER\n 42.0 alice\n")
	assert.NotContains(t, out, "Schedd")
}

func TestStatus_PropagatesTransportFailure(t *testing.T) {
	f := newFixture(t)
	f.commander.Err = fmt.Errorf("connection reset")
	_, err := f.run(t, Config{Command: CommandStatus}, Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestMirror_CopiesWhitelistedFiles(t *testing.T) {
	f := newFixture(t)
	testutil.WriteFiles(t, f.remoteFS.Root, map[string]string{
		"home/alice/jobs/sweep/outputs/0.sim": "sim0",
		"home/alice/jobs/sweep/outputs/1.sim": "sim1",
		"home/alice/jobs/sweep/inputs/0.spec": "spec",
		"home/alice/jobs/sweep/logs/0.log":    "log",
		"home/alice/jobs/.cache/x.sim":        "hidden",
	})

	status := &strings.Builder{}
	out, err := f.run(t, Config{Command: CommandMirror}, Deps{Status: status})
	require.NoError(t, err)
	assert.Contains(t, out, "2 files checked, 2 downloaded")
	assert.Contains(t, status.String(), "Paths Found:")

	local := filepath.Join(f.mirrorRoot, "home", "alice", "jobs", "sweep")
	got, err := os.ReadFile(filepath.Join(local, "outputs", "1.sim"))
	require.NoError(t, err)
	assert.Equal(t, "sim1", string(got))
	assert.NoFileExists(t, filepath.Join(local, "inputs", "0.spec"))
	assert.NoFileExists(t, filepath.Join(local, "logs", "0.log"))
	assert.NoDirExists(t, filepath.Join(f.mirrorRoot, "home", "alice", "jobs", ".cache"))

	out, err = f.run(t, Config{Command: CommandMirror, JobName: "sweep"}, Deps{})
	require.NoError(t, err)
	assert.Contains(t, out, "2 files checked, 0 downloaded")
}

func writeFinished(t *testing.T, layout jobdir.Layout, id int, start time.Time, run time.Duration) {
	t.Helper()
	s, err := spec.Load(layout.SpecPath(id))
	require.NoError(t, err)
	sim := simulation.New(s, start.Add(-time.Minute))
	sim.Status = simulation.StatusFinished
	sim.StartTime = start
	sim.EndTime = start.Add(run)
	sim.RunningTime = run
	sim.ElapsedTime = run + time.Minute
	_, err = sim.Save(layout.Outputs())
	require.NoError(t, err)
}

type recordingArchiver struct {
	mu    sync.Mutex
	dirs  []string
	files []string
}

func (r *recordingArchiver) UploadFile(_ context.Context, prefix, name, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, prefix+"/"+name)
	return nil
}

func (r *recordingArchiver) UploadDir(_ context.Context, prefix, dir string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirs = append(r.dirs, prefix)
	entries, err := os.ReadDir(dir)
	return len(entries), err
}

func TestProcess_LoadsAndSummarizes(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, Config{Command: CommandCreate}, Deps{})
	require.NoError(t, err)

	layout := jobdir.Layout{Root: filepath.Join(f.jobsDir, "sweep")}
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	writeFinished(t, layout, 0, start, time.Hour)
	writeFinished(t, layout, 2, start.Add(time.Hour), 2*time.Hour)

	arch := &recordingArchiver{}
	out, err := f.run(t, Config{Command: CommandProcess, Archive: true}, Deps{Archiver: arch})
	require.NoError(t, err)
	assert.Contains(t, out, "processed 2/3 simulations")
	assert.Contains(t, out, "Loaded 2, pending 0")
	assert.Contains(t, out, "Diagnostic Data for sweep:")
	assert.Contains(t, out, "Archived 3 files under sweep")

	assert.FileExists(t, layout.DiagnosticsFile("sweep"))
	assert.Equal(t, []string{"sweep/summaries"}, arch.dirs)
	assert.ElementsMatch(t, []string{"sweep/sweep_diagnostics.txt", "sweep/sweep.job"}, arch.files)

	// A second pass finds nothing new but still reports the totals.
	out, err = f.run(t, Config{Command: CommandProcess}, Deps{})
	require.NoError(t, err)
	assert.Contains(t, out, "processed 2/3 simulations")
	assert.Contains(t, out, "Loaded 0")
}

func TestProcess_ReadsMirroredResultsOfSubmittedJob(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, Config{Command: CommandCreate}, Deps{})
	require.NoError(t, err)
	_, err = f.run(t, Config{Command: CommandSubmit}, Deps{})
	require.NoError(t, err)

	onCluster := jobdir.Layout{Root: filepath.Join(f.remoteFS.Root, "home", "alice", "jobs", "sweep")}
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	writeFinished(t, onCluster, 0, start, time.Hour)
	writeFinished(t, onCluster, 2, start.Add(time.Hour), time.Hour)

	out, err := f.run(t, Config{Command: CommandMirror}, Deps{})
	require.NoError(t, err)
	assert.Contains(t, out, "2 files checked, 2 downloaded")

	out, err = f.run(t, Config{Command: CommandProcess}, Deps{})
	require.NoError(t, err)
	assert.Contains(t, out, "processed 2/3 simulations")
	assert.Contains(t, out, "Loaded 2, pending 0")

	local := jobdir.Layout{Root: filepath.Join(f.jobsDir, "sweep")}
	assert.FileExists(t, local.DiagnosticsFile("sweep"))
	entries, err := os.ReadDir(local.Outputs())
	require.NoError(t, err)
	assert.Empty(t, entries, "results are read in place from the mirror")
}

func TestProcess_WithoutConfigUsesJobInfo(t *testing.T) {
	f := newFixture(t)
	_, err := f.run(t, Config{Command: CommandCreate}, Deps{})
	require.NoError(t, err)

	conf, err := NewConfig(Config{Command: CommandProcess, JobName: "sweep", JobsDir: f.jobsDir, LogLevel: "error"})
	require.NoError(t, err)
	out := &testutil.SafeBuffer{}
	require.NoError(t, NewApp(out, conf, hcl_adapter.NewLoader(nil), Deps{}).Run(context.Background()))
	assert.Contains(t, out.String(), "processed 0/3 simulations")
}

func TestProcess_ArchiveNeedsEndpoint(t *testing.T) {
	t.Setenv("ARCHIVE_S3_ENDPOINT", "")
	f := newFixture(t)
	_, err := f.run(t, Config{Command: CommandCreate}, Deps{})
	require.NoError(t, err)
	layout := jobdir.Layout{Root: filepath.Join(f.jobsDir, "sweep")}
	writeFinished(t, layout, 1, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), time.Hour)

	_, err = f.run(t, Config{Command: CommandProcess, Archive: true}, Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARCHIVE_S3_ENDPOINT")
}

func TestRun_InvalidConfiguration(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.configPath, []byte(`job "x" {`), 0o644))
	_, err := f.run(t, Config{Command: CommandCreate}, Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}
