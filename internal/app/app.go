package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"

	"github.com/vk/simbatch/internal/archive"
	"github.com/vk/simbatch/internal/config"
	"github.com/vk/simbatch/internal/ctxlog"
	"github.com/vk/simbatch/internal/remote"
)

// Archiver publishes job summaries somewhere durable.
type Archiver interface {
	UploadFile(ctx context.Context, prefix, name, localPath string) error
	UploadDir(ctx context.Context, prefix, dir string) (int, error)
}

var _ Archiver = (*archive.S3Store)(nil)

// Deps are the collaborators an App talks to. Zero values select the real
// implementations.
type Deps struct {
	Connect  remote.Connector
	Archiver Archiver
	// Status receives the live path counter while mirroring.
	Status io.Writer
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	loader config.Loader
	deps   Deps
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, deps Deps) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	if deps.Connect == nil {
		deps.Connect = remote.Connect
	}
	return &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		loader: loader,
		deps:   deps,
	}
}

// Run executes the configured command.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", a.config.Command)

	var model *config.Model
	if a.config.needsModel() {
		m, err := a.loader.Load(ctx, a.config.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		model = m
		a.logger.Debug("Configuration loaded and translated into unified model.", "jobs", len(m.Jobs), "clusters", len(m.Clusters))
	}

	var err error
	switch a.config.Command {
	case CommandCreate:
		err = a.create(ctx, model)
	case CommandSubmit:
		err = a.submit(ctx, model)
	case CommandStatus:
		err = a.status(ctx, model)
	case CommandMirror:
		err = a.mirror(ctx, model)
	case CommandProcess:
		err = a.process(ctx, model)
	default:
		err = fmt.Errorf("unknown command %q", a.config.Command)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", a.config.Command, err)
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

// jobName is the configured job, falling back to the only job in model.
func (a *App) jobName(model *config.Model) (string, error) {
	if a.config.JobName != "" {
		return a.config.JobName, nil
	}
	if model == nil {
		return "", fmt.Errorf("no job selected")
	}
	job, err := model.Job("")
	if err != nil {
		return "", err
	}
	return job.Name, nil
}

func (a *App) jobDir(name string) string {
	if a.config.JobDir != "" {
		return a.config.JobDir
	}
	return filepath.Join(a.config.JobsDir, name)
}

// remoteJobsDir resolves the cluster's jobs directory against the remote home.
func remoteJobsDir(home string, cluster *config.Cluster) string {
	dir := cluster.JobsDir
	if dir == "" {
		dir = DefaultJobsDir
	}
	if path.IsAbs(dir) {
		return path.Clean(dir)
	}
	return path.Join(home, dir)
}
