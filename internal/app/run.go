package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/vk/simbatch/internal/archive"
	"github.com/vk/simbatch/internal/config"
	"github.com/vk/simbatch/internal/jobdir"
	"github.com/vk/simbatch/internal/parameter"
	"github.com/vk/simbatch/internal/processor"
	"github.com/vk/simbatch/internal/remote"
	"github.com/vk/simbatch/internal/spec"
)

// create expands the job's parameters and writes its job directory.
func (a *App) create(ctx context.Context, model *config.Model) error {
	job, err := model.Job(a.config.JobName)
	if err != nil {
		return err
	}
	sets, err := parameter.Expand(job.Parameters)
	if err != nil {
		return err
	}
	specs := spec.FromSets(job.Name, job.SimulationType, sets)
	a.logger.Info("Expanded parameters.", "job", job.Name, "specifications", humanize.Comma(int64(len(specs))))

	layout := jobdir.Layout{Root: a.jobDir(job.Name)}
	info, err := jobdir.Write(ctx, layout, jobdir.Job{
		Name:           job.Name,
		SimulationType: job.SimulationType,
		Parameters:     job.Parameters,
		Specs:          specs,
		Submit:         job.Submit,
	}, a.logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.outW, "Created job %s (%s simulations) in %s\n", info.JobName, humanize.Comma(int64(info.SpecCount)), layout.Root)
	return nil
}

// submit pushes the local job directory to the cluster and queues it.
func (a *App) submit(ctx context.Context, model *config.Model) error {
	name, err := a.jobName(model)
	if err != nil {
		return err
	}
	cluster, err := model.Cluster(a.config.ClusterName)
	if err != nil {
		return err
	}
	layout := jobdir.Layout{Root: a.jobDir(name)}
	info, err := jobdir.LoadInfo(layout)
	if err != nil {
		return fmt.Errorf("job %s has not been created: %w", name, err)
	}

	return a.deps.Connect(ctx, cluster.Remote, a.logger, func(h remote.Host) error {
		home, err := h.Home(ctx)
		if err != nil {
			return err
		}
		remoteDir := path.Join(remoteJobsDir(home, cluster), name)
		if err := remote.Push(ctx, h.FS(), layout.Root, remoteDir, a.logger); err != nil {
			return err
		}
		out, err := remote.Submit(ctx, h, remoteDir, jobdir.SubmitFileName)
		if err != nil {
			return err
		}
		fmt.Fprint(a.outW, out)

		info.RemoteDir = remoteDir
		return jobdir.SaveInfo(layout, info)
	})
}

// status prints the cluster queue.
func (a *App) status(ctx context.Context, model *config.Model) error {
	cluster, err := model.Cluster(a.config.ClusterName)
	if err != nil {
		return err
	}
	return a.deps.Connect(ctx, cluster.Remote, a.logger, func(h remote.Host) error {
		out, err := remote.QueueStatus(ctx, h)
		if err != nil {
			return err
		}
		_, err = io.WriteString(a.outW, out)
		return err
	})
}

// mirror copies the remote jobs tree, or a single job when one is selected,
// into the local mirror root.
func (a *App) mirror(ctx context.Context, model *config.Model) error {
	cluster, err := model.Cluster(a.config.ClusterName)
	if err != nil {
		return err
	}
	return a.deps.Connect(ctx, cluster.Remote, a.logger, func(h remote.Host) error {
		m, err := remote.NewHostMirror(h, cluster.Remote, a.logger)
		if err != nil {
			return err
		}
		home, err := h.Home(ctx)
		if err != nil {
			return err
		}
		root := remoteJobsDir(home, cluster)
		if a.config.JobName != "" {
			root = path.Join(root, a.config.JobName)
		}

		stats, state, err := m.MirrorTree(ctx, root, remote.WalkOptions{
			ExcludeHidden: true,
			BlacklistDirs: cluster.BlacklistDirs,
			WhitelistExts: cluster.WhitelistExts,
			Status:        a.deps.Status,
		}, remote.MirrorOptions{Force: a.config.Force, IntegrityCheck: a.config.IntegrityCheck})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.outW, "Mirrored %s into %s: %s paths, %s files checked, %s downloaded (%s)\n",
			root, m.LocalPath(root),
			humanize.Comma(int64(state.PathsFound)),
			humanize.Comma(int64(stats.Checked)),
			humanize.Comma(int64(stats.Downloaded)),
			humanize.Bytes(uint64(stats.Bytes)),
		)
		return nil
	})
}

// process loads finished simulations, rewrites the summaries and optionally
// archives them.
func (a *App) process(ctx context.Context, model *config.Model) error {
	name, err := a.jobName(model)
	if err != nil {
		return err
	}
	layout := jobdir.Layout{Root: a.jobDir(name)}

	simType := processor.DefaultResultType
	info, err := jobdir.LoadInfo(layout)
	switch {
	case err == nil:
		simType = info.SimulationType
	case !errors.Is(err, os.ErrNotExist):
		return err
	case model != nil:
		if job, ok := model.Jobs[name]; ok && job.SimulationType != "" {
			simType = job.SimulationType
		}
	}

	opts := processor.Options{Logger: a.logger}
	if info != nil && info.RemoteDir != "" {
		outputs, err := a.mirroredOutputs(model, info.RemoteDir)
		if err != nil {
			return err
		}
		if outputs != "" {
			a.logger.Info("Reading results from the cluster mirror.", "job", name, "outputs", outputs)
		}
		opts.OutputsDir = outputs
	}

	p, err := processor.Open(name, layout.Root, simType, opts)
	if err != nil {
		return err
	}
	stats, err := p.LoadSims(ctx, a.config.Force)
	if err != nil {
		return err
	}
	summary, err := p.Summarize(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.outW, p.String())
	fmt.Fprintf(a.outW, "Loaded %d, pending %d, corrupt %d, failed %d\n", stats.Processed, stats.Pending, stats.Corrupt, stats.Failed)
	if summary == nil {
		return nil
	}
	fmt.Fprint(a.outW, summary.Diagnostics.String())

	if !a.config.Archive {
		return nil
	}
	return a.archive(ctx, p, summary)
}

// mirroredOutputs is the local mirror of a submitted job's outputs/. It is
// empty when no cluster is configured, in which case results are read from
// the job directory itself.
func (a *App) mirroredOutputs(model *config.Model, remoteDir string) (string, error) {
	if model == nil || len(model.Clusters) == 0 {
		return "", nil
	}
	cluster, err := model.Cluster(a.config.ClusterName)
	if err != nil {
		return "", err
	}
	return jobdir.Layout{Root: cluster.Remote.MirrorPath(remoteDir)}.Outputs(), nil
}

func (a *App) archive(ctx context.Context, p *processor.Processor, summary *processor.Summary) error {
	store := a.deps.Archiver
	if store == nil {
		cfg, ok := archive.ConfigFromEnv()
		if !ok {
			return errors.New("archiving requested but ARCHIVE_S3_ENDPOINT is not set")
		}
		s, err := archive.NewS3Store(cfg, a.logger)
		if err != nil {
			return err
		}
		store = s
	}

	prefix := p.Name()
	n, err := store.UploadDir(ctx, prefix+"/summaries", p.Layout().Summaries())
	if err != nil {
		return err
	}
	for _, local := range []string{summary.ReportPath, processor.SnapshotPath(p.JobDir(), p.Name())} {
		if err := store.UploadFile(ctx, prefix, filepath.Base(local), local); err != nil {
			return err
		}
		n++
	}
	fmt.Fprintf(a.outW, "Archived %d files under %s\n", n, prefix)
	return nil
}
