// This file contains the logic for translating HCL schema structs into the
// format-agnostic configuration model defined in the config package.

package hcl_adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/simbatch/internal/config"
	"github.com/vk/simbatch/internal/ctxlog"
	"github.com/vk/simbatch/internal/jobdir"
	"github.com/vk/simbatch/internal/parameter"
	"github.com/vk/simbatch/internal/remote"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// translateJob evaluates every parameter expression and builds the job model.
func (l *Loader) translateJob(ctx context.Context, jb *jobBlock, evalCtx *hcl.EvalContext) (*config.Job, error) {
	logger := ctxlog.FromContext(ctx).With("job", jb.Name)
	ctx = ctxlog.WithLogger(ctx, logger)

	job := &config.Job{
		Name:           jb.Name,
		SimulationType: jb.SimulationType,
	}
	for _, pb := range jb.Parameters {
		p, err := translateParameter(ctx, pb, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", jb.Name, err)
		}
		job.Parameters = append(job.Parameters, p)
	}
	if s := jb.Submit; s != nil {
		job.Submit = jobdir.SubmitOptions{
			BatchName:          s.BatchName,
			Checkpoints:        s.Checkpoints,
			MemoryGB:           s.MemoryGB,
			DiskGB:             s.DiskGB,
			MaxMaterialize:     s.MaxMaterialize,
			Executable:         s.Executable,
			TransferInputFiles: s.TransferInputFiles,
			Requirements:       s.Requirements,
		}
	}
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("job %q: %w", jb.Name, err)
	}
	logger.Debug("Translated job.", "parameters", len(job.Parameters))
	return job, nil
}

func translateParameter(ctx context.Context, pb *parameterBlock, evalCtx *hcl.EvalContext) (parameter.Parameter, error) {
	p := parameter.Parameter{Name: pb.Name}

	val, diags := pb.Value.Value(evalCtx)
	if diags.HasErrors() {
		return p, fmt.Errorf("invalid value for parameter '%s': %w", pb.Name, diags)
	}
	native, err := ctyToNative(val)
	if err != nil {
		return p, fmt.Errorf("parameter '%s': %w", pb.Name, err)
	}
	p.Value = native

	if attrWritten(ctx, pb.Expandable, "expandable") {
		ev, diags := pb.Expandable.Value(evalCtx)
		if diags.HasErrors() {
			return p, fmt.Errorf("invalid expandable flag for parameter '%s': %w", pb.Name, diags)
		}
		if ev.IsNull() || ev.Type() != cty.Bool {
			return p, fmt.Errorf("expandable flag for parameter '%s' must be a bool, got %s", pb.Name, ev.Type().FriendlyName())
		}
		if err := gocty.FromCtyValue(ev, &p.Expandable); err != nil {
			return p, err
		}
	}
	return p, nil
}

// translateCluster builds the cluster model. Validation of the connection
// settings happens when a session is opened.
func (l *Loader) translateCluster(ctx context.Context, cb *clusterBlock) (*config.Cluster, error) {
	ctxlog.FromContext(ctx).Debug("Translating cluster.", "cluster", cb.Name, "host", cb.Host)

	var timeout time.Duration
	if cb.CommandTimeout != "" {
		d, err := time.ParseDuration(cb.CommandTimeout)
		if err != nil {
			return nil, fmt.Errorf("cluster %q: invalid command_timeout: %w", cb.Name, err)
		}
		timeout = d
	}

	rc := remote.Config{
		Host:              cb.Host,
		Port:              cb.Port,
		Username:          cb.Username,
		KeyPath:           cb.KeyPath,
		KnownHostsPath:    cb.KnownHosts,
		MirrorRoot:        cb.MirrorRoot,
		CommandTimeout:    timeout,
		IntegrityAttempts: cb.IntegrityAttempts,
	}
	if err := rc.Validate(); err != nil {
		return nil, fmt.Errorf("cluster %q: %w", cb.Name, err)
	}

	return &config.Cluster{
		Name:          cb.Name,
		Remote:        rc,
		JobsDir:       cb.JobsDir,
		BlacklistDirs: cb.BlacklistDirs,
		WhitelistExts: cb.WhitelistExts,
	}, nil
}
