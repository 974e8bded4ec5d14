package hcl_adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/simbatch/internal/config"
	"github.com/vk/simbatch/internal/ctxlog"
	"github.com/vk/simbatch/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	// Variables are exposed to expressions as var.<name>.
	Variables map[string]string
}

// NewLoader creates a new HCL configuration loader.
func NewLoader(vars map[string]string) *Loader {
	return &Loader{Variables: vars}
}

// Load parses every .hcl file reachable from paths and merges the job and
// cluster blocks into one model. A name defined twice is an error.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(hclFiles) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	evalCtx, err := l.evalContext()
	if err != nil {
		return nil, err
	}

	model := config.NewModel()
	parser := hclparse.NewParser()

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, jb := range root.Jobs {
			if _, dup := model.Jobs[jb.Name]; dup {
				return nil, fmt.Errorf("%s: job %q is defined more than once", file, jb.Name)
			}
			job, err := l.translateJob(ctx, jb, evalCtx)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			model.Jobs[job.Name] = job
		}
		for _, cb := range root.Clusters {
			if _, dup := model.Clusters[cb.Name]; dup {
				return nil, fmt.Errorf("%s: cluster %q is defined more than once", file, cb.Name)
			}
			cluster, err := l.translateCluster(ctx, cb)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			model.Clusters[cluster.Name] = cluster
		}
	}

	logger.Debug("HCL loading complete.", "jobs", len(model.Jobs), "clusters", len(model.Clusters))
	return model, nil
}

// findAllHCLFiles expands directories and returns a flat list of .hcl files.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			files, err := fsutil.FindFilesByExtension(path, ".hcl")
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				add(f)
			}
		} else if filepath.Ext(path) == ".hcl" {
			add(path)
		}
	}
	return allFiles, nil
}
