package remote

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
)

// WalkOptions selects what a Walk visits and what it does on each visit.
type WalkOptions struct {
	OnDirectory   func(ctx context.Context, rec FileRecord) error
	OnFile        func(ctx context.Context, rec FileRecord) error
	ExcludeHidden bool
	// BlacklistDirs holds directory names that are neither visited nor
	// descended into.
	BlacklistDirs []string
	// WhitelistExts limits the files passed to OnFile. Empty accepts all.
	WhitelistExts []string
	// Status receives a live progress line when set.
	Status io.Writer
}

// WalkState is the traversal bookkeeping owned by the caller.
type WalkState struct {
	PathsFound int
	Files      []string
	Dirs       []string
}

// NormalizeExtensions gives every extension a leading dot and drops blanks.
func NormalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

type walker struct {
	fs        FileSystem
	opts      WalkOptions
	state     *WalkState
	blacklist map[string]struct{}
	exts      []string
}

// Walk traverses the remote tree below root depth-first in listing order.
func Walk(ctx context.Context, fs FileSystem, root string, opts WalkOptions, state *WalkState) error {
	if state == nil {
		state = &WalkState{}
	}
	w := &walker{
		fs:        fs,
		opts:      opts,
		state:     state,
		blacklist: make(map[string]struct{}, len(opts.BlacklistDirs)),
		exts:      NormalizeExtensions(opts.WhitelistExts),
	}
	for _, d := range opts.BlacklistDirs {
		w.blacklist[d] = struct{}{}
	}
	err := w.walkDir(ctx, root)
	if opts.Status != nil {
		fmt.Fprintln(opts.Status)
	}
	return err
}

func (w *walker) walkDir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := w.fs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("list %s: %w", dir, err)
	}
	for _, info := range entries {
		name := info.Name()
		if w.opts.ExcludeHidden && strings.HasPrefix(name, ".") {
			continue
		}
		rec := recordFromInfo(path.Join(dir, name), info)
		w.state.PathsFound++
		w.report(rec.Path)

		switch {
		case rec.IsDir:
			if _, skip := w.blacklist[name]; skip {
				continue
			}
			w.state.Dirs = append(w.state.Dirs, rec.Path)
			if w.opts.OnDirectory != nil {
				if err := w.opts.OnDirectory(ctx, rec); err != nil {
					return err
				}
			}
			if err := w.walkDir(ctx, rec.Path); err != nil {
				return err
			}
		case rec.IsRegular:
			if !w.accepts(name) {
				continue
			}
			w.state.Files = append(w.state.Files, rec.Path)
			if w.opts.OnFile != nil {
				if err := w.opts.OnFile(ctx, rec); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (w *walker) accepts(name string) bool {
	if len(w.exts) == 0 {
		return true
	}
	for _, e := range w.exts {
		if strings.HasSuffix(name, e) {
			return true
		}
	}
	return false
}

func (w *walker) report(p string) {
	if w.opts.Status == nil {
		return
	}
	fmt.Fprintf(w.opts.Status, "\r\033[KPaths Found: %s | Current Path: %s", humanize.Comma(int64(w.state.PathsFound)), p)
}

// MirrorStats summarises one MirrorTree pass.
type MirrorStats struct {
	Checked    int
	Downloaded int
	Bytes      int64
}

// MirrorTree mirrors every whitelisted file below root, creating local
// directories as they are visited. Only files that were out of sync are
// transferred.
func (m *Mirror) MirrorTree(ctx context.Context, root string, opts WalkOptions, mopts MirrorOptions) (MirrorStats, *WalkState, error) {
	var stats MirrorStats
	state := &WalkState{}

	opts.OnDirectory = func(_ context.Context, rec FileRecord) error {
		return mkdirLocal(m.LocalPath(rec.Path))
	}
	opts.OnFile = func(ctx context.Context, rec FileRecord) error {
		stats.Checked++
		downloaded, err := m.MirrorFile(ctx, rec, mopts)
		if err != nil {
			return err
		}
		if downloaded {
			stats.Downloaded++
			stats.Bytes += rec.Size
		}
		return nil
	}

	if err := mkdirLocal(m.LocalPath(root)); err != nil {
		return stats, state, err
	}
	if len(NormalizeExtensions(opts.WhitelistExts)) == 0 {
		m.logger.Warn("No file extensions whitelisted, mirroring every file type.", "root", root)
	}
	err := Walk(ctx, m.fs, root, opts, state)
	m.logger.Info("Mirror pass complete.",
		"root", root,
		"paths_found", humanize.Comma(int64(state.PathsFound)),
		"checked", stats.Checked,
		"downloaded", stats.Downloaded,
		"transferred", humanize.Bytes(uint64(stats.Bytes)),
	)
	return stats, state, err
}
