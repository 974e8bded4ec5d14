package remote

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/vk/simbatch/internal/ctxlog"
)

func mkdirLocal(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// Push uploads the local directory tree localDir to remoteDir, preserving
// modification times. Existing remote files are overwritten.
func Push(ctx context.Context, fs WritableFileSystem, localDir, remoteDir string, logger *slog.Logger) error {
	logger = ctxlog.OrDiscard(logger)
	var files int
	var bytes int64

	err := filepath.WalkDir(localDir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		target := path.Join(remoteDir, filepath.ToSlash(rel))
		if d.IsDir() {
			if err := fs.MkdirAll(target); err != nil {
				return fmt.Errorf("create remote dir %s: %w", target, err)
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		n, err := pushFile(fs, p, target)
		if err != nil {
			return err
		}
		files++
		bytes += n
		return nil
	})
	if err != nil {
		return err
	}
	logger.Info("Pushed job directory.", "local", localDir, "remote", remoteDir, "files", files, "size", humanize.Bytes(uint64(bytes)))
	return nil
}

func pushFile(fs WritableFileSystem, localPath, remotePath string) (int64, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return 0, err
	}
	defer src.Close()
	info, err := src.Stat()
	if err != nil {
		return 0, err
	}

	dst, err := fs.Create(remotePath)
	if err != nil {
		return 0, fmt.Errorf("create remote %s: %w", remotePath, err)
	}
	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("upload %s: %w", remotePath, err)
	}
	if err := fs.Chtimes(remotePath, info.ModTime(), info.ModTime()); err != nil {
		return n, fmt.Errorf("set times on %s: %w", remotePath, err)
	}
	return n, nil
}
