package remote

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/vk/simbatch/internal/ctxlog"
)

const defaultHashCacheSize = 4096

// MirrorConfig configures a Mirror.
type MirrorConfig struct {
	LocalRoot         string
	IntegrityAttempts int
	HashCacheSize     int
	Logger            *slog.Logger
}

// Mirror copies remote files below LocalRoot, keeping the remote path layout.
type Mirror struct {
	fs        FileSystem
	cmd       Commander
	localRoot string
	attempts  int
	logger    *slog.Logger

	// remote hashes keyed by path, size and mtime
	hashes *lru.Cache[string, string]
}

// MirrorOptions controls a single file transfer.
type MirrorOptions struct {
	Force          bool
	IntegrityCheck bool
}

// NewMirror returns a Mirror reading through fs and hashing through cmd.
func NewMirror(fs FileSystem, cmd Commander, cfg MirrorConfig) (*Mirror, error) {
	if fs == nil {
		return nil, fmt.Errorf("remote file system is required")
	}
	if strings.TrimSpace(cfg.LocalRoot) == "" {
		return nil, fmt.Errorf("local mirror root is required")
	}
	if cfg.IntegrityAttempts <= 0 {
		cfg.IntegrityAttempts = DefaultIntegrityAttempts
	}
	if cfg.HashCacheSize <= 0 {
		cfg.HashCacheSize = defaultHashCacheSize
	}
	cache, err := lru.New[string, string](cfg.HashCacheSize)
	if err != nil {
		return nil, fmt.Errorf("init hash cache: %w", err)
	}
	return &Mirror{
		fs:        fs,
		cmd:       cmd,
		localRoot: cfg.LocalRoot,
		attempts:  cfg.IntegrityAttempts,
		logger:    ctxlog.OrDiscard(cfg.Logger),
		hashes:    cache,
	}, nil
}

// NewHostMirror builds a Mirror on an open host using the cluster config.
func NewHostMirror(h Host, cfg Config, logger *slog.Logger) (*Mirror, error) {
	cfg = cfg.withDefaults()
	return NewMirror(h.FS(), h, MirrorConfig{
		LocalRoot:         cfg.MirrorRoot,
		IntegrityAttempts: cfg.IntegrityAttempts,
		Logger:            logger,
	})
}

// LocalRoot returns the directory the mirror writes below.
func (m *Mirror) LocalRoot() string {
	return m.localRoot
}

// LocalPath maps a remote POSIX path to its place below the mirror root.
func (m *Mirror) LocalPath(remotePath string) string {
	return mirrorPath(m.localRoot, remotePath)
}

func mirrorPath(root, remotePath string) string {
	parts := append([]string{root}, strings.Split(remotePath, "/")...)
	return filepath.Join(parts...)
}

// Stat returns the record for a single remote path.
func (m *Mirror) Stat(remotePath string) (FileRecord, error) {
	info, err := m.fs.Lstat(remotePath)
	if err != nil {
		return FileRecord{}, fmt.Errorf("stat %s: %w", remotePath, err)
	}
	return recordFromInfo(remotePath, info), nil
}

// IsSynced reports whether localPath exists with exactly the size and
// modification time of rec. It never looks at content.
func IsSynced(rec FileRecord, localPath string) bool {
	info, err := os.Stat(localPath)
	if err != nil {
		return false
	}
	return info.Size() == rec.Size && info.ModTime().Equal(rec.ModTime)
}

// MirrorFile downloads rec unless the local copy is already in sync. With
// IntegrityCheck set, the download is hashed locally and remotely and
// repeated on mismatch, up to the configured number of attempts, after which
// an *IntegrityError is returned. It reports whether anything was downloaded.
func (m *Mirror) MirrorFile(ctx context.Context, rec FileRecord, opts MirrorOptions) (bool, error) {
	localPath := m.LocalPath(rec.Path)
	force := opts.Force
	downloaded := false

	for attempt := 1; ; attempt++ {
		if !force && IsSynced(rec, localPath) {
			return downloaded, nil
		}
		if err := ctx.Err(); err != nil {
			return downloaded, err
		}
		if err := m.download(rec, localPath); err != nil {
			return downloaded, err
		}
		downloaded = true
		if !opts.IntegrityCheck {
			return downloaded, nil
		}

		remoteHash, err := m.remoteHash(ctx, rec)
		if err != nil {
			return downloaded, err
		}
		localHash, err := localHash(localPath)
		if err != nil {
			return downloaded, err
		}
		if remoteHash == localHash {
			return downloaded, nil
		}
		if attempt >= m.attempts {
			return downloaded, &IntegrityError{
				RemotePath: rec.Path,
				LocalPath:  localPath,
				Attempts:   attempt,
				Remote:     remoteHash,
				Local:      localHash,
			}
		}
		m.logger.Warn("MD5 mismatch, retrying download.", "remote_path", rec.Path, "local_path", localPath, "attempt", attempt)
		force = true
	}
}

// download copies the remote file into a temporary sibling of localPath,
// renames it into place and stamps it with the remote times.
func (m *Mirror) download(rec FileRecord, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	src, err := m.fs.Open(rec.Path)
	if err != nil {
		return fmt.Errorf("open remote %s: %w", rec.Path, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(localPath), "."+filepath.Base(localPath)+".*.part")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return fmt.Errorf("download %s: %w", rec.Path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, localPath); err != nil {
		return err
	}
	if err := os.Chtimes(localPath, rec.AccessTime, rec.ModTime); err != nil {
		return err
	}
	m.logger.Debug("Downloaded file.", "local_path", localPath, "remote_path", rec.Path)
	return nil
}

func (m *Mirror) remoteHash(ctx context.Context, rec FileRecord) (string, error) {
	if m.cmd == nil {
		return "", fmt.Errorf("integrity check of %s needs a command channel", rec.Path)
	}
	key := fmt.Sprintf("%s|%d|%d", rec.Path, rec.Size, rec.ModTime.UnixNano())
	if h, ok := m.hashes.Get(key); ok {
		return h, nil
	}
	out, err := m.cmd.Run(ctx, hashCommand(rec.Path))
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", rec.Path, err)
	}
	h, err := parseHash(out)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", rec.Path, err)
	}
	m.hashes.Add(key, h)
	return h, nil
}

func localHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
