package remote

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/sftp"
)

// FileSystem is the read side of the remote file transfer channel.
type FileSystem interface {
	ReadDir(path string) ([]os.FileInfo, error)
	Lstat(path string) (os.FileInfo, error)
	Open(path string) (io.ReadCloser, error)
}

// WritableFileSystem adds the operations needed to push files to the remote.
type WritableFileSystem interface {
	FileSystem
	MkdirAll(path string) error
	Create(path string) (io.WriteCloser, error)
	Chtimes(path string, atime, mtime time.Time) error
}

// Commander runs shell command lists on the remote host and returns stdout.
type Commander interface {
	Run(ctx context.Context, cmds ...string) (string, error)
}

// FileRecord is the stat of one remote path. It is recomputed on every pass.
type FileRecord struct {
	Path       string
	Name       string
	Size       int64
	ModTime    time.Time
	AccessTime time.Time
	IsDir      bool
	IsRegular  bool
}

// recordFromInfo converts a stat result. SFTP attributes carry an access time;
// other implementations fall back to the modification time.
func recordFromInfo(path string, info os.FileInfo) FileRecord {
	rec := FileRecord{
		Path:       path,
		Name:       info.Name(),
		Size:       info.Size(),
		ModTime:    info.ModTime(),
		AccessTime: info.ModTime(),
		IsDir:      info.IsDir(),
		IsRegular:  info.Mode().IsRegular(),
	}
	if st, ok := info.Sys().(*sftp.FileStat); ok {
		rec.AccessTime = time.Unix(int64(st.Atime), 0)
		rec.ModTime = time.Unix(int64(st.Mtime), 0)
	}
	return rec
}

// sftpFS adapts *sftp.Client to WritableFileSystem.
type sftpFS struct {
	client *sftp.Client
}

func (f sftpFS) ReadDir(path string) ([]os.FileInfo, error) {
	return f.client.ReadDir(path)
}

func (f sftpFS) Lstat(path string) (os.FileInfo, error) {
	return f.client.Lstat(path)
}

func (f sftpFS) Open(path string) (io.ReadCloser, error) {
	return f.client.Open(path)
}

func (f sftpFS) MkdirAll(path string) error {
	return f.client.MkdirAll(path)
}

func (f sftpFS) Create(path string) (io.WriteCloser, error) {
	return f.client.Create(path)
}

func (f sftpFS) Chtimes(path string, atime, mtime time.Time) error {
	return f.client.Chtimes(path, atime, mtime)
}

var _ WritableFileSystem = sftpFS{}
