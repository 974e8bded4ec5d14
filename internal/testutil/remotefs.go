package testutil

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// DirFS serves a local directory as if it were the remote file system.
// Remote paths are POSIX paths resolved below Root.
type DirFS struct {
	Root string

	mu     sync.Mutex
	opens  map[string]int
	garble map[string]int
}

// NewDirFS returns a DirFS rooted at root.
func NewDirFS(root string) *DirFS {
	return &DirFS{Root: root, opens: map[string]int{}, garble: map[string]int{}}
}

// GarbleReads makes the next n opens of p return the file's bytes inverted,
// as a transfer damaged in flight would.
func (d *DirFS) GarbleReads(p string, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.garble[p] = n
}

func (d *DirFS) local(p string) string {
	return filepath.Join(d.Root, filepath.FromSlash(p))
}

// ReadDir lists a directory.
func (d *DirFS) ReadDir(p string) ([]os.FileInfo, error) {
	entries, err := os.ReadDir(d.local(p))
	if err != nil {
		return nil, err
	}
	infos := make([]os.FileInfo, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Lstat stats a path without following links.
func (d *DirFS) Lstat(p string) (os.FileInfo, error) {
	return os.Lstat(d.local(p))
}

// Open opens a file for reading and counts the call.
func (d *DirFS) Open(p string) (io.ReadCloser, error) {
	d.mu.Lock()
	d.opens[p]++
	garbled := d.garble[p] > 0
	if garbled {
		d.garble[p]--
	}
	d.mu.Unlock()
	if !garbled {
		return os.Open(d.local(p))
	}
	b, err := os.ReadFile(d.local(p))
	if err != nil {
		return nil, err
	}
	for i := range b {
		b[i] = ^b[i]
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

// MkdirAll creates a directory and its parents.
func (d *DirFS) MkdirAll(p string) error {
	return os.MkdirAll(d.local(p), 0o755)
}

// Create creates or truncates a file.
func (d *DirFS) Create(p string) (io.WriteCloser, error) {
	return os.Create(d.local(p))
}

// Chtimes sets access and modification times.
func (d *DirFS) Chtimes(p string, atime, mtime time.Time) error {
	return os.Chtimes(d.local(p), atime, mtime)
}

// Opens reports how many times p was opened for reading.
func (d *DirFS) Opens(p string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens[p]
}

var md5Cmd = regexp.MustCompile(`^openssl md5 '(.*)'$`)

// FakeCommander answers the handful of shell commands the cluster tooling
// sends, using FS for file hashes.
type FakeCommander struct {
	FS    *DirFS
	Home  string
	Queue string
	// Hashes overrides the hash reported for a remote path.
	Hashes map[string]string
	// Err, when set, is returned by every call.
	Err error

	mu    sync.Mutex
	calls [][]string
}

// Run records the command list and returns canned output.
func (f *FakeCommander) Run(_ context.Context, cmds ...string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), cmds...))
	f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}

	var out strings.Builder
	for _, c := range cmds {
		switch {
		case c == "pwd":
			fmt.Fprintln(&out, f.Home)
		case strings.HasPrefix(c, "condor_q"):
			out.WriteString(f.Queue)
		case strings.Contains(c, "condor_submit"):
			fmt.Fprintln(&out, "1 job(s) submitted to cluster 42.")
		case md5Cmd.MatchString(c):
			p := md5Cmd.FindStringSubmatch(c)[1]
			h, err := f.hash(p)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&out, "MD5(%s)= %s\n", p, h)
		default:
			return "", fmt.Errorf("unexpected command %q", c)
		}
	}
	return out.String(), nil
}

func (f *FakeCommander) hash(p string) (string, error) {
	if h, ok := f.Hashes[p]; ok {
		return h, nil
	}
	b, err := os.ReadFile(f.FS.local(p))
	if err != nil {
		return "", err
	}
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:]), nil
}

// Calls returns every recorded command list.
func (f *FakeCommander) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.calls...)
}

// CountCalls returns how many recorded command lists contain substr.
func (f *FakeCommander) CountCalls(substr string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.Contains(strings.Join(c, ";"), substr) {
			n++
		}
	}
	return n
}
