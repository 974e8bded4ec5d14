// Package persist saves and loads objects as zstd-compressed msgpack files.
//
// Every persisted type in this module (specifications, simulations, job
// processors) goes through WriteFile and ReadFile so that corruption is
// reported the same way everywhere.
package persist

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	// ErrCorrupt means the compressed frame could not be decompressed. The
	// file is damaged and should be discarded.
	ErrCorrupt = errors.New("corrupt compressed payload")

	// ErrDecode means the payload decompressed cleanly but did not decode into
	// the requested type.
	ErrDecode = errors.New("payload decode failed")
)

// Persistable is implemented by anything that can write itself into a
// directory. Each type provides its own package-level Load function.
type Persistable interface {
	Save(dir string) (string, error)
}

var (
	encoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	decoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil)
	})
)

// Marshal encodes v and compresses it.
func Marshal(v any) ([]byte, error) {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	enc, err := encoder()
	if err != nil {
		return nil, fmt.Errorf("init zstd encoder: %w", err)
	}
	return enc.EncodeAll(raw, nil), nil
}

// Unmarshal decompresses data and decodes it into v. Empty input and a frame
// that ends early are io.EOF, so a file still being written reads as absent.
func Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return io.EOF
	}
	dec, err := decoder()
	if err != nil {
		return fmt.Errorf("init zstd decoder: %w", err)
	}
	raw, err := dec.DecodeAll(data, nil)
	if truncated(err) {
		return fmt.Errorf("truncated frame: %w", io.EOF)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	md := msgpack.NewDecoder(bytes.NewReader(raw))
	md.UseLooseInterfaceDecoding(true)
	if err := md.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

func truncated(err error) bool {
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, zstd.ErrBlockTooSmall)
}

// WriteFile writes v to path atomically: the data lands in a temporary file
// in the same directory which is then renamed over path.
func WriteFile(path string, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// ReadFile loads path into v. A missing file returns an error wrapping
// fs.ErrNotExist, an empty one io.EOF.
func ReadFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := Unmarshal(data, v); err != nil {
		if errors.Is(err, io.EOF) {
			return err
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// Path returns dir/name+ext with characters that are illegal in file names
// removed from name.
func Path(dir, name, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(dir, StripIllegal(name)+ext)
}

// StripIllegal removes characters that cannot appear in a file name on common
// file systems.
func StripIllegal(name string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(`<>:"/\|?*`, r) {
			return -1
		}
		return r
	}, name)
}
