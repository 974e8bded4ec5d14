package remote

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultPort              = 22
	DefaultCommandTimeout    = 2 * time.Minute
	DefaultIntegrityAttempts = 3
	DefaultMirrorRoot        = "cluster_mirror"
)

// Config describes how to reach the submit host and where to mirror it.
type Config struct {
	Host           string
	Port           int
	Username       string
	KeyPath        string
	KnownHostsPath string // empty accepts any host key

	MirrorRoot        string
	CommandTimeout    time.Duration
	IntegrityAttempts int
}

// withDefaults fills zero values and expands a leading ~ in paths.
// MirrorPath is where a mirror of this cluster keeps remotePath locally.
// It needs no connection.
func (c Config) MirrorPath(remotePath string) string {
	return mirrorPath(c.withDefaults().MirrorRoot, remotePath)
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}
	if c.IntegrityAttempts <= 0 {
		c.IntegrityAttempts = DefaultIntegrityAttempts
	}
	if c.MirrorRoot == "" {
		c.MirrorRoot = DefaultMirrorRoot
	}
	c.KeyPath = expandHome(c.KeyPath)
	c.KnownHostsPath = expandHome(c.KnownHostsPath)
	c.MirrorRoot = expandHome(c.MirrorRoot)
	return c
}

// Validate fails fast on configuration that cannot produce a session.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Host) == "" {
		errs = append(errs, errors.New("host is required"))
	}
	if strings.TrimSpace(c.Username) == "" {
		errs = append(errs, errors.New("username is required"))
	}
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d is out of range", c.Port))
	}
	if c.CommandTimeout < 0 {
		errs = append(errs, errors.New("command timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// Addr returns host:port.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DefaultKeyPath returns the first private key in ~/.ssh that has a matching
// public key, trying ed25519, rsa and ecdsa in that order.
func DefaultKeyPath() (string, error) {
	sshDir := filepath.Join(os.Getenv("HOME"), ".ssh")
	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		if _, err := os.Stat(filepath.Join(sshDir, name+".pub")); err == nil {
			return filepath.Join(sshDir, name), nil
		}
	}
	return "", fmt.Errorf("no SSH private key found in %s", sshDir)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		return filepath.Join(os.Getenv("HOME"), strings.TrimPrefix(p, "~"))
	}
	return p
}
