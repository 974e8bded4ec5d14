package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/pkg/sftp"
	"github.com/vk/simbatch/internal/ctxlog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Session is one SSH connection to the submit host plus an SFTP channel on it.
type Session struct {
	cfg    Config
	logger *slog.Logger

	client *ssh.Client
	sftp   *sftp.Client

	home homeCache
}

// homeCache remembers the remote home directory for the lifetime of a session.
type homeCache struct {
	mu   sync.Mutex
	home string
}

func (h *homeCache) resolve(ctx context.Context, c Commander) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.home != "" {
		return h.home, nil
	}
	home, err := resolveHome(ctx, c)
	if err != nil {
		return "", err
	}
	h.home = home
	return home, nil
}

// Dial opens the SSH connection and the SFTP channel. Any failure here is a
// transport failure and is returned as is; nothing is retried.
func Dial(ctx context.Context, cfg Config, logger *slog.Logger) (*Session, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid remote config: %w", err)
	}
	logger = ctxlog.OrDiscard(logger).With("host", cfg.Host, "user", cfg.Username)

	clientCfg, err := clientConfig(cfg)
	if err != nil {
		return nil, err
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Addr())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Addr(), err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, cfg.Addr(), clientCfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", cfg.Addr(), err)
	}
	client := ssh.NewClient(c, chans, reqs)

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("open sftp channel: %w", err)
	}

	logger.Info("Opened connection.")
	return &Session{cfg: cfg, logger: logger, client: client, sftp: sftpClient}, nil
}

// Host is an open connection to the submit host.
type Host interface {
	Commander
	FS() WritableFileSystem
	Home(ctx context.Context) (string, error)
}

// Connector opens a Host for cfg, runs fn and closes the host afterwards.
type Connector func(ctx context.Context, cfg Config, logger *slog.Logger, fn func(Host) error) error

// Connect is the SSH Connector.
func Connect(ctx context.Context, cfg Config, logger *slog.Logger, fn func(Host) error) error {
	return WithSession(ctx, cfg, logger, func(s *Session) error { return fn(s) })
}

// WithSession opens a session, runs fn and closes the session whatever fn returns.
func WithSession(ctx context.Context, cfg Config, logger *slog.Logger, fn func(*Session) error) (err error) {
	s, err := Dial(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(s)
}

func clientConfig(cfg Config) (*ssh.ClientConfig, error) {
	keyPath := cfg.KeyPath
	if keyPath == "" {
		p, err := DefaultKeyPath()
		if err != nil {
			return nil, err
		}
		keyPath = p
	}
	pemBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key %s: %w", keyPath, err)
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHostsPath != "" {
		hostKeyCallback, err = knownhosts.New(cfg.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("load known hosts: %w", err)
		}
	}

	return &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         cfg.CommandTimeout,
	}, nil
}

// Close releases the SFTP channel and the SSH connection.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.sftp != nil {
		if err := s.sftp.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sftp: %w", err))
		}
	}
	if s.client != nil {
		if err := s.client.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, fmt.Errorf("close ssh: %w", err))
		}
	}
	s.logger.Info("Closed connection.")
	return errors.Join(errs...)
}

// FS returns the SFTP channel as a file system.
func (s *Session) FS() WritableFileSystem {
	return sftpFS{client: s.sftp}
}

// Run executes cmds in one fresh remote shell, after sourcing the profile
// files, and returns stdout. The command is killed when ctx is done or the
// configured timeout elapses.
func (s *Session) Run(ctx context.Context, cmds ...string) (string, error) {
	line := buildCommand(cmds...)
	if s.cfg.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CommandTimeout)
		defer cancel()
	}

	sess, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("open command channel: %w", err)
	}
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- sess.Run(line) }()

	select {
	case err := <-done:
		if err != nil {
			var exitErr *ssh.ExitError
			if errors.As(err, &exitErr) {
				return stdout.String(), &CommandError{
					Command:    strings.Join(cmds, ";"),
					ExitStatus: exitErr.ExitStatus(),
					Stderr:     strings.TrimSpace(stderr.String()),
				}
			}
			return "", fmt.Errorf("run %q: %w", strings.Join(cmds, ";"), err)
		}
		s.logger.Debug("Ran remote command.", "cmd", strings.Join(cmds, ";"))
		return stdout.String(), nil
	case <-ctx.Done():
		_ = sess.Signal(ssh.SIGKILL)
		return "", fmt.Errorf("run %q: %w", strings.Join(cmds, ";"), ctx.Err())
	}
}

// Home returns the remote home directory. The first call runs pwd; later
// calls in the same session use the cached value.
func (s *Session) Home(ctx context.Context) (string, error) {
	return s.home.resolve(ctx, s)
}

func resolveHome(ctx context.Context, c Commander) (string, error) {
	out, err := c.Run(ctx, "pwd")
	if err != nil {
		return "", fmt.Errorf("resolve remote home: %w", err)
	}
	home := lastLine(out)
	if !path.IsAbs(home) {
		return "", fmt.Errorf("resolve remote home: unexpected pwd output %q", out)
	}
	return home, nil
}

// QueueStatus returns the scheduler queue listing without its header line.
func QueueStatus(ctx context.Context, c Commander) (string, error) {
	out, err := c.Run(ctx, "condor_q -wide")
	if err != nil {
		return "", fmt.Errorf("query queue: %w", err)
	}
	lines := strings.SplitAfter(out, "\n")
	if len(lines) > 1 {
		lines = lines[1:]
	}
	return "Job Status:\n" + strings.Join(lines, ""), nil
}

// Submit runs condor_submit on the submit file inside remoteJobDir.
func Submit(ctx context.Context, c Commander, remoteJobDir, submitFile string) (string, error) {
	out, err := c.Run(ctx, "cd "+shellQuote(remoteJobDir)+" && condor_submit "+shellQuote(submitFile))
	if err != nil {
		return out, fmt.Errorf("submit %s: %w", remoteJobDir, err)
	}
	return out, nil
}

var _ Host = (*Session)(nil)
