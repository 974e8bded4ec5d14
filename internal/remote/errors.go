package remote

import (
	"errors"
	"fmt"
)

// ErrIntegrityExhausted is wrapped by IntegrityError once every download
// attempt of a file produced a hash mismatch.
var ErrIntegrityExhausted = errors.New("integrity check attempts exhausted")

// IntegrityError reports a file whose local copy never matched the remote hash.
type IntegrityError struct {
	RemotePath string
	LocalPath  string
	Attempts   int
	Remote     string
	Local      string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s -> %s: md5 mismatch after %d attempts (remote %s, local %s)",
		e.RemotePath, e.LocalPath, e.Attempts, e.Remote, e.Local)
}

func (e *IntegrityError) Unwrap() error {
	return ErrIntegrityExhausted
}

// CommandError is returned when a remote command ran but exited non-zero.
type CommandError struct {
	Command    string
	ExitStatus int
	Stderr     string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("remote command %q exited with status %d: %s", e.Command, e.ExitStatus, e.Stderr)
}
