package remote

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_WithDefaults(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	cfg := Config{Host: "submit.example.org", Username: "u", KeyPath: "~/.ssh/id_ed25519"}.withDefaults()

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultCommandTimeout, cfg.CommandTimeout)
	assert.Equal(t, DefaultIntegrityAttempts, cfg.IntegrityAttempts)
	assert.Equal(t, DefaultMirrorRoot, cfg.MirrorRoot)
	assert.Equal(t, filepath.Join("/home/tester", ".ssh/id_ed25519"), cfg.KeyPath)
	assert.Equal(t, "submit.example.org:22", cfg.Addr())
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, Config{Host: "h", Username: "u", CommandTimeout: time.Second}.Validate())

	err := Config{Port: 70000, CommandTimeout: -1}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host is required")
	assert.Contains(t, err.Error(), "username is required")
	assert.Contains(t, err.Error(), "out of range")
	assert.Contains(t, err.Error(), "must not be negative")
}
