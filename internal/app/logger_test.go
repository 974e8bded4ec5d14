package app

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("warn", "json", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", 1)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	newLogger("bogus", "text", &buf).Info("fallback")
	assert.Contains(t, buf.String(), "msg=fallback")
}

func TestNewLogger_LevelNames(t *testing.T) {
	testCases := []struct {
		level string
		debug bool
		info  bool
	}{
		{level: "debug", debug: true, info: true},
		{level: "DEBUG", debug: true, info: true},
		{level: "info", info: true},
		{level: "", info: true},
		{level: "error"},
	}
	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(tc.level, "text", &buf)
			logger.Debug("d")
			logger.Info("i")
			assert.Equal(t, tc.debug, strings.Contains(buf.String(), "msg=d"))
			assert.Equal(t, tc.info, strings.Contains(buf.String(), "msg=i"))
		})
	}
}
