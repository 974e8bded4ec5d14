package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromContext_ReturnsAttachedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithLogger(context.Background(), logger)
	FromContext(ctx).Info("hello")

	require.Contains(t, buf.String(), "hello")
}

func TestFromContext_MissingLoggerDiscards(t *testing.T) {
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
	require.NotPanics(t, func() { logger.Info("dropped") })
}

func TestOrDiscard(t *testing.T) {
	require.NotNil(t, OrDiscard(nil))

	l := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	require.Same(t, l, OrDiscard(l))
}
