package ctxlog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/graphgrad/internal/ctxlog"
)

func TestFromContext_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := ctxlog.New("debug", "text", &buf)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	assert.Same(t, logger, ctxlog.FromContext(ctx))
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	assert.Same(t, slog.Default(), ctxlog.FromContext(context.Background()))
}

func TestNew_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := ctxlog.New("warn", "json", &buf)

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept", "node", 3)
	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "kept", record["msg"])
	assert.Equal(t, float64(3), record["node"])
}
