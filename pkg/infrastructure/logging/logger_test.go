package logging

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market.log")
	logger, err := New(&Config{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info("plan executed", zap.Int("allocations", 2))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"plan executed"`)
	assert.Contains(t, string(data), `"allocations":2`)
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	logger := zap.NewExample()
	ctx := WithContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))

	assert.NotNil(t, OrNop(nil))
	assert.Same(t, logger, OrNop(logger))
}

func TestFromConfig_KeepsDefaultsForEmptyFields(t *testing.T) {
	cfg := FromConfig("debug", "", "")
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stderr", cfg.Output)

	assert.Equal(t, "json", ProductionConfig().Format)

	logger, err := NewForEnvironment("development")
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
