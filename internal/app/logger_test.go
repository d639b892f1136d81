package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLoggerHonorsLevel(t *testing.T) {
	ctx := context.Background()

	quiet := NewLogger(&Config{LogLevel: "error"})
	assert.False(t, quiet.Enabled(ctx, slog.LevelInfo))
	assert.True(t, quiet.Enabled(ctx, slog.LevelError))

	verbose := NewLogger(&Config{LogLevel: "debug", LogFormat: "json"})
	assert.True(t, verbose.Enabled(ctx, slog.LevelDebug))
}

func TestNewLoggerDefaultsToInfo(t *testing.T) {
	ctx := context.Background()

	logger := NewLogger(&Config{LogLevel: "bogus"})
	assert.True(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.False(t, logger.Enabled(ctx, slog.LevelDebug))

	assert.True(t, NewLogger(nil).Enabled(ctx, slog.LevelInfo))
}
