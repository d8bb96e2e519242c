package mylog

import (
	"context"
	"debtslayer/app/config"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramFilter(t *testing.T) {
	ctx := context.Background()

	info := slog.NewRecord(time.Now(), slog.LevelInfo, "deposit recorded", 0)
	assert.False(t, telegramFilter(ctx, info))

	tagged := slog.NewRecord(time.Now(), slog.LevelInfo, "reminder sent", 0)
	tagged.AddAttrs(slog.Bool("telegram", true))
	assert.True(t, telegramFilter(ctx, tagged))

	failure := slog.NewRecord(time.Now(), slog.LevelError, "store failed", 0)
	assert.True(t, telegramFilter(ctx, failure))
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	cfg := &config.Config{Log: config.Log{Level: "verbose"}}
	require.Error(t, Init(cfg))

	cfg.Log.Level = "warn"
	require.NoError(t, Init(cfg))
}
