package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}

	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := New(&buf, "warn", true)

	log.Info("dropped")
	log.Warn("kept", "fingerprint", "abcd")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "abcd", entry["fingerprint"])
}

func TestGocronLogger_DemotesInfo(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := NewGocronLogger(New(&buf, "info", false))

	l.Info("job ran")
	l.Debug("tick")
	assert.Empty(t, buf.String())

	l.Error("job failed", "error", "boom")
	assert.Contains(t, buf.String(), "job failed")
	assert.Contains(t, buf.String(), "component=gocron")
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
	assert.Equal(t, "жжж...", truncateString(strings.Repeat("ж", 20), 6))
	assert.Equal(t, "...", truncateString("abcdef", 2))
}

func TestClassify(t *testing.T) {
	t.Parallel()

	post := &models.Message{ID: 1}

	kind, msg := classify(&models.Update{ChannelPost: post})
	assert.Equal(t, "channel_post", kind)
	assert.Same(t, post, msg)

	kind, msg = classify(&models.Update{EditedChannelPost: post})
	assert.Equal(t, "edited_channel_post", kind)
	assert.Same(t, post, msg)

	kind, msg = classify(&models.Update{})
	assert.Equal(t, "other", kind)
	assert.Nil(t, msg)
}
