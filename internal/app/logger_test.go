package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/lettertrack/internal/config"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m), "output: %s", buf.String())
	return m
}

func TestNewLoggerTo_JSON(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerTo(&buf, config.LogConfig{Level: "info", Format: "JSON"}).
		Info("letter created", slog.Int64("letter_id", 7))

	m := decodeLine(t, &buf)
	assert.Equal(t, "lettertrack", m["app"])
	assert.Equal(t, Version, m["version"])
	assert.EqualValues(t, 7, m["letter_id"])
	assert.NotContains(t, m, "source")
}

func TestNewLoggerTo_TextHasSource(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerTo(&buf, config.LogConfig{Level: "info", Format: "text"}).Info("hello")

	assert.Contains(t, buf.String(), "source=")
	assert.Contains(t, buf.String(), "app=lettertrack")
}

func TestNewLoggerTo_Redacts(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerTo(&buf, config.LogConfig{Level: "info", Format: "json"}).Info("ingested",
		slog.String("ocr_text", "Dear sponsor, step four was hard"),
		slog.String("Sponsee_Code", "A1B2C3"),
		slog.Group("request", slog.String("token", "eyJhbGciOi")),
		slog.String("envelope", "env-0042.jpg"),
	)

	out := buf.String()
	assert.NotContains(t, out, "step four")
	assert.NotContains(t, out, "A1B2C3")
	assert.NotContains(t, out, "eyJhbGciOi")

	m := decodeLine(t, &buf)
	assert.Equal(t, redacted, m["ocr_text"])
	assert.Equal(t, "env-0042.jpg", m["envelope"])
}

func TestNewLoggerTo_Levels(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{" warn ", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info+2", slog.LevelInfo + 2},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			logger := NewLoggerTo(&bytes.Buffer{}, config.LogConfig{Level: tt.in, Format: "json"})
			ctx := context.Background()

			assert.True(t, logger.Enabled(ctx, tt.want))
			assert.False(t, logger.Enabled(ctx, tt.want-1))
		})
	}
}

func TestNewLogger_InstallsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := NewLogger(config.LogConfig{Level: "warn", Format: "json"})
	assert.Same(t, logger.Handler(), slog.Default().Handler())
}
