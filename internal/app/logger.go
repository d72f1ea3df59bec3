package app

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/heartmarshall/lettertrack/internal/config"
)

// redactedKeys never reach the log output. Letter contents and sponsee
// identity stay in storage.
var redactedKeys = map[string]struct{}{
	"ocr_text":        {},
	"processor_notes": {},
	"return_address":  {},
	"sponsee_code":    {},
	"token":           {},
	"authorization":   {},
}

const redacted = "[redacted]"

// NewLogger builds the process logger on stderr and installs it as the
// slog default.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	logger := NewLoggerTo(os.Stderr, cfg)
	slog.SetDefault(logger)
	return logger
}

// NewLoggerTo builds a logger writing to w. Format "json" selects the JSON
// handler; anything else selects the text handler with source locations.
// Unknown levels fall back to info.
func NewLoggerTo(w io.Writer, cfg config.LogConfig) *slog.Logger {
	text := !strings.EqualFold(strings.TrimSpace(cfg.Format), "json")
	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		AddSource:   text,
		ReplaceAttr: redact,
	}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if text {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With(
		slog.String("app", "lettertrack"),
		slog.String("version", Version),
	)
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if _, ok := redactedKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redacted)
	}
	return a
}
