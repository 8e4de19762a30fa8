package config

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger builds the structured logger described by cfg, writing to w
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: level,
	}

	if strings.ToLower(cfg.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// InitLogger installs the logger described by cfg as the slog default
func InitLogger(cfg *Config, w io.Writer) {
	slog.SetDefault(NewLogger(cfg, w))

	slog.Debug("Logger initialized",
		"level", cfg.LogLevel,
		"format", cfg.LogFormat,
	)
}
