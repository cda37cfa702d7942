package internal

import (
	"io"
	"log/slog"
)

// NewLogger builds the application logger from the app section.
func NewLogger(w io.Writer, cfg ApplicationConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
