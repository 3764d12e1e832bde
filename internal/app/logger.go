package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide slog.Logger on stdout. LOG_FORMAT=json
// selects the JSON handler for production log shipping; any other value
// keeps the human-readable text handler. Source locations are attached so a
// warning from deep inside the sale pipeline points at the emitting line.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
