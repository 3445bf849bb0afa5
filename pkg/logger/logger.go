// Package logger constructs the application-wide slog logger on top of a
// charmbracelet/log handler.
package logger

import (
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// New returns a slog.Logger writing human-readable output to stderr.
// Debug lowers the level and enables caller reporting.
func New(debug bool) *slog.Logger {
	opts := charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           charmlog.InfoLevel,
	}
	if debug {
		opts.Level = charmlog.DebugLevel
		opts.ReportCaller = true
	}

	handler := charmlog.NewWithOptions(os.Stderr, opts)
	return slog.New(handler)
}
