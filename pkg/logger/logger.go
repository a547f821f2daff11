// Package logger builds the structured logger shared by hawkalert components.
package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// New returns a slog logger writing to stderr.
func New(debug bool) *slog.Logger {
	return NewWithWriter(os.Stderr, debug)
}

// NewWithWriter returns a slog logger backed by a charmbracelet/log handler writing to w.
func NewWithWriter(w io.Writer, debug bool) *slog.Logger {
	level := charmlog.InfoLevel
	if debug {
		level = charmlog.DebugLevel
	}
	handler := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})
	return slog.New(handler)
}
