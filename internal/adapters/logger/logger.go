// Package logger implements a logging adapter using log/slog.
package logger

import (
	"errors"
	"log/slog"
	"os"

	"go.trai.ch/forge/internal/core/ports"
)

// metadataer describes an error carrying structured metadata. This
// matches the Metadata() method provided by zerr.Error; other errors
// fall back to plain message logging.
type metadataer interface {
	Metadata() map[string]any
}

var _ ports.Logger = (*Logger)(nil)

// Logger implements ports.Logger using log/slog.
type Logger struct {
	logger *slog.Logger
}

// New creates a new Logger writing human-readable output to stderr.
func New() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return &Logger{logger: slog.New(handler)}
}

// Info logs an informational message.
func (l *Logger) Info(msg string) {
	l.logger.Info(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string) {
	l.logger.Warn(msg)
}

// Error logs an error. Metadata attached along the error chain is
// flattened into log attributes, outermost value winning per key.
func (l *Logger) Error(err error) {
	if err == nil {
		return
	}

	attrs := []any{slog.Any("error", err)}
	seen := make(map[string]bool)
	for current := err; current != nil; current = errors.Unwrap(current) {
		m, ok := current.(metadataer)
		if !ok {
			continue
		}
		for k, v := range m.Metadata() {
			if seen[k] {
				continue
			}
			seen[k] = true
			attrs = append(attrs, slog.Any(k, v))
		}
	}
	l.logger.Error("operation failed", attrs...)
}
