package logging

import (
	"io"
	"log/slog"
)

// NewDiscard returns a logger that drops everything. Intended for tests.
func NewDiscard() Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
