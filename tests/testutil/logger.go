package testutil

import (
	"io"
	"log/slog"
)

// TestLogger returns a logger that discards everything below error level.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
