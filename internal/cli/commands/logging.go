package commands

import (
	"io"
	"log/slog"
)

// newLogger builds the diagnostics logger shared by the commands. Warnings
// and errors are always shown; verbose adds Info and Debug.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
