package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. Services and handlers log
// key-value pairs through this; nothing else writes to stdout.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
