// Package logger builds the process-wide structured logger.
package logger

import (
	"log/slog"
	"os"
)

// New returns a JSON slog logger writing to stdout. The level accepts the
// slog spellings ("debug", "info", "warn", "error"); anything unparseable
// falls back to info. Services receive the logger via their WithLogger
// options; audit entries ride the same stream tagged with log_type=audit.
func New(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: l,
	}))
}
