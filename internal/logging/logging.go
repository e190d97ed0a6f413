package logging

import (
	"io"
	"log/slog"
	"os"
)

// Init installs the default logger. LOG_LEVEL selects the level; without it
// only errors are shown.
func Init() {
	slog.SetDefault(New(os.Stderr, os.Getenv("LOG_LEVEL")))
}

// New returns a text logger writing to w at the level named by name.
func New(w io.Writer, name string) *slog.Logger {
	return slog.New(
		slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: Level(name),
		}),
	)
}

// Level maps a LOG_LEVEL value to a slog level.
func Level(name string) slog.Level {
	switch name {
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	default:
		return slog.LevelError // production only shows errors
	}
}
