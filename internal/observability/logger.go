// Package observability provides structured logging setup and lightweight
// metrics for the request pipeline.
package observability

import (
	"log/slog"
	"os"
)

// SetupLogger configures the default slog logger for the given mode.
// Dev and demo get human-readable text at debug level; prod gets JSON at
// info level.
func SetupLogger(mode string) *slog.Logger {
	var handler slog.Handler
	if mode == "prod" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
