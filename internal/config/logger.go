package config

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the process logger. When logFile is set, records are also
// written to a size-rotated file.
func NewLogger(env, logFile string) *slog.Logger {
	var handler slog.Handler

	var out io.Writer = os.Stdout
	if logFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
	}

	opts := &slog.HandlerOptions{
		AddSource: env == "development",
	}

	if env == "production" {
		opts.Level = slog.LevelInfo
		handler = slog.NewJSONHandler(out, opts)
	} else {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}
