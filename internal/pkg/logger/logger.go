package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/marketplace-auth/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Init installs the process-wide slog logger. When cfg.File is set, output is
// teed to stdout and a size-rotated log file.
func Init(cfg config.LogConfig) *slog.Logger {
	logger := slog.New(newHandler(cfg, writer(cfg)))
	slog.SetDefault(logger)
	return logger
}

func writer(cfg config.LogConfig) io.Writer {
	if cfg.File == "" {
		return os.Stdout
	}
	return io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB, // megabytes
		MaxAge:     cfg.MaxAgeDays,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	})
}

func newHandler(cfg config.LogConfig, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: levelFromString(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func levelFromString(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
