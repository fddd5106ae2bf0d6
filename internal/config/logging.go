package config

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// ParseLevel maps LOG_LEVEL values to slog levels, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// NewLogger creates a JSON logger on stdout. When logFile is set, records
// are also appended to that file. Returns the logger and a cleanup function
// to close the file.
func NewLogger(level, logFile string) (*slog.Logger, func() error) {
	lvl := ParseLevel(level)
	stdout := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	if logFile == "" {
		return slog.New(stdout), func() error { return nil }
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger := slog.New(stdout)
		logger.Error("failed to open log file, using stdout only", "error", err, "file", logFile)
		return logger, func() error { return nil }
	}

	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: lvl})
	return slog.New(slogmulti.Fanout(stdout, fileHandler)), file.Close
}

// NewLoggerWithWriters creates a fanout logger over custom writers (for testing).
func NewLoggerWithWriters(primary, secondary io.Writer, level string) *slog.Logger {
	lvl := ParseLevel(level)
	return slog.New(slogmulti.Fanout(
		slog.NewJSONHandler(primary, &slog.HandlerOptions{Level: lvl}),
		slog.NewJSONHandler(secondary, &slog.HandlerOptions{Level: lvl}),
	))
}
