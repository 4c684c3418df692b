package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var (
	// Logger is the global slog logger instance. It falls back to the
	// slog default until Init is called.
	Logger = slog.Default()
)

// Init initializes the global logger with the given level name.
// An empty level falls back to the LOG_LEVEL environment variable, then to info.
func Init(levelName ...string) {
	logLevelStr := ""
	if len(levelName) > 0 {
		logLevelStr = levelName[0]
	}
	if logLevelStr == "" {
		logLevelStr = os.Getenv("LOG_LEVEL")
	}
	if logLevelStr == "" {
		logLevelStr = "info"
	}

	InitWriter(os.Stdout, logLevelStr)
	Logger.Info("Logger initialized", "level", logLevelStr)
}

// InitWriter points the global logger at w.
func InitWriter(w io.Writer, levelName string) {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(levelName),
	}

	// JSON handler for structured logging
	handler := slog.NewJSONHandler(w, opts)

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// ParseLevel maps a level name to a slog level. Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return Logger.With(args...)
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	Logger.Debug(msg, args...)
}

// Info logs an info message
func Info(msg string, args ...any) {
	Logger.Info(msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	Logger.Warn(msg, args...)
}

// Error logs an error message
func Error(msg string, args ...any) {
	Logger.Error(msg, args...)
}
