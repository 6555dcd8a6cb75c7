// Package debug provides categorized logging on top of log/slog.
package debug

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	// logger is the global logger instance
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	// enabled indicates if debug logging is enabled
	enabled bool
	// mu protects the logger and enabled flag
	mu sync.RWMutex
)

// Options configures Init.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// JSON selects the JSON handler instead of the text handler.
	JSON bool
	// Writer defaults to os.Stderr.
	Writer io.Writer
}

// ParseLevel maps a level name to a slog.Level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// Init installs the global logger.
func Init(opts Options) {
	mu.Lock()
	defer mu.Unlock()

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	level := ParseLevel(opts.Level)
	enabled = level <= slog.LevelDebug

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	logger = slog.New(handler)
}

// Enabled returns whether debug logging is enabled
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug logs a debug message under category
func Debug(category, msg string, args ...any) {
	current().With("category", category).Debug(msg, args...)
}

// Info logs an info message under category
func Info(category, msg string, args ...any) {
	current().With("category", category).Info(msg, args...)
}

// Warn logs a warning message under category
func Warn(category, msg string, args ...any) {
	current().With("category", category).Warn(msg, args...)
}

// Error logs an error message under category
func Error(category, msg string, args ...any) {
	current().With("category", category).Error(msg, args...)
}

// With returns a logger for category with the given attributes
func With(category string, args ...any) *slog.Logger {
	return current().With(append([]any{"category", category}, args...)...)
}

// Logger returns the underlying slog.Logger instance
func Logger() *slog.Logger {
	return current()
}
