package debug

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

var (
	file    *os.File
	mu      sync.Mutex
	enabled bool
	logger  = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// ParseLevel maps a config level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug", "":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level: %s", level)
}

// Enable starts logging to path (truncated) at the given level.
func Enable(path string, level slog.Level) error {
	mu.Lock()
	defer mu.Unlock()

	if enabled {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	file = f
	enabled = true
	logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	logger.Info("debug logging started", "cat", "debug")

	return nil
}

// EnableWriter logs to w instead of a file (tests, stderr).
func EnableWriter(w io.Writer, level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	enabled = true
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Disable stops debug logging
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		file.Close()
		file = nil
	}
	enabled = false
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Logger returns the current structured logger. It discards everything
// until Enable is called.
func Logger() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Log writes a debug message under category
func Log(category, format string, args ...any) {
	mu.Lock()
	l, on := logger, enabled
	mu.Unlock()

	if !on {
		return
	}
	l.Debug(fmt.Sprintf(format, args...), "cat", category)
}

// Warn writes a warning under category
func Warn(category, format string, args ...any) {
	mu.Lock()
	l, on := logger, enabled
	mu.Unlock()

	if !on {
		return
	}
	l.Warn(fmt.Sprintf(format, args...), "cat", category)
}

// LogEvery logs only every N calls (use for high-frequency events)
var counters = make(map[string]int)

func LogEvery(n int, category, format string, args ...any) {
	mu.Lock()
	key := category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if count%n == 0 {
		Log(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}
