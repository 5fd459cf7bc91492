// Package log provides JSON-lines structured logging for texo.
//
// Lines look like:
//
//	{"ts":"2025-01-15T10:30:00Z","level":"DEBUG","msg":"entry upserted","run_id":"6f1c...","path":"/etc/hosts"}
//
// Each process gets its own run_id so lines written by concurrent
// invocations into the shared log file can be separated.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Config configures the structured logger.
type Config struct {
	// Output is the writer for log output (default: os.Stderr)
	Output io.Writer

	// Level is the minimum log level (default: LevelWarn)
	Level slog.Level

	// RunID tags every line; generated when empty
	RunID string
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() *Config {
	return &Config{
		Output: os.Stderr,
		Level:  slog.LevelWarn,
	}
}

// New creates a JSON-lines logger with a run_id attribute.
func New(cfg *Config) *slog.Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	opts := &slog.HandlerOptions{
		Level: cfg.Level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				a.Key = "ts"
			}
			return a
		},
	}

	return slog.New(slog.NewJSONHandler(output, opts)).With("run_id", runID)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// ParseLevel maps debug|info|warn|error (any case) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("unknown log level %q", s)
	}
}

// OpenFile returns a logger appending to path, creating its directory as
// needed. If the file cannot be opened the logger writes to stderr
// instead. The returned close function is always safe to call.
func OpenFile(path string, level slog.Level) (*slog.Logger, func() error) {
	noop := func() error { return nil }

	f, err := openAppend(path)
	if err != nil {
		logger := New(&Config{Output: os.Stderr, Level: level})
		logger.Warn("cannot open log file, logging to stderr", "path", path, "error", err)
		return logger, noop
	}

	return New(&Config{Output: f, Level: level}), f.Close
}

func openAppend(path string) (*os.File, error) {
	if path == "" {
		return nil, fmt.Errorf("empty log path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}
