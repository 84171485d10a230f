// Package logging configures the JSONL runtime log.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/subham2006/mentora/internal/config"
)

// EnvLevel overrides the log level (debug, info, warn, error).
const EnvLevel = "EDUPAL_LOG_LEVEL"

// Runtime is an open logger and the file it writes to.
type Runtime struct {
	Logger *slog.Logger
	Path   string
	closer io.Closer
}

// Close closes the log file.
func (r Runtime) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Options adjusts New. Mirror, when set, receives a copy of every record
// (used by `edupal serve`, which has no UI to hide).
type Options struct {
	Level  slog.Level
	Mirror io.Writer
}

// New opens the state-directory log file and returns a JSON logger on it.
func New(opts Options) (Runtime, error) {
	path, err := config.ResolveStatePath("log.jsonl")
	if err != nil {
		return Runtime{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return Runtime{}, err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return Runtime{}, err
	}

	level := opts.Level
	if raw, ok := os.LookupEnv(EnvLevel); ok {
		level = ParseLevel(raw, level)
	}

	var out io.Writer = f
	if opts.Mirror != nil {
		out = io.MultiWriter(f, opts.Mirror)
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	return Runtime{Logger: logger.With("pid", os.Getpid()), Path: path, closer: f}, nil
}

// ParseLevel maps a level name to slog.Level, returning fallback when unknown.
func ParseLevel(raw string, fallback slog.Level) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return fallback
	}
	return level
}
