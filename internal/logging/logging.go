// Package logging provides structured logging for freightfocus built on
// zerolog. Loggers travel through context.Context: commands install a logger
// with zerolog's WithContext and downstream code retrieves it with
// FromContext. Trace IDs and the audit trail ride the same context.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config controls how a logger is constructed.
type Config struct {
	// Level is the minimum level to emit: trace, debug, info, warn, error.
	// Unknown values fall back to info.
	Level string
	// Format selects console output encoding: "console" (human readable)
	// or "json". File output is always JSON lines.
	Format string
	// Output selects the console destination: "stderr" (default) or "stdout".
	Output string
	// File, when set, sends log output to this path instead of the console.
	File string
	// Caller annotates events with file:line of the call site.
	Caller bool
}

// LogPathResult is the outcome of NewLoggerWithPath: the constructed logger
// plus where its output went. When file logging was requested but could not
// be established, FallbackUsed is set and FallbackReason explains why.
type LogPathResult struct {
	Logger         zerolog.Logger
	UsingFile      bool
	FilePath       string
	FallbackUsed   bool
	FallbackReason string

	mu   sync.Mutex
	file *os.File
}

// Close releases the log file handle, if one is open. Safe to call multiple
// times and on console-only results.
func (r *LogPathResult) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// NewLoggerWithPath builds a logger from cfg. File output is preferred when
// configured; on failure the logger falls back to the console and the result
// records the reason so callers can warn the user.
func NewLoggerWithPath(cfg Config) LogPathResult {
	level := parseLevel(cfg.Level)
	result := LogPathResult{}

	var out io.Writer
	if cfg.File != "" {
		file, err := openLogFile(cfg.File)
		if err != nil {
			result.FallbackUsed = true
			result.FallbackReason = err.Error()
		} else {
			result.UsingFile = true
			result.FilePath = cfg.File
			result.file = file
			out = file
		}
	}
	if out == nil {
		out = consoleWriter(cfg)
	}

	logCtx := zerolog.New(out).Level(level).With().Timestamp()
	if cfg.Caller {
		logCtx = logCtx.Caller()
	}
	result.Logger = logCtx.Logger()
	return result
}

// ComponentLogger returns a child of logger tagged with a component name.
// Components correspond to top-level subsystems (cli, engine, resolver).
func ComponentLogger(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// FromContext returns the logger installed in ctx. When no logger is present
// a disabled logger is returned, so call sites never need a nil check.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// PrintLogPathMessage tells the user on stderr where log output is going.
func PrintLogPathMessage(w io.Writer, path string) {
	_, _ = fmt.Fprintf(w, "Logging to %s\n", path)
}

// PrintFallbackWarning reports that file logging was requested but could not
// be set up, and that output went to the console instead.
func PrintFallbackWarning(w io.Writer, reason string) {
	_, _ = fmt.Fprintf(w, "Warning: file logging unavailable (%s); logging to console\n", reason)
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating log directory for %s: %w", path, err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	return file, nil
}

func consoleWriter(cfg Config) io.Writer {
	out := os.Stderr
	if cfg.Output == "stdout" {
		out = os.Stdout
	}
	if cfg.Format == "json" {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
}
