// Package logging provides structured logging for CIR components, built
// on log/slog with multi-destination output: stderr always, plus an
// optional JSON file under Config.LogDir when one is set.
package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level is a log severity, ordered Debug < Info < Warn < Error.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config controls how a Logger is constructed.
type Config struct {
	// Level is the minimum severity emitted. Default: LevelInfo.
	Level Level
	// LogDir, if non-empty, additionally writes JSON logs to a
	// {service}_{date}.log file under this directory.
	LogDir string
	// Service names the component this logger belongs to, used in the
	// log file name and as a base field on every record.
	Service string
	// Format selects the stderr handler: "json" or "text" (default).
	// The file handler under LogDir is always JSON regardless of Format.
	Format string
}

// Logger wraps slog.Logger with multi-destination output and a Close
// method for the optional file handle.
type Logger struct {
	slog *slog.Logger

	mu   sync.Mutex
	file *os.File
}

// New builds a Logger per config. A LogDir that cannot be created falls
// back silently to stderr-only output — logging must never be the thing
// that crashes a run.
func New(config Config) *Logger {
	handlers := []slog.Handler{stderrHandler(config.Level, config.Format)}

	var file *os.File
	if config.LogDir != "" {
		if f, err := openLogFile(config.LogDir, config.Service); err == nil {
			file = f
			handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: config.Level.toSlogLevel()}))
		}
	}

	handler := &multiHandler{handlers: handlers}
	base := slog.New(handler)
	if config.Service != "" {
		base = base.With("service", config.Service)
	}
	return &Logger{slog: base, file: file}
}

// Default returns a stderr-only Logger at LevelInfo.
func Default() *Logger {
	return New(Config{Level: LevelInfo})
}

func stderrHandler(level Level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level.toSlogLevel()}
	if format == "json" {
		return slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.NewTextHandler(os.Stderr, opts)
}

func openLogFile(dir, service string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if service == "" {
		service = "cir"
	}
	name := service + "_" + time.Now().Format("2006-01-02") + ".log"
	return os.OpenFile(filepath.Join(dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// With returns a child Logger that prepends args to every record it
// emits — used to scope a logger to one run_id for the lifetime of a
// CIR loop.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...), file: l.file}
}

// Slog exposes the underlying *slog.Logger for callers that need it
// directly (e.g. passing to a library that accepts one).
func (l *Logger) Slog() *slog.Logger { return l.slog }

// Close flushes and closes the optional log file. Safe to call on a
// Logger with no file configured.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// multiHandler fans a record out to every wrapped handler, matching the
// first handler's Enabled check only loosely — each sub-handler was
// already built with its own level filter.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, sub := range h.handlers {
		if sub.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, sub := range h.handlers {
		if err := sub.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, sub := range h.handlers {
		next[i] = sub.WithAttrs(attrs)
	}
	return &multiHandler{handlers: next}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, sub := range h.handlers {
		next[i] = sub.WithGroup(name)
	}
	return &multiHandler{handlers: next}
}
