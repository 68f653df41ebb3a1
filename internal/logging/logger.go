// Package logging provides structured leveled logging for feedview.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	clog "github.com/charmbracelet/log"
)

// Logger is the structured logging interface used by every component.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	// With returns a logger that adds the key-value pairs to every entry.
	With(args ...any) Logger
}

// Options configures New.
type Options struct {
	// Level is the minimum level recorded: debug, info, warn or error.
	Level string
	// JSON selects the JSON formatter instead of the terminal text one.
	JSON bool
	// Prefix is shown before every message in text mode.
	Prefix string
}

type clogLogger struct {
	l *clog.Logger
}

// New returns a Logger writing to w.
func New(w io.Writer, opts Options) Logger {
	l := clog.NewWithOptions(w, clog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           parseLevel(opts.Level),
		Prefix:          opts.Prefix,
	})
	if opts.JSON {
		l.SetFormatter(clog.JSONFormatter)
	}
	return &clogLogger{l: l}
}

func (c *clogLogger) Debug(msg string, args ...any) { c.l.Debug(msg, args...) }
func (c *clogLogger) Info(msg string, args ...any)  { c.l.Info(msg, args...) }
func (c *clogLogger) Warn(msg string, args ...any)  { c.l.Warn(msg, args...) }
func (c *clogLogger) Error(msg string, args ...any) { c.l.Error(msg, args...) }

func (c *clogLogger) With(args ...any) Logger {
	return &clogLogger{l: c.l.With(args...)}
}

// parseLevel converts a string level to clog.Level, defaulting to info.
func parseLevel(level string) clog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return clog.DebugLevel
	case "info", "":
		return clog.InfoLevel
	case "warn", "warning":
		return clog.WarnLevel
	case "error":
		return clog.ErrorLevel
	default:
		return clog.InfoLevel
	}
}

// File is a Logger backed by an open log file.
type File struct {
	Logger
	mu   sync.Mutex
	f    *os.File
	path string
}

// OpenFile creates the parent directory of path and returns a JSON logger
// appending to it.
func OpenFile(path string, level string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	l := New(f, Options{Level: level, JSON: true}).With("pid", os.Getpid())
	return &File{Logger: l, f: f, path: path}, nil
}

// Path returns the location of the log file.
func (f *File) Path() string { return f.path }

// Close flushes and closes the underlying file.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.f == nil {
		return nil
	}
	err := f.f.Close()
	f.f = nil
	return err
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
func (n nopLogger) With(...any) Logger { return n }

// Nop returns a Logger that discards everything.
func Nop() Logger { return nopLogger{} }

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}
