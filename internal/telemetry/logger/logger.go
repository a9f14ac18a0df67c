// Package logger is the slog-based structured logger for the agent.
// Log level is held in a slog.LevelVar so a config reload can change
// it on a running agent.
//
// @req RQ-0402
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger is the logging interface handed through the agent.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With returns a logger carrying the given attributes on every
	// record, e.g. With("component", "sweeper").
	With(args ...any) Logger
}

// Config holds logger settings, typically from the log section of the
// agent config.
type Config struct {
	// Level is the minimum level: debug, info, warn, error.
	Level string
	// Format is json or text. Anything else means json.
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the agent's default logging setup.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "json", Output: os.Stderr}
}

// levelVar backs every logger built by New, so SetLevel reaches all
// of them at once.
var levelVar = new(slog.LevelVar)

type logImpl struct {
	s *slog.Logger
}

// New builds a logger from cfg.
func New(cfg Config) (Logger, error) {
	levelVar.Set(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: levelVar}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	return &logImpl{s: slog.New(handler)}, nil
}

func (l *logImpl) Debug(msg string, args ...any) { l.s.Debug(msg, args...) }
func (l *logImpl) Info(msg string, args ...any)  { l.s.Info(msg, args...) }
func (l *logImpl) Warn(msg string, args ...any)  { l.s.Warn(msg, args...) }
func (l *logImpl) Error(msg string, args ...any) { l.s.Error(msg, args...) }

func (l *logImpl) With(args ...any) Logger {
	return &logImpl{s: l.s.With(args...)}
}

// SetLevel changes the level of every logger built by New. The agent
// calls this when a config reload carries a new log level.
func SetLevel(level string) {
	levelVar.Set(parseLevel(level))
}

func parseLevel(level string) slog.Level {
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

var defaultLogger atomic.Pointer[logImpl]

func init() {
	l, _ := New(DefaultConfig())
	defaultLogger.Store(l.(*logImpl))
}

// SetDefault installs l as the process-wide default logger.
func SetDefault(l Logger) {
	if impl, ok := l.(*logImpl); ok {
		defaultLogger.Store(impl)
	}
}

// Default returns the process-wide default logger.
func Default() Logger {
	return defaultLogger.Load()
}
