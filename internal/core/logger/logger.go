// Package logger provides the structured logger used across weblaunch.
// It is a thin layer over log/slog so components depend on a small interface
// and tests can swap in a silent logger.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger is the structured logging interface handed to every component.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	// With returns a Logger that adds the given key-value pairs to every record
	With(args ...any) Logger
	// WithGroup returns a Logger that nests subsequent attributes under name
	WithGroup(name string) Logger
}

type slogLogger struct {
	logger *slog.Logger
}

// New creates a Logger from the supplied options. Without options it writes
// text records at info level to stderr.
func New(opts ...Option) Logger {
	cfg := &config{
		level:  slog.LevelInfo,
		output: os.Stderr,
		format: FormatText,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	handlerOpts := &slog.HandlerOptions{Level: cfg.level}

	var handler slog.Handler
	if cfg.format == FormatJSON {
		handler = slog.NewJSONHandler(cfg.output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(cfg.output, handlerOpts)
	}

	return &slogLogger{logger: slog.New(handler)}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &slogLogger{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// Component returns l tagged with the component attribute, or a no-op logger
// when l is nil.
func Component(l Logger, name string) Logger {
	if l == nil {
		return Nop()
	}
	return l.With("component", name)
}

func (l *slogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }

func (l *slogLogger) Info(msg string, args ...any) { l.logger.Info(msg, args...) }

func (l *slogLogger) Warn(msg string, args ...any) { l.logger.Warn(msg, args...) }

func (l *slogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: l.logger.With(args...)}
}

func (l *slogLogger) WithGroup(name string) Logger {
	return &slogLogger{logger: l.logger.WithGroup(name)}
}

type loggerKey struct{}

// WithContext attaches logger to ctx.
func WithContext(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey{}).(Logger); ok {
		return l
	}
	return Nop()
}
