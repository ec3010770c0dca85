package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Format selects the record encoding.
type Format string

const (
	// FormatText writes logfmt-style records
	FormatText Format = "text"
	// FormatJSON writes one JSON object per record
	FormatJSON Format = "json"
)

type config struct {
	level  slog.Level
	output io.Writer
	format Format
}

// Option configures a Logger built by New.
type Option func(*config)

// WithLevel sets the minimum level.
func WithLevel(level slog.Level) Option {
	return func(c *config) { c.level = level }
}

// WithOutput sets the destination writer.
func WithOutput(w io.Writer) Option {
	return func(c *config) { c.output = w }
}

// WithFormat sets the record encoding.
func WithFormat(format Format) Option {
	return func(c *config) { c.format = format }
}

// ParseLevel maps a level name from the command line to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// ParseFormat maps a format name from the command line to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("unknown log format %q", name)
	}
}
