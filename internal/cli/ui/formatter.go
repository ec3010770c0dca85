package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// OutputFormat selects how commands print results
type OutputFormat string

const (
	// FormatPretty is styled, human-readable output
	FormatPretty OutputFormat = "pretty"
	// FormatJSON is machine-readable output
	FormatJSON OutputFormat = "json"
)

// ParseFormat converts a flag value to OutputFormat
func ParseFormat(s string) (OutputFormat, error) {
	switch s {
	case "pretty", "":
		return FormatPretty, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// Formatter prints command results
type Formatter interface {
	// Output displays data; pretty output expects preformatted strings
	Output(data interface{}) error

	// IsJSON returns true if this formatter outputs JSON
	IsJSON() bool
}

type prettyFormatter struct {
	w io.Writer
}

// NewPrettyFormatter creates a formatter writing plain text to w
func NewPrettyFormatter(w io.Writer) Formatter {
	return &prettyFormatter{w: w}
}

func (f *prettyFormatter) Output(data interface{}) error {
	if str, ok := data.(string); ok {
		_, err := fmt.Fprint(f.w, str)
		return err
	}
	_, err := fmt.Fprintln(f.w, data)
	return err
}

func (f *prettyFormatter) IsJSON() bool {
	return false
}

type jsonFormatter struct {
	encoder *json.Encoder
}

// NewJSONFormatter creates a formatter writing indented JSON to w
func NewJSONFormatter(w io.Writer) Formatter {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return &jsonFormatter{encoder: encoder}
}

func (f *jsonFormatter) Output(data interface{}) error {
	return f.encoder.Encode(data)
}

func (f *jsonFormatter) IsJSON() bool {
	return true
}

// GlobalFormatter is the formatter selected by the --format flag
var GlobalFormatter = NewPrettyFormatter(os.Stdout)

// SetGlobalFormatter selects the global formatter
func SetGlobalFormatter(format OutputFormat) error {
	switch format {
	case FormatPretty:
		GlobalFormatter = NewPrettyFormatter(os.Stdout)
	case FormatJSON:
		GlobalFormatter = NewJSONFormatter(os.Stdout)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
	return nil
}
