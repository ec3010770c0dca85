package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aki/weblaunch/internal/core/logger"
)

// Global flags for logging configuration
var (
	flagLogLevel  string
	flagLogFormat string
)

// RegisterLoggerFlags registers global logging flags
func RegisterLoggerFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")
}

// CreateLogger creates a stderr logger based on CLI flags
func CreateLogger() (logger.Logger, error) {
	level, err := logger.ParseLevel(flagLogLevel)
	if err != nil {
		return nil, err
	}
	format, err := logger.ParseFormat(flagLogFormat)
	if err != nil {
		return nil, err
	}

	return logger.New(
		logger.WithLevel(level),
		logger.WithFormat(format),
		logger.WithOutput(os.Stderr),
	), nil
}
