package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/aki/weblaunch/internal/supervisor"
)

// ErrorWithSuggestions is a user-facing error with remediation hints
type ErrorWithSuggestions struct {
	Message     string
	Suggestions []string
}

// Error returns the message followed by the suggestions
func (e *ErrorWithSuggestions) Error() string {
	if len(e.Suggestions) == 0 {
		return e.Message
	}

	var sb strings.Builder
	sb.WriteString(e.Message)
	sb.WriteString("\n\nTry:\n")
	for _, suggestion := range e.Suggestions {
		sb.WriteString("  - ")
		sb.WriteString(suggestion)
		sb.WriteString("\n")
	}
	return sb.String()
}

// NewErrorWithSuggestions creates a new error with suggestions
func NewErrorWithSuggestions(message string, suggestions ...string) error {
	return &ErrorWithSuggestions{
		Message:     message,
		Suggestions: suggestions,
	}
}

// StartFailure maps a supervisor start error to remediation hints.
func StartFailure(err error) error {
	var se *supervisor.StartError
	if !errors.As(err, &se) {
		if errors.Is(err, supervisor.ErrAlreadyRunning) {
			return NewErrorWithSuggestions(err.Error(),
				"server_status - Get the address of the running server",
				"stop_server - Stop it before starting again",
			)
		}
		return err
	}

	switch {
	case errors.Is(se, supervisor.ErrPathsNotConfigured):
		return NewErrorWithSuggestions(se.Message,
			"weblaunch config discover - Detect the runtime and package runner",
			"weblaunch config set-paths - Set them explicitly",
		)
	case errors.Is(se, supervisor.ErrSpawnFailure):
		return NewErrorWithSuggestions(se.Message,
			"weblaunch resolve - Check which executables are used",
		)
	case errors.Is(se, supervisor.ErrStartupTimeout):
		return NewErrorWithSuggestions(se.Message,
			"start_server - Retry once the package download has finished",
		)
	case se.Reason == supervisor.ReasonPortInUse:
		return NewErrorWithSuggestions(se.Message,
			"start_server - Retry with a different port",
		)
	case se.Reason == supervisor.ReasonToolNotFound:
		return NewErrorWithSuggestions(se.Message,
			"weblaunch resolve - Check that the runtime is installed",
		)
	default:
		return NewErrorWithSuggestions(se.Message)
	}
}

// jsonResult renders content as indented JSON text
func jsonResult(content interface{}) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// errorResult reports a failure to the host as a tool error
func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}
