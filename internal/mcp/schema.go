// Package mcp exposes the launcher to MCP hosts: start, stop and inspect the
// supervised web server over stdio.
package mcp

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// StructToToolOptions converts a struct with tags into MCP tool options.
// Fields use tags like `json:"port,omitempty" mcp:"required" description:"Port"`.
func StructToToolOptions(structType interface{}) ([]mcp.ToolOption, error) {
	t := reflect.TypeOf(structType)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected struct type, got %v", t.Kind())
	}

	var toolOptions []mcp.ToolOption
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		jsonTag := field.Tag.Get("json")
		if jsonTag == "" || jsonTag == "-" {
			continue
		}
		fieldName, _, _ := strings.Cut(jsonTag, ",")

		description := field.Tag.Get("description")
		if description == "" {
			description = fmt.Sprintf("%s field", fieldName)
		}

		opts := []mcp.PropertyOption{mcp.Description(description)}
		if field.Tag.Get("mcp") == "required" {
			opts = append(opts, mcp.Required())
		}

		switch field.Type.Kind() { //nolint:exhaustive // Only handling types we support
		case reflect.String:
			toolOptions = append(toolOptions, mcp.WithString(fieldName, opts...))
		case reflect.Int, reflect.Int64:
			toolOptions = append(toolOptions, mcp.WithNumber(fieldName, opts...))
		case reflect.Bool:
			toolOptions = append(toolOptions, mcp.WithBoolean(fieldName, opts...))
		default:
			continue
		}
	}

	return toolOptions, nil
}

// WithStructOptions is a helper that combines a description with struct-based options
func WithStructOptions(description string, structType interface{}) ([]mcp.ToolOption, error) {
	structOpts, err := StructToToolOptions(structType)
	if err != nil {
		return nil, err
	}
	return append([]mcp.ToolOption{mcp.WithDescription(description)}, structOpts...), nil
}

// UnmarshalArgs unmarshals CallToolRequest arguments into a struct
func UnmarshalArgs[T any](request mcp.CallToolRequest, target *T) error {
	jsonBytes, err := json.Marshal(request.GetArguments())
	if err != nil {
		return fmt.Errorf("failed to marshal arguments: %w", err)
	}
	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("failed to unmarshal arguments to struct: %w", err)
	}
	return nil
}

// StartServerParams defines parameters for start_server
type StartServerParams struct {
	Port int `json:"port,omitempty" description:"Port to serve on (optional; the server picks its default when omitted)"`
}

// EmptyParams is used by tools without parameters
type EmptyParams struct{}
