package mcp

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	cfmlerrors "github.com/tbenton/vscode-cfml/internal/errors"
)

// createJSONResponse creates a text result holding data as JSON
func createJSONResponse(data any) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %w", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(content)},
		},
	}, nil
}

// createErrorResponse reports a tool failure inside the result with IsError
// set, so the client can read it and retry
func createErrorResponse(operation string, err error) (*mcp.CallToolResult, error) {
	errorData := map[string]any{
		"success":   false,
		"error":     err.Error(),
		"operation": operation,
	}
	if kind := errorKind(err); kind != "" {
		errorData["type"] = kind
	}

	response, marshalErr := createJSONResponse(errorData)
	if marshalErr != nil {
		return nil, marshalErr
	}
	response.IsError = true
	return response, nil
}

// errorKind returns the ErrorType of a typed error, if any
func errorKind(err error) cfmlerrors.ErrorType {
	var (
		fileErr   *cfmlerrors.FileError
		parseErr  *cfmlerrors.ParseError
		configErr *cfmlerrors.ConfigError
	)
	switch {
	case errors.As(err, &fileErr):
		return fileErr.Type
	case errors.As(err, &parseErr):
		return parseErr.Type
	case errors.As(err, &configErr):
		return cfmlerrors.ErrorTypeConfig
	}
	return ""
}
