// Package errors holds the typed errors returned at the tool boundary
// (CLI, MCP server, index, config). The analysis packages never fail; they
// report absence with sentinel values instead.
package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/tbenton/vscode-cfml/internal/types"
)

// ErrorType classifies tool-boundary failures
type ErrorType string

const (
	ErrorTypeParse ErrorType = "parse"

	ErrorTypeFileNotFound ErrorType = "file_not_found"
	ErrorTypeFileTooLarge ErrorType = "file_too_large"
	ErrorTypePermission   ErrorType = "permission"
	ErrorTypeFileIO       ErrorType = "file_io"

	ErrorTypeConfig  ErrorType = "config"
	ErrorTypeResolve ErrorType = "resolve"
)

// ErrFileTooLarge is wrapped by FileError when a file exceeds the index size limit
var ErrFileTooLarge = stderrors.New("file exceeds size limit")

// ErrBinaryFile is wrapped by FileError when a file does not look like text
var ErrBinaryFile = stderrors.New("file appears to be binary")

// ErrNoComponent is wrapped by ParseError when a file has no component declaration
var ErrNoComponent = stderrors.New("no component or interface declaration")

// ParseError reports input the tools could not make sense of, such as a
// malformed LINE:COL argument or a file without a component declaration
type ParseError struct {
	Type       ErrorType
	FilePath   string
	Position   types.Position
	Token      string
	Underlying error
	Timestamp  time.Time
}

// NewParseError creates a new parse error
func NewParseError(path string, pos types.Position, token string, err error) *ParseError {
	return &ParseError{
		Type:       ErrorTypeParse,
		FilePath:   path,
		Position:   pos,
		Token:      token,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func (e *ParseError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("parse error at %s:%d:%d: %v",
			e.FilePath, e.Position.Line+1, e.Position.Character+1, e.Underlying)
	}
	return fmt.Sprintf("parse error at %s:%d:%d (near %q): %v",
		e.FilePath, e.Position.Line+1, e.Position.Character+1, e.Token, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Underlying
}

// FileError represents a failure reading or inspecting a file
type FileError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewFileError creates a file error, classifying it from the underlying error
func NewFileError(op, path string, err error) *FileError {
	errorType := ErrorTypeFileIO
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		errorType = ErrorTypeFileNotFound
	case stderrors.Is(err, fs.ErrPermission):
		errorType = ErrorTypePermission
	case stderrors.Is(err, ErrFileTooLarge):
		errorType = ErrorTypeFileTooLarge
	}

	return &FileError{
		Type:       errorType,
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *FileError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents an invalid configuration value
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}

// ResolveError reports a component name that could not be resolved.
// The analysis packages drop unresolved references; only the CLI and MCP
// surfaces turn them into errors.
type ResolveError struct {
	Type        ErrorType
	DotPath     string
	From        string
	Suggestions []string
}

// NewResolveError creates a new resolve error
func NewResolveError(dotPath, from string, suggestions []string) *ResolveError {
	return &ResolveError{
		Type:        ErrorTypeResolve,
		DotPath:     dotPath,
		From:        from,
		Suggestions: suggestions,
	}
}

func (e *ResolveError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("component %s not found from %s", e.DotPath, e.From)
	}
	return fmt.Sprintf("component %s not found from %s (did you mean %v?)", e.DotPath, e.From, e.Suggestions)
}

// MultiError collects independent failures, such as per-file index errors
type MultiError struct {
	Errors []error
}

// NewMultiError creates a multi-error, dropping nil entries
func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

// ErrorOrNil returns nil when no errors were collected
func (e *MultiError) ErrorOrNil() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}

func (e *MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
}

// Unwrap returns all errors
func (e *MultiError) Unwrap() []error {
	return e.Errors
}
