// Package errors provides structured error types for the recast application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The codes mirror the failure taxonomy of the conversion core:
//   - FORMAT_ERROR: malformed version strings or serialized fields
//   - NOT_FOUND: missing source paths, unknown graphs, missing migration paths
//   - DUPLICATE_REGISTRATION: a plugin tag that is already bound
//   - INCOMPATIBLE_IR: a generator rejecting a graph it cannot represent
//   - CIRCULAR_DEPENDENCY: a dependency cycle detected during ordering
//
// # Usage
//
//	err := errors.New(errors.ErrCodeFormat, "invalid version string: %s", raw)
//	if errors.Is(err, errors.ErrCodeFormat) {
//	    // Handle format error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeIO, origErr, "failed to read %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Structural failures the core raises directly
	ErrCodeFormat                Code = "FORMAT_ERROR"
	ErrCodeNotFound              Code = "NOT_FOUND"
	ErrCodeDuplicateRegistration Code = "DUPLICATE_REGISTRATION"
	ErrCodeIncompatibleIR        Code = "INCOMPATIBLE_IR"
	ErrCodeCircularDependency    Code = "CIRCULAR_DEPENDENCY"

	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidSource Code = "INVALID_SOURCE"
	ErrCodeInvalidTarget Code = "INVALID_TARGET"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Ambient errors from collaborator layers
	ErrCodeIO          Code = "IO_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
	ErrCodeInternal    Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if no code is attached anywhere in the chain.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c *CycleError
	if errors.As(err, &c) {
		return ErrCodeCircularDependency
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// CycleError reports a dependency cycle found during topological ordering.
// NodeID names one node on the cycle, not necessarily all of them.
type CycleError struct {
	NodeID string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency detected at node %q", e.NodeID)
}

// Code returns the error code for this error type.
func (e *CycleError) Code() Code {
	return ErrCodeCircularDependency
}
