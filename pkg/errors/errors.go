// SPDX-License-Identifier: Apache-2.0

// Package errors provides typed error handling for colloquy.
// Startup failures (configuration, unreadable reference files) are fatal
// and carry a code; conversation-level failures are ordinary message
// content and never travel through this package.
package errors

import (
	"encoding/json"
	"fmt"
)

// Code classifies colloquy errors for logging and recovery decisions.
type Code string

const (
	// CodeConfig indicates an invalid or incomplete configuration.
	CodeConfig Code = "CONFIG_ERROR"

	// CodeIO indicates a file could not be read or written.
	CodeIO Code = "IO_ERROR"

	// CodeLLM indicates a language-model provider call failed.
	CodeLLM Code = "LLM_ERROR"

	// CodeExec indicates the local code runner could not start.
	CodeExec Code = "EXEC_ERROR"

	// CodeChat indicates a group-chat turn could not complete.
	CodeChat Code = "CHAT_ERROR"

	// CodeInternal indicates an internal system error.
	CodeInternal Code = "INTERNAL_ERROR"
)

// Error is a typed error with context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type Error struct {
	Code        Code
	Message     string
	Err         error
	Context     map[string]any
	Recoverable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *Error) MarshalJSON() ([]byte, error) {
	payload := map[string]any{
		"code":        string(e.Code),
		"message":     e.Error(),
		"recoverable": e.Recoverable,
	}
	if len(e.Context) > 0 {
		payload["context"] = e.Context
	}
	return json.Marshal(payload)
}

// New creates a new Error with the given code, message, and cause.
func New(code Code, msg string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: msg,
		Err:     cause,
		Context: make(map[string]any),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *Error) WithRecoverable(recoverable bool) *Error {
	e.Recoverable = recoverable
	return e
}

// As attempts to convert an error to an *Error.
// Returns the error unchanged if it already is one, or wraps it otherwise.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	if ce, ok := err.(*Error); ok {
		return ce
	}
	return New(CodeInternal, "wrapped error", err)
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code Code) bool {
	ce, ok := err.(*Error)
	return ok && ce.Code == code
}
