// Package apperr defines the error taxonomy shared by the backend clients,
// the tool handlers and the dispatcher.
package apperr

import (
	stdErrors "errors"
	"fmt"
	"strconv"
)

// Code identifies a class of failure.
type Code string

const (
	CodeUnknown              Code = "UNKNOWN"
	CodeValidation           Code = "VALIDATION_ERROR"
	CodeConfiguration        Code = "CONFIGURATION_ERROR"
	CodeBackendRequestFailed Code = "BACKEND_REQUEST_FAILED"
	CodeDecodeFailed         Code = "DECODE_FAILED"
	CodeEnqueueFailed        Code = "ENQUEUE_FAILED"
	CodeRetrieveFailed       Code = "RETRIEVE_FAILED"
	CodeMissingIdentifier    Code = "MISSING_IDENTIFIER"
	CodeUnknownTool          Code = "UNKNOWN_TOOL"
	CodeUnknownPrompt        Code = "UNKNOWN_PROMPT"
)

// Error is the error type used across the module.
type Error struct {
	code     Code
	message  string
	cause    error
	metadata map[string]string
}

// Option configures an Error at construction time.
type Option func(*Error)

// WithMetadata attaches a key/value pair to the error.
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// New creates an error with the given code.
func New(code Code, message string, opts ...Option) *Error {
	e := &Error{code: code, message: message}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Wrap creates an error with the given code around cause.
func Wrap(code Code, cause error, message string, opts ...Option) *Error {
	e := New(code, message, opts...)
	e.cause = cause
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap implements errors.Unwrap.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.code == t.code
}

// Code returns the error code.
func (e *Error) Code() Code {
	if e == nil {
		return CodeUnknown
	}
	return e.code
}

// Message returns the message without the cause chain.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Metadata returns a copy of the attached metadata.
func (e *Error) Metadata() map[string]string {
	if e == nil || len(e.metadata) == 0 {
		return nil
	}
	clone := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		clone[k] = v
	}
	return clone
}

// From extracts the first *Error in err's chain.
func From(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var target *Error
	if stdErrors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost *Error in err's chain.
func CodeOf(err error) Code {
	if e, ok := From(err); ok {
		return e.Code()
	}
	return CodeUnknown
}

// HasCode reports whether any *Error in err's chain carries code.
func HasCode(err error, code Code) bool {
	return stdErrors.Is(err, &Error{code: code})
}

// RequestFailure is the raw outcome of a non-success backend reply.
type RequestFailure struct {
	StatusCode int
	Body       string
}

func (f *RequestFailure) Error() string {
	if f.Body == "" {
		return "status " + strconv.Itoa(f.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", f.StatusCode, f.Body)
}

// Validation reports bad caller input.
func Validation(format string, args ...any) *Error {
	return New(CodeValidation, fmt.Sprintf(format, args...))
}

// Configuration reports an invalid client configuration.
func Configuration(format string, args ...any) *Error {
	return New(CodeConfiguration, fmt.Sprintf(format, args...))
}

// BackendRequestFailed reports a non-success HTTP status from a backend.
func BackendRequestFailed(backend string, statusCode int, body string) *Error {
	return Wrap(CodeBackendRequestFailed,
		&RequestFailure{StatusCode: statusCode, Body: body},
		backend+" request failed",
		WithMetadata("backend", backend),
		WithMetadata("status_code", strconv.Itoa(statusCode)),
	)
}

// EnqueueFailed wraps any failure of a background enqueue.
func EnqueueFailed(backend string, cause error) *Error {
	return Wrap(CodeEnqueueFailed, cause, backend+" background request failed")
}

// RetrieveFailed wraps any failure of a background retrieve.
func RetrieveFailed(backend string, cause error) *Error {
	return Wrap(CodeRetrieveFailed, cause, backend+" retrieve failed")
}

// MissingIdentifier reports a backend reply without a job id.
func MissingIdentifier(backend string) *Error {
	return New(CodeMissingIdentifier, "response ID missing from "+backend+" response")
}

// UnknownTool reports a routing miss in the tool namespace.
func UnknownTool(name string) *Error {
	return New(CodeUnknownTool, "Unknown tool: "+name, WithMetadata("name", name))
}

// UnknownPrompt reports a routing miss in the prompt namespace.
func UnknownPrompt(name string) *Error {
	return New(CodeUnknownPrompt, "Unknown prompt: "+name, WithMetadata("name", name))
}

// RequestFailureOf returns the RequestFailure in err's chain, if any.
func RequestFailureOf(err error) (*RequestFailure, bool) {
	var target *RequestFailure
	if stdErrors.As(err, &target) {
		return target, true
	}
	return nil, false
}
