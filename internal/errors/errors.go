// Package errors provides coded domain errors for dropsort.
//
// Usage:
//
//	// In the relocator - return typed errors
//	if os.IsNotExist(err) {
//	    return errors.Vanished("file disappeared before it could be moved")
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrVanished) {
//	    return relocator.Skipped(path, relocator.ReasonVanished)
//	}
//
//	// Or use the Code directly for switch statements
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeConfig:
//	        os.Exit(domainErr.Code.ExitCode())
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeConfig         Code = "CONFIG"
	CodeValidation     Code = "VALIDATION"
	CodeVanished       Code = "VANISHED"
	CodeUnclassified   Code = "UNCLASSIFIED"
	CodeIO             Code = "IO"
	CodeAlreadyRunning Code = "ALREADY_RUNNING"
	CodeInternal       Code = "INTERNAL"
)

// ExitCode returns the process exit status for an error code.
// Only startup errors ever reach the exit path; per-file codes map to 1 as well.
func (c Code) ExitCode() int {
	switch c {
	case CodeConfig, CodeValidation:
		return 2
	case CodeAlreadyRunning:
		return 3
	default:
		return 1
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrConfig         = &Error{Code: CodeConfig, Message: "configuration error"}
	ErrValidation     = &Error{Code: CodeValidation, Message: "validation error"}
	ErrVanished       = &Error{Code: CodeVanished, Message: "file vanished"}
	ErrUnclassified   = &Error{Code: CodeUnclassified, Message: "unclassified extension"}
	ErrIO             = &Error{Code: CodeIO, Message: "i/o failure"}
	ErrAlreadyRunning = &Error{Code: CodeAlreadyRunning, Message: "already running"}
	ErrInternal       = &Error{Code: CodeInternal, Message: "internal error"}
)

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Config creates a configuration error.
func Config(msg string) *Error {
	return &Error{Code: CodeConfig, Message: msg}
}

// Configf creates a configuration error with formatted message.
func Configf(format string, args ...any) *Error {
	return &Error{Code: CodeConfig, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Vanished creates a vanished-file error.
func Vanished(msg string) *Error {
	return &Error{Code: CodeVanished, Message: msg}
}

// Unclassifiedf creates an unclassified-extension error with formatted message.
func Unclassifiedf(format string, args ...any) *Error {
	return &Error{Code: CodeUnclassified, Message: fmt.Sprintf(format, args...)}
}

// IO creates an i/o failure error.
func IO(msg string) *Error {
	return &Error{Code: CodeIO, Message: msg}
}

// AlreadyRunning creates an already-running error.
func AlreadyRunning(msg string) *Error {
	return &Error{Code: CodeAlreadyRunning, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
