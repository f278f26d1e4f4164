// Package nexuserr provides an error taxonomy for daemon commands: a closed
// set of machine-readable codes and an Error type that carries one. No other
// package constructs these errors; the daemon loop's JSON error responses
// carry only the error message, without a code.
package nexuserr

import (
	"errors"
	"fmt"
)

// Code identifies the category of a command failure.
type Code string

const (
	CodeBadArguments        Code = "BAD_ARGUMENTS"
	CodeUnknownCommand      Code = "UNKNOWN_COMMAND"
	CodeTimeout             Code = "TIMEOUT"
	CodeExternalUnreachable Code = "EXTERNAL_UNREACHABLE"
	CodeTargetMissing       Code = "TARGET_MISSING"
	CodeTargetAmbiguous     Code = "TARGET_AMBIGUOUS"
	CodePostconditionFailed Code = "POSTCONDITION_FAILED"
	CodeStorageError        Code = "STORAGE_ERROR"
	CodeInterrupted         Code = "INTERRUPTED"
)

// Error is the concrete error type of this taxonomy: a Code, a message, and
// an optional wrapped error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func BadArguments(format string, args ...any) *Error {
	return newf(CodeBadArguments, format, args...)
}

func UnknownCommand(name string) *Error {
	return newf(CodeUnknownCommand, "unknown command: %q", name)
}

func Timeout(command string, seconds float64) *Error {
	return newf(CodeTimeout, "%s timed out after %.0f seconds", command, seconds)
}

func ExternalUnreachable(format string, args ...any) *Error {
	return newf(CodeExternalUnreachable, format, args...)
}

func TargetMissing(format string, args ...any) *Error {
	return newf(CodeTargetMissing, format, args...)
}

func TargetAmbiguous(format string, args ...any) *Error {
	return newf(CodeTargetAmbiguous, format, args...)
}

func PostconditionFailed(format string, args ...any) *Error {
	return newf(CodePostconditionFailed, format, args...)
}

func StorageError(err error, format string, args ...any) *Error {
	e := newf(CodeStorageError, format, args...)
	e.Err = err
	return e
}

func Interrupted(format string, args ...any) *Error {
	return newf(CodeInterrupted, format, args...)
}

// Wrap preserves an existing Error's code, or classifies a plain error as
// a storage error if it carries none.
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return &Error{Code: e.Code, Message: fmt.Sprintf("%s: %s", message, e.Message), Err: err}
	}
	return &Error{Code: CodeStorageError, Message: message, Err: err}
}

// CodeOf returns the code of err, or "" if err is not a *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
