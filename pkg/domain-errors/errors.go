// Package domainerrors provides coded errors for the service layer.
// Services create or wrap errors with a stable machine-readable code;
// handlers map codes onto HTTP statuses and tests match on them with
// HasCode instead of string comparison.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a class of domain failure. The string value is wire-stable:
// it appears verbatim in HTTP error bodies and must not change.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeTimeout            Code = "timeout"
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"

	// Registry lifecycle and vesting-specific codes.
	CodeNotInitialized     Code = "not_initialized"
	CodeAlreadyInitialized Code = "already_initialized"
	CodeNothingToClaim     Code = "nothing_to_claim"
	CodeInsufficientFunds  Code = "insufficient_funds"
)

// Error is a coded domain error. It optionally wraps an underlying cause,
// which stays reachable through errors.Is/As for sentinel matching.
type Error struct {
	code Code
	msg  string
	err  error
}

// New creates a coded error with a human-readable message.
func New(code Code, msg string) *Error {
	return &Error{code: code, msg: msg}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err yields
// the same result as New.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{code: code, msg: msg, err: err}
}

// Code returns the machine-readable code.
func (e *Error) Code() Code { return e.code }

// Message returns the human-readable message without the cause chain.
func (e *Error) Message() string { return e.msg }

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.code, e.msg)
}

func (e *Error) Unwrap() error { return e.err }

// Is lets errors.Is match two coded errors by code and message, so tests can
// assert against a freshly constructed expectation.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.code == te.code && e.msg == te.msg
}

// CodeOf extracts the code from the outermost coded error in err's chain.
// Returns false for nil errors and chains without a coded error.
func CodeOf(err error) (Code, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.code, true
	}
	return "", false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	got, ok := CodeOf(err)
	return ok && got == code
}

// Is is an alias for HasCode, reading naturally in test assertions.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}
