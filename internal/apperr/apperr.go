// Package apperr defines the typed errors returned by the placement,
// layout and crop packages and mapped to HTTP statuses by the handlers.
//
// Errors carry a Code; errors.Is matches on the code alone, so callers can
// test against the sentinels:
//
//	if errors.Is(err, apperr.ErrDegenerateCrop) { ... }
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidMetrics Code = "INVALID_METRICS"
	CodeDegenerateCrop Code = "DEGENERATE_CROP"
	CodeNoPlacement    Code = "NO_PLACEMENT"
	CodeOutOfRange     Code = "OUT_OF_RANGE"
	CodeInvalidInput   Code = "INVALID_INPUT"
	CodePageNotActive  Code = "PAGE_NOT_ACTIVE"
	CodePageLocked     Code = "PAGE_LOCKED"
	CodeWrongPassword  Code = "WRONG_PASSWORD"
	CodeNotFound       Code = "NOT_FOUND"
)

type Error struct {
	Code    Code
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// With attaches a context value and returns e for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

var (
	ErrInvalidMetrics = New(CodeInvalidMetrics, "invalid page metrics")
	ErrDegenerateCrop = New(CodeDegenerateCrop, "crop leaves no page area")
	ErrNoPlacement    = New(CodeNoPlacement, "no placement recorded")
	ErrOutOfRange     = New(CodeOutOfRange, "value out of range")
	ErrInvalidInput   = New(CodeInvalidInput, "invalid input")
	ErrPageNotActive  = New(CodePageNotActive, "page is not active")
	ErrPageLocked     = New(CodePageLocked, "page is locked")
	ErrWrongPassword  = New(CodeWrongPassword, "wrong password")
	ErrNotFound       = New(CodeNotFound, "not found")
)

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidInput, CodeOutOfRange, CodeInvalidMetrics, CodeDegenerateCrop:
		return http.StatusBadRequest
	case CodeNoPlacement, CodePageLocked, CodePageNotActive:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeWrongPassword:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
