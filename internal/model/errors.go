package model

import (
	"errors"
	"fmt"
)

// Kind is the engine's error taxonomy (spec §7). No stack traces are ever
// surfaced; the HTTP layer maps Kind to a status code.
type Kind string

const (
	KindInvalidArgument   Kind = "invalid_argument"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindFailedPrecondition Kind = "failed_precondition"
	KindConflict          Kind = "conflict"
	KindInternal          Kind = "internal"
)

// Error is the engine's error type. It wraps an optional cause but never
// exposes it outside of logs.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func newErr(k Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...), cause: cause}
}

func InvalidArgument(cause error, format string, args ...any) *Error {
	return newErr(KindInvalidArgument, cause, format, args...)
}

func Unauthorized(cause error, format string, args ...any) *Error {
	return newErr(KindUnauthorized, cause, format, args...)
}

func Forbidden(cause error, format string, args ...any) *Error {
	return newErr(KindForbidden, cause, format, args...)
}

func NotFound(cause error, format string, args ...any) *Error {
	return newErr(KindNotFound, cause, format, args...)
}

func FailedPrecondition(cause error, format string, args ...any) *Error {
	return newErr(KindFailedPrecondition, cause, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newErr(KindConflict, nil, format, args...)
}

func Internal(cause error, format string, args ...any) *Error {
	return newErr(KindInternal, cause, format, args...)
}

// KindOf extracts the Kind of err, defaulting to KindInternal for
// errors the engine did not itself construct.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
