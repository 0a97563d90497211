package domain

import (
	"errors"
	"strings"
)

// Error kinds. Use errors.Is(err, ErrForbidden) to classify any error
// produced by the use cases; only the HTTP error handler turns a kind into
// a status code.
var (
	ErrValidation      = errors.New("validation error")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrTooManyRequests = errors.New("too many requests")
	ErrInternal        = errors.New("internal error")
)

// ErrInvalidToken is returned by the token service for any token that fails
// verification (bad signature, malformed, expired, wrong class).
var ErrInvalidToken = errors.New("invalid token")

// FieldError describes one failed input rule.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error is the typed error returned across use-case boundaries.
type Error struct {
	kind    error
	message string
	reason  string
	fields  []FieldError
	cause   error
}

func newError(kind error, message string) *Error {
	return &Error{kind: kind, message: message}
}

// Validation reports malformed input with the per-field failures.
func Validation(fields ...FieldError) *Error {
	e := newError(ErrValidation, "Validation error")
	e.fields = fields
	return e
}

func Unauthorized(message string) *Error { return newError(ErrUnauthorized, message) }

func Forbidden(message string) *Error { return newError(ErrForbidden, message) }

func NotFound(message string) *Error { return newError(ErrNotFound, message) }

func Conflict(message string) *Error { return newError(ErrConflict, message) }

func TooManyRequests(message string) *Error { return newError(ErrTooManyRequests, message) }

// Internal wraps an unexpected failure. message is for logs; callers only
// ever see a generic text.
func Internal(message string, cause error) *Error {
	e := newError(ErrInternal, message)
	e.cause = cause
	return e
}

// WithReason attaches an internal reason that is logged but never returned
// to the caller.
func (e *Error) WithReason(reason string) *Error {
	e.reason = reason
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.message)
	if e.reason != "" {
		b.WriteString(" (")
		b.WriteString(e.reason)
		b.WriteString(")")
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

// Message is the caller-facing text.
func (e *Error) Message() string { return e.message }

// Reason is the internal, log-only reason.
func (e *Error) Reason() string { return e.reason }

// Fields lists validation failures, if any.
func (e *Error) Fields() []FieldError { return e.fields }

// Kind returns the sentinel kind of the error.
func (e *Error) Kind() error { return e.kind }

func (e *Error) Is(target error) bool { return target == e.kind }

func (e *Error) Unwrap() error { return e.cause }

// AsError returns the typed error in err's chain. Untyped errors are wrapped
// as internal so that nothing unclassified escapes a use case.
func AsError(err error, message string) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return Internal(message, err)
}
