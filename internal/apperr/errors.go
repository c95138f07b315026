// Package apperr defines the error taxonomy shared by services and the HTTP layer.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error and decides the status it is reported with.
type Kind string

const (
	Validation         Kind = "VALIDATION_ERROR"
	Conflict           Kind = "CONFLICT"
	NotFound           Kind = "NOT_FOUND"
	InvalidCredentials Kind = "INVALID_CREDENTIALS"
	Unauthorized       Kind = "UNAUTHORIZED"
	InvalidToken       Kind = "INVALID_TOKEN"
	StaleToken         Kind = "STALE_TOKEN"
	Forbidden          Kind = "FORBIDDEN"
	InvalidAssertion   Kind = "INVALID_ASSERTION"
	TooManyRequests    Kind = "TOO_MANY_REQUESTS"
	Internal           Kind = "INTERNAL_ERROR"
)

// HTTPStatus maps the kind to its response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case Validation:
		return http.StatusBadRequest
	case Conflict:
		return http.StatusConflict
	case NotFound:
		return http.StatusNotFound
	case InvalidCredentials, Unauthorized, InvalidToken, StaleToken, InvalidAssertion:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case TooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure with a client-safe message.
type Error struct {
	Kind    Kind     // Classification
	Message string   // Client-facing message
	Details []string // Optional per-field details
	Cause   error    // Wrapped underlying error, never sent to clients
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithDetails creates an error carrying a detail list.
func WithDetails(kind Kind, message string, details ...string) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

// Wrap creates an error of the given kind around cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Internalf wraps cause as an Internal error unless it is already classified.
func Internalf(message string, cause error) error {
	var appErr *Error
	if errors.As(cause, &appErr) {
		return cause
	}
	return Wrap(Internal, message, cause)
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

// From returns the first *Error in err's chain, or nil.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}
