package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error into the client-visible taxonomy. The string form
// is what appears in the error_type field of HTTP error bodies and in the
// error record of a failed job.
type Kind string

const (
	KindAuthentication    Kind = "AuthenticationError"
	KindValidation        Kind = "ValidationError"
	KindUnsupportedFormat Kind = "UnsupportedFormatError"
	KindPayloadTooLarge   Kind = "PayloadTooLargeError"
	KindNotFound          Kind = "NotFoundError"
	KindConflict          Kind = "ConflictError"
	KindRateLimit         Kind = "RateLimitError"
	KindDependency        Kind = "DependencyError"
	KindInternal          Kind = "InternalError"
)

// HTTPStatus maps the kind onto the response status used by the gateways.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindValidation, KindUnsupportedFormat, KindPayloadTooLarge:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a kind alongside a message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// E builds a classified error.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Ef builds a classified error with a formatted message.
func Ef(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error without losing it.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the kind from an error chain, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ErrNotFound is the sentinel used by stores when a record is absent.
var ErrNotFound = E(KindNotFound, "not found")
