// Package apperror defines the machine-readable error kinds returned by the
// booking core and the helpers the HTTP layer uses to render them.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation           Kind = "validation_error"
	KindInvalidDateRange     Kind = "invalid_date_range"
	KindNotFound             Kind = "not_found"
	KindAttemptNotFound      Kind = "attempt_not_found"
	KindAttemptExpired       Kind = "attempt_expired"
	KindAttemptNotPending    Kind = "attempt_not_pending"
	KindRoomUnavailable      Kind = "room_unavailable"
	KindInsufficientCapacity Kind = "insufficient_capacity"
	KindZeroOrNegativeAmount Kind = "zero_or_negative_amount"
	KindProviderUnavailable  Kind = "provider_unavailable"
	KindProviderTimeout      Kind = "provider_timeout"
	KindSignatureInvalid     Kind = "signature_invalid"
	KindPaymentNotFound      Kind = "payment_not_found"
	KindUnauthorized         Kind = "unauthorized"
	KindForbidden            Kind = "forbidden"
	KindConflict             Kind = "conflict"
	KindRateLimited          Kind = "rate_limited"
	KindInternal             Kind = "internal"
)

// Error is an error with a kind that is safe to expose to clients. Err keeps
// the underlying cause for logs only.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on kind so that errors.Is(err, ErrRoomUnavailable) holds for any
// room_unavailable error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation builds a single aggregated validation error.
func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "Validation failed", Fields: fields}
}

var (
	ErrInvalidDateRange     = New(KindInvalidDateRange, "check_in must be before check_out")
	ErrAttemptNotFound      = New(KindAttemptNotFound, "booking attempt not found")
	ErrAttemptExpired       = New(KindAttemptExpired, "booking attempt has expired")
	ErrAttemptNotPending    = New(KindAttemptNotPending, "booking attempt is no longer pending")
	ErrRoomUnavailable      = New(KindRoomUnavailable, "room is not available for the selected dates")
	ErrInsufficientCapacity = New(KindInsufficientCapacity, "selected rooms cannot hold the requested guests")
	ErrZeroOrNegativeAmount = New(KindZeroOrNegativeAmount, "booking amount must be greater than zero")
	ErrProviderUnavailable  = New(KindProviderUnavailable, "payment provider is unavailable, please retry")
	ErrProviderTimeout      = New(KindProviderTimeout, "payment provider timed out, please retry")
	ErrSignatureInvalid     = New(KindSignatureInvalid, "payment signature is invalid")
	ErrPaymentNotFound      = New(KindPaymentNotFound, "payment not found")
	ErrUnauthorized         = New(KindUnauthorized, "authentication required")
	ErrForbidden            = New(KindForbidden, "access denied")
	ErrNotFound             = New(KindNotFound, "resource not found")
	ErrConflict             = New(KindConflict, "resource already exists")
	ErrInternal             = New(KindInternal, "internal server error")
)

// KindOf returns the kind of the first *Error in the chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// From returns the first *Error in the chain, or ErrInternal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternal
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindInvalidDateRange, KindZeroOrNegativeAmount, KindSignatureInvalid:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound, KindAttemptNotFound, KindPaymentNotFound:
		return http.StatusNotFound
	case KindAttemptNotPending, KindRoomUnavailable, KindInsufficientCapacity, KindConflict:
		return http.StatusConflict
	case KindAttemptExpired:
		return http.StatusGone
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindProviderUnavailable:
		return http.StatusBadGateway
	case KindProviderTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
