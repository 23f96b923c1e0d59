package platform

import (
	"errors"
	"fmt"
	"net/http"
)

// Normalized error codes shared across adapters
const (
	CodeAuthExpired      = "auth_expired"
	CodePermissionDenied = "permission_denied"
	CodeRateLimited      = "rate_limited"
	CodeContentRejected  = "content_rejected"
	CodeUnavailable      = "platform_unavailable"
	CodeTimeout          = "timeout"
	CodeBadResponse      = "bad_response"
)

// Error is the normalized form of a platform failure. Rate limits and
// transient 5xx are retryable; auth and permission errors are not.
type Error struct {
	Code      string
	Message   string
	Retryable bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("platform error %s: %s", e.Code, e.Message)
}

// NewError builds a normalized platform error
func NewError(code, message string, retryable bool) *Error {
	return &Error{Code: code, Message: message, Retryable: retryable}
}

// AsError unwraps err into a *Error if it is one
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsRetryable reports whether the error is a retryable platform error.
// Unclassified errors (transport failures that never reached the
// platform) count as retryable.
func IsRetryable(err error) bool {
	if pe, ok := AsError(err); ok {
		return pe.Retryable
	}
	return true
}

// FromHTTPStatus maps a plain HTTP status to a normalized error for
// platforms whose error body carries no usable code.
func FromHTTPStatus(status int, message string) *Error {
	switch {
	case status == http.StatusTooManyRequests:
		return NewError(CodeRateLimited, message, true)
	case status == http.StatusUnauthorized:
		return NewError(CodeAuthExpired, message, false)
	case status == http.StatusForbidden:
		return NewError(CodePermissionDenied, message, false)
	case status >= 500:
		return NewError(CodeUnavailable, message, true)
	default:
		return NewError(CodeBadResponse, message, false)
	}
}

// FromGraphCode maps a Facebook Graph API error code to a normalized
// error. Code 190 is an expired/invalid token; 4, 17, 32 and 613 are
// rate limits; 10, 200 and 299 are permission failures.
func FromGraphCode(code int, message string) *Error {
	switch code {
	case 190:
		return NewError(CodeAuthExpired, message, false)
	case 4, 17, 32, 613:
		return NewError(CodeRateLimited, message, true)
	case 10, 200, 299:
		return NewError(CodePermissionDenied, message, false)
	case 368:
		return NewError(CodeContentRejected, message, false)
	default:
		return NewError(CodeBadResponse, message, false)
	}
}
