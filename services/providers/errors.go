package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Provider error codes
const (
	CodeTimeout       = "TIMEOUT"
	CodeRateLimited   = "RATE_LIMITED"
	CodeAuthFailure   = "AUTH_FAILURE"
	CodeUnavailable   = "UNAVAILABLE"
	CodeBadRequest    = "BAD_REQUEST"
	CodeBadResponse   = "BAD_RESPONSE"
	CodeRequestFailed = "REQUEST_FAILED"
)

// ProviderError represents a failure of an external provider call
type ProviderError struct {
	Provider   string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Err        error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s provider error [%s]: %s (%v)", e.Provider, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s provider error [%s]: %s", e.Provider, e.Code, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, statusCode int, retryable bool, err error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Err:        err,
	}
}

// FromHTTPStatus maps a non-200 provider response to a ProviderError
func FromHTTPStatus(provider string, statusCode int, body string) *ProviderError {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return NewProviderError(provider, CodeAuthFailure, "authentication failed", statusCode, false, nil)
	case statusCode == http.StatusTooManyRequests:
		return NewProviderError(provider, CodeRateLimited, "rate limit exceeded", statusCode, true, nil)
	case statusCode >= 500:
		return NewProviderError(provider, CodeUnavailable,
			fmt.Sprintf("provider unavailable: %s", body), statusCode, true, nil)
	default:
		return NewProviderError(provider, CodeBadRequest,
			fmt.Sprintf("request rejected: %s", body), statusCode, false, nil)
	}
}

// FromRequestError maps a transport-level failure to a ProviderError.
// Context deadline and cancellation map to TIMEOUT; everything else is treated
// as a retryable network failure.
func FromRequestError(provider string, err error) *ProviderError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProviderError(provider, CodeTimeout, "request timed out", 0, false, err)
	}
	return NewProviderError(provider, CodeRequestFailed, "request failed", 0, true, err)
}

// IsProviderError checks whether err is a ProviderError
func IsProviderError(err error) bool {
	var provErr *ProviderError
	return errors.As(err, &provErr)
}

// IsRetryable reports whether err is a provider error worth retrying
func IsRetryable(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Retryable
	}
	return false
}

// IsTimeout reports whether err is a provider timeout
func IsTimeout(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Code == CodeTimeout
	}
	return false
}

// GetCode returns the provider error code, or empty string if err is not a ProviderError
func GetCode(err error) string {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Code
	}
	return ""
}
