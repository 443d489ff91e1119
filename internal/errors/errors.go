// Package errors provides structured error types for the sync service.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure modes.
var (
	ErrNotFound    = errors.New("resource not found")
	ErrAuthFailure = errors.New("authentication failed")
	ErrRateLimit   = errors.New("rate limit exceeded")
	ErrUnavailable = errors.New("service unavailable")
	ErrWriteFailed = errors.New("write rejected")
)

// APIError represents an error from one of the two store APIs. RetryAfter
// carries the server's Retry-After hint when the response had one; zero
// means no hint.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s API error (status %d): %s: %v", e.Service, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError creates a new API error. 404s unwrap to ErrNotFound so row
// processing can skip deleted issues instead of failing.
func NewAPIError(service string, statusCode int, message string) *APIError {
	err := &APIError{Service: service, StatusCode: statusCode, Message: message}
	switch statusCode {
	case 404:
		err.Err = ErrNotFound
	case 401, 403:
		err.Err = ErrAuthFailure
	case 429:
		err.Err = ErrRateLimit
	}
	return err
}

// RetryAfterHint extracts the server's Retry-After duration from an error
// chain, if any response along it carried one.
func RetryAfterHint(err error) (time.Duration, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter, true
	}
	return 0, false
}

// IsRetryable returns true if the error is likely transient and worth retrying.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
	}
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrUnavailable)
}
