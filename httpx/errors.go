package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/LeonPucin/dash-core/httpx/policy"
	"github.com/LeonPucin/dash-core/retry"
)

// Sentinel errors that can be checked using errors.Is
var (
	// ErrTimeout is returned when a request times out.
	ErrTimeout = policy.ErrTimeout

	// ErrRateLimited is returned when the client-side rate limiter rejects a request.
	ErrRateLimited = policy.ErrRateLimited

	// ErrMaxRetriesExceeded is returned when all retry attempts have been exhausted.
	ErrMaxRetriesExceeded = retry.ErrExhausted
)

// Causes reported in RequestError.Cause.
const (
	CauseInvalidRequest = "invalid_request"
	CauseTimeout        = "timeout"
	CauseRateLimited    = "rate_limited"
	CauseMaxRetries     = "max_retries"
	CauseCanceled       = "canceled"
	CauseNetwork        = "network"
	CauseStatus         = "status"
)

// RequestError provides rich context about failed HTTP requests.
// It wraps the underlying error with additional information about the request,
// response, retry attempts, and error category.
type RequestError struct {
	// Err is the underlying error that caused the request to fail
	Err error

	// Request is the original HTTP request (may be nil if error occurred before request creation)
	Request *http.Request

	// Response is the HTTP response if one was received (may be nil for network errors)
	Response *http.Response

	// Retries is the number of retry attempts that were made
	Retries int

	// Cause categorizes the error for easier handling. See the Cause constants.
	Cause string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Request != nil {
		return fmt.Sprintf("httpx: %s %s failed: %s (cause: %s, retries: %d)",
			e.Request.Method,
			e.Request.URL.String(),
			e.Err.Error(),
			e.Cause,
			e.Retries,
		)
	}
	return fmt.Sprintf("httpx: request failed: %s (cause: %s, retries: %d)",
		e.Err.Error(),
		e.Cause,
		e.Retries,
	)
}

// Unwrap returns the underlying error, allowing errors.Is and errors.As to work.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code from the response if available,
// or the last retryable status when retries ran out. Returns 0 otherwise.
func (e *RequestError) StatusCode() int {
	if e.Response != nil {
		return e.Response.StatusCode
	}
	var statusErr *policy.StatusError
	if errors.As(e.Err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

func classify(err error) string {
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return CauseTimeout
	case errors.Is(err, ErrRateLimited):
		return CauseRateLimited
	case errors.Is(err, ErrMaxRetriesExceeded):
		return CauseMaxRetries
	case errors.Is(err, context.Canceled):
		return CauseCanceled
	default:
		return CauseNetwork
	}
}
