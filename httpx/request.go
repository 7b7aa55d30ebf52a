package httpx

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/LeonPucin/dash-core/httpx/policy"
)

// Headers is a convenience type for HTTP headers.
type Headers map[string]string

// Request represents an HTTP request with additional configuration options.
type Request struct {
	// Method is the HTTP method (GET, POST, PUT, PATCH, DELETE, etc.)
	Method string

	// Path is the URL path (will be joined with Client's BaseURL if set)
	Path string

	// Headers are the HTTP headers to send with the request
	Headers Headers

	// Body is the request body (for POST, PUT, PATCH requests)
	Body io.Reader

	// Options allow per-request overrides of client-level policies
	Options []RequestOption
}

// RequestOption allows per-request configuration overrides.
type RequestOption interface {
	apply(*policy.RequestState)
}

// funcOption wraps a function to implement RequestOption
type funcOption struct {
	f func(*policy.RequestState)
}

func (fo *funcOption) apply(s *policy.RequestState) {
	fo.f(s)
}

// WithRequestTimeout overrides the client's default timeout for this request.
func WithRequestTimeout(d time.Duration) RequestOption {
	return &funcOption{
		f: func(s *policy.RequestState) {
			s.Timeout = &d
		},
	}
}

// WithRetryable explicitly enables or disables retry for this request.
// This is useful for:
// - Enabling retry on POST requests (which are non-idempotent by default)
// - Disabling retry on specific requests even if the client has retry enabled
func WithRetryable(retryable bool) RequestOption {
	return &funcOption{
		f: func(s *policy.RequestState) {
			s.Retryable = &retryable
		},
	}
}

// WithoutRetry disables the retry policy for this request.
func WithoutRetry() RequestOption {
	return &funcOption{
		f: func(s *policy.RequestState) {
			s.DisableRetry = true
		},
	}
}

// WithoutTimeout disables the timeout policy for this request.
// Use with caution - only for requests that truly have no time bound.
func WithoutTimeout() RequestOption {
	return &funcOption{
		f: func(s *policy.RequestState) {
			s.DisableTimeout = true
		},
	}
}

// WithoutRateLimit lets this request bypass the client rate limiter, e.g.
// for health checks.
func WithoutRateLimit() RequestOption {
	return &funcOption{
		f: func(s *policy.RequestState) {
			s.DisableRateLimit = true
		},
	}
}

// newState applies all request options to a fresh state.
func newState(opts []RequestOption) *policy.RequestState {
	s := &policy.RequestState{}
	for _, opt := range opts {
		opt.apply(s)
	}
	return s
}

// toHTTPRequest converts a Request to a standard http.Request.
func (r *Request) toHTTPRequest(ctx context.Context, baseURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, r.Method, baseURL+r.Path, r.Body)
	if err != nil {
		return nil, err
	}

	for key, value := range r.Headers {
		req.Header.Set(key, value)
	}

	return req, nil
}
