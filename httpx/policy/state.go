package policy

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

var (
	// ErrTimeout is returned when the timeout policy's deadline expires.
	ErrTimeout = errors.New("request timeout")

	// ErrRateLimited is returned when the rate limit policy rejects a request
	// without waiting.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// RequestState carries per-request overrides into the policy chain and
// collects what the policies did. The client attaches one to every request.
type RequestState struct {
	// Timeout replaces the timeout policy's deadline for this request.
	Timeout *time.Duration

	// Retryable forces retry on (for example a POST) or off.
	Retryable *bool

	DisableRetry     bool
	DisableTimeout   bool
	DisableRateLimit bool

	attempts  atomic.Int32
	requestID atomic.Value
}

// Attempts returns how many times the transport was called.
func (s *RequestState) Attempts() int {
	if s == nil {
		return 0
	}
	return int(s.attempts.Load())
}

// Retries returns Attempts minus the first try.
func (s *RequestState) Retries() int {
	if n := s.Attempts(); n > 1 {
		return n - 1
	}
	return 0
}

func (s *RequestState) addAttempt() int {
	if s == nil {
		return 0
	}
	return int(s.attempts.Add(1))
}

// RequestID returns the id the request id policy attached, if any.
func (s *RequestState) RequestID() string {
	if s == nil {
		return ""
	}
	id, _ := s.requestID.Load().(string)
	return id
}

func (s *RequestState) setRequestID(id string) {
	if s != nil {
		s.requestID.Store(id)
	}
}

type stateKey struct{}

// WithState attaches s to ctx.
func WithState(ctx context.Context, s *RequestState) context.Context {
	return context.WithValue(ctx, stateKey{}, s)
}

// StateFrom returns the state attached to ctx, or nil. Every method on
// *RequestState accepts a nil receiver.
func StateFrom(ctx context.Context) *RequestState {
	s, _ := ctx.Value(stateKey{}).(*RequestState)
	return s
}
