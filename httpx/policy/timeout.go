package policy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TimeoutConfig configures the request deadline.
type TimeoutConfig struct {
	// Request is the total timeout for the entire request (including retries).
	// Default: 30 seconds
	Request time.Duration `mapstructure:"request"`

	// Connection timeout is handled at the transport level (http.Transport.DialContext)
	// TLS handshake timeout is also handled at transport level
	// These are configured via WithHTTPClient option, not in this policy
}

// TimeoutPolicy implements timeout controls for HTTP requests.
// It wraps the request execution with a context deadline.
type TimeoutPolicy struct {
	config TimeoutConfig
}

// NewTimeoutPolicy creates a new timeout policy with the given configuration.
func NewTimeoutPolicy(config TimeoutConfig) *TimeoutPolicy {
	if config.Request == 0 {
		config.Request = 30 * time.Second
	}

	return &TimeoutPolicy{
		config: config,
	}
}

// Execute implements the Policy interface by applying timeout to the request.
// A per-request override in RequestState takes precedence.
func (t *TimeoutPolicy) Execute(ctx context.Context, req *http.Request, next Executor) (*http.Response, error) {
	timeout := t.config.Request
	if state := StateFrom(ctx); state != nil {
		if state.DisableTimeout {
			return next(ctx, req)
		}
		if state.Timeout != nil {
			timeout = *state.Timeout
		}
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)

	resp, err := next(timeoutCtx, req)
	if err != nil {
		cancel()
		// Only our own deadline maps to ErrTimeout; a parent deadline is passed through.
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s: %w", ErrTimeout, timeout, err)
		}
		return resp, err
	}

	// The deadline also bounds reading the body, so cancel on Close.
	if resp != nil && resp.Body != nil {
		resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	} else {
		cancel()
	}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	defer b.cancel()
	return b.ReadCloser.Close()
}
