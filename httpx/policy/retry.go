package policy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/LeonPucin/dash-core/httpx/observability"
	"github.com/LeonPucin/dash-core/retry"
)

// RetryConfig configures the retry policy behavior. Delays follow the
// bounded retry executor: the request is retried while the backoff delay
// stays within MaxDelay.
type RetryConfig struct {
	// InitialDelay is the wait after the first failed attempt.
	// Default: 100ms
	InitialDelay time.Duration `mapstructure:"initial_delay"`

	// MaxDelay bounds the backoff delay; once exceeded the policy gives up.
	// Default: 2s
	MaxDelay time.Duration `mapstructure:"max_delay"`

	// Factor multiplies the delay after every failed attempt.
	// Default: 2
	Factor float64 `mapstructure:"factor"`

	// Jitter adds a random [0, Jitter) to every grown delay.
	Jitter time.Duration `mapstructure:"jitter"`

	// ShouldRetry is a custom function to determine if a request should be retried.
	// If nil, uses the default retry condition (network errors + RetryableStatusCodes).
	ShouldRetry func(*http.Response, error) bool `mapstructure:"-"`

	// RetryableStatusCodes defines which HTTP status codes should be retried.
	// Default: 429 (rate limit), 500, 502, 503, 504
	RetryableStatusCodes []int `mapstructure:"retryable_status_codes"`

	// OnlyIdempotent when true, only retries idempotent methods (GET, PUT, DELETE, HEAD, OPTIONS).
	// POST is not retried unless explicitly opted in via request options.
	OnlyIdempotent bool `mapstructure:"only_idempotent"`

	// ReportExhaustion also hands exhaustion errors to the executor's
	// error reporter.
	ReportExhaustion bool `mapstructure:"report_exhaustion"`
}

// StatusError reports a response whose status code was classified as
// retryable but never recovered.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("retryable status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// RetryPolicy implements automatic retry on top of retry.Executor.
type RetryPolicy struct {
	config   RetryConfig
	executor *retry.Executor
	metrics  *observability.MetricsCollector
}

// NewRetryPolicy creates a new retry policy with the given configuration.
// opts are passed to the underlying executor (clock, logger, reporter).
func NewRetryPolicy(config RetryConfig, opts ...retry.Option) (*RetryPolicy, error) {
	if config.InitialDelay == 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay == 0 {
		config.MaxDelay = 2 * time.Second
	}
	if config.Factor == 0 {
		config.Factor = 2
	}
	if config.RetryableStatusCodes == nil {
		config.RetryableStatusCodes = []int{429, 500, 502, 503, 504}
	}

	executor, err := retry.New(retry.Config{
		InitialDelay:     config.InitialDelay,
		MaxDelay:         config.MaxDelay,
		Factor:           config.Factor,
		Jitter:           config.Jitter,
		ReportExhaustion: config.ReportExhaustion,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("retry policy: %w", err)
	}

	return &RetryPolicy{
		config:   config,
		executor: executor,
	}, nil
}

// WithMetrics records retries and exhaustion on collector.
func (r *RetryPolicy) WithMetrics(collector *observability.MetricsCollector) *RetryPolicy {
	r.metrics = collector
	return r
}

// Config returns the effective configuration.
func (r *RetryPolicy) Config() RetryConfig {
	return r.config
}

// Execute implements the Policy interface by retrying failed requests.
func (r *RetryPolicy) Execute(ctx context.Context, req *http.Request, next Executor) (*http.Response, error) {
	state := StateFrom(ctx)

	if !r.retryEnabled(state, req.Method) {
		state.addAttempt()
		return next(ctx, req)
	}

	// Preserve request body for retries
	var bodyBytes []byte
	if req.Body != nil && req.Body != http.NoBody {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
	}

	host := observability.NormalizeHost(req.URL.Host)

	var resp *http.Response
	err := r.executor.Run(ctx, func(ctx context.Context) error {
		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		if attempt := state.addAttempt(); attempt > 1 {
			observability.AddPolicyEvent(ctx, "http.retry", attribute.Int("http.attempt", attempt))
		}

		var err error
		resp, err = next(ctx, req)

		if !r.shouldRetry(resp, err) {
			if err != nil {
				return retry.Permanent(err)
			}
			return nil
		}

		if err == nil {
			statusCode := resp.StatusCode
			drain(resp)
			resp = nil
			err = &StatusError{StatusCode: statusCode}
			r.countRetry(req.Method, host, observability.StatusCodeToReason(statusCode))
		} else {
			r.countRetry(req.Method, host, observability.ErrorToReason(err))
		}
		return err
	})

	if err != nil {
		if errors.Is(err, retry.ErrExhausted) && r.metrics != nil {
			r.metrics.IncrementRetryExhausted(req.Method, host)
		}
		drain(resp)
		return nil, err
	}
	return resp, nil
}

func (r *RetryPolicy) retryEnabled(state *RequestState, method string) bool {
	if state != nil {
		if state.DisableRetry {
			return false
		}
		if state.Retryable != nil {
			return *state.Retryable
		}
	}
	return !r.config.OnlyIdempotent || isIdempotent(method)
}

func (r *RetryPolicy) countRetry(method, host, reason string) {
	if r.metrics != nil {
		r.metrics.IncrementRetryAttempts(method, host, reason)
	}
}

// shouldRetry determines if a request should be retried based on response and error.
func (r *RetryPolicy) shouldRetry(resp *http.Response, err error) bool {
	// Cancellation from the caller is final regardless of the condition.
	if errors.Is(err, context.Canceled) {
		return false
	}

	if r.config.ShouldRetry != nil {
		return r.config.ShouldRetry(resp, err)
	}

	if err != nil {
		return !errors.Is(err, context.DeadlineExceeded)
	}

	if resp != nil {
		for _, code := range r.config.RetryableStatusCodes {
			if resp.StatusCode == code {
				return true
			}
		}
	}

	return false
}

// drain discards and closes the body so the connection can be reused.
func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// isIdempotent returns true if the HTTP method is idempotent.
// Idempotent methods: GET, PUT, DELETE, HEAD, OPTIONS, TRACE
// Non-idempotent: POST, PATCH
func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPut, http.MethodDelete,
		http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
