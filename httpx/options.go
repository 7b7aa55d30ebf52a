package httpx

import (
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/LeonPucin/dash-core/httpx/observability"
	"github.com/LeonPucin/dash-core/httpx/policy"
	"github.com/LeonPucin/dash-core/logger"
	"github.com/LeonPucin/dash-core/retry"
)

// ClientOption configures a Client.
type ClientOption interface {
	apply(*builder)
}

type optionFunc func(*builder)

func (f optionFunc) apply(b *builder) {
	f(b)
}

// builder collects options so that policies depending on each other
// (retry and rate limit need the logger and the metrics collector) are
// created once every option has been applied.
type builder struct {
	client *Client

	retry     *policy.RetryConfig
	retryOpts []retry.Option
	rateLimit *policy.RateLimitConfig
	collector *observability.MetricsCollector
	userAgent string
}

func (b *builder) build() error {
	c := b.client

	if t, ok := c.transport.(*DefaultTransport); ok {
		c.transport = t.with(c.log, b.userAgent)
	}

	if b.collector != nil {
		c.metrics = policy.NewMetricsPolicy(b.collector)
	}

	var errs []error
	if b.retry != nil {
		opts := append([]retry.Option{retry.WithLogger(c.log)}, b.retryOpts...)
		p, err := policy.NewRetryPolicy(*b.retry, opts...)
		if err != nil {
			errs = append(errs, err)
		} else {
			c.retry = p.WithMetrics(b.collector)
		}
	}
	if b.rateLimit != nil {
		p, err := policy.NewRateLimitPolicy(*b.rateLimit)
		if err != nil {
			errs = append(errs, err)
		} else {
			c.rateLimit = p.WithMetrics(b.collector)
		}
	}
	return errors.Join(errs...)
}

// WithBaseURL sets the base URL prepended to every request path.
func WithBaseURL(url string) ClientOption {
	return optionFunc(func(b *builder) {
		b.client.baseURL = url
	})
}

// WithTransport replaces the transport. Mostly useful for tests.
func WithTransport(t Transport) ClientOption {
	return optionFunc(func(b *builder) {
		b.client.transport = t
	})
}

// WithHTTPClient uses client for the default transport, giving control
// over connection pooling, TLS and proxies.
func WithHTTPClient(client *http.Client) ClientOption {
	return optionFunc(func(b *builder) {
		b.client.transport = NewDefaultTransportWithClient(client)
	})
}

// WithUserAgent replaces DefaultUserAgent on the default transport. A
// User-Agent set on the request itself always wins.
func WithUserAgent(ua string) ClientOption {
	return optionFunc(func(b *builder) {
		b.userAgent = ua
	})
}

// WithLogger sets the logger used by the client, its retry policy and the
// default transport.
func WithLogger(l *logger.Logger) ClientOption {
	return optionFunc(func(b *builder) {
		if l != nil {
			b.client.log = l.Named("httpx")
		}
	})
}

// WithRetry enables retries. opts are passed to the retry executor, for
// example retry.WithClock in tests.
func WithRetry(config policy.RetryConfig, opts ...retry.Option) ClientOption {
	return optionFunc(func(b *builder) {
		b.retry = &config
		b.retryOpts = opts
	})
}

// WithTimeout bounds every request, retries included.
func WithTimeout(config policy.TimeoutConfig) ClientOption {
	return optionFunc(func(b *builder) {
		b.client.timeout = policy.NewTimeoutPolicy(config)
	})
}

// WithRateLimit paces outgoing attempts.
func WithRateLimit(config policy.RateLimitConfig) ClientOption {
	return optionFunc(func(b *builder) {
		b.rateLimit = &config
	})
}

// WithMetrics records request, retry and rate limit metrics on collector.
func WithMetrics(collector *observability.MetricsCollector) ClientOption {
	return optionFunc(func(b *builder) {
		b.collector = collector
	})
}

// WithTracing creates a client span per request. A nil provider uses the
// global one.
func WithTracing(provider trace.TracerProvider) ClientOption {
	return optionFunc(func(b *builder) {
		b.client.tracing = policy.NewInstrumentationPolicy(provider)
	})
}

// WithRequestID sets a request id header on every request.
func WithRequestID(config policy.RequestIDConfig) ClientOption {
	return optionFunc(func(b *builder) {
		b.client.requestID = policy.NewRequestIDPolicy(config)
	})
}

// WithPolicy appends a custom policy. Custom policies run inside the retry
// policy, so they see every attempt.
func WithPolicy(p policy.Policy) ClientOption {
	return optionFunc(func(b *builder) {
		b.client.custom = append(b.client.custom, p)
	})
}
