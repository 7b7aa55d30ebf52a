package observability

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics collection for HTTP requests.
type MetricsCollector struct {
	requestDuration *prometheus.HistogramVec
	retryAttempts   *prometheus.CounterVec
	retryExhausted  *prometheus.CounterVec
	activeRequests  *prometheus.GaugeVec
	rateLimited     *prometheus.CounterVec
	attempts        *prometheus.HistogramVec
	failures        *prometheus.CounterVec
}

// NewMetricsCollector creates a new Prometheus metrics collector.
// If registry is nil, uses the default Prometheus registry.
func NewMetricsCollector(registry prometheus.Registerer) *MetricsCollector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &MetricsCollector{
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_client_request_duration_seconds",
				Help: "HTTP client request duration in seconds",
				Buckets: []float64{
					0.001, // 1ms
					0.005, // 5ms
					0.01,  // 10ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.5,   // 500ms
					1.0,   // 1s
					2.0,   // 2s
					5.0,   // 5s
					10.0,  // 10s
				},
			},
			[]string{"method", "status_code", "host"},
		),

		retryAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_client_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"method", "host", "reason"},
		),

		retryExhausted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_client_retries_exhausted_total",
				Help: "Total number of requests that ran out of retries",
			},
			[]string{"method", "host"},
		),

		activeRequests: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "http_client_active_requests",
				Help: "Number of active HTTP requests",
			},
			[]string{"host"},
		),

		rateLimited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_client_rate_limited_total",
				Help: "Total number of requests rejected by the client rate limiter",
			},
			[]string{"host"},
		),

		attempts: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_client_request_attempts",
				Help:    "Transport attempts made per request",
				Buckets: prometheus.LinearBuckets(1, 1, 8),
			},
			[]string{"method", "host"},
		),

		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_client_request_failures_total",
				Help: "Requests that ended in an error, by reason",
			},
			[]string{"method", "host", "reason"},
		),
	}
}

// RecordRequestDuration records the duration of an HTTP request.
func (m *MetricsCollector) RecordRequestDuration(method, host string, statusCode int, duration time.Duration) {
	m.requestDuration.WithLabelValues(
		method,
		strconv.Itoa(statusCode),
		host,
	).Observe(duration.Seconds())
}

// IncrementRetryAttempts increments the retry attempt counter.
// reason: "network_error", "5xx", "429", "custom"
func (m *MetricsCollector) IncrementRetryAttempts(method, host, reason string) {
	m.retryAttempts.WithLabelValues(method, host, reason).Inc()
}

// IncrementRetryExhausted counts a request whose retries ran out.
func (m *MetricsCollector) IncrementRetryExhausted(method, host string) {
	m.retryExhausted.WithLabelValues(method, host).Inc()
}

// IncrementActiveRequests increments the active requests gauge.
func (m *MetricsCollector) IncrementActiveRequests(host string) {
	m.activeRequests.WithLabelValues(host).Inc()
}

// DecrementActiveRequests decrements the active requests gauge.
func (m *MetricsCollector) DecrementActiveRequests(host string) {
	m.activeRequests.WithLabelValues(host).Dec()
}

// IncrementRateLimited increments the rate limiter rejection counter.
func (m *MetricsCollector) IncrementRateLimited(host string) {
	m.rateLimited.WithLabelValues(host).Inc()
}

// RecordAttempts observes how many transport attempts one request took.
func (m *MetricsCollector) RecordAttempts(method, host string, attempts int) {
	m.attempts.WithLabelValues(method, host).Observe(float64(attempts))
}

// IncrementFailures counts a request that returned an error.
// reason: "timeout", "rate_limited", "exhausted", "canceled", "network_error"
func (m *MetricsCollector) IncrementFailures(method, host, reason string) {
	m.failures.WithLabelValues(method, host, reason).Inc()
}

// NormalizeHost strips default ports to reduce label cardinality.
func NormalizeHost(host string) string {
	h, port, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}
	if port == "80" || port == "443" {
		return h
	}
	return host
}

// StatusCodeToReason converts an HTTP status code to a retry reason.
func StatusCodeToReason(statusCode int) string {
	if statusCode == 429 {
		return "429"
	}
	if statusCode >= 500 {
		return "5xx"
	}
	return "custom"
}

// ErrorToReason converts a transport error to a retry reason.
func ErrorToReason(err error) string {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	default:
		return "network_error"
	}
}
