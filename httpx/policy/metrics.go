package policy

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/LeonPucin/dash-core/httpx/observability"
	"github.com/LeonPucin/dash-core/retry"
)

// MetricsPolicy measures whole requests: duration, in-flight count,
// attempts per request and failures by reason. Individual retries and rate
// limit rejections are counted by those policies on the same collector.
type MetricsPolicy struct {
	collector *observability.MetricsCollector
}

func NewMetricsPolicy(collector *observability.MetricsCollector) *MetricsPolicy {
	return &MetricsPolicy{collector: collector}
}

func (m *MetricsPolicy) Execute(ctx context.Context, req *http.Request, next Executor) (*http.Response, error) {
	host := observability.NormalizeHost(req.URL.Host)

	m.collector.IncrementActiveRequests(host)
	defer m.collector.DecrementActiveRequests(host)

	start := time.Now()
	resp, err := next(ctx, req)

	// Failures without a response are recorded with status code 0.
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	m.collector.RecordRequestDuration(req.Method, host, status, time.Since(start))

	if n := StateFrom(ctx).Attempts(); n > 0 {
		m.collector.RecordAttempts(req.Method, host, n)
	}
	if err != nil {
		m.collector.IncrementFailures(req.Method, host, failureReason(err))
	}
	return resp, err
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, retry.ErrExhausted):
		return "exhausted"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return observability.ErrorToReason(err)
	}
}
