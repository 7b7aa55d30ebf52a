package httpx_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/LeonPucin/dash-core/clock/clocktest"
	"github.com/LeonPucin/dash-core/httpx"
	"github.com/LeonPucin/dash-core/httpx/httpxtest"
	"github.com/LeonPucin/dash-core/httpx/observability"
	"github.com/LeonPucin/dash-core/httpx/policy"
	"github.com/LeonPucin/dash-core/idgen"
	"github.com/LeonPucin/dash-core/logger"
	"github.com/LeonPucin/dash-core/rate"
	"github.com/LeonPucin/dash-core/retry"
)

var fastRetry = policy.RetryConfig{
	InitialDelay: 10 * time.Millisecond,
	MaxDelay:     40 * time.Millisecond,
	Factor:       2,
}

func newClient(t *testing.T, opts ...httpx.ClientOption) *httpx.Client {
	t.Helper()

	client, err := httpx.NewClient(opts...)
	require.NoError(t, err)
	return client
}

func withFastRetry() httpx.ClientOption {
	return httpx.WithRetry(fastRetry, retry.WithClock(clocktest.NewAuto(time.Unix(0, 0))))
}

func TestClient_Get(t *testing.T) {
	mockTransport := &httpxtest.MockTransport{
		Response: &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewBufferString("test response")),
		},
	}

	client := newClient(t,
		httpx.WithTransport(mockTransport),
		httpx.WithBaseURL("http://example.com"),
	)

	resp, err := client.Get(context.Background(), "/test")

	require.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Verify request was made
	assert.Equal(t, 1, mockTransport.CallCount)
	lastReq := mockTransport.LastRequest()
	require.NotNil(t, lastReq)
	assert.Equal(t, http.MethodGet, lastReq.Method)
	assert.Equal(t, "http://example.com/test", lastReq.URL.String())
}

func TestClient_Post(t *testing.T) {
	mockTransport := httpxtest.Sequence(http.StatusCreated)

	client := newClient(t,
		httpx.WithTransport(mockTransport),
		httpx.WithBaseURL("http://example.com"),
	)

	body := bytes.NewBufferString(`{"name": "test"}`)
	resp, err := client.Post(context.Background(), "/users", httpx.Headers{"Content-Type": "application/json"}, body)

	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	lastReq := mockTransport.LastRequest()
	assert.Equal(t, http.MethodPost, lastReq.Method)
	assert.Equal(t, "application/json", lastReq.Header.Get("Content-Type"))
	assert.Equal(t, []string{`{"name": "test"}`}, mockTransport.Bodies)
}

func TestClient_Methods(t *testing.T) {
	mockTransport := httpxtest.Sequence(http.StatusOK)
	client := newClient(t, httpx.WithTransport(mockTransport))
	ctx := context.Background()

	_, _ = client.Put(ctx, "/a", nil, nil)
	_, _ = client.Patch(ctx, "/a", nil, nil)
	_, _ = client.Delete(ctx, "/a")

	var methods []string
	for _, r := range mockTransport.Requests {
		methods = append(methods, r.Method)
	}
	assert.Equal(t, []string{http.MethodPut, http.MethodPatch, http.MethodDelete}, methods)
}

func TestClient_InvalidRequest(t *testing.T) {
	client := newClient(t, httpx.WithTransport(httpxtest.Sequence(http.StatusOK)))

	_, err := client.Do(context.Background(), &httpx.Request{Method: "BAD METHOD", Path: "/"})

	var reqErr *httpx.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, httpx.CauseInvalidRequest, reqErr.Cause)
	assert.Nil(t, reqErr.Request)
}

func TestNewClient_InvalidPolicies(t *testing.T) {
	_, err := httpx.NewClient(
		httpx.WithRetry(policy.RetryConfig{InitialDelay: time.Second, MaxDelay: time.Millisecond}),
		httpx.WithRateLimit(policy.RateLimitConfig{}),
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, retry.ErrInvalidConfig)
	assert.ErrorIs(t, err, rate.ErrInvalidRate)
}

func TestClient_RetriesUntilExhausted(t *testing.T) {
	mockTransport := httpxtest.Sequence(http.StatusServiceUnavailable)
	client := newClient(t,
		httpx.WithTransport(mockTransport),
		httpx.WithBaseURL("http://example.com"),
		withFastRetry(),
	)

	resp, err := client.Get(context.Background(), "/flaky")

	assert.Nil(t, resp)
	require.ErrorIs(t, err, httpx.ErrMaxRetriesExceeded)

	var reqErr *httpx.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, httpx.CauseMaxRetries, reqErr.Cause)
	assert.Equal(t, 2, reqErr.Retries)
	assert.Equal(t, http.StatusServiceUnavailable, reqErr.StatusCode())
	assert.Contains(t, reqErr.Error(), "GET http://example.com/flaky failed")
}

func TestClient_RequestOptions(t *testing.T) {
	cases := []struct {
		name     string
		method   string
		opts     []httpx.RequestOption
		expected int
	}{
		{"post not retried", http.MethodPost, nil, 1},
		{"post opted in", http.MethodPost, []httpx.RequestOption{httpx.WithRetryable(true)}, 3},
		{"get opted out", http.MethodGet, []httpx.RequestOption{httpx.WithRetryable(false)}, 1},
		{"without retry", http.MethodGet, []httpx.RequestOption{httpx.WithoutRetry()}, 1},
		{"get retried", http.MethodGet, nil, 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mockTransport := httpxtest.Sequence(http.StatusBadGateway)
			client := newClient(t,
				httpx.WithTransport(mockTransport),
				httpx.WithRetry(policy.RetryConfig{
					InitialDelay:   fastRetry.InitialDelay,
					MaxDelay:       fastRetry.MaxDelay,
					OnlyIdempotent: true,
				}, retry.WithClock(clocktest.NewAuto(time.Unix(0, 0)))),
			)

			_, _ = client.Do(context.Background(), &httpx.Request{
				Method:  tc.method,
				Path:    "/",
				Options: tc.opts,
			})

			assert.Equal(t, tc.expected, mockTransport.Calls())
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	mockTransport := &httpxtest.MockTransport{
		Func: func(ctx context.Context, req *http.Request) (*http.Response, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	client := newClient(t,
		httpx.WithTransport(mockTransport),
		httpx.WithTimeout(policy.TimeoutConfig{Request: time.Hour}),
	)

	_, err := client.Do(context.Background(), &httpx.Request{
		Method:  http.MethodGet,
		Path:    "/slow",
		Options: []httpx.RequestOption{httpx.WithRequestTimeout(10 * time.Millisecond)},
	})

	require.ErrorIs(t, err, httpx.ErrTimeout)
	var reqErr *httpx.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, httpx.CauseTimeout, reqErr.Cause)
}

func TestClient_RateLimited(t *testing.T) {
	r, err := rate.New(1, time.Hour)
	require.NoError(t, err)

	mockTransport := httpxtest.Sequence(http.StatusOK)
	client := newClient(t,
		httpx.WithTransport(mockTransport),
		httpx.WithRateLimit(policy.RateLimitConfig{Rate: r, Reject: true}),
	)
	ctx := context.Background()

	_, err = client.Get(ctx, "/")
	require.NoError(t, err)

	_, err = client.Get(ctx, "/")
	var reqErr *httpx.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, httpx.CauseRateLimited, reqErr.Cause)

	_, err = client.Do(ctx, &httpx.Request{
		Method:  http.MethodGet,
		Path:    "/healthz",
		Options: []httpx.RequestOption{httpx.WithoutRateLimit()},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, mockTransport.Calls())
}

func TestClient_RequestIDStableAcrossRetries(t *testing.T) {
	mockTransport := httpxtest.Sequence(http.StatusServiceUnavailable, http.StatusOK)
	client := newClient(t,
		httpx.WithTransport(mockTransport),
		httpx.WithRequestID(policy.RequestIDConfig{Generator: idgen.Sequence("req")}),
		withFastRetry(),
	)

	_, err := client.Get(context.Background(), "/")
	require.NoError(t, err)

	require.Len(t, mockTransport.Requests, 2)
	for _, r := range mockTransport.Requests {
		assert.Equal(t, "req-1", r.Header.Get(policy.DefaultRequestIDHeader))
	}
}

func TestClient_CustomPolicySeesEveryAttempt(t *testing.T) {
	calls := 0
	custom := policy.Func(func(ctx context.Context, req *http.Request, next policy.Executor) (*http.Response, error) {
		calls++
		req.Header.Set("X-Custom", "yes")
		return next(ctx, req)
	})
	mockTransport := httpxtest.Sequence(http.StatusServiceUnavailable, http.StatusOK)
	client := newClient(t,
		httpx.WithTransport(mockTransport),
		httpx.WithPolicy(custom),
		withFastRetry(),
	)

	_, err := client.Get(context.Background(), "/")

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "yes", mockTransport.LastRequest().Header.Get("X-Custom"))
}

func TestClient_Metrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	mockTransport := httpxtest.Sequence(http.StatusInternalServerError, http.StatusOK)
	client := newClient(t,
		httpx.WithTransport(mockTransport),
		httpx.WithBaseURL("http://example.com"),
		httpx.WithMetrics(observability.NewMetricsCollector(registry)),
		withFastRetry(),
	)

	_, err := client.Get(context.Background(), "/")
	require.NoError(t, err)

	httpxtest.AssertMetricValueWithLabels(t, registry, "http_client_request_duration_seconds",
		map[string]string{"method": "GET", "status_code": "200"}, 1)
	httpxtest.AssertMetricValueWithLabels(t, registry, "http_client_retries_total",
		map[string]string{"reason": "5xx"}, 1)
}

func TestClient_LogsFailures(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	client := newClient(t,
		httpx.WithTransport(&httpxtest.MockTransport{Err: errors.New("refused")}),
		httpx.WithLogger(logger.NewWithCore(core)),
	)

	_, err := client.Get(context.Background(), "/")
	require.Error(t, err)

	entries := logs.FilterMessage("request failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, httpx.CauseNetwork, entries[0].ContextMap()["cause"])
}

func TestClient_Check(t *testing.T) {
	mockTransport := httpxtest.Sequence(http.StatusNoContent, http.StatusNotFound)
	client := newClient(t, httpx.WithTransport(mockTransport))
	ctx := context.Background()

	require.NoError(t, client.Check(ctx, "/healthz"))

	err := client.Check(ctx, "/healthz")
	var reqErr *httpx.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, httpx.CauseStatus, reqErr.Cause)
	assert.Equal(t, http.StatusNotFound, reqErr.StatusCode())
}

func TestClient_WithTestServer(t *testing.T) {
	server := httpxtest.NewTestServerWithOptions(
		httpxtest.WithFailFirst(2, http.StatusBadGateway),
	)
	defer server.Close()

	client := newClient(t,
		httpx.WithBaseURL(server.URL),
		httpx.WithRequestID(policy.RequestIDConfig{}),
		withFastRetry(),
	)

	resp, err := client.Get(context.Background(), "/test")

	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, server.RequestCount())

	headers := server.Headers()
	require.Len(t, headers, 3)
	assert.Equal(t, headers[0].Get(policy.DefaultRequestIDHeader), headers[2].Get(policy.DefaultRequestIDHeader))
}

func TestDefaultTransport_UserAgentAndAttemptLogs(t *testing.T) {
	server := httpxtest.NewTestServerWithOptions(
		httpxtest.WithFailFirst(1, http.StatusServiceUnavailable),
	)
	defer server.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	client := newClient(t,
		httpx.WithBaseURL(server.URL),
		httpx.WithLogger(logger.NewWithCore(core)),
		withFastRetry(),
	)

	_, err := client.Get(context.Background(), "/status")
	require.NoError(t, err)

	for _, h := range server.Headers() {
		assert.Equal(t, httpx.DefaultUserAgent, h.Get("User-Agent"))
	}

	entries := logs.FilterMessage("attempt completed").All()
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].ContextMap()["attempt"])
	assert.Equal(t, int64(http.StatusServiceUnavailable), entries[0].ContextMap()["status"])
	assert.Equal(t, int64(2), entries[1].ContextMap()["attempt"])
	assert.Equal(t, int64(http.StatusOK), entries[1].ContextMap()["status"])
}

func TestDefaultTransport_UserAgentOverrides(t *testing.T) {
	server := httpxtest.NewTestServerWithOptions()
	defer server.Close()

	client := newClient(t,
		httpx.WithBaseURL(server.URL),
		httpx.WithUserAgent("pollctl/test"),
	)
	ctx := context.Background()

	_, err := client.Get(ctx, "/")
	require.NoError(t, err)

	_, err = client.Do(ctx, &httpx.Request{
		Method:  http.MethodGet,
		Path:    "/",
		Headers: httpx.Headers{"User-Agent": "explicit"},
	})
	require.NoError(t, err)

	headers := server.Headers()
	require.Len(t, headers, 2)
	assert.Equal(t, "pollctl/test", headers[0].Get("User-Agent"))
	assert.Equal(t, "explicit", headers[1].Get("User-Agent"))
}

func TestDefaultTransport_LogsNetworkFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	client := newClient(t,
		httpx.WithBaseURL("http://127.0.0.1:1"),
		httpx.WithLogger(logger.NewWithCore(core)),
	)

	_, err := client.Get(context.Background(), "/")
	require.Error(t, err)

	entries := logs.FilterMessage("attempt failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "GET", entries[0].ContextMap()["method"])
}

func TestTransportFunc(t *testing.T) {
	client := newClient(t, httpx.WithTransport(httpx.TransportFunc(
		func(_ context.Context, req *http.Request) (*http.Response, error) {
			return httpxtest.NewResponse(req, http.StatusAccepted, "queued"), nil
		},
	)))

	resp, err := client.Get(context.Background(), "/jobs")

	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}
