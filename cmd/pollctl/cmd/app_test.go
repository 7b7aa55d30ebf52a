package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/LeonPucin/dash-core/duration"
	"github.com/LeonPucin/dash-core/eventbus"
	"github.com/LeonPucin/dash-core/httpx/httpxtest"
	"github.com/LeonPucin/dash-core/httpx/policy"
	"github.com/LeonPucin/dash-core/idgen"
	"github.com/LeonPucin/dash-core/logger"
	"github.com/LeonPucin/dash-core/poller"
)

func testConfig(url string) Config {
	return Config{
		Target: TargetConfig{URL: url, Path: "/healthz", Timeout: time.Second},
		Poller: poller.Config{
			Name:         "api",
			InitialDelay: 5 * time.Millisecond,
			MaxDelay:     20 * time.Millisecond,
			ResetPeriod:  poller.NoQuietPeriod,
			LinearStep:   time.Millisecond,
		},
		// A single attempt per cycle.
		Retry:  policy.RetryConfig{InitialDelay: time.Millisecond, MaxDelay: time.Millisecond},
		Events: EventsConfig{Topic: "test.events"},
		Watch:  WatchConfig{For: duration.Must(150 * time.Millisecond)},
	}
}

type recordLog struct {
	mu      sync.Mutex
	records []poller.Record
}

func (r *recordLog) receive(_ context.Context, msg any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, msg.(poller.Record))
}

func (r *recordLog) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for _, rec := range r.records {
		out = append(out, rec.Kind)
	}
	return out
}

func TestApp_RunRecoversFromFailure(t *testing.T) {
	server := httpxtest.NewTestServerWithOptions(httpxtest.WithFailFirst(1, http.StatusServiceUnavailable))
	defer server.Close()

	core, logs := observer.New(zapcore.InfoLevel)
	a, err := newApp(testConfig(server.URL), logger.NewWithCore(core), poller.WithSessionID(idgen.Sequence("s")))
	require.NoError(t, err)

	events := &recordLog{}
	require.NoError(t, a.bus.Subscribe("test.events", eventbus.ReceiverFunc(events.receive)))

	require.NoError(t, a.run(context.Background()))

	kinds := events.kinds()
	require.GreaterOrEqual(t, len(kinds), 2)
	assert.Equal(t, poller.BackingOff.String(), kinds[0])
	assert.Equal(t, poller.Succeeded.String(), kinds[1])
	assert.False(t, a.poller.Running())
	assert.GreaterOrEqual(t, server.RequestCount(), 2)

	assert.Equal(t, 1, logs.FilterMessage("target unhealthy, backing off").Len())
	assert.NotZero(t, logs.FilterMessage("poll cycle").Len())
	for _, h := range server.Headers() {
		assert.NotEmpty(t, h.Get(policy.DefaultRequestIDHeader))
		assert.Equal(t, userAgent, h.Get("User-Agent"))
	}

	value, err := httpxtest.GetMetricValue(a.registry, "poller_cycles_total",
		map[string]string{"poller": "api", "outcome": "succeeded"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, value, 1.0)
	httpxtest.AssertMetricExists(t, a.registry, "http_client_request_duration_seconds")
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	server := httpxtest.NewTestServerWithOptions()
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Watch = WatchConfig{}
	a, err := newApp(cfg, logger.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.run(ctx) }()

	require.Eventually(t, func() bool { return server.RequestCount() > 0 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestApp_Router(t *testing.T) {
	a, err := newApp(testConfig("http://127.0.0.1:1"), logger.Nop())
	require.NoError(t, err)
	defer a.bus.Close()

	router := a.router()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), errNotRunning.Error())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodGet, "/metrics", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestNewApp_InvalidPoller(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Poller.MaxDelay = time.Millisecond

	_, err := newApp(cfg, logger.Nop())

	assert.ErrorIs(t, err, poller.ErrInvalidConfig)
}
