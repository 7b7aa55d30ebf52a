package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/LeonPucin/dash-core/eventbus"
	"github.com/LeonPucin/dash-core/ginsrv"
	"github.com/LeonPucin/dash-core/httpx"
	"github.com/LeonPucin/dash-core/httpx/observability"
	"github.com/LeonPucin/dash-core/httpx/policy"
	"github.com/LeonPucin/dash-core/logger"
	"github.com/LeonPucin/dash-core/poller"
	"github.com/LeonPucin/dash-core/rate"
)

const (
	stopTimeout = 10 * time.Second
	userAgent   = "pollctl"
)

var errNotRunning = errors.New("poller is not running")

// app wires one watch session: client, poller, event bus and metrics server.
type app struct {
	cfg      Config
	log      *logger.Logger
	registry *prometheus.Registry
	client   *httpx.Client
	bus      eventbus.Bus
	poller   *poller.Poller
}

func newApp(cfg Config, log *logger.Logger, opts ...poller.Option) (*app, error) {
	a := &app{
		cfg:      cfg,
		log:      log,
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	client, err := a.newClient()
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}
	a.client = client

	bus, err := a.newBus()
	if err != nil {
		return nil, fmt.Errorf("event bus: %w", err)
	}
	a.bus = bus

	if err := bus.Subscribe(cfg.Events.Topic, eventbus.ReceiverFunc(a.logEvent)); err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("event bus: %w", err)
	}

	opts = append([]poller.Option{
		poller.WithLogger(log),
		poller.WithMetrics(poller.NewMetrics(a.registry)),
		poller.WithEventSink(poller.BusSink(bus, cfg.Events.Topic, log)),
	}, opts...)
	p, err := poller.New(cfg.Poller, opts...)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	a.poller = p

	return a, nil
}

func (a *app) newClient() (*httpx.Client, error) {
	opts := []httpx.ClientOption{
		httpx.WithBaseURL(a.cfg.Target.URL),
		httpx.WithLogger(a.log),
		httpx.WithUserAgent(userAgent),
		httpx.WithTracing(nil),
		httpx.WithMetrics(observability.NewMetricsCollector(a.registry)),
		httpx.WithRequestID(policy.RequestIDConfig{}),
		httpx.WithTimeout(policy.TimeoutConfig{Request: a.cfg.Target.Timeout}),
		httpx.WithRetry(a.cfg.Retry),
	}

	if n := a.cfg.Target.RequestsPerMinute; n > 0 {
		r, err := rate.New(n, time.Minute)
		if err != nil {
			return nil, err
		}
		opts = append(opts, httpx.WithRateLimit(policy.RateLimitConfig{Rate: r}))
	}

	return httpx.NewClient(opts...)
}

func (a *app) newBus() (eventbus.Bus, error) {
	if url := a.cfg.Events.NatsURL; url != "" {
		bus, err := eventbus.NewNatsBus[poller.Record](url, a.log)
		if err != nil {
			return nil, err
		}
		return bus, nil
	}
	return eventbus.NewInMemBus(eventbus.WithLogger(a.log)), nil
}

func (a *app) logEvent(_ context.Context, msg any) {
	rec, ok := msg.(poller.Record)
	if !ok {
		return
	}

	fields := []logger.Field{
		logger.String("session", rec.Session),
		logger.Int64("cycle", int64(rec.Cycle)),
		logger.String("kind", rec.Kind),
		logger.Int64("delay_ms", rec.DelayMs),
	}
	if rec.Error != "" {
		fields = append(fields, logger.String("error", rec.Error))
	}
	a.log.Info("poll cycle", fields...)
}

func (a *app) check(ctx context.Context) error {
	return a.client.Check(ctx, a.cfg.Target.Path)
}

func (a *app) health(context.Context) error {
	if !a.poller.Running() {
		return errNotRunning
	}
	return nil
}

func (a *app) router() *gin.Engine {
	return ginsrv.SetupRouter(
		[]ginsrv.Route{
			ginsrv.MetricsRoute(a.registry),
			ginsrv.HealthRoute(a.health),
		},
		ginsrv.ErrorFormatterMiddleware(),
		ginsrv.RequestIDMiddleware(),
		ginsrv.LoggerMiddleware(a.log.Named("http")),
	)
}

// run polls until ctx is done or the configured watch period ends, then
// stops the poller and closes the bus.
func (a *app) run(ctx context.Context) error {
	if d := a.cfg.Watch.For.Std(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	// serverDone stays nil, and never ready, without a metrics server.
	var serverDone chan error
	if addr := a.cfg.Metrics.Addr; addr != "" {
		serverDone = make(chan error, 1)
		gin.SetMode(gin.ReleaseMode)
		go func() {
			serverDone <- ginsrv.ListenAndServe(ctx, addr, a.router(), a.log.Named("http"))
		}()
	}

	a.poller.Start(ctx, a.check, poller.Handlers{
		OnError: func(err error) {
			a.log.Warning("target unhealthy, backing off", logger.Err(err))
		},
		OnFail: func(err error) {
			_ = a.log.Error("target still failing at max delay", logger.Err(err))
		},
	})

	var errs []error
	select {
	case <-ctx.Done():
	case err := <-serverDone:
		// The server exits early only when it cannot listen.
		if err != nil {
			errs = append(errs, err)
		}
		serverDone = nil
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
	defer cancel()

	if err := a.poller.Stop(stopCtx); err != nil {
		errs = append(errs, fmt.Errorf("stop poller: %w", err))
	}
	if err := a.bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close event bus: %w", err))
	}
	if serverDone != nil {
		if err := <-serverDone; err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
