package policy

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	xrate "golang.org/x/time/rate"

	"github.com/LeonPucin/dash-core/httpx/observability"
	"github.com/LeonPucin/dash-core/rate"
)

// RateLimitConfig configures client-side request pacing.
type RateLimitConfig struct {
	// Rate is the sustained number of requests per period.
	Rate rate.Rate

	// Burst is the number of requests allowed at once. Default: 1
	Burst int

	// PerHost keeps a separate limiter for every target host.
	PerHost bool

	// Reject fails with ErrRateLimited instead of waiting for a token.
	Reject bool
}

// RateLimitPolicy paces requests with a token bucket. Placed inside the
// retry policy it paces every attempt, not just the first.
type RateLimitPolicy struct {
	config  RateLimitConfig
	metrics *observability.MetricsCollector

	mu      sync.Mutex
	global  *xrate.Limiter
	perHost map[string]*xrate.Limiter
}

// NewRateLimitPolicy creates a rate limit policy. The rate must be valid
// (see rate.New).
func NewRateLimitPolicy(config RateLimitConfig) (*RateLimitPolicy, error) {
	if config.Rate.Count() <= 0 || config.Rate.Per() <= 0 {
		return nil, fmt.Errorf("rate limit policy: %w", rate.ErrInvalidRate)
	}
	if config.Burst < 1 {
		config.Burst = 1
	}

	p := &RateLimitPolicy{
		config:  config,
		perHost: make(map[string]*xrate.Limiter),
	}
	if !config.PerHost {
		p.global = config.Rate.NewLimiter(config.Burst)
	}
	return p, nil
}

// WithMetrics counts rejected requests on collector.
func (p *RateLimitPolicy) WithMetrics(collector *observability.MetricsCollector) *RateLimitPolicy {
	p.metrics = collector
	return p
}

// Execute implements the Policy interface.
func (p *RateLimitPolicy) Execute(ctx context.Context, req *http.Request, next Executor) (*http.Response, error) {
	if state := StateFrom(ctx); state != nil && state.DisableRateLimit {
		return next(ctx, req)
	}

	host := observability.NormalizeHost(req.URL.Host)
	limiter := p.limiter(host)

	if p.config.Reject {
		if !limiter.Allow() {
			if p.metrics != nil {
				p.metrics.IncrementRateLimited(host)
			}
			return nil, fmt.Errorf("%w for %s", ErrRateLimited, host)
		}
		return next(ctx, req)
	}

	if err := limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return next(ctx, req)
}

func (p *RateLimitPolicy) limiter(host string) *xrate.Limiter {
	if p.global != nil {
		return p.global
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.perHost[host]
	if !ok {
		l = p.config.Rate.NewLimiter(p.config.Burst)
		p.perHost[host] = l
	}
	return l
}
