// Package rate expresses "N events per period" and converts it into the
// delays and token-bucket limiters used by callers that need pacing.
package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LeonPucin/dash-core/clock"
	"golang.org/x/time/rate"
)

// ErrInvalidRate is returned for non-positive counts or periods.
var ErrInvalidRate = errors.New("rate: count and period must be positive")

// Rate is Count events per Per.
type Rate struct {
	count int
	per   time.Duration
}

// New validates and builds a Rate.
func New(count int, per time.Duration) (Rate, error) {
	if count <= 0 || per <= 0 {
		return Rate{}, fmt.Errorf("%w: %d per %s", ErrInvalidRate, count, per)
	}
	return Rate{count: count, per: per}, nil
}

// PerSecond is shorthand for New(n, time.Second).
func PerSecond(n int) (Rate, error) {
	return New(n, time.Second)
}

func (r Rate) Count() int {
	return r.count
}

func (r Rate) Per() time.Duration {
	return r.per
}

// Interval is the spacing between two consecutive events.
func (r Rate) Interval() time.Duration {
	if r.count == 0 {
		return 0
	}
	return r.per / time.Duration(r.count)
}

// Limit converts the rate for golang.org/x/time/rate.
func (r Rate) Limit() rate.Limit {
	if r.count == 0 {
		return 0
	}
	return rate.Every(r.Interval())
}

// NewLimiter builds a token bucket limiter for the rate. A burst below one
// is raised to one.
func (r Rate) NewLimiter(burst int) *rate.Limiter {
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(r.Limit(), burst)
}

// Delay returns how long to wait before event number n (zero-based) so that
// events are spread evenly across the period.
func (r Rate) Delay(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * r.Interval()
}

// Pacer spaces calls evenly at the configured rate.
type Pacer struct {
	rate  Rate
	clock clock.Clock
	next  time.Time
}

// NewPacer creates a pacer. A nil clock uses the wall clock.
func NewPacer(r Rate, c clock.Clock) *Pacer {
	if c == nil {
		c = clock.Real()
	}
	return &Pacer{rate: r, clock: c}
}

// Wait blocks until the next slot is due. Pacer is not safe for concurrent
// use; share a Limiter for that.
func (p *Pacer) Wait(ctx context.Context) error {
	now := p.clock.Now()
	if p.next.IsZero() || !now.Before(p.next) {
		p.next = now.Add(p.rate.Interval())
		return ctx.Err()
	}

	wait := p.next.Sub(now)
	if err := clock.Sleep(ctx, p.clock, wait); err != nil {
		return err
	}
	p.next = p.next.Add(p.rate.Interval())
	return nil
}
