package poller

import (
	"github.com/LeonPucin/dash-core/backoff"
	"github.com/LeonPucin/dash-core/clock"
	"github.com/LeonPucin/dash-core/logger"
)

// Option configures a Poller.
type Option interface {
	apply(p *Poller, growth *backoff.Calculator)
}

type optionFunc func(p *Poller, growth *backoff.Calculator)

func (f optionFunc) apply(p *Poller, growth *backoff.Calculator) {
	f(p, growth)
}

// WithCalculator replaces the failure growth strategy built from Factor and
// Jitter. Growth results are still clamped at MaxDelay.
func WithCalculator(c backoff.Calculator) Option {
	return optionFunc(func(_ *Poller, growth *backoff.Calculator) {
		*growth = c
	})
}

// WithClock sets the time source for sleeps and failure timestamps.
func WithClock(c clock.Clock) Option {
	return optionFunc(func(p *Poller, _ *backoff.Calculator) {
		if c != nil {
			p.clock = c
		}
	})
}

// WithLogger sets the logger. The poller logs under the "poller" name.
func WithLogger(l *logger.Logger) Option {
	return optionFunc(func(p *Poller, _ *backoff.Calculator) {
		if l != nil {
			p.log = l.Named("poller")
		}
	})
}

// WithEventSink delivers every cycle Event to s.
func WithEventSink(s EventSink) Option {
	return optionFunc(func(p *Poller, _ *backoff.Calculator) {
		p.sink = s
	})
}

// WithMetrics records cycles on m.
func WithMetrics(m *Metrics) Option {
	return optionFunc(func(p *Poller, _ *backoff.Calculator) {
		p.metrics = m
	})
}

// WithSessionID sets the generator for session ids. Default: idgen.NewULID
func WithSessionID(fn func() string) Option {
	return optionFunc(func(p *Poller, _ *backoff.Calculator) {
		if fn != nil {
			p.sessionID = fn
		}
	})
}
