package retry

import (
	"github.com/LeonPucin/dash-core/backoff"
	"github.com/LeonPucin/dash-core/clock"
	"github.com/LeonPucin/dash-core/logger"
)

// Option configures an Executor.
type Option interface {
	apply(*Executor)
}

type optionFunc func(*Executor)

func (f optionFunc) apply(e *Executor) {
	f(e)
}

// WithCalculator replaces the exponential strategy built from Factor and Jitter.
func WithCalculator(c backoff.Calculator) Option {
	return optionFunc(func(e *Executor) {
		e.calc = c
	})
}

// WithClock sets the time source used for sleeps.
func WithClock(c clock.Clock) Option {
	return optionFunc(func(e *Executor) {
		if c != nil {
			e.clock = c
		}
	})
}

// WithLogger sets the logger. The executor logs under the "retry" name.
func WithLogger(l *logger.Logger) Option {
	return optionFunc(func(e *Executor) {
		if l != nil {
			e.log = l.Named("retry")
		}
	})
}

// WithErrorReporter sets where exhaustion is reported when
// Config.ReportExhaustion is true. The default logs at error level.
func WithErrorReporter(r ErrorReporter) Option {
	return optionFunc(func(e *Executor) {
		e.reporter = r
	})
}

// WithOnRetry registers a hook called after every failed attempt.
func WithOnRetry(h RetryHook) Option {
	return optionFunc(func(e *Executor) {
		e.onRetry = h
	})
}
