// Package retry runs an operation with capped exponential backoff.
//
// The executor attempts the operation, sleeps for the current delay after
// every failure and grows the delay through a backoff.Calculator. It stops
// with an *ExhaustedError once the grown delay exceeds MaxDelay. The check
// happens before each attempt, so the first attempt always runs.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LeonPucin/dash-core/backoff"
	"github.com/LeonPucin/dash-core/clock"
	"github.com/LeonPucin/dash-core/internal/recovery"
	"github.com/LeonPucin/dash-core/logger"
)

const (
	DefaultInitialDelay = time.Second
	DefaultMaxDelay     = 60 * time.Second
	DefaultFactor       = 1.5
)

// Config configures the executor.
type Config struct {
	// InitialDelay is the sleep after the first failure. Default: 1s
	InitialDelay time.Duration `mapstructure:"initial_delay"`

	// MaxDelay bounds the delay; once the next delay exceeds it the executor
	// gives up. Default: 60s
	MaxDelay time.Duration `mapstructure:"max_delay"`

	// Factor multiplies the delay after every failure. Default: 1.5
	Factor float64 `mapstructure:"factor"`

	// Jitter adds a random [0, Jitter) to every grown delay. Zero disables it.
	Jitter time.Duration `mapstructure:"jitter"`

	// ReportExhaustion additionally hands the exhaustion error to the
	// configured ErrorReporter, besides returning it.
	ReportExhaustion bool `mapstructure:"report_exhaustion"`
}

// Operation is a unit of work retried by the executor.
type Operation func(ctx context.Context) error

// RetryHook observes every failed attempt before the executor sleeps.
type RetryHook func(attempt int, delay time.Duration, err error)

// Executor retries operations according to its Config. It holds no per-call
// state and is safe for concurrent use; each Run owns its own delay.
type Executor struct {
	cfg      Config
	calc     backoff.Calculator
	clock    clock.Clock
	log      *logger.Logger
	reporter ErrorReporter
	onRetry  RetryHook
}

// New validates cfg, fills defaults and builds an executor.
func New(cfg Config, opts ...Option) (*Executor, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Executor{
		cfg:   cfg,
		clock: clock.Real(),
		log:   logger.Nop(),
	}
	for _, opt := range opts {
		opt.apply(e)
	}

	if e.calc == nil {
		e.calc = backoff.NewExponential(cfg.Factor, cfg.Jitter)
	}
	if e.reporter == nil {
		e.reporter = &logReporter{log: e.log}
	}

	return e, nil
}

func (c Config) withDefaults() Config {
	if c.InitialDelay == 0 {
		c.InitialDelay = DefaultInitialDelay
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.Factor == 0 {
		c.Factor = DefaultFactor
	}
	return c
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.InitialDelay < 0:
		return fmt.Errorf("%w: initial delay %s is negative", ErrInvalidConfig, c.InitialDelay)
	case c.MaxDelay < 0:
		return fmt.Errorf("%w: max delay %s is negative", ErrInvalidConfig, c.MaxDelay)
	case c.InitialDelay > c.MaxDelay:
		return fmt.Errorf("%w: initial delay %s exceeds max delay %s", ErrInvalidConfig, c.InitialDelay, c.MaxDelay)
	case c.Factor < 0:
		return fmt.Errorf("%w: factor %g is negative", ErrInvalidConfig, c.Factor)
	case c.Jitter < 0:
		return fmt.Errorf("%w: jitter %s is negative", ErrInvalidConfig, c.Jitter)
	}
	return nil
}

// Config returns the effective configuration.
func (e *Executor) Config() Config {
	return e.cfg
}

// Run executes op until it succeeds, the delay exceeds MaxDelay, or ctx is
// done. Only one attempt is in flight at a time. An error wrapped with
// Permanent ends the run at once.
func (e *Executor) Run(ctx context.Context, op Operation) error {
	var (
		current = e.cfg.InitialDelay
		lastErr error
		attempt int
	)

	for current <= e.cfg.MaxDelay {
		if err := ctx.Err(); err != nil {
			return errors.Join(err, lastErr)
		}

		attempt++
		err := recovery.Call(ctx, op)
		if err == nil {
			if attempt > 1 {
				e.log.Debug("operation succeeded after retries", logger.Int("attempts", attempt))
			}
			return nil
		}
		var perm *PermanentError
		if errors.As(err, &perm) {
			return perm.Err
		}
		lastErr = err

		if e.onRetry != nil {
			e.onRetry(attempt, current, err)
		}
		e.log.Debug("attempt failed, backing off",
			logger.Int("attempt", attempt),
			logger.Duration("delay", current),
			logger.Err(err),
		)

		if err := clock.Sleep(ctx, e.clock, current); err != nil {
			return errors.Join(err, lastErr)
		}
		current = e.calc.Next(current)
	}

	exhausted := &ExhaustedError{
		Attempts:  attempt,
		LastDelay: current,
		Err:       lastErr,
	}
	if e.cfg.ReportExhaustion {
		e.reporter.CaptureException(ctx, exhausted, map[string]string{
			"component": "retry",
			"attempts":  fmt.Sprint(attempt),
		})
	}
	return exhausted
}

// Do runs op through e and returns the value of the successful attempt.
func Do[T any](ctx context.Context, e *Executor, op func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := e.Run(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// Retry builds a one-off executor from cfg and runs op through it.
func Retry[T any](ctx context.Context, cfg Config, op func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	e, err := New(cfg, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return Do(ctx, e, op)
}
