package poller

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultInitialDelay = time.Second
	DefaultMaxDelay     = 60 * time.Second
	DefaultFactor       = 1.5
	DefaultResetPeriod  = 5 * time.Minute
	DefaultLinearStep   = time.Second
	DefaultName         = "poller"

	// NoQuietPeriod makes every success eligible for decay, regardless of
	// how recently the operation failed.
	NoQuietPeriod time.Duration = -1
)

// ErrInvalidConfig is returned by New when Config has invalid values.
var ErrInvalidConfig = errors.New("invalid poller config")

// Config configures a Poller. Zero fields take the defaults above.
type Config struct {
	// Name identifies the poller in logs, events and metrics. Default: poller
	Name string `mapstructure:"name"`

	// InitialDelay is the starting delay and the floor of success decay.
	// Default: 1s
	InitialDelay time.Duration `mapstructure:"initial_delay"`

	// MaxDelay caps failure growth. Reaching it is reported through OnFail.
	// Default: 60s
	MaxDelay time.Duration `mapstructure:"max_delay"`

	// Factor multiplies the delay after every failure. Default: 1.5
	Factor float64 `mapstructure:"factor"`

	// Jitter adds a random [0, Jitter) to every grown delay.
	Jitter time.Duration `mapstructure:"jitter"`

	// ResetPeriod is the failure-free interval that must be exceeded before
	// successes start shrinking the delay. Zero takes the default; use
	// NoQuietPeriod to decay on every success. Default: 5m
	ResetPeriod time.Duration `mapstructure:"reset_period"`

	// LinearStep is subtracted from the delay on every eligible success.
	// Default: 1s
	LinearStep time.Duration `mapstructure:"linear_step"`
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = DefaultInitialDelay
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.Factor == 0 {
		c.Factor = DefaultFactor
	}
	if c.ResetPeriod == 0 {
		c.ResetPeriod = DefaultResetPeriod
	}
	if c.LinearStep == 0 {
		c.LinearStep = DefaultLinearStep
	}
	return c
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.InitialDelay <= 0:
		return fmt.Errorf("%w: initial delay %s must be positive", ErrInvalidConfig, c.InitialDelay)
	case c.InitialDelay > c.MaxDelay:
		return fmt.Errorf("%w: initial delay %s exceeds max delay %s", ErrInvalidConfig, c.InitialDelay, c.MaxDelay)
	case c.Factor < 0:
		return fmt.Errorf("%w: factor %g is negative", ErrInvalidConfig, c.Factor)
	case c.Jitter < 0:
		return fmt.Errorf("%w: jitter %s is negative", ErrInvalidConfig, c.Jitter)
	case c.LinearStep < 0:
		return fmt.Errorf("%w: linear step %s is negative", ErrInvalidConfig, c.LinearStep)
	case c.ResetPeriod < 0 && c.ResetPeriod != NoQuietPeriod:
		return fmt.Errorf("%w: reset period %s is negative", ErrInvalidConfig, c.ResetPeriod)
	}
	return nil
}
