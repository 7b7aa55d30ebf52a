package backoff

import "time"

// DefaultFactor is used when Exponential.Factor is left at zero.
const DefaultFactor = 2.0

// Exponential multiplies the delay by Factor on every step and adds an
// optional random Jitter in [0, Jitter) to spread out synchronized retries.
type Exponential struct {
	// Factor is the multiplier for each step. Values below 1 shrink the
	// delay, which is accepted but means a ceiling is never reached.
	// Default: 2.0 if not set
	Factor float64

	// Jitter bounds the random addition. Zero disables jitter.
	Jitter time.Duration
}

var _ Calculator = (*Exponential)(nil)

// Next returns current*Factor + U[0, Jitter).
func (e *Exponential) Next(current time.Duration) time.Duration {
	factor := e.Factor
	if factor == 0 {
		factor = DefaultFactor
	}
	return Next(current, factor, e.Jitter)
}

// NewExponential creates an exponential strategy.
func NewExponential(factor float64, jitter time.Duration) *Exponential {
	return &Exponential{
		Factor: factor,
		Jitter: jitter,
	}
}
