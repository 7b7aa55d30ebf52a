// Package backoff computes retry delays.
//
// A Calculator maps the delay used for the previous attempt to the delay for
// the next one. The retry executor and the adaptive poller both take a
// Calculator, so the growth rule lives in exactly one place.
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

const maxDuration = time.Duration(math.MaxInt64)

// Calculator defines a strategy for deriving the next delay from the current one.
type Calculator interface {
	// Next returns the delay that follows current. Implementations do not
	// clamp to any maximum; callers compare against their own ceiling.
	Next(current time.Duration) time.Duration
}

// CalculatorFunc adapts a plain function to Calculator.
type CalculatorFunc func(current time.Duration) time.Duration

func (f CalculatorFunc) Next(current time.Duration) time.Duration {
	return f(current)
}

// Next computes current*factor plus a uniform random jitter in [0, jitter).
// A non-positive jitter adds nothing. The result saturates at the largest
// representable duration and is never negative.
func Next(current time.Duration, factor float64, jitter time.Duration) time.Duration {
	if current < 0 {
		current = 0
	}
	if factor < 0 {
		factor = 0
	}

	grown := float64(current) * factor
	if grown >= float64(maxDuration) {
		return maxDuration
	}
	delay := time.Duration(grown)

	if jitter > 0 {
		j := rand.N(jitter)
		if delay > maxDuration-j {
			return maxDuration
		}
		delay += j
	}

	return delay
}
