// Package clock abstracts the time source used by the retry and polling loops
// so that tests can drive them without real sleeps.
package clock

import (
	"context"
	"time"
)

// Clock is the time source consumed by delay loops.
type Clock interface {
	Now() time.Time

	// After returns a channel that receives once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

// Real returns the wall clock.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.NewTimer(d).C
}

// Sleep blocks for d on c, returning early with the context error if ctx is
// done first. Non-positive durations return immediately.
func Sleep(ctx context.Context, c Clock, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	if c == nil {
		c = Real()
	}

	select {
	case <-c.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
