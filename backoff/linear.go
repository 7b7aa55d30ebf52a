package backoff

import "time"

// Linear grows the delay by a fixed Step: current + Step.
// Example with Step=100ms starting at 100ms: 200ms, 300ms, 400ms.
type Linear struct {
	Step time.Duration
}

var _ Calculator = (*Linear)(nil)

func (l *Linear) Next(current time.Duration) time.Duration {
	if current > maxDuration-l.Step {
		return maxDuration
	}
	return current + l.Step
}

// NewLinear creates a linear growth strategy.
func NewLinear(step time.Duration) *Linear {
	return &Linear{
		Step: step,
	}
}

// LinearDecay shrinks the delay by Step, never going below Floor:
// max(Floor, current - Step).
type LinearDecay struct {
	Step  time.Duration
	Floor time.Duration
}

var _ Calculator = (*LinearDecay)(nil)

func (l *LinearDecay) Next(current time.Duration) time.Duration {
	next := current - l.Step
	if next < l.Floor {
		return l.Floor
	}
	return next
}

// NewLinearDecay creates a decay strategy floored at floor.
func NewLinearDecay(step, floor time.Duration) *LinearDecay {
	return &LinearDecay{
		Step:  step,
		Floor: floor,
	}
}
