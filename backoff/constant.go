package backoff

import "time"

// Constant ignores the current delay and always yields Interval.
type Constant struct {
	Interval time.Duration
}

var _ Calculator = (*Constant)(nil)

func (c *Constant) Next(_ time.Duration) time.Duration {
	return c.Interval
}

// NewConstant creates a constant strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{
		Interval: interval,
	}
}
