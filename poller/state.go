package poller

import (
	"time"

	"github.com/LeonPucin/dash-core/backoff"
)

// state is owned by one poll session and advanced once per cycle.
type state struct {
	delay       time.Duration
	lastFailure time.Time
	failed      bool
}

// transition computes the state after one cycle. It is pure apart from the
// randomness the growth calculator may add.
type transition struct {
	cfg    Config
	growth backoff.Calculator
	decay  backoff.Calculator
}

func newTransition(cfg Config, growth backoff.Calculator) transition {
	return transition{
		cfg:    cfg,
		growth: growth,
		decay:  backoff.NewLinearDecay(cfg.LinearStep, cfg.InitialDelay),
	}
}

func (t transition) initial() state {
	return state{delay: t.cfg.InitialDelay}
}

func (t transition) advance(st state, now time.Time, err error) (state, Kind) {
	if err == nil {
		if !st.failed || now.Sub(st.lastFailure) > t.cfg.ResetPeriod {
			st.delay = t.decay.Next(st.delay)
		}
		return st, Succeeded
	}

	st.failed = true
	st.lastFailure = now
	st.delay = t.growth.Next(st.delay)

	if st.delay >= t.cfg.MaxDelay {
		st.delay = t.cfg.MaxDelay
		return st, Saturated
	}
	return st, BackingOff
}
