// Package clocktest provides a controllable clock.Clock for tests.
package clocktest

import (
	"sync"
	"time"

	"github.com/LeonPucin/dash-core/clock"
)

var _ clock.Clock = (*Mock)(nil)

type timer struct {
	c          chan time.Time
	expiration time.Time
}

// Mock is a manually driven clock. Timers created by After fire once Add has
// moved the current time to or past their expiration.
//
// In auto-advance mode every After call moves the clock forward by the
// requested duration and fires immediately, which lets delay loops run
// without waiting while the requested sleeps are still recorded.
type Mock struct {
	mu          sync.Mutex
	now         time.Time
	timers      []*timer
	autoAdvance bool
	sleeps      []time.Duration
	onAfter     func(d time.Duration)
}

// NewMock returns a manual clock starting at start.
func NewMock(start time.Time) *Mock {
	return &Mock{now: start}
}

// NewAuto returns a clock in auto-advance mode.
func NewAuto(start time.Time) *Mock {
	return &Mock{now: start, autoAdvance: true}
}

func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Mock) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()

	m.sleeps = append(m.sleeps, d)
	t := &timer{c: make(chan time.Time, 1), expiration: m.now.Add(d)}

	if m.autoAdvance {
		m.now = t.expiration
		t.c <- m.now
	} else {
		m.timers = append(m.timers, t)
		m.fireLocked()
	}

	hook := m.onAfter
	m.mu.Unlock()

	if hook != nil {
		hook(d)
	}
	return t.c
}

// Add moves the clock forward and fires every timer that became due.
func (m *Mock) Add(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = m.now.Add(d)
	m.fireLocked()
}

// Set moves the clock to an absolute instant.
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = t
	m.fireLocked()
}

// Sleeps returns every duration passed to After, in call order.
func (m *Mock) Sleeps() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]time.Duration, len(m.sleeps))
	copy(out, m.sleeps)
	return out
}

// Pending returns the number of timers that have not fired yet.
func (m *Mock) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// OnAfter registers f to run after every After call, outside the lock.
func (m *Mock) OnAfter(f func(d time.Duration)) {
	m.mu.Lock()
	m.onAfter = f
	m.mu.Unlock()
}

func (m *Mock) fireLocked() {
	remaining := m.timers[:0]
	for _, t := range m.timers {
		if !m.now.Before(t.expiration) {
			t.c <- m.now
			continue
		}
		remaining = append(remaining, t)
	}
	m.timers = remaining
}
