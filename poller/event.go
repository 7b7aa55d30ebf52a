package poller

import (
	"context"
	"time"
)

// Kind classifies the outcome of one poll cycle.
type Kind int

const (
	// Succeeded means the operation returned nil.
	Succeeded Kind = iota + 1

	// BackingOff means the operation failed and the delay grew but stayed
	// below MaxDelay. Reported through Handlers.OnError.
	BackingOff

	// Saturated means the operation failed and the delay reached MaxDelay.
	// Reported through Handlers.OnFail.
	Saturated
)

func (k Kind) String() string {
	switch k {
	case Succeeded:
		return "succeeded"
	case BackingOff:
		return "backing_off"
	case Saturated:
		return "saturated"
	default:
		return "unknown"
	}
}

// Event describes a completed cycle. Delay is the sleep that follows it.
type Event struct {
	Poller  string        `json:"poller"`
	Session string        `json:"session"`
	Cycle   uint64        `json:"cycle"`
	Kind    Kind          `json:"kind"`
	Delay   time.Duration `json:"delay"`
	Err     error         `json:"-"`
	At      time.Time     `json:"at"`
}

// EventSink receives one Event per cycle, synchronously on the poll loop.
// Slow sinks delay the next cycle.
type EventSink interface {
	Emit(ctx context.Context, ev Event)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(ctx context.Context, ev Event)

func (f SinkFunc) Emit(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// Handlers receive failures. At most one of them runs per cycle.
type Handlers struct {
	// OnError is called for a failure that left the delay below MaxDelay.
	OnError func(err error)

	// OnFail is called for a failure that pushed the delay to MaxDelay.
	OnFail func(err error)
}
