package poller

import (
	"context"
	"time"

	"github.com/LeonPucin/dash-core/eventbus"
	"github.com/LeonPucin/dash-core/internal/recovery"
	"github.com/LeonPucin/dash-core/logger"
)

// Record is the serializable form of an Event.
type Record struct {
	Poller  string    `json:"poller"`
	Session string    `json:"session"`
	Cycle   uint64    `json:"cycle"`
	Kind    string    `json:"kind"`
	DelayMs int64     `json:"delay_ms"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

func (ev Event) Record() Record {
	r := Record{
		Poller:  ev.Poller,
		Session: ev.Session,
		Cycle:   ev.Cycle,
		Kind:    ev.Kind.String(),
		DelayMs: ev.Delay.Milliseconds(),
		At:      ev.At,
	}
	if err := recovery.Normalize(ev.Err); err != nil {
		r.Error = err.Error()
	}
	return r
}

// BusSink publishes the Record of every event to topic. Publish failures are
// logged and never stop the poller.
func BusSink(bus eventbus.Publisher, topic string, log *logger.Logger) EventSink {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("poller")

	return SinkFunc(func(ctx context.Context, ev Event) {
		if err := bus.Publish(ctx, topic, ev.Record()); err != nil {
			log.Warning("failed to publish poll event",
				logger.String("topic", topic),
				logger.Err(err),
			)
		}
	})
}

// MultiSink fans events out to every non-nil sink in order.
func MultiSink(sinks ...EventSink) EventSink {
	return SinkFunc(func(ctx context.Context, ev Event) {
		for _, s := range sinks {
			if s != nil {
				s.Emit(ctx, ev)
			}
		}
	})
}
