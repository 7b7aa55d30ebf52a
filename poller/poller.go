// Package poller repeats an operation forever while tuning its own interval.
//
// After a failure the delay grows multiplicatively up to MaxDelay. After a
// quiet period without failures every success shrinks it by LinearStep until
// it is back at InitialDelay. Failures are reported through Handlers and,
// for every cycle, an Event is emitted to the configured EventSink.
//
// Only one session runs per Poller at a time. Stop waits for the loop to
// exit; an operation already in flight is allowed to finish. Handlers and
// sinks may call Stop themselves.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/LeonPucin/dash-core/backoff"
	"github.com/LeonPucin/dash-core/clock"
	"github.com/LeonPucin/dash-core/idgen"
	"github.com/LeonPucin/dash-core/internal/recovery"
	"github.com/LeonPucin/dash-core/logger"
)

// Operation is the polled unit of work.
type Operation func(ctx context.Context) error

type Poller struct {
	cfg       Config
	trans     transition
	clock     clock.Clock
	log       *logger.Logger
	sink      EventSink
	metrics   *Metrics
	sessionID func() string

	mu          sync.Mutex
	running     bool
	dispatching bool
	session     string
	st          state
	stop        chan struct{}
	done        chan struct{}
}

// New validates cfg, fills defaults and builds an idle poller.
func New(cfg Config, opts ...Option) (*Poller, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Poller{
		cfg:       cfg,
		clock:     clock.Real(),
		log:       logger.Nop(),
		sessionID: idgen.NewULID,
	}

	var growth backoff.Calculator
	for _, opt := range opts {
		opt.apply(p, &growth)
	}
	if growth == nil {
		growth = backoff.NewExponential(cfg.Factor, cfg.Jitter)
	}

	p.log = p.log.With(logger.String("poller", cfg.Name))
	p.trans = newTransition(cfg, growth)
	p.st = p.trans.initial()

	return p, nil
}

// Config returns the effective configuration.
func (p *Poller) Config() Config {
	return p.cfg
}

// Start launches a poll session running op until Stop is called or ctx is
// done. If a session is already running, Start logs a warning and returns
// false without touching it.
func (p *Poller) Start(ctx context.Context, op Operation, h Handlers) bool {
	p.mu.Lock()
	if p.running {
		session := p.session
		p.mu.Unlock()

		p.log.Warning("poller already running, ignoring start", logger.String("session", session))
		return false
	}

	p.running = true
	p.session = p.sessionID()
	p.st = p.trans.initial()
	p.stop = make(chan struct{})
	p.done = make(chan struct{})

	p.metrics.setRunning(p.cfg.Name, true)

	session, stop, done := p.session, p.stop, p.done
	p.mu.Unlock()

	p.log.Info("poller started",
		logger.String("session", session),
		logger.Duration("initial_delay", p.cfg.InitialDelay),
		logger.Duration("max_delay", p.cfg.MaxDelay),
	)

	go p.loop(ctx, op, h, session, stop, done)
	return true
}

// Stop signals the running session to exit and waits until its loop has
// returned, or until ctx is done. A pending sleep is cut short; an operation
// in flight is not. Stop on an idle poller returns nil.
//
// While the loop is delivering a cycle to Handlers or the EventSink, Stop
// only signals and returns nil: the loop exits as soon as delivery ends.
// This is what lets a handler stop its own poller.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stop, done := p.stop, p.done
	select {
	case <-stop:
	default:
		close(stop)
	}
	dispatching := p.dispatching
	p.mu.Unlock()

	if dispatching {
		return nil
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether a session loop is active. It stays true until the
// loop has fully exited.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Delay returns the delay that follows the most recent cycle.
func (p *Poller) Delay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st.delay
}

// Session returns the id of the current or last session.
func (p *Poller) Session() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

func (p *Poller) loop(ctx context.Context, op Operation, h Handlers, session string, stop, done chan struct{}) {
	defer close(done)
	defer p.finish(session)

	for cycle := uint64(1); ; cycle++ {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		err := recovery.Call(ctx, op)
		now := p.clock.Now()

		p.mu.Lock()
		st, kind := p.trans.advance(p.st, now, err)
		p.st = st
		p.mu.Unlock()

		ev := Event{
			Poller:  p.cfg.Name,
			Session: session,
			Cycle:   cycle,
			Kind:    kind,
			Delay:   st.delay,
			Err:     err,
			At:      now,
		}
		p.setDispatching(true)
		p.dispatch(ctx, ev, h)
		p.setDispatching(false)

		select {
		case <-p.clock.After(st.delay):
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) dispatch(ctx context.Context, ev Event, h Handlers) {
	p.metrics.observe(ev)

	switch ev.Kind {
	case Succeeded:
		p.log.Debug("poll succeeded", logger.Duration("delay", ev.Delay))
	case BackingOff:
		p.log.Debug("poll failed, backing off", logger.Duration("delay", ev.Delay), logger.Err(ev.Err))
		p.callHandler(h.OnError, ev.Err)
	case Saturated:
		p.log.Debug("poll failed, delay saturated", logger.Duration("delay", ev.Delay), logger.Err(ev.Err))
		p.callHandler(h.OnFail, ev.Err)
	}

	if p.sink != nil {
		serr := recovery.Call(ctx, func(ctx context.Context) error {
			p.sink.Emit(ctx, ev)
			return nil
		})
		if serr != nil {
			_ = p.log.Error("poller event sink panicked", logger.Err(serr))
		}
	}
}

func (p *Poller) setDispatching(v bool) {
	p.mu.Lock()
	p.dispatching = v
	p.mu.Unlock()
}

func (p *Poller) callHandler(fn func(error), err error) {
	if fn == nil {
		return
	}
	herr := recovery.Call(context.Background(), func(context.Context) error {
		fn(err)
		return nil
	})
	if herr != nil {
		_ = p.log.Error("poller handler panicked", logger.Err(herr))
	}
}

func (p *Poller) finish(session string) {
	p.mu.Lock()
	p.running = false
	p.dispatching = false
	p.metrics.setRunning(p.cfg.Name, false)
	p.mu.Unlock()

	p.log.Info("poller stopped", logger.String("session", session))
}
