package eventbus

import (
	"context"
	"errors"
	"sync"

	"github.com/LeonPucin/dash-core/logger"
	"github.com/LeonPucin/dash-core/wp"
)

var _ Bus = (*InMem)(nil)

// InMem delivers messages to in-process subscribers. Deliveries for one topic
// run on a single worker of the pool, so subscribers see a topic's messages in
// publish order. Different topics are delivered concurrently.
type InMem struct {
	pool *wp.Pool
	log  *logger.Logger

	mu     sync.RWMutex
	subs   map[string][]MessageReceiver
	closed bool
}

// InMemOption configures an InMem bus.
type InMemOption func(*inMemConfig)

type inMemConfig struct {
	workers int
	buffer  int
	log     *logger.Logger
}

// WithWorkers sets the number of delivery workers. Default: 4
func WithWorkers(n int) InMemOption {
	return func(c *inMemConfig) {
		c.workers = n
	}
}

// WithBuffer sets the per-worker queue size. Default: 100
func WithBuffer(n int) InMemOption {
	return func(c *inMemConfig) {
		c.buffer = n
	}
}

// WithLogger sets the logger used to report panicking receivers.
func WithLogger(l *logger.Logger) InMemOption {
	return func(c *inMemConfig) {
		c.log = l
	}
}

func NewInMemBus(opts ...InMemOption) *InMem {
	cfg := inMemConfig{workers: 4, buffer: 100, log: logger.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	b := &InMem{
		log:  cfg.log.Named("eventbus"),
		subs: make(map[string][]MessageReceiver),
	}
	b.pool = wp.NewPool(cfg.workers, cfg.buffer, wp.WithPanicHandler(func(topic string, v any) {
		b.log.Warning("receiver panicked", logger.String("topic", topic), logger.Any("panic", v))
	}))

	return b
}

// Publish queues msg for every current subscriber of topic. Delivery does not
// inherit cancellation from ctx.
func (b *InMem) Publish(ctx context.Context, topic string, msg any) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	receivers := b.subs[topic]
	b.mu.RUnlock()

	if len(receivers) == 0 {
		return nil
	}

	deliverCtx := context.WithoutCancel(ctx)
	for _, r := range receivers {
		err := b.pool.Submit(topic, func() {
			r.Receive(deliverCtx, msg)
		})
		if errors.Is(err, wp.ErrStopped) {
			return ErrClosed
		}
	}
	return nil
}

func (b *InMem) Subscribe(topic string, handler MessageReceiver) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	// Copy on write so in-flight deliveries keep their receiver slice.
	subs := make([]MessageReceiver, 0, len(b.subs[topic])+1)
	subs = append(subs, b.subs[topic]...)
	b.subs[topic] = append(subs, handler)
	return nil
}

// Close stops accepting messages and waits for queued deliveries to finish.
func (b *InMem) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.pool.Stop()
	return nil
}
