// Package wp is a keyed worker pool. Tasks submitted with the same key run
// on the same worker, one after another, in submission order.
package wp

import (
	"errors"
	"sync"

	"github.com/segmentio/fasthash/fnv1a"
)

// ErrStopped is returned by Submit once Stop has been called.
var ErrStopped = errors.New("worker pool stopped")

type Pool struct {
	maxWorkers int
	taskQueues []chan func()
	wg         sync.WaitGroup
	onPanic    func(key string, v any)

	// quit releases Submit calls blocked on a full queue once Stop begins.
	// Queues are closed only after every such call has returned.
	quit       chan struct{}
	submitters sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// Option configures a Pool.
type Option func(*Pool)

// WithPanicHandler is called with the key and the recovered value when a
// task panics. The worker keeps running either way.
func WithPanicHandler(fn func(key string, v any)) Option {
	return func(p *Pool) {
		p.onPanic = fn
	}
}

func NewPool(maxWorkers int, queueBuffer int, opts ...Option) *Pool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if queueBuffer < 1 {
		queueBuffer = 1
	}

	p := &Pool{
		maxWorkers: maxWorkers,
		taskQueues: make([]chan func(), maxWorkers),
		quit:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	for i := 0; i < maxWorkers; i++ {
		p.taskQueues[i] = make(chan func(), queueBuffer)
		p.wg.Add(1)
		go p.startWorker(p.taskQueues[i])
	}

	return p
}

func (p *Pool) startWorker(queue chan func()) {
	defer p.wg.Done()
	for task := range queue {
		task()
	}
}

// Submit queues task on the worker owning key. It blocks while that worker's
// queue is full, until Stop is called. Nil tasks are ignored. Tasks may
// submit to the pool themselves.
func (p *Pool) Submit(key string, task func()) error {
	if task == nil {
		return nil
	}

	p.mu.RLock()
	if p.stopped {
		p.mu.RUnlock()
		return ErrStopped
	}
	p.submitters.Add(1)
	p.mu.RUnlock()
	defer p.submitters.Done()

	idx := fnv1a.HashString64(key) % uint64(p.maxWorkers)
	select {
	case p.taskQueues[idx] <- p.guard(key, task):
		return nil
	case <-p.quit:
		return ErrStopped
	}
}

func (p *Pool) guard(key string, task func()) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil && p.onPanic != nil {
				p.onPanic(key, r)
			}
		}()
		task()
	}
}

// Workers returns the number of workers.
func (p *Pool) Workers() int {
	return p.maxWorkers
}

// Stop rejects new tasks, runs every task already queued and waits for the
// workers to exit. Calling Stop more than once is safe.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	p.stopped = true
	close(p.quit)
	p.mu.Unlock()

	p.submitters.Wait()
	for _, q := range p.taskQueues {
		close(q)
	}
	p.wg.Wait()
}
