// Package dispatch provides the UI-synchronous executor that owns shared state
// mutations and a bounded pool for blocking work.
package dispatch

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrStopped is returned when work is submitted to a stopped loop or pool.
var ErrStopped = errors.New("dispatch: stopped")

// Executor runs functions on a serial context.
type Executor interface {
	Post(fn func())
}

// Immediate runs posted functions inline on the caller's goroutine. It is used
// when the caller already is the synchronous context.
type Immediate struct{}

func (Immediate) Post(fn func()) {
	if fn != nil {
		fn()
	}
}

// Loop is a single goroutine draining a queue of functions in order.
type Loop struct {
	queue chan func()
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

// NewLoop creates a loop with the given queue depth.
func NewLoop(depth int) *Loop {
	if depth <= 0 {
		depth = 256
	}
	return &Loop{
		queue: make(chan func(), depth),
		done:  make(chan struct{}),
	}
}

// Start launches the loop goroutine.
func (l *Loop) Start() {
	l.wg.Add(1)
	go l.run()
}

func (l *Loop) run() {
	defer l.wg.Done()
	for {
		select {
		case <-l.done:
			// Drain what was queued before Stop.
			for {
				select {
				case fn := <-l.queue:
					fn()
				default:
					return
				}
			}
		case fn := <-l.queue:
			fn()
		}
	}
}

// Post enqueues fn. Posting after Stop drops fn.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	select {
	case <-l.done:
		return
	default:
	}
	select {
	case l.queue <- fn:
	case <-l.done:
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(fn func()) error {
	finished := make(chan struct{})
	select {
	case <-l.done:
		return ErrStopped
	default:
	}
	l.Post(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
		return nil
	case <-l.done:
		// Stop drains queued work, so wait for the function if it was accepted.
		l.wg.Wait()
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	}
}

// Stop ends the loop after draining queued functions.
func (l *Loop) Stop() {
	l.once.Do(func() {
		close(l.done)
	})
	l.wg.Wait()
}

// Pool bounds the number of concurrently running background tasks.
type Pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPool creates a pool running at most workers tasks at once.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(workers))}
}

// Go runs fn on its own goroutine once a slot is free. It returns without
// waiting for fn.
func (p *Pool) Go(ctx context.Context, fn func(context.Context)) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrStopped
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer p.sem.Release(1)
		fn(ctx)
	}()
	return nil
}

// Wait blocks until every submitted task has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Close rejects new work and waits for running tasks.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
}
