// Package workerpool provides a strictly bounded goroutine pool. A pool of
// size n never runs more than n tasks at once, whatever the queue depth.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Submit after Close has been called.
var ErrClosed = errors.New("workerpool: pool is closed")

// Pool manages a fixed set of worker goroutines.
type Pool struct {
	workers int32
	tasks   chan func()

	running int32 // started workers
	active  int32 // workers currently inside a task
	peak    int32 // highest value active has reached

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	// OnPanic, when set, receives values recovered from panicking tasks.
	OnPanic func(r any)
}

// New creates a pool with the given number of workers. Workers start lazily
// as tasks arrive, up to the bound. workers below 1 is treated as 1.
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		workers: int32(workers),
		tasks:   make(chan func()),
	}
}

// Submit hands task to a worker, blocking until one accepts it or ctx ends.
func (p *Pool) Submit(ctx context.Context, task func()) error {
	if task == nil {
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	p.spawn()

	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// spawn starts one more worker if the pool is below its bound.
func (p *Pool) spawn() {
	for {
		running := atomic.LoadInt32(&p.running)
		if running >= p.workers {
			return
		}
		if atomic.CompareAndSwapInt32(&p.running, running, running+1) {
			p.wg.Add(1)
			go p.worker()
			return
		}
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task func()) {
	n := atomic.AddInt32(&p.active, 1)
	for {
		peak := atomic.LoadInt32(&p.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&p.peak, peak, n) {
			break
		}
	}
	defer func() {
		atomic.AddInt32(&p.active, -1)
		if r := recover(); r != nil && p.OnPanic != nil {
			p.OnPanic(r)
		}
	}()
	task()
}

// Close stops accepting tasks and waits for in-flight tasks to finish.
// Close is idempotent.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}

// Cap returns the worker bound.
func (p *Pool) Cap() int { return int(p.workers) }

// Running returns the number of started workers.
func (p *Pool) Running() int { return int(atomic.LoadInt32(&p.running)) }

// Active returns the number of tasks executing right now.
func (p *Pool) Active() int { return int(atomic.LoadInt32(&p.active)) }

// Peak returns the highest number of tasks that ever ran at once.
func (p *Pool) Peak() int { return int(atomic.LoadInt32(&p.peak)) }

// String implements fmt.Stringer.
func (p *Pool) String() string {
	return fmt.Sprintf("workerpool(cap=%d running=%d active=%d)", p.Cap(), p.Running(), p.Active())
}
