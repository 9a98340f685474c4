// Package worker runs best-effort background tasks on a bounded queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

var ErrClosed = errors.New("worker pool closed")

type Task func(ctx context.Context) error

type job struct {
	name string
	fn   Task
}

type Pool struct {
	log     *slog.Logger
	tasks   chan job
	timeout time.Duration
	g       errgroup.Group

	mu     sync.RWMutex
	closed bool
}

// New starts workers goroutines draining a queue of queueSize tasks. Each task
// runs with its own timeout, detached from the caller's context.
func New(log *slog.Logger, workers, queueSize int, timeout time.Duration) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	p := &Pool{
		log:     log.With("component", "worker"),
		tasks:   make(chan job, queueSize),
		timeout: timeout,
	}
	for i := 0; i < workers; i++ {
		p.g.Go(func() error {
			for j := range p.tasks {
				p.run(j)
			}
			return nil
		})
	}
	return p
}

// Submit enqueues fn without blocking. It reports false when the queue is
// full or the pool is closed; the task is dropped in that case.
func (p *Pool) Submit(name string, fn Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.log.Warn("task_dropped", "task", name, "reason", "pool closed")
		return false
	}
	select {
	case p.tasks <- job{name: name, fn: fn}:
		return true
	default:
		p.log.Warn("task_dropped", "task", name, "reason", "queue full")
		return false
	}
}

func (p *Pool) run(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	start := time.Now()
	err := safeCall(ctx, j.fn)
	dur := time.Since(start).Milliseconds()
	if err != nil {
		p.log.Error("task_failed", "task", j.name, "duration_ms", dur, "error", err)
		return
	}
	p.log.Debug("task_done", "task", j.name, "duration_ms", dur)
}

func safeCall(ctx context.Context, fn Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

// Close stops accepting tasks and waits until queued ones finish or ctx is
// done.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = p.g.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
