// Package queue provides the execution substrate for sync runs: a bounded
// worker pool, an exactly-once completion barrier for batches of independent
// tasks, and per-task retry with a fixed backoff schedule.
package queue

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Task is a single unit of work executed by the pool.
type Task func(ctx context.Context)

// Pool runs tasks with bounded concurrency.
type Pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// NewPool creates a pool that runs at most workers tasks at a time.
func NewPool(workers int64) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{sem: semaphore.NewWeighted(workers)}
}

// Go schedules the task, blocking until a worker slot is free. It returns an
// error only when the context is cancelled before a slot could be acquired.
func (p *Pool) Go(ctx context.Context, task Task) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("failed to acquire worker slot: %w", err)
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		task(ctx)
	}()
	return nil
}

// Wait blocks until all scheduled tasks have returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}
