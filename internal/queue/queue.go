// Package queue bounds how many expensive compilations run at once.
package queue

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency keeps the heavy toolchain to a single job at a time.
const DefaultConcurrency = 1

// Observer receives queue depth changes.
type Observer interface {
	SetQueueDepth(waiting, running int)
}

// Queue admits jobs in arrival order, at most n at a time.
type Queue struct {
	sem     *semaphore.Weighted
	limit   int
	waiting atomic.Int64
	running atomic.Int64
	obs     Observer
}

// New creates a Queue running at most n jobs concurrently. n < 1 means
// DefaultConcurrency. obs may be nil.
func New(n int, obs Observer) *Queue {
	if n < 1 {
		n = DefaultConcurrency
	}
	return &Queue{sem: semaphore.NewWeighted(int64(n)), limit: n, obs: obs}
}

// Limit returns the concurrency bound.
func (q *Queue) Limit() int { return q.limit }

// Do waits for a slot and runs fn. If ctx ends while waiting, fn is not run
// and ctx.Err() is returned.
func (q *Queue) Do(ctx context.Context, fn func(context.Context) error) error {
	q.waiting.Add(1)
	q.report()
	err := q.sem.Acquire(ctx, 1)
	q.waiting.Add(-1)
	if err != nil {
		q.report()
		return err
	}
	q.running.Add(1)
	q.report()
	defer func() {
		q.running.Add(-1)
		q.sem.Release(1)
		q.report()
	}()
	return fn(ctx)
}

// Submit runs fn through q and returns its result.
func Submit[T any](ctx context.Context, q *Queue, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := q.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (q *Queue) report() {
	if q.obs != nil {
		q.obs.SetQueueDepth(int(q.waiting.Load()), int(q.running.Load()))
	}
}
