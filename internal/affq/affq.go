// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package affq provides the mutex-guarded, insertion-ordered queues used for
// MAIN-affinity and per-worker-affinity jobs. Unlike the shared priority
// queues (internal/queue), these are consulted by exactly one worker each,
// so a lock-free structure buys nothing; a ring-buffer deque does.
package affq

import (
	"sync"

	"github.com/gammazero/deque"
)

// Queue is a FIFO queue of values of type T, safe for one producer-many or
// many producer-one consumer use (jobs are pushed by whichever worker
// dispatches them, popped only by the queue's owning worker).
type Queue[T any] struct {
	mu sync.Mutex
	d  deque.Deque[T]
}

// PushBack appends v to the back of the queue.
func (q *Queue[T]) PushBack(v T) {
	q.mu.Lock()
	q.d.PushBack(v)
	q.mu.Unlock()
}

// PopFront removes and returns the value at the front of the queue, if any.
func (q *Queue[T]) PopFront() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.d.Len() == 0 {
		return v, false
	}
	return q.d.PopFront(), true
}

// Len returns the number of values currently queued.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.d.Len()
}
