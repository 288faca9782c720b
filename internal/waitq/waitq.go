// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package waitq

import "github.com/jobforge/jobforge/internal/queue"

// Queue is an unbounded, lock-free queue of parked goroutines. It is used by
// [TaskGroup.Join] so that multiple callers may block on the same group
// concurrently and all be released together once the group's trigger fires.
type Queue struct {
	inner queue.Queue[Waiter]
	pool  queue.NodePool[Waiter]
}

func (q *Queue) Init() {
	q.inner.Init(&q.pool)
}

// Add registers a new waiter on the unbounded queue. Add never blocks.
func (q *Queue) Add() Waiter {
	w := Waiter{
		q:          q,
		notifyChan: make(chan struct{}, 1),
	}
	q.inner.PushBack(&q.pool, w)
	return w
}

// Notify signals the waiter at the front of the queue, if any.
func (q *Queue) Notify() {
	for {
		w, ok := q.inner.PopFront(&q.pool)
		if !ok {
			return
		}

		select {
		case w.notifyChan <- struct{}{}:
			// The notification was sent.
			return
		default:
			// The channel was full, meaning that the waiter was closed. Loop
			// and try the next one.
		}
	}
}

// NotifyAll signals every waiter currently in the queue. Used when a
// [TaskGroup]'s trigger fires and every blocked Join caller should resume,
// not just the one at the front.
func (q *Queue) NotifyAll() {
	for {
		w, ok := q.inner.PopFront(&q.pool)
		if !ok {
			return
		}
		select {
		case w.notifyChan <- struct{}{}:
		default:
			// Waiter already closed itself; nothing to do.
		}
	}
}
