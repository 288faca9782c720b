// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package jobforge

import (
	"sync"
	"sync/atomic"

	"github.com/gammazero/deque"

	"github.com/jobforge/jobforge/internal/waitq"
)

// Trigger is a fixed-arity fan-in point: exactly N notifications must land
// before it fires, after which a fixed-arity trigger (built with
// [NewTrigger]) re-arms for the next N. A [TaskGroup]'s trigger (built with
// [newGroupTrigger]) is dynamic instead: its arity has no fixed N, growing
// by one every [TaskGroup.Submit] and never resetting.
//
// Firing resumes every async job currently awaiting the trigger and
// releases every successor job whose last pending dependency it
// represented; the successor list persists across fires so a graph wired
// once keeps firing on every later cycle without rewiring.
//
// A Trigger also doubles as an awaitable suspension point: an async job's
// [AsyncSelf.Await] call either completes synchronously, if the trigger is
// already at rest with zero remaining (rare — it raced the fire that hasn't
// yet reset the counter), or parks the job until the trigger next fires.
//
// The remaining-count decrement that detects the N-th arrival is a single
// atomic op outside any lock; only the fire itself, along with re-arming
// and detaching the waiter list, holds the mutex.
type Trigger struct {
	name string

	// dynamic marks a TaskGroup's trigger: its remaining count is pure
	// decrement-only accounting (grown by Grow, drained by notify) rather
	// than the fixed-arity counter that fire resets every cycle. A dynamic
	// trigger has no fixed N to reset to, since jobs keep being admitted
	// after it has already fired zero or more times.
	dynamic bool

	arity     atomic.Int64
	remaining atomic.Int64

	mu            sync.Mutex
	waiters       []*Job
	successorJobs deque.Deque[*Job]

	// joinWaiters is non-nil only for a TaskGroup's trigger; fire notifies it
	// after processing waiters/successors so blocked Join callers wake up.
	joinWaiters *waitq.Queue
}

// NewTrigger constructs a fixed-arity Trigger that fires once arity
// notifications have landed, then re-arms for the next cycle.
func NewTrigger(name string, arity int) *Trigger {
	if arity < 0 {
		panic("jobforge: negative trigger arity")
	}
	t := &Trigger{name: name}
	t.arity.Store(int64(arity))
	t.remaining.Store(int64(arity))
	return t
}

// newGroupTrigger constructs a dynamic Trigger that grows as jobs are
// submitted into a TaskGroup, and that wakes Join callers when it fires.
func newGroupTrigger(name string) *Trigger {
	t := &Trigger{name: name, dynamic: true}
	t.joinWaiters = &waitq.Queue{}
	t.joinWaiters.Init()
	return t
}

// Name returns the trigger's profiling name.
func (t *Trigger) Name() string { return t.name }

// JobWillNotifyMe registers j as a successor released by this trigger's
// fire: j's pending-dependency count is incremented by one now, and
// decremented when this trigger fires. j runs only after the trigger has
// fired. Valid only before j is submitted.
func (t *Trigger) JobWillNotifyMe(j *Job) {
	if j.loadState() != stateUnsubmitted {
		panic("jobforge: JobWillNotifyMe called after successor was submitted")
	}
	j.pending.Add(1)
	t.mu.Lock()
	t.successorJobs.PushBack(j)
	t.mu.Unlock()
}

// AppendJobToBeTrigger registers d as a source of one of this trigger's N
// required notifications: d's completion decrements the trigger's remaining
// count. d runs before the fire it contributes to. Valid only before d is
// submitted.
func (t *Trigger) AppendJobToBeTrigger(d *Job) {
	d.addNotify(t)
}

// Grow increases the trigger's outstanding count by n, used by
// [TaskGroup.Submit] to admit one more leaf job without disturbing an
// in-progress fire. Valid only on a dynamic trigger (one built with
// [newGroupTrigger]); a fixed-arity trigger built with [NewTrigger] has no
// use for it.
func (t *Trigger) Grow(n int) {
	if !t.dynamic {
		panic("jobforge: Grow called on a fixed-arity trigger")
	}
	t.mu.Lock()
	t.remaining.Add(int64(n))
	t.mu.Unlock()
}

// Shrink undoes a Grow for a job that was never actually submitted, used by
// [TaskGroup.Submit] to back out its speculative Grow(1) when SubmitJob
// itself fails. Unlike fire, it releases nothing — the job it backs out
// never ran, so it has no successors or waiters to wake on its own account —
// but it still nudges any blocked Join callers in case this was the last
// outstanding count. Valid only on a dynamic trigger.
func (t *Trigger) Shrink(n int) {
	if !t.dynamic {
		panic("jobforge: Shrink called on a fixed-arity trigger")
	}
	t.mu.Lock()
	rem := t.remaining.Add(int64(-n))
	joinWaiters := t.joinWaiters
	t.mu.Unlock()
	if rem == 0 && joinWaiters != nil {
		joinWaiters.NotifyAll()
	}
}

// idle reports whether the trigger currently has nothing outstanding. For a
// dynamic trigger that is simply a zero remaining count, since remaining
// only ever grows (Grow) or shrinks (notify) and is never reset. For a
// fixed-arity trigger it is remaining having fully re-armed to arity, with
// no intervening growth or notification.
func (t *Trigger) idle() bool {
	if t.dynamic {
		return t.remaining.Load() == 0
	}
	return t.remaining.Load() == t.arity.Load()
}

// notify records one of the trigger's N arrivals. If this is the Nth, it
// fires the trigger.
func (t *Trigger) notify(sys *System) {
	if t.remaining.Add(-1) == 0 {
		t.fire(sys)
	}
}

// tryAwait registers j as an async waiter unless the trigger is already at
// rest (remaining == 0, not yet re-armed by a fire in progress), in which
// case it reports true and the caller proceeds without suspending.
func (t *Trigger) tryAwait(j *Job) (firedAlready bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.remaining.Load() == 0 {
		return true
	}
	t.waiters = append(t.waiters, j)
	return false
}

// fire re-arms a fixed-arity trigger (a dynamic trigger is never re-armed;
// its count simply keeps draining) and releases everything waiting on this
// cycle: async jobs parked on Await, in no particular order, then successor
// jobs in the insertion order established by JobWillNotifyMe.
//
// The successor list itself is never cleared, so a graph wired once keeps
// firing on every subsequent cycle without rewiring; only the per-cycle
// waiter list, which holds one-shot Await registrations, is detached and
// replaced each fire.
func (t *Trigger) fire(sys *System) {
	t.mu.Lock()
	if !t.dynamic {
		t.remaining.Store(t.arity.Load())
	}
	waiters := t.waiters
	t.waiters = nil
	successors := make([]*Job, t.successorJobs.Len())
	for i := range successors {
		successors[i] = t.successorJobs.At(i)
	}
	joinWaiters := t.joinWaiters
	t.mu.Unlock()

	for _, w := range waiters {
		sys.resumeAsync(w)
	}
	for _, s := range successors {
		if s.pending.Add(-1) == 0 {
			sys.release(s)
		}
	}
	if joinWaiters != nil {
		joinWaiters.NotifyAll()
	}
}
