// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package jobforge

import "context"

// AsyncFunc is the body of an async job. Unlike [RunFunc] it receives an
// [AsyncSelf] handle rather than a context, which it uses to cooperatively
// suspend via [AsyncSelf.Yield] or [AsyncSelf.Await].
type AsyncFunc func(self *AsyncSelf)

// asyncSignalKind tags what an async job's goroutine is telling the
// dispatcher when it parks.
type asyncSignalKind int

const (
	signalYield asyncSignalKind = iota
	signalAwait
	signalReturn
)

type asyncSignal struct {
	kind    asyncSignalKind
	trigger *Trigger // set only for signalAwait
}

// asyncState is the continuation machinery backing an async job. Go has no
// native stackful coroutine, so each async job gets its own goroutine parked
// on an unbuffered handshake with the worker that claimed it: the worker
// sends on resumeCh to let the generator run until its next suspension
// point, and blocks on signalCh until the generator reports what it did.
// This keeps the worker blocked for exactly "until next yield/await"
// without the job body ever blocking on anything else.
type asyncState struct {
	fn   AsyncFunc
	self *AsyncSelf

	resumeCh chan context.Context
	signalCh chan asyncSignal

	started bool

	// inReadyQueue enforces at most one outstanding resumption token per
	// async job. It is set when the job is placed back on a ready queue (by
	// Yield or by a trigger firing) and cleared when a worker claims it.
	inReadyQueue bool
}

// AsyncSelf is the handle an [AsyncFunc] uses to cooperatively suspend.
// It must only be used from within the job's own run body, on the goroutine
// that body is running on.
type AsyncSelf struct {
	job *Job
	ctx context.Context
}

// Context returns the context most recently handed to this job by the
// worker that resumed it.
func (s *AsyncSelf) Context() context.Context { return s.ctx }

// Yield suspends the calling async job and re-enqueues it, unconditionally,
// onto its own priority's ready queue, returning control to the worker that
// was running it. The worker picks up other ready work immediately; this job
// resumes the next time some worker claims it off that queue.
func (s *AsyncSelf) Yield() {
	s.job.async.signalCh <- asyncSignal{kind: signalYield}
	s.ctx = <-s.job.async.resumeCh
}

// Await suspends the calling async job until t next fires, unless t is
// already at rest with nothing outstanding, in which case Await returns
// immediately without suspending.
//
// The remaining==0 check here is a fast-path peek, not a registration: it
// never races anything, since a false negative just falls through to the
// suspend path below. Registering the job as a waiter happens later, on the
// worker goroutine driving this job rather than here on the job's own
// goroutine — see [System.executeAsync]'s signalAwait case — so that
// registration is ordered strictly after this handshake completes instead of
// racing a concurrent fire that could otherwise resume the job before it has
// actually suspended.
func (s *AsyncSelf) Await(t *Trigger) {
	if t.remaining.Load() == 0 {
		return
	}
	s.job.async.signalCh <- asyncSignal{kind: signalAwait, trigger: t}
	s.ctx = <-s.job.async.resumeCh
}

// NewAsyncJob constructs an async Job: one whose body runs on a dedicated
// goroutine and cooperates with the dispatcher via AsyncSelf.Yield and
// AsyncSelf.Await instead of running start-to-finish on a single worker
// claim.
func NewAsyncJob(name string, def Definition, fn AsyncFunc) *Job {
	if fn == nil {
		panic("jobforge: async run function must be non-nil")
	}
	j := &Job{name: name, def: def}
	j.state.Store(int32(stateUnsubmitted))
	j.async = &asyncState{
		fn:       fn,
		resumeCh: make(chan context.Context),
		signalCh: make(chan asyncSignal),
	}
	j.async.self = &AsyncSelf{job: j}
	return j
}
