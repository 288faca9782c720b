// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package jobforge

import (
	"context"
	"sync"
	"sync/atomic"
)

// RunFunc is the body of a synchronous [Job]. It must be thread-safe with
// respect to any state captured by [function literal] closure, since it runs
// on whichever worker goroutine claims the job.
//
// A RunFunc must not panic. An unrecovered panic propagates to the worker
// goroutine and terminates the process, since the scheduler offers no
// catch-all that could swallow it without corrupting dependency counts.
//
// [function literal]: https://go.dev/ref/spec#Function_literals
type RunFunc func(ctx context.Context)

// jobState is the job lifecycle: Unsubmitted, Waiting, Ready, Running,
// Suspended (async only), Completing, Done.
type jobState int32

const (
	stateUnsubmitted jobState = iota
	stateWaiting
	stateReady
	stateRunning
	stateSuspended
	stateCompleting
	stateDone
)

// Job is a named, single-shot unit of work with a [Definition] (complexity,
// priority, affinity), an atomic pending-dependency count, and a run body.
//
// A Job is caller-owned: the scheduler only ever holds a non-owning reference
// to it between submission and completion, and never frees it. Use
// [System.SubmitLambda] instead if you want the scheduler to allocate and
// free a transient, self-owned job descriptor on your behalf.
//
// The zero value is not usable; construct a Job with [NewJob] or
// [NewAsyncJob].
type Job struct {
	name string
	def  Definition

	pending atomic.Int64
	state   atomic.Int32

	run RunFunc

	// async is non-nil for jobs constructed with NewAsyncJob. It carries the
	// continuation machinery described in asyncjob.go.
	async *asyncState

	// mu guards notify, which may be mutated during the wiring phase (before
	// submission) or from within the job's own run body before it completes.
	mu     sync.Mutex
	notify []*Trigger

	selfOwned bool
	sys       *System
}

// NewJob constructs a synchronous Job with the given name, definition, and
// run body. The job is UNSUBMITTED until passed to [System.SubmitJob].
func NewJob(name string, def Definition, run RunFunc) *Job {
	if run == nil {
		panic("jobforge: run function must be non-nil")
	}
	j := &Job{name: name, def: def, run: run}
	j.state.Store(int32(stateUnsubmitted))
	return j
}

// Name returns the job's profiling name.
func (j *Job) Name() string { return j.name }

// Definition returns the job's complexity/priority/affinity hint set.
func (j *Job) Definition() Definition { return j.def }

func (j *Job) loadState() jobState { return jobState(j.state.Load()) }

func (j *Job) casState(from, to jobState) bool {
	return j.state.CompareAndSwap(int32(from), int32(to))
}

func (j *Job) setState(to jobState) { j.state.Store(int32(to)) }

// addNotify wires t into j's completion fan-out list. Only valid during the
// wiring phase (before submission) or from within the job's own run body
// before it completes.
func (j *Job) addNotify(t *Trigger) {
	j.mu.Lock()
	defer j.mu.Unlock()
	switch j.loadState() {
	case stateUnsubmitted, stateWaiting, stateReady, stateRunning, stateSuspended:
		j.notify = append(j.notify, t)
	default:
		panic("jobforge: trigger wired to job after it completed")
	}
}

func (j *Job) notifyList() []*Trigger {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]*Trigger(nil), j.notify...)
}

// isAsync reports whether this descriptor was built with NewAsyncJob.
func (j *Job) isAsync() bool { return j.async != nil }
