// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package jobforge

import "context"

// TaskGroup is a thin client of [System] and [Trigger] for the common case
// of batching many jobs behind a single join point. Unlike a bare Trigger,
// a TaskGroup's arity grows dynamically as jobs are submitted into it, so
// callers don't need to know the final count up front.
//
// A TaskGroup is single-use: submit everything, then Join once. It is safe
// to call Submit and Join from multiple goroutines concurrently, including
// from within a job the group itself submitted (as [TaskGroup.ForeachLog]
// does to recursively split work).
type TaskGroup struct {
	name    string
	sys     *System
	def     Definition
	trigger *Trigger
}

// NewTaskGroup constructs an empty TaskGroup bound to sys. Every job
// submitted through it uses def; Submit takes no per-call definition.
func NewTaskGroup(name string, sys *System, def Definition) *TaskGroup {
	return &TaskGroup{
		name:    name,
		sys:     sys,
		def:     def,
		trigger: newGroupTrigger(name),
	}
}

// Submit runs fn as one leaf job of the group.
func (g *TaskGroup) Submit(fn RunFunc) error {
	g.trigger.Grow(1)
	j := g.sys.acquirePooledJob(g.name, g.def)
	j.run = fn
	g.trigger.AppendJobToBeTrigger(j)
	if err := g.sys.SubmitJob(j); err != nil {
		g.trigger.Shrink(1)
		return err
	}
	return nil
}

// Join blocks the calling goroutine until every job submitted to the group
// so far has completed. Calling Join concurrently with Submit races by
// definition: Join only observes work submitted before or during its own
// wait, per the usual "submit everything, then join" usage.
func (g *TaskGroup) Join() {
	for !g.trigger.idle() {
		w := g.trigger.joinWaiters.Add()
		if g.trigger.idle() {
			w.Close()
			return
		}
		<-w.Done()
	}
}

// ForeachFlat splits [0, n) into chunkSize-sized ranges and submits one leaf
// job per range, each invoking fn with its [start, end) bounds. It does not
// Join; call Join separately once every ForeachFlat and Submit call has
// returned.
func (g *TaskGroup) ForeachFlat(n, chunkSize int, fn func(ctx context.Context, start, end int)) error {
	if chunkSize <= 0 {
		panic("jobforge: ForeachFlat chunk size must be positive")
	}
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		start, end := start, end
		if err := g.Submit(func(ctx context.Context) {
			fn(ctx, start, end)
		}); err != nil {
			return err
		}
	}
	return nil
}

// ForeachLog splits [0, n) by recursive halving rather than by fixed chunk
// size: a splitting job that sees a range larger than minChunk and has not
// yet reached maxDepth submits two child jobs covering its two halves and
// returns; otherwise it calls fn directly on its whole range. Size and depth
// are independent stop conditions — whichever is reached first ends the
// split for that branch. This keeps the tree depth logarithmic, unlike
// ForeachFlat's flat fan-out, and is the better choice when fn's per-item
// cost is too small to amortize a whole job over a large n.
func (g *TaskGroup) ForeachLog(n, minChunk, maxDepth int, fn func(ctx context.Context, start, end int)) error {
	if minChunk <= 0 {
		panic("jobforge: ForeachLog min chunk must be positive")
	}
	if maxDepth < 0 {
		panic("jobforge: ForeachLog max depth must be non-negative")
	}
	var split func(start, end, depth int) error
	split = func(start, end, depth int) error {
		if end-start <= minChunk || depth >= maxDepth {
			return g.Submit(func(ctx context.Context) {
				fn(ctx, start, end)
			})
		}
		mid := start + (end-start)/2
		return g.Submit(func(ctx context.Context) {
			// Errors here mean the System began shutting down between the
			// parent splitting and its children; the remaining subrange is
			// simply dropped rather than turned into a job-body panic.
			_ = split(start, mid, depth+1)
			_ = split(mid, end, depth+1)
		})
	}
	return split(0, n, 0)
}
