// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package jobforge

import (
	"context"
	"sync/atomic"

	"github.com/jobforge/jobforge/internal/affq"
)

// PlatformHooks lets embedders observe or act on worker lifecycle events that
// are inherently platform-specific, such as pinning a worker's OS thread to
// a CPU core or naming it for an external profiler. The default hooks are
// no-ops; Go offers no portable way to do either.
type PlatformHooks interface {
	// WorkerStarted is called once from the worker's own goroutine before it
	// enters its dispatch loop.
	WorkerStarted(id int, name string)
}

type noopPlatformHooks struct{}

func (noopPlatformHooks) WorkerStarted(id int, name string) {}

// worker is one element of a System's fixed pool. id is stable for the
// System's lifetime and is what WorkerID(ctx) returns from inside a running
// job, and what [AffinityWorker] and [AffinityWorkerSet] address.
type worker struct {
	id   int
	name string

	own affq.Queue[*Job]

	// load is the number of jobs currently queued on own, consulted by the
	// WORKER-SET least-loaded heuristic. It doubles as this worker's
	// position key in sys.loadHeap.
	load atomic.Int64
	// heapPos backs the internal/heap.Item contract; see Position below.
	heapPos int
}

// Less, SetPosition, and Position satisfy internal/heap.Item[*worker], used
// by the System to find the least-loaded worker eligible for a WORKER-SET
// affinity job. Heap access is serialized by the System's own mutex; these
// methods assume that external synchronization and add none of their own.
func (w *worker) Less(other *worker) bool { return w.load.Load() < other.load.Load() }
func (w *worker) SetPosition(i int)       { w.heapPos = i }
func (w *worker) Position() int           { return w.heapPos }

type workerIDKey struct{}

// WorkerID returns the id of the worker goroutine running ctx's job, or -1
// if ctx was not produced by a [System].
func WorkerID(ctx context.Context) int {
	v := ctx.Value(workerIDKey{})
	if v == nil {
		return -1
	}
	return v.(int)
}

func withWorkerID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, workerIDKey{}, id)
}
