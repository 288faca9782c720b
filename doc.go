// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package jobforge provides an in-process job scheduler for decomposing
// latency-sensitive work — frame or tick work in simulators, game engines, and
// data-parallel compute — into many short-lived jobs that run on a fixed pool
// of worker goroutines.
//
// Jobs are wired into a dependency graph using [Trigger], a fixed-arity fan-in
// point that also doubles as a fan-out point (it enqueues its successor jobs
// when it fires) and as an awaitable suspension point for async jobs. A
// [System] owns the worker pool and the per-priority ready queues that jobs
// flow through between being enabled and being run.
//
// [TaskGroup] is a thin client of [System] and [Trigger] for the common case
// of batching many jobs behind a single join point, including data-parallel
// [TaskGroup.ForeachFlat] and [TaskGroup.ForeachLog] helpers.
//
// Job bodies are expected not to panic. An unrecovered panic inside a job
// propagates to the worker goroutine and crashes the process; the scheduler
// does not attempt to catch and convert it into an error, since doing so could
// leave dependency counts mid-update.
package jobforge
