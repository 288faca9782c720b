// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package jobforge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jobforge/jobforge/internal/affq"
	"github.com/jobforge/jobforge/internal/heap"
	"github.com/jobforge/jobforge/internal/queue"
	"github.com/jobforge/jobforge/internal/state"
	"github.com/jobforge/jobforge/internal/timerp"
)

// readyQueue pairs a lock-free queue with the node pool its push/pop calls
// require.
type readyQueue struct {
	q    queue.Queue[*Job]
	pool queue.NodePool[*Job]
}

func (r *readyQueue) init()          { r.q.Init(&r.pool) }
func (r *readyQueue) push(j *Job)    { r.q.PushBack(&r.pool, j) }
func (r *readyQueue) pop() (*Job, bool) { return r.q.PopFront(&r.pool) }

// System owns a fixed pool of worker goroutines, the three priority-tier
// ready queues jobs flow through between being enabled and being claimed,
// the MAIN-affinity queue, and the per-worker affinity queues used by
// specific-worker- and WORKER-SET-affinity jobs.
//
// A System is created with [NewSystem] and stopped with [System.Shutdown].
// It is safe to call any exported method from multiple goroutines, including
// from within a running job's own body.
type System struct {
	workers []*worker
	mainID  int // -1 if no worker is designated MAIN

	mainQueue affq.Queue[*Job]
	ready     [3]readyQueue // indexed by Priority

	loadHeapMu sync.Mutex
	loadHeap   heap.Heap[*worker]

	wakeGen  state.DynamicValue[uint64]
	sleepers atomic.Int64

	stopped atomic.Bool
	wg      sync.WaitGroup

	inFlight state.InFlightCounter

	clock  Clock
	logger *zap.Logger
	hooks  PlatformHooks

	jobPool sync.Pool
}

// SystemOption configures a [System] at construction time.
type SystemOption func(*systemConfig)

type systemConfig struct {
	mainThread bool
	clock      Clock
	logger     *zap.Logger
	hooks      PlatformHooks
}

// WithMainThread designates worker 0 as the System's MAIN-affinity worker;
// see [AffinityMain]. Without this option, MAIN-affinity jobs are never
// claimed.
func WithMainThread() SystemOption {
	return func(c *systemConfig) { c.mainThread = true }
}

// WithClock overrides the time source the System uses for the run durations
// it logs.
func WithClock(clock Clock) SystemOption {
	return func(c *systemConfig) { c.clock = clock }
}

// WithLogger attaches a structured logger. Without this option the System
// logs nothing.
func WithLogger(logger *zap.Logger) SystemOption {
	return func(c *systemConfig) { c.logger = logger }
}

// WithPlatformHooks attaches platform-specific worker lifecycle hooks, such
// as CPU pinning or OS-thread naming.
func WithPlatformHooks(hooks PlatformHooks) SystemOption {
	return func(c *systemConfig) { c.hooks = hooks }
}

// NewSystem constructs a System with workerCount worker goroutines and
// starts them immediately.
func NewSystem(workerCount int, opts ...SystemOption) *System {
	if workerCount < 1 {
		panic("jobforge: worker count must be at least 1")
	}
	cfg := systemConfig{clock: realClock{}, hooks: noopPlatformHooks{}}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}

	s := &System{
		mainID: -1,
		clock:  cfg.clock,
		logger: cfg.logger,
		hooks:  cfg.hooks,
	}
	for p := range s.ready {
		s.ready[p].init()
	}

	s.workers = make([]*worker, workerCount)
	for i := range s.workers {
		w := &worker{id: i, name: fmt.Sprintf("worker-%d", i)}
		s.workers[i] = w
		s.loadHeap.Push(w)
	}
	if cfg.mainThread {
		s.mainID = 0
	}

	s.wg.Add(workerCount)
	for _, w := range s.workers {
		go s.runWorker(w)
	}
	return s
}

// SetWorkerName sets the profiling name reported for worker id. Intended to
// be called before the System is given any work.
func (s *System) SetWorkerName(id int, name string) {
	s.workers[id].name = name
}

// InFlight returns the number of jobs accepted but not yet completed.
func (s *System) InFlight() int64 { return s.inFlight.Load() }

// Shutdown stops the System from accepting new work and blocks until every
// worker has drained its queues and exited. Jobs already enqueued when
// Shutdown is called still run; jobs submitted afterward fail with
// [ErrSystemShutdown].
func (s *System) Shutdown() {
	s.stopped.Store(true)
	s.wake()
	s.wg.Wait()
}

func (s *System) wake() {
	gen, _ := s.wakeGen.Load()
	s.wakeGen.Store(gen + 1)
}

func (s *System) sleep() {
	_, ch := s.wakeGen.Load()
	t := timerp.Get()
	t.Reset(time.Millisecond)
	s.sleepers.Add(1)
	select {
	case <-ch:
	case <-t.C:
	}
	s.sleepers.Add(-1)
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	timerp.Put(t)
}

// SubmitJob submits a caller-owned job. j must be UNSUBMITTED.
func (s *System) SubmitJob(j *Job) error {
	if s.stopped.Load() {
		return ErrSystemShutdown
	}
	if !j.casState(stateUnsubmitted, stateWaiting) {
		panic("jobforge: job submitted more than once")
	}
	j.sys = s
	s.inFlight.Increment()
	if j.pending.Load() == 0 {
		if j.casState(stateWaiting, stateReady) {
			s.enqueueReady(j)
		}
	}
	return nil
}

// SubmitLambda submits fn as a transient, self-owned synchronous job that
// the System allocates and frees on its own; there is no *Job for the
// caller to wire dependencies onto.
func (s *System) SubmitLambda(name string, def Definition, fn RunFunc) error {
	j := s.acquirePooledJob(name, def)
	j.run = fn
	return s.SubmitJob(j)
}

// SubmitAsyncLambda is the async counterpart of [System.SubmitLambda].
func (s *System) SubmitAsyncLambda(name string, def Definition, fn AsyncFunc) error {
	j := s.acquirePooledJob(name, def)
	j.async = &asyncState{
		fn:       fn,
		resumeCh: make(chan context.Context),
		signalCh: make(chan asyncSignal),
	}
	j.async.self = &AsyncSelf{job: j}
	return s.SubmitJob(j)
}

func (s *System) acquirePooledJob(name string, def Definition) *Job {
	j, _ := s.jobPool.Get().(*Job)
	if j == nil {
		j = &Job{}
	}
	j.name = name
	j.def = def
	j.selfOwned = true
	return j
}

func (s *System) releasePooledJob(j *Job) {
	*j = Job{}
	s.jobPool.Put(j)
}

// enqueueReady places j, already transitioned to READY, onto whichever queue
// its Affinity designates.
func (s *System) enqueueReady(j *Job) {
	switch j.def.Affinity.kind {
	case affinityMain:
		s.mainQueue.PushBack(j)
	case affinityWorker:
		s.pushOwn(s.workers[j.def.Affinity.id], j)
	case affinityWorkerSet:
		w := s.pickLeastLoaded(j.def.Affinity)
		s.pushOwn(w, j)
	default:
		s.ready[j.def.Priority].push(j)
	}
	s.wake()
}

// pickLeastLoaded removes and returns the least-loaded worker admitted by
// aff, skipping and restoring ineligible candidates. Callers must follow up
// with pushOwn, which reinserts the returned worker with its updated load.
func (s *System) pickLeastLoaded(aff Affinity) *worker {
	s.loadHeapMu.Lock()
	defer s.loadHeapMu.Unlock()
	skipCap := len(s.workers) - aff.eligibleCount()
	if skipCap < 0 {
		skipCap = 0
	}
	skipped := make([]*worker, 0, skipCap)
	var chosen *worker
	for s.loadHeap.Len() > 0 {
		w := s.loadHeap.Pop()
		if aff.includes(w.id) {
			chosen = w
			break
		}
		skipped = append(skipped, w)
	}
	for _, w := range skipped {
		s.loadHeap.Push(w)
	}
	return chosen
}

func (s *System) pushOwn(w *worker, j *Job) {
	w.own.PushBack(j)
	w.load.Add(1)
	s.loadHeapMu.Lock()
	s.loadHeap.Push(w)
	s.loadHeapMu.Unlock()
}

func (s *System) popOwn(w *worker) (*Job, bool) {
	j, ok := w.own.PopFront()
	if ok {
		w.load.Add(-1)
		s.loadHeapMu.Lock()
		s.loadHeap.Push(w)
		s.loadHeapMu.Unlock()
	}
	return j, ok
}

// release transitions a successor job from WAITING to READY once its
// pending-dependency count reaches zero. If the job has not yet been
// submitted, it does nothing; SubmitJob will see the zero count itself.
func (s *System) release(j *Job) {
	if j.casState(stateWaiting, stateReady) {
		s.enqueueReady(j)
	}
}

// resumeAsync re-enqueues an async job that was parked on Await, after the
// trigger it was awaiting has fired.
func (s *System) resumeAsync(j *Job) {
	if j.async.inReadyQueue {
		panic("jobforge: async job already has an outstanding resumption token")
	}
	j.async.inReadyQueue = true
	j.setState(stateReady)
	s.enqueueReady(j)
}

func (s *System) runWorker(w *worker) {
	defer s.wg.Done()
	s.hooks.WorkerStarted(w.id, w.name)
	for {
		// Read the stop flag before claiming, so a job enqueued before
		// Shutdown set it is always seen by the claim below.
		stopping := s.stopped.Load()
		j := s.claim(w)
		if j != nil {
			s.execute(w, j)
			continue
		}
		if stopping {
			return
		}
		s.sleep()
	}
}

// claim picks the next job for worker w: its MAIN queue if it is the
// designated main worker, then its own per-worker queue, then the shared
// priority queues from HIGH to LOW.
func (s *System) claim(w *worker) *Job {
	if w.id == s.mainID {
		if j, ok := s.mainQueue.PopFront(); ok {
			return j
		}
	}
	if j, ok := s.popOwn(w); ok {
		return j
	}
	for p := High; p >= Low; p-- {
		if j, ok := s.ready[p].pop(); ok {
			return j
		}
	}
	return nil
}

func (s *System) execute(w *worker, j *Job) {
	ctx := withWorkerID(context.Background(), w.id)
	claimedAt := s.clock.Now()
	if j.isAsync() {
		s.executeAsync(w, j, ctx, claimedAt)
		return
	}
	j.setState(stateRunning)
	j.run(ctx)
	s.complete(j, claimedAt)
}

func (s *System) executeAsync(w *worker, j *Job, ctx context.Context, claimedAt time.Time) {
	a := j.async
	a.inReadyQueue = false
	j.setState(stateRunning)
	if !a.started {
		a.started = true
		go func() {
			a.self.ctx = <-a.resumeCh
			a.fn(a.self)
			a.signalCh <- asyncSignal{kind: signalReturn}
		}()
	}
	a.resumeCh <- ctx
	sig := <-a.signalCh
	switch sig.kind {
	case signalYield:
		// Resolved open question: co_yield self re-enqueues unconditionally
		// on the job's current priority queue, regardless of affinity.
		a.inReadyQueue = true
		j.setState(stateReady)
		s.ready[j.def.Priority].push(j)
		s.wake()
	case signalAwait:
		j.setState(stateSuspended)
		// Registration happens here, after the handshake above has fully
		// completed and the job's own goroutine has already moved on to
		// block on resumeCh, so a concurrent fire can never observe this job
		// as a waiter before it has actually suspended. If the trigger fired
		// in the gap between Await's fast-path peek and this point, resume
		// it immediately rather than leaving it registered for a fire that
		// already happened.
		if sig.trigger.tryAwait(j) {
			s.resumeAsync(j)
		}
	case signalReturn:
		s.complete(j, claimedAt)
	}
}

// complete transitions j through COMPLETING to DONE, notifying every trigger
// it was wired to in between. claimedAt is this worker's own clock reading
// from the moment it claimed j, used only to log how long this claim ran for
// (for an async job that suspended and was reclaimed, that's the final
// segment's duration, not the job's total lifetime).
func (s *System) complete(j *Job, claimedAt time.Time) {
	j.setState(stateCompleting)
	s.logger.Debug("job complete",
		zap.String("job", j.name),
		zap.Duration("duration", s.clock.Now().Sub(claimedAt)),
	)
	for _, t := range j.notifyList() {
		t.notify(s)
	}
	j.setState(stateDone)
	if j.selfOwned {
		s.releasePooledJob(j)
	}
	s.inFlight.Decrement()
}
