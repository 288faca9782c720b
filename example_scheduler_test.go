// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package jobforge_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jobforge/jobforge"
)

// TestAsyncWithDependencies reproduces the original source's topology of the
// same name: a trigger of arity one fed by two independent dependency jobs
// wired via AppendJobToBeTrigger, an unrelated lambda that runs concurrently,
// and an async lambda that awaits the trigger, then yields once before
// finishing.
func TestAsyncWithDependencies(t *testing.T) {
	chk := require.New(t)
	sys := jobforge.NewSystem(4)
	defer sys.Shutdown()

	var unrelatedRan atomic.Bool
	chk.NoError(sys.SubmitLambda("unrelated", jobforge.DefaultDefinition(), func(ctx context.Context) {
		unrelatedRan.Store(true)
	}))

	gate := jobforge.NewTrigger("gate", 1)
	var depACompleted, depBCompleted atomic.Bool
	depA := jobforge.NewJob("dep-a", jobforge.DefaultDefinition(), func(ctx context.Context) {
		depACompleted.Store(true)
	})
	depB := jobforge.NewJob("dep-b", jobforge.DefaultDefinition(), func(ctx context.Context) {
		depBCompleted.Store(true)
	})
	gate.AppendJobToBeTrigger(depA)
	gate.AppendJobToBeTrigger(depB)

	var awaited, yielded atomic.Bool
	done := make(chan struct{})
	chk.NoError(sys.SubmitAsyncLambda("awaiter", jobforge.DefaultDefinition(), func(self *jobforge.AsyncSelf) {
		self.Await(gate)
		awaited.Store(true)
		self.Yield()
		yielded.Store(true)
		close(done)
	}))

	chk.NoError(sys.SubmitJob(depA))
	chk.NoError(sys.SubmitJob(depB))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("awaiter never completed")
	}

	chk.True(depACompleted.Load())
	chk.True(depBCompleted.Load())
	chk.True(awaited.Load())
	chk.True(yielded.Load())
	chk.True(unrelatedRan.Load())
}
