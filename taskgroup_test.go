// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package jobforge_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jobforge/jobforge"
)

func TestTaskGroupJoinWaitsForAllLeaves(t *testing.T) {
	chk := require.New(t)
	sys := jobforge.NewSystem(4)
	defer sys.Shutdown()

	group := jobforge.NewTaskGroup("group", sys, jobforge.DefaultDefinition())
	var completed atomic.Int32
	for i := 0; i < 20; i++ {
		chk.NoError(group.Submit(func(ctx context.Context) {
			completed.Add(1)
		}))
	}
	group.Join()
	chk.EqualValues(20, completed.Load())
}

func TestTaskGroupJoinOnEmptyGroupReturnsImmediately(t *testing.T) {
	sys := jobforge.NewSystem(1)
	defer sys.Shutdown()

	group := jobforge.NewTaskGroup("empty", sys, jobforge.DefaultDefinition())
	group.Join()
}

func TestTaskGroupForeachFlatCoversRange(t *testing.T) {
	chk := require.New(t)
	sys := jobforge.NewSystem(4)
	defer sys.Shutdown()

	const n = 97
	seen := make([]atomic.Bool, n)
	group := jobforge.NewTaskGroup("flat", sys, jobforge.DefaultDefinition())
	chk.NoError(group.ForeachFlat(n, 10, func(ctx context.Context, start, end int) {
		for i := start; i < end; i++ {
			seen[i].Store(true)
		}
	}))
	group.Join()

	for i := 0; i < n; i++ {
		chk.True(seen[i].Load(), "index %d never visited", i)
	}
}

func TestTaskGroupForeachLogCoversRange(t *testing.T) {
	chk := require.New(t)
	sys := jobforge.NewSystem(4)
	defer sys.Shutdown()

	const n = 133
	seen := make([]atomic.Bool, n)
	group := jobforge.NewTaskGroup("log", sys, jobforge.DefaultDefinition())
	chk.NoError(group.Submit(func(ctx context.Context) {}))
	chk.NoError(group.ForeachLog(n, 4, 10, func(ctx context.Context, start, end int) {
		for i := start; i < end; i++ {
			seen[i].Store(true)
		}
	}))
	group.Join()

	for i := 0; i < n; i++ {
		chk.True(seen[i].Load(), "index %d never visited", i)
	}
}

// TestTaskGroupForeachLogStopsAtMaxDepth exercises maxDepth as a stop
// condition independent of minChunk: with 1000 elements, minChunk=10 alone
// would keep splitting to depth ~7, but maxDepth=4 must cut recursion short,
// leaving leaves wider than minChunk while still covering every index
// exactly once.
func TestTaskGroupForeachLogStopsAtMaxDepth(t *testing.T) {
	chk := require.New(t)
	sys := jobforge.NewSystem(4)
	defer sys.Shutdown()

	const n = 1000
	var sum atomic.Int64
	var leaves atomic.Int32
	counts := make([]atomic.Int32, n)
	group := jobforge.NewTaskGroup("log-depth", sys, jobforge.DefaultDefinition())
	chk.NoError(group.ForeachLog(n, 10, 4, func(ctx context.Context, start, end int) {
		leaves.Add(1)
		for i := start; i < end; i++ {
			sum.Add(1)
			counts[i].Add(1)
		}
	}))
	group.Join()

	// Every branch stops at depth 4 with 62 or 63 elements, so 2^4 leaves.
	chk.EqualValues(16, leaves.Load())
	chk.EqualValues(n, sum.Load())
	for i := 0; i < n; i++ {
		chk.EqualValues(1, counts[i].Load(), "index %d visited %d times", i, counts[i].Load())
	}
}
