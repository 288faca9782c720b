// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package state

import (
	"sync/atomic"
)

// InFlightCounter tracks the number of jobs a System has accepted but not
// yet completed; System.InFlight reports its current value.
type InFlightCounter struct {
	v atomic.Int64
}

// Increment records a newly accepted job. Returns true if the counter
// transitioned from zero to one.
func (c *InFlightCounter) Increment() bool {
	return c.v.Add(1) == 1
}

// Decrement records a completed job. Returns true if the counter reached
// zero, i.e. nothing remains in flight.
func (c *InFlightCounter) Decrement() bool {
	newValue := c.v.Add(-1)
	if newValue < 0 {
		panic("jobforge: in-flight counter underflow")
	}
	return newValue == 0
}

func (c *InFlightCounter) IsZero() bool {
	return c.v.Load() == 0
}

func (c *InFlightCounter) Load() int64 {
	return c.v.Load()
}
