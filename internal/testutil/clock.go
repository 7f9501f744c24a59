package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start time of a StepClock.
var Epoch = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

// StepClock is a deterministic wall clock for tests.
//
// Every call to Now returns the previous reading plus a fixed step, so a
// run that reads the clock at start and end reports a predictable elapsed
// time.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	reads int64
}

// NewStepClock creates a clock whose first reading is start.
// If start is zero, Epoch is used.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	if start.IsZero() {
		start = Epoch
	}
	return &StepClock{start: start, step: step}
}

// Now returns start + reads*step and advances the clock.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.reads) * c.step)
	c.reads++
	return t
}

// Reads returns how many times Now has been called.
func (c *StepClock) Reads() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// Reset rewinds the clock so the next reading is start again.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reads = 0
}
