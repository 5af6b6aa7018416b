package testutil

import (
	"sync"
	"time"
)

// Epoch is the instant every ManualClock starts at.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// ManualClock is a clock that only moves when told to.
//
// Step, if non-zero, is added after every Now call, so consecutive reads
// are strictly increasing by a known amount. This gives runs reproducible
// non-zero phase durations.
//
// Thread-safety: all methods are safe for concurrent use.
type ManualClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewManualClock creates a clock at Epoch that advances by step per read.
func NewManualClock(step time.Duration) *ManualClock {
	return &ManualClock{now: Epoch, step: step}
}

// Now returns the current instant and then advances by the step.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

// Peek returns the current instant without advancing.
func (c *ManualClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Reset moves the clock back to Epoch.
func (c *ManualClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = Epoch
}
