package testutil

import (
	"sync"
	"time"
)

// DeterministicClock provides a thread-safe clock for tests. Each call to Now
// returns the base time advanced by one fixed step more than the previous
// call, so capture timestamps are distinct, ordered, and reproducible.
type DeterministicClock struct {
	mu   sync.Mutex
	base time.Time
	step time.Duration
	n    int
}

// NewDeterministicClock creates a clock starting at base, advancing by step
// per Now call.
func NewDeterministicClock(base time.Time, step time.Duration) *DeterministicClock {
	return &DeterministicClock{base: base, step: step}
}

// Now returns the next timestamp.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.base.Add(time.Duration(c.n) * c.step)
	c.n++
	return t
}

// Reset rewinds the clock so the next Now returns base again.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}
