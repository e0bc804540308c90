package store

import (
	"sync"
	"time"
)

// CreationClock stamps samples with a non-decreasing epoch-millis time.
//
// The wall clock may step backwards (NTP, manual changes); Stamp never
// returns a value smaller than the previous one within a process.
//
// Thread-safety: CreationClock is safe for concurrent use.
type CreationClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

// NewCreationClock creates a clock reading from now.
// A nil now means time.Now.
func NewCreationClock(now func() time.Time) *CreationClock {
	if now == nil {
		now = time.Now
	}
	return &CreationClock{now: now}
}

// Stamp returns the current time in epoch millis, clamped to be no earlier
// than any previous stamp.
func (c *CreationClock) Stamp() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := c.now().UnixMilli()
	if ms < c.last {
		ms = c.last
	}
	c.last = ms
	return ms
}

// Advance raises the floor to at least ms.
// Used after loading a snapshot whose samples were stamped by a clock that
// ran ahead of this one.
func (c *CreationClock) Advance(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ms > c.last {
		c.last = ms
	}
}
