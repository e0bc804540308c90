package testutil

import (
	"sync"
	"time"
)

// ManualClock is a wall clock that only moves when told to.
//
// Tickers created from it fire on Advance, or on demand through
// ManualTicker.Fire. This keeps timer-driven saves deterministic in tests.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*ManualTicker
}

// NewManualClock creates a clock reading start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward and fires every live ticker whose next
// deadline has passed. A ticker fires at most once per Advance, matching
// time.Ticker's drop-on-slow-reader behaviour.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := append([]*ManualTicker(nil), c.tickers...)
	c.mu.Unlock()

	for _, tk := range tickers {
		tk.advanceTo(now)
	}
}

// NewTicker creates a ManualTicker with the given period.
func (c *ManualClock) NewTicker(d time.Duration) *ManualTicker {
	c.mu.Lock()
	defer c.mu.Unlock()

	tk := &ManualTicker{
		period: d,
		next:   c.now.Add(d),
		ch:     make(chan time.Time, 1),
	}
	c.tickers = append(c.tickers, tk)
	return tk
}

// Tickers returns every ticker created so far, stopped or not.
func (c *ManualClock) Tickers() []*ManualTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*ManualTicker(nil), c.tickers...)
}

// LastTicker returns the most recently created ticker, or nil.
func (c *ManualClock) LastTicker() *ManualTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tickers) == 0 {
		return nil
	}
	return c.tickers[len(c.tickers)-1]
}

// ManualTicker is a ticker driven by a ManualClock.
type ManualTicker struct {
	mu      sync.Mutex
	period  time.Duration
	next    time.Time
	ch      chan time.Time
	stopped bool
}

// C returns the tick channel.
func (t *ManualTicker) C() <-chan time.Time {
	return t.ch
}

// Period returns the configured period.
func (t *ManualTicker) Period() time.Duration {
	return t.period
}

// Stop stops the ticker. Pending ticks are not drained.
func (t *ManualTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

// Stopped reports whether Stop has been called.
func (t *ManualTicker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Fire delivers one tick now. Returns false if the ticker is stopped or a
// tick is already pending.
func (t *ManualTicker) Fire() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sendLocked(t.next)
}

func (t *ManualTicker) advanceTo(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped || t.period <= 0 || now.Before(t.next) {
		return
	}
	tick := t.next
	for !now.Before(t.next) {
		t.next = t.next.Add(t.period)
	}
	t.sendLocked(tick)
}

func (t *ManualTicker) sendLocked(at time.Time) bool {
	if t.stopped {
		return false
	}
	select {
	case t.ch <- at:
		return true
	default:
		return false
	}
}
