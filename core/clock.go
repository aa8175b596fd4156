package core

import (
	"sync"
	"time"
)

// Clock supplies wall-clock time to the processor.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the host clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock returns a settable instant. It is intended for tests and replay.
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixedClock returns a clock pinned at t.
func NewFixedClock(t time.Time) *FixedClock { return &FixedClock{t: t} }

// Now implements Clock.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Set moves the clock to t, backwards included.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// MonotonicClock converts a Clock into unix-second timestamps that never
// decrease, seeded with the last timestamp persisted in state.
type MonotonicClock struct {
	source Clock
	last   uint64
}

// NewMonotonicClock wraps source, refusing to hand out anything below last.
func NewMonotonicClock(source Clock, last uint64) *MonotonicClock {
	if source == nil {
		source = SystemClock{}
	}
	return &MonotonicClock{source: source, last: last}
}

// Peek returns the timestamp Next would return without advancing the mark.
func (c *MonotonicClock) Peek() uint64 {
	now := c.source.Now().Unix()
	if now < 0 {
		now = 0
	}
	ts := uint64(now)
	if ts < c.last {
		return c.last
	}
	return ts
}

// Next returns the current timestamp and records it as the high-water mark.
func (c *MonotonicClock) Next() uint64 {
	ts := c.Peek()
	c.last = ts
	return ts
}

// Last returns the high-water mark.
func (c *MonotonicClock) Last() uint64 { return c.last }
