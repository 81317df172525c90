package countdown

import (
	"sync"
	"time"
)

// TimeSource supplies the current instant.
type TimeSource interface {
	Now() Instant
}

// TimeSourceFunc adapts a function to TimeSource.
type TimeSourceFunc func() Instant

// Now implements TimeSource.
func (f TimeSourceFunc) Now() Instant { return f() }

// Timer is a pending one-shot callback.
type Timer interface {
	// Stop prevents the callback from running. It returns false when the
	// callback already ran or the timer was already stopped.
	Stop() bool
}

// TimerFactory schedules one-shot callbacks.
type TimerFactory interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemClock reads the host clock and schedules on the runtime timer heap.
type SystemClock struct{}

// Now implements TimeSource.
func (SystemClock) Now() Instant {
	return InstantFromTime(time.Now())
}

// AfterFunc implements TimerFactory.
func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ManualClock is a controllable TimeSource and TimerFactory. Timers run
// synchronously on the goroutine that moves the clock, which keeps
// scheduler tests single-threaded and deterministic.
type ManualClock struct {
	mu     sync.Mutex
	now    Instant
	seq    uint64
	timers []*manualTimer
}

type manualTimer struct {
	clock    *ManualClock
	deadline Instant
	seq      uint64
	fn       func()
	done     bool
}

// NewManualClock returns a clock frozen at start.
func NewManualClock(start Instant) *ManualClock {
	return &ManualClock{now: start}
}

// Now implements TimeSource.
func (c *ManualClock) Now() Instant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc implements TimerFactory.
func (c *ManualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &manualTimer{clock: c, deadline: c.now.Add(d), seq: c.seq, fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by d, stopping at each timer deadline on
// the way so callbacks observe the time they were scheduled for.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	c.runUntil(target, true)
}

// Set jumps the clock to t without visiting intermediate deadlines; every
// timer that is due runs once at t. This models a suspended process or a
// throttled background tab.
func (c *ManualClock) Set(t Instant) {
	c.runUntil(t, false)
}

// Pending returns the number of timers that have not run or been stopped.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.done {
			n++
		}
	}
	return n
}

func (c *ManualClock) runUntil(target Instant, step bool) {
	c.mu.Lock()
	if !step {
		c.now = target
	}
	// timers armed during this move only run if they lie strictly ahead of now
	snapshot := c.seq
	for {
		next := c.nextDueLocked(target, snapshot)
		if next == nil {
			break
		}
		next.done = true
		if step && next.deadline > c.now {
			c.now = next.deadline
		}
		fn := next.fn
		c.mu.Unlock()
		fn()
		c.mu.Lock()
	}
	c.now = target
	c.compactLocked()
	c.mu.Unlock()
}

func (c *ManualClock) nextDueLocked(target Instant, maxSeq uint64) *manualTimer {
	var next *manualTimer
	for _, t := range c.timers {
		if t.done || t.deadline > target {
			continue
		}
		if t.seq > maxSeq && !c.steppable(t) {
			continue
		}
		if next == nil || t.deadline < next.deadline || (t.deadline == next.deadline && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

// steppable reports whether a timer armed mid-move may still run in the same
// move: only when it is strictly in the future of the current instant, which
// guarantees progress.
func (c *ManualClock) steppable(t *manualTimer) bool {
	return t.deadline > c.now
}

func (c *ManualClock) compactLocked() {
	kept := c.timers[:0]
	for _, t := range c.timers {
		if !t.done {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(c.timers); i++ {
		c.timers[i] = nil
	}
	c.timers = kept
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}
