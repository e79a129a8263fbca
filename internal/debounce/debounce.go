// Package debounce provides a single-shot, re-armable timer used to delay
// search-as-you-type work until the user pauses.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is the pause after the last keystroke before a search runs.
const DefaultDelay = 200 * time.Millisecond

// Timer is a pending callback that can be cancelled.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer before it fired.
	Stop() bool
}

// Clock schedules callbacks. RealClock uses wall time; ManualClock is driven
// by tests.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealClock schedules callbacks with time.AfterFunc.
type RealClock struct{}

func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer runs the most recently armed callback once the delay elapses
// without another Arm. It is safe for concurrent use.
type Debouncer struct {
	mu      sync.Mutex
	clock   Clock
	delay   time.Duration
	timer   Timer
	gen     uint64
	stopped bool
}

// New creates a Debouncer. A nil clock means RealClock and a non-positive
// delay means DefaultDelay.
func New(delay time.Duration, clock Clock) *Debouncer {
	if clock == nil {
		clock = RealClock{}
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{clock: clock, delay: delay}
}

// Delay returns the configured delay.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Arm schedules f, replacing any callback that has not fired yet. Arm after
// Stop does nothing.
func (d *Debouncer) Arm(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.cancelLocked()

	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A timer that fired while being replaced must not run.
		current := !d.stopped && gen == d.gen && d.timer != nil
		if current {
			d.timer = nil
		}
		d.mu.Unlock()

		if current {
			f()
		}
	})
}

// Cancel drops the pending callback, if any, and reports whether one was
// pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelLocked()
}

// Pending reports whether a callback is armed and has not fired.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels any pending callback and disables the debouncer for good.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

func (d *Debouncer) cancelLocked() bool {
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	return true
}
