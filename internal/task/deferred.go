package task

import (
	"sort"
	"sync"
	"time"
)

// --- Clock ---

// Timer is the handle returned by Clock.AfterFunc.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks after a delay.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock runs callbacks on time.AfterFunc goroutines.
var SystemClock Clock = systemClock{}

// --- Deferred ---

// Deferred is a single pending task that can be rescheduled or cancelled.
// Scheduling again replaces the previous task. Once Cancel returns, a
// cancelled task is guaranteed not to run (or to have already finished).
type Deferred struct {
	clock Clock
	slot  Slot

	mu    sync.Mutex
	timer Timer
	live  bool
}

// NewDeferred returns a Deferred driven by clock (SystemClock when nil).
func NewDeferred(clock Clock) *Deferred {
	if clock == nil {
		clock = SystemClock
	}
	return &Deferred{clock: clock}
}

// Schedule runs fn after delay unless replaced or cancelled first.
// fn must not call back into this Deferred.
func (d *Deferred) Schedule(delay time.Duration, fn func()) {
	t := d.slot.Next()

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.live = true
	d.timer = d.clock.AfterFunc(delay, func() {
		t.Apply(func() {
			d.mu.Lock()
			d.live = false
			d.timer = nil
			d.mu.Unlock()
			fn()
		})
	})
}

// Cancel drops the pending task. Returns true if one was pending.
func (d *Deferred) Cancel() bool {
	d.slot.Invalidate()

	d.mu.Lock()
	defer d.mu.Unlock()
	wasLive := d.live
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.live = false
	return wasLive
}

// Pending reports whether a task is scheduled and has not yet run.
func (d *Deferred) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

// --- ManualClock ---

// ManualClock is a Clock that only moves when Advance is called. Callbacks run
// synchronously on the goroutine calling Advance, in due-time order.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	clock   *ManualClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

// NewManualClock returns a clock starting at zero elapsed time.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// AfterFunc registers f to run once the clock has advanced by d.
func (c *ManualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and fires every timer that became due.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*manualTimer
	kept := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case t.stopped:
		case t.at <= c.now:
			t.fired = true
			due = append(due, t)
		default:
			kept = append(kept, t)
		}
	}
	c.timers = kept
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

// Elapsed returns how far the clock has been advanced.
func (c *ManualClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Waiting returns the number of timers not yet fired or stopped.
func (c *ManualClock) Waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}
