package session

import (
	"sync"
	"time"
)

// debouncer coalesces rapid calls into a single callback after a quiet
// period. Every Call restarts the window, so the callback fires once the
// caller has been idle for the full delay. At most one invocation is
// pending at a time; Cancel invalidates any scheduled or in-flight timer.
type debouncer struct {
	mu       sync.Mutex
	delay    time.Duration
	timer    *time.Timer
	pending  bool
	seq      uint64 // invalidates stale timer callbacks
	callback func()
}

func newDebouncer(delay time.Duration, callback func()) *debouncer {
	return &debouncer{delay: delay, callback: callback}
}

// Call schedules the callback after the debounce delay, cancelling any
// previously scheduled run.
func (d *debouncer) Call() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = true
	d.seq++
	current := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.pending && d.seq == current {
			d.pending = false
			d.mu.Unlock()
			d.callback()
			return
		}
		d.mu.Unlock()
	})
}

// Flush runs the callback immediately if a call is pending.
func (d *debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++

	if d.pending {
		d.pending = false
		d.mu.Unlock()
		d.callback()
		return
	}
	d.mu.Unlock()
}

// Cancel drops any pending call without running it.
func (d *debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
	d.pending = false
}
