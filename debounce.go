package arbor

import "time"

// debouncer is a trailing debounce driven by the frame clock. Each call to
// schedule replaces the pending function and restarts the window; the
// function runs on the first tick at or after the window closes.
//
// A zero delay coalesces every schedule within one frame into a single call
// on the next tick.
type debouncer struct {
	delay   time.Duration
	pending func()
	due     time.Duration
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay}
}

// schedule arms the debouncer with fn, dropping any earlier pending call.
func (d *debouncer) schedule(now time.Duration, fn func()) {
	d.pending = fn
	d.due = now + d.delay
}

// tick runs the pending call if its window has closed. It reports whether a
// call ran.
func (d *debouncer) tick(now time.Duration) bool {
	if d.pending == nil || now < d.due {
		return false
	}
	return d.flush()
}

// flush runs the pending call immediately.
func (d *debouncer) flush() bool {
	fn := d.pending
	if fn == nil {
		return false
	}
	d.pending = nil
	fn()
	return true
}

// cancel drops the pending call.
func (d *debouncer) cancel() {
	d.pending = nil
}

// armed reports whether a call is pending.
func (d *debouncer) armed() bool {
	return d.pending != nil
}
