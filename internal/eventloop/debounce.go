package eventloop

import "time"

// Debouncer coalesces bursts of calls. The first call of a burst runs
// immediately; if more calls arrive before wait passes without a call, the
// last of them runs once when the burst ends.
type Debouncer struct {
	s       Scheduler
	wait    time.Duration
	cancel  func()
	pending func()
	active  bool
}

// NewDebouncer creates a leading and trailing debouncer on s.
func NewDebouncer(s Scheduler, wait time.Duration) *Debouncer {
	return &Debouncer{s: s, wait: wait}
}

// Call must run on the loop.
func (d *Debouncer) Call(fn func()) {
	if d.active {
		d.pending = fn
	} else {
		d.active = true
		d.pending = nil
		fn()
	}
	if d.cancel != nil {
		d.cancel()
	}
	d.cancel = d.s.After(d.wait, d.flush)
}

func (d *Debouncer) flush() {
	d.active = false
	d.cancel = nil
	if fn := d.pending; fn != nil {
		d.pending = nil
		fn()
	}
}

// Stop drops any pending trailing call.
func (d *Debouncer) Stop() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.pending = nil
	d.active = false
}
