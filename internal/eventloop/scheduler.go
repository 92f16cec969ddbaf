// Package eventloop provides the single cooperative thread the editor runs
// on. Every handler, timer callback and async continuation is executed by a
// Scheduler one at a time, so editor state needs no locking.
package eventloop

import "time"

// Scheduler runs callbacks on the loop.
type Scheduler interface {
	// Post queues fn to run on the loop.
	Post(fn func())
	// After runs fn on the loop once d has elapsed. cancel prevents a pending run.
	After(d time.Duration, fn func()) (cancel func())
	// Go runs blocking work off the loop. work delivers results with Post.
	Go(work func())
}

// Every runs fn on the loop each interval until the returned cancel is called.
func Every(s Scheduler, interval time.Duration, fn func()) (cancel func()) {
	t := &ticker{s: s, interval: interval, fn: fn}
	t.arm()
	return t.stop
}

type ticker struct {
	s        Scheduler
	interval time.Duration
	fn       func()
	cancel   func()
	stopped  bool
}

func (t *ticker) arm() {
	t.cancel = t.s.After(t.interval, func() {
		if t.stopped {
			return
		}
		t.fn()
		if !t.stopped {
			t.arm()
		}
	})
}

func (t *ticker) stop() {
	t.stopped = true
	if t.cancel != nil {
		t.cancel()
	}
}
