package eventloop

import (
	"sort"
	"time"
)

// Manual is a deterministic Scheduler driven by the caller. Time only moves
// through Advance, queued tasks only run through Flush, and Go runs work
// inline so collaborator fakes complete before Go returns.
type Manual struct {
	now    time.Time
	queue  []func()
	timers []*manualTimer
	seq    int
}

type manualTimer struct {
	at        time.Time
	seq       int
	fn        func()
	cancelled bool
}

// NewManual returns a scheduler whose clock starts at the Unix epoch.
func NewManual() *Manual {
	return &Manual{now: time.Unix(0, 0)}
}

// Now returns the scheduler clock.
func (m *Manual) Now() time.Time { return m.now }

func (m *Manual) Post(fn func()) { m.queue = append(m.queue, fn) }

func (m *Manual) After(d time.Duration, fn func()) func() {
	m.seq++
	t := &manualTimer{at: m.now.Add(d), seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return func() { t.cancelled = true }
}

func (m *Manual) Go(work func()) { work() }

// Flush runs queued tasks, including ones they queue, until none remain.
func (m *Manual) Flush() {
	for len(m.queue) > 0 {
		fn := m.queue[0]
		m.queue = m.queue[1:]
		fn()
	}
}

// Pending reports the number of live timers.
func (m *Manual) Pending() int {
	n := 0
	for _, t := range m.timers {
		if !t.cancelled {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, firing due timers in order and
// flushing the queue after each.
func (m *Manual) Advance(d time.Duration) {
	target := m.now.Add(d)
	m.Flush()
	for {
		next := m.nextDue(target)
		if next == nil {
			break
		}
		m.now = next.at
		next.cancelled = true
		next.fn()
		m.Flush()
	}
	m.now = target
	m.compact()
}

func (m *Manual) nextDue(limit time.Time) *manualTimer {
	live := make([]*manualTimer, 0, len(m.timers))
	for _, t := range m.timers {
		if !t.cancelled && !t.at.After(limit) {
			live = append(live, t)
		}
	}
	if len(live) == 0 {
		return nil
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].at.Equal(live[j].at) {
			return live[i].seq < live[j].seq
		}
		return live[i].at.Before(live[j].at)
	})
	return live[0]
}

func (m *Manual) compact() {
	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.cancelled {
			live = append(live, t)
		}
	}
	m.timers = live
}
