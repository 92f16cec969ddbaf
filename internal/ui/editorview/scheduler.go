// Package editorview hosts an editor.Editor inside a Bubble Tea program.
// The program's update loop is the editor's event loop.
package editorview

import (
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Sender delivers messages to a running program. *tea.Program and teatest's
// TestModel both implement it.
type Sender interface {
	Send(msg tea.Msg)
}

// drainMsg asks the model to run queued callbacks.
type drainMsg struct{}

// ProgramScheduler implements eventloop.Scheduler on top of a Bubble Tea
// program. Posted callbacks run inside Update when the model calls Drain.
type ProgramScheduler struct {
	mu     sync.Mutex
	sender Sender
	queue  []func()
	woken  bool
	timers map[*time.Timer]struct{}
	closed bool
}

func NewProgramScheduler() *ProgramScheduler {
	return &ProgramScheduler{timers: make(map[*time.Timer]struct{})}
}

// Attach connects the scheduler to its program. Work posted before Attach
// runs on the first drain after it.
func (s *ProgramScheduler) Attach(sender Sender) {
	s.mu.Lock()
	s.sender = sender
	pending := len(s.queue) > 0
	s.mu.Unlock()
	if pending {
		s.wake()
	}
}

// Send forwards msg to the attached program. It must not be called from the
// update loop; msg is dropped when no program is attached.
func (s *ProgramScheduler) Send(msg tea.Msg) bool {
	s.mu.Lock()
	sender, closed := s.sender, s.closed
	s.mu.Unlock()
	if sender == nil || closed {
		return false
	}
	sender.Send(msg)
	return true
}

func (s *ProgramScheduler) Post(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, fn)
	s.mu.Unlock()
	s.wake()
}

// wake sends one drainMsg per batch. The send happens on its own goroutine
// because Post is also called from inside Update, where a synchronous Send
// would block the loop that has to receive it.
func (s *ProgramScheduler) wake() {
	s.mu.Lock()
	if s.woken || s.sender == nil || s.closed {
		s.mu.Unlock()
		return
	}
	s.woken = true
	sender := s.sender
	s.mu.Unlock()
	go sender.Send(drainMsg{})
}

func (s *ProgramScheduler) After(d time.Duration, fn func()) func() {
	var cancelled atomic.Bool
	var t *time.Timer
	s.mu.Lock()
	t = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, t)
		s.mu.Unlock()
		s.Post(func() {
			if !cancelled.Load() {
				fn()
			}
		})
	})
	s.timers[t] = struct{}{}
	s.mu.Unlock()

	return func() {
		cancelled.Store(true)
		s.mu.Lock()
		delete(s.timers, t)
		s.mu.Unlock()
		t.Stop()
	}
}

func (s *ProgramScheduler) Go(work func()) { go work() }

// Drain runs queued callbacks, including ones they post, until the queue is
// empty. It must be called from the update loop.
func (s *ProgramScheduler) Drain() {
	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		if len(batch) == 0 {
			s.woken = false
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
		for _, fn := range batch {
			fn()
		}
	}
}

// Pending reports queued callbacks and armed timers.
func (s *ProgramScheduler) Pending() (queued, timers int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue), len(s.timers)
}

// Close stops every timer and drops queued work.
func (s *ProgramScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.queue = nil
	for t := range s.timers {
		t.Stop()
	}
	clear(s.timers)
}
