package pubsub

import (
	"context"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
)

// ListenCmd waits for the next event on ch whose type is in types (any type
// when types is empty) and returns it as a tea.Msg. It returns nil once ctx
// is cancelled or ch is closed.
func ListenCmd[T any](ctx context.Context, ch <-chan Event[T], types ...EventType) tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case <-ctx.Done():
				return nil
			case event, ok := <-ch:
				if !ok {
					return nil
				}
				if len(types) == 0 || slices.Contains(types, event.Type) {
					return event
				}
			}
		}
	}
}

// ContinuousListener keeps one subscription open across Bubble Tea updates.
// Call Listen again after handling each event.
type ContinuousListener[T any] struct {
	ctx   context.Context
	ch    <-chan Event[T]
	types []EventType
}

// NewContinuousListener subscribes to broker for the given event types, or
// all of them when none are given.
func NewContinuousListener[T any](ctx context.Context, broker *Broker[T], types ...EventType) *ContinuousListener[T] {
	return &ContinuousListener[T]{ctx: ctx, ch: broker.Subscribe(ctx), types: types}
}

func (l *ContinuousListener[T]) Listen() tea.Cmd {
	return ListenCmd(l.ctx, l.ch, l.types...)
}
