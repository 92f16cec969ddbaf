package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, ch <-chan Event[T]) Event[T] {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(time.Second):
		require.FailNow(t, "timeout waiting for event")
		return Event[T]{}
	}
}

func TestBroker_Subscribe(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	broker := NewBroker[string](WithClock(func() time.Time { return at }))
	defer broker.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := broker.Subscribe(ctx)
	broker.Publish(DraftSavedEvent, "draftpad-new-thread-storedText")

	event := receive(t, ch)
	require.Equal(t, DraftSavedEvent, event.Type)
	require.Equal(t, "draftpad-new-thread-storedText", event.Payload)
	require.Equal(t, at, event.Timestamp)
}

func TestBroker_MultipleSubscribers(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subs := []<-chan Event[int]{broker.Subscribe(ctx), broker.Subscribe(ctx), broker.Subscribe(ctx)}
	broker.Publish(ChangedEvent, 42)

	for i, ch := range subs {
		event := receive(t, ch)
		require.Equal(t, 42, event.Payload, "subscriber %d", i)
	}
	require.Equal(t, 3, broker.SubscriberCount())
}

func TestBroker_ContextCancellationClosesChannel(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Close()
	ctx, cancel := context.WithCancel(context.Background())

	ch := broker.Subscribe(ctx)
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	require.Zero(t, broker.SubscriberCount())
}

func TestBroker_FullSubscriberDropsAndCounts(t *testing.T) {
	broker := NewBroker[int](WithBufferSize(1))
	defer broker.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := broker.Subscribe(ctx)
	broker.Publish(ChangedEvent, 1)
	broker.Publish(ChangedEvent, 2)
	broker.Publish(ChangedEvent, 3)

	require.Equal(t, 1, receive(t, ch).Payload)
	require.EqualValues(t, 2, broker.Dropped())
}

func TestBroker_Close(t *testing.T) {
	broker := NewBroker[string]()
	ch := broker.Subscribe(context.Background())
	broker.Close()

	_, ok := <-ch
	require.False(t, ok)

	late := broker.Subscribe(context.Background())
	_, ok = <-late
	require.False(t, ok, "subscribing after close yields a closed channel")

	broker.Publish(ChangedEvent, "ignored")
	broker.Close()
}
