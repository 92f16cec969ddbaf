package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const defaultBufferSize = 64

// Broker delivers each published event to every current subscriber.
// Publishing never blocks: a subscriber whose buffer is full misses the
// event, and the miss is counted.
type Broker[T any] struct {
	mu         sync.RWMutex
	subs       map[chan Event[T]]struct{}
	done       chan struct{}
	bufferSize int
	now        func() time.Time
	dropped    atomic.Int64
}

// BrokerOption configures a Broker.
type BrokerOption func(*brokerOptions)

type brokerOptions struct {
	bufferSize int
	now        func() time.Time
}

// WithBufferSize sets each subscriber's channel capacity.
func WithBufferSize(n int) BrokerOption {
	return func(o *brokerOptions) { o.bufferSize = n }
}

// WithClock sets the source of event timestamps.
func WithClock(now func() time.Time) BrokerOption {
	return func(o *brokerOptions) { o.now = now }
}

// NewBroker creates a broker with a 64-event buffer per subscriber.
func NewBroker[T any](opts ...BrokerOption) *Broker[T] {
	o := brokerOptions{bufferSize: defaultBufferSize, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Broker[T]{
		subs:       make(map[chan Event[T]]struct{}),
		done:       make(chan struct{}),
		bufferSize: max(o.bufferSize, 0),
		now:        o.now,
	}
}

// Subscribe returns a channel of events published from now on. The channel
// is closed when ctx is cancelled or the broker is closed.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed() {
		ch := make(chan Event[T])
		close(ch)
		return ch
	}

	sub := make(chan Event[T], b.bufferSize)
	b.subs[sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[sub]; ok {
			delete(b.subs, sub)
			close(sub)
		}
	}()

	return sub
}

func (b *Broker[T]) Publish(eventType EventType, payload T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed() {
		return
	}

	event := Event[T]{Type: eventType, Payload: payload, Timestamp: b.now()}
	for sub := range b.subs {
		select {
		case sub <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Close closes every subscription. Later publishes are ignored.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed() {
		return
	}
	close(b.done)
	for sub := range b.subs {
		close(sub)
	}
	b.subs = nil
}

func (b *Broker[T]) closed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped is the number of deliveries skipped because a subscriber was full.
func (b *Broker[T]) Dropped() int64 { return b.dropped.Load() }
