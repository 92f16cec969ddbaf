// Package pubsub fans editor and log events out to any number of listeners,
// typically the terminal host's update loop.
package pubsub

import (
	"context"
	"time"
)

// EventType names what happened.
type EventType string

const (
	LoggedEvent       EventType = "logged"        // a log line was written
	ChangedEvent      EventType = "changed"       // the document changed
	ModeChangedEvent  EventType = "mode-changed"  // the editor switched mode
	DraftSavedEvent   EventType = "draft-saved"   // a draft flush succeeded
	DraftClearedEvent EventType = "draft-cleared" // stored drafts were removed
	UploadEvent       EventType = "upload"        // an image upload started or finished
)

// Event is a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher publishes events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
