// Package eventbus carries integration events between the sandbox components.
package eventbus

import (
	"context"

	"github.com/dukex/conduit/pkg/events"
)

// Event is any payload of the events package.
type Event interface {
	GetType() events.EventType
}

// EventPublisher is what services need to announce changes. key is the
// integration id, used as the partition key by brokers.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber dispatches decoded events to one handler per type.
// Handlers must be registered before Subscribe.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a pointer to the concrete event type. Returning an
// error nacks the message.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
