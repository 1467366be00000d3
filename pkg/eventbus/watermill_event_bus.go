package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/conduit/pkg/events"
)

// ErrNilHandler is returned by Handle when no handler is given.
var ErrNilHandler = errors.New("event handler is nil")

var decoders = map[events.EventType]func() Event{
	events.IntegrationSavedEvent:       func() Event { return &events.IntegrationSaved{} },
	events.IntegrationDeletedEvent:     func() Event { return &events.IntegrationDeleted{} },
	events.IntegrationPublishedEvent:   func() Event { return &events.IntegrationPublished{} },
	events.IntegrationUnpublishedEvent: func() Event { return &events.IntegrationUnpublished{} },
	events.IntegrationTaggedEvent:      func() Event { return &events.IntegrationTagged{} },
	events.ActivityRecordedEvent:       func() Event { return &events.ActivityRecorded{} },
}

// NewEvent returns an empty event for eventType, ready to be unmarshalled.
func NewEvent(eventType events.EventType) (Event, bool) {
	decoder, ok := decoders[eventType]
	if !ok {
		return nil, false
	}

	return decoder(), true
}

// WatermillEventBus publishes every event on events.Topic with its type and
// key in the message metadata.
type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger

	mu       sync.RWMutex
	handlers map[events.EventType]EventHandler
}

// Option configures a WatermillEventBus.
type Option func(*WatermillEventBus)

// WithLogger sets the logger used to report dropped messages.
func WithLogger(logger *slog.Logger) Option {
	return func(eb *WatermillEventBus) {
		eb.logger = logger
	}
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber, opts ...Option) *WatermillEventBus {
	eb := &WatermillEventBus{
		publisher:  pub,
		subscriber: sub,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		handlers:   make(map[events.EventType]EventHandler),
	}

	for _, opt := range opts {
		opt(eb)
	}

	return eb
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event.GetType(), err)
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return eb.publisher.Publish(events.Topic, msg)
}

// Subscribe starts dispatching in the background until ctx is done or the
// subscriber is closed.
func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", events.Topic, err)
	}

	go func() {
		for msg := range messages {
			if err := eb.dispatch(ctx, msg); err != nil {
				eb.logger.WarnContext(ctx, "Dropping event",
					"message_id", msg.UUID,
					"event_type", msg.Metadata.Get(events.EventTypeMetadataKey),
					"key", msg.Metadata.Get(events.EventMetadataKey),
					"error", err)
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}()

	return nil
}

// dispatch decodes msg and runs its handler. Types without a handler are
// acknowledged untouched.
func (eb *WatermillEventBus) dispatch(ctx context.Context, msg *message.Message) error {
	eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

	eb.mu.RLock()
	handler, ok := eb.handlers[eventType]
	eb.mu.RUnlock()

	if !ok {
		return nil
	}

	event, known := NewEvent(eventType)
	if !known {
		return fmt.Errorf("unknown event type %q", eventType)
	}

	if err := json.Unmarshal(msg.Payload, event); err != nil {
		return fmt.Errorf("failed to decode %s event: %w", eventType, err)
	}

	return handler(ctx, event)
}

// Handle registers handler for eventType, replacing any previous one.
func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	if handler == nil {
		return ErrNilHandler
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = handler

	return nil
}

func (eb *WatermillEventBus) Close() error {
	return errors.Join(eb.publisher.Close(), eb.subscriber.Close())
}

var _ EventBus = (*WatermillEventBus)(nil)
