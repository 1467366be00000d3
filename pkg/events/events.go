// Package events defines the notifications emitted when integrations change.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every integration event.
const Topic = "conduit.integrations"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	IntegrationSavedEvent       EventType = "integration.saved"
	IntegrationDeletedEvent     EventType = "integration.deleted"
	IntegrationPublishedEvent   EventType = "integration.published"
	IntegrationUnpublishedEvent EventType = "integration.unpublished"
	IntegrationTaggedEvent      EventType = "integration.tagged"
	ActivityRecordedEvent       EventType = "activity.recorded"
)

type BaseEvent struct {
	ID            string            `json:"id"`
	Type          EventType         `json:"type"`
	Timestamp     time.Time         `json:"timestamp"`
	IntegrationID string            `json:"integration_id"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewBaseEvent stamps a new event for the integration.
func NewBaseEvent(eventType EventType, integrationID string) BaseEvent {
	return BaseEvent{
		ID:            uuid.New().String(),
		Type:          eventType,
		Timestamp:     time.Now().UTC(),
		IntegrationID: integrationID,
	}
}

type IntegrationSaved struct {
	BaseEvent

	Name    string `json:"name"`
	Version int    `json:"version"`
	Created bool   `json:"created"`
}

func (e IntegrationSaved) GetType() EventType {
	return IntegrationSavedEvent
}

type IntegrationDeleted struct {
	BaseEvent
}

func (e IntegrationDeleted) GetType() EventType {
	return IntegrationDeletedEvent
}

// IntegrationPublished is emitted when a deployment's target state becomes
// Published.
type IntegrationPublished struct {
	BaseEvent

	Version int `json:"version"`
}

func (e IntegrationPublished) GetType() EventType {
	return IntegrationPublishedEvent
}

type IntegrationUnpublished struct {
	BaseEvent

	Version int `json:"version"`
}

func (e IntegrationUnpublished) GetType() EventType {
	return IntegrationUnpublishedEvent
}

type IntegrationTagged struct {
	BaseEvent

	Environments []string `json:"environments"`
}

func (e IntegrationTagged) GetType() EventType {
	return IntegrationTaggedEvent
}

type ActivityRecorded struct {
	BaseEvent

	ActivityID string `json:"activity_id"`
	Failed     bool   `json:"failed"`
}

func (e ActivityRecorded) GetType() EventType {
	return ActivityRecordedEvent
}
