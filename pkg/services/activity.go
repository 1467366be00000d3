package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/conduit/pkg/eventbus"
	"github.com/dukex/conduit/pkg/events"
	"github.com/dukex/conduit/pkg/models"
	"github.com/dukex/conduit/pkg/persistence"
	"github.com/google/uuid"
)

// Activity stores the exchanges processed by integrations.
type Activity struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

func NewActivity(persistence persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger) *Activity {
	return &Activity{
		persistence: persistence,
		publisher:   publisher,
		logger:      logger,
	}
}

// List returns the exchanges of an integration, newest first.
func (s *Activity) List(ctx context.Context, integrationID string) ([]*models.Activity, error) {
	integration, err := s.persistence.IntegrationByID(ctx, integrationID)
	if err != nil {
		return nil, err
	}

	if integration == nil {
		return nil, persistence.NewIntegrationError("ListActivity", integrationID, ErrIntegrationNotFound)
	}

	activities, err := s.persistence.Activities(ctx, integrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}

	return activities, nil
}

// Record stores an exchange. Missing ids and timestamps are filled in.
func (s *Activity) Record(ctx context.Context, integrationID string, activity *models.Activity) (*models.Activity, error) {
	if activity == nil {
		return nil, NewValidationError("Record", "ACTIVITY_REQUIRED", "activity body is required", ErrInvalidRequest)
	}

	integration, err := s.persistence.IntegrationByID(ctx, integrationID)
	if err != nil {
		return nil, err
	}

	if integration == nil {
		return nil, persistence.NewIntegrationError("Record", integrationID, ErrIntegrationNotFound)
	}

	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}

	if activity.At == 0 {
		activity.At = time.Now().UnixMilli()
	}

	if err := s.persistence.SaveActivity(ctx, integrationID, activity); err != nil {
		return nil, fmt.Errorf("failed to record activity: %w", err)
	}

	publish(ctx, s.publisher, s.logger, integrationID, events.ActivityRecorded{
		BaseEvent:  events.NewBaseEvent(events.ActivityRecordedEvent, integrationID),
		ActivityID: activity.ID,
		Failed:     activity.Failed,
	})

	return activity, nil
}
