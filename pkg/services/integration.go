package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/conduit/pkg/eventbus"
	"github.com/dukex/conduit/pkg/events"
	"github.com/dukex/conduit/pkg/models"
	"github.com/dukex/conduit/pkg/persistence"
	"github.com/google/uuid"
)

// Integration manages integration documents.
type Integration struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

// NewIntegration creates a new integration service. A nil publisher disables events.
func NewIntegration(persistence persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger) *Integration {
	return &Integration{
		persistence: persistence,
		publisher:   publisher,
		logger:      logger,
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Integration) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List returns every integration.
func (s *Integration) List(ctx context.Context) ([]*models.Integration, error) {
	integrations, err := s.persistence.Integrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}

	return integrations, nil
}

// FetchByID retrieves an integration by its ID.
func (s *Integration) FetchByID(ctx context.Context, id string) (*models.Integration, error) {
	integration, err := s.persistence.IntegrationByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if integration == nil {
		return nil, persistence.NewIntegrationError("FetchByID", id, ErrIntegrationNotFound)
	}

	return integration, nil
}

// Create stores a new integration under a fresh ID at version 1.
func (s *Integration) Create(ctx context.Context, integration *models.Integration) (*models.Integration, error) {
	if err := validateDocument("Create", integration); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	integration.ID = uuid.New().String()
	integration.Version = 1
	integration.CreatedAt = now
	integration.UpdatedAt = now

	if integration.Tags == nil {
		integration.Tags = []string{}
	}

	if err := s.persistence.SaveIntegration(ctx, integration); err != nil {
		return nil, fmt.Errorf("failed to create integration: %w", err)
	}

	s.publish(ctx, integration.ID, events.IntegrationSaved{
		BaseEvent: events.NewBaseEvent(events.IntegrationSavedEvent, integration.ID),
		Name:      integration.Name,
		Version:   integration.Version,
		Created:   true,
	})

	return integration, nil
}

// Update replaces an existing integration, bumping its version.
func (s *Integration) Update(ctx context.Context, id string, integration *models.Integration) (*models.Integration, error) {
	if err := validateDocument("Update", integration); err != nil {
		return nil, err
	}

	existing, err := s.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.replace(ctx, existing, integration)
}

func (s *Integration) replace(ctx context.Context, existing, integration *models.Integration) (*models.Integration, error) {
	integration.ID = existing.ID
	integration.Version = existing.Version + 1
	integration.CreatedAt = existing.CreatedAt
	integration.UpdatedAt = time.Now().UTC()

	if integration.Tags == nil {
		integration.Tags = []string{}
	}

	if err := s.persistence.SaveIntegration(ctx, integration); err != nil {
		return nil, fmt.Errorf("failed to update integration: %w", err)
	}

	s.publish(ctx, integration.ID, events.IntegrationSaved{
		BaseEvent: events.NewBaseEvent(events.IntegrationSavedEvent, integration.ID),
		Name:      integration.Name,
		Version:   integration.Version,
	})

	return integration, nil
}

// protectedAttributes cannot be changed through Patch.
var protectedAttributes = []string{"id", "version", "createdAt", "updatedAt"}

// Patch merges top-level attributes into the stored document.
func (s *Integration) Patch(ctx context.Context, id string, attributes map[string]any) (*models.Integration, error) {
	existing, err := s.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(existing)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal integration: %w", err)
	}

	document := map[string]any{}
	if err := json.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("failed to unmarshal integration: %w", err)
	}

	for key, value := range attributes {
		document[key] = value
	}

	for _, key := range protectedAttributes {
		delete(document, key)
	}

	raw, err = json.Marshal(document)
	if err != nil {
		return nil, NewValidationError("Patch", "INVALID_ATTRIBUTES", err.Error(), ErrInvalidRequest)
	}

	var patched models.Integration
	if err := json.Unmarshal(raw, &patched); err != nil {
		return nil, NewValidationError("Patch", "INVALID_ATTRIBUTES", err.Error(), ErrInvalidRequest)
	}

	if err := validateDocument("Patch", &patched); err != nil {
		return nil, err
	}

	return s.replace(ctx, existing, &patched)
}

// Delete removes an integration by its ID.
func (s *Integration) Delete(ctx context.Context, id string) error {
	if _, err := s.FetchByID(ctx, id); err != nil {
		return err
	}

	if err := s.persistence.DeleteIntegration(ctx, id); err != nil {
		return fmt.Errorf("failed to delete integration: %w", err)
	}

	s.publish(ctx, id, events.IntegrationDeleted{
		BaseEvent: events.NewBaseEvent(events.IntegrationDeletedEvent, id),
	})

	return nil
}

// Tag sets the environments the integration is tagged for. Duplicates and
// blank names are dropped.
func (s *Integration) Tag(ctx context.Context, id string, environments []string) ([]string, error) {
	integration, err := s.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}

	cleaned := make([]string, 0, len(environments))
	for _, env := range models.UniqueStrings(environments) {
		if env != "" {
			cleaned = append(cleaned, env)
		}
	}

	integration.Environments = cleaned
	integration.UpdatedAt = time.Now().UTC()

	if err := s.persistence.SaveIntegration(ctx, integration); err != nil {
		return nil, fmt.Errorf("failed to tag integration: %w", err)
	}

	s.publish(ctx, id, events.IntegrationTagged{
		BaseEvent:    events.NewBaseEvent(events.IntegrationTaggedEvent, id),
		Environments: cleaned,
	})

	return cleaned, nil
}

func (s *Integration) publish(ctx context.Context, key string, event eventbus.Event) {
	publish(ctx, s.publisher, s.logger, key, event)
}

func publish(ctx context.Context, publisher eventbus.EventPublisher, logger *slog.Logger, key string, event eventbus.Event) {
	if publisher == nil {
		return
	}

	if err := publisher.Publish(ctx, key, event); err != nil {
		logger.ErrorContext(ctx, "failed to publish event", "event_type", event.GetType(), "key", key, "error", err)
	}
}

func validateDocument(op string, integration *models.Integration) error {
	if integration == nil {
		return NewValidationError(op, "INTEGRATION_REQUIRED", "integration body is required", ErrInvalidRequest)
	}

	if err := integration.Validate(); err != nil {
		return NewValidationError(op, "INVALID_INTEGRATION", err.Error(), ErrInvalidRequest)
	}

	return nil
}
