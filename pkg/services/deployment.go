package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/dukex/conduit/pkg/eventbus"
	"github.com/dukex/conduit/pkg/events"
	"github.com/dukex/conduit/pkg/models"
	"github.com/dukex/conduit/pkg/persistence"
)

// Deployment manages the published versions of integrations.
type Deployment struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	logger      *slog.Logger

	// mu serialises version allocation and target state changes within
	// the process.
	mu sync.Mutex
}

// NewDeployment creates a new deployment service. A nil publisher disables events.
func NewDeployment(persistence persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger) *Deployment {
	return &Deployment{
		persistence: persistence,
		publisher:   publisher,
		logger:      logger,
	}
}

// List returns the deployments of an integration ordered by version.
func (s *Deployment) List(ctx context.Context, integrationID string) ([]*models.Deployment, error) {
	if err := s.requireIntegration(ctx, "List", integrationID); err != nil {
		return nil, err
	}

	deployments, err := s.persistence.Deployments(ctx, integrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}

	return deployments, nil
}

// Get retrieves a single deployment.
func (s *Deployment) Get(ctx context.Context, integrationID string, version int) (*models.Deployment, error) {
	deployment, err := s.persistence.DeploymentByVersion(ctx, integrationID, version)
	if err != nil {
		return nil, err
	}

	if deployment == nil {
		return nil, persistence.NewDeploymentError("Get", integrationID, version, ErrDeploymentNotFound)
	}

	return deployment, nil
}

// Deploy snapshots the current integration into a new deployment targeted
// at Published. Every other deployment of the integration is unpublished.
func (s *Deployment) Deploy(ctx context.Context, integrationID string) (*models.Deployment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	integration, err := s.persistence.IntegrationByID(ctx, integrationID)
	if err != nil {
		return nil, err
	}

	if integration == nil {
		return nil, persistence.NewIntegrationError("Deploy", integrationID, ErrIntegrationNotFound)
	}

	existing, err := s.persistence.Deployments(ctx, integrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}

	version := 1
	if len(existing) > 0 {
		version = existing[len(existing)-1].Version + 1
	}

	snapshot, err := snapshotOf(integration)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	deployment := &models.Deployment{
		ID:            integrationID + ":" + strconv.Itoa(version),
		IntegrationID: integrationID,
		Version:       version,
		TargetState:   models.DeploymentStatePublished,
		CurrentState:  models.DeploymentStatePending,
		Spec:          snapshot,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.persistence.SaveDeployment(ctx, deployment); err != nil {
		return nil, fmt.Errorf("failed to save deployment: %w", err)
	}

	if err := s.unpublishOthers(ctx, existing); err != nil {
		return nil, err
	}

	s.publishState(ctx, deployment)

	return deployment, nil
}

// SetTargetState requests a deployment be published or unpublished.
// Publishing a version unpublishes the others.
func (s *Deployment) SetTargetState(ctx context.Context, integrationID string, version int, state models.DeploymentState) (*models.Deployment, error) {
	if !state.Valid() {
		return nil, NewValidationError("SetTargetState", "INVALID_TARGET_STATE",
			fmt.Sprintf("target state %q is not one of Published, Unpublished", state), ErrInvalidTargetState)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deployment, err := s.Get(ctx, integrationID, version)
	if err != nil {
		return nil, err
	}

	deployment.TargetState = state
	deployment.CurrentState = models.DeploymentStatePending
	deployment.UpdatedAt = time.Now().UTC()

	if err := s.persistence.SaveDeployment(ctx, deployment); err != nil {
		return nil, fmt.Errorf("failed to save deployment: %w", err)
	}

	if state == models.DeploymentStatePublished {
		others, err := s.persistence.Deployments(ctx, integrationID)
		if err != nil {
			return nil, fmt.Errorf("failed to list deployments: %w", err)
		}

		if err := s.unpublishOthers(ctx, excludeVersion(others, version)); err != nil {
			return nil, err
		}
	}

	s.publishState(ctx, deployment)

	return deployment, nil
}

// Reconcile moves a deployment's current state to its target state.
func (s *Deployment) Reconcile(ctx context.Context, integrationID string, version int) error {
	deployment, err := s.persistence.DeploymentByVersion(ctx, integrationID, version)
	if err != nil {
		return err
	}

	// Deleted together with its integration.
	if deployment == nil {
		return nil
	}

	if deployment.CurrentState == deployment.TargetState {
		return nil
	}

	deployment.CurrentState = deployment.TargetState
	deployment.UpdatedAt = time.Now().UTC()

	if err := s.persistence.SaveDeployment(ctx, deployment); err != nil {
		return fmt.Errorf("failed to reconcile deployment: %w", err)
	}

	s.logger.InfoContext(ctx, "deployment reconciled",
		"integration_id", integrationID, "version", version, "state", deployment.CurrentState)

	return nil
}

// RegisterReconciler subscribes Reconcile to publish state events.
func (s *Deployment) RegisterReconciler(subscriber eventbus.EventSubscriber) error {
	if err := subscriber.Handle(events.IntegrationPublishedEvent, func(ctx context.Context, event any) error {
		published, ok := event.(*events.IntegrationPublished)
		if !ok {
			return fmt.Errorf("unexpected event %T", event)
		}

		return s.Reconcile(ctx, published.IntegrationID, published.Version)
	}); err != nil {
		return err
	}

	return subscriber.Handle(events.IntegrationUnpublishedEvent, func(ctx context.Context, event any) error {
		unpublished, ok := event.(*events.IntegrationUnpublished)
		if !ok {
			return fmt.Errorf("unexpected event %T", event)
		}

		return s.Reconcile(ctx, unpublished.IntegrationID, unpublished.Version)
	})
}

func (s *Deployment) unpublishOthers(ctx context.Context, deployments []*models.Deployment) error {
	for _, other := range deployments {
		if other.TargetState == models.DeploymentStateUnpublished {
			continue
		}

		other.TargetState = models.DeploymentStateUnpublished
		other.CurrentState = models.DeploymentStatePending
		other.UpdatedAt = time.Now().UTC()

		if err := s.persistence.SaveDeployment(ctx, other); err != nil {
			return fmt.Errorf("failed to unpublish deployment %d: %w", other.Version, err)
		}

		s.publishState(ctx, other)
	}

	return nil
}

func (s *Deployment) publishState(ctx context.Context, deployment *models.Deployment) {
	var event eventbus.Event

	if deployment.TargetState == models.DeploymentStatePublished {
		event = events.IntegrationPublished{
			BaseEvent: events.NewBaseEvent(events.IntegrationPublishedEvent, deployment.IntegrationID),
			Version:   deployment.Version,
		}
	} else {
		event = events.IntegrationUnpublished{
			BaseEvent: events.NewBaseEvent(events.IntegrationUnpublishedEvent, deployment.IntegrationID),
			Version:   deployment.Version,
		}
	}

	publish(ctx, s.publisher, s.logger, deployment.IntegrationID, event)
}

func (s *Deployment) requireIntegration(ctx context.Context, op, integrationID string) error {
	integration, err := s.persistence.IntegrationByID(ctx, integrationID)
	if err != nil {
		return err
	}

	if integration == nil {
		return persistence.NewIntegrationError(op, integrationID, ErrIntegrationNotFound)
	}

	return nil
}

func excludeVersion(deployments []*models.Deployment, version int) []*models.Deployment {
	out := make([]*models.Deployment, 0, len(deployments))

	for _, d := range deployments {
		if d.Version != version {
			out = append(out, d)
		}
	}

	return out
}

// snapshotOf deep-copies an integration so later edits do not leak into
// the deployment.
func snapshotOf(integration *models.Integration) (*models.Integration, error) {
	raw, err := json.Marshal(integration)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot integration: %w", err)
	}

	var snapshot models.Integration
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to snapshot integration: %w", err)
	}

	return &snapshot, nil
}
