// Package persistence provides the storage abstraction for integrations,
// their deployments and exchange activity.
package persistence

import (
	"context"
	"strings"

	"github.com/dukex/conduit/pkg/models"
)

// Persistence stores integration documents. Lookups return nil without an
// error when nothing matches.
type Persistence interface {
	Integrations(ctx context.Context) ([]*models.Integration, error)
	IntegrationByID(ctx context.Context, id string) (*models.Integration, error)
	SaveIntegration(ctx context.Context, integration *models.Integration) error
	// DeleteIntegration also removes the integration's deployments and activity.
	DeleteIntegration(ctx context.Context, id string) error

	// Deployments are ordered by version, oldest first.
	Deployments(ctx context.Context, integrationID string) ([]*models.Deployment, error)
	DeploymentByVersion(ctx context.Context, integrationID string, version int) (*models.Deployment, error)
	SaveDeployment(ctx context.Context, deployment *models.Deployment) error

	// Activities are ordered newest first.
	Activities(ctx context.Context, integrationID string) ([]*models.Activity, error)
	SaveActivity(ctx context.Context, integrationID string, activity *models.Activity) error

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ValidateID rejects identifiers that are empty or could escape a key
// namespace.
func ValidateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\:`) {
		return ErrInvalidIdentifier
	}

	return nil
}
