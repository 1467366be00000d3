// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"strconv"
	"time"

	"github.com/dukex/conduit/pkg/models"
	"github.com/google/uuid"
)

// CreateTestIntegration creates an integration with one flow holding a
// connection step and a log step. Overrides are applied in order.
func CreateTestIntegration(overrides ...func(*models.Integration)) *models.Integration {
	now := time.Now().UTC().Truncate(time.Millisecond)

	integration := &models.Integration{
		ID:          uuid.New().String(),
		Name:        "Orders to warehouse",
		Description: "Moves new orders into the warehouse queue",
		Flows: []*models.Flow{
			{
				ID:   "flow-1",
				Name: "main",
				Steps: []*models.Step{
					CreateTestConnectionStep(),
					{
						ID:       "log-1",
						StepKind: "log",
						Name:     "Log",
						ConfiguredProperties: map[string]any{
							"bodyLoggingEnabled": "true",
						},
					},
				},
			},
		},
		Tags:      []string{"sql"},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, override := range overrides {
		override(integration)
	}

	return integration
}

// WithID sets the integration ID.
func WithID(id string) func(*models.Integration) {
	return func(i *models.Integration) {
		i.ID = id
	}
}

// WithName sets the integration name.
func WithName(name string) func(*models.Integration) {
	return func(i *models.Integration) {
		i.Name = name
	}
}

// WithCreatedAt sets the creation and update timestamps.
func WithCreatedAt(at time.Time) func(*models.Integration) {
	return func(i *models.Integration) {
		i.CreatedAt = at
		i.UpdatedAt = at
	}
}

// CreateTestConnection creates a SQL connection exposing a single action.
func CreateTestConnection() *models.Connection {
	return &models.Connection{
		ID:          "sql-db",
		Name:        "Orders DB",
		ConnectorID: "sql",
		Actions: []*models.Action{
			{
				ID:      "sql-start",
				Name:    "Periodic SQL invocation",
				Pattern: "From",
			},
		},
	}
}

// CreateTestConnectionStep creates an endpoint step using CreateTestConnection.
func CreateTestConnectionStep() *models.Step {
	connection := CreateTestConnection()

	return &models.Step{
		ID:         "sql-step",
		StepKind:   models.StepKindEndpoint,
		Name:       "Read orders",
		Connection: connection,
		Action:     connection.Actions[0],
		ConfiguredProperties: map[string]any{
			"query": "SELECT * FROM orders",
		},
	}
}

// CreateTestDeployment snapshots integration as a published deployment.
func CreateTestDeployment(integration *models.Integration, version int) *models.Deployment {
	now := time.Now().UTC().Truncate(time.Millisecond)

	return &models.Deployment{
		ID:            integration.ID + ":" + strconv.Itoa(version),
		IntegrationID: integration.ID,
		Version:       version,
		TargetState:   models.DeploymentStatePublished,
		CurrentState:  models.DeploymentStatePublished,
		Spec:          integration.Clone(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CreateTestActivity creates an exchange with two steps at the given Unix
// millisecond timestamp.
func CreateTestActivity(at int64) *models.Activity {
	return &models.Activity{
		ID:      uuid.New().String(),
		Version: "1",
		At:      at,
		Steps: []*models.StepExecution{
			{ID: "sql-step", Name: "Read orders", At: at, Duration: 1_200_000},
			{ID: "log-1", Name: "Log", At: at + 2, Duration: 80_000, Output: "3 orders"},
		},
	}
}
