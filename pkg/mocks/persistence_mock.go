package mocks

import (
	"context"

	"github.com/dukex/conduit/pkg/models"
	"github.com/dukex/conduit/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) Integrations(ctx context.Context) ([]*models.Integration, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Integration), args.Error(1)
}

func (m *MockPersistence) IntegrationByID(ctx context.Context, id string) (*models.Integration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Integration), args.Error(1)
}

func (m *MockPersistence) SaveIntegration(ctx context.Context, integration *models.Integration) error {
	args := m.Called(ctx, integration)

	return args.Error(0)
}

func (m *MockPersistence) DeleteIntegration(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockPersistence) Deployments(ctx context.Context, integrationID string) ([]*models.Deployment, error) {
	args := m.Called(ctx, integrationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Deployment), args.Error(1)
}

func (m *MockPersistence) DeploymentByVersion(ctx context.Context, integrationID string, version int) (*models.Deployment, error) {
	args := m.Called(ctx, integrationID, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Deployment), args.Error(1)
}

func (m *MockPersistence) SaveDeployment(ctx context.Context, deployment *models.Deployment) error {
	args := m.Called(ctx, deployment)

	return args.Error(0)
}

func (m *MockPersistence) Activities(ctx context.Context, integrationID string) ([]*models.Activity, error) {
	args := m.Called(ctx, integrationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Activity), args.Error(1)
}

func (m *MockPersistence) SaveActivity(ctx context.Context, integrationID string, activity *models.Activity) error {
	args := m.Called(ctx, integrationID, activity)

	return args.Error(0)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

var _ persistence.Persistence = (*MockPersistence)(nil)
