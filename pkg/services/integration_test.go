package services

import (
	"errors"
	"testing"

	"github.com/dukex/conduit/pkg/events"
	"github.com/dukex/conduit/pkg/mocks"
	"github.com/dukex/conduit/pkg/models"
	"github.com/dukex/conduit/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestIntegration_Create(t *testing.T) {
	bus := newPublisher()
	service := NewIntegration(newFilePersistence(t), bus, testLogger())

	doc := testutil.CreateTestIntegration(testutil.WithID(""))
	doc.Tags = nil

	created, err := service.Create(t.Context(), doc)
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 1, created.Version)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, []string{}, created.Tags)

	stored, err := service.FetchByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, stored.Name)

	saved, ok := lastPublished(bus).(events.IntegrationSaved)
	require.True(t, ok)
	assert.True(t, saved.Created)
	assert.Equal(t, created.ID, saved.IntegrationID)
}

func TestIntegration_CreateIgnoresClientID(t *testing.T) {
	service := NewIntegration(newFilePersistence(t), nil, testLogger())

	created, err := service.Create(t.Context(), testutil.CreateTestIntegration(testutil.WithID("chosen")))
	require.NoError(t, err)
	assert.NotEqual(t, "chosen", created.ID)
}

func TestIntegration_CreateInvalid(t *testing.T) {
	service := NewIntegration(newFilePersistence(t), nil, testLogger())

	_, err := service.Create(t.Context(), nil)
	assert.True(t, IsValidationError(err))

	doc := testutil.CreateTestIntegration()
	doc.Flows = append(doc.Flows, &models.Flow{ID: "flow-1"})

	_, err = service.Create(t.Context(), doc)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Equal(t, "INVALID_INTEGRATION", ErrorCode(err))
}

func TestIntegration_Update(t *testing.T) {
	service := NewIntegration(newFilePersistence(t), nil, testLogger())

	created, err := service.Create(t.Context(), testutil.CreateTestIntegration())
	require.NoError(t, err)

	replacement := testutil.CreateTestIntegration(testutil.WithID("ignored"), testutil.WithName("Renamed"))

	updated, err := service.Update(t.Context(), created.ID, replacement)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "Renamed", updated.Name)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
}

func TestIntegration_UpdateMissing(t *testing.T) {
	service := NewIntegration(newFilePersistence(t), nil, testLogger())

	_, err := service.Update(t.Context(), "missing", testutil.CreateTestIntegration())
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestIntegration_Patch(t *testing.T) {
	service := NewIntegration(newFilePersistence(t), nil, testLogger())

	created, err := service.Create(t.Context(), testutil.CreateTestIntegration())
	require.NoError(t, err)

	patched, err := service.Patch(t.Context(), created.ID, map[string]any{
		"id":    "other",
		"name":  "Patched",
		"flows": []any{map[string]any{"id": "flow-9", "steps": []any{}}},
	})
	require.NoError(t, err)

	assert.Equal(t, created.ID, patched.ID)
	assert.Equal(t, "Patched", patched.Name)
	assert.Equal(t, created.Description, patched.Description)
	require.Len(t, patched.Flows, 1)
	assert.Equal(t, "flow-9", patched.Flows[0].ID)
	assert.Equal(t, 2, patched.Version)
}

func TestIntegration_PatchInvalid(t *testing.T) {
	service := NewIntegration(newFilePersistence(t), nil, testLogger())

	created, err := service.Create(t.Context(), testutil.CreateTestIntegration())
	require.NoError(t, err)

	_, err = service.Patch(t.Context(), created.ID, map[string]any{"name": 5})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	_, err = service.Patch(t.Context(), "missing", map[string]any{"name": "x"})
	assert.True(t, IsNotFoundError(err))
}

func TestIntegration_Delete(t *testing.T) {
	bus := newPublisher()
	service := NewIntegration(newFilePersistence(t), bus, testLogger())

	created, err := service.Create(t.Context(), testutil.CreateTestIntegration())
	require.NoError(t, err)

	require.NoError(t, service.Delete(t.Context(), created.ID))

	_, err = service.FetchByID(t.Context(), created.ID)
	assert.True(t, IsNotFoundError(err))

	assert.Equal(t, []events.EventType{events.IntegrationSavedEvent, events.IntegrationDeletedEvent}, publishedTypes(bus))

	err = service.Delete(t.Context(), created.ID)
	assert.True(t, IsNotFoundError(err))
}

func TestIntegration_Tag(t *testing.T) {
	bus := newPublisher()
	service := NewIntegration(newFilePersistence(t), bus, testLogger())

	created, err := service.Create(t.Context(), testutil.CreateTestIntegration())
	require.NoError(t, err)

	environments, err := service.Tag(t.Context(), created.ID, []string{"dev", "", "prod", "dev"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dev", "prod"}, environments)

	stored, err := service.FetchByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"dev", "prod"}, stored.Environments)
	assert.Equal(t, created.Version, stored.Version)

	tagged, ok := lastPublished(bus).(events.IntegrationTagged)
	require.True(t, ok)
	assert.Equal(t, []string{"dev", "prod"}, tagged.Environments)
}

func TestIntegration_List(t *testing.T) {
	service := NewIntegration(newFilePersistence(t), nil, testLogger())

	integrations, err := service.List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, integrations)

	_, err = service.Create(t.Context(), testutil.CreateTestIntegration())
	require.NoError(t, err)

	integrations, err = service.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, integrations, 1)
}

func TestIntegration_PublishFailureIsNotFatal(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	service := NewIntegration(newFilePersistence(t), bus, testLogger())

	_, err := service.Create(t.Context(), testutil.CreateTestIntegration())
	require.NoError(t, err)
	bus.AssertNumberOfCalls(t, "Publish", 1)
}

func TestIntegration_SaveFailure(t *testing.T) {
	store := &mocks.MockPersistence{}
	store.On("SaveIntegration", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	service := NewIntegration(store, nil, testLogger())

	_, err := service.Create(t.Context(), testutil.CreateTestIntegration())
	require.Error(t, err)
	assert.False(t, IsValidationError(err))
	assert.False(t, IsNotFoundError(err))
	assert.Contains(t, err.Error(), "disk full")
}

func TestIntegration_HealthCheck(t *testing.T) {
	store := &mocks.MockPersistence{}
	store.On("HealthCheck", mock.Anything).Return(errors.New("unreachable")).Once()
	store.On("HealthCheck", mock.Anything).Return(nil).Once()

	service := NewIntegration(store, nil, testLogger())

	message, ok := service.HealthCheck(t.Context())
	assert.False(t, ok)
	assert.Contains(t, message, "unreachable")

	message, ok = service.HealthCheck(t.Context())
	assert.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", message)

	message, ok = NewIntegration(nil, nil, testLogger()).HealthCheck(t.Context())
	assert.False(t, ok)
	assert.Equal(t, "Persistence layer not initialized", message)
}
