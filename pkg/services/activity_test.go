package services

import (
	"testing"

	"github.com/dukex/conduit/pkg/events"
	"github.com/dukex/conduit/pkg/models"
	"github.com/dukex/conduit/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivity_RecordAndList(t *testing.T) {
	store := newFilePersistence(t)
	bus := newPublisher()
	service := NewActivity(store, bus, testLogger())
	integration := createIntegration(t, store)

	older := testutil.CreateTestActivity(1_700_000_000_000)
	newer := testutil.CreateTestActivity(1_700_000_600_000)
	newer.Failed = true

	_, err := service.Record(t.Context(), integration.ID, older)
	require.NoError(t, err)
	_, err = service.Record(t.Context(), integration.ID, newer)
	require.NoError(t, err)

	activities, err := service.List(t.Context(), integration.ID)
	require.NoError(t, err)
	require.Len(t, activities, 2)
	assert.Equal(t, newer.ID, activities[0].ID)
	assert.Equal(t, older.ID, activities[1].ID)

	recorded, ok := lastPublished(bus).(events.ActivityRecorded)
	require.True(t, ok)
	assert.Equal(t, newer.ID, recorded.ActivityID)
	assert.True(t, recorded.Failed)
}

func TestActivity_RecordFillsDefaults(t *testing.T) {
	store := newFilePersistence(t)
	service := NewActivity(store, nil, testLogger())
	integration := createIntegration(t, store)

	recorded, err := service.Record(t.Context(), integration.ID, &models.Activity{})
	require.NoError(t, err)

	assert.NotEmpty(t, recorded.ID)
	assert.NotZero(t, recorded.At)
}

func TestActivity_Errors(t *testing.T) {
	service := NewActivity(newFilePersistence(t), nil, testLogger())

	_, err := service.Record(t.Context(), "missing", &models.Activity{})
	assert.True(t, IsNotFoundError(err))

	_, err = service.Record(t.Context(), "missing", nil)
	assert.True(t, IsValidationError(err))

	_, err = service.List(t.Context(), "missing")
	assert.True(t, IsNotFoundError(err))
}
