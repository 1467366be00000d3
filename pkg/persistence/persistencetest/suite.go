// Package persistencetest holds the behaviour every persistence backend
// must share.
package persistencetest

import (
	"testing"
	"time"

	"github.com/dukex/conduit/pkg/models"
	"github.com/dukex/conduit/pkg/persistence"
	"github.com/dukex/conduit/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises a backend. newPersistence must return an empty store.
func Run(t *testing.T, newPersistence func(t *testing.T) persistence.Persistence) {
	t.Helper()

	t.Run("integration round trip", func(t *testing.T) {
		p := newPersistence(t)
		ctx := t.Context()

		integration := testutil.CreateTestIntegration()
		require.NoError(t, p.SaveIntegration(ctx, integration))

		got, err := p.IntegrationByID(ctx, integration.ID)
		require.NoError(t, err)
		assert.Equal(t, integration, got)
	})

	t.Run("missing integration", func(t *testing.T) {
		p := newPersistence(t)

		got, err := p.IntegrationByID(t.Context(), "does-not-exist")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("save overwrites", func(t *testing.T) {
		p := newPersistence(t)
		ctx := t.Context()

		integration := testutil.CreateTestIntegration()
		require.NoError(t, p.SaveIntegration(ctx, integration))

		updated := integration.Clone()
		updated.Name = "renamed"
		updated.Flows[0].Steps = updated.Flows[0].Steps[:1]
		require.NoError(t, p.SaveIntegration(ctx, updated))

		got, err := p.IntegrationByID(ctx, integration.ID)
		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Name)
		assert.Len(t, got.Flows[0].Steps, 1)

		all, err := p.Integrations(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("integrations ordered by creation", func(t *testing.T) {
		p := newPersistence(t)
		ctx := t.Context()

		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		second := testutil.CreateTestIntegration(testutil.WithName("second"), testutil.WithCreatedAt(base.Add(time.Hour)))
		first := testutil.CreateTestIntegration(testutil.WithName("first"), testutil.WithCreatedAt(base))

		require.NoError(t, p.SaveIntegration(ctx, second))
		require.NoError(t, p.SaveIntegration(ctx, first))

		all, err := p.Integrations(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "first", all[0].Name)
		assert.Equal(t, "second", all[1].Name)
	})

	t.Run("empty store", func(t *testing.T) {
		p := newPersistence(t)
		ctx := t.Context()

		all, err := p.Integrations(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)

		deployments, err := p.Deployments(ctx, "nothing")
		require.NoError(t, err)
		assert.Empty(t, deployments)

		activities, err := p.Activities(ctx, "nothing")
		require.NoError(t, err)
		assert.Empty(t, activities)
	})

	t.Run("deployments", func(t *testing.T) {
		p := newPersistence(t)
		ctx := t.Context()

		integration := testutil.CreateTestIntegration()
		require.NoError(t, p.SaveIntegration(ctx, integration))

		for _, version := range []int{2, 1, 3} {
			require.NoError(t, p.SaveDeployment(ctx, testutil.CreateTestDeployment(integration, version)))
		}

		deployments, err := p.Deployments(ctx, integration.ID)
		require.NoError(t, err)
		require.Len(t, deployments, 3)

		for i, d := range deployments {
			assert.Equal(t, i+1, d.Version)
		}

		got, err := p.DeploymentByVersion(ctx, integration.ID, 2)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, testutil.CreateTestDeployment(integration, 2).Spec, got.Spec)

		got.TargetState = models.DeploymentStateUnpublished
		require.NoError(t, p.SaveDeployment(ctx, got))

		got, err = p.DeploymentByVersion(ctx, integration.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, models.DeploymentStateUnpublished, got.TargetState)

		missing, err := p.DeploymentByVersion(ctx, integration.ID, 9)
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("activities newest first", func(t *testing.T) {
		p := newPersistence(t)
		ctx := t.Context()

		integration := testutil.CreateTestIntegration()
		require.NoError(t, p.SaveIntegration(ctx, integration))

		older := testutil.CreateTestActivity(1_700_000_000_000)
		newer := testutil.CreateTestActivity(1_700_000_060_000)

		require.NoError(t, p.SaveActivity(ctx, integration.ID, older))
		require.NoError(t, p.SaveActivity(ctx, integration.ID, newer))

		activities, err := p.Activities(ctx, integration.ID)
		require.NoError(t, err)
		require.Len(t, activities, 2)
		assert.Equal(t, newer, activities[0])
		assert.Equal(t, older, activities[1])
	})

	t.Run("delete cascades", func(t *testing.T) {
		p := newPersistence(t)
		ctx := t.Context()

		integration := testutil.CreateTestIntegration()
		require.NoError(t, p.SaveIntegration(ctx, integration))
		require.NoError(t, p.SaveDeployment(ctx, testutil.CreateTestDeployment(integration, 1)))
		require.NoError(t, p.SaveActivity(ctx, integration.ID, testutil.CreateTestActivity(1_700_000_000_000)))

		require.NoError(t, p.DeleteIntegration(ctx, integration.ID))

		got, err := p.IntegrationByID(ctx, integration.ID)
		require.NoError(t, err)
		assert.Nil(t, got)

		deployments, err := p.Deployments(ctx, integration.ID)
		require.NoError(t, err)
		assert.Empty(t, deployments)

		activities, err := p.Activities(ctx, integration.ID)
		require.NoError(t, err)
		assert.Empty(t, activities)

		require.NoError(t, p.DeleteIntegration(ctx, integration.ID))
	})

	t.Run("invalid identifier", func(t *testing.T) {
		p := newPersistence(t)
		ctx := t.Context()

		err := p.SaveIntegration(ctx, testutil.CreateTestIntegration(testutil.WithID("../escape")))
		require.Error(t, err)
		assert.True(t, persistence.IsInvalidIdentifier(err))

		_, err = p.IntegrationByID(ctx, "a/b")
		assert.True(t, persistence.IsInvalidIdentifier(err))
	})

	t.Run("health check", func(t *testing.T) {
		p := newPersistence(t)

		assert.NoError(t, p.HealthCheck(t.Context()))
	})
}
