package redis_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/conduit/pkg/persistence"
	"github.com/dukex/conduit/pkg/persistence/persistencetest"
	"github.com/dukex/conduit/pkg/persistence/redis"
	"github.com/dukex/conduit/pkg/testutil"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var redisContainer testcontainers.Container

func redisURL(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	if redisContainer == nil {
		var err error

		redisContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7-alpine",
				ExposedPorts: []string{"6379/tcp"},
				WaitingFor:   wait.ForLog("Ready to accept connections"),
			},
			Started: true,
		})
		require.NoError(t, err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "redis")
	require.NoError(t, err)

	return endpoint
}

func newTestPersistence(t *testing.T) *redis.Persistence {
	t.Helper()

	opts, err := goredis.ParseURL(redisURL(t))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := redis.NewPersistenceWithClient(logger, goredis.NewClient(opts), "test-"+uuid.NewString()+":")

	t.Cleanup(func() {
		_ = p.Close(context.Background())
	})

	return p
}

func TestPersistence(t *testing.T) {
	persistencetest.Run(t, func(t *testing.T) persistence.Persistence {
		return newTestPersistence(t)
	})
}

func TestNewPersistence(t *testing.T) {
	url := redisURL(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	p, err := redis.NewPersistence(t.Context(), logger, url)
	require.NoError(t, err)

	defer func() { _ = p.Close(t.Context()) }()

	integration := testutil.CreateTestIntegration()
	require.NoError(t, p.SaveIntegration(t.Context(), integration))

	got, err := p.IntegrationByID(t.Context(), integration.ID)
	require.NoError(t, err)
	assert.Equal(t, integration, got)

	require.NoError(t, p.DeleteIntegration(t.Context(), integration.ID))
}

func TestNewPersistence_BadURL(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := redis.NewPersistence(t.Context(), logger, "http://not-redis")
	require.Error(t, err)
}
