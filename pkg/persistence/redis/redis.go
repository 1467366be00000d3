// Package redis provides Redis persistence for integrations.
//
// Keys, under the configured prefix:
//
//	integrations              sorted set of ids scored by creation time
//	integration:{id}          integration document
//	deployments:{id}          hash of version -> deployment document
//	activities:{id}           hash of exchange id -> activity document
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/dukex/conduit/pkg/models"
	"github.com/dukex/conduit/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the backend.
const DefaultPrefix = "conduit:"

// Persistence implements persistence.Persistence on Redis.
type Persistence struct {
	client goredis.UniversalClient
	logger *slog.Logger
	prefix string
}

// NewPersistence connects using a redis:// or rediss:// URL.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := goredis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewPersistenceWithClient(logger, client, DefaultPrefix), nil
}

// NewPersistenceWithClient wraps an existing client.
func NewPersistenceWithClient(logger *slog.Logger, client goredis.UniversalClient, prefix string) *Persistence {
	return &Persistence{client: client, logger: logger, prefix: prefix}
}

func (p *Persistence) key(parts ...string) string {
	key := p.prefix
	for i, part := range parts {
		if i > 0 {
			key += ":"
		}

		key += part
	}

	return key
}

// Close closes the client.
func (p *Persistence) Close(_ context.Context) error {
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

// HealthCheck pings the server.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// Integrations returns all integrations ordered by creation time.
func (p *Persistence) Integrations(ctx context.Context) ([]*models.Integration, error) {
	ids, err := p.client.ZRange(ctx, p.key("integrations"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}

	integrations := make([]*models.Integration, 0, len(ids))
	if len(ids) == 0 {
		return integrations, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, p.key("integration", id))
	}

	values, err := p.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch integrations: %w", err)
	}

	for i, value := range values {
		document, ok := value.(string)
		if !ok {
			p.logger.WarnContext(ctx, "integration indexed but missing", "id", ids[i])

			continue
		}

		var integration models.Integration
		if err := json.Unmarshal([]byte(document), &integration); err != nil {
			return nil, fmt.Errorf("failed to unmarshal integration %s: %w", ids[i], err)
		}

		integrations = append(integrations, &integration)
	}

	return integrations, nil
}

// IntegrationByID returns an integration by its ID.
func (p *Persistence) IntegrationByID(ctx context.Context, id string) (*models.Integration, error) {
	if err := persistence.ValidateID(id); err != nil {
		return nil, persistence.NewIntegrationError("IntegrationByID", id, err)
	}

	document, err := p.client.Get(ctx, p.key("integration", id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to fetch integration %s: %w", id, err)
	}

	var integration models.Integration
	if err := json.Unmarshal(document, &integration); err != nil {
		return nil, fmt.Errorf("failed to unmarshal integration %s: %w", id, err)
	}

	return &integration, nil
}

// SaveIntegration writes the document and indexes it.
func (p *Persistence) SaveIntegration(ctx context.Context, integration *models.Integration) error {
	if err := persistence.ValidateID(integration.ID); err != nil {
		return persistence.NewIntegrationError("SaveIntegration", integration.ID, err)
	}

	document, err := json.Marshal(integration)
	if err != nil {
		return fmt.Errorf("failed to marshal integration %s: %w", integration.ID, err)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, p.key("integration", integration.ID), document, 0)
		pipe.ZAdd(ctx, p.key("integrations"), goredis.Z{
			Score:  float64(integration.CreatedAt.UnixMilli()),
			Member: integration.ID,
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save integration %s: %w", integration.ID, err)
	}

	return nil
}

// DeleteIntegration removes an integration with its deployments and activity.
func (p *Persistence) DeleteIntegration(ctx context.Context, id string) error {
	if err := persistence.ValidateID(id); err != nil {
		return persistence.NewIntegrationError("DeleteIntegration", id, err)
	}

	_, err := p.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx,
			p.key("integration", id),
			p.key("deployments", id),
			p.key("activities", id),
		)
		pipe.ZRem(ctx, p.key("integrations"), id)

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete integration %s: %w", id, err)
	}

	return nil
}

// Deployments returns the deployments of an integration ordered by version.
func (p *Persistence) Deployments(ctx context.Context, integrationID string) ([]*models.Deployment, error) {
	if err := persistence.ValidateID(integrationID); err != nil {
		return nil, persistence.NewIntegrationError("Deployments", integrationID, err)
	}

	values, err := p.client.HVals(ctx, p.key("deployments", integrationID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments of integration %s: %w", integrationID, err)
	}

	deployments, err := decodeAll[models.Deployment](values)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal deployments of integration %s: %w", integrationID, err)
	}

	sort.Slice(deployments, func(i, j int) bool {
		return deployments[i].Version < deployments[j].Version
	})

	return deployments, nil
}

// DeploymentByVersion returns a single deployment.
func (p *Persistence) DeploymentByVersion(ctx context.Context, integrationID string, version int) (*models.Deployment, error) {
	if err := persistence.ValidateID(integrationID); err != nil {
		return nil, persistence.NewDeploymentError("DeploymentByVersion", integrationID, version, err)
	}

	document, err := p.client.HGet(ctx, p.key("deployments", integrationID), strconv.Itoa(version)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to fetch deployment %d of integration %s: %w", version, integrationID, err)
	}

	var deployment models.Deployment
	if err := json.Unmarshal(document, &deployment); err != nil {
		return nil, fmt.Errorf("failed to unmarshal deployment %d of integration %s: %w", version, integrationID, err)
	}

	return &deployment, nil
}

// SaveDeployment writes a deployment, replacing any deployment with the same version.
func (p *Persistence) SaveDeployment(ctx context.Context, deployment *models.Deployment) error {
	if err := persistence.ValidateID(deployment.IntegrationID); err != nil {
		return persistence.NewDeploymentError("SaveDeployment", deployment.IntegrationID, deployment.Version, err)
	}

	document, err := json.Marshal(deployment)
	if err != nil {
		return fmt.Errorf("failed to marshal deployment: %w", err)
	}

	err = p.client.HSet(ctx, p.key("deployments", deployment.IntegrationID), strconv.Itoa(deployment.Version), document).Err()
	if err != nil {
		return persistence.NewDeploymentError("SaveDeployment", deployment.IntegrationID, deployment.Version, err)
	}

	return nil
}

// Activities returns the exchanges of an integration, newest first.
func (p *Persistence) Activities(ctx context.Context, integrationID string) ([]*models.Activity, error) {
	if err := persistence.ValidateID(integrationID); err != nil {
		return nil, persistence.NewIntegrationError("Activities", integrationID, err)
	}

	values, err := p.client.HVals(ctx, p.key("activities", integrationID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list activity of integration %s: %w", integrationID, err)
	}

	activities, err := decodeAll[models.Activity](values)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal activity of integration %s: %w", integrationID, err)
	}

	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].At > activities[j].At
	})

	return activities, nil
}

// SaveActivity records an exchange.
func (p *Persistence) SaveActivity(ctx context.Context, integrationID string, activity *models.Activity) error {
	if err := persistence.ValidateID(integrationID); err != nil {
		return persistence.NewIntegrationError("SaveActivity", integrationID, err)
	}

	document, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("failed to marshal activity %s: %w", activity.ID, err)
	}

	if err := p.client.HSet(ctx, p.key("activities", integrationID), activity.ID, document).Err(); err != nil {
		return fmt.Errorf("failed to save activity %s: %w", activity.ID, err)
	}

	return nil
}

func decodeAll[T any](values []string) ([]*T, error) {
	items := make([]*T, 0, len(values))

	for _, value := range values {
		var item T
		if err := json.Unmarshal([]byte(value), &item); err != nil {
			return nil, err
		}

		items = append(items, &item)
	}

	return items, nil
}

var _ persistence.Persistence = (*Persistence)(nil)
