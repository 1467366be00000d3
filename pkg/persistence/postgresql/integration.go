package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/conduit/pkg/models"
	"github.com/dukex/conduit/pkg/persistence"
)

// IntegrationRepository handles integration-related database operations.
// The document is stored whole as JSONB; name and timestamps are copied
// into columns for listing.
type IntegrationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewIntegrationRepository creates a new integration repository.
func NewIntegrationRepository(db *sql.DB, logger *slog.Logger) *IntegrationRepository {
	return &IntegrationRepository{db: db, logger: logger}
}

// Integrations returns all integrations ordered by creation time.
func (r *IntegrationRepository) Integrations(ctx context.Context) ([]*models.Integration, error) {
	query := `
		SELECT document
		FROM integrations
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query integrations: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	integrations := make([]*models.Integration, 0)

	for rows.Next() {
		var document []byte
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("failed to scan integration: %w", err)
		}

		var integration models.Integration
		if err := json.Unmarshal(document, &integration); err != nil {
			return nil, fmt.Errorf("failed to unmarshal integration: %w", err)
		}

		integrations = append(integrations, &integration)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating integrations: %w", err)
	}

	return integrations, nil
}

// IntegrationByID returns an integration by its ID.
func (r *IntegrationRepository) IntegrationByID(ctx context.Context, id string) (*models.Integration, error) {
	if err := persistence.ValidateID(id); err != nil {
		return nil, persistence.NewIntegrationError("IntegrationByID", id, err)
	}

	var document []byte

	err := r.db.QueryRowContext(ctx, `SELECT document FROM integrations WHERE id = $1`, id).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
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

// SaveIntegration inserts or replaces an integration.
func (r *IntegrationRepository) SaveIntegration(ctx context.Context, integration *models.Integration) error {
	if err := persistence.ValidateID(integration.ID); err != nil {
		return persistence.NewIntegrationError("SaveIntegration", integration.ID, err)
	}

	document, err := json.Marshal(integration)
	if err != nil {
		return fmt.Errorf("failed to marshal integration %s: %w", integration.ID, err)
	}

	query := `
		INSERT INTO integrations (id, name, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name
		  , document = EXCLUDED.document
		  , created_at = EXCLUDED.created_at
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		integration.ID,
		integration.Name,
		document,
		integration.CreatedAt,
		integration.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save integration %s: %w", integration.ID, err)
	}

	return nil
}

// DeleteIntegration removes an integration; deployments and activity follow
// through the foreign keys.
func (r *IntegrationRepository) DeleteIntegration(ctx context.Context, id string) error {
	if err := persistence.ValidateID(id); err != nil {
		return persistence.NewIntegrationError("DeleteIntegration", id, err)
	}

	_, err := r.db.ExecContext(ctx, `DELETE FROM integrations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete integration %s: %w", id, err)
	}

	return nil
}
