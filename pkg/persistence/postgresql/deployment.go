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

// DeploymentRepository handles deployment-related database operations.
type DeploymentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDeploymentRepository creates a new deployment repository.
func NewDeploymentRepository(db *sql.DB, logger *slog.Logger) *DeploymentRepository {
	return &DeploymentRepository{db: db, logger: logger}
}

// Deployments returns the deployments of an integration ordered by version.
func (r *DeploymentRepository) Deployments(ctx context.Context, integrationID string) ([]*models.Deployment, error) {
	if err := persistence.ValidateID(integrationID); err != nil {
		return nil, persistence.NewIntegrationError("Deployments", integrationID, err)
	}

	query := `
		SELECT document
		FROM deployments
		WHERE integration_id = $1
		ORDER BY version ASC
	`

	rows, err := r.db.QueryContext(ctx, query, integrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query deployments: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	deployments := make([]*models.Deployment, 0)

	for rows.Next() {
		deployment, err := scanDeployment(rows)
		if err != nil {
			return nil, err
		}

		deployments = append(deployments, deployment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deployments: %w", err)
	}

	return deployments, nil
}

// DeploymentByVersion returns a single deployment.
func (r *DeploymentRepository) DeploymentByVersion(ctx context.Context, integrationID string, version int) (*models.Deployment, error) {
	if err := persistence.ValidateID(integrationID); err != nil {
		return nil, persistence.NewDeploymentError("DeploymentByVersion", integrationID, version, err)
	}

	row := r.db.QueryRowContext(ctx,
		`SELECT document FROM deployments WHERE integration_id = $1 AND version = $2`,
		integrationID, version,
	)

	deployment, err := scanDeployment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to fetch deployment %d of integration %s: %w", version, integrationID, err)
	}

	return deployment, nil
}

// SaveDeployment inserts or replaces a deployment.
func (r *DeploymentRepository) SaveDeployment(ctx context.Context, deployment *models.Deployment) error {
	if err := persistence.ValidateID(deployment.IntegrationID); err != nil {
		return persistence.NewDeploymentError("SaveDeployment", deployment.IntegrationID, deployment.Version, err)
	}

	document, err := json.Marshal(deployment)
	if err != nil {
		return fmt.Errorf("failed to marshal deployment: %w", err)
	}

	query := `
		INSERT INTO deployments (integration_id, version, target_state, current_state, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (integration_id, version) DO UPDATE SET
			target_state = EXCLUDED.target_state
		  , current_state = EXCLUDED.current_state
		  , document = EXCLUDED.document
		  , updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		deployment.IntegrationID,
		deployment.Version,
		string(deployment.TargetState),
		string(deployment.CurrentState),
		document,
		deployment.CreatedAt,
		deployment.UpdatedAt,
	)
	if err != nil {
		return persistence.NewDeploymentError("SaveDeployment", deployment.IntegrationID, deployment.Version, err)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDeployment(row scanner) (*models.Deployment, error) {
	var document []byte
	if err := row.Scan(&document); err != nil {
		return nil, err
	}

	var deployment models.Deployment
	if err := json.Unmarshal(document, &deployment); err != nil {
		return nil, fmt.Errorf("failed to unmarshal deployment: %w", err)
	}

	return &deployment, nil
}
