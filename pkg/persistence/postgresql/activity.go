package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukex/conduit/pkg/models"
	"github.com/dukex/conduit/pkg/persistence"
)

// ActivityRepository handles exchange activity database operations.
type ActivityRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewActivityRepository creates a new activity repository.
func NewActivityRepository(db *sql.DB, logger *slog.Logger) *ActivityRepository {
	return &ActivityRepository{db: db, logger: logger}
}

// Activities returns the exchanges of an integration, newest first.
func (r *ActivityRepository) Activities(ctx context.Context, integrationID string) ([]*models.Activity, error) {
	if err := persistence.ValidateID(integrationID); err != nil {
		return nil, persistence.NewIntegrationError("Activities", integrationID, err)
	}

	query := `
		SELECT document
		FROM activities
		WHERE integration_id = $1
		ORDER BY at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, integrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	activities := make([]*models.Activity, 0)

	for rows.Next() {
		var document []byte
		if err := rows.Scan(&document); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}

		var activity models.Activity
		if err := json.Unmarshal(document, &activity); err != nil {
			return nil, fmt.Errorf("failed to unmarshal activity: %w", err)
		}

		activities = append(activities, &activity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activities: %w", err)
	}

	return activities, nil
}

// SaveActivity records an exchange.
func (r *ActivityRepository) SaveActivity(ctx context.Context, integrationID string, activity *models.Activity) error {
	if err := persistence.ValidateID(integrationID); err != nil {
		return persistence.NewIntegrationError("SaveActivity", integrationID, err)
	}

	document, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("failed to marshal activity %s: %w", activity.ID, err)
	}

	query := `
		INSERT INTO activities (integration_id, id, at, failed, document)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (integration_id, id) DO UPDATE SET
			at = EXCLUDED.at
		  , failed = EXCLUDED.failed
		  , document = EXCLUDED.document
	`

	_, err = r.db.ExecContext(ctx, query, integrationID, activity.ID, activity.At, activity.Failed, document)
	if err != nil {
		return fmt.Errorf("failed to save activity %s: %w", activity.ID, err)
	}

	return nil
}
