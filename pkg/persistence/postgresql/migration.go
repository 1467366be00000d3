package postgresql

import "github.com/dukex/conduit/pkg/persistence/sqlbase"

// migrationLockID is the advisory lock key taken while migrating.
const migrationLockID int64 = 0x636f6e64756974

var migrations = []sqlbase.Migration{
	{
		Version: 1,
		Name:    "integrations and deployments",
		SQL: `
			CREATE TABLE integrations (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL DEFAULT '',
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_integrations_created_at ON integrations(created_at);

			CREATE TABLE deployments (
				integration_id VARCHAR(255) NOT NULL REFERENCES integrations(id) ON DELETE CASCADE,
				version INTEGER NOT NULL,
				target_state VARCHAR(50) NOT NULL,
				current_state VARCHAR(50) NOT NULL,
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				PRIMARY KEY (integration_id, version)
			);
		`,
	},
	{
		Version: 2,
		Name:    "activities",
		SQL: `
			CREATE TABLE activities (
				integration_id VARCHAR(255) NOT NULL REFERENCES integrations(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				at BIGINT NOT NULL,
				failed BOOLEAN NOT NULL DEFAULT false,
				document JSONB NOT NULL,
				PRIMARY KEY (integration_id, id)
			);

			CREATE INDEX idx_activities_at ON activities(integration_id, at DESC);
		`,
	},
}
