// Package sqlbase holds the schema migration runner shared by SQL backends.
package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// ErrMigrationOrder is returned when migrations are not strictly ascending.
var ErrMigrationOrder = errors.New("migrations must have strictly ascending versions")

// Migration is one schema step. Versions start at 1.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrator applies migrations that the database has not recorded yet.
type Migrator struct {
	db         *sql.DB
	logger     *slog.Logger
	migrations []Migration
	lockID     int64
}

// NewMigrator creates a migrator. lockID names the advisory lock held while
// migrating so concurrent sandboxes do not race on the same schema.
func NewMigrator(logger *slog.Logger, db *sql.DB, lockID int64, migrations []Migration) *Migrator {
	return &Migrator{
		db:         db,
		logger:     logger,
		migrations: migrations,
		lockID:     lockID,
	}
}

// Latest returns the version of the last known migration.
func (m *Migrator) Latest() int {
	if len(m.migrations) == 0 {
		return 0
	}

	return m.migrations[len(m.migrations)-1].Version
}

// Up brings the schema to Latest.
func (m *Migrator) Up(ctx context.Context) error {
	for i := 1; i < len(m.migrations); i++ {
		if m.migrations[i].Version <= m.migrations[i-1].Version {
			return fmt.Errorf("%w: %d after %d", ErrMigrationOrder, m.migrations[i].Version, m.migrations[i-1].Version)
		}
	}

	conn, err := m.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}

	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", m.lockID); err != nil {
		return fmt.Errorf("failed to take migration lock: %w", err)
	}

	defer func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", m.lockID)
	}()

	if _, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR(255) NOT NULL DEFAULT '',
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	current, err := Current(ctx, conn)
	if err != nil {
		return err
	}

	logger := m.logger.With("current_version", current, "latest_version", m.Latest())

	pending := 0

	for _, migration := range m.migrations {
		if migration.Version <= current {
			continue
		}

		if err := apply(ctx, conn, migration); err != nil {
			return err
		}

		logger.InfoContext(ctx, "Applied migration", "version", migration.Version, "name", migration.Name)

		pending++
	}

	if pending == 0 {
		logger.DebugContext(ctx, "Schema up to date")
	}

	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Current returns the highest recorded schema version, 0 for a fresh database.
func Current(ctx context.Context, db queryer) (int, error) {
	var version int

	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}

	return version, nil
}

func apply(ctx context.Context, conn *sql.Conn, migration Migration) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d (%s): %w", migration.Version, migration.Name, err)
	}

	if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("migration %d (%s): %w", migration.Version, migration.Name, err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", migration.Version, migration.Name,
	); err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
	}

	return tx.Commit()
}
