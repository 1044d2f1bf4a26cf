package migration

import (
	"context"

	"datalab/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner bootstraps the audit persistence schema
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createAuditEntriesTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create audit_entries table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

// createAuditEntriesTable holds the durable audit log. entry_number is
// deliberately not unique per dataset: an undone entry stays recorded,
// and its sequence number is reused by the next transformation.
func (r *MigrationRunner) createAuditEntriesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_entries (
			id BIGSERIAL PRIMARY KEY,
			dataset_id VARCHAR(64) NOT NULL,
			entry_number INTEGER NOT NULL,
			action VARCHAR(50) NOT NULL,
			details JSONB,
			actor VARCHAR(100) NOT NULL DEFAULT 'system',
			logged_at TIMESTAMP WITH TIME ZONE NOT NULL,
			recorded_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_audit_entries_dataset
		ON audit_entries (dataset_id, entry_number)
	`)
	return err
}
