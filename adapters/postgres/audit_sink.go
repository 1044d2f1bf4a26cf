// Package postgres keeps a durable copy of the audit trail. The
// in-memory trail stays authoritative; the sink exists so a cleaning
// session can be reconstructed after a restart.
package postgres

import (
	"context"
	"database/sql/driver"
	"encoding/json"

	"datalab/domain/audit"
	"datalab/domain/core"
	"datalab/internal/errors"
	"datalab/ports"

	"github.com/jmoiron/sqlx"
)

// jsonbMap adapts a details map to a JSONB column
type jsonbMap map[string]any

// Value implements driver.Valuer
func (j jsonbMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// AuditSink writes audit entries to the audit_entries table
type AuditSink struct {
	db *sqlx.DB
}

var _ ports.AuditSink = (*AuditSink)(nil)

// NewAuditSink creates a sink over an open connection. The schema is
// bootstrapped separately by the migration runner.
func NewAuditSink(db *sqlx.DB) *AuditSink {
	return &AuditSink{db: db}
}

// Record inserts one entry. Undone entries are not removed, so the
// durable log keeps the full history including reverted steps.
func (s *AuditSink) Record(ctx context.Context, datasetID core.DatasetID, entry audit.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_entries (dataset_id, entry_number, action, details, actor, logged_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, datasetID.String(), entry.Seq, string(entry.Action), jsonbMap(entry.Details), entry.Actor, entry.Timestamp.Time())
	if err != nil {
		return errors.Wrapf(err, "record audit entry %d for dataset %s", entry.Seq, datasetID)
	}
	return nil
}
