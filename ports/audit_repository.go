package ports

import (
	"context"

	"datalab/domain/audit"
	"datalab/domain/core"
)

// AuditRepository owns the transformation trail for the held dataset.
// Saving a new dataset resets the trail.
type AuditRepository interface {
	// LogAction appends an entry, assigning its sequence number and
	// timestamp.
	LogAction(ctx context.Context, action audit.Action, details map[string]any) (audit.Entry, error)

	// Trail returns the ordered history for the held dataset
	Trail(ctx context.Context) (*audit.Trail, error)

	// UndoLast pops the most recent entry, for undo support.
	// Returns nil when the trail is empty.
	UndoLast(ctx context.Context) (*audit.Entry, error)
}

// AuditSink receives a durable copy of each audit entry. Sink failures
// are logged by callers, never fatal to the transformation itself.
type AuditSink interface {
	Record(ctx context.Context, datasetID core.DatasetID, entry audit.Entry) error
}
