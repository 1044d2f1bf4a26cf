package ports

import (
	"context"

	"datalab/domain/core"
	"datalab/domain/dataset"
)

// DatasetRepository defines the interface for dataset storage operations.
// The store holds at most one dataset at a time: Save replaces whatever
// was held before, along with its version history and audit trail, and
// reports the evicted dataset's ID when the slot was occupied.
type DatasetRepository interface {
	// Single-slot lifecycle
	Save(ctx context.Context, ds *dataset.Dataset) (core.DatasetID, error)
	Current(ctx context.Context) (*dataset.Dataset, error)
	Clear(ctx context.Context) error

	// UpdateTable swaps the held dataset's table and column types after a
	// cleaning operation. Counts and fingerprint are recomputed; identity
	// and filename are preserved.
	UpdateTable(ctx context.Context, table *dataset.Table, types map[string]dataset.ColumnType) (*dataset.Dataset, error)

	// Version history for the held dataset
	SaveVersion(ctx context.Context, tag core.VersionTag, description string) (*dataset.Version, error)
	Versions(ctx context.Context) ([]dataset.Version, error)
	RestoreVersion(ctx context.Context, tag core.VersionTag) (*dataset.Dataset, error)
}
