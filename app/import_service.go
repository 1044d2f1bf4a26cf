// Package app holds the services the HTTP layer and CLI drive: importing
// datasets into the analysis slot, running analyses against it, applying
// cleaning transformations, and reading the audit trail. Services own the
// orchestration; the statistical engines stay pure and the session store
// owns all state.
package app

import (
	"context"
	"io"
	"log"

	"datalab/domain/core"
	"datalab/domain/dataset"
	"datalab/internal/errors"
	"datalab/internal/inference"
	"datalab/ports"
)

// ImportService turns uploaded tabular files into the held dataset:
// parse, infer column types, store, snapshot the raw version.
type ImportService struct {
	reader ports.TabularReader
	store  ports.DatasetRepository
	inf    *inference.Inferencer
}

// ImportRequest defines the inputs for one upload
type ImportRequest struct {
	Filename string
	Size     int64
	Data     io.Reader
}

// ImportResult reports the stored dataset and, when the slot was
// occupied, the dataset the upload replaced.
type ImportResult struct {
	Dataset  *dataset.Dataset `json:"dataset"`
	Replaced core.DatasetID   `json:"replaced,omitempty"`
}

// SlotStatus describes the current slot for listings: the held dataset
// plus its saved versions.
type SlotStatus struct {
	Dataset  *dataset.Dataset  `json:"dataset"`
	Versions []dataset.Version `json:"versions"`
}

// NewImportService creates an import service over the given reader and store
func NewImportService(reader ports.TabularReader, store ports.DatasetRepository) *ImportService {
	return &ImportService{
		reader: reader,
		store:  store,
		inf:    inference.NewInferencer(),
	}
}

// Import parses the upload, infers column types, and replaces the slot.
// The stored dataset is snapshotted as the raw version so later cleaning
// can always be rolled back to the original upload.
func (s *ImportService) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	table, err := s.reader.Read(ctx, req.Filename, req.Data, req.Size)
	if err != nil {
		return nil, err
	}

	types := s.inf.InferTypes(table)
	ds := dataset.NewDataset(req.Filename, table, types)

	evicted, err := s.store.Save(ctx, ds)
	if err != nil {
		return nil, errors.Wrap(err, "store dataset")
	}
	if _, err := s.store.SaveVersion(ctx, core.VersionRaw, "Original upload"); err != nil {
		return nil, errors.Wrap(err, "snapshot raw version")
	}

	log.Printf("[Import] Imported %s as dataset %s (%d rows, %d columns)",
		req.Filename, ds.ID, ds.RowCount, ds.ColumnCount)
	if evicted != "" {
		log.Printf("[Import] Previous dataset %s replaced", evicted)
	}

	return &ImportResult{Dataset: ds, Replaced: evicted}, nil
}

// Slot returns the held dataset and its version list
func (s *ImportService) Slot(ctx context.Context) (*SlotStatus, error) {
	ds, err := s.store.Current(ctx)
	if err != nil {
		return nil, err
	}
	versions, err := s.store.Versions(ctx)
	if err != nil {
		return nil, err
	}
	return &SlotStatus{Dataset: ds, Versions: versions}, nil
}

// Clear empties the slot
func (s *ImportService) Clear(ctx context.Context) error {
	return s.store.Clear(ctx)
}
