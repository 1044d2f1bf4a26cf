// Package session holds the single in-memory analysis slot: the dataset
// under analysis, its saved versions, and its audit trail. Importing a
// new dataset replaces all three at once.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"

	"datalab/domain/audit"
	"datalab/domain/core"
	"datalab/domain/dataset"
	"datalab/internal/errors"
	"datalab/ports"
)

// maxVersions bounds the snapshot history. When the cap is hit the
// oldest snapshot after the raw import is evicted, so the original
// upload always stays restorable.
const maxVersions = 20

// snapshot pairs version metadata with the cloned table it names
type snapshot struct {
	meta  dataset.Version
	table *dataset.Table
	types map[string]dataset.ColumnType
}

// Store is the explicit session slot, safe for concurrent readers with
// one writer at a time.
type Store struct {
	mu sync.RWMutex

	ds         *dataset.Dataset
	snapshots  []snapshot
	currentTag core.VersionTag

	trailStart core.Timestamp
	entries    []audit.Entry
}

var (
	_ ports.DatasetRepository = (*Store)(nil)
	_ ports.AuditRepository   = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{}
}

// Save replaces the held dataset, discarding the previous one's version
// history and audit trail. Returns the evicted dataset's ID when the
// slot was occupied.
func (s *Store) Save(ctx context.Context, ds *dataset.Dataset) (core.DatasetID, error) {
	if ds == nil || ds.Table == nil {
		return "", errors.ValidationError("cannot save an empty dataset")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var evicted core.DatasetID
	if s.ds != nil {
		evicted = s.ds.ID
		log.Printf("[Session] Replacing dataset %s", evicted)
	}

	s.ds = ds
	s.snapshots = nil
	s.currentTag = ""
	s.entries = nil
	s.trailStart = core.Now()

	log.Printf("[Session] Loaded dataset %s (%d rows, %d columns)", ds.ID, ds.RowCount, ds.ColumnCount)
	return evicted, nil
}

// Current returns the held dataset
func (s *Store) Current(ctx context.Context) (*dataset.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ds == nil {
		return nil, core.ErrNoDataset
	}
	return s.ds, nil
}

// Clear empties the slot
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ds != nil {
		log.Printf("[Session] Cleared dataset %s", s.ds.ID)
	}
	s.ds = nil
	s.snapshots = nil
	s.currentTag = ""
	s.entries = nil
	s.trailStart = core.Timestamp{}
	return nil
}

// UpdateTable swaps the held dataset's table and column types after a
// cleaning operation. The working copy diverges from every snapshot, so
// the current-version marker resets until the next SaveVersion.
func (s *Store) UpdateTable(ctx context.Context, table *dataset.Table, types map[string]dataset.ColumnType) (*dataset.Dataset, error) {
	if table == nil {
		return nil, errors.ValidationError("cannot update to an empty table")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ds == nil {
		return nil, core.ErrNoDataset
	}
	s.ds = s.ds.WithTable(table, types)
	s.currentTag = ""
	return s.ds, nil
}

// SaveVersion snapshots the held dataset under the tag. Re-saving a tag
// replaces its snapshot.
func (s *Store) SaveVersion(ctx context.Context, tag core.VersionTag, description string) (*dataset.Version, error) {
	if tag == "" {
		return nil, errors.ValidationError("a version tag is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ds == nil {
		return nil, core.ErrNoDataset
	}

	snap := snapshot{
		meta: dataset.Version{
			Tag:         tag,
			Description: description,
			RowCount:    s.ds.RowCount,
			ColumnCount: s.ds.ColumnCount,
			Columns:     append([]string(nil), s.ds.Table.Columns...),
			SavedAt:     core.Now(),
		},
		table: s.ds.Table.Clone(),
		types: copyTypes(s.ds.Types),
	}

	replaced := false
	for i := range s.snapshots {
		if s.snapshots[i].meta.Tag == tag {
			s.snapshots[i] = snap
			replaced = true
			break
		}
	}
	if !replaced {
		s.snapshots = append(s.snapshots, snap)
		s.evictOverflow()
	}
	s.currentTag = tag

	log.Printf("[Session] Saved version %s of dataset %s (%d rows)", tag, s.ds.ID, snap.meta.RowCount)
	meta := snap.meta
	meta.Current = true
	return &meta, nil
}

// Versions lists the saved snapshots in save order
func (s *Store) Versions(ctx context.Context) ([]dataset.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ds == nil {
		return nil, core.ErrNoDataset
	}

	out := make([]dataset.Version, len(s.snapshots))
	for i, snap := range s.snapshots {
		out[i] = snap.meta
		out[i].Current = snap.meta.Tag == s.currentTag
	}
	return out, nil
}

// RestoreVersion swaps the held dataset back to a snapshot's table
func (s *Store) RestoreVersion(ctx context.Context, tag core.VersionTag) (*dataset.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ds == nil {
		return nil, core.ErrNoDataset
	}
	for _, snap := range s.snapshots {
		if snap.meta.Tag == tag {
			s.ds = s.ds.WithTable(snap.table.Clone(), copyTypes(snap.types))
			s.currentTag = tag
			log.Printf("[Session] Restored dataset %s to version %s", s.ds.ID, tag)
			return s.ds, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", core.ErrVersionNotFound, tag)
}

// LogAction appends an audit entry for the held dataset
func (s *Store) LogAction(ctx context.Context, action audit.Action, details map[string]any) (audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ds == nil {
		return audit.Entry{}, core.ErrNoDataset
	}
	entry := audit.Entry{
		Seq:       len(s.entries) + 1,
		Timestamp: core.Now(),
		Action:    action,
		Details:   details,
		Actor:     audit.DefaultActor,
	}
	s.entries = append(s.entries, entry)
	return entry, nil
}

// Trail returns a snapshot of the audit history
func (s *Store) Trail(ctx context.Context) (*audit.Trail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ds == nil {
		return nil, core.ErrNoDataset
	}
	entries := make([]audit.Entry, len(s.entries))
	copy(entries, s.entries)
	return &audit.Trail{
		DatasetID: s.ds.ID,
		CreatedAt: s.trailStart,
		Total:     len(entries),
		Entries:   entries,
	}, nil
}

// UndoLast pops the most recent audit entry. Returns nil when the trail
// is empty.
func (s *Store) UndoLast(ctx context.Context) (*audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ds == nil {
		return nil, core.ErrNoDataset
	}
	if len(s.entries) == 0 {
		return nil, nil
	}
	last := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return &last, nil
}

// evictOverflow drops the oldest non-raw snapshot once the cap is hit.
// Callers hold the write lock.
func (s *Store) evictOverflow() {
	if len(s.snapshots) <= maxVersions {
		return
	}
	for i := range s.snapshots {
		if s.snapshots[i].meta.Tag != core.VersionRaw {
			log.Printf("[Session] Evicting version %s (history cap %d)", s.snapshots[i].meta.Tag, maxVersions)
			s.snapshots = append(s.snapshots[:i], s.snapshots[i+1:]...)
			return
		}
	}
}

func copyTypes(types map[string]dataset.ColumnType) map[string]dataset.ColumnType {
	out := make(map[string]dataset.ColumnType, len(types))
	for k, v := range types {
		out[k] = v
	}
	return out
}
