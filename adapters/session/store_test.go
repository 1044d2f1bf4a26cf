package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"datalab/domain/audit"
	"datalab/domain/core"
	"datalab/domain/dataset"
)

func storeDataset(t *testing.T, scores ...float64) *dataset.Dataset {
	t.Helper()
	table := &dataset.Table{Columns: []string{"score"}}
	for _, v := range scores {
		table.Rows = append(table.Rows, dataset.Row{"score": dataset.Number(v)})
	}
	types := map[string]dataset.ColumnType{"score": dataset.TypeContinuous}
	return dataset.NewDataset("store.csv", table, types)
}

func TestSaveAndCurrent(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if _, err := s.Current(ctx); !errors.Is(err, core.ErrNoDataset) {
		t.Fatalf("empty Current err = %v, want ErrNoDataset", err)
	}

	ds := storeDataset(t, 1, 2, 3)
	evicted, err := s.Save(ctx, ds)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if evicted != "" {
		t.Errorf("first save evicted %q, want empty", evicted)
	}

	got, err := s.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if got.ID != ds.ID || got.RowCount != 3 {
		t.Errorf("current = %s (%d rows), want %s (3 rows)", got.ID, got.RowCount, ds.ID)
	}
}

func TestSaveReportsEvictionAndResetsHistory(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	first := storeDataset(t, 1, 2)
	if _, err := s.Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := s.SaveVersion(ctx, core.VersionRaw, "original upload"); err != nil {
		t.Fatalf("SaveVersion: %v", err)
	}
	if _, err := s.LogAction(ctx, audit.ActionRemoveDuplicates, nil); err != nil {
		t.Fatalf("LogAction: %v", err)
	}

	second := storeDataset(t, 9)
	evicted, err := s.Save(ctx, second)
	if err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if evicted != first.ID {
		t.Errorf("evicted = %s, want %s", evicted, first.ID)
	}

	versions, err := s.Versions(ctx)
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	if len(versions) != 0 {
		t.Errorf("versions survived the replace: %v", versions)
	}
	trail, err := s.Trail(ctx)
	if err != nil {
		t.Fatalf("Trail: %v", err)
	}
	if trail.Total != 0 || trail.DatasetID != second.ID {
		t.Errorf("trail = %d entries for %s, want 0 for %s", trail.Total, trail.DatasetID, second.ID)
	}
}

func TestSaveRejectsEmptyDataset(t *testing.T) {
	s := NewStore()
	if _, err := s.Save(context.Background(), nil); err == nil {
		t.Fatal("expected an error saving nil")
	}
}

func TestClearEmptiesSlot(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	if _, err := s.Save(ctx, storeDataset(t, 1)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := s.Current(ctx); !errors.Is(err, core.ErrNoDataset) {
		t.Errorf("Current after Clear err = %v, want ErrNoDataset", err)
	}
}

func TestUpdateTableKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	ds := storeDataset(t, 1, 2, 3)
	if _, err := s.Save(ctx, ds); err != nil {
		t.Fatalf("Save: %v", err)
	}

	table := ds.Table.Clone()
	table.Rows = table.Rows[:2]
	updated, err := s.UpdateTable(ctx, table, ds.Types)
	if err != nil {
		t.Fatalf("UpdateTable: %v", err)
	}
	if updated.ID != ds.ID {
		t.Errorf("id drifted to %s", updated.ID)
	}
	if updated.RowCount != 2 {
		t.Errorf("row count = %d, want 2", updated.RowCount)
	}
	if updated.Fingerprint == ds.Fingerprint {
		t.Error("fingerprint did not change with the table")
	}
}

func TestVersionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	ds := storeDataset(t, 1, 2, 3)
	if _, err := s.Save(ctx, ds); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := s.SaveVersion(ctx, core.VersionRaw, "original upload")
	if err != nil {
		t.Fatalf("SaveVersion: %v", err)
	}
	if raw.Tag != core.VersionRaw || raw.RowCount != 3 || !raw.Current {
		t.Errorf("raw version = %+v", raw)
	}

	table := ds.Table.Clone()
	table.Rows = table.Rows[:1]
	if _, err := s.UpdateTable(ctx, table, ds.Types); err != nil {
		t.Fatalf("UpdateTable: %v", err)
	}
	if _, err := s.SaveVersion(ctx, core.VersionCleaned, "after dedupe"); err != nil {
		t.Fatalf("SaveVersion cleaned: %v", err)
	}

	versions, err := s.Versions(ctx)
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("version count = %d, want 2", len(versions))
	}
	if versions[0].Tag != core.VersionRaw || versions[0].Current {
		t.Errorf("versions[0] = %+v, want non-current v1_raw", versions[0])
	}
	if versions[1].Tag != core.VersionCleaned || !versions[1].Current {
		t.Errorf("versions[1] = %+v, want current v2_cleaned", versions[1])
	}

	diff := dataset.Compare(versions[0], versions[1])
	if diff.RowDiff != -2 {
		t.Errorf("row diff = %d, want -2", diff.RowDiff)
	}
}

func TestRestoreVersion(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	ds := storeDataset(t, 1, 2, 3)
	if _, err := s.Save(ctx, ds); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := s.SaveVersion(ctx, core.VersionRaw, ""); err != nil {
		t.Fatalf("SaveVersion: %v", err)
	}

	shrunk := ds.Table.Clone()
	shrunk.Rows = shrunk.Rows[:1]
	if _, err := s.UpdateTable(ctx, shrunk, ds.Types); err != nil {
		t.Fatalf("UpdateTable: %v", err)
	}

	restored, err := s.RestoreVersion(ctx, core.VersionRaw)
	if err != nil {
		t.Fatalf("RestoreVersion: %v", err)
	}
	if restored.RowCount != 3 {
		t.Errorf("restored rows = %d, want 3", restored.RowCount)
	}
	if restored.ID != ds.ID {
		t.Errorf("restore changed the dataset id to %s", restored.ID)
	}

	if _, err := s.RestoreVersion(ctx, "v9_missing"); !errors.Is(err, core.ErrVersionNotFound) {
		t.Errorf("unknown tag err = %v, want ErrVersionNotFound", err)
	}
}

func TestSnapshotsAreIsolatedFromLaterEdits(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	ds := storeDataset(t, 5)
	if _, err := s.Save(ctx, ds); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := s.SaveVersion(ctx, core.VersionRaw, ""); err != nil {
		t.Fatalf("SaveVersion: %v", err)
	}

	// Mutate the working table in place, as a buggy caller might
	ds.Table.Rows[0]["score"] = dataset.Number(99)

	restored, err := s.RestoreVersion(ctx, core.VersionRaw)
	if err != nil {
		t.Fatalf("RestoreVersion: %v", err)
	}
	if n, ok := restored.Table.Rows[0].Value("score").Number(); !ok || n != 5 {
		t.Errorf("snapshot leaked the edit: score = %v", n)
	}
}

func TestVersionHistoryCapKeepsRaw(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	if _, err := s.Save(ctx, storeDataset(t, 1)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := s.SaveVersion(ctx, core.VersionRaw, ""); err != nil {
		t.Fatalf("SaveVersion raw: %v", err)
	}
	for i := 0; i < maxVersions+3; i++ {
		tag := core.VersionTag(fmt.Sprintf("v%d_step", i+2))
		if _, err := s.SaveVersion(ctx, tag, ""); err != nil {
			t.Fatalf("SaveVersion %s: %v", tag, err)
		}
	}

	versions, err := s.Versions(ctx)
	if err != nil {
		t.Fatalf("Versions: %v", err)
	}
	if len(versions) != maxVersions {
		t.Errorf("history size = %d, want %d", len(versions), maxVersions)
	}
	if versions[0].Tag != core.VersionRaw {
		t.Errorf("raw version was evicted; oldest is %s", versions[0].Tag)
	}
}

func TestAuditTrailLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	ds := storeDataset(t, 1, 2)
	if _, err := s.Save(ctx, ds); err != nil {
		t.Fatalf("Save: %v", err)
	}

	e1, err := s.LogAction(ctx, audit.ActionRemoveDuplicates, map[string]any{"rows_removed": 1})
	if err != nil {
		t.Fatalf("LogAction: %v", err)
	}
	e2, err := s.LogAction(ctx, audit.ActionStandardize, map[string]any{"method": "zscore"})
	if err != nil {
		t.Fatalf("LogAction: %v", err)
	}
	if e1.Seq != 1 || e2.Seq != 2 {
		t.Errorf("seqs = %d, %d", e1.Seq, e2.Seq)
	}
	if e1.Actor != audit.DefaultActor || e1.Timestamp.IsZero() {
		t.Errorf("entry = %+v", e1)
	}

	trail, err := s.Trail(ctx)
	if err != nil {
		t.Fatalf("Trail: %v", err)
	}
	if trail.Total != 2 || trail.DatasetID != ds.ID {
		t.Errorf("trail = %d entries for %s", trail.Total, trail.DatasetID)
	}
	summary := trail.Summarize()
	if summary.ByAction[audit.ActionRemoveDuplicates] != 1 {
		t.Errorf("summary counts = %v", summary.ByAction)
	}

	undone, err := s.UndoLast(ctx)
	if err != nil {
		t.Fatalf("UndoLast: %v", err)
	}
	if undone == nil || undone.Action != audit.ActionStandardize {
		t.Fatalf("undone = %+v", undone)
	}
	if trail.Total != 2 {
		t.Error("earlier trail snapshot changed after undo")
	}

	if undone, err := s.UndoLast(ctx); err != nil || undone == nil {
		t.Fatalf("second undo = %+v, %v", undone, err)
	}
	if undone, err := s.UndoLast(ctx); err != nil || undone != nil {
		t.Errorf("empty undo = %+v, %v, want nil, nil", undone, err)
	}
}

func TestLogActionRequiresDataset(t *testing.T) {
	s := NewStore()
	if _, err := s.LogAction(context.Background(), audit.ActionStandardize, nil); !errors.Is(err, core.ErrNoDataset) {
		t.Errorf("err = %v, want ErrNoDataset", err)
	}
}

func TestConcurrentLogging(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	if _, err := s.Save(ctx, storeDataset(t, 1)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.LogAction(ctx, audit.ActionHandleMissing, nil); err != nil {
				t.Errorf("LogAction: %v", err)
			}
		}()
	}
	wg.Wait()

	trail, err := s.Trail(ctx)
	if err != nil {
		t.Fatalf("Trail: %v", err)
	}
	if trail.Total != 20 {
		t.Fatalf("total = %d, want 20", trail.Total)
	}
	seen := make(map[int]bool, 20)
	for _, e := range trail.Entries {
		seen[e.Seq] = true
	}
	if len(seen) != 20 {
		t.Errorf("sequence numbers collide: %d distinct of 20", len(seen))
	}
}
