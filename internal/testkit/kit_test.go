package testkit

import (
	"bytes"
	"encoding/csv"
	"testing"

	"datalab/domain/core"
	"datalab/domain/dataset"
)

func TestGeneratorDeterminism(t *testing.T) {
	config := DefaultKitConfig()
	a := NewGenerator(config).Table()
	b := NewGenerator(config).Table()
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("same seed should produce identical tables")
	}

	config.Seed = 7
	c := NewGenerator(config).Table()
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different seeds should produce different tables")
	}
}

func TestGeneratorShape(t *testing.T) {
	config := KitConfig{
		Respondents:   30,
		LikertItems:   4,
		MissingRate:   0.05,
		DuplicateRows: 2,
		OutlierRows:   1,
		Seed:          42,
	}
	table := NewGenerator(config).Table()

	if got := table.RowCount(); got != 32 {
		t.Fatalf("RowCount = %d, want respondents+duplicates = 32", got)
	}
	if got := table.ColumnCount(); got != 11 {
		t.Fatalf("ColumnCount = %d, want 11", got)
	}

	seen := make(map[core.Hash]int)
	for _, row := range table.Rows {
		seen[row.Key(table.Columns)]++
	}
	dupes := table.RowCount() - len(seen)
	if dupes < config.DuplicateRows {
		t.Errorf("found %d duplicate rows, want at least %d", dupes, config.DuplicateRows)
	}
}

func TestGeneratorInjectsOutliers(t *testing.T) {
	config := DefaultKitConfig()
	config.MissingRate = 0
	table := NewGenerator(config).Table()

	extreme := 0
	for _, v := range table.NumericColumn("age") {
		if v >= 140 {
			extreme++
		}
	}
	if extreme < config.OutlierRows {
		t.Errorf("found %d extreme ages, want at least %d", extreme, config.OutlierRows)
	}
}

func TestGeneratorDatasetTypes(t *testing.T) {
	ds := NewGenerator(DefaultKitConfig()).Dataset("survey.csv")

	want := map[string]dataset.ColumnType{
		"age":                dataset.TypeContinuous,
		"satisfaction_score": dataset.TypeContinuous,
		"stress_score":       dataset.TypeContinuous,
		"gender":             dataset.TypeCategorical,
		"education":          dataset.TypeCategorical,
		"item_1":             dataset.TypeCategorical,
		"remote_worker":      dataset.TypeBinary,
	}
	for col, typ := range want {
		if got := ds.Types[col]; got != typ {
			t.Errorf("type of %s = %s, want %s", col, got, typ)
		}
	}
}

func TestGeneratorMissingRate(t *testing.T) {
	config := DefaultKitConfig()
	config.MissingRate = 0.2
	table := NewGenerator(config).Table()

	missing := 0
	for _, row := range table.Rows {
		for _, col := range table.Columns {
			if row.Value(col).IsMissing() {
				missing++
			}
		}
	}
	if missing == 0 {
		t.Error("expected injected missing cells at rate 0.2")
	}

	config.MissingRate = 0
	clean := NewGenerator(config).Table()
	for _, row := range clean.Rows {
		for _, col := range clean.Columns {
			if row.Value(col).IsMissing() {
				t.Fatal("rate 0 should inject no missing cells")
			}
		}
	}
}

func TestGeneratorCSV(t *testing.T) {
	config := DefaultKitConfig()
	config.Respondents = 10
	config.DuplicateRows = 0

	raw := NewGenerator(config).CSV()
	records, err := csv.NewReader(bytes.NewReader(raw)).ReadAll()
	if err != nil {
		t.Fatalf("generated CSV failed to parse: %v", err)
	}
	if len(records) != 11 {
		t.Fatalf("got %d records, want header + 10 rows", len(records))
	}
	if records[0][0] != "participant_id" {
		t.Errorf("header starts with %q, want participant_id", records[0][0])
	}
}
