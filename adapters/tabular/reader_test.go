package tabular

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"datalab/domain/core"
	"datalab/domain/dataset"

	"github.com/xuri/excelize/v2"
)

func readString(t *testing.T, filename, payload string) (*dataset.Table, error) {
	t.Helper()
	r := NewReader(50 * 1024 * 1024)
	return r.Read(context.Background(), filename, strings.NewReader(payload), int64(len(payload)))
}

func TestRead_CSVBasic(t *testing.T) {
	table, err := readString(t, "scores.csv", "name,score\nalice,10\nbob,20\n")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if got := table.Columns; len(got) != 2 || got[0] != "name" || got[1] != "score" {
		t.Errorf("Expected columns [name score], got %v", got)
	}
	if table.RowCount() != 2 {
		t.Fatalf("Expected 2 rows, got %d", table.RowCount())
	}

	score := table.Rows[0].Value("score")
	if score.Kind() != dataset.KindNumber {
		t.Errorf("Expected numeric score cell, got kind %v", score.Kind())
	}
	if n, ok := score.Number(); !ok || n != 10 {
		t.Errorf("Expected score 10, got %v (ok=%v)", n, ok)
	}
}

func TestRead_CSVSniffsDelimiter(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"semicolon", "name;score\nalice;10\n"},
		{"tab", "name\tscore\nalice\t10\n"},
		{"comma", "name,score\nalice,10\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := readString(t, "data.csv", tt.payload)
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if len(table.Columns) != 2 {
				t.Errorf("Expected 2 columns, got %v", table.Columns)
			}
			if table.RowCount() != 1 {
				t.Errorf("Expected 1 row, got %d", table.RowCount())
			}
		})
	}
}

func TestRead_CSVSkipsBlankLines(t *testing.T) {
	table, err := readString(t, "data.csv", "a,b\n1,2\n\n,,\n3,4\n")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if table.RowCount() != 2 {
		t.Errorf("Expected blank lines skipped, got %d rows", table.RowCount())
	}
}

func TestRead_CSVRaggedRows(t *testing.T) {
	table, err := readString(t, "data.csv", "a,b,c\n1,2\n4,5,6,7\n")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if table.RowCount() != 2 {
		t.Fatalf("Expected 2 rows, got %d", table.RowCount())
	}

	// Short row leaves trailing columns missing
	if !table.Rows[0].Value("c").IsMissing() {
		t.Error("Expected missing cell for short row")
	}
	// Long row drops cells beyond the header
	if v, ok := table.Rows[1].Value("c").Number(); !ok || v != 6 {
		t.Errorf("Expected c=6 on long row, got %v", table.Rows[1].Value("c"))
	}
}

func TestRead_CSVCoercesCellTypes(t *testing.T) {
	table, err := readString(t, "data.csv", "id,active,label,gap\n1,true,alpha,\n2.5,false,beta,x\n")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	r0 := table.Rows[0]
	if r0.Value("id").Kind() != dataset.KindNumber {
		t.Errorf("Expected numeric id, got %v", r0.Value("id").Kind())
	}
	if r0.Value("active").Kind() != dataset.KindBool {
		t.Errorf("Expected bool active, got %v", r0.Value("active").Kind())
	}
	if r0.Value("label").Kind() != dataset.KindText {
		t.Errorf("Expected text label, got %v", r0.Value("label").Kind())
	}
	if !r0.Value("gap").IsMissing() {
		t.Error("Expected empty cell to be missing")
	}
}

func TestRead_UnsupportedExtension(t *testing.T) {
	_, err := readString(t, "notes.txt", "a,b\n1,2\n")
	if err == nil {
		t.Fatal("Expected error for unsupported extension")
	}
	if !errors.Is(err, core.ErrUnsupportedFileType) {
		t.Errorf("Expected unsupported-file-type error, got %v", err)
	}
	if !core.IsInputFormatError(err) {
		t.Errorf("Expected input format error classification, got %v", err)
	}
}

func TestRead_EmptyPayload(t *testing.T) {
	_, err := readString(t, "empty.csv", "")
	if !errors.Is(err, core.ErrEmptyFile) {
		t.Errorf("Expected empty-file error, got %v", err)
	}
}

func TestRead_OversizedPayload(t *testing.T) {
	r := NewReader(8)
	payload := "a,b\n1,2\n3,4\n"
	_, err := r.Read(context.Background(), "big.csv", strings.NewReader(payload), int64(len(payload)))
	if !errors.Is(err, core.ErrFileTooLarge) {
		t.Errorf("Expected file-too-large error, got %v", err)
	}
}

func TestRead_MalformedCSV(t *testing.T) {
	_, err := readString(t, "broken.csv", "a,b\n\"unterminated,1\n")
	if err == nil {
		t.Fatal("Expected parse error for malformed quoting")
	}
	if !errors.Is(err, core.ErrMalformedFile) {
		t.Errorf("Expected malformed-file error, got %v", err)
	}
}

func workbookBytes(t *testing.T, build func(f *excelize.File)) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	build(f)
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("Failed to build workbook: %v", err)
	}
	return buf.Bytes()
}

func TestRead_WorkbookFirstSheetOnly(t *testing.T) {
	payload := workbookBytes(t, func(f *excelize.File) {
		f.SetCellValue("Sheet1", "A1", "name")
		f.SetCellValue("Sheet1", "B1", "score")
		f.SetCellValue("Sheet1", "A2", "alice")
		f.SetCellValue("Sheet1", "B2", 10)

		f.NewSheet("Extra")
		f.SetCellValue("Extra", "A1", "ignored")
		f.SetCellValue("Extra", "A2", "also ignored")
	})

	r := NewReader(0)
	table, err := r.Read(context.Background(), "book.xlsx", bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if len(table.Columns) != 2 {
		t.Fatalf("Expected 2 columns from first sheet, got %v", table.Columns)
	}
	if table.RowCount() != 1 {
		t.Errorf("Expected 1 row, got %d", table.RowCount())
	}
	if n, ok := table.Rows[0].Value("score").Number(); !ok || n != 10 {
		t.Errorf("Expected score 10, got %v", table.Rows[0].Value("score"))
	}
}

func TestRead_WorkbookHeaderOnlyIsEmpty(t *testing.T) {
	payload := workbookBytes(t, func(f *excelize.File) {
		f.SetCellValue("Sheet1", "A1", "name")
		f.SetCellValue("Sheet1", "B1", "score")
	})

	r := NewReader(0)
	table, err := r.Read(context.Background(), "book.xlsx", bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		t.Fatalf("Expected empty table without error, got %v", err)
	}
	if table.ColumnCount() != 0 || table.RowCount() != 0 {
		t.Errorf("Expected empty table, got %d columns, %d rows", table.ColumnCount(), table.RowCount())
	}
}

func TestRead_LegacyWorkbook(t *testing.T) {
	payload := "not a zip archive"
	r := NewReader(0)
	_, err := r.Read(context.Background(), "old.xls", strings.NewReader(payload), int64(len(payload)))
	if err == nil {
		t.Fatal("Expected error for legacy workbook")
	}
	if !errors.Is(err, core.ErrLegacyExcelFormat) {
		t.Errorf("Expected legacy-format error, got %v", err)
	}
}

func TestRead_MislabeledLegacyWorkbook(t *testing.T) {
	payload := workbookBytes(t, func(f *excelize.File) {
		f.SetCellValue("Sheet1", "A1", "name")
		f.SetCellValue("Sheet1", "A2", "alice")
	})

	r := NewReader(0)
	table, err := r.Read(context.Background(), "renamed.xls", bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		t.Fatalf("Expected mislabeled xlsx to parse, got %v", err)
	}
	if table.RowCount() != 1 {
		t.Errorf("Expected 1 row, got %d", table.RowCount())
	}
}

func TestSupports(t *testing.T) {
	r := NewReader(0)
	tests := []struct {
		filename string
		want     bool
	}{
		{"data.csv", true},
		{"data.XLSX", true},
		{"data.xls", true},
		{"data.txt", false},
		{"data.sav", false},
		{"data", false},
	}
	for _, tt := range tests {
		if got := r.Supports(tt.filename); got != tt.want {
			t.Errorf("Supports(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}
