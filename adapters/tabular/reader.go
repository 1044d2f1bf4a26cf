package tabular

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"datalab/domain/core"
	"datalab/domain/dataset"
	"datalab/ports"
)

// supportedExtensions lists the parseable upload formats, in the order
// shown to users in error messages.
var supportedExtensions = []string{".csv", ".xlsx", ".xls"}

// Reader parses uploaded delimited-text and spreadsheet files
type Reader struct {
	maxBytes int64
}

var _ ports.TabularReader = (*Reader)(nil)

// NewReader creates a reader enforcing the given payload size limit
func NewReader(maxBytes int64) *Reader {
	return &Reader{maxBytes: maxBytes}
}

// Supports reports whether the filename's extension is parseable
func (r *Reader) Supports(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, s := range supportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Read parses the named payload into a raw table. Dispatch is by file
// extension; unsupported extensions fail without touching the payload.
func (r *Reader) Read(ctx context.Context, filename string, src io.Reader, size int64) (*dataset.Table, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	log.Printf("[TabularReader] Reading %s (%d bytes)", filename, size)

	if !r.Supports(filename) {
		return nil, core.NewUnsupportedFileTypeError(ext, supportedExtensions)
	}
	if size == 0 {
		return nil, core.ErrEmptyFile
	}
	if r.maxBytes > 0 && size > r.maxBytes {
		return nil, core.NewFileTooLargeError(size, r.maxBytes)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	startTime := time.Now()
	var table *dataset.Table
	var err error
	switch ext {
	case ".csv":
		table, err = r.readCSV(src)
	case ".xlsx":
		table, err = r.readWorkbook(src)
	case ".xls":
		table, err = r.readLegacyWorkbook(src)
	}
	if err != nil {
		return nil, core.NewParseError(filename, err)
	}

	elapsed := time.Since(startTime)
	log.Printf("[TabularReader] Parsed %s in %.2fms (%d columns, %d rows)",
		filename, float64(elapsed.Nanoseconds())/1e6, table.ColumnCount(), table.RowCount())
	return table, nil
}

// buildTable converts raw string rows into a Table. The first row is the
// header; header names are trimmed. Cells beyond the header width are
// dropped, short rows leave the remaining columns missing, and rows whose
// cells are all empty are skipped.
func buildTable(raw [][]string) *dataset.Table {
	if len(raw) == 0 {
		return &dataset.Table{}
	}

	headerRow := raw[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(header)
	}

	var rows []dataset.Row
	for i := 1; i < len(raw); i++ {
		record := raw[i]
		if isBlank(record) {
			continue
		}

		row := make(dataset.Row, len(headers))
		for j, header := range headers {
			if j < len(record) {
				row[header] = dataset.Coerce(record[j])
			} else {
				row[header] = dataset.Missing
			}
		}
		rows = append(rows, row)
	}

	return &dataset.Table{Columns: headers, Rows: rows}
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
