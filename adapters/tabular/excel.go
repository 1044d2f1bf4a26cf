package tabular

import (
	"io"
	"log"

	"datalab/domain/core"
	"datalab/domain/dataset"

	"github.com/xuri/excelize/v2"
)

// readWorkbook parses an .xlsx workbook, first sheet only. A sheet with
// no data records yields an empty table, not an error.
func (r *Reader) readWorkbook(src io.Reader) (*dataset.Table, error) {
	f, err := excelize.OpenReader(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.ErrEmptySheet
	}

	sheet := sheets[0]
	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	log.Printf("[TabularReader] Sheet %q read (%d raw rows)", sheet, len(raw))

	// Column set comes from the first data record: a header with no data
	// beneath it counts as an empty sheet.
	if len(raw) < 2 {
		return &dataset.Table{}, nil
	}

	return buildTable(raw), nil
}

// readLegacyWorkbook handles .xls uploads. The legacy binary format is
// not readable here; a payload that happens to be a mislabeled .xlsx is
// still accepted.
func (r *Reader) readLegacyWorkbook(src io.Reader) (*dataset.Table, error) {
	table, err := r.readWorkbook(src)
	if err != nil {
		if err == core.ErrEmptySheet {
			return nil, err
		}
		return nil, core.ErrLegacyExcelFormat
	}
	return table, nil
}
