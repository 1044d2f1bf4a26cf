package dataset

import (
	"datalab/domain/core"
)

// ColumnType is the inferred semantic type of a column, driving which
// statistics apply to it.
type ColumnType string

const (
	TypeContinuous  ColumnType = "continuous"
	TypeCategorical ColumnType = "categorical"
	TypeBinary      ColumnType = "binary"
)

// Row maps column name to cell value. Columns absent from a row are treated
// as Missing, not as an error.
type Row map[string]Value

// Value returns the cell for a column, Missing when the key is absent
func (r Row) Value(col string) Value {
	if v, ok := r[col]; ok {
		return v
	}
	return Missing
}

// Key serializes the row field-by-field over the given column order and
// hashes it. Two rows are exact duplicates iff their keys are equal.
func (r Row) Key(columns []string) core.Hash {
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = r.Value(col).String()
	}
	return core.HashStrings(parts...)
}

// Table is the rectangular in-memory form a parsed file materializes into:
// an ordered column list and a sequence of rows. A table is fully built
// before any other component sees it; there is no partial or streaming
// construction.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// RowCount returns the number of data rows
func (t *Table) RowCount() int {
	return len(t.Rows)
}

// ColumnCount returns the number of columns
func (t *Table) ColumnCount() int {
	return len(t.Columns)
}

// HasColumn reports whether the table defines the named column
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// ColumnValues returns the column's cells in row order
func (t *Table) ColumnValues(name string) []Value {
	values := make([]Value, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row.Value(name)
	}
	return values
}

// NumericColumn returns the column's numeric values in row order, dropping
// cells that are missing or not numeric-parseable.
func (t *Table) NumericColumn(name string) []float64 {
	nums := make([]float64, 0, len(t.Rows))
	for _, row := range t.Rows {
		if f, ok := row.Value(name).Numeric(); ok {
			nums = append(nums, f)
		}
	}
	return nums
}

// Clone deep-copies the table so cleaning operations never mutate the
// version they started from.
func (t *Table) Clone() *Table {
	columns := make([]string, len(t.Columns))
	copy(columns, t.Columns)
	rows := make([]Row, len(t.Rows))
	for i, row := range t.Rows {
		cloned := make(Row, len(row))
		for k, v := range row {
			cloned[k] = v
		}
		rows[i] = cloned
	}
	return &Table{Columns: columns, Rows: rows}
}

// AddColumn appends a derived column. Values shorter than the row count
// leave trailing cells Missing.
func (t *Table) AddColumn(name string, values []Value) {
	if !t.HasColumn(name) {
		t.Columns = append(t.Columns, name)
	}
	for i, row := range t.Rows {
		if i < len(values) {
			row[name] = values[i]
		} else {
			row[name] = Missing
		}
	}
}

// Fingerprint hashes the full content (column order + every canonical cell)
func (t *Table) Fingerprint() core.Hash {
	parts := make([]string, 0, len(t.Columns)*(len(t.Rows)+1))
	parts = append(parts, t.Columns...)
	for _, row := range t.Rows {
		for _, col := range t.Columns {
			parts = append(parts, row.Value(col).String())
		}
	}
	return core.HashStrings(parts...)
}

// Dataset is the unit of analysis: a parsed table plus inferred column
// types and file provenance. Created atomically by a successful import;
// the session store holds at most one live dataset at a time.
type Dataset struct {
	ID               core.DatasetID        `json:"id"`
	OriginalFilename string                `json:"original_filename"`
	Table            *Table                `json:"-"`
	Types            map[string]ColumnType `json:"column_types"`
	RowCount         int                   `json:"row_count"`
	ColumnCount      int                   `json:"column_count"`
	Fingerprint      core.Hash             `json:"fingerprint"`
	Source           string                `json:"source"`
	CreatedAt        core.Timestamp        `json:"created_at"`
}

// NewDataset materializes a dataset from a parsed table and its inferred
// types, computing counts and the content fingerprint.
func NewDataset(filename string, table *Table, types map[string]ColumnType) *Dataset {
	return &Dataset{
		ID:               core.DatasetID(core.NewID()),
		OriginalFilename: filename,
		Table:            table,
		Types:            types,
		RowCount:         table.RowCount(),
		ColumnCount:      table.ColumnCount(),
		Fingerprint:      table.Fingerprint(),
		Source:           "upload",
		CreatedAt:        core.Now(),
	}
}

// WithTable returns a copy of the dataset carrying a transformed table and
// its types, preserving identity and provenance. Cleaning operations use it
// so the dataset ID stays stable across versions.
func (d *Dataset) WithTable(table *Table, types map[string]ColumnType) *Dataset {
	return &Dataset{
		ID:               d.ID,
		OriginalFilename: d.OriginalFilename,
		Table:            table,
		Types:            types,
		RowCount:         table.RowCount(),
		ColumnCount:      table.ColumnCount(),
		Fingerprint:      table.Fingerprint(),
		Source:           d.Source,
		CreatedAt:        d.CreatedAt,
	}
}

// ContinuousColumns returns the names of continuous columns in table order
func (d *Dataset) ContinuousColumns() []string {
	var out []string
	for _, col := range d.Table.Columns {
		if d.Types[col] == TypeContinuous {
			out = append(out, col)
		}
	}
	return out
}

// CategoricalColumns returns categorical and binary columns in table order
func (d *Dataset) CategoricalColumns() []string {
	var out []string
	for _, col := range d.Table.Columns {
		if t := d.Types[col]; t == TypeCategorical || t == TypeBinary {
			out = append(out, col)
		}
	}
	return out
}

// Version is a named snapshot in a dataset's cleaning history
type Version struct {
	Tag         core.VersionTag `json:"tag"`
	Description string          `json:"description,omitempty"`
	RowCount    int             `json:"row_count"`
	ColumnCount int             `json:"column_count"`
	Columns     []string        `json:"columns"`
	SavedAt     core.Timestamp  `json:"saved_at"`
	Current     bool            `json:"current"`
}

// VersionDiff summarizes the shape change between two snapshots
type VersionDiff struct {
	From           core.VersionTag `json:"from"`
	To             core.VersionTag `json:"to"`
	RowDiff        int             `json:"row_diff"`
	ColumnDiff     int             `json:"column_diff"`
	ColumnsAdded   []string        `json:"columns_added"`
	ColumnsRemoved []string        `json:"columns_removed"`
}

// Compare diffs two versions, earlier first
func Compare(from, to Version) VersionDiff {
	fromSet := make(map[string]bool, len(from.Columns))
	for _, c := range from.Columns {
		fromSet[c] = true
	}
	toSet := make(map[string]bool, len(to.Columns))
	for _, c := range to.Columns {
		toSet[c] = true
	}

	diff := VersionDiff{
		From:       from.Tag,
		To:         to.Tag,
		RowDiff:    to.RowCount - from.RowCount,
		ColumnDiff: to.ColumnCount - from.ColumnCount,
	}
	for _, c := range to.Columns {
		if !fromSet[c] {
			diff.ColumnsAdded = append(diff.ColumnsAdded, c)
		}
	}
	for _, c := range from.Columns {
		if !toSet[c] {
			diff.ColumnsRemoved = append(diff.ColumnsRemoved, c)
		}
	}
	return diff
}
