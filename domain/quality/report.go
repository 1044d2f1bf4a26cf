package quality

import (
	"datalab/domain/core"
	"datalab/domain/dataset"
)

// QualityReport is derived from a dataset on demand, recomputed fresh each
// call and never mutated in place.
type QualityReport struct {
	DatasetID   core.DatasetID `json:"dataset_id"`
	Filename    string         `json:"filename"`
	RowCount    int            `json:"row_count"`
	ColumnCount int            `json:"column_count"`
	Columns     []string       `json:"columns"`

	Duplicates DuplicateSummary  `json:"duplicates"`
	Missing    MissingSummary    `json:"missing"`
	Outliers   OutlierSummary    `json:"outliers"`
	Summary    AuditSummary      `json:"summary"`
	Dictionary []DictionaryEntry `json:"data_dictionary"`

	GeneratedAt core.Timestamp `json:"generated_at"`
}

// DuplicateSummary counts exact full-row duplicates (serialization match
// over column order, not key-based).
type DuplicateSummary struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// MissingSummary accounts every null/absent/empty-string cell
type MissingSummary struct {
	TotalCells         int                      `json:"total_cells"`
	TotalMissing       int                      `json:"total_missing"`
	OverallPercentage  float64                  `json:"overall_percentage"`
	ByColumn           map[string]ColumnMissing `json:"by_column"`
	HighMissingColumns []string                 `json:"high_missing_columns"`
}

// ColumnMissing is one column's missing-cell tally
type ColumnMissing struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// OutlierSummary covers continuous columns under the Tukey IQR rule.
// ByColumn lists only columns with at least one outlier.
type OutlierSummary struct {
	ByColumn            map[string]ColumnOutliers `json:"by_column"`
	ColumnsWithOutliers int                       `json:"columns_with_outliers"`
}

// ColumnOutliers describes one flagged column
type ColumnOutliers struct {
	Count      int       `json:"count"`
	Percentage float64   `json:"percentage"`
	LowerBound float64   `json:"lower_bound"`
	UpperBound float64   `json:"upper_bound"`
	Samples    []float64 `json:"sample_values,omitempty"`
}

// AuditSummary aggregates the report into issue counts, the 0-100 score,
// and a recommendation. The score is always clamped to [0, 100].
type AuditSummary struct {
	TotalIssues    int    `json:"total_issues"`
	CriticalIssues int    `json:"critical_issues"`
	QualityScore   int    `json:"quality_score"`
	Recommendation string `json:"recommendation"`
}

// DictionaryEntry is one column's entry in the generated data dictionary
type DictionaryEntry struct {
	Column       string             `json:"column"`
	Type         dataset.ColumnType `json:"type"`
	NonMissing   int                `json:"non_missing"`
	MissingPct   float64            `json:"missing_pct"`
	UniqueCount  int                `json:"unique_count"`
	SampleValues []string           `json:"sample_values,omitempty"`
	Min          *float64           `json:"min,omitempty"`
	Max          *float64           `json:"max,omitempty"`
}
