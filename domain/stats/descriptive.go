package stats

import (
	"datalab/domain/core"
)

// ContinuousStats summarizes one continuous column. Order statistics use
// linear interpolation between closest ranks; Std is the sample standard
// deviation (n-1 denominator).
type ContinuousStats struct {
	Column  string `json:"column"`
	N       int    `json:"n"`
	Missing int    `json:"missing"`

	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
	IQR    float64 `json:"iqr"`

	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"`

	HighlySkewed bool `json:"highly_skewed,omitempty"`
	ZeroVariance bool `json:"zero_variance,omitempty"`
}

// CategoryCount is one level of a categorical column, ordered by
// descending frequency
type CategoryCount struct {
	Value      string  `json:"value"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// CategoricalStats summarizes one categorical or binary column
type CategoricalStats struct {
	Column  string `json:"column"`
	N       int    `json:"n"`
	Missing int    `json:"missing"`

	UniqueCount int             `json:"unique_count"`
	Mode        string          `json:"mode"`
	Categories  []CategoryCount `json:"categories"`

	// Sparse flags levels observed fewer than 5 times
	Sparse []string `json:"sparse_categories,omitempty"`
}

// DescriptiveStats is the full per-dataset descriptive result, keyed by
// column name. Columns preserves dataset order; a column appears in
// exactly one of the two maps according to its inferred type.
type DescriptiveStats struct {
	DatasetID   core.DatasetID               `json:"dataset_id"`
	RowCount    int                          `json:"row_count"`
	Columns     []string                     `json:"columns"`
	Continuous  map[string]*ContinuousStats  `json:"continuous"`
	Categorical map[string]*CategoricalStats `json:"categorical"`
	GeneratedAt core.Timestamp               `json:"generated_at"`
}

// ContinuousColumns returns the continuous column names in dataset order
func (d *DescriptiveStats) ContinuousColumns() []string {
	var cols []string
	for _, c := range d.Columns {
		if _, ok := d.Continuous[c]; ok {
			cols = append(cols, c)
		}
	}
	return cols
}

// CategoricalColumns returns the categorical column names in dataset order
func (d *DescriptiveStats) CategoricalColumns() []string {
	var cols []string
	for _, c := range d.Columns {
		if _, ok := d.Categorical[c]; ok {
			cols = append(cols, c)
		}
	}
	return cols
}
