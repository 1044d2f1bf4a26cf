package inference

import (
	"datalab/domain/dataset"
)

// Classification thresholds for the numeric-cardinality rule: a numeric
// column is categorical when its distinct count falls under the floor or
// under the fraction of non-missing values.
const (
	cardinalityFloor    = 10
	cardinalityFraction = 0.10
)

// Inferencer classifies columns as continuous, categorical, or binary
// from their observed values. Classification is deterministic: the same
// column always yields the same type.
type Inferencer struct{}

func NewInferencer() *Inferencer {
	return &Inferencer{}
}

// InferTypes classifies every column of the table
func (inf *Inferencer) InferTypes(table *dataset.Table) map[string]dataset.ColumnType {
	types := make(map[string]dataset.ColumnType, len(table.Columns))
	for _, col := range table.Columns {
		types[col] = inf.InferColumn(table, col)
	}
	return types
}

// InferColumn classifies a single column. Missing cells are excluded
// before any rule applies. The binary check runs before the
// numeric-cardinality rule, so a numeric column with exactly two
// distinct values is always binary.
func (inf *Inferencer) InferColumn(table *dataset.Table, col string) dataset.ColumnType {
	distinct := make(map[string]struct{})
	nonMissing := 0
	allNumeric := true

	for _, row := range table.Rows {
		v := row.Value(col)
		if v.IsMissing() {
			continue
		}
		nonMissing++
		distinct[v.String()] = struct{}{}
		if _, ok := v.Numeric(); !ok {
			allNumeric = false
		}
	}

	// Degenerate policy: a column with no observed values defaults to
	// categorical.
	if nonMissing == 0 {
		return dataset.TypeCategorical
	}
	if len(distinct) == 2 {
		return dataset.TypeBinary
	}
	if allNumeric {
		if len(distinct) < cardinalityFloor || float64(len(distinct)) < cardinalityFraction*float64(nonMissing) {
			return dataset.TypeCategorical
		}
		return dataset.TypeContinuous
	}
	return dataset.TypeCategorical
}
