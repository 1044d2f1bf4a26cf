// Package cleaning transforms datasets. Every operation clones the
// table before touching it and returns a fresh dataset, so the version
// an operation started from stays intact for undo and comparison. Each
// result names its audit action and carries the detail map the trail
// entry records.
package cleaning

import (
	"fmt"
	"log"
	"math"

	"datalab/domain/audit"
	"datalab/domain/core"
	"datalab/domain/dataset"
	"datalab/internal/errors"
	"datalab/internal/inference"

	"github.com/montanaflynn/stats"
)

const (
	defaultLowerPercentile = 0.05
	defaultUpperPercentile = 0.95
	defaultLogConstant     = 1.0
	minPercentileValues    = 4
)

var quartileLabels = [4]string{"Q1 (Low)", "Q2", "Q3", "Q4 (High)"}

// Result reports what one transformation did. Dataset carries the
// transformed data and is persisted by the caller, not serialized here.
type Result struct {
	Operation audit.Action     `json:"operation"`
	Dataset   *dataset.Dataset `json:"-"`
	Summary   string           `json:"summary"`
	Detail    map[string]any   `json:"detail"`
}

// Transformer applies cleaning operations
type Transformer struct {
	inf *inference.Inferencer
}

func NewTransformer() *Transformer {
	return &Transformer{inf: inference.NewInferencer()}
}

// RemoveDuplicates drops rows whose cells repeat an earlier row over the
// subset columns, or over every column when the subset is empty. With
// keepLast the final occurrence survives instead of the first.
func (tr *Transformer) RemoveDuplicates(ds *dataset.Dataset, subset []string, keepLast bool) (*Result, error) {
	if ds == nil || ds.Table == nil {
		return nil, errors.ValidationError("no dataset loaded")
	}
	t := ds.Table

	columns := subset
	if len(columns) == 0 {
		columns = t.Columns
	}
	for _, col := range columns {
		if !t.HasColumn(col) {
			return nil, errors.ValidationError(fmt.Sprintf("column %q is not in the dataset", col))
		}
	}

	keys := make([]core.Hash, len(t.Rows))
	keep := make(map[core.Hash]int, len(t.Rows))
	for i, row := range t.Rows {
		keys[i] = row.Key(columns)
		if _, seen := keep[keys[i]]; !seen || keepLast {
			keep[keys[i]] = i
		}
	}

	clone := t.Clone()
	kept := make([]dataset.Row, 0, len(keep))
	for i, row := range clone.Rows {
		if keep[keys[i]] == i {
			kept = append(kept, row)
		}
	}
	clone.Rows = kept
	removed := len(t.Rows) - len(kept)

	policy := "first"
	if keepLast {
		policy = "last"
	}
	detail := map[string]any{
		"rows_removed":   removed,
		"original_count": len(t.Rows),
		"new_count":      len(kept),
		"subset":         columns,
		"keep":           policy,
	}
	summary := fmt.Sprintf("Removed %d duplicate row(s)", removed)
	next := ds.WithTable(clone, copyTypes(ds.Types))
	return tr.finish(audit.ActionRemoveDuplicates, next, summary, detail), nil
}

// HandleMissing resolves missing cells in one column. Methods: drop
// removes the rows, mean and median impute from the numeric values,
// mode imputes the most frequent observed value, value imputes the
// given fill.
func (tr *Transformer) HandleMissing(ds *dataset.Dataset, column, method string, fill dataset.Value) (*Result, error) {
	if err := requireColumn(ds, column); err != nil {
		return nil, err
	}
	t := ds.Table
	missingBefore := countMissing(t, column)

	clone := t.Clone()
	var filledWith dataset.Value
	switch method {
	case "drop":
		kept := make([]dataset.Row, 0, len(clone.Rows))
		for _, row := range clone.Rows {
			if !row.Value(column).IsMissing() {
				kept = append(kept, row)
			}
		}
		clone.Rows = kept
	case "mean":
		nums := clone.NumericColumn(column)
		if len(nums) == 0 {
			return nil, errors.ValidationError(fmt.Sprintf("column %q has no numeric values to average", column))
		}
		m, _ := stats.Mean(nums)
		filledWith = dataset.Number(m)
	case "median":
		nums := clone.NumericColumn(column)
		if len(nums) == 0 {
			return nil, errors.ValidationError(fmt.Sprintf("column %q has no numeric values to take a median of", column))
		}
		m, _ := stats.Median(nums)
		filledWith = dataset.Number(m)
	case "mode":
		mode, ok := modeOf(clone.ColumnValues(column))
		if !ok {
			return nil, errors.ValidationError(fmt.Sprintf("column %q has no observed values", column))
		}
		filledWith = mode
	case "value":
		if fill.IsMissing() {
			return nil, errors.ValidationError("a fill value is required for the value method")
		}
		filledWith = fill
	default:
		return nil, errors.ValidationError(fmt.Sprintf("unknown missing-value method %q", method))
	}

	if !filledWith.IsMissing() {
		fillMissing(clone, column, filledWith)
	}
	missingAfter := countMissing(clone, column)
	imputed := missingBefore - missingAfter

	detail := map[string]any{
		"column":         column,
		"method":         method,
		"missing_before": missingBefore,
		"missing_after":  missingAfter,
		"imputed_count":  imputed,
	}
	var summary string
	if method == "drop" {
		summary = fmt.Sprintf("Dropped %d row(s) with missing %s", missingBefore, column)
	} else {
		detail["fill_value"] = filledWith.String()
		summary = fmt.Sprintf("Filled %d missing value(s) in %s using %s", imputed, column, method)
	}

	var next *dataset.Dataset
	if method == "drop" {
		next = ds.WithTable(clone, copyTypes(ds.Types))
	} else {
		next = tr.retyped(ds, clone)
	}
	return tr.finish(audit.ActionHandleMissing, next, summary, detail), nil
}

// WinsorizeOutliers clamps the column to its lower and upper percentile
// bounds, given as fractions. Zero bounds default to 0.05 and 0.95.
func (tr *Transformer) WinsorizeOutliers(ds *dataset.Dataset, column string, lower, upper float64) (*Result, error) {
	if err := requireColumn(ds, column); err != nil {
		return nil, err
	}
	if lower == 0 {
		lower = defaultLowerPercentile
	}
	if upper == 0 {
		upper = defaultUpperPercentile
	}
	if lower < 0 || upper > 1 || lower >= upper {
		return nil, errors.ValidationError("percentile bounds must satisfy 0 < lower < upper <= 1")
	}

	t := ds.Table
	nums := t.NumericColumn(column)
	if len(nums) < minPercentileValues {
		return nil, errors.ValidationError(fmt.Sprintf("column %q needs at least %d numeric values to winsorize", column, minPercentileValues))
	}

	// montanaflynn rejects percentile positions at or below the first
	// value; very low fractions on small samples clamp to the extremes.
	lowerBound, err := stats.Percentile(nums, lower*100)
	if err != nil {
		lowerBound, _ = stats.Min(nums)
	}
	upperBound, err := stats.Percentile(nums, upper*100)
	if err != nil {
		upperBound, _ = stats.Max(nums)
	}

	clone := t.Clone()
	clamped := 0
	for _, row := range clone.Rows {
		v, ok := row.Value(column).Numeric()
		if !ok {
			continue
		}
		switch {
		case v < lowerBound:
			row[column] = dataset.Number(lowerBound)
			clamped++
		case v > upperBound:
			row[column] = dataset.Number(upperBound)
			clamped++
		}
	}

	origMin, _ := stats.Min(nums)
	origMax, _ := stats.Max(nums)
	detail := map[string]any{
		"column":           column,
		"lower_percentile": lower,
		"upper_percentile": upper,
		"lower_bound":      lowerBound,
		"upper_bound":      upperBound,
		"clamped_count":    clamped,
		"original_range":   [2]float64{origMin, origMax},
	}
	summary := fmt.Sprintf("Clamped %d value(s) in %s to [%g, %g]", clamped, column, lowerBound, upperBound)
	return tr.finish(audit.ActionWinsorize, tr.retyped(ds, clone), summary, detail), nil
}

// RecodeValues rewrites cells whose canonical text matches a mapping
// key. An empty newColumn recodes in place; otherwise the recoded
// values land in a new column.
func (tr *Transformer) RecodeValues(ds *dataset.Dataset, column string, mapping map[string]string, newColumn string) (*Result, error) {
	if err := requireColumn(ds, column); err != nil {
		return nil, err
	}
	if len(mapping) == 0 {
		return nil, errors.ValidationError("a recode mapping needs at least one entry")
	}

	target := newColumn
	if target == "" {
		target = column
	}

	clone := ds.Table.Clone()
	values := make([]dataset.Value, len(clone.Rows))
	recoded := 0
	for i, row := range clone.Rows {
		v := row.Value(column)
		if replacement, ok := mapping[v.String()]; ok && !v.IsMissing() {
			values[i] = dataset.Coerce(replacement)
			recoded++
		} else {
			values[i] = v
		}
	}
	clone.AddColumn(target, values)

	detail := map[string]any{
		"column":        column,
		"new_column":    target,
		"mapping":       mapping,
		"recoded_count": recoded,
	}
	summary := fmt.Sprintf("Recoded %d value(s) in %s into %s", recoded, column, target)
	return tr.finish(audit.ActionRecode, tr.retyped(ds, clone), summary, detail), nil
}

// Standardize derives scaled columns. The zscore method writes
// (x-mean)/std under a _z suffix, minmax writes (x-min)/(max-min)
// under a _scaled suffix. Non-numeric cells become missing.
func (tr *Transformer) Standardize(ds *dataset.Dataset, columns []string, method string) (*Result, error) {
	if ds == nil || ds.Table == nil {
		return nil, errors.ValidationError("no dataset loaded")
	}
	if len(columns) == 0 {
		return nil, errors.ValidationError("select at least one column to standardize")
	}
	if method != "zscore" && method != "minmax" {
		return nil, errors.ValidationError(fmt.Sprintf("unknown standardization method %q", method))
	}

	clone := ds.Table.Clone()
	newColumns := make([]string, 0, len(columns))
	for _, col := range columns {
		if !clone.HasColumn(col) {
			return nil, errors.ValidationError(fmt.Sprintf("column %q is not in the dataset", col))
		}
		nums := clone.NumericColumn(col)
		if len(nums) < 2 {
			return nil, errors.ValidationError(fmt.Sprintf("column %q needs at least two numeric values to standardize", col))
		}

		var transform func(float64) float64
		var suffix string
		if method == "zscore" {
			mean, _ := stats.Mean(nums)
			std, _ := stats.StandardDeviationSample(nums)
			if std == 0 {
				return nil, errors.ValidationError(fmt.Sprintf("column %q has zero variance; z-scores are undefined", col))
			}
			transform = func(x float64) float64 { return (x - mean) / std }
			suffix = "_z"
		} else {
			minVal, _ := stats.Min(nums)
			maxVal, _ := stats.Max(nums)
			if maxVal == minVal {
				return nil, errors.ValidationError(fmt.Sprintf("column %q has no spread; min-max scaling is undefined", col))
			}
			transform = func(x float64) float64 { return (x - minVal) / (maxVal - minVal) }
			suffix = "_scaled"
		}

		values := make([]dataset.Value, len(clone.Rows))
		for i, row := range clone.Rows {
			if x, ok := row.Value(col).Numeric(); ok {
				values[i] = dataset.Number(transform(x))
			} else {
				values[i] = dataset.Missing
			}
		}
		name := col + suffix
		clone.AddColumn(name, values)
		newColumns = append(newColumns, name)
	}

	detail := map[string]any{
		"columns":     columns,
		"method":      method,
		"new_columns": newColumns,
	}
	summary := fmt.Sprintf("Standardized %d column(s) using %s", len(columns), method)
	return tr.finish(audit.ActionStandardize, tr.retyped(ds, clone), summary, detail), nil
}

// LogTransform writes ln(x+constant) to a new column, _log suffixed by
// default. A zero constant defaults to 1. Errors when any value would
// put the logarithm at or below zero.
func (tr *Transformer) LogTransform(ds *dataset.Dataset, column string, constant float64, newColumn string) (*Result, error) {
	if err := requireColumn(ds, column); err != nil {
		return nil, err
	}
	if constant == 0 {
		constant = defaultLogConstant
	}

	t := ds.Table
	nums := t.NumericColumn(column)
	if len(nums) == 0 {
		return nil, errors.ValidationError(fmt.Sprintf("column %q has no numeric values", column))
	}
	for _, x := range nums {
		if x+constant <= 0 {
			return nil, errors.ValidationError(fmt.Sprintf("column %q has values at or below %g; the log transform is undefined", column, -constant))
		}
	}

	target := newColumn
	if target == "" {
		target = column + "_log"
	}

	clone := t.Clone()
	values := make([]dataset.Value, len(clone.Rows))
	transformed := make([]float64, 0, len(nums))
	for i, row := range clone.Rows {
		if x, ok := row.Value(column).Numeric(); ok {
			y := math.Log(x + constant)
			values[i] = dataset.Number(y)
			transformed = append(transformed, y)
		} else {
			values[i] = dataset.Missing
		}
	}
	clone.AddColumn(target, values)

	skewBefore := skewnessOf(nums)
	skewAfter := skewnessOf(transformed)
	detail := map[string]any{
		"column":          column,
		"new_column":      target,
		"add_constant":    constant,
		"skewness_before": skewBefore,
		"skewness_after":  skewAfter,
	}
	summary := fmt.Sprintf("Log-transformed %s into %s (skewness %.2f to %.2f)", column, target, skewBefore, skewAfter)
	return tr.finish(audit.ActionLogTransform, tr.retyped(ds, clone), summary, detail), nil
}

// ReverseCode flips a Likert-style item, writing (max+min)-x to a new
// column, _r suffixed by default. On a 1 to 5 scale a 1 becomes 5.
func (tr *Transformer) ReverseCode(ds *dataset.Dataset, column, newColumn string) (*Result, error) {
	if err := requireColumn(ds, column); err != nil {
		return nil, err
	}

	t := ds.Table
	nums := t.NumericColumn(column)
	if len(nums) == 0 {
		return nil, errors.ValidationError(fmt.Sprintf("column %q has no numeric values", column))
	}
	minVal, _ := stats.Min(nums)
	maxVal, _ := stats.Max(nums)

	target := newColumn
	if target == "" {
		target = column + "_r"
	}

	clone := t.Clone()
	values := make([]dataset.Value, len(clone.Rows))
	for i, row := range clone.Rows {
		if x, ok := row.Value(column).Numeric(); ok {
			values[i] = dataset.Number((maxVal + minVal) - x)
		} else {
			values[i] = dataset.Missing
		}
	}
	clone.AddColumn(target, values)

	detail := map[string]any{
		"source_column": column,
		"new_column":    target,
		"min_value":     minVal,
		"max_value":     maxVal,
	}
	summary := fmt.Sprintf("Reverse-coded %s into %s (range %g to %g)", column, target, minVal, maxVal)
	return tr.finish(audit.ActionReverseCode, tr.retyped(ds, clone), summary, detail), nil
}

// CreateCategories splits a numeric column into quartile groups,
// labeled Q1 (Low) through Q4 (High), in a new column with a _cat
// suffix by default.
func (tr *Transformer) CreateCategories(ds *dataset.Dataset, column, newColumn string) (*Result, error) {
	if err := requireColumn(ds, column); err != nil {
		return nil, err
	}

	t := ds.Table
	nums := t.NumericColumn(column)
	if len(nums) < minPercentileValues {
		return nil, errors.ValidationError(fmt.Sprintf("column %q needs at least %d numeric values for a quartile split", column, minPercentileValues))
	}
	q1, err := stats.Percentile(nums, 25)
	if err != nil {
		return nil, errors.Wrapf(err, "quartiles of %q", column)
	}
	q2, err := stats.Percentile(nums, 50)
	if err != nil {
		return nil, errors.Wrapf(err, "quartiles of %q", column)
	}
	q3, err := stats.Percentile(nums, 75)
	if err != nil {
		return nil, errors.Wrapf(err, "quartiles of %q", column)
	}
	if q1 >= q2 || q2 >= q3 {
		return nil, errors.ValidationError(fmt.Sprintf("column %q has tied quartile boundaries; a quartile split needs distinct cut points", column))
	}

	target := newColumn
	if target == "" {
		target = column + "_cat"
	}

	clone := t.Clone()
	values := make([]dataset.Value, len(clone.Rows))
	distribution := make(map[string]int, len(quartileLabels))
	for i, row := range clone.Rows {
		x, ok := row.Value(column).Numeric()
		if !ok {
			values[i] = dataset.Missing
			continue
		}
		var label string
		switch {
		case x <= q1:
			label = quartileLabels[0]
		case x <= q2:
			label = quartileLabels[1]
		case x <= q3:
			label = quartileLabels[2]
		default:
			label = quartileLabels[3]
		}
		values[i] = dataset.Text(label)
		distribution[label]++
	}
	clone.AddColumn(target, values)

	detail := map[string]any{
		"column":       column,
		"new_column":   target,
		"method":       "quartiles",
		"boundaries":   [3]float64{q1, q2, q3},
		"distribution": distribution,
	}
	summary := fmt.Sprintf("Split %s into quartile categories as %s", column, target)
	return tr.finish(audit.ActionCreateCategories, tr.retyped(ds, clone), summary, detail), nil
}

// finish logs the step and wraps the result
func (tr *Transformer) finish(operation audit.Action, ds *dataset.Dataset, summary string, detail map[string]any) *Result {
	log.Printf("[Cleaning] %s: %s", operation, summary)
	return &Result{Operation: operation, Dataset: ds, Summary: summary, Detail: detail}
}

// retyped re-runs type inference, for operations that add or rewrite a
// column.
func (tr *Transformer) retyped(ds *dataset.Dataset, table *dataset.Table) *dataset.Dataset {
	return ds.WithTable(table, tr.inf.InferTypes(table))
}

func requireColumn(ds *dataset.Dataset, column string) error {
	if ds == nil || ds.Table == nil {
		return errors.ValidationError("no dataset loaded")
	}
	if !ds.Table.HasColumn(column) {
		return errors.ValidationError(fmt.Sprintf("column %q is not in the dataset", column))
	}
	return nil
}

func copyTypes(types map[string]dataset.ColumnType) map[string]dataset.ColumnType {
	out := make(map[string]dataset.ColumnType, len(types))
	for k, v := range types {
		out[k] = v
	}
	return out
}

func countMissing(t *dataset.Table, column string) int {
	n := 0
	for _, row := range t.Rows {
		if row.Value(column).IsMissing() {
			n++
		}
	}
	return n
}

func fillMissing(t *dataset.Table, column string, fill dataset.Value) {
	for _, row := range t.Rows {
		if row.Value(column).IsMissing() {
			row[column] = fill
		}
	}
}

// modeOf picks the most frequent observed value, first appearance
// winning ties.
func modeOf(values []dataset.Value) (dataset.Value, bool) {
	counts := make(map[string]int, len(values))
	byKey := make(map[string]dataset.Value, len(values))
	var order []string
	for _, v := range values {
		if v.IsMissing() {
			continue
		}
		key := v.String()
		if _, seen := counts[key]; !seen {
			order = append(order, key)
			byKey[key] = v
		}
		counts[key]++
	}
	if len(order) == 0 {
		return dataset.Missing, false
	}
	best := order[0]
	for _, key := range order[1:] {
		if counts[key] > counts[best] {
			best = key
		}
	}
	return byKey[best], true
}

// skewnessOf is the adjusted Fisher-Pearson coefficient over the sample
// standard deviation, zero when the spread is zero or fewer than three
// values remain.
func skewnessOf(values []float64) float64 {
	if len(values) < 3 {
		return 0
	}
	mean, _ := stats.Mean(values)
	std, _ := stats.StandardDeviationSample(values)
	if std == 0 {
		return 0
	}
	n := float64(len(values))
	var sum float64
	for _, x := range values {
		z := (x - mean) / std
		sum += z * z * z
	}
	return sum * n / ((n - 1) * (n - 2))
}
