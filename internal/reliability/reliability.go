// Package reliability measures the internal consistency of multi-item
// scales: Cronbach's alpha with listwise deletion, corrected item-total
// correlations, and alpha-if-item-deleted diagnostics.
package reliability

import (
	"fmt"
	"log"
	"math"
	"time"

	"datalab/domain/dataset"
	"datalab/internal/errors"

	"github.com/montanaflynn/stats"
)

// lowItemTotal is the corrected item-total correlation below which an
// item is flagged for removal
const lowItemTotal = 0.3

// deletionGain is how much alpha-if-deleted must exceed alpha before
// removal is recommended
const deletionGain = 0.05

// ItemStats is one scale item's contribution. AlphaIfDeleted is nil
// when fewer than two items would remain.
type ItemStats struct {
	Item           string   `json:"item"`
	Mean           float64  `json:"mean"`
	Std            float64  `json:"std"`
	ItemTotalR     float64  `json:"item_total_r"`
	AlphaIfDeleted *float64 `json:"alpha_if_deleted,omitempty"`
}

// Report is the full reliability analysis of one scale
type Report struct {
	ScaleName       string      `json:"scale_name"`
	Items           []string    `json:"items"`
	NItems          int         `json:"n_items"`
	NValidCases     int         `json:"n_valid_cases"`
	Alpha           float64     `json:"cronbachs_alpha"`
	Interpretation  string      `json:"interpretation"`
	ItemStatistics  []ItemStats `json:"item_statistics"`
	Recommendations []string    `json:"recommendations"`
}

// Analyzer runs reliability analyses against a loaded dataset
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze computes Cronbach's alpha over the named items. Rows missing
// any item are dropped. Degenerate scales (fewer than two items, fewer
// than two complete cases, constant totals) are rejected rather than
// reported with undefined values.
func (a *Analyzer) Analyze(ds *dataset.Dataset, scaleName string, items []string) (*Report, error) {
	if ds == nil || ds.Table == nil {
		return nil, errors.ValidationError("no dataset loaded")
	}
	items = dedupe(items)
	if len(items) < 2 {
		return nil, errors.ValidationError("a scale needs at least two items")
	}
	for _, item := range items {
		if !ds.Table.HasColumn(item) {
			return nil, errors.ValidationError(fmt.Sprintf("item %q is not a column", item))
		}
	}

	start := time.Now()
	columns := listwise(ds.Table, items)
	nValid := len(columns[0])
	if nValid < 2 {
		return nil, errors.ValidationError(fmt.Sprintf(
			"listwise deletion leaves %d complete case(s); at least two are required", nValid))
	}

	alpha, ok := cronbachAlpha(columns)
	if !ok {
		return nil, errors.ValidationError("total scores do not vary; alpha is undefined")
	}

	totals := rowTotals(columns)
	itemStats := make([]ItemStats, len(items))
	for i, item := range items {
		mean := meanOf(columns[i])
		corrected := make([]float64, nValid)
		for r := 0; r < nValid; r++ {
			corrected[r] = totals[r] - columns[i][r]
		}
		itemStats[i] = ItemStats{
			Item:       item,
			Mean:       mean,
			Std:        math.Sqrt(sampleVar(columns[i], mean)),
			ItemTotalR: pearsonOf(columns[i], corrected),
		}
		if len(items) > 2 {
			if deleted, ok := cronbachAlpha(without(columns, i)); ok {
				itemStats[i].AlphaIfDeleted = &deleted
			}
		}
	}

	report := &Report{
		ScaleName:      scaleName,
		Items:          items,
		NItems:         len(items),
		NValidCases:    nValid,
		Alpha:          alpha,
		Interpretation: interpretAlpha(alpha),
		ItemStatistics: itemStats,
	}
	report.Recommendations = recommend(alpha, itemStats)

	log.Printf("[Reliability] %s: alpha = %.3f over %d item(s), %d case(s) in %dms",
		scaleName, alpha, len(items), nValid, time.Since(start).Milliseconds())
	return report, nil
}

// cronbachAlpha computes alpha over item columns of equal length. The
// second return is false when the total score has no variance.
func cronbachAlpha(columns [][]float64) (float64, bool) {
	k := len(columns)
	if k < 2 {
		return 0, false
	}

	var itemVariances float64
	for _, col := range columns {
		itemVariances += sampleVar(col, meanOf(col))
	}

	totals := rowTotals(columns)
	totalVariance := sampleVar(totals, meanOf(totals))
	if totalVariance == 0 {
		return 0, false
	}

	fk := float64(k)
	return (fk / (fk - 1)) * (1 - itemVariances/totalVariance), true
}

func interpretAlpha(alpha float64) string {
	switch {
	case alpha >= 0.9:
		return "Excellent"
	case alpha >= 0.8:
		return "Good"
	case alpha >= 0.7:
		return "Acceptable"
	case alpha >= 0.6:
		return "Questionable"
	case alpha >= 0.5:
		return "Poor"
	default:
		return "Unacceptable"
	}
}

func recommend(alpha float64, itemStats []ItemStats) []string {
	var out []string
	for _, is := range itemStats {
		if is.ItemTotalR < lowItemTotal {
			out = append(out, fmt.Sprintf(
				"Consider removing %q (low item-total correlation r = %.2f)", is.Item, is.ItemTotalR))
		}
	}
	for _, is := range itemStats {
		if is.AlphaIfDeleted != nil && *is.AlphaIfDeleted > alpha+deletionGain {
			out = append(out, fmt.Sprintf(
				"Removing %q would raise alpha from %.3f to %.3f", is.Item, alpha, *is.AlphaIfDeleted))
		}
	}
	if len(out) == 0 {
		out = []string{"Scale reliability is adequate. No items need removal."}
	}
	return out
}

// listwise extracts the item columns over the rows where every item is
// numeric, keeping item order.
func listwise(t *dataset.Table, items []string) [][]float64 {
	columns := make([][]float64, len(items))
	for _, row := range t.Rows {
		values := make([]float64, len(items))
		complete := true
		for i, item := range items {
			f, ok := row.Value(item).Numeric()
			if !ok {
				complete = false
				break
			}
			values[i] = f
		}
		if !complete {
			continue
		}
		for i, f := range values {
			columns[i] = append(columns[i], f)
		}
	}
	for i := range columns {
		if columns[i] == nil {
			columns[i] = []float64{}
		}
	}
	return columns
}

func rowTotals(columns [][]float64) []float64 {
	totals := make([]float64, len(columns[0]))
	for _, col := range columns {
		for r, v := range col {
			totals[r] += v
		}
	}
	return totals
}

func without(columns [][]float64, drop int) [][]float64 {
	out := make([][]float64, 0, len(columns)-1)
	for i, col := range columns {
		if i != drop {
			out = append(out, col)
		}
	}
	return out
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sampleVar(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return ss / float64(len(values)-1)
}

func pearsonOf(x, y []float64) float64 {
	r, err := stats.Pearson(x, y)
	if err != nil || math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}
