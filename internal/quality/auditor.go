// Package quality audits a loaded dataset for duplicate rows, missing
// cells, and IQR outliers, rolling the findings into a 0-100 score.
package quality

import (
	"math"

	"datalab/domain/core"
	"datalab/domain/dataset"
	domainQuality "datalab/domain/quality"

	"github.com/montanaflynn/stats"
)

const (
	highMissingThreshold  = 20.0
	criticalDuplicateFrac = 0.10

	// Columns with fewer numeric values than this are skipped by the
	// outlier check; quartiles are not meaningful below it.
	minOutlierValues = 4

	maxOutlierSamples = 5
)

// Auditor produces QualityReports. Stateless; every call recomputes
// from the dataset as passed.
type Auditor struct{}

func NewAuditor() *Auditor {
	return &Auditor{}
}

// Audit runs every check and assembles the report
func (a *Auditor) Audit(ds *dataset.Dataset) *domainQuality.QualityReport {
	report := &domainQuality.QualityReport{
		DatasetID:   ds.ID,
		Filename:    ds.OriginalFilename,
		RowCount:    ds.Table.RowCount(),
		ColumnCount: ds.Table.ColumnCount(),
		Columns:     append([]string(nil), ds.Table.Columns...),
		GeneratedAt: core.Now(),
	}

	report.Duplicates = a.checkDuplicates(ds.Table)
	report.Missing = a.checkMissing(ds.Table)
	report.Outliers = a.checkOutliers(ds)
	report.Dictionary = a.BuildDictionary(ds)
	report.Summary = a.summarize(report)

	return report
}

// checkDuplicates counts exact full-row duplicates: rows whose
// serialization over the column order matches an earlier row.
func (a *Auditor) checkDuplicates(table *dataset.Table) domainQuality.DuplicateSummary {
	seen := make(map[core.Hash]bool, len(table.Rows))
	duplicates := 0
	for _, row := range table.Rows {
		key := row.Key(table.Columns)
		if seen[key] {
			duplicates++
		}
		seen[key] = true
	}

	summary := domainQuality.DuplicateSummary{Count: duplicates}
	if n := table.RowCount(); n > 0 {
		summary.Percentage = float64(duplicates) / float64(n) * 100
	}
	return summary
}

// checkMissing tallies null/absent/empty cells. A cell in no row escapes
// the count: absent keys are missing by definition.
func (a *Auditor) checkMissing(table *dataset.Table) domainQuality.MissingSummary {
	summary := domainQuality.MissingSummary{
		TotalCells: table.RowCount() * table.ColumnCount(),
		ByColumn:   make(map[string]domainQuality.ColumnMissing),
	}

	for _, col := range table.Columns {
		missing := 0
		for _, row := range table.Rows {
			if row.Value(col).IsMissing() {
				missing++
			}
		}
		if missing == 0 {
			continue
		}

		summary.TotalMissing += missing
		pct := float64(missing) / float64(table.RowCount()) * 100
		summary.ByColumn[col] = domainQuality.ColumnMissing{Count: missing, Percentage: pct}
		if pct > highMissingThreshold {
			summary.HighMissingColumns = append(summary.HighMissingColumns, col)
		}
	}

	if summary.TotalCells > 0 {
		summary.OverallPercentage = float64(summary.TotalMissing) / float64(summary.TotalCells) * 100
	}
	return summary
}

// checkOutliers applies the Tukey IQR rule to each continuous column.
// Only columns with at least one outlier appear in the breakdown.
func (a *Auditor) checkOutliers(ds *dataset.Dataset) domainQuality.OutlierSummary {
	summary := domainQuality.OutlierSummary{
		ByColumn: make(map[string]domainQuality.ColumnOutliers),
	}

	for _, col := range ds.ContinuousColumns() {
		values := ds.Table.NumericColumn(col)
		if len(values) < minOutlierValues {
			continue
		}

		lower, upper, ok := tukeyBounds(values)
		if !ok {
			continue
		}

		count := 0
		var samples []float64
		for _, v := range values {
			if v < lower || v > upper {
				count++
				if len(samples) < maxOutlierSamples {
					samples = append(samples, v)
				}
			}
		}
		if count == 0 {
			continue
		}

		summary.ByColumn[col] = domainQuality.ColumnOutliers{
			Count:      count,
			Percentage: float64(count) / float64(len(values)) * 100,
			LowerBound: lower,
			UpperBound: upper,
			Samples:    samples,
		}
	}

	summary.ColumnsWithOutliers = len(summary.ByColumn)
	return summary
}

// tukeyBounds returns [Q1 - 1.5*IQR, Q3 + 1.5*IQR]
func tukeyBounds(values []float64) (lower, upper float64, ok bool) {
	q1, err := stats.Percentile(values, 25)
	if err != nil {
		return 0, 0, false
	}
	q3, err := stats.Percentile(values, 75)
	if err != nil {
		return 0, 0, false
	}

	iqr := q3 - q1
	return q1 - 1.5*iqr, q3 + 1.5*iqr, true
}

// summarize folds the checks into issue counts, the quality score, and
// a recommendation. The score starts at 100 and subtracts capped
// penalties for missingness, duplication, and outlier spread.
func (a *Auditor) summarize(report *domainQuality.QualityReport) domainQuality.AuditSummary {
	missingPenalty := math.Min(report.Missing.OverallPercentage*2, 40)
	duplicatePenalty := math.Min(report.Duplicates.Percentage*3, 30)
	outlierPenalty := math.Min(float64(report.Outliers.ColumnsWithOutliers)*2, 20)

	score := 100 - missingPenalty - duplicatePenalty - outlierPenalty
	if score < 0 {
		score = 0
	}

	summary := domainQuality.AuditSummary{
		QualityScore: int(math.Round(score)),
	}

	summary.TotalIssues = len(report.Missing.HighMissingColumns) + report.Outliers.ColumnsWithOutliers
	if report.Duplicates.Count > 0 {
		summary.TotalIssues++
	}

	summary.CriticalIssues = len(report.Missing.HighMissingColumns)
	if float64(report.Duplicates.Count) > criticalDuplicateFrac*float64(report.RowCount) {
		summary.CriticalIssues++
	}

	switch {
	case summary.QualityScore > 80:
		summary.Recommendation = "Data quality is good. Proceed with analysis."
	case summary.QualityScore > 50:
		summary.Recommendation = "Address data quality issues before analysis."
	default:
		summary.Recommendation = "Significant data quality issues. Clean the data before proceeding."
	}

	return summary
}
