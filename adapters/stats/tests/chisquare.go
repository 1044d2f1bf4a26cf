package tests

import (
	"context"
	"fmt"
	"math"

	"datalab/domain/dataset"
	domainStats "datalab/domain/stats"
	"datalab/internal/distributions"
	"datalab/internal/errors"
	"datalab/internal/tables"
)

// maxChiCategories caps the distinct values a variable may take before
// it stops looking categorical
const maxChiCategories = 50

// lowExpectedCount is the classic floor below which the chi-square
// approximation degrades
const lowExpectedCount = 5.0

// ChiSquare tests independence between two categorical variables on
// their contingency table, with Cramer's V (and phi for 2x2 tables) as
// effect sizes.
type ChiSquare struct {
	dist *distributions.Distributions
}

func NewChiSquare() *ChiSquare {
	return &ChiSquare{dist: distributions.NewDistributions()}
}

func (c *ChiSquare) Name() domainStats.AnalysisType { return domainStats.AnalysisChiSquare }

func (c *ChiSquare) Description() string {
	return "Tests the association between two categorical variables"
}

func (c *ChiSquare) RequiresGroups() bool { return false }

func (c *ChiSquare) Run(ctx context.Context, req Request) (*domainStats.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "chisquare cancelled")
	}
	if req.Dataset == nil || req.Dataset.Table == nil {
		return nil, errors.ValidationError("no dataset loaded")
	}
	if len(req.Variables) < 2 {
		return nil, errors.ValidationError("select two categorical variables")
	}
	varA, varB := req.Variables[0], req.Variables[1]
	tbl := req.Dataset.Table
	if !tbl.HasColumn(varA) || !tbl.HasColumn(varB) {
		return nil, errors.ValidationError(fmt.Sprintf("columns %q and %q must both exist", varA, varB))
	}

	rowLabels, colLabels, observed := contingency(tbl, varA, varB)
	for _, check := range []struct {
		name   string
		levels int
	}{{varA, len(rowLabels)}, {varB, len(colLabels)}} {
		if check.levels > maxChiCategories {
			return nil, errors.ValidationError(fmt.Sprintf(
				"%q has %d distinct values; chi-square needs categorical variables", check.name, check.levels))
		}
		if check.levels < 2 {
			return nil, errors.ValidationError(fmt.Sprintf(
				"%q needs at least two categories, found %d", check.name, check.levels))
		}
	}

	r := len(rowLabels)
	cols := len(colLabels)
	rowTotals := make([]float64, r)
	colTotals := make([]float64, cols)
	var n float64
	for i := 0; i < r; i++ {
		for j := 0; j < cols; j++ {
			count := float64(observed[i][j])
			rowTotals[i] += count
			colTotals[j] += count
			n += count
		}
	}

	expected := make([][]float64, r)
	var chi2, minExpected float64
	cellsBelow := 0
	minExpected = math.MaxFloat64
	for i := 0; i < r; i++ {
		expected[i] = make([]float64, cols)
		for j := 0; j < cols; j++ {
			e := rowTotals[i] * colTotals[j] / n
			expected[i][j] = e
			if e < minExpected {
				minExpected = e
			}
			if e < lowExpectedCount {
				cellsBelow++
			}
			d := float64(observed[i][j]) - e
			chi2 += d * d / e
		}
	}

	df := (r - 1) * (cols - 1)
	pValue := c.dist.ChiSquarePValue(chi2, df)
	significant := pValue < req.alpha()

	minDim := r - 1
	if cols-1 < minDim {
		minDim = cols - 1
	}
	cramersV := math.Sqrt(chi2 / (n * float64(minDim)))
	magnitude := magnitudeOf(cramersV, rSmall, rMedium, rLarge)

	effects := []domainStats.EffectSize{
		{Name: "cramers_v", Value: cramersV, Magnitude: magnitude},
	}
	if r == 2 && cols == 2 {
		phi := math.Sqrt(chi2 / n)
		effects = append(effects, domainStats.EffectSize{
			Name: "phi", Value: phi, Magnitude: magnitudeOf(phi, rSmall, rMedium, rLarge),
		})
	}

	result := newResult(domainStats.AnalysisChiSquare)
	result.Test = &domainStats.TestOutcome{
		Test:        domainStats.AnalysisChiSquare,
		Statistic:   chi2,
		StatLabel:   "χ²",
		DF:          float64(df),
		PValue:      pValue,
		Significant: significant,
		Effects:     effects,
		Detail: map[string]any{
			"row_labels":    rowLabels,
			"col_labels":    colLabels,
			"observed":      observed,
			"expected":      expected,
			"n":             int(n),
			"min_expected":  minExpected,
			"cells_below_5": cellsBelow,
		},
	}

	result.Summary = fmt.Sprintf("Chi-square test of independence between %s and %s (%dx%d table)", varA, varB, r, cols)
	result.APA = fmt.Sprintf("χ²(%d, N = %d) = %s, %s, V = %s",
		df, int(n), tables.FormatStat(chi2), tables.FormatP(pValue), tables.FormatR(cramersV))

	sigClause := "is not statistically significant"
	if significant {
		sigClause = "is statistically significant"
	}
	result.Interpretation = fmt.Sprintf(
		"The association between %s and %s %s (%s), with a %s effect (Cramér's V = %s).",
		varA, varB, sigClause, tables.FormatP(pValue), magnitude, tables.FormatR(cramersV))

	if cellsBelow > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"%d of %d cells have expected counts below 5 (minimum %.2f); the approximation may be unreliable",
			cellsBelow, r*cols, minExpected))
	}

	return result, nil
}

// contingency counts label pairs over the rows where both cells are
// present. Labels keep first-appearance order.
func contingency(t *dataset.Table, varA, varB string) ([]string, []string, [][]int) {
	rowIndex := make(map[string]int)
	colIndex := make(map[string]int)
	var rowLabels, colLabels []string

	type cell struct{ row, col int }
	counts := make(map[cell]int)

	for _, row := range t.Rows {
		av := row.Value(varA)
		bv := row.Value(varB)
		if av.IsMissing() || bv.IsMissing() {
			continue
		}
		aLabel, bLabel := av.String(), bv.String()
		ai, ok := rowIndex[aLabel]
		if !ok {
			ai = len(rowLabels)
			rowIndex[aLabel] = ai
			rowLabels = append(rowLabels, aLabel)
		}
		bi, ok := colIndex[bLabel]
		if !ok {
			bi = len(colLabels)
			colIndex[bLabel] = bi
			colLabels = append(colLabels, bLabel)
		}
		counts[cell{ai, bi}]++
	}

	observed := make([][]int, len(rowLabels))
	for i := range observed {
		observed[i] = make([]int, len(colLabels))
		for j := range observed[i] {
			observed[i][j] = counts[cell{i, j}]
		}
	}
	return rowLabels, colLabels, observed
}
