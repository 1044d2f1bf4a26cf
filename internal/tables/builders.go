package tables

import (
	"fmt"
	"strings"

	domainStats "datalab/domain/stats"
	"datalab/internal/errors"
)

// Table is one rendered APA table. Markdown holds the numbered header
// and the table body; Note is the "Note." line reported under it.
type Table struct {
	Number   int    `json:"number"`
	Title    string `json:"title"`
	Markdown string `json:"markdown"`
	Note     string `json:"note,omitempty"`
}

// Document joins the table and its note into one markdown fragment
func (t Table) Document() string {
	if t.Note == "" {
		return t.Markdown
	}
	return t.Markdown + "\n" + t.Note + "\n"
}

// Builder numbers tables sequentially as a report assembles them
type Builder struct {
	n int
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) next() int {
	b.n++
	return b.n
}

// Characteristics builds Table 1, the sample characteristics table:
// continuous variables as M (SD), categorical levels indented under
// their variable as n (%).
func (b *Builder) Characteristics(d *domainStats.DescriptiveStats) Table {
	header := []string{"Characteristic", fmt.Sprintf("Total (N = %d)", d.RowCount)}
	var rows [][]string

	for _, col := range d.ContinuousColumns() {
		s := d.Continuous[col]
		rows = append(rows, []string{col, msd(s.Mean, s.Std)})
	}
	for _, col := range d.CategoricalColumns() {
		s := d.Categorical[col]
		rows = append(rows, []string{col, ""})
		for _, cat := range s.Categories {
			rows = append(rows, []string{"  " + cat.Value, npct(cat.Count, cat.Percentage)})
		}
	}

	number := b.next()
	return Table{
		Number:   number,
		Title:    "Sample Characteristics",
		Markdown: renderTable(number, "Sample Characteristics", header, rows),
		Note:     "Note. Continuous variables presented as Mean (SD); categorical variables as n (%).",
	}
}

// CorrelationMatrix builds the lower-triangle correlation table. The
// diagonal renders as a dash and the upper triangle stays blank.
func (b *Builder) CorrelationMatrix(m *domainStats.CorrelationMatrix) Table {
	k := len(m.Variables)
	header := make([]string, 0, k+1)
	header = append(header, "Variable")
	for i := 1; i <= k; i++ {
		header = append(header, fmt.Sprintf("%d", i))
	}

	rows := make([][]string, k)
	for i, name := range m.Variables {
		row := make([]string, 0, k+1)
		row = append(row, fmt.Sprintf("%d. %s", i+1, name))
		for j := 0; j < k; j++ {
			switch {
			case i == j:
				row = append(row, Dash)
			case j > i:
				row = append(row, "")
			default:
				row = append(row, StripZero(fmt.Sprintf("%.3f", m.Matrix[i][j])))
			}
		}
		rows[i] = row
	}

	number := b.next()
	return Table{
		Number:   number,
		Title:    "Correlation Matrix",
		Markdown: renderTable(number, "Correlation Matrix", header, rows),
		Note:     correlationNote(m),
	}
}

// Regression builds the coefficient table for a simple linear fit plus
// a model-summary line. The standardized beta of the sole predictor is
// its correlation with the outcome.
func (b *Builder) Regression(fit *domainStats.RegressionFit) Table {
	header := []string{"Variable", "B", "SE", "β", "t", "p"}
	constant := []string{"(Constant)", fmt.Sprintf("%.3f", fit.Intercept), Dash, Dash, Dash, Dash}

	predictor := []string{fit.Predictor, fmt.Sprintf("%.3f", fit.Slope)}
	if fit.SlopeStdErr == 0 {
		predictor = append(predictor, Dash, StripZero(fmt.Sprintf("%.3f", fit.R)), Dash, Dash)
	} else {
		predictor = append(predictor,
			fmt.Sprintf("%.3f", fit.SlopeStdErr),
			StripZero(fmt.Sprintf("%.3f", fit.R)),
			FormatStat(fit.SlopeT),
			FormatP(fit.SlopeP))
	}

	caption := fmt.Sprintf("Linear Regression Results for %s", fit.Dependent)
	number := b.next()
	markdown := renderTable(number, caption, header, [][]string{constant, predictor})

	var model string
	if fit.SlopeStdErr == 0 {
		model = fmt.Sprintf("R² = %s", FormatR(fit.RSquared))
	} else {
		model = fmt.Sprintf("R² = %s, Adjusted R² = %s, F(1, %d) = %s, %s",
			FormatR(fit.RSquared), FormatR(fit.AdjRSquare),
			fit.N-2, FormatStat(fit.FStatistic), FormatP(fit.FPValue))
	}
	markdown += "\n" + model + "\n"

	return Table{
		Number:   number,
		Title:    caption,
		Markdown: markdown,
		Note:     fmt.Sprintf("Note. N = %d. %s.", fit.N, fit.Equation),
	}
}

// GroupComparison builds the per-group table for a comparison test.
// Rank-based tests report Mdn (IQR) alongside M (SD); parametric tests
// report M (SD) only. The test statistic line travels in the note.
func (b *Builder) GroupComparison(result *domainStats.AnalysisResult, outcome string) (Table, error) {
	if result == nil || result.Test == nil {
		return Table{}, errors.ValidationError("result carries no test outcome")
	}
	test := result.Test
	if len(test.Groups) == 0 {
		return Table{}, errors.ValidationError("test outcome has no group statistics")
	}

	rank := test.Test == domainStats.AnalysisMannWhitney || test.Test == domainStats.AnalysisKruskal
	header := []string{"Group", "n", "M (SD)"}
	if rank {
		header = []string{"Group", "n", "Mdn (IQR)", "M (SD)"}
	}

	rows := make([][]string, len(test.Groups))
	totalN := 0
	for i, g := range test.Groups {
		totalN += g.N
		row := []string{g.Group, fmt.Sprintf("%d", g.N)}
		if rank {
			row = append(row, msd(g.Median, g.IQR))
		}
		row = append(row, msd(g.Mean, g.Std))
		rows[i] = row
	}

	caption := comparisonCaption(test.Test, outcome)
	number := b.next()

	note := fmt.Sprintf("Note. N = %d. %s.", totalN, result.APA)
	if len(test.Effects) > 0 && test.Effects[0].Magnitude != "" {
		note += fmt.Sprintf(" Effect size interpretation: %s.", test.Effects[0].Magnitude)
	}

	return Table{
		Number:   number,
		Title:    caption,
		Markdown: renderTable(number, caption, header, rows),
		Note:     note,
	}, nil
}

// Contingency builds the observed-frequencies table from a chi-square
// result
func (b *Builder) Contingency(result *domainStats.AnalysisResult) (Table, error) {
	if result == nil || result.Test == nil {
		return Table{}, errors.ValidationError("result carries no test outcome")
	}
	rowLabels, okR := result.Test.Detail["row_labels"].([]string)
	colLabels, okC := result.Test.Detail["col_labels"].([]string)
	observed, okO := result.Test.Detail["observed"].([][]int)
	if !okR || !okC || !okO || len(observed) != len(rowLabels) {
		return Table{}, errors.ValidationError("test outcome has no contingency detail")
	}

	header := make([]string, 0, len(colLabels)+2)
	header = append(header, "")
	header = append(header, colLabels...)
	header = append(header, "Total")

	rows := make([][]string, 0, len(rowLabels)+1)
	colTotals := make([]int, len(colLabels))
	grand := 0
	for i, label := range rowLabels {
		row := []string{label}
		rowTotal := 0
		for j, count := range observed[i] {
			row = append(row, fmt.Sprintf("%d", count))
			rowTotal += count
			colTotals[j] += count
		}
		grand += rowTotal
		row = append(row, fmt.Sprintf("%d", rowTotal))
		rows = append(rows, row)
	}
	totalRow := []string{"Total"}
	for _, ct := range colTotals {
		totalRow = append(totalRow, fmt.Sprintf("%d", ct))
	}
	totalRow = append(totalRow, fmt.Sprintf("%d", grand))
	rows = append(rows, totalRow)

	number := b.next()
	note := fmt.Sprintf("Note. %s.", result.APA)
	if len(result.Test.Effects) > 0 && result.Test.Effects[0].Magnitude != "" {
		note += fmt.Sprintf(" Effect size interpretation: %s.", result.Test.Effects[0].Magnitude)
	}

	return Table{
		Number:   number,
		Title:    "Observed Frequencies",
		Markdown: renderTable(number, "Observed Frequencies", header, rows),
		Note:     note,
	}, nil
}

func comparisonCaption(t domainStats.AnalysisType, outcome string) string {
	switch t {
	case domainStats.AnalysisTTest:
		return fmt.Sprintf("Independent Samples t-test Results for %s", outcome)
	case domainStats.AnalysisANOVA:
		return fmt.Sprintf("One-Way ANOVA Results for %s", outcome)
	case domainStats.AnalysisMannWhitney:
		return fmt.Sprintf("Mann-Whitney U Test Results for %s", outcome)
	case domainStats.AnalysisKruskal:
		return fmt.Sprintf("Kruskal-Wallis H Test Results for %s", outcome)
	default:
		return fmt.Sprintf("Group Comparison Results for %s", outcome)
	}
}

func correlationNote(m *domainStats.CorrelationMatrix) string {
	if len(m.Pairs) == 0 {
		return ""
	}
	minN, maxN := m.Pairs[0].N, m.Pairs[0].N
	for _, p := range m.Pairs[1:] {
		if p.N < minN {
			minN = p.N
		}
		if p.N > maxN {
			maxN = p.N
		}
	}
	if minN == maxN {
		return fmt.Sprintf("Note. Pairwise deletion; n = %d for every pair.", minN)
	}
	return fmt.Sprintf("Note. Pairwise deletion; n ranges from %d to %d across pairs.", minN, maxN)
}

func renderTable(number int, caption string, header []string, rows [][]string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**Table %d**\n%s\n\n", number, caption)
	sb.WriteString("| " + strings.Join(header, " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat("---|", len(header)) + "\n")
	for _, row := range rows {
		sb.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	return sb.String()
}

func msd(m, sd float64) string {
	return fmt.Sprintf("%.2f (%.2f)", m, sd)
}

func npct(n int, pct float64) string {
	return fmt.Sprintf("%d (%.1f%%)", n, pct)
}
