// Package assumptions checks the statistical assumptions behind the
// parametric analyses: normality of continuous variables, homogeneity of
// variance across groups, multicollinearity among predictors, and
// independence of regression residuals. Each check returns a report with
// the relevant statistics, a plain-language conclusion, and any concerns.
package assumptions

import (
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"datalab/domain/dataset"
	"datalab/internal/distributions"
	"datalab/internal/errors"

	"github.com/montanaflynn/stats"
)

const (
	defaultAlpha = 0.05

	// The omnibus normality test is unreliable below this sample size
	minOmnibusSample = 20

	severeSkew    = 2.0
	severeKurt    = 7.0
	fMaxConcern   = 3.0
	highPairwiseR = 0.8
	vifModerate   = 5.0
	vifSevere     = 10.0

	dwPositiveBound = 1.5
	dwNegativeBound = 2.5
)

const (
	conclusionParametric    = "parametric tests appropriate"
	conclusionNonParametric = "consider non-parametric alternatives"
)

// NormalityReport is the per-variable normality screen: sample skewness
// and excess kurtosis, plus the D'Agostino-Pearson omnibus K-squared test
// when the sample is large enough.
type NormalityReport struct {
	Variable   string   `json:"variable"`
	N          int      `json:"n"`
	Skewness   float64  `json:"skewness"`
	Kurtosis   float64  `json:"kurtosis"`
	K2         float64  `json:"k2"`
	K2P        float64  `json:"k2_p"`
	K2Valid    bool     `json:"k2_valid"`
	Normal     bool     `json:"normal"`
	Concerns   []string `json:"concerns,omitempty"`
	Conclusion string   `json:"conclusion"`
}

// GroupSpread is one group's sample size and variance
type GroupSpread struct {
	Group    string  `json:"group"`
	N        int     `json:"n"`
	Variance float64 `json:"variance"`
}

// HomogeneityReport covers equality of group variances: Levene's test plus
// the Hartley F-max ratio of the extreme group variances.
type HomogeneityReport struct {
	Outcome       string        `json:"outcome"`
	Grouping      string        `json:"grouping"`
	LeveneW       float64       `json:"levene_w"`
	LeveneP       float64       `json:"levene_p"`
	EqualVariance bool          `json:"equal_variance"`
	Groups        []GroupSpread `json:"groups"`
	FMaxRatio     float64       `json:"f_max_ratio"`
	Concerns      []string      `json:"concerns,omitempty"`
}

// PredictorPair is a pair of predictors with their pairwise correlation
type PredictorPair struct {
	VarA string  `json:"var_a"`
	VarB string  `json:"var_b"`
	R    float64 `json:"r"`
}

// PredictorVIF is one predictor's variance inflation factor
type PredictorVIF struct {
	Variable string  `json:"variable"`
	VIF      float64 `json:"vif"`
}

// MulticollinearityReport flags predictor pairs correlated beyond 0.8 and,
// for the two-predictor case, the closed-form variance inflation factor.
type MulticollinearityReport struct {
	Variables []string        `json:"variables"`
	HighPairs []PredictorPair `json:"high_pairs,omitempty"`
	VIFs      []PredictorVIF  `json:"vifs,omitempty"`
	Concerns  []string        `json:"concerns,omitempty"`
}

// IndependenceReport carries the Durbin-Watson statistic of the residuals
// from regressing the outcome on the predictor.
type IndependenceReport struct {
	Outcome      string   `json:"outcome"`
	Predictor    string   `json:"predictor"`
	N            int      `json:"n"`
	DurbinWatson float64  `json:"durbin_watson"`
	Conclusion   string   `json:"conclusion"`
	Concerns     []string `json:"concerns,omitempty"`
}

// Checker runs assumption checks at a fixed significance level
type Checker struct {
	dist  *distributions.Distributions
	alpha float64
}

// NewChecker creates a checker at the conventional 0.05 level
func NewChecker() *Checker {
	return &Checker{dist: distributions.NewDistributions(), alpha: defaultAlpha}
}

// Normality screens each selected continuous variable. An empty selection
// means every continuous column.
func (c *Checker) Normality(ds *dataset.Dataset, variables []string) ([]NormalityReport, error) {
	if ds == nil || ds.Table == nil {
		return nil, errors.ValidationError("no dataset loaded")
	}
	selected := continuousSelection(ds, variables)
	if len(selected) == 0 {
		return nil, errors.ValidationError("no continuous variables to check")
	}
	start := time.Now()

	reports := make([]NormalityReport, 0, len(selected))
	for _, name := range selected {
		reports = append(reports, c.normalityOf(name, ds.Table.NumericColumn(name)))
	}

	log.Printf("[Assumptions] Normality screened %d variable(s) in %dms",
		len(reports), time.Since(start).Milliseconds())
	return reports, nil
}

func (c *Checker) normalityOf(name string, values []float64) NormalityReport {
	report := NormalityReport{Variable: name, N: len(values)}
	n := len(values)
	if n < 3 {
		report.Concerns = append(report.Concerns,
			fmt.Sprintf("too few observations to assess normality (n = %d)", n))
		report.Conclusion = conclusionNonParametric
		return report
	}

	m := moments(values)
	report.Skewness = adjustedSkewness(m)
	report.Kurtosis = excessKurtosis(m)

	if m.m2 == 0 {
		report.Concerns = append(report.Concerns, "zero variance; distribution shape is undefined")
		report.Conclusion = conclusionNonParametric
		return report
	}

	if math.Abs(report.Skewness) > severeSkew {
		report.Concerns = append(report.Concerns,
			fmt.Sprintf("severe skewness (%.2f)", report.Skewness))
	}
	if math.Abs(report.Kurtosis) > severeKurt {
		report.Concerns = append(report.Concerns,
			fmt.Sprintf("heavy tails (excess kurtosis %.2f)", report.Kurtosis))
	}

	if n >= minOmnibusSample {
		z1 := skewnessZ(m.g1(), n)
		z2 := kurtosisZ(m.b2(), n)
		k2 := z1*z1 + z2*z2
		if math.IsNaN(k2) || math.IsInf(k2, 0) {
			report.Concerns = append(report.Concerns, "distribution shape is too extreme for the omnibus test")
			report.Normal = false
		} else {
			report.K2 = k2
			report.K2P = c.dist.ChiSquarePValue(k2, 2)
			report.K2Valid = true
			report.Normal = report.K2P > c.alpha
		}
	} else {
		report.Concerns = append(report.Concerns,
			fmt.Sprintf("sample below the omnibus test minimum (n = %d); screened on moments only", n))
		report.Normal = math.Abs(report.Skewness) <= severeSkew &&
			math.Abs(report.Kurtosis) <= severeKurt
	}

	if report.Normal {
		report.Conclusion = conclusionParametric
	} else {
		report.Conclusion = conclusionNonParametric
	}
	return report
}

// Homogeneity tests equality of the outcome's variance across the grouping
// column's groups.
func (c *Checker) Homogeneity(ds *dataset.Dataset, outcome, grouping string) (*HomogeneityReport, error) {
	if ds == nil || ds.Table == nil {
		return nil, errors.ValidationError("no dataset loaded")
	}
	if !ds.Table.HasColumn(outcome) || !ds.Table.HasColumn(grouping) {
		return nil, errors.ValidationError(
			fmt.Sprintf("columns %q and %q must both exist", outcome, grouping))
	}
	labels, groups := groupedByLabel(ds.Table, grouping, outcome)
	if len(labels) < 2 {
		return nil, errors.ValidationError(
			fmt.Sprintf("homogeneity needs at least two groups of %q", grouping))
	}
	for i, g := range groups {
		if len(g) < 2 {
			return nil, errors.ValidationError(
				fmt.Sprintf("group %q has fewer than two observations of %q", labels[i], outcome))
		}
	}
	start := time.Now()

	report := &HomogeneityReport{Outcome: outcome, Grouping: grouping}
	report.LeveneW, report.LeveneP = Levene(groups)
	report.EqualVariance = report.LeveneP > c.alpha

	minVar, maxVar := math.Inf(1), 0.0
	for i, g := range groups {
		v, _ := stats.SampleVariance(g)
		report.Groups = append(report.Groups, GroupSpread{Group: labels[i], N: len(g), Variance: v})
		if v < minVar {
			minVar = v
		}
		if v > maxVar {
			maxVar = v
		}
	}
	if minVar > 0 {
		report.FMaxRatio = maxVar / minVar
	}

	if !report.EqualVariance {
		report.Concerns = append(report.Concerns,
			fmt.Sprintf("group variances differ significantly (Levene p = %.3f)", report.LeveneP))
	}
	if report.FMaxRatio > fMaxConcern {
		report.Concerns = append(report.Concerns,
			fmt.Sprintf("largest group variance is %.1f times the smallest", report.FMaxRatio))
	}
	if minVar == 0 {
		report.Concerns = append(report.Concerns,
			"a group has zero variance; the ratio check is undefined")
	}

	log.Printf("[Assumptions] Homogeneity of %s across %d %s group(s) in %dms",
		outcome, len(labels), grouping, time.Since(start).Milliseconds())
	return report, nil
}

// Multicollinearity screens pairwise correlations among the selected
// predictors. With exactly two predictors the variance inflation factor has
// a closed form from their correlation.
func (c *Checker) Multicollinearity(ds *dataset.Dataset, variables []string) (*MulticollinearityReport, error) {
	if ds == nil || ds.Table == nil {
		return nil, errors.ValidationError("no dataset loaded")
	}
	selected := continuousSelection(ds, variables)
	if len(selected) < 2 {
		return nil, errors.ValidationError("multicollinearity needs at least two continuous predictors")
	}
	start := time.Now()

	report := &MulticollinearityReport{Variables: selected}
	var pairR float64
	for i := 0; i < len(selected); i++ {
		for j := i + 1; j < len(selected); j++ {
			xs, ys := pairedValues(ds.Table, selected[i], selected[j])
			r := pearsonOf(xs, ys)
			if i == 0 && j == 1 {
				pairR = r
			}
			if math.Abs(r) > highPairwiseR {
				report.HighPairs = append(report.HighPairs,
					PredictorPair{VarA: selected[i], VarB: selected[j], R: r})
			}
		}
	}
	sort.SliceStable(report.HighPairs, func(a, b int) bool {
		return math.Abs(report.HighPairs[a].R) > math.Abs(report.HighPairs[b].R)
	})
	for _, p := range report.HighPairs {
		report.Concerns = append(report.Concerns,
			fmt.Sprintf("%s and %s are highly correlated (r = %.2f)", p.VarA, p.VarB, p.R))
	}

	if len(selected) == 2 {
		if pairR*pairR >= 1 {
			report.Concerns = append(report.Concerns,
				"predictors are perfectly collinear; the model cannot separate them")
		} else {
			vif := 1 / (1 - pairR*pairR)
			for _, name := range selected {
				report.VIFs = append(report.VIFs, PredictorVIF{Variable: name, VIF: vif})
			}
			switch {
			case vif > vifSevere:
				report.Concerns = append(report.Concerns,
					fmt.Sprintf("severe variance inflation (VIF = %.1f)", vif))
			case vif > vifModerate:
				report.Concerns = append(report.Concerns,
					fmt.Sprintf("elevated variance inflation (VIF = %.1f)", vif))
			}
		}
	}

	log.Printf("[Assumptions] Multicollinearity across %d predictor(s) in %dms",
		len(selected), time.Since(start).Milliseconds())
	return report, nil
}

// Independence fits the outcome on the predictor and applies the
// Durbin-Watson test to the residuals in row order.
func (c *Checker) Independence(ds *dataset.Dataset, outcome, predictor string) (*IndependenceReport, error) {
	if ds == nil || ds.Table == nil {
		return nil, errors.ValidationError("no dataset loaded")
	}
	if !ds.Table.HasColumn(outcome) || !ds.Table.HasColumn(predictor) {
		return nil, errors.ValidationError(
			fmt.Sprintf("columns %q and %q must both exist", outcome, predictor))
	}
	ys, xs := pairedValues(ds.Table, outcome, predictor)
	n := len(ys)
	if n < 3 {
		return nil, errors.ValidationError("independence needs at least three paired observations")
	}
	start := time.Now()

	var sumX, sumY, sumXX, sumXY float64
	fn := float64(n)
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXX += xs[i] * xs[i]
		sumXY += xs[i] * ys[i]
	}
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return nil, errors.ValidationError(
			fmt.Sprintf("the predictor %q has no variance", predictor))
	}
	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	residuals := make([]float64, n)
	for i := range xs {
		residuals[i] = ys[i] - (slope*xs[i] + intercept)
	}

	report := &IndependenceReport{Outcome: outcome, Predictor: predictor, N: n}
	report.DurbinWatson = DurbinWatson(residuals)
	switch {
	case report.DurbinWatson == 0:
		report.Conclusion = "no residual variation to test"
	case report.DurbinWatson < dwPositiveBound:
		report.Conclusion = "positive autocorrelation"
		report.Concerns = append(report.Concerns,
			"residuals appear serially correlated; observations may not be independent")
	case report.DurbinWatson > dwNegativeBound:
		report.Conclusion = "negative autocorrelation"
		report.Concerns = append(report.Concerns,
			"residuals alternate more than chance allows; check for periodic structure")
	default:
		report.Conclusion = "no autocorrelation"
	}

	log.Printf("[Assumptions] Independence of %s ~ %s residuals (DW = %.2f) in %dms",
		outcome, predictor, report.DurbinWatson, time.Since(start).Milliseconds())
	return report, nil
}

func continuousSelection(ds *dataset.Dataset, variables []string) []string {
	if len(variables) == 0 {
		return ds.ContinuousColumns()
	}
	seen := make(map[string]bool, len(variables))
	var out []string
	for _, v := range variables {
		if seen[v] {
			continue
		}
		seen[v] = true
		if ds.Types[v] == dataset.TypeContinuous && ds.Table.HasColumn(v) {
			out = append(out, v)
		}
	}
	return out
}

// groupedByLabel splits the outcome column by the grouping column's
// canonical labels, pairing by row and dropping rows where either cell is
// unusable. Labels keep first-appearance order.
func groupedByLabel(t *dataset.Table, grouping, outcome string) ([]string, [][]float64) {
	index := make(map[string]int)
	var labels []string
	var groups [][]float64
	for _, row := range t.Rows {
		gv := row.Value(grouping)
		if gv.IsMissing() {
			continue
		}
		f, ok := row.Value(outcome).Numeric()
		if !ok {
			continue
		}
		label := gv.String()
		i, seen := index[label]
		if !seen {
			i = len(labels)
			index[label] = i
			labels = append(labels, label)
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], f)
	}
	return labels, groups
}

func pairedValues(t *dataset.Table, a, b string) ([]float64, []float64) {
	xs := make([]float64, 0, len(t.Rows))
	ys := make([]float64, 0, len(t.Rows))
	for _, row := range t.Rows {
		x, okA := row.Value(a).Numeric()
		y, okB := row.Value(b).Numeric()
		if okA && okB {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	return xs, ys
}
