package tests

import (
	"context"
	"fmt"
	"math"

	domainStats "datalab/domain/stats"
	"datalab/internal/assumptions"
	"datalab/internal/distributions"
	"datalab/internal/errors"
	"datalab/internal/tables"
)

// TTest compares the outcome means of two independent groups. Levene's
// test on the groups decides between the pooled-variance form and the
// Welch correction.
type TTest struct {
	dist *distributions.Distributions
}

func NewTTest() *TTest {
	return &TTest{dist: distributions.NewDistributions()}
}

func (t *TTest) Name() domainStats.AnalysisType { return domainStats.AnalysisTTest }

func (t *TTest) Description() string {
	return "Compares the means of two independent groups"
}

func (t *TTest) RequiresGroups() bool { return true }

func (t *TTest) Run(ctx context.Context, req Request) (*domainStats.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "ttest cancelled")
	}
	grouping, outcome, labels, groups, err := groupSelection(req)
	if err != nil {
		return nil, err
	}
	if len(labels) != 2 {
		return nil, errors.ValidationError(fmt.Sprintf(
			"a t-test requires exactly 2 groups of %q, found %d", grouping, len(labels)))
	}
	g1, g2 := groups[0], groups[1]
	if len(g1) < 2 || len(g2) < 2 {
		return nil, errors.ValidationError("each group needs at least two observations")
	}

	n1, n2 := len(g1), len(g2)
	fn1, fn2 := float64(n1), float64(n2)
	mean1, mean2 := meanOf(g1), meanOf(g2)
	var1 := sampleVar(g1, mean1)
	var2 := sampleVar(g2, mean2)
	std1, std2 := math.Sqrt(var1), math.Sqrt(var2)

	leveneW, leveneP := assumptions.Levene(groups)
	equalVariance := leveneP > req.alpha()

	var df, se float64
	variant := "pooled"
	if equalVariance {
		sp2 := ((fn1-1)*var1 + (fn2-1)*var2) / (fn1 + fn2 - 2)
		se = math.Sqrt(sp2 * (1/fn1 + 1/fn2))
		df = fn1 + fn2 - 2
	} else {
		variant = "welch"
		se = math.Sqrt(var1/fn1 + var2/fn2)
		df = welchDF(var1, var2, fn1, fn2)
	}
	if se == 0 {
		return nil, errors.ValidationError(fmt.Sprintf(
			"%q does not vary within either group; the test statistic is undefined", outcome))
	}

	tStat := (mean1 - mean2) / se
	pValue := t.dist.TTestPValue(tStat, df)
	significant := pValue < req.alpha()

	cohenD := t.dist.CohenD(mean1, mean2, std1, std2, n1, n2)
	hedgesG := t.dist.HedgesG(cohenD, n1+n2)
	dLo, dHi := cohenDInterval(cohenD, n1, n2, t.dist)

	meanDiff := mean1 - mean2
	seDiff := math.Sqrt(var1/fn1 + var2/fn2)
	tCrit := t.dist.TCritical(n1+n2-2, 0.95)
	diffLo := meanDiff - tCrit*seDiff
	diffHi := meanDiff + tCrit*seDiff

	magnitude := magnitudeOf(cohenD, dSmall, dMedium, dLarge)

	result := newResult(domainStats.AnalysisTTest)
	result.Test = &domainStats.TestOutcome{
		Test:        domainStats.AnalysisTTest,
		Statistic:   tStat,
		StatLabel:   "t",
		DF:          df,
		PValue:      pValue,
		Significant: significant,
		Groups: []domainStats.GroupStats{
			{Group: labels[0], N: n1, Mean: mean1, Std: std1},
			{Group: labels[1], N: n2, Mean: mean2, Std: std2},
		},
		Effects: []domainStats.EffectSize{
			{Name: "cohens_d", Value: cohenD, Magnitude: magnitude},
			{Name: "hedges_g", Value: hedgesG, Magnitude: magnitudeOf(hedgesG, dSmall, dMedium, dLarge)},
		},
		Detail: map[string]any{
			"variant":            variant,
			"levene_w":           leveneW,
			"levene_p":           leveneP,
			"equal_variance":     equalVariance,
			"mean_difference":    meanDiff,
			"mean_difference_ci": [2]float64{diffLo, diffHi},
			"cohens_d_ci":        [2]float64{dLo, dHi},
		},
	}

	result.Summary = fmt.Sprintf("Independent samples t-test of %s by %s", outcome, grouping)
	if variant == "welch" {
		result.Summary += " (Welch correction)"
	}
	result.APA = fmt.Sprintf("t(%s) = %s, %s, d = %s",
		formatDF(df), tables.FormatStat(tStat), tables.FormatP(pValue), tables.FormatStat(cohenD))

	sigClause := "is not statistically significant"
	if significant {
		sigClause = "is statistically significant"
	}
	result.Interpretation = fmt.Sprintf(
		"Mean %s was %.2f (SD = %.2f) for %s and %.2f (SD = %.2f) for %s. The difference %s (%s), with a %s effect size (d = %s).",
		outcome, mean1, std1, labels[0], mean2, std2, labels[1],
		sigClause, tables.FormatP(pValue), magnitude, tables.FormatStat(cohenD))

	return result, nil
}

// welchDF is the Welch-Satterthwaite approximation to the degrees of
// freedom under unequal variances.
func welchDF(var1, var2, fn1, fn2 float64) float64 {
	a := var1 / fn1
	b := var2 / fn2
	denom := a*a/(fn1-1) + b*b/(fn2-1)
	if denom == 0 {
		return fn1 + fn2 - 2
	}
	return (a + b) * (a + b) / denom
}

// cohenDInterval is the large-sample 95% interval around d
func cohenDInterval(d float64, n1, n2 int, dist *distributions.Distributions) (float64, float64) {
	fn1, fn2 := float64(n1), float64(n2)
	se := math.Sqrt((fn1+fn2)/(fn1*fn2) + d*d/(2*(fn1+fn2)))
	z := dist.NormalQuantile(0.975)
	return d - z*se, d + z*se
}
