package tests

import (
	"context"
	"fmt"
	"math"

	domainStats "datalab/domain/stats"
	"datalab/internal/distributions"
	"datalab/internal/errors"
	"datalab/internal/tables"
)

// smallRankGroup is the size below which the normal approximation to U
// gets rough
const smallRankGroup = 8

// MannWhitney compares two independent groups on ranks, with a
// tie-corrected normal approximation and the rank-biserial correlation
// as effect size.
type MannWhitney struct {
	dist *distributions.Distributions
}

func NewMannWhitney() *MannWhitney {
	return &MannWhitney{dist: distributions.NewDistributions()}
}

func (m *MannWhitney) Name() domainStats.AnalysisType { return domainStats.AnalysisMannWhitney }

func (m *MannWhitney) Description() string {
	return "Compares two independent groups on ranks"
}

func (m *MannWhitney) RequiresGroups() bool { return true }

func (m *MannWhitney) Run(ctx context.Context, req Request) (*domainStats.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "mannwhitney cancelled")
	}
	grouping, outcome, labels, groups, err := groupSelection(req)
	if err != nil {
		return nil, err
	}
	if len(labels) != 2 {
		return nil, errors.ValidationError(fmt.Sprintf(
			"a Mann-Whitney test requires exactly 2 groups of %q, found %d", grouping, len(labels)))
	}
	g1, g2 := groups[0], groups[1]
	if len(g1) < 2 || len(g2) < 2 {
		return nil, errors.ValidationError("each group needs at least two observations")
	}

	n1, n2 := len(g1), len(g2)
	fn1, fn2 := float64(n1), float64(n2)
	total := fn1 + fn2

	combined := make([]float64, 0, n1+n2)
	combined = append(combined, g1...)
	combined = append(combined, g2...)
	ranks, tieSum := tieRanks(combined)

	var r1 float64
	for i := 0; i < n1; i++ {
		r1 += ranks[i]
	}
	u1 := r1 - fn1*(fn1+1)/2
	u2 := fn1*fn2 - u1

	muU := fn1 * fn2 / 2
	tieTerm := tieSum / (total * (total - 1))
	sigmaU := math.Sqrt(fn1 * fn2 / 12 * (total + 1 - tieTerm))
	if sigmaU == 0 {
		return nil, errors.ValidationError(fmt.Sprintf(
			"%q is constant; ranks carry no information", outcome))
	}

	diff := u1 - muU
	var z float64
	switch {
	case diff > 0:
		z = (diff - 0.5) / sigmaU
	case diff < 0:
		z = (diff + 0.5) / sigmaU
	}
	pValue := 2 * (1 - m.dist.NormalCDF(math.Abs(z)))
	significant := pValue < req.alpha()

	rankBiserial := 1 - 2*u1/(fn1*fn2)
	magnitude := magnitudeOf(rankBiserial, rSmall, rMedium, rLarge)

	med1, iqr1 := medianIQR(g1)
	med2, iqr2 := medianIQR(g2)
	mean1, mean2 := meanOf(g1), meanOf(g2)

	result := newResult(domainStats.AnalysisMannWhitney)
	result.Test = &domainStats.TestOutcome{
		Test:        domainStats.AnalysisMannWhitney,
		Statistic:   u1,
		StatLabel:   "U",
		PValue:      pValue,
		Significant: significant,
		Groups: []domainStats.GroupStats{
			{Group: labels[0], N: n1, Mean: mean1, Std: math.Sqrt(sampleVar(g1, mean1)), Median: med1, IQR: iqr1},
			{Group: labels[1], N: n2, Mean: mean2, Std: math.Sqrt(sampleVar(g2, mean2)), Median: med2, IQR: iqr2},
		},
		Effects: []domainStats.EffectSize{
			{Name: "rank_biserial_r", Value: rankBiserial, Magnitude: magnitude},
		},
		Detail: map[string]any{
			"u1":             u1,
			"u2":             u2,
			"z":              z,
			"mu_u":           muU,
			"sigma_u":        sigmaU,
			"tie_correction": tieSum > 0,
			"method":         "normal_approximation",
		},
	}

	result.Summary = fmt.Sprintf("Mann-Whitney U test of %s by %s", outcome, grouping)
	result.APA = fmt.Sprintf("U = %s, z = %s, %s, r = %s",
		tables.FormatStat(u1), tables.FormatStat(z), tables.FormatP(pValue), tables.FormatR(rankBiserial))

	sigClause := "do not differ significantly"
	if significant {
		sigClause = "differ significantly"
	}
	result.Interpretation = fmt.Sprintf(
		"Median %s was %.2f for %s and %.2f for %s. The rank distributions %s (%s), rank-biserial r = %s.",
		outcome, med1, labels[0], med2, labels[1], sigClause,
		tables.FormatP(pValue), tables.FormatR(rankBiserial))

	if n1 < smallRankGroup || n2 < smallRankGroup {
		result.Warnings = append(result.Warnings,
			"one or both groups are small; the normal approximation to U is rough")
	}

	return result, nil
}
