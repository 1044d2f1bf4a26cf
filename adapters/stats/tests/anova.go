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

// ANOVA is the one-way analysis of variance across three or more
// groups, with eta squared and the less biased omega squared as effect
// sizes.
type ANOVA struct {
	dist *distributions.Distributions
}

func NewANOVA() *ANOVA {
	return &ANOVA{dist: distributions.NewDistributions()}
}

func (a *ANOVA) Name() domainStats.AnalysisType { return domainStats.AnalysisANOVA }

func (a *ANOVA) Description() string {
	return "Compares the means of three or more independent groups"
}

func (a *ANOVA) RequiresGroups() bool { return true }

func (a *ANOVA) Run(ctx context.Context, req Request) (*domainStats.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "anova cancelled")
	}
	grouping, outcome, labels, groups, err := groupSelection(req)
	if err != nil {
		return nil, err
	}
	if len(labels) < 3 {
		return nil, errors.ValidationError(fmt.Sprintf(
			"anova requires at least 3 groups of %q, found %d; use ttest for two", grouping, len(labels)))
	}
	for i, g := range groups {
		if len(g) < 2 {
			return nil, errors.ValidationError(fmt.Sprintf(
				"group %q needs at least two observations", labels[i]))
		}
	}

	k := len(groups)
	total := 0
	var grandSum float64
	means := make([]float64, k)
	for i, g := range groups {
		total += len(g)
		means[i] = meanOf(g)
		grandSum += means[i] * float64(len(g))
	}
	grand := grandSum / float64(total)

	var ssBetween, ssWithin float64
	for i, g := range groups {
		d := means[i] - grand
		ssBetween += float64(len(g)) * d * d
		for _, v := range g {
			dv := v - means[i]
			ssWithin += dv * dv
		}
	}
	ssTotal := ssBetween + ssWithin

	df1 := k - 1
	df2 := total - k
	msBetween := ssBetween / float64(df1)
	msWithin := ssWithin / float64(df2)
	if msWithin == 0 {
		return nil, errors.ValidationError(fmt.Sprintf(
			"%q is constant within every group; the variance ratio is undefined", outcome))
	}

	f := msBetween / msWithin
	pValue := a.dist.FTestPValue(f, df1, df2)
	significant := pValue < req.alpha()

	var etaSquared float64
	if ssTotal > 0 {
		etaSquared = ssBetween / ssTotal
	}
	omegaSquared := (ssBetween - float64(df1)*msWithin) / (ssTotal + msWithin)

	leveneW, leveneP := assumptions.Levene(groups)

	groupStats := make([]domainStats.GroupStats, k)
	for i, g := range groups {
		groupStats[i] = domainStats.GroupStats{
			Group: labels[i],
			N:     len(g),
			Mean:  means[i],
			Std:   math.Sqrt(sampleVar(g, means[i])),
		}
	}

	magnitude := magnitudeOf(etaSquared, etaSmall, etaMedium, etaLarge)

	result := newResult(domainStats.AnalysisANOVA)
	result.Test = &domainStats.TestOutcome{
		Test:        domainStats.AnalysisANOVA,
		Statistic:   f,
		StatLabel:   "F",
		DF:          float64(df1),
		DF2:         float64(df2),
		PValue:      pValue,
		Significant: significant,
		Groups:      groupStats,
		Effects: []domainStats.EffectSize{
			{Name: "eta_squared", Value: etaSquared, Magnitude: magnitude},
			{Name: "omega_squared", Value: omegaSquared, Magnitude: magnitudeOf(omegaSquared, etaSmall, etaMedium, etaLarge)},
		},
		Detail: map[string]any{
			"ss_between":     ssBetween,
			"ss_within":      ssWithin,
			"levene_w":       leveneW,
			"levene_p":       leveneP,
			"equal_variance": leveneP > req.alpha(),
		},
	}

	result.Summary = fmt.Sprintf("One-way ANOVA of %s across %d %s groups", outcome, k, grouping)
	result.APA = fmt.Sprintf("F(%d, %d) = %s, %s, η² = %s",
		df1, df2, tables.FormatStat(f), tables.FormatP(pValue), tables.FormatR(etaSquared))

	sigClause := "did not differ significantly"
	if significant {
		sigClause = "differed significantly"
	}
	result.Interpretation = fmt.Sprintf(
		"Mean %s %s across the %d groups of %s (%s). Group membership explains %.1f%% of the variance, a %s effect (η² = %s).",
		outcome, sigClause, k, grouping, tables.FormatP(pValue),
		etaSquared*100, magnitude, tables.FormatR(etaSquared))

	if leveneP <= req.alpha() {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"group variances differ significantly (Levene p = %.3f); interpret with caution", leveneP))
	}

	return result, nil
}
