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

// KruskalWallis compares three or more independent groups on ranks,
// with the tie-corrected H statistic and epsilon squared as effect
// size.
type KruskalWallis struct {
	dist *distributions.Distributions
}

func NewKruskalWallis() *KruskalWallis {
	return &KruskalWallis{dist: distributions.NewDistributions()}
}

func (k *KruskalWallis) Name() domainStats.AnalysisType { return domainStats.AnalysisKruskal }

func (k *KruskalWallis) Description() string {
	return "Compares three or more independent groups on ranks"
}

func (k *KruskalWallis) RequiresGroups() bool { return true }

func (k *KruskalWallis) Run(ctx context.Context, req Request) (*domainStats.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "kruskal cancelled")
	}
	grouping, outcome, labels, groups, err := groupSelection(req)
	if err != nil {
		return nil, err
	}
	if len(labels) < 3 {
		return nil, errors.ValidationError(fmt.Sprintf(
			"a Kruskal-Wallis test requires at least 3 groups of %q, found %d; use mannwhitney for two",
			grouping, len(labels)))
	}
	for i, g := range groups {
		if len(g) < 2 {
			return nil, errors.ValidationError(fmt.Sprintf(
				"group %q needs at least two observations", labels[i]))
		}
	}

	kGroups := len(groups)
	var combined []float64
	sizes := make([]int, kGroups)
	for i, g := range groups {
		sizes[i] = len(g)
		combined = append(combined, g...)
	}
	n := len(combined)
	fn := float64(n)

	ranks, tieSum := tieRanks(combined)

	correction := 1 - tieSum/(fn*fn*fn-fn)
	if correction == 0 {
		return nil, errors.ValidationError(fmt.Sprintf(
			"%q is constant; ranks carry no information", outcome))
	}

	rankSums := make([]float64, kGroups)
	offset := 0
	for i, size := range sizes {
		for j := 0; j < size; j++ {
			rankSums[i] += ranks[offset+j]
		}
		offset += size
	}

	var sumTerm float64
	for i, size := range sizes {
		sumTerm += rankSums[i] * rankSums[i] / float64(size)
	}
	h := 12/(fn*(fn+1))*sumTerm - 3*(fn+1)
	h /= correction

	df := kGroups - 1
	pValue := k.dist.ChiSquarePValue(h, df)
	significant := pValue < req.alpha()

	epsilonSquared := h / (fn - 1)
	magnitude := magnitudeOf(epsilonSquared, etaSmall, etaMedium, etaLarge)

	groupStats := make([]domainStats.GroupStats, kGroups)
	meanRanks := make(map[string]float64, kGroups)
	for i, g := range groups {
		med, iqr := medianIQR(g)
		mean := meanOf(g)
		groupStats[i] = domainStats.GroupStats{
			Group:  labels[i],
			N:      sizes[i],
			Mean:   mean,
			Std:    math.Sqrt(sampleVar(g, mean)),
			Median: med,
			IQR:    iqr,
		}
		meanRanks[labels[i]] = rankSums[i] / float64(sizes[i])
	}

	result := newResult(domainStats.AnalysisKruskal)
	result.Test = &domainStats.TestOutcome{
		Test:        domainStats.AnalysisKruskal,
		Statistic:   h,
		StatLabel:   "H",
		DF:          float64(df),
		PValue:      pValue,
		Significant: significant,
		Groups:      groupStats,
		Effects: []domainStats.EffectSize{
			{Name: "epsilon_squared", Value: epsilonSquared, Magnitude: magnitude},
		},
		Detail: map[string]any{
			"mean_ranks":     meanRanks,
			"tie_correction": tieSum > 0,
		},
	}

	result.Summary = fmt.Sprintf("Kruskal-Wallis test of %s across %d %s groups", outcome, kGroups, grouping)
	result.APA = fmt.Sprintf("H(%d) = %s, %s, ε² = %s",
		df, tables.FormatStat(h), tables.FormatP(pValue), tables.FormatR(epsilonSquared))

	sigClause := "do not differ significantly"
	if significant {
		sigClause = "differ significantly"
	}
	result.Interpretation = fmt.Sprintf(
		"The rank distributions of %s %s across the %d groups of %s (%s), ε² = %s.",
		outcome, sigClause, kGroups, grouping, tables.FormatP(pValue), tables.FormatR(epsilonSquared))

	return result, nil
}
