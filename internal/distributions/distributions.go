// Package distributions centralizes p-value and critical-value lookups for
// the analysis engines, wrapping gonum's distribution implementations so
// CDF handling is not re-derived per test.
package distributions

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Distributions is the shared lookup utility. P-values are two-tailed
// unless the method says otherwise.
type Distributions struct{}

// NewDistributions creates the shared distributions utility
func NewDistributions() *Distributions {
	return &Distributions{}
}

// TTestPValue is the two-tailed p-value of a t statistic on df degrees of
// freedom. Fractional df is accepted for the Welch-Satterthwaite case.
func (d *Distributions) TTestPValue(tStatistic float64, df float64) float64 {
	if df <= 0 || math.IsNaN(df) || math.IsNaN(tStatistic) {
		return 1.0
	}
	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * (1 - tDist.CDF(math.Abs(tStatistic)))
}

// CorrelationPValue tests r against zero by transforming r to a t statistic
// on n-2 degrees of freedom. A perfect correlation short-circuits to zero
// before the transform divides by zero.
func (d *Distributions) CorrelationPValue(r float64, n int) float64 {
	if n < 3 || math.IsNaN(r) {
		return 1.0
	}
	if r*r >= 1 {
		return 0.0
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	return d.TTestPValue(t, df)
}

// FTestPValue is the upper-tail p-value of an F statistic (ANOVA,
// regression, variance ratio tests)
func (d *Distributions) FTestPValue(fStatistic float64, df1, df2 int) float64 {
	if df1 <= 0 || df2 <= 0 || math.IsNaN(fStatistic) {
		return 1.0
	}
	if math.IsInf(fStatistic, 1) {
		return 0.0
	}
	if fStatistic <= 0 {
		return 1.0
	}
	fDist := distuv.F{D1: float64(df1), D2: float64(df2)}
	return 1 - fDist.CDF(fStatistic)
}

// ChiSquarePValue is the upper-tail p-value of a chi-square statistic
func (d *Distributions) ChiSquarePValue(chiSquare float64, df int) float64 {
	if df <= 0 || math.IsNaN(chiSquare) || chiSquare <= 0 {
		return 1.0
	}
	if math.IsInf(chiSquare, 1) {
		return 0.0
	}
	chiDist := distuv.ChiSquared{K: float64(df)}
	return 1 - chiDist.CDF(chiSquare)
}

// NormalCDF is the standard normal cumulative distribution function
func (d *Distributions) NormalCDF(x float64) float64 {
	return distuv.UnitNormal.CDF(x)
}

// NormalQuantile is the standard normal inverse CDF
func (d *Distributions) NormalQuantile(p float64) float64 {
	return distuv.UnitNormal.Quantile(p)
}

// TCritical is the two-tailed critical t value at the given confidence
// level, e.g. 0.95 for a 95 percent interval
func (d *Distributions) TCritical(df int, confidenceLevel float64) float64 {
	if df <= 0 {
		return 0
	}
	if confidenceLevel <= 0 || confidenceLevel >= 1 {
		confidenceLevel = 0.95
	}
	alpha := 1.0 - confidenceLevel
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(df)}.Quantile(1.0 - alpha/2.0)
}

// CohenD is the standardized mean difference between two groups over their
// pooled standard deviation
func (d *Distributions) CohenD(mean1, mean2, std1, std2 float64, n1, n2 int) float64 {
	if n1 < 2 || n2 < 2 {
		return 0
	}
	pooled := math.Sqrt(((float64(n1-1) * std1 * std1) + (float64(n2-1) * std2 * std2)) / float64(n1+n2-2))
	if pooled == 0 {
		return 0
	}
	return (mean1 - mean2) / pooled
}

// HedgesG applies the small-sample bias correction to Cohen's d
func (d *Distributions) HedgesG(cohenD float64, totalN int) float64 {
	if totalN < 3 {
		return cohenD
	}
	correction := 1.0 - (3.0 / (4.0*float64(totalN) - 9.0))
	return cohenD * correction
}
