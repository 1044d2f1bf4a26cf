package stats

import (
	"datalab/domain/core"
)

// AnalysisType identifies a statistical procedure the engine can run
type AnalysisType string

const (
	AnalysisCorrelation AnalysisType = "correlation"
	AnalysisRegression  AnalysisType = "linear_regression"
	AnalysisTTest       AnalysisType = "ttest"
	AnalysisANOVA       AnalysisType = "anova"
	AnalysisChiSquare   AnalysisType = "chisquare"
	AnalysisMannWhitney AnalysisType = "mannwhitney"
	AnalysisKruskal     AnalysisType = "kruskal"
)

// TestInfo describes a registered supplemental test for listings
type TestInfo struct {
	Name           AnalysisType `json:"name"`
	Description    string       `json:"description"`
	RequiresGroups bool         `json:"requires_groups"`
}

// Direction of a linear association
type Direction string

const (
	DirectionPositive Direction = "positive"
	DirectionNegative Direction = "negative"
	DirectionNone     Direction = "none"
)

// Strength bands an absolute correlation coefficient
type Strength string

const (
	StrengthStrong   Strength = "strong"
	StrengthModerate Strength = "moderate"
	StrengthWeak     Strength = "weak"
)

// StrengthOf bands |r|: strong above 0.7, moderate above 0.4, weak otherwise
func StrengthOf(r float64) Strength {
	abs := r
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs > 0.7:
		return StrengthStrong
	case abs > 0.4:
		return StrengthModerate
	default:
		return StrengthWeak
	}
}

// DirectionOf maps the sign of r
func DirectionOf(r float64) Direction {
	switch {
	case r > 0:
		return DirectionPositive
	case r < 0:
		return DirectionNegative
	default:
		return DirectionNone
	}
}

// CorrelationPair is one cell of the correlation analysis: the pairwise
// Pearson r between two continuous columns, with its two-tailed p-value
// from the t distribution on N-2 degrees of freedom.
type CorrelationPair struct {
	VarA      string    `json:"var_a"`
	VarB      string    `json:"var_b"`
	R         float64   `json:"r"`
	N         int       `json:"n"`
	PValue    float64   `json:"p_value"`
	Strength  Strength  `json:"strength"`
	Direction Direction `json:"direction"`
}

// CorrelationMatrix holds the full pairwise result for a set of
// continuous columns. Matrix is square in Variables order with 1.0 on
// the diagonal; Pairs lists each off-diagonal pair once (upper
// triangle) and Notable filters Pairs to |r| > 0.4.
type CorrelationMatrix struct {
	Variables []string          `json:"variables"`
	Matrix    [][]float64       `json:"matrix"`
	Pairs     []CorrelationPair `json:"pairs"`
	Notable   []CorrelationPair `json:"notable"`
	Rendered  string            `json:"rendered"`
}

// RegressionFit is a simple two-variable OLS fit. Rows are paired by
// original row index and a row is dropped when either variable is
// missing there.
type RegressionFit struct {
	Dependent string `json:"dependent"`
	Predictor string `json:"predictor"`
	N         int    `json:"n"`

	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`

	R          float64 `json:"r"`
	RSquared   float64 `json:"r_squared"`
	AdjRSquare float64 `json:"adj_r_squared"`
	RMSE       float64 `json:"rmse"`

	FStatistic  float64 `json:"f_statistic"`
	FPValue     float64 `json:"f_p_value"`
	SlopeStdErr float64 `json:"slope_std_err"`
	SlopeT      float64 `json:"slope_t"`
	SlopeP      float64 `json:"slope_p"`

	Equation string `json:"equation"`
}

// GroupStats is the per-group summary reported alongside comparison tests.
// Median and IQR are filled by the rank-based tests.
type GroupStats struct {
	Group  string  `json:"group"`
	N      int     `json:"n"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Median float64 `json:"median,omitempty"`
	IQR    float64 `json:"iqr,omitempty"`
}

// EffectSize pairs a named effect-size measure with its magnitude label
type EffectSize struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Magnitude string  `json:"magnitude"`
}

// TestOutcome is the shared result shape for group-comparison and
// association tests (t-test, ANOVA, chi-square, Mann-Whitney,
// Kruskal-Wallis).
type TestOutcome struct {
	Test        AnalysisType `json:"test"`
	Statistic   float64      `json:"statistic"`
	StatLabel   string       `json:"stat_label"`
	DF          float64      `json:"df"`
	DF2         float64      `json:"df2,omitempty"`
	PValue      float64      `json:"p_value"`
	Significant bool         `json:"significant"`

	Groups  []GroupStats `json:"groups,omitempty"`
	Effects []EffectSize `json:"effect_sizes,omitempty"`

	// Detail carries test-specific extras (Welch flag, CI bounds,
	// observed/expected tables) without widening the struct per test.
	Detail map[string]any `json:"detail,omitempty"`
}

// AnalysisResult is the envelope every analysis operation returns.
// Exactly one of the typed payload pointers is set, matching Type.
type AnalysisResult struct {
	ID      core.AnalysisID `json:"id"`
	Type    AnalysisType    `json:"type"`
	Summary string          `json:"summary"`

	Correlation *CorrelationMatrix `json:"correlation,omitempty"`
	Regression  *RegressionFit     `json:"regression,omitempty"`
	Test        *TestOutcome       `json:"test,omitempty"`

	APA            string         `json:"apa,omitempty"`
	Interpretation string         `json:"interpretation,omitempty"`
	Warnings       []string       `json:"warnings,omitempty"`
	GeneratedAt    core.Timestamp `json:"generated_at"`
}
