package bivariate

import (
	"context"
	"strings"
	"testing"

	"datalab/domain/dataset"
)

func regressionDataset(t *testing.T, ys, xs []dataset.Value) *dataset.Dataset {
	t.Helper()
	return analysisDataset(t,
		[]string{"outcome", "predictor"},
		map[string]dataset.ColumnType{
			"outcome":   dataset.TypeContinuous,
			"predictor": dataset.TypeContinuous,
		},
		map[string][]dataset.Value{"outcome": ys, "predictor": xs})
}

func TestRegression_PerfectLinearFit(t *testing.T) {
	// outcome = 2*predictor + 3 with no noise
	ds := regressionDataset(t, nums(5, 7, 9, 11), nums(1, 2, 3, 4))

	result, err := NewEngine(4).Regression(context.Background(), ds, []string{"outcome", "predictor"})
	if err != nil {
		t.Fatalf("Regression: %v", err)
	}
	fit := result.Regression
	if fit == nil {
		t.Fatal("expected a regression payload")
	}

	near(t, "slope", fit.Slope, 2)
	near(t, "intercept", fit.Intercept, 3)
	near(t, "r squared", fit.RSquared, 1)
	near(t, "rmse", fit.RMSE, 0)

	if fit.SlopeStdErr != 0 {
		t.Errorf("slope stderr = %v, want 0 for an exact fit", fit.SlopeStdErr)
	}
	if !strings.Contains(result.APA, "reproduces the observations exactly") {
		t.Errorf("APA = %q, want the exact-fit form", result.APA)
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "exactly") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want an exact-fit note", result.Warnings)
	}
	if !strings.Contains(fit.Equation, "2.0000 * predictor") {
		t.Errorf("equation = %q", fit.Equation)
	}
}

func TestRegression_HandComputedFit(t *testing.T) {
	ds := regressionDataset(t, nums(2, 4, 5, 4, 5), nums(1, 2, 3, 4, 5))

	result, err := NewEngine(4).Regression(context.Background(), ds, []string{"outcome", "predictor"})
	if err != nil {
		t.Fatalf("Regression: %v", err)
	}
	fit := result.Regression

	near(t, "slope", fit.Slope, 0.6)
	near(t, "intercept", fit.Intercept, 2.2)
	near(t, "r squared", fit.RSquared, 0.6)
	near(t, "adjusted r squared", fit.AdjRSquare, 0.46667)
	near(t, "rmse", fit.RMSE, 0.69282)
	near(t, "f statistic", fit.FStatistic, 4.5)
	near(t, "slope t", fit.SlopeT, 2.12132)
	near(t, "n", float64(fit.N), 5)

	// For one predictor the F test and the slope t test are the same test
	if diff := fit.FPValue - fit.SlopeP; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("F p-value %v and slope p-value %v should agree", fit.FPValue, fit.SlopeP)
	}
	if fit.SlopeP < 0.10 || fit.SlopeP > 0.15 {
		t.Errorf("slope p = %v, want near .124", fit.SlopeP)
	}
	if !strings.Contains(result.Interpretation, "not statistically significant") {
		t.Errorf("interpretation should flag non-significance:\n%s", result.Interpretation)
	}
	if !strings.Contains(result.Interpretation, "60.0%") {
		t.Errorf("interpretation should state variance explained:\n%s", result.Interpretation)
	}
}

func TestRegression_DropsRowWhenEitherValueMissing(t *testing.T) {
	// Complete rows follow outcome = 2*predictor + 1. The two series have
	// different missingness patterns, so positional pairing after separate
	// filtering would produce a different, noisy fit.
	ys := []dataset.Value{dataset.Number(3), dataset.Number(5), dataset.Number(7), dataset.Missing, dataset.Number(11)}
	xs := []dataset.Value{dataset.Number(1), dataset.Missing, dataset.Number(3), dataset.Number(4), dataset.Number(5)}
	ds := regressionDataset(t, ys, xs)

	result, err := NewEngine(4).Regression(context.Background(), ds, []string{"outcome", "predictor"})
	if err != nil {
		t.Fatalf("Regression: %v", err)
	}
	fit := result.Regression
	if fit == nil {
		t.Fatal("expected a regression payload")
	}

	if fit.N != 3 {
		t.Fatalf("n = %d, want 3 complete pairs", fit.N)
	}
	near(t, "slope", fit.Slope, 2)
	near(t, "intercept", fit.Intercept, 1)
	if fit.RSquared < 0.999999 {
		t.Errorf("r squared = %v, want 1 for aligned pairing", fit.RSquared)
	}
}

func TestRegression_InsufficientVariables(t *testing.T) {
	ds := analysisDataset(t,
		[]string{"score"},
		map[string]dataset.ColumnType{"score": dataset.TypeContinuous},
		map[string][]dataset.Value{"score": nums(1, 2, 3)})

	result, err := NewEngine(4).Regression(context.Background(), ds, []string{"score"})
	if err != nil {
		t.Fatalf("Regression: %v", err)
	}
	if result.Regression != nil {
		t.Fatal("single variable should yield the insufficient-variables result")
	}
	if result.Type != "linear_regression" {
		t.Errorf("type = %s, want linear_regression", result.Type)
	}
}

func TestRegression_TooFewPairedRows(t *testing.T) {
	ys := []dataset.Value{dataset.Number(1), dataset.Number(2), dataset.Missing, dataset.Missing}
	xs := []dataset.Value{dataset.Number(3), dataset.Number(4), dataset.Number(5), dataset.Number(6)}
	ds := regressionDataset(t, ys, xs)

	result, err := NewEngine(4).Regression(context.Background(), ds, nil)
	if err != nil {
		t.Fatalf("Regression: %v", err)
	}
	if result.Regression != nil {
		t.Fatal("two paired rows should not support a fit")
	}
	if !strings.Contains(result.Interpretation, "paired observations") {
		t.Errorf("interpretation should name the shortfall:\n%s", result.Interpretation)
	}
}

func TestRegression_ZeroVariancePredictor(t *testing.T) {
	ds := regressionDataset(t, nums(1, 2, 3, 4), nums(5, 5, 5, 5))

	result, err := NewEngine(4).Regression(context.Background(), ds, nil)
	if err != nil {
		t.Fatalf("Regression: %v", err)
	}
	if result.Regression != nil {
		t.Fatal("constant predictor should yield the insufficient-data result")
	}
	if !strings.Contains(result.Interpretation, "no variance") {
		t.Errorf("interpretation should name the degenerate predictor:\n%s", result.Interpretation)
	}
}

func TestRegression_ExtraVariablesIgnored(t *testing.T) {
	ds := analysisDataset(t,
		[]string{"a", "b", "c"},
		map[string]dataset.ColumnType{
			"a": dataset.TypeContinuous,
			"b": dataset.TypeContinuous,
			"c": dataset.TypeContinuous,
		},
		map[string][]dataset.Value{
			"a": nums(5, 7, 9, 11),
			"b": nums(1, 2, 3, 4),
			"c": nums(9, 9, 8, 1),
		})

	result, err := NewEngine(4).Regression(context.Background(), ds, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Regression: %v", err)
	}
	fit := result.Regression
	if fit.Dependent != "a" || fit.Predictor != "b" {
		t.Errorf("fit uses %s ~ %s, want a ~ b", fit.Dependent, fit.Predictor)
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "ignored") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want a note about the ignored variable", result.Warnings)
	}
}

func TestRegression_NegativeSlopeWording(t *testing.T) {
	ds := regressionDataset(t, nums(8, 6, 4, 2, 0), nums(1, 2, 3, 4, 5))

	result, err := NewEngine(4).Regression(context.Background(), ds, nil)
	if err != nil {
		t.Fatalf("Regression: %v", err)
	}

	near(t, "slope", result.Regression.Slope, -2)
	near(t, "intercept", result.Regression.Intercept, 10)
	if !strings.Contains(result.Interpretation, "decrease") {
		t.Errorf("interpretation should describe a decrease:\n%s", result.Interpretation)
	}
	if !strings.Contains(result.Regression.Equation, "-2.0000 * predictor + 10.0000") {
		t.Errorf("equation = %q", result.Regression.Equation)
	}
}
