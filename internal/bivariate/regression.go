package bivariate

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"datalab/domain/dataset"
	domainStats "datalab/domain/stats"
	"datalab/internal/errors"
	"datalab/internal/tables"
)

// minRegressionN leaves at least one residual degree of freedom
const minRegressionN = 3

// Regression fits y = b*x + a by ordinary least squares. The first
// continuous selection is the dependent variable, the second the sole
// predictor; further selections are ignored. Rows are paired by original
// row index and dropped when either value is non-numeric, so differing
// missingness between the two columns cannot misalign the series.
func (e *Engine) Regression(ctx context.Context, ds *dataset.Dataset, variables []string) (*domainStats.AnalysisResult, error) {
	if ds == nil || ds.Table == nil {
		return nil, errors.ValidationError("no dataset loaded")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "regression cancelled")
	}

	start := time.Now()
	selected := e.continuousSelection(ds, variables)
	result := newResult(domainStats.AnalysisRegression)

	if len(selected) < 2 {
		explainShortfall(result, fmt.Sprintf(
			"Linear regression requires a continuous dependent variable and one continuous predictor; the selection contains %d usable variable(s).", len(selected)))
		return result, nil
	}

	yVar, xVar := selected[0], selected[1]
	if extra := len(selected) - 2; extra > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"simple regression uses %s and %s; %d additional variable(s) ignored", yVar, xVar, extra))
	}

	ys, xs := pairedValues(ds.Table, yVar, xVar)
	n := len(xs)
	if n < minRegressionN {
		explainShortfall(result, fmt.Sprintf(
			"Linear regression requires at least %d complete paired observations of %s and %s; found %d.",
			minRegressionN, yVar, xVar, n))
		return result, nil
	}

	var sumX, sumY, sumXX, sumYY, sumXY float64
	for i := range xs {
		x, y := xs[i], ys[i]
		sumX += x
		sumY += y
		sumXX += x * x
		sumYY += y * y
		sumXY += x * y
	}

	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		explainShortfall(result, fmt.Sprintf(
			"The predictor %s has no variance over the paired observations, so a slope cannot be estimated.", xVar))
		return result, nil
	}

	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	r := pearson(xs, ys)
	rsq := r * r
	adj := 1 - (1-rsq)*(fn-1)/(fn-2)

	var sse float64
	for i := range xs {
		resid := ys[i] - (slope*xs[i] + intercept)
		sse += resid * resid
	}
	rmse := math.Sqrt(sse / fn)

	fit := &domainStats.RegressionFit{
		Dependent:  yVar,
		Predictor:  xVar,
		N:          n,
		Slope:      slope,
		Intercept:  intercept,
		R:          r,
		RSquared:   rsq,
		AdjRSquare: adj,
		RMSE:       rmse,
		Equation:   equation(yVar, xVar, slope, intercept),
	}

	if sse > 0 {
		sxx := sumXX - sumX*sumX/fn
		sst := sumYY - sumY*sumY/fn
		ssr := sst - sse
		if ssr < 0 {
			ssr = 0
		}

		s2 := sse / (fn - 2)
		fit.SlopeStdErr = math.Sqrt(s2 / sxx)
		fit.SlopeT = slope / fit.SlopeStdErr
		fit.SlopeP = e.dist.TTestPValue(fit.SlopeT, fn-2)
		fit.FStatistic = ssr / s2
		fit.FPValue = e.dist.FTestPValue(fit.FStatistic, 1, n-2)
	} else {
		// Zero residuals: standard errors are undefined, significance is not
		result.Warnings = append(result.Warnings,
			"the fitted line reproduces every observation exactly; standard errors are undefined")
	}

	result.Regression = fit
	result.Summary = fmt.Sprintf("Simple linear regression of %s on %s (n = %d)", yVar, xVar, n)
	result.Interpretation = interpretFit(fit)
	result.APA = regressionAPA(fit)

	log.Printf("[Bivariate] Regression %s ~ %s over %d paired rows in %dms",
		yVar, xVar, n, time.Since(start).Milliseconds())

	return result, nil
}

func equation(yVar, xVar string, slope, intercept float64) string {
	sign := "+"
	if intercept < 0 {
		sign = "-"
	}
	return fmt.Sprintf("%s = %.4f * %s %s %.4f", yVar, slope, xVar, sign, math.Abs(intercept))
}

func interpretFit(fit *domainStats.RegressionFit) string {
	direction := "increase"
	if fit.Slope < 0 {
		direction = "decrease"
	}

	var significance string
	switch {
	case fit.SlopeStdErr == 0:
		significance = "The fit is exact, leaving no residual variance to test against."
	case fit.SlopeP < 0.05:
		significance = fmt.Sprintf("The association is statistically significant (%s).", tables.FormatP(fit.SlopeP))
	default:
		significance = fmt.Sprintf("The association is not statistically significant (%s).", tables.FormatP(fit.SlopeP))
	}

	return fmt.Sprintf(
		"%s explains %.1f%% of the variance in %s. Each one-unit increase in %s predicts a %.4f-unit %s in %s. %s",
		fit.Predictor, fit.RSquared*100, fit.Dependent,
		fit.Predictor, math.Abs(fit.Slope), direction, fit.Dependent,
		significance)
}

func regressionAPA(fit *domainStats.RegressionFit) string {
	df := fit.N - 2
	if fit.SlopeStdErr == 0 {
		return fmt.Sprintf("R² = %s; the model reproduces the observations exactly",
			tables.FormatR(fit.RSquared))
	}
	return fmt.Sprintf("R² = %s, F(1, %d) = %s, %s; b = %.2f, t(%d) = %s, %s",
		tables.FormatR(fit.RSquared),
		df, tables.FormatStat(fit.FStatistic), tables.FormatP(fit.FPValue),
		fit.Slope, df, tables.FormatStat(fit.SlopeT), tables.FormatP(fit.SlopeP))
}
