// Package tests is the group-comparison and association test registry:
// independent-samples t-test, one-way ANOVA, chi-square independence,
// Mann-Whitney U, and Kruskal-Wallis H. Each test implements
// StatisticalTest; the Engine dispatches by analysis type under a
// weighted semaphore so concurrent requests stay bounded.
package tests

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"datalab/domain/core"
	"datalab/domain/dataset"
	domainStats "datalab/domain/stats"
	"datalab/internal/errors"
	"datalab/ports"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/semaphore"
)

const (
	defaultMaxConcurrent = 4

	// DefaultAlpha is the significance level a request falls back to
	DefaultAlpha = 0.05

	// minQuartileValues matches the percentile interpolation floor; below
	// it the range stands in for the IQR
	minQuartileValues = 4
)

// Cohen's conventional thresholds per effect size family. Cramer's V
// shares the correlation family's cutpoints.
const (
	dSmall, dMedium, dLarge       = 0.2, 0.5, 0.8
	rSmall, rMedium, rLarge       = 0.1, 0.3, 0.5
	etaSmall, etaMedium, etaLarge = 0.01, 0.06, 0.14
)

// Request is one test invocation. Group comparison tests read Variables
// as [grouping, outcome]; the association test reads them as the two
// categorical variables. A zero Alpha means DefaultAlpha.
type Request struct {
	Dataset   *dataset.Dataset
	Variables []string
	Alpha     float64
}

func (r Request) alpha() float64 {
	if r.Alpha > 0 && r.Alpha < 1 {
		return r.Alpha
	}
	return DefaultAlpha
}

// StatisticalTest is one registered analysis
type StatisticalTest interface {
	Name() domainStats.AnalysisType
	Description() string
	RequiresGroups() bool
	Run(ctx context.Context, req Request) (*domainStats.AnalysisResult, error)
}

// Engine dispatches requests to the registered tests
type Engine struct {
	sem   *semaphore.Weighted
	tests []StatisticalTest
}

var _ ports.AnalysisRunner = (*Engine)(nil)

// NewEngine registers the five tests in presentation order. A
// non-positive limit falls back to the default.
func NewEngine(maxConcurrent int64) *Engine {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Engine{
		sem: semaphore.NewWeighted(maxConcurrent),
		tests: []StatisticalTest{
			NewTTest(),
			NewANOVA(),
			NewChiSquare(),
			NewMannWhitney(),
			NewKruskalWallis(),
		},
	}
}

// Supports reports whether a test is registered for the analysis type
func (e *Engine) Supports(name domainStats.AnalysisType) bool {
	return e.lookup(name) != nil
}

// List returns the registered tests in registration order
func (e *Engine) List() []domainStats.TestInfo {
	out := make([]domainStats.TestInfo, 0, len(e.tests))
	for _, t := range e.tests {
		out = append(out, domainStats.TestInfo{
			Name:           t.Name(),
			Description:    t.Description(),
			RequiresGroups: t.RequiresGroups(),
		})
	}
	return out
}

// Run dispatches a single test by analysis type
func (e *Engine) Run(ctx context.Context, name domainStats.AnalysisType, ds *dataset.Dataset, variables []string) (*domainStats.AnalysisResult, error) {
	test := e.lookup(name)
	if test == nil {
		return nil, errors.ValidationError(fmt.Sprintf("unsupported analysis type %q", name))
	}
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(err, "test slot unavailable")
	}
	defer e.sem.Release(1)

	start := time.Now()
	result, err := test.Run(ctx, Request{Dataset: ds, Variables: variables})
	if err != nil {
		return nil, err
	}
	log.Printf("[StatTests] %s completed in %dms", name, time.Since(start).Milliseconds())
	return result, nil
}

// RunMany runs several tests over the same selection concurrently,
// results aligned with the requested order. The first failure is
// returned after all goroutines finish; successful entries stay filled.
func (e *Engine) RunMany(ctx context.Context, names []domainStats.AnalysisType, ds *dataset.Dataset, variables []string) ([]*domainStats.AnalysisResult, error) {
	results := make([]*domainStats.AnalysisResult, len(names))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, name := range names {
		wg.Add(1)
		go func(i int, name domainStats.AnalysisType) {
			defer wg.Done()
			res, err := e.Run(ctx, name, ds, variables)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = errors.Wrapf(err, "%s failed", name)
				}
				return
			}
			results[i] = res
		}(i, name)
	}
	wg.Wait()

	if firstErr != nil {
		return results, firstErr
	}
	return results, nil
}

func (e *Engine) lookup(name domainStats.AnalysisType) StatisticalTest {
	for _, t := range e.tests {
		if t.Name() == name {
			return t
		}
	}
	return nil
}

func newResult(t domainStats.AnalysisType) *domainStats.AnalysisResult {
	return &domainStats.AnalysisResult{
		ID:          core.AnalysisID(core.NewID()),
		Type:        t,
		GeneratedAt: core.Now(),
	}
}

// magnitudeOf labels an effect size against its family's small, medium,
// and large cutpoints. The sign is ignored.
func magnitudeOf(value, small, medium, large float64) string {
	abs := math.Abs(value)
	switch {
	case abs < small:
		return "negligible"
	case abs < medium:
		return "small"
	case abs < large:
		return "medium"
	default:
		return "large"
	}
}

// formatDF renders degrees of freedom without a decimal tail unless the
// value is fractional, as with the Welch correction.
func formatDF(df float64) string {
	if df == math.Trunc(df) {
		return fmt.Sprintf("%.0f", df)
	}
	return fmt.Sprintf("%.2f", df)
}

// groupSelection resolves [grouping, outcome] from the request and
// splits the outcome by group label.
func groupSelection(req Request) (grouping, outcome string, labels []string, groups [][]float64, err error) {
	if req.Dataset == nil || req.Dataset.Table == nil {
		return "", "", nil, nil, errors.ValidationError("no dataset loaded")
	}
	if len(req.Variables) < 2 {
		return "", "", nil, nil, errors.ValidationError("select a grouping variable and an outcome variable")
	}
	grouping, outcome = req.Variables[0], req.Variables[1]
	tbl := req.Dataset.Table
	if !tbl.HasColumn(grouping) || !tbl.HasColumn(outcome) {
		return "", "", nil, nil, errors.ValidationError(fmt.Sprintf("columns %q and %q must both exist", grouping, outcome))
	}
	labels, groups = groupedByLabel(tbl, grouping, outcome)
	return grouping, outcome, labels, groups, nil
}

// groupedByLabel splits the outcome column by the grouping column's
// labels, pairing by row and dropping rows where either cell is
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

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func sampleVar(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return ss / float64(len(values)-1)
}

// medianIQR summarizes a group for the rank-based tests. Quartiles need
// four points; below that the range stands in.
func medianIQR(values []float64) (float64, float64) {
	med, err := stats.Median(values)
	if err != nil {
		return 0, 0
	}
	if len(values) < minQuartileValues {
		lo, _ := stats.Min(values)
		hi, _ := stats.Max(values)
		return med, hi - lo
	}
	q1, err := stats.Percentile(values, 25)
	if err != nil {
		return med, 0
	}
	q3, err := stats.Percentile(values, 75)
	if err != nil {
		return med, 0
	}
	return med, q3 - q1
}
