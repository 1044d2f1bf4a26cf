// Package bivariate runs the two-variable analyses: the pairwise Pearson
// correlation matrix and simple least-squares regression.
package bivariate

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"datalab/domain/core"
	"datalab/domain/dataset"
	domainStats "datalab/domain/stats"
	"datalab/internal/distributions"
	"datalab/internal/errors"
	"datalab/internal/tables"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/semaphore"
)

const (
	defaultMaxConcurrent = 4

	// minPairObservations is the floor below which a pairwise r has no
	// sampling distribution and the pair is flagged in the warnings
	minPairObservations = 3

	notableThreshold = 0.4
)

// Engine computes correlation matrices and regression fits over the
// continuous columns of a dataset. Pair computations fan out under a
// weighted semaphore.
type Engine struct {
	sem  *semaphore.Weighted
	dist *distributions.Distributions
}

// NewEngine creates an engine allowing maxConcurrent simultaneous pair
// computations. A non-positive limit falls back to the default.
func NewEngine(maxConcurrent int64) *Engine {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Engine{
		sem:  semaphore.NewWeighted(maxConcurrent),
		dist: distributions.NewDistributions(),
	}
}

// Correlation builds the symmetric Pearson matrix over the continuous
// columns among the requested variables. Non-continuous selections are
// silently dropped; an empty request means every continuous column. Fewer
// than two usable variables yields a well-formed result explaining the
// shortfall, not an error. Each pair uses the rows where both values are
// numeric, paired by row index.
func (e *Engine) Correlation(ctx context.Context, ds *dataset.Dataset, variables []string) (*domainStats.AnalysisResult, error) {
	if ds == nil || ds.Table == nil {
		return nil, errors.ValidationError("no dataset loaded")
	}

	start := time.Now()
	selected := e.continuousSelection(ds, variables)
	result := newResult(domainStats.AnalysisCorrelation)

	if len(selected) < 2 {
		explainShortfall(result, fmt.Sprintf(
			"Correlation requires at least two continuous variables; the selection contains %d.", len(selected)))
		return result, nil
	}

	k := len(selected)
	type pairIndex struct{ i, j int }
	var jobs []pairIndex
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			jobs = append(jobs, pairIndex{i, j})
		}
	}

	rs := make([]float64, len(jobs))
	ns := make([]int, len(jobs))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for idx, job := range jobs {
		wg.Add(1)
		go func(idx int, job pairIndex) {
			defer wg.Done()

			if err := e.sem.Acquire(ctx, 1); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			defer e.sem.Release(1)

			xs, ys := pairedValues(ds.Table, selected[job.i], selected[job.j])
			rs[idx] = pearson(xs, ys)
			ns[idx] = len(xs)
		}(idx, job)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, errors.Wrap(firstErr, "correlation computation interrupted")
	}

	matrix := make([][]float64, k)
	for i := range matrix {
		matrix[i] = make([]float64, k)
		matrix[i][i] = 1
	}

	pairs := make([]domainStats.CorrelationPair, len(jobs))
	for idx, job := range jobs {
		r, n := rs[idx], ns[idx]
		matrix[job.i][job.j] = r
		matrix[job.j][job.i] = r
		pairs[idx] = domainStats.CorrelationPair{
			VarA:      selected[job.i],
			VarB:      selected[job.j],
			R:         r,
			N:         n,
			PValue:    e.dist.CorrelationPValue(r, n),
			Strength:  domainStats.StrengthOf(r),
			Direction: domainStats.DirectionOf(r),
		}
		if n < minPairObservations {
			result.Warnings = append(result.Warnings, fmt.Sprintf(
				"only %d complete paired observations for %s and %s", n, selected[job.i], selected[job.j]))
		}
	}

	notable := make([]domainStats.CorrelationPair, 0)
	for _, p := range pairs {
		if math.Abs(p.R) > notableThreshold {
			notable = append(notable, p)
		}
	}
	sort.SliceStable(notable, func(i, j int) bool {
		ai, aj := math.Abs(notable[i].R), math.Abs(notable[j].R)
		if ai == aj {
			return notable[i].VarA+notable[i].VarB < notable[j].VarA+notable[j].VarB
		}
		return ai > aj
	})

	result.Correlation = &domainStats.CorrelationMatrix{
		Variables: selected,
		Matrix:    matrix,
		Pairs:     pairs,
		Notable:   notable,
		Rendered:  renderMatrix(selected, matrix),
	}
	result.Summary = fmt.Sprintf("Correlation matrix for %d continuous variables over %d rows", k, ds.RowCount)
	result.Interpretation = interpretPairs(pairs)
	result.APA = correlationAPA(pairs[0])

	log.Printf("[Bivariate] Correlation across %d variables (%d pairs) in %dms",
		k, len(pairs), time.Since(start).Milliseconds())

	return result, nil
}

// continuousSelection filters the requested variables down to distinct
// continuous columns. An empty request selects every continuous column.
func (e *Engine) continuousSelection(ds *dataset.Dataset, variables []string) []string {
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

// pairedValues collects the rows where both columns hold numeric values,
// pairing by original row index. A row missing either side is dropped
// from both series.
func pairedValues(table *dataset.Table, a, b string) (xs, ys []float64) {
	for _, row := range table.Rows {
		x, okX := row.Value(a).Numeric()
		y, okY := row.Value(b).Numeric()
		if okX && okY {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	return xs, ys
}

// pearson wraps the library coefficient with hygiene: too-small or
// zero-variance input reports 0, and rounding never pushes |r| past 1.
func pearson(xs, ys []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	r, err := stats.Pearson(xs, ys)
	if err != nil || math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}

func newResult(t domainStats.AnalysisType) *domainStats.AnalysisResult {
	return &domainStats.AnalysisResult{
		ID:          core.AnalysisID(core.NewID()),
		Type:        t,
		GeneratedAt: core.Now(),
	}
}

// explainShortfall fills a result for the insufficient-variables case so
// callers always receive a complete, non-error payload.
func explainShortfall(result *domainStats.AnalysisResult, reason string) {
	result.Summary = "Insufficient variables for analysis"
	result.Interpretation = reason +
		" Choose additional continuous variables and run the analysis again."
	result.Warnings = append(result.Warnings, reason)
}

// renderMatrix produces the fixed-width text form of the matrix, variable
// labels down the side and across the top.
func renderMatrix(variables []string, matrix [][]float64) string {
	labelW := 0
	for _, v := range variables {
		if len(v) > labelW {
			labelW = len(v)
		}
	}
	cellW := labelW
	if cellW < 8 {
		cellW = 8
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", labelW))
	for _, v := range variables {
		fmt.Fprintf(&b, " %*s", cellW, v)
	}
	b.WriteByte('\n')
	for i, v := range variables {
		fmt.Fprintf(&b, "%-*s", labelW, v)
		for j := range variables {
			fmt.Fprintf(&b, " %*.3f", cellW, matrix[i][j])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// interpretPairs writes one sentence per unique pair
func interpretPairs(pairs []domainStats.CorrelationPair) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Examined %d variable pair(s).", len(pairs))
	for _, p := range pairs {
		if p.Direction == domainStats.DirectionNone {
			fmt.Fprintf(&b, " %s and %s show no linear relationship (r = %s, %s).",
				p.VarA, p.VarB, tables.FormatR(p.R), tables.FormatP(p.PValue))
			continue
		}
		fmt.Fprintf(&b, " %s and %s show a %s %s relationship (r = %s, %s).",
			p.VarA, p.VarB, p.Strength, p.Direction, tables.FormatR(p.R), tables.FormatP(p.PValue))
	}
	return b.String()
}

// correlationAPA reports the first pair with df = n-2
func correlationAPA(p domainStats.CorrelationPair) string {
	df := p.N - 2
	if df < 0 {
		df = 0
	}
	return fmt.Sprintf("r(%d) = %s, %s", df, tables.FormatR(p.R), tables.FormatP(p.PValue))
}
