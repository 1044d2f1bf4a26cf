// Package describe computes per-column descriptive statistics with a
// bounded worker pool.
package describe

import (
	"context"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"datalab/domain/core"
	"datalab/domain/dataset"
	domainStats "datalab/domain/stats"
	"datalab/internal/errors"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/semaphore"
)

const (
	defaultMaxConcurrent = 4

	// Percentile interpolation needs four points before the lower quartile exists
	minQuartileValues = 4

	skewedThreshold = 1.0
	sparseMinCount  = 5
)

// Engine fans per-column summary work out across a weighted semaphore so a
// wide dataset cannot monopolize the process.
type Engine struct {
	sem *semaphore.Weighted
}

// NewEngine creates an engine allowing maxConcurrent simultaneous column
// computations. A non-positive limit falls back to the default.
func NewEngine(maxConcurrent int64) *Engine {
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	return &Engine{sem: semaphore.NewWeighted(maxConcurrent)}
}

// Describe summarizes every column of the dataset: continuous columns get
// moment and order statistics, categorical and binary columns get frequency
// tables. Results are keyed by column name with dataset order preserved in
// Columns, so repeated calls over the same table agree exactly.
func (e *Engine) Describe(ctx context.Context, ds *dataset.Dataset) (*domainStats.DescriptiveStats, error) {
	if ds == nil || ds.Table == nil {
		return nil, errors.ValidationError("no dataset loaded")
	}

	start := time.Now()
	table := ds.Table

	result := &domainStats.DescriptiveStats{
		DatasetID:   ds.ID,
		RowCount:    table.RowCount(),
		Columns:     append([]string(nil), table.Columns...),
		Continuous:  make(map[string]*domainStats.ContinuousStats),
		Categorical: make(map[string]*domainStats.CategoricalStats),
		GeneratedAt: core.Now(),
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)

	for _, name := range table.Columns {
		wg.Add(1)
		go func(name string, colType dataset.ColumnType) {
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

			if colType == dataset.TypeContinuous {
				summary := e.describeContinuous(table, name)
				mu.Lock()
				result.Continuous[name] = summary
				mu.Unlock()
				return
			}

			summary := e.describeCategorical(table, name)
			mu.Lock()
			result.Categorical[name] = summary
			mu.Unlock()
		}(name, ds.Types[name])
	}
	wg.Wait()

	if firstErr != nil {
		return nil, errors.Wrap(firstErr, "descriptive computation interrupted")
	}

	log.Printf("[Describe] Summarized %d columns (%d continuous, %d categorical) in %dms",
		len(result.Columns), len(result.Continuous), len(result.Categorical),
		time.Since(start).Milliseconds())

	return result, nil
}

func (e *Engine) describeContinuous(table *dataset.Table, name string) *domainStats.ContinuousStats {
	values := table.NumericColumn(name)
	n := len(values)

	out := &domainStats.ContinuousStats{
		Column:  name,
		N:       n,
		Missing: table.RowCount() - n,
	}
	if n == 0 {
		return out
	}

	out.Mean, _ = stats.Mean(values)
	out.Min, _ = stats.Min(values)
	out.Max, _ = stats.Max(values)
	out.Median, _ = stats.Median(values)

	if n >= 2 {
		out.Std, _ = stats.StandardDeviationSample(values)
	}

	if n >= minQuartileValues {
		out.Q1, _ = stats.Percentile(values, 25)
		out.Q3, _ = stats.Percentile(values, 75)
	} else {
		// Too few points to interpolate quartiles; the extremes stand in
		out.Q1, out.Q3 = out.Min, out.Max
	}
	out.IQR = out.Q3 - out.Q1

	out.Skewness = skewness(values, out.Mean, out.Std)
	out.Kurtosis = kurtosis(values, out.Mean, out.Std)
	out.HighlySkewed = math.Abs(out.Skewness) > skewedThreshold
	out.ZeroVariance = n >= 2 && out.Std == 0

	return out
}

func (e *Engine) describeCategorical(table *dataset.Table, name string) *domainStats.CategoricalStats {
	counts := make(map[string]int)
	var order []string
	n := 0

	for _, row := range table.Rows {
		v := row.Value(name)
		if v.IsMissing() {
			continue
		}
		n++
		key := v.String()
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}

	out := &domainStats.CategoricalStats{
		Column:      name,
		N:           n,
		Missing:     table.RowCount() - n,
		UniqueCount: len(counts),
	}
	if n == 0 {
		return out
	}

	categories := make([]domainStats.CategoryCount, 0, len(order))
	for _, key := range order {
		categories = append(categories, domainStats.CategoryCount{
			Value:      key,
			Count:      counts[key],
			Percentage: float64(counts[key]) / float64(n) * 100,
		})
	}
	// Stable sort keeps first-appearance order among tied counts
	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].Count > categories[j].Count
	})

	out.Categories = categories
	out.Mode = categories[0].Value
	for _, c := range categories {
		if c.Count < sparseMinCount {
			out.Sparse = append(out.Sparse, c.Value)
		}
	}

	return out
}

// skewness is the adjusted Fisher-Pearson coefficient,
// (n/((n-1)(n-2))) * Σ((x-mean)/std)³ over the sample standard deviation.
// Defined as zero when the spread is zero or fewer than three values remain.
func skewness(values []float64, mean, std float64) float64 {
	if len(values) < 3 || std == 0 {
		return 0
	}
	n := float64(len(values))
	var sum float64
	for _, x := range values {
		z := (x - mean) / std
		sum += z * z * z
	}
	return sum * n / ((n - 1) * (n - 2))
}

// kurtosis is the excess kurtosis Σ((x-mean)/std)⁴/n − 3, near zero for a
// normal distribution. Zero when undefined.
func kurtosis(values []float64, mean, std float64) float64 {
	if len(values) < 4 || std == 0 {
		return 0
	}
	n := float64(len(values))
	var sum float64
	for _, x := range values {
		z := (x - mean) / std
		sum += z * z * z * z
	}
	return sum/n - 3
}
