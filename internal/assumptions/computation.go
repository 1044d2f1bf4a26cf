package assumptions

import (
	"math"

	"datalab/internal/distributions"

	"github.com/montanaflynn/stats"
)

// Levene tests equality of group variances using the center = mean variant.
// Returns the W statistic and its upper-tail p-value on (k-1, N-k) degrees
// of freedom. Degenerate inputs (fewer than two groups, no spread in the
// absolute deviations) fall back to W = 0, p = 1.
func Levene(groups [][]float64) (float64, float64) {
	k := len(groups)
	if k < 2 {
		return 0, 1
	}
	total := 0
	for _, g := range groups {
		if len(g) == 0 {
			return 0, 1
		}
		total += len(g)
	}
	if total <= k {
		return 0, 1
	}

	// Absolute deviations from each group's own mean
	z := make([][]float64, k)
	zMeans := make([]float64, k)
	var grand float64
	for i, g := range groups {
		m := meanOf(g)
		zi := make([]float64, len(g))
		for j, v := range g {
			zi[j] = math.Abs(v - m)
			grand += zi[j]
		}
		z[i] = zi
		zMeans[i] = meanOf(zi)
	}
	grand /= float64(total)

	var between, within float64
	for i := range z {
		d := zMeans[i] - grand
		between += float64(len(z[i])) * d * d
		for _, v := range z[i] {
			e := v - zMeans[i]
			within += e * e
		}
	}
	if within == 0 {
		return 0, 1
	}

	w := (float64(total-k) / float64(k-1)) * (between / within)
	dist := distributions.NewDistributions()
	return w, dist.FTestPValue(w, k-1, total-k)
}

// DurbinWatson measures first-order autocorrelation of residuals. Values
// near 2 indicate independence; the conventional reading flags below 1.5
// as positive and above 2.5 as negative autocorrelation.
func DurbinWatson(residuals []float64) float64 {
	if len(residuals) < 2 {
		return 0
	}
	var sumSq, sumDiff float64
	for i, e := range residuals {
		sumSq += e * e
		if i > 0 {
			d := e - residuals[i-1]
			sumDiff += d * d
		}
	}
	if sumSq == 0 {
		return 0
	}
	return sumDiff / sumSq
}

// rawMoments are the central moments the shape statistics derive from
type rawMoments struct {
	n    int
	mean float64
	m2   float64
	m3   float64
	m4   float64
}

func moments(values []float64) rawMoments {
	m := rawMoments{n: len(values)}
	if m.n == 0 {
		return m
	}
	m.mean = meanOf(values)
	fn := float64(m.n)
	for _, v := range values {
		d := v - m.mean
		m.m2 += d * d
		m.m3 += d * d * d
		m.m4 += d * d * d * d
	}
	m.m2 /= fn
	m.m3 /= fn
	m.m4 /= fn
	return m
}

// g1 is the moment coefficient of skewness
func (m rawMoments) g1() float64 {
	if m.m2 == 0 {
		return 0
	}
	return m.m3 / math.Pow(m.m2, 1.5)
}

// b2 is the moment coefficient of kurtosis (3 for a normal distribution)
func (m rawMoments) b2() float64 {
	if m.m2 == 0 {
		return 0
	}
	return m.m4 / (m.m2 * m.m2)
}

// adjustedSkewness is the bias-adjusted sample skewness, matching the
// definition the descriptive engine reports.
func adjustedSkewness(m rawMoments) float64 {
	if m.n < 3 || m.m2 == 0 {
		return 0
	}
	fn := float64(m.n)
	s := math.Sqrt(m.m2 * fn / (fn - 1))
	return (fn / ((fn - 1) * (fn - 2))) * (fn * m.m3 / (s * s * s))
}

// excessKurtosis is the moment excess kurtosis over the sample variance,
// matching the definition the descriptive engine reports.
func excessKurtosis(m rawMoments) float64 {
	if m.n < 4 || m.m2 == 0 {
		return 0
	}
	fn := float64(m.n)
	s2 := m.m2 * fn / (fn - 1)
	return m.m4/(s2*s2) - 3
}

// skewnessZ is the D'Agostino (1970) normalizing transform of the moment
// skewness statistic.
func skewnessZ(g1 float64, n int) float64 {
	fn := float64(n)
	y := g1 * math.Sqrt((fn+1)*(fn+3)/(6*(fn-2)))
	beta2 := 3 * (fn*fn + 27*fn - 70) * (fn + 1) * (fn + 3) /
		((fn - 2) * (fn + 5) * (fn + 7) * (fn + 9))
	w2 := -1 + math.Sqrt(2*(beta2-1))
	delta := 1 / math.Sqrt(0.5*math.Log(w2))
	alpha := math.Sqrt(2 / (w2 - 1))
	return delta * math.Asinh(y/alpha)
}

// kurtosisZ is the Anscombe-Glynn (1983) normalizing transform of the
// moment kurtosis statistic.
func kurtosisZ(b2 float64, n int) float64 {
	fn := float64(n)
	e := 3 * (fn - 1) / (fn + 1)
	varB2 := 24 * fn * (fn - 2) * (fn - 3) /
		((fn + 1) * (fn + 1) * (fn + 3) * (fn + 5))
	x := (b2 - e) / math.Sqrt(varB2)
	sqrtBeta1 := 6 * (fn*fn - 5*fn + 2) / ((fn + 7) * (fn + 9)) *
		math.Sqrt(6*(fn+3)*(fn+5)/(fn*(fn-2)*(fn-3)))
	a := 6 + 8/sqrtBeta1*(2/sqrtBeta1+math.Sqrt(1+4/(sqrtBeta1*sqrtBeta1)))
	denom := 1 + x*math.Sqrt(2/(a-4))
	// Cbrt keeps the sign when extreme kurtosis drives the denominator negative
	term2 := math.Cbrt((1 - 2/a) / denom)
	return (1 - 2/(9*a) - term2) / math.Sqrt(2/(9*a))
}

func pearsonOf(xs, ys []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	r, err := stats.Pearson(xs, ys)
	if err != nil || math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	if r > 1 {
		return 1
	}
	if r < -1 {
		return -1
	}
	return r
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
