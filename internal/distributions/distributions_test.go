package distributions

import (
	"math"
	"testing"
)

// Expected values below come from standard statistical tables.

func within(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %v, want %v (tol %v)", label, got, want, tol)
	}
}

func TestTTestPValue(t *testing.T) {
	d := NewDistributions()

	// t = 2.228 on 10 df sits exactly at the two-tailed .05 boundary
	within(t, "p(t=2.228, df=10)", d.TTestPValue(2.228, 10), 0.05, 1e-3)
	within(t, "p(t=-2.228, df=10)", d.TTestPValue(-2.228, 10), 0.05, 1e-3)
	within(t, "p(t=0, df=10)", d.TTestPValue(0, 10), 1.0, 1e-9)

	if got := d.TTestPValue(5, 0); got != 1.0 {
		t.Errorf("df=0 should return 1, got %v", got)
	}
}

func TestCorrelationPValue(t *testing.T) {
	d := NewDistributions()

	// r = .632 with n = 10 is the classic .05 critical value
	within(t, "p(r=.632, n=10)", d.CorrelationPValue(0.632, 10), 0.05, 2e-3)

	if got := d.CorrelationPValue(1.0, 50); got != 0.0 {
		t.Errorf("perfect correlation should be p=0, got %v", got)
	}
	if got := d.CorrelationPValue(-1.0, 50); got != 0.0 {
		t.Errorf("perfect negative correlation should be p=0, got %v", got)
	}
	if got := d.CorrelationPValue(0.9, 2); got != 1.0 {
		t.Errorf("n<3 has no sampling distribution, want p=1, got %v", got)
	}
}

func TestFTestPValue(t *testing.T) {
	d := NewDistributions()

	// F(1,10) critical value at .05 is 4.965
	within(t, "p(F=4.965, 1, 10)", d.FTestPValue(4.965, 1, 10), 0.05, 1e-3)

	if got := d.FTestPValue(math.Inf(1), 1, 10); got != 0.0 {
		t.Errorf("infinite F should be p=0, got %v", got)
	}
	if got := d.FTestPValue(3.0, 0, 10); got != 1.0 {
		t.Errorf("invalid df should return 1, got %v", got)
	}
}

func TestChiSquarePValue(t *testing.T) {
	d := NewDistributions()

	// Chi-square critical values at .05: 3.841 (df=1), 5.991 (df=2)
	within(t, "p(x2=3.841, df=1)", d.ChiSquarePValue(3.841, 1), 0.05, 1e-3)
	within(t, "p(x2=5.991, df=2)", d.ChiSquarePValue(5.991, 2), 0.05, 1e-3)

	if got := d.ChiSquarePValue(-1, 2); got != 1.0 {
		t.Errorf("negative statistic should return 1, got %v", got)
	}
}

func TestNormalHelpers(t *testing.T) {
	d := NewDistributions()

	within(t, "CDF(1.645)", d.NormalCDF(1.645), 0.95, 1e-3)
	within(t, "CDF(0)", d.NormalCDF(0), 0.5, 1e-9)
	within(t, "Quantile(.975)", d.NormalQuantile(0.975), 1.95996, 1e-4)
}

func TestTCritical(t *testing.T) {
	d := NewDistributions()

	within(t, "t crit df=10 95pct", d.TCritical(10, 0.95), 2.228, 1e-3)
	// Out-of-range confidence falls back to 95 percent
	within(t, "t crit fallback", d.TCritical(10, 1.5), 2.228, 1e-3)
}

func TestCohenD(t *testing.T) {
	d := NewDistributions()

	// Equal group sizes and SDs: d = (m1-m2)/sd
	within(t, "d equal sds", d.CohenD(10, 8, 2, 2, 30, 30), 1.0, 1e-9)
	if got := d.CohenD(10, 8, 0, 0, 30, 30); got != 0 {
		t.Errorf("zero pooled SD should give d=0, got %v", got)
	}

	g := d.HedgesG(1.0, 60)
	if g >= 1.0 || g < 0.98 {
		t.Errorf("Hedges g correction for n=60 should shrink d slightly, got %v", g)
	}
}
