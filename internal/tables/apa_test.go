package tables

import (
	"math"
	"testing"
)

func TestFormatP(t *testing.T) {
	cases := []struct {
		p    float64
		want string
	}{
		{math.NaN(), "p = —"},
		{0.0004, "p < .001"},
		{0.001, "p = .001"},
		{0.004, "p = .004"},
		{0.05, "p = .050"},
		{0.456, "p = .456"},
	}
	for _, c := range cases {
		if got := FormatP(c.p); got != c.want {
			t.Errorf("FormatP(%v) = %q, want %q", c.p, got, c.want)
		}
	}
}

func TestFormatR(t *testing.T) {
	cases := []struct {
		r    float64
		want string
	}{
		{0.87, ".87"},
		{-0.23, "-.23"},
		{1, "1.00"},
		{0, ".00"},
	}
	for _, c := range cases {
		if got := FormatR(c.r); got != c.want {
			t.Errorf("FormatR(%v) = %q, want %q", c.r, got, c.want)
		}
	}
}

func TestFormatStat(t *testing.T) {
	if got := FormatStat(4); got != "4.00" {
		t.Errorf("FormatStat(4) = %q", got)
	}
	if got := FormatStat(-2.5); got != "-2.50" {
		t.Errorf("FormatStat(-2.5) = %q", got)
	}
	if got := FormatStat(math.NaN()); got != Dash {
		t.Errorf("FormatStat(NaN) = %q, want dash", got)
	}
}

func TestStripZero(t *testing.T) {
	cases := []struct{ in, want string }{
		{"0.87", ".87"},
		{"-0.23", "-.23"},
		{"12.30", "12.30"},
		{"1.000", "1.000"},
	}
	for _, c := range cases {
		if got := StripZero(c.in); got != c.want {
			t.Errorf("StripZero(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
