// Package tables renders APA style statistics fragments and markdown
// tables for reports and the dashboard.
package tables

import (
	"fmt"
	"math"
	"strings"
)

// Dash is the placeholder for cells whose statistic is undefined
const Dash = "—"

// FormatP renders a p-value APA style: three decimals, leading zero
// stripped, floored at "p < .001".
func FormatP(p float64) string {
	if math.IsNaN(p) {
		return "p = " + Dash
	}
	if p < 0.001 {
		return "p < .001"
	}
	return "p = " + StripZero(fmt.Sprintf("%.3f", p))
}

// FormatR renders a bounded coefficient (r, R², eta²) APA style with two
// decimals and no leading zero
func FormatR(r float64) string {
	return StripZero(fmt.Sprintf("%.2f", r))
}

// FormatStat renders an unbounded test statistic with two decimals
func FormatStat(x float64) string {
	if math.IsNaN(x) {
		return Dash
	}
	return fmt.Sprintf("%.2f", x)
}

// StripZero removes the leading zero from a formatted value whose
// magnitude cannot exceed one, per APA style (".87", "-.23").
func StripZero(s string) string {
	if strings.HasPrefix(s, "0.") {
		return s[1:]
	}
	if strings.HasPrefix(s, "-0.") {
		return "-" + s[2:]
	}
	return s
}
