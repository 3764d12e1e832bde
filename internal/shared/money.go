package shared

import "math"

// Round2 rounds a monetary amount to 2 decimal places. All derived amounts
// (HPP, line subtotals, report aggregates) pass through this so repeated
// float arithmetic never drifts beyond currency rounding.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
