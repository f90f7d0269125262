// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/commission-calculator/pkg/constants"
)

// IsPositive reports whether a value is strictly greater than zero. NaN is not positive.
func IsPositive(val float64) bool {
	return val > 0
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// ApplyPercentage applies a percentage to a value.
// The multiplication happens before the division so that whole-number inputs
// such as 85000 at 15% produce exact results.
func ApplyPercentage(value, percentage float64) float64 {
	return value * percentage / constants.PercentageMultiplier
}

// Sum adds the values in order.
func Sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
