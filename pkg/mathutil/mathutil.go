// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/topgirl-optimizer/pkg/constants"
)

// Round rounds a value to two decimals for display.
func Round(val float64) float64 {
	return math.Round(val*constants.DecimalPrecision) / constants.DecimalPrecision
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// CoefficientsEqual compares two income coefficients, absorbing the drift
// left by repeated 0.1 increments.
func CoefficientsEqual(a, b float64) bool {
	return WithinTolerance(a, b, constants.CoefficientTolerance)
}

// IsWhole reports whether val has no fractional part and fits in an int64.
func IsWhole(val float64) bool {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return false
	}
	return val == math.Trunc(val) && math.Abs(val) < math.MaxInt64
}
