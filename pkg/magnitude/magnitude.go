// Package magnitude converts user-typed quantities such as "2.5m" or "10K"
// into plain numbers and back into compact display strings.
package magnitude

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/iwvelando/topgirl-optimizer/pkg/constants"
	"github.com/iwvelando/topgirl-optimizer/pkg/mathutil"
)

// unit pairs a suffix letter with its multiplier. The order is the scan
// priority: the first letter found anywhere in the input wins.
type unit struct {
	letter     string
	multiplier float64
}

var units = []unit{
	{"k", constants.Thousand},
	{"m", constants.Million},
	{"b", constants.Billion},
	{"t", constants.Trillion},
}

// Normalize returns the numeric value of a user-typed quantity. A value with
// no numeric prefix normalizes to 0.
func Normalize(input string) float64 {
	value, ok := Parse(input)
	if !ok {
		return 0
	}
	return value
}

// NormalizeValue returns numbers unchanged and normalizes strings.
// Anything else normalizes to 0.
func NormalizeValue(input interface{}) float64 {
	switch v := input.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case uint:
		return float64(v)
	case uint64:
		return float64(v)
	case string:
		return Normalize(v)
	default:
		return 0
	}
}

// Parse reads the leading decimal number of input and applies the multiplier
// of the first unit letter (k, m, b, t, in that priority) present anywhere in
// the string, case-insensitively. It reports false when input has no
// numeric prefix or the result does not fit in a float64.
func Parse(input string) (float64, bool) {
	num, ok := leadingFloat(input)
	if !ok {
		return 0, false
	}
	value := num * Multiplier(input)
	if math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// Multiplier returns the multiplier of the first unit letter found in input,
// or 1 when none is present.
func Multiplier(input string) float64 {
	lower := strings.ToLower(input)
	for _, u := range units {
		if strings.Contains(lower, u.letter) {
			return u.multiplier
		}
	}
	return 1
}

// HasUnit reports whether input contains any unit letter.
func HasUnit(input string) bool {
	return Multiplier(input) != 1
}

// Plain parses input as a plain decimal number with no letters besides an
// exponent. Surrounding spaces are ignored.
func Plain(input string) (float64, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return 0, false
	}
	for _, r := range trimmed {
		if unicode.IsLetter(r) && r != 'e' && r != 'E' {
			return 0, false
		}
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// Format renders value with the largest unit that keeps the mantissa at or
// above one, rounded to two decimals: 1500 becomes "1.5k".
func Format(value float64) string {
	abs := math.Abs(value)
	for i := len(units) - 1; i >= 0; i-- {
		if abs >= units[i].multiplier {
			return formatNumber(mathutil.Round(value/units[i].multiplier)) + units[i].letter
		}
	}
	return formatNumber(mathutil.Round(value))
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// leadingFloat parses the longest decimal-number prefix of s after leading
// whitespace: an optional sign, digits with an optional fraction, and an
// optional exponent. A prefix that overflows a float64 is unparseable.
func leadingFloat(s string) (float64, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0, false
	}
	end := i
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		expDigits := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			expDigits++
		}
		if expDigits > 0 {
			end = j
		}
	}
	value, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		// Underflow rounds to zero, which is still a number.
		if errors.Is(err, strconv.ErrRange) && !math.IsInf(value, 0) {
			return value, true
		}
		return 0, false
	}
	return value, true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
