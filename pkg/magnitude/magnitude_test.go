package magnitude

import (
	"math"
	"strings"
	"testing"
)

func TestNormalizeSuffixes(t *testing.T) {
	multipliers := map[string]float64{
		"k": 1e3,
		"m": 1e6,
		"b": 1e9,
		"t": 1e12,
	}
	prefixes := []float64{0, 1, 2.5, 10, 123.456}

	for suffix, multiplier := range multipliers {
		for _, n := range prefixes {
			for _, s := range []string{suffix, strings.ToUpper(suffix)} {
				input := formatNumber(n) + s
				got := Normalize(input)
				want := n * multiplier
				if math.Abs(got-want) > 1e-6*math.Max(1, want) {
					t.Errorf("Normalize(%q) = %v, expected %v", input, got, want)
				}
			}
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
	}{
		{"Empty string", "", 0},
		{"Letters only", "abc", 0},
		{"Plain integer", "42", 42},
		{"Plain decimal not truncated", "1.75", 1.75},
		{"Kilo suffix", "10k", 10000},
		{"Mega suffix uppercase", "2.5M", 2500000},
		{"Suffix after a space", "3 b", 3e9},
		{"Suffix not anchored to the end", "5k coins", 5000},
		{"k wins over m", "1mk", 1000},
		{"m wins over b", "2bm", 2e6},
		{"b wins over t", "3tb", 3e9},
		{"Trailing garbage without unit", "7xyz", 7},
		{"Leading whitespace", "  8k", 8000},
		{"Negative number", "-1.5k", -1500},
		{"Leading dot", ".5m", 500000},
		{"Exponent", "1e3", 1000},
		{"Dangling exponent", "2e", 2},
		{"Sign only", "-", 0},
		{"Overflowing exponent", "1e999", 0},
		{"Negative overflow", "-1e999", 0},
		{"Overflow after unit", "1e308k", 0},
		{"Huge but finite", "1e300k", 1e303},
		{"Underflow rounds to zero", "1e-999", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Normalize(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected float64
	}{
		{"float64 unchanged", 12.5, 12.5},
		{"int unchanged", 7, 7},
		{"int64 unchanged", int64(9), 9},
		{"string normalized", "1.5k", 1500},
		{"bad string", "abc", 0},
		{"unsupported type", struct{}{}, 0},
		{"nil", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeValue(tt.input); got != tt.expected {
				t.Errorf("NormalizeValue(%v) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseReportsMissingPrefix(t *testing.T) {
	if _, ok := Parse("Tower"); ok {
		t.Errorf("expected Parse to reject a string without numeric prefix")
	}
	if _, ok := Parse(""); ok {
		t.Errorf("expected Parse to reject an empty string")
	}
	for _, input := range []string{"1e999", "1e308t", "-9e307m"} {
		if value, ok := Parse(input); ok || math.IsInf(value, 0) {
			t.Errorf("Parse(%q) = %v, %v; expected 0, false", input, value, ok)
		}
	}
	value, ok := Parse("1.5k")
	if !ok || value != 1500 {
		t.Errorf("Parse(\"1.5k\") = %v, %v; expected 1500, true", value, ok)
	}
}

func TestPlain(t *testing.T) {
	tests := []struct {
		input string
		value float64
		ok    bool
	}{
		{"12", 12, true},
		{" 1.5 ", 1.5, true},
		{"1e3", 1000, true},
		{"-3", -3, true},
		{"1e999", 0, false},
		{"", 0, false},
		{"1.5k", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"0x10", 0, false},
		{"1,000", 0, false},
	}

	for _, tt := range tests {
		value, ok := Plain(tt.input)
		if ok != tt.ok || value != tt.value {
			t.Errorf("Plain(%q) = %v, %v; expected %v, %v", tt.input, value, ok, tt.value, tt.ok)
		}
	}
}

func TestHasUnit(t *testing.T) {
	if !HasUnit("10K") {
		t.Errorf("expected 10K to carry a unit")
	}
	if HasUnit("10") {
		t.Errorf("expected 10 to carry no unit")
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{0, "0"},
		{999, "999"},
		{12.346, "12.35"},
		{1500, "1.5k"},
		{1000000, "1m"},
		{1234567, "1.23m"},
		{2.5e9, "2.5b"},
		{3e12, "3t"},
		{-1500, "-1.5k"},
	}

	for _, tt := range tests {
		if got := Format(tt.input); got != tt.expected {
			t.Errorf("Format(%v) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for _, value := range []float64{1500, 2500000, 7e9, 4.25e12} {
		if got := Normalize(Format(value)); math.Abs(got-value) > 1e-6*value {
			t.Errorf("Normalize(Format(%v)) = %v", value, got)
		}
	}
}
