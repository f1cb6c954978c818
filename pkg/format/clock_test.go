package format

import "testing"

func TestClock(t *testing.T) {
	tests := []struct {
		seconds  int
		expected string
	}{
		{seconds: 0, expected: "0:00:00"},
		{seconds: 59, expected: "0:00:59"},
		{seconds: 60, expected: "0:01:00"},
		{seconds: 3725, expected: "1:02:05"},
		{seconds: 10800, expected: "3:00:00"},
		{seconds: 360000, expected: "100:00:00"},
		{seconds: -90, expected: "-0:01:30"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := Clock(tt.seconds); got != tt.expected {
				t.Errorf("Clock(%d) = %s, expected %s", tt.seconds, got, tt.expected)
			}
		})
	}
}
