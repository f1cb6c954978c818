// Package format renders values for human-readable output.
package format

import "fmt"

// Clock renders a number of seconds as H:MM:SS, e.g. 3725 as "1:02:05".
// Negative values render with a leading minus sign.
func Clock(seconds int) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	return fmt.Sprintf("%s%d:%02d:%02d", sign, seconds/3600, seconds%3600/60, seconds%60)
}
