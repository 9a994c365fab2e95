// Package calc provides download progress arithmetic.
package calc

import (
	"math"
	"time"
)

// Fraction returns downloaded/total in the range the caller provides.
// The second value is false when total is zero or negative, i.e. the size is unknown.
func Fraction(downloaded, total int64) (float64, bool) {
	if total <= 0 {
		return 0, false
	}

	return float64(downloaded) / float64(total), true
}

// Percent converts a fraction to a whole percentage.
func Percent(fraction float64) int {
	return int(math.Round(fraction * 100))
}

// Throughput returns bytes per second over elapsed. Zero or negative elapsed yields 0.
func Throughput(downloaded int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}

	return float64(downloaded) / elapsed.Seconds()
}

// ETA estimates the remaining time from the average throughput so far.
func ETA(downloaded, total int64, elapsed time.Duration) time.Duration {
	if total <= 0 || downloaded <= 0 || elapsed <= 0 {
		return 0
	}

	return time.Duration(float64(elapsed) * (float64(total)/float64(downloaded) - 1))
}
