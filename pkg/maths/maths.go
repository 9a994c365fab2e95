// Package maths holds numeric conversions for loosely typed yt-dlp values.
package maths

import (
	"math"
)

// RoundFloat64ToInt rounds v to the nearest int. NaN and infinities become 0.
func RoundFloat64ToInt(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}

	return int(math.Round(v))
}

// OptionalInt rounds *v, keeping nil as nil. NaN and infinities become nil.
func OptionalInt(v *float64) *int {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}

	n := int(math.Round(*v))

	return &n
}

// OptionalInt64 is OptionalInt for 64-bit values such as byte sizes and view counts.
func OptionalInt64(v *float64) *int64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}

	n := int64(math.Round(*v))

	return &n
}
