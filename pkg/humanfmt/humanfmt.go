// Package humanfmt renders raw durations, view counts and byte sizes as short human-readable strings.
//
// All functions accept any value because yt-dlp JSON numbers arrive as ints, floats,
// json.Number, pointers or null. Invalid input never panics; it yields a fallback string.
package humanfmt

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

const (
	// Unknown is returned by Duration and ViewCount for negative or non-numeric input.
	Unknown = "unknown"
	// ZeroBytes is returned by ByteSize for zero, negative or non-numeric input.
	ZeroBytes = "0 B"
)

const (
	secondsPerHour   = 3600
	secondsPerMinute = 60

	thousand = 1_000
	million  = 1_000_000
	billion  = 1_000_000_000

	kibi = 1024
)

var sizeUnits = [...]string{"B", "KB", "MB", "GB", "TB", "PB"}

// Duration renders seconds as "H시간 M분 S초", dropping leading zero units.
func Duration(v any) string {
	f, ok := Number(v)
	if !ok || f < 0 {
		return Unknown
	}

	// float math keeps values past MaxInt64 non-negative
	total := math.Floor(f)
	hours := math.Floor(total / secondsPerHour)
	minutes := math.Floor(math.Mod(total, secondsPerHour) / secondsPerMinute)
	seconds := math.Mod(total, secondsPerMinute)

	switch {
	case hours > 0:
		return fmt.Sprintf("%.0f시간 %.0f분 %.0f초", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%.0f분 %.0f초", minutes, seconds)
	default:
		return fmt.Sprintf("%.0f초", seconds)
	}
}

// ViewCount renders a view counter with a B/M/K suffix and one decimal place.
// Counts below one thousand are printed as plain integers.
func ViewCount(v any) string {
	f, ok := Number(v)
	if !ok || f < 0 {
		return Unknown
	}

	views := math.Floor(f)

	switch {
	case views >= billion:
		return fmt.Sprintf("%.1fB", views/billion)
	case views >= million:
		return fmt.Sprintf("%.1fM", views/million)
	case views >= thousand:
		return fmt.Sprintf("%.1fK", views/thousand)
	default:
		return strconv.FormatFloat(views, 'f', 0, 64)
	}
}

// ByteSize renders a byte count using binary multiples and two decimals, e.g. "1.00 KB".
func ByteSize(v any) string {
	size, ok := Number(v)
	if !ok || size <= 0 {
		return ZeroBytes
	}

	unit := 0
	for size >= kibi && unit < len(sizeUnits)-1 {
		size /= kibi
		unit++
	}

	return fmt.Sprintf("%.2f %s", size, sizeUnits[unit])
}

// Number converts v to float64. It reports false for nil, non-numeric values, NaN and infinities.
// Pointers are dereferenced.
func Number(v any) (float64, bool) {
	var f float64

	switch n := v.(type) {
	case nil:
		return 0, false
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}

		f = parsed
	default:
		rv := reflect.ValueOf(v)
		for rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return 0, false
			}

			rv = rv.Elem()
		}

		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			f = float64(rv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			f = float64(rv.Uint())
		case reflect.Float32, reflect.Float64:
			f = rv.Float()
		default:
			return 0, false
		}
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return f, true
}
