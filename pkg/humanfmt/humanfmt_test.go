package humanfmt_test

import (
	"encoding/json"
	"math"
	"testing"

	"tubefetch/pkg/humanfmt"
	"tubefetch/pkg/ptr"
)

func TestDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"zero", 0, "0초"},
		{"seconds only", 59, "59초"},
		{"minutes and seconds", 125, "2분 5초"},
		{"exact minute", 60, "1분 0초"},
		{"one of each", 3661, "1시간 1분 1초"},
		{"hours with zero minutes", 7205, "2시간 0분 5초"},
		{"float truncated", 125.9, "2분 5초"},
		{"json number", json.Number("3661"), "1시간 1분 1초"},
		{"pointer", ptr.Of(61.0), "1분 1초"},
		{"negative", -1, humanfmt.Unknown},
		{"nil", nil, humanfmt.Unknown},
		{"nil pointer", (*float64)(nil), humanfmt.Unknown},
		{"string", "3661", humanfmt.Unknown},
		{"NaN", math.NaN(), humanfmt.Unknown},
		{"bad json number", json.Number("abc"), humanfmt.Unknown},
		{"past max int64", 3.6e19, "10000000000000000시간 0분 0초"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := humanfmt.Duration(tc.in); got != tc.want {
				t.Errorf("Duration(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestViewCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"zero", 0, "0"},
		{"below thousand", 999, "999"},
		{"thousand", 1000, "1.0K"},
		{"thousands", 12_345, "12.3K"},
		{"million", 1_500_000, "1.5M"},
		{"billion", 2_340_000_000, "2.3B"},
		{"float input", 1500.0, "1.5K"},
		{"negative", -5, humanfmt.Unknown},
		{"bool", true, humanfmt.Unknown},
		{"nil", nil, humanfmt.Unknown},
		{"past max int64", 1e19, "10000000000.0B"},
		{"max uint64", uint64(math.MaxUint64), "18446744073.7B"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := humanfmt.ViewCount(tc.in); got != tc.want {
				t.Errorf("ViewCount(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestByteSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"zero", 0, "0 B"},
		{"bytes", 512, "512.00 B"},
		{"one kilobyte", 1024, "1.00 KB"},
		{"one and a half kilobytes", 1536, "1.50 KB"},
		{"megabytes", 5 * 1024 * 1024, "5.00 MB"},
		{"gigabytes", int64(3) << 30, "3.00 GB"},
		{"beyond petabytes stays in PB", math.Pow(1024, 6), "1024.00 PB"},
		{"negative", -1, "0 B"},
		{"string", "1024", "0 B"},
		{"nil", nil, "0 B"},
		{"inf", math.Inf(1), "0 B"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := humanfmt.ByteSize(tc.in); got != tc.want {
				t.Errorf("ByteSize(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
