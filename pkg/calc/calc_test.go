package calc

import (
	"testing"
	"time"
)

func TestFraction(t *testing.T) {
	tests := []struct {
		name              string
		downloaded, total int64
		want              float64
		wantOK            bool
	}{
		{"total_zero", 10, 0, 0, false},         // unknown size
		{"total_negative", 10, -1, 0, false},    // unknown size
		{"zero_downloaded", 0, 100, 0, true},    // nothing yet
		{"half", 50, 100, 0.5, true},            // exact half
		{"complete", 100, 100, 1, true},         // done
		{"over_total", 150, 100, 1.5, true},     // estimate was low, not clamped
		{"quarter", 256, 1024, 0.25, true},      // binary sizes
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := Fraction(tc.downloaded, tc.total)
			if ok != tc.wantOK || got != tc.want {
				t.Fatalf("Fraction(%d, %d) = %v, %v; want %v, %v", tc.downloaded, tc.total, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{1.0 / 3, 33},
		{2.0 / 3, 67},
		{1, 100},
	}

	for _, tc := range tests {
		if got := Percent(tc.in); got != tc.want {
			t.Errorf("Percent(%v) = %d; want %d", tc.in, got, tc.want)
		}
	}
}

func TestThroughput(t *testing.T) {
	tests := []struct {
		name       string
		downloaded int64
		elapsed    time.Duration
		want       float64
	}{
		{"zero_elapsed", 1024, 0, 0},
		{"negative_elapsed", 1024, -time.Second, 0},
		{"one_second", 1024, time.Second, 1024},
		{"half_second", 1024, 500 * time.Millisecond, 2048},
		{"nothing_downloaded", 0, time.Second, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := Throughput(tc.downloaded, tc.elapsed); got != tc.want {
				t.Fatalf("Throughput(%d, %v) = %v; want %v", tc.downloaded, tc.elapsed, got, tc.want)
			}
		})
	}
}

func TestETA(t *testing.T) {
	tests := []struct {
		name              string
		downloaded, total int64
		elapsed           time.Duration
		want              time.Duration
	}{
		{"total_zero", 10, 0, time.Second, 0},
		{"nothing_downloaded", 0, 100, time.Second, 0},
		{"half", 50, 100, 2 * time.Second, 2 * time.Second},
		{"quarter", 25, 100, 4 * time.Second, 12 * time.Second},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := ETA(tc.downloaded, tc.total, tc.elapsed); got != tc.want {
				t.Fatalf("ETA(%d, %d, %v) = %v; want %v", tc.downloaded, tc.total, tc.elapsed, got, tc.want)
			}
		})
	}
}
