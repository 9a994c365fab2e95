package errs_test

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"tubefetch/internal/errs"
)

func TestPhaseError(t *testing.T) {
	cause := fmt.Errorf("stat output: %w", fs.ErrNotExist)
	err := errs.NewPhaseError(errs.ErrFileNotProduced, "", cause)

	if !errors.Is(err, errs.ErrFileNotProduced) {
		t.Error("expected errors.Is to match the kind")
	}

	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("expected errors.Is to match the cause")
	}

	if got, want := err.Error(), "file not produced: stat output: file does not exist"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := fmt.Errorf("service: %w", err)

	var pe *errs.PhaseError
	if !errors.As(wrapped, &pe) || pe.Kind != errs.ErrFileNotProduced {
		t.Errorf("errors.As did not recover the phase error: %v", wrapped)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"extraction", errs.NewPhaseError(errs.ErrExtraction, "private video", nil), errs.ErrExtraction},
		{"download wrapped", fmt.Errorf("x: %w", errs.NewPhaseError(errs.ErrDownload, "", nil)), errs.ErrDownload},
		{"file not produced", errs.ErrFileNotProduced, errs.ErrFileNotProduced},
		{"plain error", errors.New("boom"), errs.ErrUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := errs.KindOf(tc.err); got != tc.want {
				t.Errorf("KindOf() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHintOf(t *testing.T) {
	pe := errs.NewPhaseError(errs.ErrDownload, "ffmpeg not found", nil)
	pe.Hint = errs.TranscoderHint

	if got := errs.HintOf(fmt.Errorf("wrap: %w", pe)); got != errs.TranscoderHint {
		t.Errorf("HintOf() = %q", got)
	}

	if got := errs.HintOf(errors.New("other")); got != "" {
		t.Errorf("HintOf() = %q, want empty", got)
	}
}

func TestRecovered(t *testing.T) {
	err := errs.Recovered("nil map")

	if !errors.Is(err, errs.ErrUnknown) {
		t.Errorf("Recovered() kind = %v, want ErrUnknown", err.Kind)
	}

	if err.Message != "panic: nil map" {
		t.Errorf("Recovered() message = %q", err.Message)
	}
}
