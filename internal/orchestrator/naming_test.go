package orchestrator_test

import (
	"path/filepath"
	"strings"
	"testing"
	"unicode"

	"tubefetch/internal/entity"
	"tubefetch/internal/orchestrator"
)

func TestFormatExpression(t *testing.T) {
	t.Parallel()

	want := "bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a]/bestvideo[height<=720][ext=mp4]/best[height<=720][ext=mp4]/best[ext=mp4]/best"
	if got := orchestrator.FormatExpression(720); got != want {
		t.Errorf("FormatExpression(720) = %q, want %q", got, want)
	}

	if got := orchestrator.FormatExpression(1080); strings.Count(got, "height<=1080") != 3 || !strings.HasSuffix(got, "/best") {
		t.Errorf("FormatExpression(1080) = %q", got)
	}
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		title string
		want  string
	}{
		{"Test: Video!! 2024", "Test__Video___2024"},
		{"already_safe-name", "already_safe-name"},
		{"뮤직비디오 (MV)", "뮤직비디오__MV_"},
		{"a/b\\c", "a_b_c"},
		{"", "youtube_video"},
		{"   ", "youtube_video"},
		{strings.Repeat("x", 300), strings.Repeat("x", 100)},
	}

	for _, tc := range tests {
		got := orchestrator.Sanitize(tc.title)
		if got != tc.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tc.title, got, tc.want)
		}

		for _, r := range got {
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' {
				t.Errorf("Sanitize(%q) kept %q", tc.title, r)
			}
		}
	}
}

func TestOutputPath(t *testing.T) {
	t.Parallel()

	got := orchestrator.OutputPath(entity.DownloadRequest{
		Dir:        "/downloads",
		Title:      "Test: Video!! 2024",
		Resolution: entity.Resolution720p,
	})

	if want := filepath.Join("/downloads", "Test__Video___2024_720p.mp4"); got != want {
		t.Errorf("OutputPath() = %q, want %q", got, want)
	}
}
