package downloader_test

import (
	_ "embed"
	"testing"

	"tubefetch/internal/downloader"
)

//go:embed testdata/ytdlp_stdout_info.json
var ytdlpStdoutInfo string

//go:embed testdata/ytdlp_stdout_download.json
var ytdlpStdoutDownload string

//go:embed testdata/ytdlp_stdout_noise.json
var ytdlpStdoutNoise string

func TestParseStdout(t *testing.T) {
	tests := []struct {
		name         string
		stdout       string
		wantIDs      []string
		wantFilename string
	}{
		{
			name:    "single info line",
			stdout:  ytdlpStdoutInfo,
			wantIDs: []string{"dQw4w9WgXcQ"},
		},
		{
			name:         "json then filepath assigns filename",
			stdout:       ytdlpStdoutDownload,
			wantIDs:      []string{"dQw4w9WgXcQ"},
			wantFilename: "/downloads/Test_Video___2024_1080p.mp4",
		},
		{
			name:   "only stray lines",
			stdout: ytdlpStdoutNoise,
		},
		{
			name:   "empty",
			stdout: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := downloader.ParseStdout(tc.stdout)
			if err != nil {
				t.Fatalf("ParseStdout() failed: %v", err)
			}

			if len(got) != len(tc.wantIDs) {
				t.Fatalf("got %d results, want %d", len(got), len(tc.wantIDs))
			}

			for idx, res := range got {
				if res.ID != tc.wantIDs[idx] {
					t.Errorf("got ID = %q, want %q", res.ID, tc.wantIDs[idx])
				}
			}

			if len(got) > 0 && got[0].Filename != tc.wantFilename {
				t.Errorf("got Filename = %q, want %q", got[0].Filename, tc.wantFilename)
			}
		})
	}
}

func TestResultJSONMetadata(t *testing.T) {
	t.Parallel()

	results, err := downloader.ParseStdout(ytdlpStdoutInfo)
	if err != nil || len(results) != 1 {
		t.Fatalf("ParseStdout() = %d results, %v", len(results), err)
	}

	meta := results[0].Metadata()

	if meta.Title != "Test: Video!! 2024" {
		t.Errorf("Title = %q", meta.Title)
	}

	if meta.Uploader != "Uploader" {
		t.Errorf("Uploader = %q", meta.Uploader)
	}

	if meta.Duration != 212 {
		t.Errorf("Duration = %d, want 212", meta.Duration)
	}

	if meta.ViewCount == nil || *meta.ViewCount != 1_500_000 {
		t.Errorf("ViewCount = %v, want 1500000", meta.ViewCount)
	}

	if len(meta.Formats) != 3 {
		t.Fatalf("got %d formats, want 3", len(meta.Formats))
	}

	audio := meta.Formats[0]
	if audio.Height != nil || audio.VCodec != "none" {
		t.Errorf("audio format mapped wrong: %+v", audio)
	}

	combined := meta.Formats[1]
	if combined.Height == nil || *combined.Height != 360 {
		t.Errorf("Height = %v, want 360", combined.Height)
	}

	if combined.FileSize != nil {
		t.Errorf("FileSize = %v, want nil", *combined.FileSize)
	}

	if combined.FileSizeApprox == nil || *combined.FileSizeApprox != 8847392 {
		t.Errorf("FileSizeApprox = %v, want 8847392", combined.FileSizeApprox)
	}

	if !combined.Combined() {
		t.Error("360p mp4 with audio should be combined")
	}
}

func TestResultJSONMetadataFallbacks(t *testing.T) {
	t.Parallel()

	results, err := downloader.ParseStdout(`{"id":"x","channel":"Only Channel","duration":-5,"formats":[]}`)
	if err != nil || len(results) != 1 {
		t.Fatalf("ParseStdout() = %d results, %v", len(results), err)
	}

	meta := results[0].Metadata()

	if meta.Uploader != "Only Channel" {
		t.Errorf("Uploader = %q, want channel fallback", meta.Uploader)
	}

	if meta.Duration != 0 {
		t.Errorf("Duration = %d, want 0 for a negative value", meta.Duration)
	}

	if meta.ViewCount != nil {
		t.Errorf("ViewCount = %v, want nil", *meta.ViewCount)
	}
}

func TestResultJSONReport(t *testing.T) {
	t.Parallel()

	results, err := downloader.ParseStdout(ytdlpStdoutDownload)
	if err != nil || len(results) != 1 {
		t.Fatalf("ParseStdout() = %d results, %v", len(results), err)
	}

	rep := results[0].Report()

	if rep.Height != 1080 || rep.FormatID != "137+140" || rep.Ext != "mp4" {
		t.Errorf("Report() = %+v", rep)
	}

	if rep.Filename != "/downloads/Test_Video___2024_1080p.mp4" {
		t.Errorf("Filename = %q", rep.Filename)
	}
}
