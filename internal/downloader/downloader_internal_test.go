package downloader

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"tubefetch/internal/entity"

	"github.com/lrstanley/go-ytdlp"
)

func TestLastErrorLine(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   string
	}{
		{"empty", "", ""},
		{"no error lines", "WARNING: slow\n[info] x\n", ""},
		{
			name:   "last one wins",
			stderr: "ERROR: first\nWARNING: meh\nERROR: [youtube] abc: Private video\n",
			want:   "[youtube] abc: Private video",
		},
		{"without trailing newline", "ERROR: Postprocessing: ffmpeg not found", "Postprocessing: ffmpeg not found"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := lastErrorLine(tc.stderr); got != tc.want {
				t.Errorf("lastErrorLine() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRunError(t *testing.T) {
	exitErr := errors.New("exit status 1")

	t.Run("reported by yt-dlp", func(t *testing.T) {
		res := &ytdlp.Result{Stderr: "ERROR: Video unavailable\n"}

		err := runError(t.Context(), OpExtract, res, exitErr)

		var se *ServiceError
		if !errors.As(err, &se) {
			t.Fatalf("expected ServiceError, got %T", err)
		}

		if se.Message != "Video unavailable" || se.Op != OpExtract {
			t.Errorf("got %+v", se)
		}

		if !errors.Is(err, exitErr) {
			t.Error("cause is not preserved")
		}
	})

	t.Run("no error line falls back to cause", func(t *testing.T) {
		err := runError(t.Context(), OpDownload, &ytdlp.Result{}, exitErr)

		var se *ServiceError
		if !errors.As(err, &se) || se.Message != "exit status 1" {
			t.Errorf("got %v", err)
		}
	})

	t.Run("process never ran", func(t *testing.T) {
		err := runError(t.Context(), OpDownload, nil, exitErr)
		if IsServiceError(err) {
			t.Error("a missing result must not be a service error")
		}
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		err := runError(ctx, OpDownload, &ytdlp.Result{Stderr: "ERROR: interrupted"}, fmt.Errorf("kill: %w", context.Canceled))
		if IsServiceError(err) {
			t.Error("cancellation must not be a service error")
		}

		if classifyProcessingError(err) != "canceled" {
			t.Errorf("classifyProcessingError() = %q", classifyProcessingError(err))
		}
	})

	t.Run("deadline with a killed process", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(t.Context(), -time.Second)
		defer cancel()

		killed := errors.New("exit code -1: signal: killed")

		err := runError(ctx, OpDownload, &ytdlp.Result{}, killed)
		if !errors.Is(err, context.DeadlineExceeded) || !errors.Is(err, killed) {
			t.Errorf("error = %v, want both the deadline and the process error", err)
		}

		if IsServiceError(err) {
			t.Error("a deadline must not be a service error")
		}
	})
}

func TestToProgress(t *testing.T) {
	tests := []struct {
		name   string
		update ytdlp.ProgressUpdate
		want   entity.ProgressStatus
		wantOK bool
	}{
		{"downloading", ytdlp.ProgressUpdate{Status: "downloading", DownloadedBytes: 10, TotalBytes: 100}, entity.ProgressDownloading, true},
		{"finished", ytdlp.ProgressUpdate{Status: "finished"}, entity.ProgressFinished, true},
		{"error", ytdlp.ProgressUpdate{Status: "error"}, entity.ProgressError, true},
		{"starting", ytdlp.ProgressUpdate{Status: "starting"}, "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := toProgress(tc.update)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}

			if got.Status != tc.want {
				t.Errorf("Status = %q, want %q", got.Status, tc.want)
			}

			if ok && got.DownloadedBytes != int64(tc.update.DownloadedBytes) {
				t.Errorf("DownloadedBytes = %d", got.DownloadedBytes)
			}
		})
	}
}
