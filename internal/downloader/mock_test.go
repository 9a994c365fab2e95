package downloader_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/synctest"
	"time"

	"tubefetch/internal/downloader"
	"tubefetch/internal/entity"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMockDownload(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		mock := downloader.NewMock(discardLogger())
		mock.Duration = time.Second
		mock.Height = 720

		out := filepath.Join(t.TempDir(), "out.mp4")

		var events []downloader.Progress

		start := time.Now()

		rep, err := mock.Download(t.Context(), "https://example.com/v", downloader.Options{Output: out}, func(p downloader.Progress) {
			events = append(events, p)
		})
		if err != nil {
			t.Fatalf("Download() failed: %v", err)
		}

		if elapsed := time.Since(start); elapsed != time.Second {
			t.Errorf("simulated download took %v, want 1s", elapsed)
		}

		if len(events) != 11 {
			t.Fatalf("got %d events, want 10 downloading and 1 finished", len(events))
		}

		for _, ev := range events[:10] {
			if ev.Status != entity.ProgressDownloading {
				t.Errorf("status = %q, want downloading", ev.Status)
			}
		}

		if last := events[10]; last.Status != entity.ProgressFinished || last.DownloadedBytes != last.TotalBytes {
			t.Errorf("last event = %+v", last)
		}

		if rep.Height != 720 || rep.Filename != out {
			t.Errorf("report = %+v", rep)
		}

		info, err := os.Stat(out)
		if err != nil || info.Size() == 0 {
			t.Errorf("output not written: %v", err)
		}

		if calls := mock.Calls(); len(calls) != 1 || calls[0].Output != out {
			t.Errorf("calls = %+v", calls)
		}
	})
}

func TestMockDownloadCanceled(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		mock := downloader.NewMock(discardLogger())
		mock.Duration = time.Minute

		ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
		defer cancel()

		_, err := mock.Download(ctx, "u", downloader.Options{Output: filepath.Join(t.TempDir(), "x.mp4")}, nil)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Download() error = %v, want deadline exceeded", err)
		}
	})
}

func TestMockDownloadError(t *testing.T) {
	t.Parallel()

	mock := downloader.NewMock(discardLogger())
	mock.DownloadErr = &downloader.ServiceError{Op: downloader.OpDownload, Message: "ffmpeg not found"}

	var got []downloader.Progress

	_, err := mock.Download(t.Context(), "u", downloader.Options{}, func(p downloader.Progress) { got = append(got, p) })
	if !downloader.IsServiceError(err) {
		t.Fatalf("Download() error = %v, want ServiceError", err)
	}

	if len(got) != 1 || got[0].Status != entity.ProgressError {
		t.Errorf("events = %+v, want a single error event", got)
	}
}

func TestMockExtract(t *testing.T) {
	t.Parallel()

	mock := downloader.NewMock(discardLogger())

	meta, err := mock.Extract(t.Context(), "u")
	if err != nil {
		t.Fatalf("Extract() failed: %v", err)
	}

	if meta.Title == "" || len(meta.Formats) == 0 {
		t.Errorf("unexpected sample metadata: %+v", meta)
	}

	mock.Metadata = nil

	if _, err := mock.Extract(t.Context(), "u"); !downloader.IsServiceError(err) {
		t.Errorf("Extract() error = %v, want ServiceError", err)
	}
}
