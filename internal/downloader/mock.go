package downloader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"tubefetch/internal/consts"
	"tubefetch/internal/entity"
	"tubefetch/pkg/ptr"
)

const (
	mockSteps     = 10
	mockChunkSize = 64 * 1024
)

// Mock is an in-process Service that simulates yt-dlp.
// Zero values of the exported fields select the default behavior.
type Mock struct {
	log *slog.Logger

	// Metadata is returned by Extract.
	Metadata *entity.VideoMetadata
	// ExtractErr and DownloadErr fail the respective call when set.
	ExtractErr  error
	DownloadErr error
	// Content is written to the output path. Nil writes simulated bytes; an empty
	// non-nil slice writes an empty file.
	Content []byte
	// SkipWrite leaves the output path untouched.
	SkipWrite bool
	// Duration is the simulated download time.
	Duration time.Duration
	// Height is reported as the effective height.
	Height int

	mu    sync.Mutex
	calls []Options
}

// NewMock creates a mock service with sample metadata.
func NewMock(log *slog.Logger) *Mock {
	return &Mock{
		log:      log.With(slog.String("package", "downloader"), slog.String("downloader", consts.DownloaderMock)),
		Metadata: SampleMetadata(),
		Duration: consts.DefaultSimulateTime,
	}
}

// SampleMetadata returns a fixed video with mixed formats.
func SampleMetadata() *entity.VideoMetadata {
	return &entity.VideoMetadata{
		ID:           "mock-video",
		Title:        "Mock Video: Sample Clip!",
		Uploader:     "tubefetch",
		Duration:     3661,
		ViewCount:    ptr.Of[int64](1_500_000),
		ThumbnailURL: "https://i.ytimg.com/vi/mock-video/hqdefault.jpg",
		WebpageURL:   "https://www.youtube.com/watch?v=mock-video",
		Formats: []entity.StreamDescriptor{
			{FormatID: "18", Ext: "mp4", VCodec: "avc1.42001E", ACodec: "mp4a.40.2", Height: ptr.Of(360), FPS: ptr.Of(30.0), FileSize: ptr.Of[int64](9_437_184), FormatNote: "360p"},
			{FormatID: "22", Ext: "mp4", VCodec: "avc1.64001F", ACodec: "mp4a.40.2", Height: ptr.Of(720), FPS: ptr.Of(30.0), FileSizeApprox: ptr.Of[int64](31_457_280), FormatNote: "720p"},
			{FormatID: "137", Ext: "mp4", VCodec: "avc1.640028", ACodec: "none", Height: ptr.Of(1080), FPS: ptr.Of(30.0), FormatNote: "1080p"},
			{FormatID: "140", Ext: "m4a", VCodec: "none", ACodec: "mp4a.40.2", FormatNote: "medium"},
			{FormatID: "43", Ext: "webm", VCodec: "vp8.0", ACodec: "vorbis", Height: ptr.Of(360), FormatNote: "360p"},
		},
	}
}

// Calls returns the options of every Download call so far.
func (m *Mock) Calls() []Options {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Options(nil), m.calls...)
}

// Extract returns the configured metadata.
func (m *Mock) Extract(ctx context.Context, url string) (*entity.VideoMetadata, error) {
	m.log.DebugContext(ctx, "mock extract", slog.String("url", url))

	if m.ExtractErr != nil {
		return nil, m.ExtractErr
	}

	if m.Metadata == nil {
		return nil, &ServiceError{Op: OpExtract, Message: "no metadata returned"}
	}

	meta := *m.Metadata

	return &meta, nil
}

// Download simulates a download of mockSteps chunks over m.Duration.
func (m *Mock) Download(ctx context.Context, url string, opts Options, hook Hook) (*Report, error) {
	log := m.log.With(slog.String("url", url), slog.Any("options", opts))

	m.mu.Lock()
	m.calls = append(m.calls, opts)
	m.mu.Unlock()

	if hook == nil {
		hook = func(Progress) {}
	}

	if m.DownloadErr != nil {
		log.ErrorContext(ctx, "mock download failed", slog.Any("error", m.DownloadErr))
		hook(Progress{Status: entity.ProgressError, Detail: m.DownloadErr.Error()})

		return nil, m.DownloadErr
	}

	total := int64(mockSteps * mockChunkSize)

	err := simulateDownload(ctx, m.Duration, func(step int) {
		hook(Progress{
			Status:          entity.ProgressDownloading,
			DownloadedBytes: int64(step * mockChunkSize),
			TotalBytes:      total,
			Filename:        opts.Output,
		})
	})
	if err != nil {
		log.ErrorContext(ctx, "simulate download", slog.Any("error", err))

		return nil, fmt.Errorf("mock download: %w", err)
	}

	hook(Progress{Status: entity.ProgressFinished, DownloadedBytes: total, TotalBytes: total, Filename: opts.Output})

	if !m.SkipWrite {
		content := m.Content
		if content == nil {
			content = make([]byte, total)
		}

		if err := os.WriteFile(opts.Output, content, 0o644); err != nil {
			return nil, fmt.Errorf("mock write output: %w", err)
		}
	}

	log.InfoContext(ctx, "mock download finished")

	return &Report{Filename: opts.Output, FormatID: "mock", Ext: consts.TargetContainer, Height: m.Height}, nil
}

// simulateDownload calls progressFn with steps 1..mockSteps spread evenly over duration.
func simulateDownload(ctx context.Context, duration time.Duration, progressFn func(step int)) error {
	interval := duration / mockSteps
	if interval <= 0 {
		interval = time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for step := 1; step <= mockSteps; step++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			progressFn(step)
		}
	}

	return nil
}
