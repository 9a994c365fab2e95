// Package app wires the configured backend into the video service shared by both shells.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"tubefetch/internal/config"
	"tubefetch/internal/consts"
	"tubefetch/internal/depmanager"
	"tubefetch/internal/downloader"
	"tubefetch/internal/observability"
	"tubefetch/internal/service"
	"tubefetch/internal/storage"
)

// App is the assembled backend.
type App struct {
	Video  service.Video
	Storer storage.Storer
	// Deps is nil with the mock downloader.
	Deps *depmanager.Manager
}

// New resolves the external binaries when needed and builds the service.
// Background loops (storage cleanup, binary updates) stop with ctx.
func New(ctx context.Context, log *slog.Logger, cfg *config.Config, metrics *observability.Metrics) (*App, error) {
	a := &App{}

	var backend downloader.Service

	switch cfg.Download.Downloader {
	case consts.DownloaderMock:
		backend = downloader.NewMock(log)
	default:
		deps := depmanager.New(log, cfg.DepManager)
		deps.OnUpdate(func(name depmanager.BinaryName) {
			metrics.RecordBinaryUpdate(string(name))
		})

		log.InfoContext(ctx, "checking if yt-dlp, ffmpeg and deno are available. it may take some time...")

		if err := deps.Start(ctx); err != nil {
			return nil, fmt.Errorf("dependencies: %w", err)
		}

		if !deps.HasTranscoder() {
			log.WarnContext(ctx, "ffmpeg not found; mp4 conversion and most resolutions above 360p will fail")
		}

		a.Deps = deps
		backend = downloader.NewYTdlp(log, cfg, deps)
	}

	a.Storer = storage.New(ctx, log, cfg, metrics)
	a.Video = service.New(cfg, log, backend, a.Storer, metrics)

	return a, nil
}
