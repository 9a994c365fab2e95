// Package metadata fetches video metadata from the extraction service.
package metadata

import (
	"context"
	"errors"
	"log/slog"

	"tubefetch/internal/downloader"
	"tubefetch/internal/entity"
	"tubefetch/internal/errs"
)

// Fetcher asks the extraction service for a single video's metadata.
type Fetcher struct {
	log *slog.Logger
	svc downloader.Service
}

// New creates a Fetcher.
func New(log *slog.Logger, svc downloader.Service) *Fetcher {
	return &Fetcher{
		log: log.With(slog.String("package", "metadata")),
		svc: svc,
	}
}

// Fetch returns the metadata of the video at url. It never downloads the payload
// and never expands playlists. Failures are *errs.PhaseError of kind ErrExtraction
// or ErrUnknown; there is no retry.
func (f *Fetcher) Fetch(ctx context.Context, url string) (meta *entity.VideoMetadata, err error) {
	log := f.log.With(slog.String("url", url))

	defer func() {
		if r := recover(); r != nil {
			meta, err = nil, errs.Recovered(r)
			log.ErrorContext(ctx, "metadata fetch panicked", slog.Any("error", err))
		}
	}()

	meta, err = f.svc.Extract(ctx, url)
	if err != nil {
		pe := classify(err)
		log.ErrorContext(ctx, "metadata fetch failed",
			slog.String("kind", pe.Kind.Error()),
			slog.Any("error", err))

		return nil, pe
	}

	if meta == nil {
		pe := errs.NewPhaseError(errs.ErrExtraction, "", errs.ErrMetadataNil)
		log.ErrorContext(ctx, "metadata fetch failed", slog.Any("error", pe))

		return nil, pe
	}

	log.InfoContext(ctx, "metadata fetched", slog.Any("metadata", meta))

	return meta, nil
}

func classify(err error) *errs.PhaseError {
	var se *downloader.ServiceError
	if errors.As(err, &se) {
		return errs.NewPhaseError(errs.ErrExtraction, se.Message, err)
	}

	return errs.NewPhaseError(errs.ErrUnknown, "", err)
}
