// Package service ties the metadata, download and storage phases together for the shells.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"tubefetch/internal/config"
	"tubefetch/internal/consts"
	"tubefetch/internal/downloader"
	"tubefetch/internal/entity"
	"tubefetch/internal/errs"
	"tubefetch/internal/formats"
	"tubefetch/internal/metadata"
	"tubefetch/internal/observability"
	"tubefetch/internal/orchestrator"
	"tubefetch/internal/storage"
	"tubefetch/pkg/gen"
	"tubefetch/pkg/humanfmt"
	"tubefetch/pkg/urls"
)

// Outcome labels for metrics.
const (
	outcomeOK = "ok"
)

// Info is what a shell shows before the user picks a resolution.
type Info struct {
	URL         string                `json:"url"`
	Title       string                `json:"title"`
	Uploader    string                `json:"uploader,omitempty"`
	Duration    string                `json:"duration"`
	Views       string                `json:"views"`
	Thumbnail   string                `json:"thumbnail,omitempty"`
	Formats     []string              `json:"formats"`
	Heights     []int                 `json:"heights"`
	Resolutions []entity.Resolution   `json:"resolutions"`
	Metadata    *entity.VideoMetadata `json:"-"`
}

// Download is a finished download registered in storage.
type Download struct {
	Title  string               `json:"title"`
	Result *orchestrator.Result `json:"result"`
	File   entity.StoredFile    `json:"file"`
}

// Video is the use case layer shared by the HTTP and terminal shells.
type Video interface {
	// Info fetches metadata and renders it for display.
	Info(ctx context.Context, rawURL string) (*Info, error)
	// Download fetches metadata for the title, then downloads at no more than resolution.
	// An empty resolution selects the configured default.
	Download(ctx context.Context, rawURL, resolution string, sink entity.ProgressSink) (*Download, error)
	// File returns a stored download by id.
	File(ctx context.Context, id string) (entity.StoredFile, error)
	// Files lists stored downloads that have not expired, newest first.
	Files(ctx context.Context) []entity.StoredFile
}

type video struct {
	log     *slog.Logger
	cfg     *config.Config
	fetcher *metadata.Fetcher
	orch    *orchestrator.Orchestrator
	storer  storage.Storer
	metrics *observability.Metrics

	mu     sync.Mutex
	active map[string]struct{} // output paths being written
}

var _ Video = (*video)(nil)

// New creates the Video service on top of a downloader backend.
func New(cfg *config.Config,
	log *slog.Logger,
	svc downloader.Service,
	storer storage.Storer,
	metrics *observability.Metrics) Video {
	return &video{
		log:     log.With(slog.String("package", "service")),
		cfg:     cfg,
		fetcher: metadata.New(log, svc),
		orch:    orchestrator.New(log, svc),
		storer:  storer,
		metrics: metrics,
		active:  make(map[string]struct{}),
	}
}

func (v *video) Info(ctx context.Context, rawURL string) (*Info, error) {
	url, err := validateURL(rawURL)
	if err != nil {
		return nil, err
	}

	meta, err := v.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	return &Info{
		URL:         url,
		Title:       title(meta),
		Uploader:    meta.Uploader,
		Duration:    humanfmt.Duration(meta.Duration),
		Views:       humanfmt.ViewCount(meta.ViewCount),
		Thumbnail:   meta.ThumbnailURL,
		Formats:     slices.Collect(formats.Lines(meta.Formats)),
		Heights:     formats.Heights(meta.Formats),
		Resolutions: entity.Resolutions,
		Metadata:    meta,
	}, nil
}

func (v *video) Download(ctx context.Context, rawURL, resolution string, sink entity.ProgressSink) (*Download, error) {
	url, err := validateURL(rawURL)
	if err != nil {
		return nil, err
	}

	res := v.cfg.Download.Resolution
	if strings.TrimSpace(resolution) != "" {
		if res, err = entity.ParseResolution(resolution); err != nil {
			return nil, err
		}
	}

	meta, err := v.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	req := entity.DownloadRequest{
		URL:        url,
		Resolution: res,
		Dir:        v.cfg.Dir.Downloads,
		Title:      title(meta),
	}

	path := orchestrator.OutputPath(req)
	if !v.acquire(path) {
		v.log.WarnContext(ctx, "download rejected", slog.Any("request", req), slog.Any("error", errs.ErrDownloadInProgress))

		return nil, errs.ErrDownloadInProgress
	}
	defer v.release(path)

	done := v.metrics.DownloadStarted()

	result, err := v.orch.Download(ctx, req, sink)
	if err != nil {
		done(outcome(err), 0, false)

		return nil, err
	}

	done(outcomeOK, result.Size, result.Downgraded)

	file := v.storer.Put(ctx, entity.StoredFile{
		ID:              gen.UUIDv5(url, string(res)),
		Name:            result.Name,
		Path:            result.Path,
		Size:            result.Size,
		Resolution:      res,
		EffectiveHeight: result.EffectiveHeight,
	})

	return &Download{Title: req.Title, Result: result, File: file}, nil
}

func (v *video) File(ctx context.Context, id string) (entity.StoredFile, error) {
	return v.storer.Get(ctx, id)
}

func (v *video) Files(ctx context.Context) []entity.StoredFile {
	return v.storer.List(ctx)
}

func (v *video) fetch(ctx context.Context, url string) (*entity.VideoMetadata, error) {
	meta, err := v.fetcher.Fetch(ctx, url)
	if err != nil {
		v.metrics.RecordFetch(outcome(err))

		return nil, err
	}

	v.metrics.RecordFetch(outcomeOK)

	return meta, nil
}

func (v *video) acquire(path string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, busy := v.active[path]; busy {
		return false
	}

	v.active[path] = struct{}{}

	return true
}

func (v *video) release(path string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	delete(v.active, path)
}

func validateURL(raw string) (string, error) {
	url := urls.Normalize(urls.FixURL(raw))
	if !urls.IsURLValid(url) {
		return "", fmt.Errorf("%w: %q", errs.ErrInvalidURL, raw)
	}

	return url, nil
}

func title(meta *entity.VideoMetadata) string {
	if strings.TrimSpace(meta.Title) == "" {
		return consts.FallbackTitle
	}

	return meta.Title
}

// outcome is the metrics label of a phase failure.
func outcome(err error) string {
	switch kind := errs.KindOf(err); {
	case errors.Is(kind, errs.ErrExtraction):
		return "extraction"
	case errors.Is(kind, errs.ErrDownload):
		return "download"
	case errors.Is(kind, errs.ErrFileNotProduced):
		return "file_not_produced"
	default:
		return "unknown"
	}
}
