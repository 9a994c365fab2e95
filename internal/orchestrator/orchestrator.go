// Package orchestrator turns a DownloadRequest into a single verified mp4 file on disk.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tubefetch/internal/consts"
	"tubefetch/internal/downloader"
	"tubefetch/internal/entity"
	"tubefetch/internal/errs"
)

const dirPerm = 0o755

// Result is the success half of a download.
type Result struct {
	Path            string            `json:"-"`
	Name            string            `json:"name"`
	Size            int64             `json:"size"`
	Requested       entity.Resolution `json:"requested"`
	EffectiveHeight int               `json:"effectiveHeight,omitempty"` // 0 when the service did not say
	FormatID        string            `json:"formatId,omitempty"`
	Downgraded      bool              `json:"downgraded"` // effective height below the requested one
	Warnings        []string          `json:"warnings,omitempty"`
	Elapsed         time.Duration     `json:"elapsed"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (r Result) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("path", r.Path),
		slog.Int64("size", r.Size),
		slog.String("requested", string(r.Requested)),
		slog.Int("effective_height", r.EffectiveHeight),
		slog.String("format_id", r.FormatID),
		slog.Bool("downgraded", r.Downgraded),
		slog.Duration("elapsed", r.Elapsed),
	)
}

// Orchestrator runs the download phase.
type Orchestrator struct {
	log *slog.Logger
	svc downloader.Service

	// replaced in tests
	removeFile func(name string) error
	now        func() time.Time
}

// New creates an Orchestrator.
func New(log *slog.Logger, svc downloader.Service) *Orchestrator {
	return &Orchestrator{
		log:        log.With(slog.String("package", "orchestrator")),
		svc:        svc,
		removeFile: os.Remove,
		now:        time.Now,
	}
}

// Download fetches req.URL at no more than req.Resolution into req.Dir, relaying progress
// to sink. It returns (*Result, nil) only when a non-empty file exists at the expected
// path. Otherwise the error is an *errs.PhaseError of kind ErrDownload, ErrFileNotProduced
// or ErrUnknown. Nothing is retried.
func (o *Orchestrator) Download(ctx context.Context, req entity.DownloadRequest, sink entity.ProgressSink) (res *Result, err error) {
	log := o.log.With(slog.Any("request", req))

	if sink == nil {
		sink = entity.DiscardSink
	}

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, errs.Recovered(r)
			log.ErrorContext(ctx, "download panicked", slog.Any("error", err))
		}
	}()

	path := OutputPath(req)
	result := &Result{Path: path, Name: filepath.Base(path), Requested: req.Resolution}

	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, o.fail(ctx, log, errs.NewPhaseError(errs.ErrUnknown, "", fmt.Errorf("create output dir: %w", err)), "")
	}

	if warning := o.evict(ctx, log, path); warning != "" {
		result.Warnings = append(result.Warnings, warning)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	tr := newTracker(log, sink, o.now, cancel)

	opts := downloader.Options{
		Format: FormatExpression(req.Resolution.Height()),
		Output: path,
		Recode: consts.TargetContainer,
	}

	log.InfoContext(ctx, "download started", slog.Any("options", opts))

	report, err := o.svc.Download(runCtx, req.URL, opts, tr.OnProgress)
	if pe := tr.failure(); pe != nil {
		return nil, o.fail(ctx, log, pe, path)
	}

	if err != nil {
		return nil, o.fail(ctx, log, classify(err), path)
	}

	info, err := os.Stat(path)

	switch {
	case err != nil:
		return nil, o.fail(ctx, log, errs.NewPhaseError(errs.ErrFileNotProduced, "no file at the expected path", err), "")
	case !info.Mode().IsRegular():
		return nil, o.fail(ctx, log, errs.NewPhaseError(errs.ErrFileNotProduced, "output path is not a regular file", nil), "")
	case info.Size() == 0:
		return nil, o.fail(ctx, log, errs.NewPhaseError(errs.ErrFileNotProduced, "output file is empty", nil), path)
	}

	result.Size = info.Size()
	result.Elapsed = tr.elapsed()

	if report != nil {
		result.EffectiveHeight = report.Height
		result.FormatID = report.FormatID
		result.Downgraded = report.Height > 0 && report.Height < req.Resolution.Height()
	}

	if result.Downgraded {
		log.WarnContext(ctx, "resolution downgraded",
			slog.Int("requested", req.Resolution.Height()),
			slog.Int("effective", result.EffectiveHeight))
	}

	log.InfoContext(ctx, "download finished", slog.Any("result", result))

	return result, nil
}

// evict removes a file left at path by an earlier run. Failure is not fatal: the
// service overwrites the file anyway. The returned warning is empty on success.
func (o *Orchestrator) evict(ctx context.Context, log *slog.Logger, path string) string {
	if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
		return ""
	}

	if err := o.removeFile(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WarnContext(ctx, "could not remove existing output file", slog.Any("error", err))

		return fmt.Sprintf("could not remove existing file %s: %v", filepath.Base(path), err)
	}

	log.DebugContext(ctx, "removed existing output file")

	return ""
}

// fail logs pe and removes the partial output at cleanup, if any.
func (o *Orchestrator) fail(ctx context.Context, log *slog.Logger, pe *errs.PhaseError, cleanup string) *errs.PhaseError {
	log.ErrorContext(ctx, "download failed",
		slog.String("kind", pe.Kind.Error()),
		slog.String("hint", pe.Hint),
		slog.Any("error", pe))

	if cleanup != "" {
		for _, p := range partialFiles(cleanup) {
			if err := o.removeFile(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
				log.WarnContext(ctx, "could not remove partial output", slog.String("path", p), slog.Any("error", err))
			}
		}
	}

	return pe
}

// partialFiles lists path, its .part file and the per-stream intermediates yt-dlp
// leaves next to it before merging (<stem>.f<format id>.<ext>[.part], <stem>.temp.<ext>).
func partialFiles(path string) []string {
	files := []string{path, path + ".part"}

	dir, base := filepath.Split(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return files
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == base || name == base+".part" {
			continue
		}

		for _, prefix := range []string{stem + ".f", stem + ".temp."} {
			if rest, ok := strings.CutPrefix(name, prefix); ok && strings.Contains(rest, ".") {
				files = append(files, filepath.Join(dir, name))

				break
			}
		}
	}

	return files
}

// classify maps a service failure to its phase kind.
func classify(err error) *errs.PhaseError {
	var se *downloader.ServiceError
	if !errors.As(err, &se) {
		return errs.NewPhaseError(errs.ErrUnknown, "", err)
	}

	pe := errs.NewPhaseError(errs.ErrDownload, se.Message, err)
	if mentionsTranscoder(se.Message) {
		pe.Hint = errs.TranscoderHint
	}

	return pe
}

func mentionsTranscoder(msg string) bool {
	msg = strings.ToLower(msg)

	return strings.Contains(msg, "ffmpeg") || strings.Contains(msg, "postprocessing")
}
