package downloader

import (
	"context"
	"fmt"
	"errors"
	"log/slog"

	"tubefetch/internal/config"
	"tubefetch/internal/consts"
	"tubefetch/internal/depmanager"
	"tubefetch/internal/entity"

	"github.com/lrstanley/go-ytdlp"
)

// changing this may break ParseStdout().
const defaultPrintAfterMove = "after_move:filepath"

// Binaries resolves executables managed by the dependency manager.
// An empty path means "look it up in PATH".
type Binaries interface {
	Path(name depmanager.BinaryName) string
}

// YTdlp is the Service backed by the yt-dlp executable.
type YTdlp struct {
	log  *slog.Logger
	cfg  *config.Config
	bins Binaries
}

// NewYTdlp creates a new YTdlp service instance.
func NewYTdlp(log *slog.Logger, cfg *config.Config, bins Binaries) *YTdlp {
	return &YTdlp{
		log:  log.With(slog.String("package", "downloader"), slog.String("downloader", consts.DownloaderYTdlp)),
		cfg:  cfg,
		bins: bins,
	}
}

// Extract fetches metadata for url. Playlists are never expanded.
func (d *YTdlp) Extract(ctx context.Context, url string) (*entity.VideoMetadata, error) {
	log := d.log.With(slog.String("op", string(OpExtract)), slog.String("url", url))

	res, err := d.command().
		SkipDownload().
		PrintJSON().
		Run(ctx, url)
	if err != nil {
		err = runError(ctx, OpExtract, res, err)
		log.ErrorContext(ctx, "ytdlp run",
			slog.Any("error", err),
			slog.String("reason", classifyProcessingError(err)),
			slog.Any("result", Result{res}))

		return nil, err
	}

	results, err := ParseStdout(res.Stdout)
	if err != nil {
		return nil, fmt.Errorf("parse yt-dlp stdout: %w", err)
	}

	if len(results) == 0 {
		log.ErrorContext(ctx, "ytdlp returned no metadata", slog.Any("result", Result{res}))

		return nil, &ServiceError{Op: OpExtract, Message: "no metadata returned"}
	}

	meta := results[0].Metadata()

	log.DebugContext(ctx, "metadata extracted", slog.Any("metadata", meta))

	return meta, nil
}

// Download runs yt-dlp with the given format expression and output path.
// hook receives downloading and finished updates, and one error update carrying the
// reported failure when the run fails.
func (d *YTdlp) Download(ctx context.Context, url string, opts Options, hook Hook) (*Report, error) {
	log := d.log.With(slog.String("op", string(OpDownload)), slog.String("url", url), slog.Any("options", opts))

	if hook == nil {
		hook = func(Progress) {}
	}

	progressFn := func(update ytdlp.ProgressUpdate) {
		log.DebugContext(ctx, "ytdlp progress", slog.Any("progress_update", ProgressUpdate{&update}))

		prog, ok := toProgress(update)
		if !ok {
			return
		}

		// the failure detail is only known once the process exits
		if prog.Status == entity.ProgressError {
			log.WarnContext(ctx, "ytdlp reported an error status")

			return
		}

		hook(prog)
	}

	command := d.command().
		Format(opts.Format).
		Output(opts.Output).
		ForceOverwrites().
		PrintJSON().
		Print(defaultPrintAfterMove).
		ProgressFunc(d.cfg.Download.ProgressFreq, progressFn)

	if opts.Recode != "" {
		command = command.RecodeVideo(opts.Recode)
	}

	if ffmpeg := d.bins.Path(depmanager.BinaryFFmpeg); ffmpeg != "" {
		command = command.FFmpegLocation(ffmpeg)
	}

	res, err := command.Run(ctx, url)
	if err != nil {
		err = runError(ctx, OpDownload, res, err)
		log.ErrorContext(ctx, "ytdlp run",
			slog.Any("error", err),
			slog.String("reason", classifyProcessingError(err)),
			slog.Any("result", Result{res}))

		detail := err.Error()

		var se *ServiceError
		if errors.As(err, &se) {
			detail = se.Message
		}

		hook(Progress{Status: entity.ProgressError, Detail: detail})

		return nil, err
	}

	report := &Report{Filename: opts.Output}

	results, err := ParseStdout(res.Stdout)
	if err != nil {
		log.WarnContext(ctx, "parse yt-dlp stdout", slog.Any("error", err))
	}

	if len(results) > 0 {
		report = results[0].Report()
		if report.Filename == "" {
			report.Filename = opts.Output
		}
	}

	log.InfoContext(ctx, "done", slog.Any("report", report), slog.Any("result", Result{res}))

	return report, nil
}

// command builds the invocation shared by every operation.
func (d *YTdlp) command() *ytdlp.Command {
	command := ytdlp.New().
		NoPlaylist().
		NoWarnings().
		CacheDir(d.cfg.Dir.Cache)

	if bin := d.bins.Path(depmanager.BinaryYTdlp); bin != "" {
		command = command.SetExecutable(bin)
	}

	if d.cfg.Dir.CookieFile != "" {
		command = command.Cookies(d.cfg.Dir.CookieFile)
	}

	if d.cfg.Download.Proxy != "" {
		command = command.Proxy(d.cfg.Download.Proxy)
	}

	return command
}

// runError turns a failed run into a ServiceError when yt-dlp itself reported the failure.
// A run cut short by ctx wraps ctx.Err() next to the process error. Failures to start
// the process are returned wrapped as they are.
func runError(ctx context.Context, op Op, res *ytdlp.Result, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("ytdlp %s: %w: %w", op, ctxErr, err)
	}

	if res == nil {
		return fmt.Errorf("ytdlp %s: %w", op, err)
	}

	msg := lastErrorLine(res.Stderr)
	if msg == "" {
		msg = err.Error()
	}

	return &ServiceError{Op: op, Message: msg, Err: err}
}
