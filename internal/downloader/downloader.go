// Package downloader wraps the external extraction and download service.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tubefetch/internal/entity"
)

// Service is the extraction and download backend.
type Service interface {
	// Extract fetches metadata for a single video without downloading the payload.
	Extract(ctx context.Context, url string) (*entity.VideoMetadata, error)
	// Download fetches the video selected by opts into opts.Output.
	// hook is called synchronously from the download call.
	Download(ctx context.Context, url string, opts Options, hook Hook) (*Report, error)
}

// Options controls a single download.
type Options struct {
	Format string // format selection expression
	Output string // output path template
	Recode string // container the result is converted to
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (o Options) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("format", o.Format),
		slog.String("output", o.Output),
		slog.String("recode", o.Recode),
	)
}

// Progress is a raw progress update from the backend.
type Progress struct {
	Status          entity.ProgressStatus
	DownloadedBytes int64
	TotalBytes      int64 // 0 when unknown
	Filename        string
	Detail          string // error text for entity.ProgressError
}

// Hook receives progress updates.
type Hook func(Progress)

// Report describes what the backend actually produced.
type Report struct {
	Filename string
	FormatID string
	Ext      string
	Height   int // 0 when unknown
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (r Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("filename", r.Filename),
		slog.String("format_id", r.FormatID),
		slog.String("ext", r.Ext),
		slog.Int("height", r.Height),
	)
}

// Op names the backend operation that failed.
type Op string

// Backend operations.
const (
	OpExtract  Op = "extract"
	OpDownload Op = "download"
)

// ServiceError is a failure reported by the backend itself: it ran and said no.
type ServiceError struct {
	Op      Op
	Message string // last error line printed by the backend
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// IsServiceError reports whether err carries a backend failure.
func IsServiceError(err error) bool {
	var se *ServiceError

	return errors.As(err, &se)
}

// errorLinePrefix marks yt-dlp error lines on stderr.
const errorLinePrefix = "ERROR:"

// lastErrorLine returns the last error line in stderr without its prefix, or "".
func lastErrorLine(stderr string) string {
	var last string

	for line := range strings.Lines(stderr) {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, errorLinePrefix) {
			last = strings.TrimSpace(strings.TrimPrefix(line, errorLinePrefix))
		}
	}

	return last
}

func classifyProcessingError(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case IsServiceError(err):
		return "service"
	default:
		return "process"
	}
}
