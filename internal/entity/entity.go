// Package entity defines the core entities used in the application.
package entity

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"tubefetch/internal/errs"
	"tubefetch/pkg/ptr"
)

// noCodec is how yt-dlp marks a missing audio or video track.
const noCodec = "none"

// VideoMetadata describes one video as reported by the extraction service.
// It lives for a single request and is never persisted.
type VideoMetadata struct {
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	Uploader     string             `json:"uploader"`
	Duration     int                `json:"duration"` // seconds
	ViewCount    *int64             `json:"viewCount,omitempty"`
	ThumbnailURL string             `json:"thumbnailUrl,omitempty"`
	WebpageURL   string             `json:"webpageUrl,omitempty"`
	Formats      []StreamDescriptor `json:"formats"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (m VideoMetadata) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", m.ID),
		slog.String("title", m.Title),
		slog.String("uploader", m.Uploader),
		slog.Int("duration", m.Duration),
		slog.Int64("view_count", ptr.Deref(m.ViewCount)),
		slog.Int("formats", len(m.Formats)),
	)
}

// StreamDescriptor is one encoded rendition of a video.
type StreamDescriptor struct {
	FormatID       string   `json:"formatId"`
	Ext            string   `json:"ext"`
	VCodec         string   `json:"vcodec"`
	ACodec         string   `json:"acodec"`
	Height         *int     `json:"height,omitempty"`
	FPS            *float64 `json:"fps,omitempty"`
	FileSize       *int64   `json:"fileSize,omitempty"`
	FileSizeApprox *int64   `json:"fileSizeApprox,omitempty"`
	FormatNote     string   `json:"formatNote"`
}

// Combined reports whether the stream is a single mp4 file carrying both audio and video
// with a known height. Only such streams are offered to the user.
func (s StreamDescriptor) Combined() bool {
	return s.Ext == "mp4" &&
		s.VCodec != noCodec &&
		s.ACodec != noCodec &&
		s.Height != nil
}

// Size returns the exact file size, else the approximate one.
func (s StreamDescriptor) Size() (int64, bool) {
	switch {
	case s.FileSize != nil && *s.FileSize > 0:
		return *s.FileSize, true
	case s.FileSizeApprox != nil && *s.FileSizeApprox > 0:
		return *s.FileSizeApprox, true
	default:
		return 0, false
	}
}

// Resolution is a requested height ceiling.
type Resolution string

// Supported resolutions.
const (
	Resolution1080p Resolution = "1080p"
	Resolution720p  Resolution = "720p"
	Resolution480p  Resolution = "480p"
	Resolution360p  Resolution = "360p"
)

// Resolutions lists the supported values, highest first.
var Resolutions = []Resolution{Resolution1080p, Resolution720p, Resolution480p, Resolution360p}

// ParseResolution accepts "720p" or "720" (case and surrounding space ignored).
func ParseResolution(raw string) (Resolution, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw != "" && !strings.HasSuffix(raw, "p") {
		raw += "p"
	}

	for _, res := range Resolutions {
		if Resolution(raw) == res {
			return res, nil
		}
	}

	return "", fmt.Errorf("%w: %q", errs.ErrInvalidResolution, raw)
}

// Height returns the pixel height, 0 for an unknown value.
func (r Resolution) Height() int {
	h, err := strconv.Atoi(strings.TrimSuffix(string(r), "p"))
	if err != nil {
		return 0
	}

	return h
}

func (r Resolution) String() string { return string(r) }

// DownloadRequest is everything the orchestrator needs to produce one file.
type DownloadRequest struct {
	URL        string
	Resolution Resolution
	Dir        string // output directory
	Title      string // used to derive the file name
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (r DownloadRequest) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("url", r.URL),
		slog.String("resolution", string(r.Resolution)),
		slog.String("dir", r.Dir),
		slog.String("title", r.Title),
	)
}

// ProgressStatus tags a ProgressEvent.
type ProgressStatus string

const (
	// ProgressDownloading is emitted zero or more times while bytes arrive.
	ProgressDownloading ProgressStatus = "downloading"
	// ProgressFinished is emitted once the payload is fetched. Post-processing may follow.
	ProgressFinished ProgressStatus = "finished"
	// ProgressError is emitted when the service hook reports a failure.
	ProgressError ProgressStatus = "error"
)

// ProgressEvent is relayed to the progress sink during a download. Never stored.
type ProgressEvent struct {
	Status          ProgressStatus `json:"status"`
	Fraction        *float64       `json:"fraction,omitempty"` // nil when the total is unknown
	DownloadedBytes int64          `json:"downloadedBytes"`
	TotalBytes      int64          `json:"totalBytes"`
	Elapsed         time.Duration  `json:"elapsed"`
	Throughput      float64        `json:"throughput"` // bytes per second since the download began
	Filename        string         `json:"filename,omitempty"`
	Detail          string         `json:"detail,omitempty"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (e ProgressEvent) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("status", string(e.Status)),
		slog.Float64("fraction", ptr.Deref(e.Fraction)),
		slog.Int64("downloaded_bytes", e.DownloadedBytes),
		slog.Int64("total_bytes", e.TotalBytes),
		slog.Duration("elapsed", e.Elapsed),
		slog.Float64("throughput", e.Throughput),
		slog.String("filename", e.Filename),
		slog.String("detail", e.Detail),
	)
}

// ProgressSink receives progress events. Implementations must return quickly.
type ProgressSink interface {
	OnProgress(event ProgressEvent)
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(event ProgressEvent)

// OnProgress calls f.
func (f SinkFunc) OnProgress(event ProgressEvent) { f(event) }

// DiscardSink drops every event.
var DiscardSink ProgressSink = SinkFunc(func(ProgressEvent) {})

// StoredFile is a produced download registered for later retrieval.
type StoredFile struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Path            string     `json:"-"`
	Size            int64      `json:"size"`
	Resolution      Resolution `json:"resolution"`
	EffectiveHeight int        `json:"effectiveHeight,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	ExpiresAt       time.Time  `json:"expiresAt"`
}

// LogValue implements the slog.LogValuer interface for structured logging.
func (f StoredFile) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", f.ID),
		slog.String("name", f.Name),
		slog.String("path", f.Path),
		slog.Int64("size", f.Size),
		slog.Time("expires_at", f.ExpiresAt),
	)
}
