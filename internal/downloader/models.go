package downloader

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"tubefetch/internal/entity"
	"tubefetch/pkg/maths"
	"tubefetch/pkg/ptr"
	"tubefetch/pkg/shellquote"

	"github.com/lrstanley/go-ytdlp"
)

var (
	maxJSONSize = 10 * 1024 * 1024                                       // 10 MiB scanner buffer
	bufSize     = 4096                                                   // 4 KiB buffer size
	reFilepath  = regexp.MustCompile(`(?i)^[^\{\[\n].*\.[a-z0-9]{1,6}$`) // file path
)

// Result wraps ytdlp.Result for custom logging.
type Result struct {
	*ytdlp.Result
}

// LogValue implements the slog.LogValuer interface for custom logging of Result.
func (r Result) LogValue() slog.Value {
	if r.Result == nil {
		return slog.GroupValue(slog.String("error", "nil result"))
	}

	var logs strings.Builder
	for _, l := range r.OutputLogs {
		fmt.Fprintf(&logs, "%+v\n", l)
	}

	return slog.GroupValue(
		slog.String("command", shellquote.Join(r.Executable, r.Args)),
		slog.String("stderr", r.Stderr),
		slog.Int("stdout_len", len(r.Stdout)),
		slog.String("output_logs", logs.String()),
	)
}

// ProgressUpdate wraps ytdlp.ProgressUpdate for custom logging.
type ProgressUpdate struct {
	*ytdlp.ProgressUpdate
}

// LogValue implements the slog.LogValuer interface for custom logging of ProgressUpdate.
func (p ProgressUpdate) LogValue() slog.Value {
	if p.ProgressUpdate == nil {
		return slog.GroupValue(slog.String("error", "nil progress update"))
	}

	return slog.GroupValue(
		slog.String("filename", p.Filename),
		slog.String("status", string(p.Status)),
		slog.Int("downloaded_bytes", p.DownloadedBytes),
		slog.Int("total_bytes", p.TotalBytes),
		slog.Int("fragment_index", p.FragmentIndex),
		slog.Int("fragment_count", p.FragmentCount),
		slog.Time("started", p.Started),
	)
}

// ResultJSON is the subset of the yt-dlp info JSON the application reads.
// Numbers are pointers because yt-dlp emits null for unknown values and floats for
// some integer fields.
type ResultJSON struct {
	Type       string       `json:"_type"`
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Uploader   string       `json:"uploader"`
	Channel    string       `json:"channel"`
	Duration   *float64     `json:"duration"`
	ViewCount  *float64     `json:"view_count"`
	Thumbnail  string       `json:"thumbnail"`
	WebpageURL string       `json:"webpage_url"`
	Extractor  string       `json:"extractor"`
	FormatID   string       `json:"format_id"`
	Ext        string       `json:"ext"`
	Height     *float64     `json:"height"`
	Formats    []FormatJSON `json:"formats"`

	// Filename is taken from the line following the JSON, see ParseStdout.
	Filename string `json:"-"`
}

// FormatJSON is one entry of the formats array.
type FormatJSON struct {
	FormatID       string   `json:"format_id"`
	Ext            string   `json:"ext"`
	VCodec         string   `json:"vcodec"`
	ACodec         string   `json:"acodec"`
	Height         *float64 `json:"height"`
	FPS            *float64 `json:"fps"`
	FileSize       *float64 `json:"filesize"`
	FileSizeApprox *float64 `json:"filesize_approx"`
	FormatNote     string   `json:"format_note"`
}

// Metadata maps the info JSON to the entity model.
func (r ResultJSON) Metadata() *entity.VideoMetadata {
	uploader := r.Uploader
	if uploader == "" {
		uploader = r.Channel
	}

	meta := &entity.VideoMetadata{
		ID:           r.ID,
		Title:        r.Title,
		Uploader:     uploader,
		Duration:     max(0, maths.RoundFloat64ToInt(ptr.Deref(r.Duration))),
		ViewCount:    maths.OptionalInt64(r.ViewCount),
		ThumbnailURL: r.Thumbnail,
		WebpageURL:   r.WebpageURL,
		Formats:      make([]entity.StreamDescriptor, 0, len(r.Formats)),
	}

	for _, f := range r.Formats {
		meta.Formats = append(meta.Formats, f.Stream())
	}

	return meta
}

// Stream maps a format entry to the entity model.
func (f FormatJSON) Stream() entity.StreamDescriptor {
	return entity.StreamDescriptor{
		FormatID:       f.FormatID,
		Ext:            f.Ext,
		VCodec:         f.VCodec,
		ACodec:         f.ACodec,
		Height:         maths.OptionalInt(f.Height),
		FPS:            f.FPS,
		FileSize:       maths.OptionalInt64(f.FileSize),
		FileSizeApprox: maths.OptionalInt64(f.FileSizeApprox),
		FormatNote:     f.FormatNote,
	}
}

// Report summarizes a finished download.
func (r ResultJSON) Report() *Report {
	return &Report{
		Filename: r.Filename,
		FormatID: r.FormatID,
		Ext:      r.Ext,
		Height:   maths.RoundFloat64ToInt(ptr.Deref(r.Height)),
	}
}

// ParseStdout parses the stdout of yt-dlp and returns a slice of ResultJSON with their filenames.
// A path line printed after a JSON line is attributed to that JSON line.
func ParseStdout(stdout string) ([]ResultJSON, error) {
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, bufSize), maxJSONSize)

	var res []ResultJSON

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var r ResultJSON
		if err := json.Unmarshal([]byte(line), &r); err == nil {
			res = append(res, r)

			continue
		}

		if len(res) > 0 && reFilepath.MatchString(line) {
			res[len(res)-1].Filename = line
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan stdout: %w", err)
	}

	return res, nil
}

// toProgress converts a yt-dlp update, dropping states the application does not relay.
func toProgress(update ytdlp.ProgressUpdate) (Progress, bool) {
	prog := Progress{
		DownloadedBytes: int64(update.DownloadedBytes),
		TotalBytes:      int64(update.TotalBytes),
		Filename:        update.Filename,
	}

	switch string(update.Status) {
	case string(entity.ProgressDownloading):
		prog.Status = entity.ProgressDownloading
	case string(entity.ProgressFinished):
		prog.Status = entity.ProgressFinished
	case string(entity.ProgressError):
		prog.Status = entity.ProgressError
	default:
		return Progress{}, false
	}

	return prog, true
}
