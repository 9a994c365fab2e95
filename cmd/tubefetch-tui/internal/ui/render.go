package ui

import (
	"fmt"
	"strings"
	"time"

	"tubefetch/internal/entity"
	"tubefetch/internal/errs"
	"tubefetch/internal/service"
	"tubefetch/pkg/calc"
	"tubefetch/pkg/humanfmt"
	"tubefetch/pkg/ptr"

	"github.com/rivo/tview"
)

const barWidth = 30

// renderInfo formats fetched metadata for the info box.
func renderInfo(info *service.Info) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[yellow]Title:[white]    %s\n", tview.Escape(info.Title))

	if info.Uploader != "" {
		fmt.Fprintf(&b, "[yellow]Uploader:[white] %s\n", tview.Escape(info.Uploader))
	}

	fmt.Fprintf(&b, "[yellow]Duration:[white] %s\n", info.Duration)
	fmt.Fprintf(&b, "[yellow]Views:[white]    %s\n", info.Views)

	if info.Thumbnail != "" {
		fmt.Fprintf(&b, "[yellow]Thumbnail:[white] %s\n", tview.Escape(info.Thumbnail))
	}

	return b.String()
}

// renderFormats lists the combined mp4 streams.
func renderFormats(info *service.Info) string {
	var b strings.Builder

	for _, line := range info.Formats {
		b.WriteString(" • ")
		b.WriteString(tview.Escape(line))
		b.WriteString("\n")
	}

	return b.String()
}

// progressBar draws a fixed width bar. An unknown fraction draws an empty bar with "?%".
func progressBar(fraction *float64, width int) string {
	if fraction == nil {
		return "[" + strings.Repeat("-", width) + "]   ?%"
	}

	f := min(max(*fraction, 0), 1)
	filled := int(f * float64(width))

	return fmt.Sprintf("[%s%s] %3d%%", strings.Repeat("#", filled), strings.Repeat("-", width-filled), calc.Percent(f))
}

// renderProgress formats one progress event for the progress box.
func renderProgress(ev entity.ProgressEvent) string {
	switch ev.Status {
	case entity.ProgressFinished:
		return fmt.Sprintf("[green]%s[white]\n%s, %s", tview.Escape(progressBar(ptr.Of(1.0), barWidth)),
			humanfmt.ByteSize(ev.DownloadedBytes), ev.Detail)
	case entity.ProgressError:
		return "[red]error:[white] " + tview.Escape(ev.Detail)
	}

	line := tview.Escape(progressBar(ev.Fraction, barWidth)) + "\n"

	if ev.TotalBytes > 0 {
		line += fmt.Sprintf("%s / %s", humanfmt.ByteSize(ev.DownloadedBytes), humanfmt.ByteSize(ev.TotalBytes))
	} else {
		line += humanfmt.ByteSize(ev.DownloadedBytes)
	}

	line += fmt.Sprintf("  %s/s", humanfmt.ByteSize(ev.Throughput))

	if eta := calc.ETA(ev.DownloadedBytes, ev.TotalBytes, ev.Elapsed); eta > 0 {
		line += "  ETA " + eta.Round(time.Second).String()
	}

	return line
}

// renderDownload summarizes a finished download.
func renderDownload(dl *service.Download, fileDir string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[green]Saved[white] %s (%s)\n", tview.Escape(dl.Result.Name), humanfmt.ByteSize(dl.Result.Size))
	fmt.Fprintf(&b, "in %s\n", tview.Escape(fileDir))

	if dl.Result.Downgraded {
		fmt.Fprintf(&b, "[yellow]requested %s, got %dp[white]\n", dl.Result.Requested, dl.Result.EffectiveHeight)
	}

	for _, w := range dl.Result.Warnings {
		fmt.Fprintf(&b, "[yellow]warning:[white] %s\n", tview.Escape(w))
	}

	return b.String()
}

// renderError formats a failure with its hint, if any.
func renderError(err error) string {
	text := "[red]" + tview.Escape(err.Error()) + "[white]"

	if hint := errs.HintOf(err); hint != "" {
		text += "\n[yellow]hint:[white] " + tview.Escape(hint)
	}

	return text
}
