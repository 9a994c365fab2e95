package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tubefetch/internal/downloader"
	"tubefetch/internal/entity"
	"tubefetch/internal/errs"
	"tubefetch/pkg/calc"
	"tubefetch/pkg/ptr"
)

// tracker converts raw service progress into ProgressEvents for one download.
// Throughput is measured from the moment the tracker was created.
// The service may call OnProgress from its own goroutine, so a panicking sink is
// recovered there: the sink is dropped and the download is canceled.
type tracker struct {
	log    *slog.Logger
	sink   entity.ProgressSink
	now    func() time.Time
	start  time.Time
	cancel context.CancelFunc

	mu     sync.Mutex
	failed *errs.PhaseError
}

func newTracker(log *slog.Logger, sink entity.ProgressSink, now func() time.Time, cancel context.CancelFunc) *tracker {
	return &tracker{log: log, sink: sink, now: now, start: now(), cancel: cancel}
}

// failure returns the recovered sink panic, if any.
func (t *tracker) failure() *errs.PhaseError {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.failed
}

func (t *tracker) elapsed() time.Duration {
	return t.now().Sub(t.start)
}

// OnProgress is the downloader.Hook for this download.
func (t *tracker) OnProgress(p downloader.Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			t.failed = errs.Recovered(r)
			t.sink = entity.DiscardSink
			t.log.Error("progress sink panicked", slog.Any("error", t.failed))
			t.cancel()
		}
	}()

	elapsed := t.elapsed()

	ev := entity.ProgressEvent{
		Status:          p.Status,
		DownloadedBytes: p.DownloadedBytes,
		TotalBytes:      p.TotalBytes,
		Elapsed:         elapsed,
		Throughput:      calc.Throughput(p.DownloadedBytes, elapsed),
		Filename:        p.Filename,
	}

	switch p.Status {
	case entity.ProgressDownloading:
		if f, ok := calc.Fraction(p.DownloadedBytes, p.TotalBytes); ok {
			ev.Fraction = ptr.Of(min(f, 1))
		}
	case entity.ProgressFinished:
		ev.Fraction = ptr.Of(1.0)
		ev.Detail = "download complete, post-processing may follow"
	case entity.ProgressError:
		ev.Detail = p.Detail
		t.log.Error("download reported an error", slog.Any("event", ev))
	default:
		return
	}

	t.sink.OnProgress(ev)
}
