//go:build integration

package integration_test

import (
	_ "embed"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"tubefetch/internal/app"
	"tubefetch/internal/config"
	"tubefetch/internal/consts"
	"tubefetch/internal/observability"

	"github.com/prometheus/client_golang/prometheus"
)

const testURL = "https://www.youtube.com/watch?v=fake-123"

//go:embed testdata/fake-ytdlp.sh
var fakeYTDLPScript string

type fixture struct {
	cfg     *config.Config
	app     *app.App
	metrics *observability.Metrics
	log     *slog.Logger
}

// newFixture puts a fake yt-dlp first in PATH and builds the app the way main does.
func newFixture(t *testing.T, mode string) *fixture {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("fake yt-dlp is a shell script")
	}

	baseDir := t.TempDir()
	binsDir := filepath.Join(baseDir, "bins")

	if err := os.MkdirAll(binsDir, 0o755); err != nil {
		t.Fatalf("mkdir bins dir: %v", err)
	}

	if err := os.WriteFile(filepath.Join(binsDir, "yt-dlp"), []byte(fakeYTDLPScript), 0o755); err != nil {
		t.Fatalf("write fake yt-dlp: %v", err)
	}

	t.Setenv("PATH", binsDir+string(os.PathListSeparator)+"/usr/bin"+string(os.PathListSeparator)+"/bin")
	t.Setenv("TUBEFETCH_FAKE_MODE", mode)

	cfg, err := config.New()
	if err != nil {
		t.Fatalf("config new: %v", err)
	}

	cfg.Download.Downloader = consts.DownloaderYTdlp
	cfg.DepManager.UseSystemBinaries = true
	cfg.DepManager.BinsDir = binsDir
	cfg.Dir.Downloads = filepath.Join(baseDir, "downloads")
	cfg.Dir.Cache = filepath.Join(baseDir, "cache")
	cfg.Dir.CookieFile = ""
	cfg.HTTP.HandlerTimeout = 5 * time.Second
	cfg.HTTP.DownloadTimeout = 10 * time.Second

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewWithRegistry(prometheus.NewRegistry())

	a, err := app.New(t.Context(), log, cfg, metrics)
	if err != nil {
		t.Fatalf("app new: %v", err)
	}

	return &fixture{cfg: cfg, app: a, metrics: metrics, log: log}
}
