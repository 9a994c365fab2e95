package config_test

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tubefetch/internal/config"
	"tubefetch/internal/entity"
	"tubefetch/internal/errs"
)

func mustAbs(t *testing.T, path string) string {
	t.Helper()

	abs, err := filepath.Abs(path)
	if err != nil {
		t.Fatalf("filepath.Abs(%q): %v", path, err)
	}

	return abs
}

func TestNewDefaults(t *testing.T) {
	got, err := config.New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if got.HTTP.Port != ":8080" {
		t.Errorf("HTTP.Port = %q, want :8080", got.HTTP.Port)
	}

	if got.Download.Downloader != "ytdlp" {
		t.Errorf("Download.Downloader = %q, want ytdlp", got.Download.Downloader)
	}

	if got.Download.Resolution != entity.Resolution720p {
		t.Errorf("Download.Resolution = %q, want 720p", got.Download.Resolution)
	}

	if got.Storage.TTL != 24*time.Hour {
		t.Errorf("Storage.TTL = %v, want 24h", got.Storage.TTL)
	}

	for name, path := range map[string]string{
		"downloads": got.Dir.Downloads,
		"cache":     got.Dir.Cache,
		"bins":      got.DepManager.BinsDir,
	} {
		if !filepath.IsAbs(path) {
			t.Errorf("%s: expected absolute path, got %s", name, path)
		}
	}

	if got.Dir.CookieFile != "" {
		t.Errorf("Dir.CookieFile = %q, want empty", got.Dir.CookieFile)
	}
}

func TestNewEnvFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		check   func(t *testing.T, cfg *config.Config)
		wantErr error
	}{
		{
			name: "custom values",
			file: "testdata/.env.custom",
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()

				if want := mustAbs(t, "./custom/downloads"); cfg.Dir.Downloads != want {
					t.Errorf("Dir.Downloads = %q, want %q", cfg.Dir.Downloads, want)
				}

				if want := mustAbs(t, "./custom/cookies.txt"); cfg.Dir.CookieFile != want {
					t.Errorf("Dir.CookieFile = %q, want %q", cfg.Dir.CookieFile, want)
				}

				if cfg.Download.Resolution != entity.Resolution480p {
					t.Errorf("Download.Resolution = %q, want 480p", cfg.Download.Resolution)
				}

				if cfg.Download.Downloader != "mock" {
					t.Errorf("Download.Downloader = %q, want mock", cfg.Download.Downloader)
				}

				if cfg.Storage.TTL != 2*time.Hour {
					t.Errorf("Storage.TTL = %v, want 2h", cfg.Storage.TTL)
				}
			},
		},
		{
			name: "process env wins over file",
			file: "testdata/.env.custom",
			env:  map[string]string{"TUBEFETCH_STORAGE_TTL": "30m"},
			check: func(t *testing.T, cfg *config.Config) {
				t.Helper()

				if cfg.Storage.TTL != 30*time.Minute {
					t.Errorf("Storage.TTL = %v, want 30m", cfg.Storage.TTL)
				}
			},
		},
		{
			name:    "bad resolution",
			file:    "testdata/.env.bad_resolution",
			wantErr: errs.ErrInvalidResolution,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := config.New(tt.file)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
				}

				return
			}

			if err != nil {
				t.Fatalf("New() failed: %v", err)
			}

			tt.check(t, got)
		})
	}
}

func TestNewErrors(t *testing.T) {
	t.Run("missing explicit file", func(t *testing.T) {
		if _, err := config.New("testdata/.env.missing"); err == nil {
			t.Error("expected error for a missing env file")
		}
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("TUBEFETCH_HTTP_HANDLER_TIMEOUT", "soon")

		if _, err := config.New(); err == nil {
			t.Error("expected error for an unparsable duration")
		}
	})

	t.Run("unknown downloader", func(t *testing.T) {
		t.Setenv("TUBEFETCH_DOWNLOAD_DOWNLOADER", "wget")

		if _, err := config.New(); err == nil {
			t.Error("expected error for an unknown downloader")
		}
	})
}

func TestNewZeroDurationsFallBack(t *testing.T) {
	t.Setenv("TUBEFETCH_HTTP_HANDLER_TIMEOUT", "0s")
	t.Setenv("TUBEFETCH_HTTP_DOWNLOAD_TIMEOUT", "0s")
	t.Setenv("TUBEFETCH_STORAGE_CLEANUP_INTERVAL", "0s")
	t.Setenv("TUBEFETCH_DOWNLOAD_PROGRESS_FREQ", "0s")

	got, err := config.New()
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if got.HTTP.HandlerTimeout != 30*time.Second || got.HTTP.DownloadTimeout != 30*time.Minute {
		t.Errorf("HTTP timeouts = %v, %v", got.HTTP.HandlerTimeout, got.HTTP.DownloadTimeout)
	}

	if got.Storage.CleanupInterval != time.Hour || got.Download.ProgressFreq != 200*time.Millisecond {
		t.Errorf("CleanupInterval = %v, ProgressFreq = %v", got.Storage.CleanupInterval, got.Download.ProgressFreq)
	}
}
