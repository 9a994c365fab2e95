package storage_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/synctest"
	"time"

	"tubefetch/internal/config"
	"tubefetch/internal/entity"
	"tubefetch/internal/errs"
	"tubefetch/internal/observability"
	"tubefetch/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
)

func newStorer(ctx context.Context) storage.Storer {
	cfg := &config.Config{Storage: config.Storage{TTL: 2 * time.Hour, CleanupInterval: time.Hour}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return storage.New(ctx, log, cfg, observability.NewWithRegistry(prometheus.NewRegistry()))
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("mp4"), 0o644); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestPutGet(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		storer := newStorer(ctx)

		stored := storer.Put(ctx, entity.StoredFile{ID: "a", Name: "clip_720p.mp4", Path: "/downloads/clip_720p.mp4"})
		if got := stored.ExpiresAt.Sub(stored.CreatedAt); got != 2*time.Hour {
			t.Errorf("lifetime = %v, want 2h", got)
		}

		got, err := storer.Get(ctx, "a")
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}

		if got.Name != "clip_720p.mp4" {
			t.Errorf("Name = %q", got.Name)
		}

		if _, err := storer.Get(ctx, "missing"); !errors.Is(err, errs.ErrFileNotFound) {
			t.Errorf("Get(missing) error = %v, want ErrFileNotFound", err)
		}
	})
}

func TestPutReplacesSamePath(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		storer := newStorer(ctx)

		storer.Put(ctx, entity.StoredFile{ID: "old", Path: "/downloads/clip_720p.mp4"})

		time.Sleep(time.Minute)

		storer.Put(ctx, entity.StoredFile{ID: "new", Path: "/downloads/clip_720p.mp4"})
		storer.Put(ctx, entity.StoredFile{ID: "other", Path: "/downloads/other_720p.mp4"})

		if _, err := storer.Get(ctx, "old"); !errors.Is(err, errs.ErrFileNotFound) {
			t.Errorf("Get(old) error = %v, want ErrFileNotFound", err)
		}

		files := storer.List(ctx)
		if len(files) != 2 {
			t.Fatalf("List() returned %d files, want 2", len(files))
		}

		// same timestamp, ordered by id
		if files[0].ID != "new" || files[1].ID != "other" {
			t.Errorf("List() order = %s, %s", files[0].ID, files[1].ID)
		}
	})
}

func TestCleanupExpiredFiles(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		dir := t.TempDir()
		storer := newStorer(ctx)

		expiring := writeFile(t, dir, "expiring_720p.mp4")
		storer.Put(ctx, entity.StoredFile{ID: "expiring", Path: expiring})

		time.Sleep(90 * time.Minute)

		fresh := writeFile(t, dir, "fresh_720p.mp4")
		storer.Put(ctx, entity.StoredFile{ID: "fresh", Path: fresh})

		// past the first entry's expiry and the next tick
		time.Sleep(90 * time.Minute)
		synctest.Wait()

		if _, err := storer.Get(ctx, "expiring"); !errors.Is(err, errs.ErrFileNotFound) {
			t.Errorf("Get(expiring) error = %v, want ErrFileNotFound", err)
		}

		if _, err := os.Stat(expiring); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expired file still on disk: %v", err)
		}

		if _, err := storer.Get(ctx, "fresh"); err != nil {
			t.Errorf("Get(fresh) failed: %v", err)
		}

		if _, err := os.Stat(fresh); err != nil {
			t.Errorf("fresh file removed: %v", err)
		}
	})
}

func TestCleanupSkipsRelativePaths(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		defer cancel()

		storer := newStorer(ctx)
		storer.Put(ctx, entity.StoredFile{ID: "rel", Path: "relative_720p.mp4"})

		time.Sleep(3 * time.Hour)
		synctest.Wait()

		if files := storer.List(ctx); len(files) != 0 {
			t.Errorf("List() = %v, want the entry dropped", files)
		}
	})
}
