package storage

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tubefetch/internal/entity"
)

// CleanupExpiredFiles removes expired files from disk and from the registry every interval
// until ctx is done.
func (stg *storage) CleanupExpiredFiles(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log := stg.log.With(slog.String("action", "cleanup_expired_files"), slog.Duration("interval", interval))

	for {
		select {
		case <-ticker.C:
			stg.performCleanup(ctx)
		case <-ctx.Done():
			log.Info("cleanup expired files stopped")

			return
		}
	}
}

func (stg *storage) performCleanup(ctx context.Context) {
	log := stg.log

	stg.mu.Lock()
	expired := stg.takeExpired(time.Now())
	stg.metrics.SetStoredFiles(len(stg.files))
	stg.mu.Unlock()

	if len(expired) == 0 {
		log.DebugContext(ctx, "no expired files found to clean up")

		return
	}

	log.InfoContext(ctx, "about to remove expired files", slog.Int("count", len(expired)))

	deleted := 0

	for _, f := range expired {
		if stg.removeFile(ctx, f) {
			deleted++
		}
	}

	stg.metrics.RecordCleanup(deleted)
}

// takeExpired drops expired entries from the registry and returns them. Callers hold mu.
func (stg *storage) takeExpired(now time.Time) []entity.StoredFile {
	var expired []entity.StoredFile

	for id, f := range stg.files {
		if !f.ExpiresAt.After(now) {
			expired = append(expired, f)
			delete(stg.files, id)
		}
	}

	return expired
}

func (stg *storage) removeFile(ctx context.Context, f entity.StoredFile) bool {
	log := stg.log.With(slog.Any("file", f))

	if !filepath.IsAbs(f.Path) {
		log.ErrorContext(ctx, "non-absolute path found")

		return false
	}

	err := os.Remove(f.Path)

	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.DebugContext(ctx, "expired file already gone")

		return false
	case err != nil:
		log.ErrorContext(ctx, "failed to delete file", slog.Any("error", err))

		return false
	}

	log.DebugContext(ctx, "successfully deleted file")

	return true
}
