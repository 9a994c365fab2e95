// Package storage keeps track of produced files until they expire.
package storage

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"tubefetch/internal/config"
	"tubefetch/internal/entity"
	"tubefetch/internal/errs"
	"tubefetch/internal/observability"
)

// Storer defines the interface for storage operations.
type Storer interface {
	// Put registers f, replacing any entry with the same ID or path, and stamps its lifetime.
	Put(ctx context.Context, f entity.StoredFile) entity.StoredFile
	// Get returns a live file or errs.ErrFileNotFound.
	Get(ctx context.Context, id string) (entity.StoredFile, error)
	// List returns live files, newest first.
	List(ctx context.Context) []entity.StoredFile

	CleanupExpiredFiles(ctx context.Context, interval time.Duration)
}

type storage struct {
	log     *slog.Logger
	ttl     time.Duration
	metrics *observability.Metrics

	mu    sync.RWMutex
	files map[string]entity.StoredFile // file ID : file
}

// New creates a new in-memory storage instance and starts its cleanup loop.
func New(ctx context.Context, log *slog.Logger, cfg *config.Config, metrics *observability.Metrics) Storer {
	stg := &storage{
		log:     log.With(slog.String("package", "storage")),
		ttl:     cfg.Storage.TTL,
		metrics: metrics,
		files:   make(map[string]entity.StoredFile),
	}

	go stg.CleanupExpiredFiles(ctx, cfg.Storage.CleanupInterval)

	return stg
}

func (stg *storage) Put(ctx context.Context, f entity.StoredFile) entity.StoredFile {
	now := time.Now()
	f.CreatedAt = now
	f.ExpiresAt = now.Add(stg.ttl)

	stg.mu.Lock()
	defer stg.mu.Unlock()

	// a new download to the same path overwrote the older file
	for id, old := range stg.files {
		if id != f.ID && old.Path == f.Path {
			delete(stg.files, id)
		}
	}

	stg.files[f.ID] = f
	stg.metrics.SetStoredFiles(len(stg.files))

	stg.log.DebugContext(ctx, "file stored", slog.Any("file", f))

	return f
}

func (stg *storage) Get(_ context.Context, id string) (entity.StoredFile, error) {
	stg.mu.RLock()
	defer stg.mu.RUnlock()

	f, ok := stg.files[id]
	if !ok || !f.ExpiresAt.After(time.Now()) {
		return entity.StoredFile{}, errs.ErrFileNotFound
	}

	return f, nil
}

func (stg *storage) List(_ context.Context) []entity.StoredFile {
	stg.mu.RLock()
	files := slices.Collect(maps.Values(stg.files))
	stg.mu.RUnlock()

	now := time.Now()
	files = slices.DeleteFunc(files, func(f entity.StoredFile) bool { return !f.ExpiresAt.After(now) })

	slices.SortFunc(files, func(a, b entity.StoredFile) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID, b.ID)
	})

	return files
}
