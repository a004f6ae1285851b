package storage

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"

	"bot-api-relay/internal/metrics"
)

// Reaper removes delivered files in the background. Removals are detached
// from the request that triggered them and run even if the client is gone.
type Reaper struct {
	fs      FS
	logger  *slog.Logger
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

// NewReaper creates a Reaper. The metrics parameter is optional.
func NewReaper(fsys FS, logger *slog.Logger, m *metrics.Metrics) *Reaper {
	return &Reaper{
		fs:      fsys,
		logger:  logger.With("component", "reaper"),
		metrics: m,
	}
}

// Schedule removes path asynchronously. A file that is already gone counts
// as removed; any other failure is only recorded, never returned.
func (r *Reaper) Schedule(path string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.remove(path)
	}()
}

func (r *Reaper) remove(path string) {
	err := r.fs.Remove(path)
	result := metrics.DeletionDeleted
	switch {
	case err == nil:
		r.logger.Debug("removed delivered file", "file", filepath.Base(path))
	case errors.Is(err, fs.ErrNotExist):
		result = metrics.DeletionAbsent
	default:
		result = metrics.DeletionFailed
		r.logger.Debug("remove delivered file", "file", filepath.Base(path), "err", err)
	}
	if r.metrics != nil {
		r.metrics.FileDeletions.WithLabelValues(result).Inc()
	}
}

// Wait blocks until all scheduled removals have finished or ctx is done.
func (r *Reaper) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
