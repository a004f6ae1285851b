package service

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"sync"

	securejoin "github.com/cyphar/filepath-securejoin"

	"bot-api-relay/internal/config"
	"bot-api-relay/internal/metrics"
	"bot-api-relay/internal/storage"
	"bot-api-relay/internal/stream"
)

var (
	// ErrInvalidPath is returned when a path segment contains a traversal sequence.
	ErrInvalidPath = errors.New("invalid path")
	// ErrNotFound is returned when the requested file cannot be stat'ed or opened.
	ErrNotFound = errors.New("file not found")
)

const defaultContentType = "application/octet-stream"

// FileService resolves download requests against the storage root.
type FileService struct {
	root      string
	chunkSize int
	fs        storage.FS
	reaper    *storage.Reaper
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewFileService creates a FileService. The metrics parameter is optional.
func NewFileService(cfg *config.Config, fsys storage.FS, reaper *storage.Reaper, logger *slog.Logger, m *metrics.Metrics) *FileService {
	return &FileService{
		root:      cfg.Storage.Root,
		chunkSize: cfg.Storage.ChunkSizeBytes,
		fs:        fsys,
		reaper:    reaper,
		logger:    logger.With("component", "file_service"),
		metrics:   m,
	}
}

// Open validates the bot and file segments and opens the file beneath the
// storage root. Segments containing ".." are rejected before the filesystem
// is touched. The caller must Close the returned handle.
func (s *FileService) Open(token, filePath string) (*FileHandle, error) {
	if strings.Contains(token, "..") || strings.Contains(filePath, "..") {
		s.record(metrics.OutcomeInvalid)
		return nil, ErrInvalidPath
	}

	// Symlinks below the root are resolved without leaving it. The resolved
	// path is what gets streamed and, after a full delivery, removed: a link
	// that was requested stays behind and dangles once its target is gone.
	path, err := securejoin.SecureJoin(s.root, filepath.Join(token, filePath))
	if err != nil {
		s.record(metrics.OutcomeNotFound)
		return nil, fmt.Errorf("%w: resolve: %w", ErrNotFound, err)
	}

	info, err := s.fs.Stat(path)
	if err != nil {
		s.record(metrics.OutcomeNotFound)
		return nil, fmt.Errorf("%w: stat: %w", ErrNotFound, err)
	}
	if info.IsDir() {
		s.record(metrics.OutcomeNotFound)
		return nil, fmt.Errorf("%w: is a directory", ErrNotFound)
	}

	f, err := s.fs.Open(path)
	if err != nil {
		// Removed between stat and open, typically by a concurrent delivery.
		s.record(metrics.OutcomeNotFound)
		return nil, fmt.Errorf("%w: open: %w", ErrNotFound, err)
	}

	return &FileHandle{
		path: path,
		size: info.Size(),
		file: f,
		svc:  s,
	}, nil
}

func (s *FileService) record(outcome string) {
	if s.metrics != nil {
		s.metrics.FileDeliveries.WithLabelValues(outcome).Inc()
	}
}

// FileHandle is one streaming session over an opened file. Each session owns
// its own byte counter; concurrent downloads of the same path never share one.
type FileHandle struct {
	path      string
	size      int64
	file      storage.File
	svc       *FileService
	delivered stream.Counter
	closeOnce sync.Once
	completed bool
}

// Size returns the file size observed when the handle was opened.
func (h *FileHandle) Size() int64 {
	return h.size
}

// ContentType infers the media type from the file extension.
func (h *FileHandle) ContentType() string {
	if ct := mime.TypeByExtension(filepath.Ext(h.path)); ct != "" {
		return ct
	}
	return defaultContentType
}

// Delivered returns the number of bytes written to the client so far.
func (h *FileHandle) Delivered() uint64 {
	return h.delivered.Load()
}

// WriteTo streams at most Size bytes to w in bounded chunks, counting every
// byte the client accepted.
func (h *FileHandle) WriteTo(w io.Writer) (int64, error) {
	n, err := stream.Copy(w, io.LimitReader(h.file, h.size), h.svc.chunkSize, &h.delivered)
	if h.svc.metrics != nil {
		h.svc.metrics.BytesStreamed.WithLabelValues("file").Add(float64(n))
	}
	return n, err
}

// Close ends the session. The file is scheduled for removal only when the
// whole file, as sized at open time, reached the client; otherwise it stays
// on disk. Close reports whether the delivery was complete and is safe to
// call more than once.
func (h *FileHandle) Close() bool {
	h.closeOnce.Do(func() {
		if err := h.file.Close(); err != nil {
			h.svc.logger.Debug("close file", "err", err)
		}

		delivered := h.delivered.Load()
		if delivered != uint64(h.size) {
			h.svc.record(metrics.OutcomePartial)
			h.svc.logger.Info("partial delivery; keeping file",
				"file", filepath.Base(h.path),
				"delivered", delivered,
				"size", h.size,
			)
			return
		}

		h.completed = true
		h.svc.record(metrics.OutcomeComplete)
		h.svc.reaper.Schedule(h.path)
	})
	return h.completed
}
