package service

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sketchgen/capprep/internal/logger"
	"github.com/sketchgen/capprep/internal/storage"
)

// PublishService uploads a prepared train dir and its manifest to object
// storage so training jobs can pull the dataset from one place.
type PublishService struct {
	storage storage.ObjectStorage
	logger  *logger.Logger
	prefix  string
}

// NewPublishService creates a new publish service. prefix is prepended to
// every object key.
func NewPublishService(store storage.ObjectStorage, log *logger.Logger, prefix string) *PublishService {
	return &PublishService{
		storage: store,
		logger:  log,
		prefix:  strings.TrimSuffix(prefix, "/"),
	}
}

// log returns a logger from context if available, otherwise returns the default logger
func (s *PublishService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// PublishStats holds counters for a publish run.
type PublishStats struct {
	Uploaded    int
	Skipped     int
	Failed      int
	Bytes       int64
	ManifestKey string
	ManifestURL string
	StartTime   time.Time
	EndTime     time.Time
}

// PublishOptions holds options for a publish run.
type PublishOptions struct {
	Force bool // If true, re-upload keys that already exist
}

// Run uploads every file in trainDir under the key prefix, skipping keys
// that already exist unless force is set, then uploads the manifest last
// so readers never see a manifest pointing at missing files.
// Parameters:
//   - ctx: context for cancellation, checked between files.
//   - trainDir: dataset directory to walk.
//   - manifestPath: manifest CSV uploaded after all data files; empty
//     skips the manifest.
//
// Returns:
//   - *PublishStats: upload counters.
//   - error: non-nil when the walk fails or the manifest upload fails.
//     Per-file upload failures are counted, not returned.
func (s *PublishService) Run(ctx context.Context, trainDir, manifestPath string, opts *PublishOptions) (*PublishStats, error) {
	if opts == nil {
		opts = &PublishOptions{}
	}

	stats := &PublishStats{StartTime: time.Now()}

	s.log(ctx).WithFields(logger.Fields{
		"train_dir": trainDir,
		"prefix":    s.prefix,
		"force":     opts.Force,
	}).Info("Starting publish")

	manifestAbs := ""
	if manifestPath != "" {
		manifestAbs = filepath.Clean(manifestPath)
	}

	err := filepath.WalkDir(trainDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// The manifest goes last, even when it lives inside the train dir
		if manifestAbs != "" && filepath.Clean(path) == manifestAbs {
			return nil
		}

		// Stat follows symlinks so linked images publish their content
		info, err := os.Stat(path)
		if err != nil {
			s.log(ctx).WithError(err).WithField("path", path).Warn("Failed to stat file")
			stats.Failed++
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		key := s.key(filepath.Base(path))

		if !opts.Force {
			exists, err := s.storage.Exists(ctx, key)
			if err == nil && exists {
				stats.Skipped++
				return nil
			}
		}

		if err := s.upload(ctx, path, key, info.Size()); err != nil {
			s.log(ctx).WithError(err).WithField("key", key).Warn("Failed to upload file")
			stats.Failed++
			return nil
		}
		stats.Uploaded++
		stats.Bytes += info.Size()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk train dir: %w", err)
	}

	if manifestPath != "" {
		info, err := os.Stat(manifestPath)
		if err != nil {
			return nil, fmt.Errorf("failed to stat manifest: %w", err)
		}
		key := s.key(filepath.Base(manifestPath))
		if err := s.upload(ctx, manifestPath, key, info.Size()); err != nil {
			return nil, fmt.Errorf("failed to upload manifest: %w", err)
		}
		stats.Uploaded++
		stats.Bytes += info.Size()
		stats.ManifestKey = key
		stats.ManifestURL = s.storage.GetURL(key)
	}

	stats.EndTime = time.Now()

	s.log(ctx).WithFields(logger.Fields{
		"uploaded": stats.Uploaded,
		"skipped":  stats.Skipped,
		"failed":   stats.Failed,
		"bytes":    stats.Bytes,
		"manifest": stats.ManifestURL,
		"duration": stats.EndTime.Sub(stats.StartTime).String(),
	}).Info("Publish complete")

	return stats, nil
}

func (s *PublishService) upload(ctx context.Context, path, key string, size int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return s.storage.Upload(ctx, key, f, size, fileContentType(path))
}

func (s *PublishService) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func fileContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".csv":
		return "text/csv"
	default:
		return getContentType(strings.TrimPrefix(ext, "."))
	}
}
