package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/sketchgen/capprep/internal/caption"
	"github.com/sketchgen/capprep/internal/dataset"
	"github.com/sketchgen/capprep/internal/domain"
	"github.com/sketchgen/capprep/internal/logger"
	"github.com/sketchgen/capprep/internal/pairing"
	"github.com/sketchgen/capprep/internal/repository"
)

// PrepareService builds the training dataset from a directory of caption
// files and a directory of images: captions are cleaned, pairs are placed
// into the train dir, a manifest CSV is written, and every pair is
// recorded in the catalog. Repositories may be nil, in which case catalog
// writes are skipped; the filesystem outputs always land.
type PrepareService struct {
	pairRepo   *repository.PairRepository
	runRepo    *repository.RunRepository
	sourceRepo *repository.SourceRepository
	logger     *logger.Logger
	cleaner    *caption.Cleaner
	cfg        PrepareConfig
}

// PrepareConfig holds configuration for the prepare service.
type PrepareConfig struct {
	CaptionsDir  string
	ImagesDir    string
	TrainDir     string
	ManifestPath string
	MinChars     int
	MaxWords     int
	Source       string
}

// NewPrepareService creates a new prepare service.
func NewPrepareService(
	pairRepo *repository.PairRepository,
	runRepo *repository.RunRepository,
	sourceRepo *repository.SourceRepository,
	log *logger.Logger,
	cfg PrepareConfig,
) *PrepareService {
	if cfg.MinChars <= 0 {
		cfg.MinChars = 5
	}
	if cfg.Source == "" {
		cfg.Source = "celeba-caption"
	}
	return &PrepareService{
		pairRepo:   pairRepo,
		runRepo:    runRepo,
		sourceRepo: sourceRepo,
		logger:     log,
		cleaner:    caption.NewCleaner(cfg.MaxWords),
		cfg:        cfg,
	}
}

// log returns a logger from context if available, otherwise returns the default logger
func (s *PrepareService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// PrepareStats holds statistics for a preparation run.
type PrepareStats struct {
	TotalCaptions int
	Prepared      int
	Skipped       int
	Failed        int
	Linked        int
	OriginalStats caption.Stats
	CleanedStats  caption.Stats
	ManifestPath  string
	TrainDir      string
	StartTime     time.Time
	EndTime       time.Time
}

// PrepareOptions holds options for a preparation run.
type PrepareOptions struct {
	Limit int // Maximum caption files to consider, 0 means all
}

type prepEntry struct {
	Stem        string
	ImageID     string
	ImagePath   string
	CaptionPath string
	Original    string
	Cleaned     string
}

// Run executes the full preparation pipeline.
// Parameters:
//   - ctx: context for cancellation, checked between files.
//   - opts: optional limits; nil means defaults.
//
// Returns:
//   - *PrepareStats: counters and caption statistics for the run.
//   - error: non-nil when no captions exist, nothing matches, or an
//     output artifact cannot be written.
func (s *PrepareService) Run(ctx context.Context, opts *PrepareOptions) (*PrepareStats, error) {
	if opts == nil {
		opts = &PrepareOptions{}
	}

	stats := &PrepareStats{
		ManifestPath: s.cfg.ManifestPath,
		TrainDir:     s.cfg.TrainDir,
		StartTime:    time.Now(),
	}

	s.log(ctx).WithFields(logger.Fields{
		"captions_dir": s.cfg.CaptionsDir,
		"images_dir":   s.cfg.ImagesDir,
		"train_dir":    s.cfg.TrainDir,
		"limit":        opts.Limit,
	}).Info("Starting preparation")

	run := s.startRun(ctx, opts)

	entries, err := s.collect(ctx, opts.Limit, stats)
	if err != nil {
		s.finishRun(ctx, run, stats, err)
		return nil, err
	}

	s.logSamples(ctx, entries)
	s.computeStats(entries, stats)

	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{e.ImageID, e.Original, e.Cleaned}
	}
	if err := dataset.WriteManifest(s.cfg.ManifestPath, dataset.ColumnsPrepared, rows); err != nil {
		err = fmt.Errorf("failed to write manifest: %w", err)
		s.finishRun(ctx, run, stats, err)
		return nil, err
	}
	s.log(ctx).WithFields(logger.Fields{
		"path":  s.cfg.ManifestPath,
		"count": len(rows),
	}).Info("Manifest written")

	if err := s.place(ctx, entries, run.ID, stats); err != nil {
		s.finishRun(ctx, run, stats, err)
		return nil, err
	}

	stats.EndTime = time.Now()
	s.recordSource(ctx, stats)
	s.finishRun(ctx, run, stats, nil)

	s.log(ctx).WithFields(logger.Fields{
		"total":    stats.TotalCaptions,
		"prepared": stats.Prepared,
		"skipped":  stats.Skipped,
		"failed":   stats.Failed,
		"linked":   stats.Linked,
		"duration": stats.EndTime.Sub(stats.StartTime).String(),
	}).Info("Preparation complete")

	return stats, nil
}

// recordSource registers the caption directory in the sources table.
func (s *PrepareService) recordSource(ctx context.Context, stats *PrepareStats) {
	if s.sourceRepo == nil {
		return
	}

	now := time.Now()
	rec := &domain.CaptionSource{
		ID:   uuid.New().String(),
		Name: s.cfg.Source,
		Type: domain.SourceTypeDirectory,
		Config: domain.SourceConfig{
			"captions_dir": s.cfg.CaptionsDir,
			"images_dir":   s.cfg.ImagesDir,
		},
		LastScanAt: &now,
		ItemCount:  stats.Prepared,
		IsEnabled:  true,
	}
	if err := s.sourceRepo.Upsert(ctx, rec); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to record caption source")
	}
}

// collect scans the caption dir and builds the cleaned entry list.
// Caption files without a matching image, unreadable files, and captions
// shorter than MinChars are skipped and counted.
func (s *PrepareService) collect(ctx context.Context, limit int, stats *PrepareStats) ([]prepEntry, error) {
	files, err := pairing.ScanCaptions(s.cfg.CaptionsDir, false)
	if err != nil {
		return nil, fmt.Errorf("failed to scan caption dir: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no caption files found in %s", s.cfg.CaptionsDir)
	}
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	stats.TotalCaptions = len(files)

	entries := make([]prepEntry, 0, len(files))
	for _, file := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		stem := pairing.Stem(file)
		imagePath, ok := pairing.FindImageForStem(s.cfg.ImagesDir, stem)
		if !ok {
			stats.Skipped++
			continue
		}

		text, err := caption.ReadFileUTF8(file)
		if err != nil {
			s.log(ctx).WithError(err).WithField(logger.FieldStem, stem).Warn("Skipping unreadable caption")
			stats.Skipped++
			continue
		}

		original := strings.TrimSpace(text)
		if utf8.RuneCountInString(original) < s.cfg.MinChars {
			stats.Skipped++
			continue
		}

		entries = append(entries, prepEntry{
			Stem:        stem,
			ImageID:     stem + filepath.Ext(imagePath),
			ImagePath:   imagePath,
			CaptionPath: file,
			Original:    original,
			Cleaned:     s.cleaner.Clean(original),
		})
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("no image-caption pairs matched between %s and %s", s.cfg.CaptionsDir, s.cfg.ImagesDir)
	}

	return entries, nil
}

// place populates the train dir and records each pair in the catalog.
func (s *PrepareService) place(ctx context.Context, entries []prepEntry, runID string, stats *PrepareStats) error {
	writer, err := dataset.NewWriter(s.cfg.TrainDir)
	if err != nil {
		return fmt.Errorf("failed to create train dir: %w", err)
	}

	for _, e := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		res, err := writer.Place(e.ImagePath, e.ImageID, e.Cleaned)
		if err != nil {
			s.log(ctx).WithError(err).WithField(logger.FieldStem, e.Stem).Warn("Failed to place pair")
			stats.Failed++
			continue
		}
		if res.Linked {
			stats.Linked++
		}
		stats.Prepared++

		s.recordPair(ctx, e, res, runID)
	}

	return nil
}

// recordPair upserts one pair into the catalog. Catalog writes are
// best-effort: a failure logs a warning, the filesystem output stands.
func (s *PrepareService) recordPair(ctx context.Context, e prepEntry, res dataset.PlaceResult, runID string) {
	if s.pairRepo == nil {
		return
	}

	pair := &domain.CaptionPair{
		ID:              uuid.New().String(),
		Stem:            e.Stem,
		ImageID:         e.ImageID,
		SourcePath:      e.ImagePath,
		DatasetPath:     res.ImagePath,
		Linked:          res.Linked,
		OriginalCaption: e.Original,
		CleanedCaption:  e.Cleaned,
		WordCount:       caption.WordCount(e.Cleaned),
		Encoding:        caption.EncodingUTF8,
		Format:          imageFormat(e.ImageID),
		Source:          s.cfg.Source,
		Status:          domain.PairStatusPrepared,
		RunID:           runID,
	}

	if data, err := os.ReadFile(e.ImagePath); err == nil {
		pair.MD5Hash = calculateMD5(data)
		pair.FileSize = int64(len(data))
		if w, h, err := getImageDimensions(data); err == nil {
			pair.Width = w
			pair.Height = h
		}
	}

	if err := s.pairRepo.Upsert(ctx, pair); err != nil {
		s.log(ctx).WithError(err).WithField(logger.FieldStem, e.Stem).Warn("Failed to record pair in catalog")
	}
}

func (s *PrepareService) logSamples(ctx context.Context, entries []prepEntry) {
	n := len(entries)
	if n > 3 {
		n = 3
	}
	for i := 0; i < n; i++ {
		s.log(ctx).WithFields(logger.Fields{
			"sample":   i + 1,
			"original": truncate(entries[i].Original, 70),
			"cleaned":  entries[i].Cleaned,
		}).Info("Sample cleaned caption")
	}
}

func (s *PrepareService) computeStats(entries []prepEntry, stats *PrepareStats) {
	originals := make([]string, len(entries))
	cleaneds := make([]string, len(entries))
	for i, e := range entries {
		originals[i] = e.Original
		cleaneds[i] = e.Cleaned
	}
	stats.OriginalStats = caption.Compute(originals, caption.Band{})
	stats.CleanedStats = caption.Compute(cleaneds, caption.Band{})

	s.logger.WithFields(logger.Fields{
		"matched":            len(entries),
		"original_avg_chars": stats.OriginalStats.Chars.Avg,
		"cleaned_avg_chars":  stats.CleanedStats.Chars.Avg,
		"original_avg_words": stats.OriginalStats.Words.Avg,
		"cleaned_avg_words":  stats.CleanedStats.Words.Avg,
	}).Info("Caption cleaning statistics")
}

func (s *PrepareService) startRun(ctx context.Context, opts *PrepareOptions) *domain.PrepRun {
	params, _ := json.Marshal(map[string]interface{}{
		"captions_dir": s.cfg.CaptionsDir,
		"images_dir":   s.cfg.ImagesDir,
		"train_dir":    s.cfg.TrainDir,
		"limit":        opts.Limit,
	})

	now := time.Now()
	run := &domain.PrepRun{
		ID:        uuid.New().String(),
		Kind:      domain.RunKindPrepare,
		Status:    domain.RunStatusRunning,
		Params:    string(params),
		StartedAt: &now,
	}
	if s.runRepo == nil {
		return run
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to record run start")
	}
	return run
}

func (s *PrepareService) finishRun(ctx context.Context, run *domain.PrepRun, stats *PrepareStats, runErr error) {
	if s.runRepo == nil {
		return
	}

	now := time.Now()
	run.Total = stats.TotalCaptions
	run.Processed = stats.Prepared
	run.Skipped = stats.Skipped
	run.Failed = stats.Failed
	run.CompletedAt = &now
	if runErr != nil {
		run.Status = domain.RunStatusFailed
		run.ErrorLog = runErr.Error()
	} else {
		run.Status = domain.RunStatusCompleted
	}
	if err := s.runRepo.Update(ctx, run); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to record run completion")
	}
}

// imageFormat reports the catalog format name for an image file name.
func imageFormat(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "jpg" {
		ext = "jpeg"
	}
	return ext
}

// truncate shortens a caption for sample display.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
