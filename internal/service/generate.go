package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sketchgen/capprep/internal/attributes"
	"github.com/sketchgen/capprep/internal/caption"
	"github.com/sketchgen/capprep/internal/dataset"
	"github.com/sketchgen/capprep/internal/domain"
	"github.com/sketchgen/capprep/internal/logger"
	"github.com/sketchgen/capprep/internal/repository"
	"github.com/sketchgen/capprep/internal/source"
)

// GenerateService synthesizes captions for an image source: every image
// gets a VLM base caption (cached by content hash), and images with a row
// in the attribute table get the styled template caption instead.
// Repositories may be nil, in which case catalog writes and the VLM
// caption cache are skipped.
type GenerateService struct {
	vlm        *VLMService
	genRepo    *repository.GeneratedCaptionRepository
	vlmCapRepo *repository.VLMCaptionRepository
	runRepo    *repository.RunRepository
	sourceRepo *repository.SourceRepository
	logger     *logger.Logger
	cleaner    *caption.Cleaner
	cfg        GenerateConfig
}

// GenerateConfig holds configuration for the generate service.
type GenerateConfig struct {
	AttrFile  string
	OutputCSV string
	MaxWords  int
	BatchSize int
}

// NewGenerateService creates a new generate service.
func NewGenerateService(
	vlm *VLMService,
	genRepo *repository.GeneratedCaptionRepository,
	vlmCapRepo *repository.VLMCaptionRepository,
	runRepo *repository.RunRepository,
	sourceRepo *repository.SourceRepository,
	log *logger.Logger,
	cfg GenerateConfig,
) *GenerateService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &GenerateService{
		vlm:        vlm,
		genRepo:    genRepo,
		vlmCapRepo: vlmCapRepo,
		runRepo:    runRepo,
		sourceRepo: sourceRepo,
		logger:     log,
		cleaner:    caption.NewCleaner(cfg.MaxWords),
		cfg:        cfg,
	}
}

// log returns a logger from context if available, otherwise returns the default logger
func (s *GenerateService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// GenerateStats holds counters for a generation run.
type GenerateStats struct {
	TotalImages  int
	Generated    int
	Styled       int
	Fallback     int
	CacheHits    int
	Failed       int
	ManifestPath string
	StartTime    time.Time
	EndTime      time.Time
}

// GenerateOptions holds options for a generation run.
type GenerateOptions struct {
	Force bool // If true, ignore cached VLM captions
}

// Run generates captions for every image in the source and writes the
// image,caption manifest.
// Parameters:
//   - ctx: context for cancellation, checked between images.
//   - src: image source to scan.
//   - limit: maximum images to process, 0 means all.
//   - opts: optional flags; nil means defaults.
//
// Returns:
//   - *GenerateStats: counters for the run.
//   - error: non-nil when the source is empty or the manifest cannot be
//     written. Per-image failures are counted, not returned.
func (s *GenerateService) Run(ctx context.Context, src source.Source, limit int, opts *GenerateOptions) (*GenerateStats, error) {
	if opts == nil {
		opts = &GenerateOptions{}
	}

	stats := &GenerateStats{
		ManifestPath: s.cfg.OutputCSV,
		StartTime:    time.Now(),
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldSource: src.GetSourceID(),
		"model":            s.vlm.GetModel(),
		"limit":            limit,
		"force":            opts.Force,
	}).Info("Starting caption generation")

	run := s.startRun(ctx, src, limit, opts)
	table := s.loadAttributes(ctx)

	var rows [][]string
	cursor := ""
	for {
		batch := s.cfg.BatchSize
		if limit > 0 {
			remaining := limit - stats.TotalImages
			if remaining <= 0 {
				break
			}
			if remaining < batch {
				batch = remaining
			}
		}

		items, next, err := src.FetchBatch(ctx, cursor, batch)
		if err != nil {
			err = fmt.Errorf("failed to fetch images: %w", err)
			s.finishRun(ctx, run, stats, err)
			return nil, err
		}

		for _, item := range items {
			select {
			case <-ctx.Done():
				s.finishRun(ctx, run, stats, ctx.Err())
				return nil, ctx.Err()
			default:
			}

			stats.TotalImages++
			if row, ok := s.processImage(ctx, item, table, run.ID, opts, stats); ok {
				rows = append(rows, row)
			}
		}

		if next == "" {
			break
		}
		cursor = next
	}

	if stats.TotalImages == 0 {
		err := fmt.Errorf("no image files found in source %s", src.GetSourceID())
		s.finishRun(ctx, run, stats, err)
		return nil, err
	}

	if err := dataset.WriteManifest(s.cfg.OutputCSV, dataset.ColumnsGenerated, rows); err != nil {
		err = fmt.Errorf("failed to write manifest: %w", err)
		s.finishRun(ctx, run, stats, err)
		return nil, err
	}

	stats.EndTime = time.Now()
	s.recordSource(ctx, src, table, stats)
	s.finishRun(ctx, run, stats, nil)

	s.log(ctx).WithFields(logger.Fields{
		"total":      stats.TotalImages,
		"generated":  stats.Generated,
		"styled":     stats.Styled,
		"fallback":   stats.Fallback,
		"cache_hits": stats.CacheHits,
		"failed":     stats.Failed,
		"duration":   stats.EndTime.Sub(stats.StartTime).String(),
	}).Info("Caption generation complete")

	return stats, nil
}

// processImage produces one manifest row. Failures are counted and logged,
// never fatal.
func (s *GenerateService) processImage(ctx context.Context, item source.Item, table *attributes.Table, runID string, opts *GenerateOptions, stats *GenerateStats) ([]string, bool) {
	data, err := os.ReadFile(item.LocalPath)
	if err != nil {
		s.log(ctx).WithError(err).WithField("image", item.Name).Warn("Failed to read image")
		stats.Failed++
		return nil, false
	}

	vlmCaption, cached, err := s.baseCaption(ctx, data, item.Format, opts.Force)
	if err != nil {
		s.log(ctx).WithError(err).WithField("image", item.Name).Warn("VLM captioning failed")
		stats.Failed++
		return nil, false
	}
	if cached {
		stats.CacheHits++
	}

	gen := &domain.GeneratedCaption{
		ID:      uuid.New().String(),
		ImageID: item.Name,
		RunID:   runID,
	}

	if attrs, ok := lookupAttrs(table, item.Name); ok {
		profile := attributes.BuildProfile(attrs)
		gen.Caption = profile.Caption()
		gen.Gender = profile.Gender
		gen.Hair = profile.Hair
		gen.Emotion = profile.Emotion
		gen.Beard = profile.Beard
		gen.Attributes = domain.StringArray(attrs)
		stats.Styled++
	} else {
		gen.Caption = s.cleaner.Clean(vlmCaption)
		stats.Fallback++
	}

	if s.genRepo != nil {
		if err := s.genRepo.Upsert(ctx, gen); err != nil {
			s.log(ctx).WithError(err).WithField("image", item.Name).Warn("Failed to record generated caption")
		}
	}

	stats.Generated++
	return []string{item.Name, gen.Caption}, true
}

// baseCaption returns the VLM caption for the image bytes, reusing the
// cached caption for the active model unless force is set.
func (s *GenerateService) baseCaption(ctx context.Context, data []byte, format string, force bool) (string, bool, error) {
	hash := calculateMD5(data)

	if !force && s.vlmCapRepo != nil {
		if rec, err := s.vlmCapRepo.GetByMD5AndModel(ctx, hash, s.vlm.GetModel()); err == nil && rec != nil {
			return rec.Caption, true, nil
		}
	}

	modelBefore := s.vlm.GetModel()
	text, err := s.vlm.CaptionImage(ctx, data, format)
	if model := s.vlm.GetModel(); model != modelBefore {
		s.log(ctx).WithFields(logger.Fields{
			"from": modelBefore,
			"to":   model,
		}).Warn("Switched to fallback VLM model")
	}
	if err != nil {
		return "", false, err
	}

	text = strings.TrimSpace(text)
	if s.vlmCapRepo != nil {
		rec := &domain.VLMCaption{
			ID:      uuid.New().String(),
			MD5Hash: hash,
			Model:   s.vlm.GetModel(),
			Caption: text,
		}
		if err := s.vlmCapRepo.Create(ctx, rec); err != nil {
			s.log(ctx).WithError(err).Warn("Failed to cache VLM caption")
		}
	}

	return text, false, nil
}

// loadAttributes loads the attribute table when configured. A missing or
// unreadable table is not fatal: every image falls back to its VLM caption.
func (s *GenerateService) loadAttributes(ctx context.Context) *attributes.Table {
	if s.cfg.AttrFile == "" {
		return nil
	}
	table, err := attributes.Load(s.cfg.AttrFile)
	if err != nil {
		s.log(ctx).WithError(err).WithField("path", s.cfg.AttrFile).Warn("Attribute table unavailable, using VLM captions only")
		return nil
	}
	s.log(ctx).WithFields(logger.Fields{
		"path":   s.cfg.AttrFile,
		"images": table.Len(),
	}).Info("Attribute table loaded")
	return table
}

func lookupAttrs(table *attributes.Table, imageID string) ([]string, bool) {
	if table == nil {
		return nil, false
	}
	return table.Positive(imageID)
}

func (s *GenerateService) startRun(ctx context.Context, src source.Source, limit int, opts *GenerateOptions) *domain.PrepRun {
	params, _ := json.Marshal(map[string]interface{}{
		"source":    src.GetSourceID(),
		"attr_file": s.cfg.AttrFile,
		"output":    s.cfg.OutputCSV,
		"model":     s.vlm.GetModel(),
		"limit":     limit,
		"force":     opts.Force,
	})

	now := time.Now()
	run := &domain.PrepRun{
		ID:        uuid.New().String(),
		Kind:      domain.RunKindGenerate,
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

func (s *GenerateService) finishRun(ctx context.Context, run *domain.PrepRun, stats *GenerateStats, runErr error) {
	if s.runRepo == nil {
		return
	}

	now := time.Now()
	run.Total = stats.TotalImages
	run.Processed = stats.Generated
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

// recordSource registers the generated caption set in the sources table.
func (s *GenerateService) recordSource(ctx context.Context, src source.Source, table *attributes.Table, stats *GenerateStats) {
	if s.sourceRepo == nil {
		return
	}

	srcType := domain.SourceTypeVLM
	if table != nil {
		srcType = domain.SourceTypeAttributes
	}
	now := time.Now()
	rec := &domain.CaptionSource{
		ID:   uuid.New().String(),
		Name: "generated",
		Type: srcType,
		Config: domain.SourceConfig{
			"source":    src.GetSourceID(),
			"attr_file": s.cfg.AttrFile,
			"model":     s.vlm.GetModel(),
		},
		LastScanAt: &now,
		ItemCount:  stats.Generated,
		IsEnabled:  true,
	}
	if err := s.sourceRepo.Upsert(ctx, rec); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to record caption source")
	}
}
