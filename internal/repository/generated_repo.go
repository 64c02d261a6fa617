package repository

import (
	"context"

	"github.com/sketchgen/capprep/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GeneratedCaptionRepository handles generated caption data operations.
type GeneratedCaptionRepository struct {
	db *gorm.DB
}

// NewGeneratedCaptionRepository creates a new GeneratedCaptionRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *GeneratedCaptionRepository: repository instance bound to db.
func NewGeneratedCaptionRepository(db *gorm.DB) *GeneratedCaptionRepository {
	return &GeneratedCaptionRepository{db: db}
}

// Upsert creates or updates a generated caption keyed by image file name, so
// regenerating a dataset overwrites earlier captions for the same image.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - gen: generated caption record to create or update.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *GeneratedCaptionRepository) Upsert(ctx context.Context, gen *domain.GeneratedCaption) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "image_id"}},
		UpdateAll: true,
	}).Create(gen).Error
}

// GetByImageID retrieves a generated caption by its image file name.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - imageID: image file name including extension.
// Returns:
//   - *domain.GeneratedCaption: matching record if found.
//   - error: non-nil if lookup fails.
func (r *GeneratedCaptionRepository) GetByImageID(ctx context.Context, imageID string) (*domain.GeneratedCaption, error) {
	var gen domain.GeneratedCaption
	if err := r.db.WithContext(ctx).First(&gen, "image_id = ?", imageID).Error; err != nil {
		return nil, err
	}
	return &gen, nil
}

// List retrieves generated captions with pagination.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.GeneratedCaption: matching records.
//   - error: non-nil if the query fails.
func (r *GeneratedCaptionRepository) List(ctx context.Context, limit, offset int) ([]domain.GeneratedCaption, error) {
	var gens []domain.GeneratedCaption
	if err := r.db.WithContext(ctx).
		Limit(limit).
		Offset(offset).
		Order("image_id ASC").
		Find(&gens).Error; err != nil {
		return nil, err
	}
	return gens, nil
}

// Count counts all generated caption records.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - int64: number of records.
//   - error: non-nil if the query fails.
func (r *GeneratedCaptionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.GeneratedCaption{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteByRunID removes all generated captions recorded under a run.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - runID: run identifier.
// Returns:
//   - error: non-nil if the delete fails.
func (r *GeneratedCaptionRepository) DeleteByRunID(ctx context.Context, runID string) error {
	return r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Delete(&domain.GeneratedCaption{}).Error
}
