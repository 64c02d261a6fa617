package repository

import (
	"context"

	"github.com/sketchgen/capprep/internal/domain"
	"gorm.io/gorm"
)

// VLMCaptionRepository handles cached VLM caption data operations.
type VLMCaptionRepository struct {
	db *gorm.DB
}

// NewVLMCaptionRepository creates a new VLMCaptionRepository.
// Parameters:
//   - db: GORM database handle used for queries.
//
// Returns:
//   - *VLMCaptionRepository: repository instance bound to db.
func NewVLMCaptionRepository(db *gorm.DB) *VLMCaptionRepository {
	return &VLMCaptionRepository{db: db}
}

// Create inserts a new VLM caption record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - caption: VLM caption record to persist.
//
// Returns:
//   - error: non-nil if the insert fails.
func (r *VLMCaptionRepository) Create(ctx context.Context, caption *domain.VLMCaption) error {
	return r.db.WithContext(ctx).Create(caption).Error
}

// GetByMD5AndModel retrieves a cached caption by image MD5 hash and VLM model.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - md5Hash: MD5 hash of the image content.
//   - model: VLM model name used to generate the caption.
//
// Returns:
//   - *domain.VLMCaption: matching caption if found.
//   - error: non-nil if the lookup fails.
func (r *VLMCaptionRepository) GetByMD5AndModel(ctx context.Context, md5Hash, model string) (*domain.VLMCaption, error) {
	var caption domain.VLMCaption
	if err := r.db.WithContext(ctx).
		Where("md5_hash = ? AND model = ?", md5Hash, model).
		First(&caption).Error; err != nil {
		return nil, err
	}
	return &caption, nil
}

// ExistsByMD5AndModel checks if a cached caption exists for the MD5 hash and model.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - md5Hash: MD5 hash of the image content.
//   - model: VLM model name used to generate the caption.
//
// Returns:
//   - bool: true if a record exists.
//   - error: non-nil if the lookup fails.
func (r *VLMCaptionRepository) ExistsByMD5AndModel(ctx context.Context, md5Hash, model string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.VLMCaption{}).
		Where("md5_hash = ? AND model = ?", md5Hash, model).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetByPairID retrieves all cached captions for a given pair ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - pairID: caption pair identifier.
//
// Returns:
//   - []domain.VLMCaption: matching caption records.
//   - error: non-nil if the query fails.
func (r *VLMCaptionRepository) GetByPairID(ctx context.Context, pairID string) ([]domain.VLMCaption, error) {
	var captions []domain.VLMCaption
	if err := r.db.WithContext(ctx).
		Where("pair_id = ?", pairID).
		Find(&captions).Error; err != nil {
		return nil, err
	}
	return captions, nil
}

// Delete removes a VLM caption by ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: caption record ID.
//
// Returns:
//   - error: non-nil if the delete fails.
func (r *VLMCaptionRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&domain.VLMCaption{}, "id = ?", id).Error
}
