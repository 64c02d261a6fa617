package repository

import (
	"context"

	"github.com/sketchgen/capprep/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CaptionVectorRepository handles caption vector bookkeeping operations.
type CaptionVectorRepository struct {
	db *gorm.DB
}

// NewCaptionVectorRepository creates a new CaptionVectorRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *CaptionVectorRepository: repository instance bound to db.
func NewCaptionVectorRepository(db *gorm.DB) *CaptionVectorRepository {
	return &CaptionVectorRepository{db: db}
}

// Create inserts a new caption vector record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - vector: caption vector record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *CaptionVectorRepository) Create(ctx context.Context, vector *domain.CaptionVector) error {
	return r.db.WithContext(ctx).Create(vector).Error
}

// Upsert inserts a vector record or updates the existing one for the same
// stem and collection, so re-validation refreshes model and point ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - vector: caption vector record to persist.
// Returns:
//   - error: non-nil if the write fails.
func (r *CaptionVectorRepository) Upsert(ctx context.Context, vector *domain.CaptionVector) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "stem"}, {Name: "collection"}},
			UpdateAll: true,
		}).
		Create(vector).Error
}

// ExistsByStemAndCollection checks if a vector record exists for the stem and collection.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - stem: shared base name of the image and caption files.
//   - collection: Qdrant collection name.
// Returns:
//   - bool: true if a record exists.
//   - error: non-nil if the lookup fails.
func (r *CaptionVectorRepository) ExistsByStemAndCollection(ctx context.Context, stem, collection string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.CaptionVector{}).
		Where("stem = ? AND collection = ?", stem, collection).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetByStemAndCollection retrieves a vector record by stem and collection.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - stem: shared base name of the image and caption files.
//   - collection: Qdrant collection name.
// Returns:
//   - *domain.CaptionVector: matching vector record if found.
//   - error: non-nil if the lookup fails.
func (r *CaptionVectorRepository) GetByStemAndCollection(ctx context.Context, stem, collection string) (*domain.CaptionVector, error) {
	var vector domain.CaptionVector
	if err := r.db.WithContext(ctx).
		Where("stem = ? AND collection = ?", stem, collection).
		First(&vector).Error; err != nil {
		return nil, err
	}
	return &vector, nil
}

// GetByPairID retrieves all vector records for a given pair ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - pairID: caption pair identifier.
// Returns:
//   - []domain.CaptionVector: matching vector records.
//   - error: non-nil if the query fails.
func (r *CaptionVectorRepository) GetByPairID(ctx context.Context, pairID string) ([]domain.CaptionVector, error) {
	var vectors []domain.CaptionVector
	if err := r.db.WithContext(ctx).
		Where("pair_id = ?", pairID).
		Find(&vectors).Error; err != nil {
		return nil, err
	}
	return vectors, nil
}

// CountByCollection counts the number of vectors in a collection.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - collection: Qdrant collection name.
// Returns:
//   - int64: number of vector records in the collection.
//   - error: non-nil if the query fails.
func (r *CaptionVectorRepository) CountByCollection(ctx context.Context, collection string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.CaptionVector{}).
		Where("collection = ?", collection).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DeleteByPairIDAndCollection deletes a vector record by pair ID and collection.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - pairID: caption pair identifier.
//   - collection: Qdrant collection name.
// Returns:
//   - error: non-nil if the delete fails.
func (r *CaptionVectorRepository) DeleteByPairIDAndCollection(ctx context.Context, pairID, collection string) error {
	return r.db.WithContext(ctx).
		Where("pair_id = ? AND collection = ?", pairID, collection).
		Delete(&domain.CaptionVector{}).Error
}
