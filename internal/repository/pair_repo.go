package repository

import (
	"context"
	"fmt"

	"github.com/sketchgen/capprep/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PairRepository handles caption pair data operations.
type PairRepository struct {
	db *gorm.DB
}

// NewPairRepository creates a new PairRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *PairRepository: repository instance bound to db.
func NewPairRepository(db *gorm.DB) *PairRepository {
	return &PairRepository{db: db}
}

// Create inserts a new caption pair record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - pair: caption pair record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *PairRepository) Create(ctx context.Context, pair *domain.CaptionPair) error {
	return r.db.WithContext(ctx).Create(pair).Error
}

// Upsert creates or updates a caption pair keyed by stem. A caption file
// processed twice overwrites the earlier row, matching the sidecar files on
// disk where the last write wins.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - pair: caption pair record to create or update.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *PairRepository) Upsert(ctx context.Context, pair *domain.CaptionPair) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stem"}},
		UpdateAll: true,
	}).Create(pair).Error
}

// Update updates an existing caption pair record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - pair: caption pair record with updated fields.
// Returns:
//   - error: non-nil if the update fails.
func (r *PairRepository) Update(ctx context.Context, pair *domain.CaptionPair) error {
	return r.db.WithContext(ctx).Save(pair).Error
}

// GetByID retrieves a caption pair by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: pair ID.
// Returns:
//   - *domain.CaptionPair: pair record if found.
//   - error: non-nil if lookup fails.
func (r *PairRepository) GetByID(ctx context.Context, id string) (*domain.CaptionPair, error) {
	var pair domain.CaptionPair
	if err := r.db.WithContext(ctx).First(&pair, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pair, nil
}

// GetByStem retrieves a caption pair by its file stem.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - stem: shared base name of the image and caption files.
// Returns:
//   - *domain.CaptionPair: pair record if found.
//   - error: non-nil if lookup fails.
func (r *PairRepository) GetByStem(ctx context.Context, stem string) (*domain.CaptionPair, error) {
	var pair domain.CaptionPair
	if err := r.db.WithContext(ctx).First(&pair, "stem = ?", stem).Error; err != nil {
		return nil, err
	}
	return &pair, nil
}

// GetByImageID retrieves a caption pair by its image file name.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - imageID: image file name including extension.
// Returns:
//   - *domain.CaptionPair: pair record if found.
//   - error: non-nil if lookup fails.
func (r *PairRepository) GetByImageID(ctx context.Context, imageID string) (*domain.CaptionPair, error) {
	var pair domain.CaptionPair
	if err := r.db.WithContext(ctx).First(&pair, "image_id = ?", imageID).Error; err != nil {
		return nil, err
	}
	return &pair, nil
}

// GetByMD5Hash retrieves a caption pair by the MD5 hash of its image content.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - md5Hash: MD5 hash of the image content.
// Returns:
//   - *domain.CaptionPair: pair record if found.
//   - error: non-nil if lookup fails.
func (r *PairRepository) GetByMD5Hash(ctx context.Context, md5Hash string) (*domain.CaptionPair, error) {
	var pair domain.CaptionPair
	if err := r.db.WithContext(ctx).First(&pair, "md5_hash = ?", md5Hash).Error; err != nil {
		return nil, err
	}
	return &pair, nil
}

// ExistsByStem checks if a caption pair with the given stem exists.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - stem: shared base name of the image and caption files.
// Returns:
//   - bool: true if a record exists.
//   - error: non-nil if the lookup fails.
func (r *PairRepository) ExistsByStem(ctx context.Context, stem string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.CaptionPair{}).Where("stem = ?", stem).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// List retrieves caption pairs with pagination, optionally filtered by status
// and source.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - status: pair status to filter by; empty means all.
//   - source: source name to filter by; empty means all.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.CaptionPair: matching pair records.
//   - error: non-nil if the query fails.
func (r *PairRepository) List(ctx context.Context, status domain.PairStatus, source string, limit, offset int) ([]domain.CaptionPair, error) {
	var pairs []domain.CaptionPair
	query := r.db.WithContext(ctx)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if source != "" {
		query = query.Where("source = ?", source)
	}
	if err := query.
		Limit(limit).
		Offset(offset).
		Order("stem ASC").
		Find(&pairs).Error; err != nil {
		return nil, err
	}
	return pairs, nil
}

// ListByRun retrieves caption pairs recorded under a given run.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - runID: run identifier.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.CaptionPair: matching pair records.
//   - error: non-nil if the query fails.
func (r *PairRepository) ListByRun(ctx context.Context, runID string, limit, offset int) ([]domain.CaptionPair, error) {
	var pairs []domain.CaptionPair
	if err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Limit(limit).
		Offset(offset).
		Order("stem ASC").
		Find(&pairs).Error; err != nil {
		return nil, err
	}
	return pairs, nil
}

// Sample retrieves up to limit caption pairs in random order.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of records to return.
// Returns:
//   - []domain.CaptionPair: sampled pair records.
//   - error: non-nil if the query fails.
func (r *PairRepository) Sample(ctx context.Context, limit int) ([]domain.CaptionPair, error) {
	var pairs []domain.CaptionPair
	// RANDOM() is understood by both SQLite and PostgreSQL.
	if err := r.db.WithContext(ctx).
		Where("status = ?", domain.PairStatusPrepared).
		Order("RANDOM()").
		Limit(limit).
		Find(&pairs).Error; err != nil {
		return nil, err
	}
	return pairs, nil
}

// GetSources retrieves all distinct source names.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - []string: distinct source names.
//   - error: non-nil if the query fails.
func (r *PairRepository) GetSources(ctx context.Context) ([]string, error) {
	var sources []string
	if err := r.db.WithContext(ctx).
		Model(&domain.CaptionPair{}).
		Distinct("source").
		Pluck("source", &sources).Error; err != nil {
		return nil, err
	}
	return sources, nil
}

// CountByStatus counts caption pairs by status.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - status: pair status to count; empty counts all.
// Returns:
//   - int64: number of matching records.
//   - error: non-nil if the query fails.
func (r *PairRepository) CountByStatus(ctx context.Context, status domain.PairStatus) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&domain.CaptionPair{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GetByIDs retrieves caption pairs by a list of IDs.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ids: list of pair IDs.
// Returns:
//   - []domain.CaptionPair: matching pair records.
//   - error: non-nil if the query fails.
func (r *PairRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.CaptionPair, error) {
	if len(ids) == 0 {
		return []domain.CaptionPair{}, nil
	}
	var pairs []domain.CaptionPair
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&pairs).Error; err != nil {
		return nil, fmt.Errorf("failed to get pairs by IDs: %w", err)
	}
	return pairs, nil
}

// Delete removes a caption pair by ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: pair ID to delete.
// Returns:
//   - error: non-nil if the delete fails.
func (r *PairRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&domain.CaptionPair{}, "id = ?", id).Error
}
