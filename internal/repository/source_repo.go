package repository

import (
	"context"

	"github.com/sketchgen/capprep/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SourceRepository handles caption source registry operations.
type SourceRepository struct {
	db *gorm.DB
}

// NewSourceRepository creates a new SourceRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *SourceRepository: repository instance bound to db.
func NewSourceRepository(db *gorm.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// Upsert inserts a source or updates the existing record with the same
// name, so repeated runs refresh scan time and item count in place.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - src: source record to persist.
// Returns:
//   - error: non-nil if the write fails.
func (r *SourceRepository) Upsert(ctx context.Context, src *domain.CaptionSource) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			UpdateAll: true,
		}).
		Create(src).Error
}

// GetByName retrieves a source by its unique name.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - name: source name.
// Returns:
//   - *domain.CaptionSource: source record if found.
//   - error: non-nil if lookup fails.
func (r *SourceRepository) GetByName(ctx context.Context, name string) (*domain.CaptionSource, error) {
	var src domain.CaptionSource
	if err := r.db.WithContext(ctx).First(&src, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &src, nil
}

// List retrieves all registered sources ordered by name.
// Parameters:
//   - ctx: context for cancellation and deadlines.
// Returns:
//   - []domain.CaptionSource: registered sources.
//   - error: non-nil if the query fails.
func (r *SourceRepository) List(ctx context.Context) ([]domain.CaptionSource, error) {
	var sources []domain.CaptionSource
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&sources).Error; err != nil {
		return nil, err
	}
	return sources, nil
}
