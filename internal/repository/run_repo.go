package repository

import (
	"context"

	"github.com/sketchgen/capprep/internal/domain"
	"gorm.io/gorm"
)

// RunRepository handles pipeline run data operations.
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new RunRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *RunRepository: repository instance bound to db.
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - run: run record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *RunRepository) Create(ctx context.Context, run *domain.PrepRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Update updates an existing run record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - run: run record with updated fields.
// Returns:
//   - error: non-nil if the update fails.
func (r *RunRepository) Update(ctx context.Context, run *domain.PrepRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

// GetByID retrieves a run by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: run ID.
// Returns:
//   - *domain.PrepRun: run record if found.
//   - error: non-nil if lookup fails.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*domain.PrepRun, error) {
	var run domain.PrepRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// GetLatestByKind retrieves the most recently started run of a given kind.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - kind: run kind to filter by.
// Returns:
//   - *domain.PrepRun: latest matching run if found.
//   - error: non-nil if lookup fails.
func (r *RunRepository) GetLatestByKind(ctx context.Context, kind string) (*domain.PrepRun, error) {
	var run domain.PrepRun
	if err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("started_at DESC").
		First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// List retrieves runs with pagination, optionally filtered by kind.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - kind: run kind to filter by; empty means all.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.PrepRun: matching run records.
//   - error: non-nil if the query fails.
func (r *RunRepository) List(ctx context.Context, kind string, limit, offset int) ([]domain.PrepRun, error) {
	var runs []domain.PrepRun
	query := r.db.WithContext(ctx)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if err := query.
		Limit(limit).
		Offset(offset).
		Order("started_at DESC").
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
