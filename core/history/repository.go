package history

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound is returned by Get for unknown run ids.
var ErrNotFound = errors.New("run not found")

// Repository stores run records.
type Repository interface {
	Save(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context, filter Filter) ([]Run, error)
}

// Filter narrows a run listing. Zero values match everything.
type Filter struct {
	Kind   string
	Target string
	Limit  int
}

// GormRepository stores runs through GORM.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a repository. Call Migrate once before use.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Migrate creates or updates the run table.
func (r *GormRepository) Migrate() error {
	if err := r.db.AutoMigrate(&Run{}); err != nil {
		return fmt.Errorf("failed to migrate run journal: %w", err)
	}
	return nil
}

// Save inserts or replaces the run.
func (r *GormRepository) Save(ctx context.Context, run *Run) error {
	if err := r.db.WithContext(ctx).Save(run).Error; err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// Get returns the run with the given id.
func (r *GormRepository) Get(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return &run, nil
}

// List returns runs, newest first.
func (r *GormRepository) List(ctx context.Context, filter Filter) ([]Run, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	q := r.db.WithContext(ctx).Model(&Run{})
	if filter.Kind != "" {
		q = q.Where("kind = ?", filter.Kind)
	}
	if filter.Target != "" {
		q = q.Where("target = ?", filter.Target)
	}

	var runs []Run
	if err := q.Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// NopRepository discards runs.
type NopRepository struct{}

func (NopRepository) Save(context.Context, *Run) error { return nil }

func (NopRepository) Get(context.Context, string) (*Run, error) { return nil, ErrNotFound }

func (NopRepository) List(context.Context, Filter) ([]Run, error) { return []Run{}, nil }
