package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"moc-service/internal/models"
)

// LookupRepository handles reference data and approval-level configuration
type LookupRepository struct {
	db *gorm.DB
}

// NewLookupRepository creates a new LookupRepository
func NewLookupRepository(db *gorm.DB) *LookupRepository {
	return &LookupRepository{db: db}
}

// DB exposes the underlying handle for the generic lookup helpers below.
func (r *LookupRepository) DB() *gorm.DB {
	return r.db
}

// --- Approval Level Methods ---

// ListLevels retrieves approval levels ordered by their chain order
func (r *LookupRepository) ListLevels(ctx context.Context, includeInactive bool) ([]models.ApprovalLevel, error) {
	var levels []models.ApprovalLevel
	query := r.db.WithContext(ctx)
	if !includeInactive {
		query = query.Where("is_active = true")
	}
	err := query.Order("level_order ASC, created_at ASC").Find(&levels).Error
	return levels, err
}

// GetLevel retrieves a single approval level
func (r *LookupRepository) GetLevel(ctx context.Context, id uuid.UUID) (*models.ApprovalLevel, error) {
	var level models.ApprovalLevel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&level).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &level, nil
}

// CreateLevel creates an approval level
func (r *LookupRepository) CreateLevel(ctx context.Context, level *models.ApprovalLevel) error {
	return r.db.WithContext(ctx).Create(level).Error
}

// UpdateLevel updates an approval level's order, role, gate and active flag.
// In-flight requests keep the chain they were built with.
func (r *LookupRepository) UpdateLevel(ctx context.Context, level *models.ApprovalLevel) error {
	result := r.db.WithContext(ctx).Model(level).
		Select("level_order", "role_key", "gate_stage", "is_active", "updated_at").
		Updates(level)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteLevel removes an approval level template
func (r *LookupRepository) DeleteLevel(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ApprovalLevel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Generic lookup helpers ---
// All lookup tables share the same CRUD shape, so the handlers go through
// these type-parameterized helpers instead of per-table methods.

// ListLookup retrieves all active rows of a lookup table
func ListLookup[T any](ctx context.Context, db *gorm.DB) ([]T, error) {
	var rows []T
	err := db.WithContext(ctx).Where("is_active = true").Order("code ASC").Find(&rows).Error
	return rows, err
}

// GetLookup retrieves a lookup row by ID
func GetLookup[T any](ctx context.Context, db *gorm.DB, id uuid.UUID) (*T, error) {
	var row T
	err := db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// CreateLookup inserts a lookup row
func CreateLookup[T any](ctx context.Context, db *gorm.DB, row *T) error {
	return db.WithContext(ctx).Create(row).Error
}

// UpdateLookup updates a lookup row's code, name and active flag
func UpdateLookup[T any](ctx context.Context, db *gorm.DB, row *T) error {
	result := db.WithContext(ctx).Model(row).
		Select("code", "name", "is_active", "updated_at").
		Updates(row)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteLookup removes a lookup row. Requests referencing it keep their copied
// codes in the control number, so deletion never rewrites history.
func DeleteLookup[T any](ctx context.Context, db *gorm.DB, id uuid.UUID) error {
	var row T
	result := db.WithContext(ctx).Delete(&row, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
