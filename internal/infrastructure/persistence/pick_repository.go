package persistence

import (
	"context"
	"errors"

	"github.com/dirac/fulfillment/internal/domain/fulfillment"
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPickRepository implements fulfillment.PickRepository using GORM
type GormPickRepository struct {
	db *gorm.DB
}

var _ fulfillment.PickRepository = (*GormPickRepository)(nil)

// NewGormPickRepository creates a new GormPickRepository
func NewGormPickRepository(db *gorm.DB) *GormPickRepository {
	return &GormPickRepository{db: db}
}

// FindByID finds a pick with its items
func (r *GormPickRepository) FindByID(ctx context.Context, id uuid.UUID) (*fulfillment.Pick, error) {
	return r.findByID(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate locks the pick row for the current transaction
func (r *GormPickRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*fulfillment.Pick, error) {
	return r.findByID(r.db.WithContext(ctx).Clauses(clause.Locking{
		Strength: "UPDATE",
		Table:    clause.Table{Name: "picks"},
	}), id)
}

func (r *GormPickRepository) findByID(query *gorm.DB, id uuid.UUID) (*fulfillment.Pick, error) {
	var p fulfillment.Pick
	if err := query.Preload("Items").First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindByFulfillment finds the fulfillment's pick
func (r *GormPickRepository) FindByFulfillment(ctx context.Context, fulfillmentID uuid.UUID) (*fulfillment.Pick, error) {
	var p fulfillment.Pick
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&p, "fulfillment_id = ?", fulfillmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Save creates or updates a pick and its items
func (r *GormPickRepository) Save(ctx context.Context, p *fulfillment.Pick) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(p).Error
}

// SaveWithLock saves with optimistic locking on the aggregate version
func (r *GormPickRepository) SaveWithLock(ctx context.Context, p *fulfillment.Pick) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&fulfillment.Pick{}).
			Where("id = ? AND version < ?", p.ID, p.Version).
			Select("*").
			Omit(clause.Associations).
			Updates(p)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "The pick has been modified by another process")
		}
		if len(p.Items) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).
				Create(&p.Items).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
