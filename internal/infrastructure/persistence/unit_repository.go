package persistence

import (
	"context"
	"errors"

	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/dirac/fulfillment/internal/domain/warehouse"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormUnitRepository implements warehouse.UnitRepository using GORM
type GormUnitRepository struct {
	db *gorm.DB
}

var _ warehouse.UnitRepository = (*GormUnitRepository)(nil)

// NewGormUnitRepository creates a new GormUnitRepository
func NewGormUnitRepository(db *gorm.DB) *GormUnitRepository {
	return &GormUnitRepository{db: db}
}

// FindByID finds a unit by its ID
func (r *GormUnitRepository) FindByID(ctx context.Context, id uuid.UUID) (*warehouse.Unit, error) {
	var unit warehouse.Unit
	if err := r.db.WithContext(ctx).First(&unit, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &unit, nil
}

func (r *GormUnitRepository) countableQuery(query *gorm.DB, warehouseID, variantID uuid.UUID) *gorm.DB {
	return query.
		Where("warehouse_id = ? AND variant_id = ? AND consumed = ? AND written_off = ?",
			warehouseID, variantID, false, false).
		// Oldest arrival first; units still in transit (NULL arrived_at)
		// come last, matching FIFO consumption.
		Order("arrived_at ASC NULLS LAST, created_at ASC")
}

// FindCountable finds unconsumed, non-written-off units for a
// warehouse-variant pair, oldest arrival first
func (r *GormUnitRepository) FindCountable(ctx context.Context, warehouseID, variantID uuid.UUID) ([]*warehouse.Unit, error) {
	var units []*warehouse.Unit
	if err := r.countableQuery(r.db.WithContext(ctx), warehouseID, variantID).
		Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// FindCountableForUpdate locks and returns countable units for a
// warehouse-variant pair, oldest arrival first
func (r *GormUnitRepository) FindCountableForUpdate(ctx context.Context, warehouseID, variantID uuid.UUID) ([]*warehouse.Unit, error) {
	var units []*warehouse.Unit
	if err := r.countableQuery(
		r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}),
		warehouseID, variantID,
	).Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// FindByPurchaseOrderItem finds all units created for a purchase order item
func (r *GormUnitRepository) FindByPurchaseOrderItem(ctx context.Context, poiID uuid.UUID) ([]*warehouse.Unit, error) {
	var units []*warehouse.Unit
	if err := r.db.WithContext(ctx).
		Where("purchase_order_item_id = ?", poiID).
		Order("created_at ASC").
		Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

// CountCountable counts countable units for a warehouse-variant pair
func (r *GormUnitRepository) CountCountable(ctx context.Context, warehouseID, variantID uuid.UUID) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&warehouse.Unit{}).
		Where("warehouse_id = ? AND variant_id = ? AND consumed = ? AND written_off = ?",
			warehouseID, variantID, false, false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// CreateBatch inserts multiple units
func (r *GormUnitRepository) CreateBatch(ctx context.Context, units []*warehouse.Unit) error {
	if len(units) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(units, 500).Error
}

// Save updates a single unit
func (r *GormUnitRepository) Save(ctx context.Context, unit *warehouse.Unit) error {
	return r.db.WithContext(ctx).Save(unit).Error
}

// SaveBatch updates multiple units
func (r *GormUnitRepository) SaveBatch(ctx context.Context, units []*warehouse.Unit) error {
	for _, u := range units {
		if err := r.Save(ctx, u); err != nil {
			return err
		}
	}
	return nil
}
