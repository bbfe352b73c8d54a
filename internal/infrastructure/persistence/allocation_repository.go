package persistence

import (
	"context"
	"errors"

	"github.com/dirac/fulfillment/internal/domain/allocation"
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// unsourcedCondition selects allocations whose sources do not cover the
// allocated quantity.
const unsourcedCondition = `variant_id = ?
	AND quantity > COALESCE((SELECT SUM(s.quantity)
		FROM allocation_sources s
		WHERE s.allocation_id = allocations.id), 0)`

// GormAllocationRepository implements allocation.AllocationRepository using GORM
type GormAllocationRepository struct {
	db *gorm.DB
}

var _ allocation.AllocationRepository = (*GormAllocationRepository)(nil)

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// FindByID finds an allocation with its sources
func (r *GormAllocationRepository) FindByID(ctx context.Context, id uuid.UUID) (*allocation.Allocation, error) {
	var a allocation.Allocation
	if err := r.db.WithContext(ctx).
		Preload("Sources").
		First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// FindByOrderLine finds all allocations reserved for an order line
func (r *GormAllocationRepository) FindByOrderLine(ctx context.Context, orderLineID uuid.UUID) ([]*allocation.Allocation, error) {
	return r.find(r.db.WithContext(ctx).Where("order_line_id = ?", orderLineID))
}

// FindByOrder finds all allocations across an order's lines
func (r *GormAllocationRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]*allocation.Allocation, error) {
	return r.find(r.db.WithContext(ctx).Where("order_id = ?", orderID))
}

// FindByStock returns allocations against one stock record, oldest order
// line first
func (r *GormAllocationRepository) FindByStock(ctx context.Context, stockID uuid.UUID) ([]*allocation.Allocation, error) {
	return r.find(r.db.WithContext(ctx).Where("stock_id = ?", stockID))
}

// FindByStockForUpdate locks and returns allocations against one stock record
func (r *GormAllocationRepository) FindByStockForUpdate(ctx context.Context, stockID uuid.UUID) ([]*allocation.Allocation, error) {
	return r.find(r.lockingQuery(ctx).Where("stock_id = ?", stockID))
}

// FindUnsourcedByVariant returns allocations of the variant whose sources
// do not cover them, oldest order line first
func (r *GormAllocationRepository) FindUnsourcedByVariant(ctx context.Context, variantID uuid.UUID) ([]*allocation.Allocation, error) {
	return r.find(r.db.WithContext(ctx).Where(unsourcedCondition, variantID))
}

// FindUnsourcedByVariantForUpdate locks and returns unsourced allocations
// of the variant
func (r *GormAllocationRepository) FindUnsourcedByVariantForUpdate(ctx context.Context, variantID uuid.UUID) ([]*allocation.Allocation, error) {
	return r.find(r.lockingQuery(ctx).Where(unsourcedCondition, variantID))
}

// FindBySourceItem returns allocations holding a source against one
// purchase order item, oldest order line first
func (r *GormAllocationRepository) FindBySourceItem(ctx context.Context, itemID uuid.UUID) ([]*allocation.Allocation, error) {
	return r.find(r.db.WithContext(ctx).Where(r.sourceItemCondition(), itemID))
}

// FindBySourceItemForUpdate locks and returns allocations holding a source
// against one purchase order item
func (r *GormAllocationRepository) FindBySourceItemForUpdate(ctx context.Context, itemID uuid.UUID) ([]*allocation.Allocation, error) {
	return r.find(r.lockingQuery(ctx).Where(r.sourceItemCondition(), itemID))
}

func (r *GormAllocationRepository) sourceItemCondition() string {
	return `id IN (SELECT allocation_id FROM allocation_sources WHERE purchase_order_item_id = ?)`
}

func (r *GormAllocationRepository) lockingQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Clauses(clause.Locking{
		Strength: "UPDATE",
		Table:    clause.Table{Name: "allocations"},
	})
}

func (r *GormAllocationRepository) find(query *gorm.DB) ([]*allocation.Allocation, error) {
	var allocations []*allocation.Allocation
	if err := query.
		Preload("Sources").
		Order("order_line_created_at ASC, created_at ASC").
		Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// Save creates or updates an allocation and its sources
func (r *GormAllocationRepository) Save(ctx context.Context, a *allocation.Allocation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(a).Error; err != nil {
			return err
		}
		// Sources shrink when allocations are trimmed, so stale rows
		// must go before the surviving set is upserted.
		keep := make([]uuid.UUID, 0, len(a.Sources))
		for i := range a.Sources {
			keep = append(keep, a.Sources[i].ID)
		}
		cleanup := tx.Where("allocation_id = ?", a.ID)
		if len(keep) > 0 {
			cleanup = cleanup.Where("id NOT IN ?", keep)
		}
		if err := cleanup.Delete(&allocation.AllocationSource{}).Error; err != nil {
			return err
		}
		if len(a.Sources) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).
				Create(&a.Sources).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveBatch creates or updates multiple allocations
func (r *GormAllocationRepository) SaveBatch(ctx context.Context, allocations []*allocation.Allocation) error {
	for _, a := range allocations {
		if err := r.Save(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an allocation and its sources
func (r *GormAllocationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("allocation_id = ?", id).
			Delete(&allocation.AllocationSource{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&allocation.Allocation{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}
