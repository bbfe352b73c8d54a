package persistence

import (
	"context"
	"errors"

	"github.com/dirac/fulfillment/internal/domain/purchasing"
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAdjustmentRepository implements purchasing.AdjustmentRepository using GORM
type GormAdjustmentRepository struct {
	db *gorm.DB
}

var _ purchasing.AdjustmentRepository = (*GormAdjustmentRepository)(nil)

// NewGormAdjustmentRepository creates a new GormAdjustmentRepository
func NewGormAdjustmentRepository(db *gorm.DB) *GormAdjustmentRepository {
	return &GormAdjustmentRepository{db: db}
}

// FindByID finds an adjustment by its ID
func (r *GormAdjustmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*purchasing.PurchaseOrderItemAdjustment, error) {
	var adj purchasing.PurchaseOrderItemAdjustment
	if err := r.db.WithContext(ctx).First(&adj, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &adj, nil
}

// FindByItem finds all adjustments recorded against an item
func (r *GormAdjustmentRepository) FindByItem(ctx context.Context, itemID uuid.UUID) ([]*purchasing.PurchaseOrderItemAdjustment, error) {
	var adjustments []*purchasing.PurchaseOrderItemAdjustment
	if err := r.db.WithContext(ctx).
		Where("purchase_order_item_id = ?", itemID).
		Order("created_at ASC").
		Find(&adjustments).Error; err != nil {
		return nil, err
	}
	return adjustments, nil
}

// FindUnprocessed finds adjustments that still await processing
func (r *GormAdjustmentRepository) FindUnprocessed(ctx context.Context) ([]*purchasing.PurchaseOrderItemAdjustment, error) {
	var adjustments []*purchasing.PurchaseOrderItemAdjustment
	if err := r.db.WithContext(ctx).
		Where("processed_at IS NULL").
		Order("created_at ASC").
		Find(&adjustments).Error; err != nil {
		return nil, err
	}
	return adjustments, nil
}

// Save creates or updates an adjustment
func (r *GormAdjustmentRepository) Save(ctx context.Context, adjustment *purchasing.PurchaseOrderItemAdjustment) error {
	return r.db.WithContext(ctx).Save(adjustment).Error
}
