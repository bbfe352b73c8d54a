package persistence

import (
	"context"
	"errors"

	"github.com/dirac/fulfillment/internal/domain/purchasing"
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// availableCondition selects confirmed-or-later items whose effective
// quantity (ordered plus processed adjustments) exceeds what is already
// promised to allocation sources.
const availableCondition = `variant_id = ?
	AND status IN ?
	AND quantity_ordered
		+ COALESCE((SELECT SUM(a.quantity_change)
			FROM purchase_order_item_adjustments a
			WHERE a.purchase_order_item_id = purchase_order_items.id
			AND a.processed_at IS NOT NULL), 0)
		- quantity_allocated > 0`

var confirmedOrLater = []purchasing.PurchaseOrderItemStatus{
	purchasing.ItemStatusConfirmed,
	purchasing.ItemStatusPartiallyReceived,
	purchasing.ItemStatusReceived,
}

// GormPurchaseOrderItemRepository implements
// purchasing.PurchaseOrderItemRepository using GORM
type GormPurchaseOrderItemRepository struct {
	db *gorm.DB
}

var _ purchasing.PurchaseOrderItemRepository = (*GormPurchaseOrderItemRepository)(nil)

// NewGormPurchaseOrderItemRepository creates a new GormPurchaseOrderItemRepository
func NewGormPurchaseOrderItemRepository(db *gorm.DB) *GormPurchaseOrderItemRepository {
	return &GormPurchaseOrderItemRepository{db: db}
}

// FindByID finds an item with its adjustments
func (r *GormPurchaseOrderItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*purchasing.PurchaseOrderItem, error) {
	return r.findByID(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate locks the item row for the current transaction
func (r *GormPurchaseOrderItemRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*purchasing.PurchaseOrderItem, error) {
	return r.findByID(r.db.WithContext(ctx).Clauses(clause.Locking{
		Strength: "UPDATE",
		Table:    clause.Table{Name: "purchase_order_items"},
	}), id)
}

func (r *GormPurchaseOrderItemRepository) findByID(query *gorm.DB, id uuid.UUID) (*purchasing.PurchaseOrderItem, error) {
	var item purchasing.PurchaseOrderItem
	if err := query.Preload("Adjustments").First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindAvailableByVariant returns confirmed items with remaining
// availability, ordered by confirmation time ascending
func (r *GormPurchaseOrderItemRepository) FindAvailableByVariant(ctx context.Context, variantID uuid.UUID) ([]*purchasing.PurchaseOrderItem, error) {
	return r.findAvailable(r.db.WithContext(ctx), variantID)
}

// FindAvailableByVariantForUpdate locks and returns available items in
// confirmation order
func (r *GormPurchaseOrderItemRepository) FindAvailableByVariantForUpdate(ctx context.Context, variantID uuid.UUID) ([]*purchasing.PurchaseOrderItem, error) {
	return r.findAvailable(r.db.WithContext(ctx).Clauses(clause.Locking{
		Strength: "UPDATE",
		Table:    clause.Table{Name: "purchase_order_items"},
	}), variantID)
}

func (r *GormPurchaseOrderItemRepository) findAvailable(query *gorm.DB, variantID uuid.UUID) ([]*purchasing.PurchaseOrderItem, error) {
	var items []*purchasing.PurchaseOrderItem
	if err := query.
		Preload("Adjustments").
		Where(availableCondition, variantID, confirmedOrLater).
		Order("confirmed_at ASC NULLS LAST").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindByShipment returns the items attached to an inbound shipment
func (r *GormPurchaseOrderItemRepository) FindByShipment(ctx context.Context, shipmentID uuid.UUID) ([]*purchasing.PurchaseOrderItem, error) {
	var items []*purchasing.PurchaseOrderItem
	if err := r.db.WithContext(ctx).
		Preload("Adjustments").
		Where("shipment_id = ?", shipmentID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Save creates or updates an item; adjustments ride along
func (r *GormPurchaseOrderItemRepository) Save(ctx context.Context, item *purchasing.PurchaseOrderItem) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(item).Error
}

// SaveBatch updates multiple items
func (r *GormPurchaseOrderItemRepository) SaveBatch(ctx context.Context, items []*purchasing.PurchaseOrderItem) error {
	for _, item := range items {
		if err := r.Save(ctx, item); err != nil {
			return err
		}
	}
	return nil
}
