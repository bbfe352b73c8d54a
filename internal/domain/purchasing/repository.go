package purchasing

import (
	"context"

	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// PurchaseOrderRepository defines persistence operations for purchase orders
type PurchaseOrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	FindByReference(ctx context.Context, reference string) (*PurchaseOrder, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]*PurchaseOrder, error)
	Save(ctx context.Context, order *PurchaseOrder) error
	SaveWithLock(ctx context.Context, order *PurchaseOrder) error
}

// PurchaseOrderItemRepository defines persistence operations for items.
// Item-level loads are used by the allocation flow, which sources from
// items across many purchase orders.
type PurchaseOrderItemRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrderItem, error)

	// FindByIDForUpdate locks the item row for the current transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*PurchaseOrderItem, error)

	// FindAvailableByVariant returns confirmed items with remaining
	// availability, ordered by confirmation time ascending.
	FindAvailableByVariant(ctx context.Context, variantID uuid.UUID) ([]*PurchaseOrderItem, error)

	// FindAvailableByVariantForUpdate locks and returns available items in
	// confirmation order.
	FindAvailableByVariantForUpdate(ctx context.Context, variantID uuid.UUID) ([]*PurchaseOrderItem, error)

	// FindByShipment returns the items attached to an inbound shipment
	FindByShipment(ctx context.Context, shipmentID uuid.UUID) ([]*PurchaseOrderItem, error)

	Save(ctx context.Context, item *PurchaseOrderItem) error
	SaveBatch(ctx context.Context, items []*PurchaseOrderItem) error
}

// AdjustmentRepository defines persistence operations for item adjustments
type AdjustmentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrderItemAdjustment, error)
	FindByItem(ctx context.Context, itemID uuid.UUID) ([]*PurchaseOrderItemAdjustment, error)
	FindUnprocessed(ctx context.Context) ([]*PurchaseOrderItemAdjustment, error)
	Save(ctx context.Context, adjustment *PurchaseOrderItemAdjustment) error
}

// ReceiptRepository defines persistence operations for goods receipts
type ReceiptRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Receipt, error)
	FindByShipment(ctx context.Context, shipmentID uuid.UUID) ([]*Receipt, error)
	FindInProgressByShipment(ctx context.Context, shipmentID uuid.UUID) (*Receipt, error)
	Save(ctx context.Context, receipt *Receipt) error
}
