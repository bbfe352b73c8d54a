package allocation

import (
	"context"

	"github.com/google/uuid"
)

// AllocationRepository defines persistence operations for allocations.
// Loads used inside allocation transactions take row locks via the
// ForUpdate variants.
type AllocationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Allocation, error)
	FindByOrderLine(ctx context.Context, orderLineID uuid.UUID) ([]*Allocation, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]*Allocation, error)

	// FindByStock returns allocations against one stock record, oldest
	// order line first
	FindByStock(ctx context.Context, stockID uuid.UUID) ([]*Allocation, error)
	FindByStockForUpdate(ctx context.Context, stockID uuid.UUID) ([]*Allocation, error)

	// FindUnsourcedByVariant returns allocations of the variant whose
	// sources do not cover them, oldest order line first
	FindUnsourcedByVariant(ctx context.Context, variantID uuid.UUID) ([]*Allocation, error)
	FindUnsourcedByVariantForUpdate(ctx context.Context, variantID uuid.UUID) ([]*Allocation, error)

	// FindBySourceItem returns allocations holding a source against one
	// purchase order item, oldest order line first
	FindBySourceItem(ctx context.Context, itemID uuid.UUID) ([]*Allocation, error)
	FindBySourceItemForUpdate(ctx context.Context, itemID uuid.UUID) ([]*Allocation, error)

	Save(ctx context.Context, a *Allocation) error
	SaveBatch(ctx context.Context, allocations []*Allocation) error
	Delete(ctx context.Context, id uuid.UUID) error
}
