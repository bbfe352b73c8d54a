package warehouse

import (
	"context"

	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// WarehouseRepository defines the interface for warehouse persistence
type WarehouseRepository interface {
	// FindByID finds a warehouse by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Warehouse, error)

	// FindByCode finds a warehouse by its unique code
	FindByCode(ctx context.Context, code string) (*Warehouse, error)

	// FindOwned finds all owned warehouses ordered by priority
	FindOwned(ctx context.Context) ([]Warehouse, error)

	// FindAll finds all warehouses matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]Warehouse, error)

	// Save creates or updates a warehouse
	Save(ctx context.Context, wh *Warehouse) error

	// Delete deletes a warehouse
	Delete(ctx context.Context, id uuid.UUID) error
}

// StockRepository defines the interface for stock persistence
type StockRepository interface {
	// FindByID finds a stock row by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Stock, error)

	// FindByWarehouseAndVariant finds the stock row for a warehouse-variant pair
	FindByWarehouseAndVariant(ctx context.Context, warehouseID, variantID uuid.UUID) (*Stock, error)

	// FindByWarehouseAndVariantForUpdate locks the row for the duration of
	// the current transaction. Concurrent allocation against the same pair
	// serializes on this lock.
	FindByWarehouseAndVariantForUpdate(ctx context.Context, warehouseID, variantID uuid.UUID) (*Stock, error)

	// FindByVariant finds all stock rows for a variant, owned warehouses
	// first by priority, then non-owned.
	FindByVariant(ctx context.Context, variantID uuid.UUID) ([]Stock, error)

	// FindByVariantForUpdate locks and returns all stock rows for a variant
	// in allocation order.
	FindByVariantForUpdate(ctx context.Context, variantID uuid.UUID) ([]Stock, error)

	// GetOrCreate gets an existing stock row or creates a zero one
	GetOrCreate(ctx context.Context, wh *Warehouse, variantID uuid.UUID) (*Stock, error)

	// Save creates or updates a stock row
	Save(ctx context.Context, stock *Stock) error

	// SaveWithLock saves with optimistic locking (checks version)
	SaveWithLock(ctx context.Context, stock *Stock) error
}

// UnitRepository defines the interface for unit persistence
type UnitRepository interface {
	// FindByID finds a unit by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Unit, error)

	// FindCountable finds unconsumed, non-written-off units for a
	// warehouse-variant pair, oldest arrival first.
	FindCountable(ctx context.Context, warehouseID, variantID uuid.UUID) ([]*Unit, error)

	// FindCountableForUpdate locks and returns countable units for a
	// warehouse-variant pair, oldest arrival first.
	FindCountableForUpdate(ctx context.Context, warehouseID, variantID uuid.UUID) ([]*Unit, error)

	// FindByPurchaseOrderItem finds all units created for a purchase order item
	FindByPurchaseOrderItem(ctx context.Context, poiID uuid.UUID) ([]*Unit, error)

	// CountCountable counts countable units for a warehouse-variant pair
	CountCountable(ctx context.Context, warehouseID, variantID uuid.UUID) (int, error)

	// CreateBatch inserts multiple units
	CreateBatch(ctx context.Context, units []*Unit) error

	// Save updates a single unit
	Save(ctx context.Context, unit *Unit) error

	// SaveBatch updates multiple units
	SaveBatch(ctx context.Context, units []*Unit) error
}
