package warehouse

import (
	"time"

	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// Stock is the quantity record for one (warehouse, variant) pair.
//
// For owned warehouses Quantity is derived: it must always equal the
// number of countable units for the pair and is only ever written through
// RecomputeFromUnits. For non-owned warehouses Quantity is an externally
// reported upper bound that may be stale.
type Stock struct {
	shared.BaseAggregateRoot
	WarehouseID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_warehouse_variant,priority:1"`
	VariantID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_warehouse_variant,priority:2"`
	Quantity          int       `gorm:"not null;default:0"`
	QuantityAllocated int       `gorm:"not null;default:0"`

	// Denormalized from the warehouse row so allocation ordering does not
	// need a join. Kept in sync on creation; warehouses never flip ownership.
	WarehouseOwned bool `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (Stock) TableName() string {
	return "stocks"
}

// NewStock creates a stock record for a warehouse-variant pair
func NewStock(wh *Warehouse, variantID uuid.UUID) (*Stock, error) {
	if wh == nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse cannot be nil")
	}
	if variantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VARIANT", "Variant ID cannot be empty")
	}

	return &Stock{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		WarehouseID:       wh.ID,
		VariantID:         variantID,
		WarehouseOwned:    wh.Owned,
	}, nil
}

// AvailableQuantity returns the quantity not yet reserved by allocations
func (s *Stock) AvailableQuantity() int {
	available := s.Quantity - s.QuantityAllocated
	if available < 0 {
		return 0
	}
	return available
}

// CanFulfill returns true if the available quantity covers the request
func (s *Stock) CanFulfill(quantity int) bool {
	return s.AvailableQuantity() >= quantity
}

// Reserve increases the allocated quantity.
// The sum of allocations against a stock row never exceeds its quantity.
func (s *Stock) Reserve(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Reserve quantity must be positive")
	}
	if !s.CanFulfill(quantity) {
		return shared.ErrInsufficientStock
	}
	s.QuantityAllocated += quantity
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	s.AddDomainEvent(NewStockReservedEvent(s, quantity))
	return nil
}

// Release decreases the allocated quantity
func (s *Stock) Release(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Release quantity must be positive")
	}
	if quantity > s.QuantityAllocated {
		return shared.NewDomainError("INVALID_QUANTITY", "Cannot release more than is allocated")
	}
	s.QuantityAllocated -= quantity
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	s.AddDomainEvent(NewStockReleasedEvent(s, quantity))
	return nil
}

// RecomputeFromUnits sets the derived quantity for an owned warehouse.
// countableUnits must be the count of unconsumed, non-written-off units
// for this warehouse-variant pair at the end of the mutating transaction.
func (s *Stock) RecomputeFromUnits(countableUnits int) error {
	if !s.WarehouseOwned {
		return shared.NewDomainError("NOT_OWNED", "Only owned warehouse stock is derived from units")
	}
	if countableUnits < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Unit count cannot be negative")
	}
	if s.Quantity != countableUnits {
		s.Quantity = countableUnits
		s.UpdatedAt = time.Now()
		s.IncrementVersion()
	}
	return nil
}

// SetReportedQuantity records an externally supplied upper bound for a
// non-owned warehouse.
func (s *Stock) SetReportedQuantity(quantity int) error {
	if s.WarehouseOwned {
		return shared.NewDomainError("OWNED", "Owned warehouse stock cannot be set directly")
	}
	if quantity < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Reported quantity cannot be negative")
	}
	s.Quantity = quantity
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}
