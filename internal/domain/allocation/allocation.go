package allocation

import (
	"time"

	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// Allocation reserves stock quantity for one order line against one stock
// record. An order line may hold allocations against several stocks when a
// single warehouse cannot cover it; one stock holds at most one allocation
// per order line.
type Allocation struct {
	shared.BaseAggregateRoot
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index"`
	OrderLineID uuid.UUID `gorm:"type:uuid;not null;index:idx_allocations_line_stock,unique"`
	StockID     uuid.UUID `gorm:"type:uuid;not null;index:idx_allocations_line_stock,unique"`
	WarehouseID uuid.UUID `gorm:"type:uuid;not null;index"`
	VariantID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity    int       `gorm:"not null"`
	// Creation time of the order line, denormalized so allocations can be
	// ordered oldest-line-first without loading orders.
	OrderLineCreatedAt time.Time `gorm:"not null;index"`

	Sources []AllocationSource `gorm:"foreignKey:AllocationID;references:ID"`
}

// TableName returns the table name for GORM
func (Allocation) TableName() string {
	return "allocations"
}

// NewAllocation creates a new allocation against a stock record
func NewAllocation(orderID, orderLineID uuid.UUID, lineCreatedAt time.Time, stockID, warehouseID, variantID uuid.UUID, quantity int) (*Allocation, error) {
	if orderLineID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER_LINE", "Order line ID cannot be empty")
	}
	if stockID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STOCK", "Stock ID cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Allocation quantity must be positive")
	}

	a := &Allocation{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		OrderID:            orderID,
		OrderLineID:        orderLineID,
		StockID:            stockID,
		WarehouseID:        warehouseID,
		VariantID:          variantID,
		Quantity:           quantity,
		OrderLineCreatedAt: lineCreatedAt,
		Sources:            make([]AllocationSource, 0),
	}
	a.AddDomainEvent(NewAllocationCreatedEvent(a))
	return a, nil
}

// Increase grows the allocation when more of the same stock is reserved
// for the same line
func (a *Allocation) Increase(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Increase quantity must be positive")
	}
	a.Quantity += quantity
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return nil
}

// Decrease shrinks the allocation, trimming sources newest-first so the
// coverage invariant holds. Returns the per-item quantities released so
// the caller can return them to the purchase order items.
func (a *Allocation) Decrease(quantity int) (map[uuid.UUID]int, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Decrease quantity must be positive")
	}
	if quantity > a.Quantity {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Cannot decrease below zero")
	}

	a.Quantity -= quantity
	released := make(map[uuid.UUID]int)
	for excess := a.SourcedQuantity() - a.Quantity; excess > 0; excess = a.SourcedQuantity() - a.Quantity {
		last := &a.Sources[len(a.Sources)-1]
		trim := excess
		if trim >= last.Quantity {
			trim = last.Quantity
			released[last.PurchaseOrderItemID] += trim
			a.Sources = a.Sources[:len(a.Sources)-1]
		} else {
			last.Quantity -= trim
			released[last.PurchaseOrderItemID] += trim
		}
	}
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return released, nil
}

// SourcedQuantity sums the quantity covered by allocation sources
func (a *Allocation) SourcedQuantity() int {
	total := 0
	for i := range a.Sources {
		total += a.Sources[i].Quantity
	}
	return total
}

// UnsourcedQuantity is the portion not yet backed by a purchase order item
func (a *Allocation) UnsourcedQuantity() int {
	unsourced := a.Quantity - a.SourcedQuantity()
	if unsourced < 0 {
		return 0
	}
	return unsourced
}

// IsFullySourced reports whether sources cover the whole allocation
func (a *Allocation) IsFullySourced() bool {
	return a.SourcedQuantity() >= a.Quantity
}

// AddSource covers part of the allocation with a purchase order item.
// Coverage never exceeds the allocation quantity.
func (a *Allocation) AddSource(itemID uuid.UUID, quantity int) (*AllocationSource, error) {
	if itemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ITEM", "Purchase order item ID cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Source quantity must be positive")
	}
	if quantity > a.UnsourcedQuantity() {
		return nil, shared.ErrAllocationSourceMismatch
	}

	for i := range a.Sources {
		if a.Sources[i].PurchaseOrderItemID == itemID {
			a.Sources[i].Quantity += quantity
			a.UpdatedAt = time.Now()
			return &a.Sources[i], nil
		}
	}

	source := AllocationSource{
		BaseEntity:          shared.NewBaseEntity(),
		AllocationID:        a.ID,
		PurchaseOrderItemID: itemID,
		Quantity:            quantity,
	}
	a.Sources = append(a.Sources, source)
	a.UpdatedAt = time.Now()
	return &a.Sources[len(a.Sources)-1], nil
}

// ReduceSource trims up to quantity from this allocation's source against
// one purchase order item, leaving the allocation partially unsourced.
// Returns the quantity actually trimmed. Used when an adjustment shrinks
// the item below what was promised; the gate blocks the order until the
// gap is re-covered.
func (a *Allocation) ReduceSource(itemID uuid.UUID, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, shared.NewDomainError("INVALID_QUANTITY", "Reduce quantity must be positive")
	}
	for i := range a.Sources {
		if a.Sources[i].PurchaseOrderItemID != itemID {
			continue
		}
		trimmed := quantity
		if trimmed >= a.Sources[i].Quantity {
			trimmed = a.Sources[i].Quantity
			a.Sources = append(a.Sources[:i], a.Sources[i+1:]...)
		} else {
			a.Sources[i].Quantity -= trimmed
		}
		a.UpdatedAt = time.Now()
		a.IncrementVersion()
		return trimmed, nil
	}
	return 0, nil
}

// Repoint moves the allocation to another stock record, used when goods
// transfer between warehouses
func (a *Allocation) Repoint(stockID, warehouseID uuid.UUID) error {
	if stockID == uuid.Nil {
		return shared.NewDomainError("INVALID_STOCK", "Stock ID cannot be empty")
	}
	fromStockID := a.StockID
	a.StockID = stockID
	a.WarehouseID = warehouseID
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	a.AddDomainEvent(NewAllocationRepointedEvent(a, fromStockID))
	return nil
}

// Split carves off quantity into a new allocation on another stock,
// carrying sources newest-first with it. Used when only part of an
// allocation's goods move.
func (a *Allocation) Split(quantity int, stockID, warehouseID uuid.UUID) (*Allocation, error) {
	if quantity <= 0 || quantity >= a.Quantity {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Split quantity must be positive and below the allocation quantity")
	}

	moved, err := NewAllocation(a.OrderID, a.OrderLineID, a.OrderLineCreatedAt, stockID, warehouseID, a.VariantID, quantity)
	if err != nil {
		return nil, err
	}

	a.Quantity -= quantity
	for excess := a.SourcedQuantity() - a.Quantity; excess > 0; excess = a.SourcedQuantity() - a.Quantity {
		last := &a.Sources[len(a.Sources)-1]
		carry := excess
		if carry >= last.Quantity {
			carry = last.Quantity
			a.Sources = a.Sources[:len(a.Sources)-1]
		} else {
			last.Quantity -= carry
		}
		if _, err := moved.AddSource(last.PurchaseOrderItemID, carry); err != nil {
			return nil, err
		}
	}
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return moved, nil
}

// AllocationSource covers allocation quantity with a confirmed purchase
// order item, tying a customer promise to a supplier commitment
type AllocationSource struct {
	shared.BaseEntity
	AllocationID        uuid.UUID `gorm:"type:uuid;not null;index"`
	PurchaseOrderItemID uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity            int       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AllocationSource) TableName() string {
	return "allocation_sources"
}
