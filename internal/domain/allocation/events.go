package allocation

import (
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	EventTypeAllocationCreated   = "allocation.created"
	EventTypeAllocationRepointed = "allocation.repointed"
	EventTypeAllocationReleased  = "allocation.released"
)

// AllocationCreatedEvent fires when stock is reserved for an order line
type AllocationCreatedEvent struct {
	shared.BaseDomainEvent
	AllocationID uuid.UUID `json:"allocation_id"`
	OrderID      uuid.UUID `json:"order_id"`
	OrderLineID  uuid.UUID `json:"order_line_id"`
	StockID      uuid.UUID `json:"stock_id"`
	VariantID    uuid.UUID `json:"variant_id"`
	Quantity     int       `json:"quantity"`
}

// NewAllocationCreatedEvent creates a new allocation created event
func NewAllocationCreatedEvent(a *Allocation) *AllocationCreatedEvent {
	return &AllocationCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAllocationCreated, "Allocation", a.ID),
		AllocationID:    a.ID,
		OrderID:         a.OrderID,
		OrderLineID:     a.OrderLineID,
		StockID:         a.StockID,
		VariantID:       a.VariantID,
		Quantity:        a.Quantity,
	}
}

// AllocationRepointedEvent fires when an allocation moves to another stock
type AllocationRepointedEvent struct {
	shared.BaseDomainEvent
	AllocationID uuid.UUID `json:"allocation_id"`
	FromStockID  uuid.UUID `json:"from_stock_id"`
	ToStockID    uuid.UUID `json:"to_stock_id"`
	Quantity     int       `json:"quantity"`
}

// NewAllocationRepointedEvent creates a new allocation repointed event
func NewAllocationRepointedEvent(a *Allocation, fromStockID uuid.UUID) *AllocationRepointedEvent {
	return &AllocationRepointedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAllocationRepointed, "Allocation", a.ID),
		AllocationID:    a.ID,
		FromStockID:     fromStockID,
		ToStockID:       a.StockID,
		Quantity:        a.Quantity,
	}
}

// AllocationReleasedEvent fires when reserved quantity is returned to stock
type AllocationReleasedEvent struct {
	shared.BaseDomainEvent
	AllocationID uuid.UUID `json:"allocation_id"`
	OrderLineID  uuid.UUID `json:"order_line_id"`
	Quantity     int       `json:"quantity"`
}

// NewAllocationReleasedEvent creates a new allocation released event
func NewAllocationReleasedEvent(a *Allocation, quantity int) *AllocationReleasedEvent {
	return &AllocationReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAllocationReleased, "Allocation", a.ID),
		AllocationID:    a.ID,
		OrderLineID:     a.OrderLineID,
		Quantity:        quantity,
	}
}
