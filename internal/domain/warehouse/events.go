package warehouse

import (
	"time"

	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// Event types for the warehouse domain
const (
	EventTypeStockReserved   = "warehouse.stock.reserved"
	EventTypeStockReleased   = "warehouse.stock.released"
	EventTypeUnitsConsumed   = "warehouse.units.consumed"
	EventTypeUnitsArrived    = "warehouse.units.arrived"
	EventTypeUnitsWrittenOff = "warehouse.units.written_off"
)

// StockReservedEvent is emitted when stock is reserved for an allocation
type StockReservedEvent struct {
	shared.BaseDomainEvent
	WarehouseID uuid.UUID `json:"warehouse_id"`
	VariantID   uuid.UUID `json:"variant_id"`
	Quantity    int       `json:"quantity"`
}

// NewStockReservedEvent creates a new StockReservedEvent
func NewStockReservedEvent(stock *Stock, quantity int) *StockReservedEvent {
	return &StockReservedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReserved, "Stock", stock.ID),
		WarehouseID:     stock.WarehouseID,
		VariantID:       stock.VariantID,
		Quantity:        quantity,
	}
}

// StockReleasedEvent is emitted when a reservation is released
type StockReleasedEvent struct {
	shared.BaseDomainEvent
	WarehouseID uuid.UUID `json:"warehouse_id"`
	VariantID   uuid.UUID `json:"variant_id"`
	Quantity    int       `json:"quantity"`
}

// NewStockReleasedEvent creates a new StockReleasedEvent
func NewStockReleasedEvent(stock *Stock, quantity int) *StockReleasedEvent {
	return &StockReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReleased, "Stock", stock.ID),
		WarehouseID:     stock.WarehouseID,
		VariantID:       stock.VariantID,
		Quantity:        quantity,
	}
}

// UnitsConsumedEvent is emitted when units are assigned to a fulfillment
type UnitsConsumedEvent struct {
	shared.BaseDomainEvent
	WarehouseID   uuid.UUID   `json:"warehouse_id"`
	VariantID     uuid.UUID   `json:"variant_id"`
	UnitIDs       []uuid.UUID `json:"unit_ids"`
	FulfillmentID uuid.UUID   `json:"fulfillment_id"`
}

// NewUnitsConsumedEvent creates a new UnitsConsumedEvent
func NewUnitsConsumedEvent(warehouseID, variantID, fulfillmentID uuid.UUID, unitIDs []uuid.UUID) *UnitsConsumedEvent {
	return &UnitsConsumedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUnitsConsumed, "Stock", warehouseID),
		WarehouseID:     warehouseID,
		VariantID:       variantID,
		UnitIDs:         unitIDs,
		FulfillmentID:   fulfillmentID,
	}
}

// UnitsArrivedEvent is emitted when inbound units are checked into an owned warehouse
type UnitsArrivedEvent struct {
	shared.BaseDomainEvent
	WarehouseID uuid.UUID `json:"warehouse_id"`
	VariantID   uuid.UUID `json:"variant_id"`
	Quantity    int       `json:"quantity"`
	ArrivedAt   time.Time `json:"arrived_at"`
}

// NewUnitsArrivedEvent creates a new UnitsArrivedEvent
func NewUnitsArrivedEvent(warehouseID, variantID uuid.UUID, quantity int, arrivedAt time.Time) *UnitsArrivedEvent {
	return &UnitsArrivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUnitsArrived, "Stock", warehouseID),
		WarehouseID:     warehouseID,
		VariantID:       variantID,
		Quantity:        quantity,
		ArrivedAt:       arrivedAt,
	}
}
