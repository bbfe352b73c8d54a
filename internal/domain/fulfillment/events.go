package fulfillment

import (
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeFulfillmentCreated    = "fulfillment.created"
	EventTypeShipmentLinked        = "fulfillment.shipment_linked"
	EventTypeProformaPaid          = "fulfillment.proforma_paid"
	EventTypeFulfillmentFulfilled  = "fulfillment.fulfilled"
	EventTypePickCompleted         = "fulfillment.pick_completed"
	EventTypeProformaInvoiceNeeded = "fulfillment.proforma_invoice_needed"
)

// FulfillmentCreatedEvent fires when an order confirms and a fulfillment
// is opened for one of its warehouses
type FulfillmentCreatedEvent struct {
	shared.BaseDomainEvent
	FulfillmentID uuid.UUID `json:"fulfillment_id"`
	OrderID       uuid.UUID `json:"order_id"`
	WarehouseID   uuid.UUID `json:"warehouse_id"`
}

// NewFulfillmentCreatedEvent creates a new fulfillment created event
func NewFulfillmentCreatedEvent(f *Fulfillment) *FulfillmentCreatedEvent {
	return &FulfillmentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFulfillmentCreated, "Fulfillment", f.ID),
		FulfillmentID:   f.ID,
		OrderID:         f.OrderID,
		WarehouseID:     f.WarehouseID,
	}
}

// ShipmentLinkedEvent fires when an outbound shipment is attached
type ShipmentLinkedEvent struct {
	shared.BaseDomainEvent
	FulfillmentID uuid.UUID `json:"fulfillment_id"`
	ShipmentID    uuid.UUID `json:"shipment_id"`
}

// NewShipmentLinkedEvent creates a new shipment linked event
func NewShipmentLinkedEvent(f *Fulfillment, shipmentID uuid.UUID) *ShipmentLinkedEvent {
	return &ShipmentLinkedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeShipmentLinked, "Fulfillment", f.ID),
		FulfillmentID:   f.ID,
		ShipmentID:      shipmentID,
	}
}

// ProformaPaidEvent fires when the external payment confirmation lands
type ProformaPaidEvent struct {
	shared.BaseDomainEvent
	FulfillmentID uuid.UUID `json:"fulfillment_id"`
	OrderID       uuid.UUID `json:"order_id"`
}

// NewProformaPaidEvent creates a new proforma paid event
func NewProformaPaidEvent(f *Fulfillment) *ProformaPaidEvent {
	return &ProformaPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProformaPaid, "Fulfillment", f.ID),
		FulfillmentID:   f.ID,
		OrderID:         f.OrderID,
	}
}

// FulfillmentFulfilledEvent fires on the automatic move to FULFILLED
type FulfillmentFulfilledEvent struct {
	shared.BaseDomainEvent
	FulfillmentID uuid.UUID `json:"fulfillment_id"`
	OrderID       uuid.UUID `json:"order_id"`
	WarehouseID   uuid.UUID `json:"warehouse_id"`
}

// NewFulfillmentFulfilledEvent creates a new fulfillment fulfilled event
func NewFulfillmentFulfilledEvent(f *Fulfillment) *FulfillmentFulfilledEvent {
	return &FulfillmentFulfilledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFulfillmentFulfilled, "Fulfillment", f.ID),
		FulfillmentID:   f.ID,
		OrderID:         f.OrderID,
		WarehouseID:     f.WarehouseID,
	}
}

// PickCompletedEvent fires when a picking run closes
type PickCompletedEvent struct {
	shared.BaseDomainEvent
	PickID        uuid.UUID `json:"pick_id"`
	FulfillmentID uuid.UUID `json:"fulfillment_id"`
}

// NewPickCompletedEvent creates a new pick completed event
func NewPickCompletedEvent(p *Pick) *PickCompletedEvent {
	return &PickCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePickCompleted, "Pick", p.ID),
		PickID:          p.ID,
		FulfillmentID:   p.FulfillmentID,
	}
}

// ProformaInvoiceLine is one line of the payload handed to the document
// generator
type ProformaInvoiceLine struct {
	VariantID uuid.UUID       `json:"variant_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// ProformaInvoiceNeededEvent carries everything the document generator
// needs to render a proforma invoice. No rendering happens here.
type ProformaInvoiceNeededEvent struct {
	shared.BaseDomainEvent
	FulfillmentID uuid.UUID             `json:"fulfillment_id"`
	OrderID       uuid.UUID             `json:"order_id"`
	Lines         []ProformaInvoiceLine `json:"lines"`
	DepositCredit decimal.Decimal       `json:"deposit_credit"`
	NetAmount     decimal.Decimal       `json:"net_amount"`
}

// NewProformaInvoiceNeededEvent creates a new proforma invoice needed event
func NewProformaInvoiceNeededEvent(f *Fulfillment, netAmount decimal.Decimal) *ProformaInvoiceNeededEvent {
	lines := make([]ProformaInvoiceLine, 0, len(f.Lines))
	for i := range f.Lines {
		lines = append(lines, ProformaInvoiceLine{
			VariantID: f.Lines[i].VariantID,
			Quantity:  f.Lines[i].Quantity,
			UnitPrice: f.Lines[i].UnitPrice,
		})
	}
	return &ProformaInvoiceNeededEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProformaInvoiceNeeded, "Fulfillment", f.ID),
		FulfillmentID:   f.ID,
		OrderID:         f.OrderID,
		Lines:           lines,
		DepositCredit:   f.DepositAllocated,
		NetAmount:       netAmount,
	}
}
