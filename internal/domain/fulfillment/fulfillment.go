package fulfillment

import (
	"time"

	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/dirac/fulfillment/internal/domain/shipping"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FulfillmentStatus represents the status of a fulfillment
type FulfillmentStatus string

const (
	StatusWaitingForApproval FulfillmentStatus = "WAITING_FOR_APPROVAL"
	StatusFulfilled          FulfillmentStatus = "FULFILLED"
)

// IsValid checks if the status is a valid FulfillmentStatus
func (s FulfillmentStatus) IsValid() bool {
	return s == StatusWaitingForApproval || s == StatusFulfilled
}

// String returns the string representation of FulfillmentStatus
func (s FulfillmentStatus) String() string {
	return string(s)
}

// Shipment linking errors
var (
	ErrAlreadyLinked  = shared.NewDomainError("ALREADY_LINKED", "A different shipment is already linked to this fulfillment")
	ErrWrongWarehouse = shared.NewDomainError("WRONG_WAREHOUSE", "Shipment does not depart from this fulfillment's warehouse")
)

// Fulfillment groups an order's goods leaving one owned warehouse. Created
// when the order confirms, one per distinct owned warehouse the order's
// allocations touch. The move to FULFILLED is never a direct command; it
// happens when picking completes, an outbound shipment is linked, and the
// money requirement is met.
type Fulfillment struct {
	shared.BaseAggregateRoot
	OrderID     uuid.UUID         `gorm:"type:uuid;not null;index:idx_fulfillments_order_warehouse,unique"`
	WarehouseID uuid.UUID         `gorm:"type:uuid;not null;index:idx_fulfillments_order_warehouse,unique"`
	Status      FulfillmentStatus `gorm:"type:varchar(32);not null;default:'WAITING_FOR_APPROVAL'"`
	ShipmentID  *uuid.UUID        `gorm:"type:uuid;index"`

	ProformaInvoiceID   *uuid.UUID `gorm:"type:uuid"`
	ProformaInvoicePaid bool       `gorm:"not null;default:false"`
	ProformaPaidAt      *time.Time `gorm:"type:timestamp"`

	// Share of the order's deposit credited to this fulfillment
	DepositAllocated decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	FulfilledAt      *time.Time      `gorm:"type:timestamp"`

	Lines []FulfillmentLine `gorm:"foreignKey:FulfillmentID;references:ID"`
}

// TableName returns the table name for GORM
func (Fulfillment) TableName() string {
	return "fulfillments"
}

// NewFulfillment creates a fulfillment in WAITING_FOR_APPROVAL
func NewFulfillment(orderID, warehouseID uuid.UUID) (*Fulfillment, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order ID cannot be empty")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}

	f := &Fulfillment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderID:           orderID,
		WarehouseID:       warehouseID,
		Status:            StatusWaitingForApproval,
		DepositAllocated:  decimal.Zero,
		Lines:             make([]FulfillmentLine, 0),
	}
	f.AddDomainEvent(NewFulfillmentCreatedEvent(f))
	return f, nil
}

// AddLine appends the portion of an order line this fulfillment covers
func (f *Fulfillment) AddLine(orderLineID, variantID uuid.UUID, quantity int, unitPrice decimal.Decimal) (*FulfillmentLine, error) {
	if f.Status != StatusWaitingForApproval {
		return nil, shared.NewDomainError("INVALID_STATUS", "Cannot add lines to a fulfilled fulfillment")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Line quantity must be positive")
	}

	line := FulfillmentLine{
		BaseEntity:    shared.NewBaseEntity(),
		FulfillmentID: f.ID,
		OrderLineID:   orderLineID,
		VariantID:     variantID,
		Quantity:      quantity,
		UnitPrice:     unitPrice,
	}
	f.Lines = append(f.Lines, line)
	f.UpdatedAt = time.Now()
	return &f.Lines[len(f.Lines)-1], nil
}

// Total is the fulfillment's worth at order prices
func (f *Fulfillment) Total() decimal.Decimal {
	total := decimal.Zero
	for i := range f.Lines {
		total = total.Add(f.Lines[i].Total())
	}
	return total
}

// LinkShipment attaches the outbound shipment carrying this fulfillment.
// Linking the same shipment again is a no-op.
func (f *Fulfillment) LinkShipment(shipment *shipping.Shipment) error {
	if shipment == nil {
		return shared.NewDomainError("INVALID_SHIPMENT", "Shipment is required")
	}
	if f.ShipmentID != nil {
		if *f.ShipmentID == shipment.ID {
			return nil
		}
		return ErrAlreadyLinked
	}
	if shipment.Direction != shipping.DirectionOutbound {
		return shared.NewDomainError("INVALID_SHIPMENT", "Only outbound shipments can carry a fulfillment")
	}
	if shipment.WarehouseID != f.WarehouseID {
		return ErrWrongWarehouse
	}

	f.ShipmentID = &shipment.ID
	f.UpdatedAt = time.Now()
	f.IncrementVersion()
	f.AddDomainEvent(NewShipmentLinkedEvent(f, shipment.ID))
	return nil
}

// AttachProformaInvoice records the proforma invoice raised for this
// fulfillment
func (f *Fulfillment) AttachProformaInvoice(invoiceID uuid.UUID) error {
	if invoiceID == uuid.Nil {
		return shared.NewDomainError("INVALID_INVOICE", "Invoice ID cannot be empty")
	}
	if f.ProformaInvoiceID != nil && *f.ProformaInvoiceID != invoiceID {
		return shared.NewDomainError("ALREADY_INVOICED", "A different proforma invoice is already attached")
	}
	f.ProformaInvoiceID = &invoiceID
	f.UpdatedAt = time.Now()
	return nil
}

// MarkProformaPaid records the external payment confirmation. One-way;
// repeated calls are no-ops.
func (f *Fulfillment) MarkProformaPaid(paidAt time.Time) error {
	if f.ProformaInvoicePaid {
		return nil
	}
	f.ProformaInvoicePaid = true
	f.ProformaPaidAt = &paidAt
	f.UpdatedAt = time.Now()
	f.IncrementVersion()
	f.AddDomainEvent(NewProformaPaidEvent(f))
	return nil
}

// SetDepositAllocated records this fulfillment's share of the order deposit
func (f *Fulfillment) SetDepositAllocated(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Deposit allocation cannot be negative")
	}
	f.DepositAllocated = amount
	f.UpdatedAt = time.Now()
	return nil
}

// CanAutoTransitionToFulfilled is the approval predicate: picking done, an
// outbound shipment linked, and either no deposit is required for the
// order or the proforma invoice is paid.
func (f *Fulfillment) CanAutoTransitionToFulfilled(pickCompleted, depositRequired bool) bool {
	if f.Status != StatusWaitingForApproval {
		return false
	}
	if !pickCompleted {
		return false
	}
	if f.ShipmentID == nil {
		return false
	}
	if depositRequired && !f.ProformaInvoicePaid {
		return false
	}
	return true
}

// TransitionToFulfilled moves the fulfillment to its terminal state.
// Idempotent so the coordinator may re-run on every trigger.
func (f *Fulfillment) TransitionToFulfilled() error {
	if f.Status == StatusFulfilled {
		return nil
	}
	now := time.Now()
	f.Status = StatusFulfilled
	f.FulfilledAt = &now
	f.UpdatedAt = now
	f.IncrementVersion()
	f.AddDomainEvent(NewFulfillmentFulfilledEvent(f))
	return nil
}

// FulfillmentLine is the portion of one order line this fulfillment covers
type FulfillmentLine struct {
	shared.BaseEntity
	FulfillmentID uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderLineID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	VariantID     uuid.UUID       `gorm:"type:uuid;not null"`
	Quantity      int             `gorm:"not null"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (FulfillmentLine) TableName() string {
	return "fulfillment_lines"
}

// Total is the line quantity at order price
func (l *FulfillmentLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
