package purchasing

import (
	"time"

	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/dirac/fulfillment/internal/domain/shared/valueobject"
	"github.com/dirac/fulfillment/internal/domain/warehouse"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderItemStatus represents the status of a purchase order item
type PurchaseOrderItemStatus string

const (
	ItemStatusDraft             PurchaseOrderItemStatus = "DRAFT"
	ItemStatusConfirmed         PurchaseOrderItemStatus = "CONFIRMED"
	ItemStatusPartiallyReceived PurchaseOrderItemStatus = "PARTIALLY_RECEIVED"
	ItemStatusReceived          PurchaseOrderItemStatus = "RECEIVED"
)

// IsValid checks if the status is a valid PurchaseOrderItemStatus
func (s PurchaseOrderItemStatus) IsValid() bool {
	switch s {
	case ItemStatusDraft, ItemStatusConfirmed, ItemStatusPartiallyReceived, ItemStatusReceived:
		return true
	}
	return false
}

// String returns the string representation of PurchaseOrderItemStatus
func (s PurchaseOrderItemStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s PurchaseOrderItemStatus) CanTransitionTo(target PurchaseOrderItemStatus) bool {
	switch s {
	case ItemStatusDraft:
		return target == ItemStatusConfirmed
	case ItemStatusConfirmed:
		return target == ItemStatusPartiallyReceived || target == ItemStatusReceived
	case ItemStatusPartiallyReceived:
		return target == ItemStatusPartiallyReceived || target == ItemStatusReceived
	case ItemStatusReceived:
		return false // Terminal
	}
	return false
}

// IsConfirmedOrLater reports whether a supplier commitment has been issued
func (s PurchaseOrderItemStatus) IsConfirmedOrLater() bool {
	return s == ItemStatusConfirmed || s == ItemStatusPartiallyReceived || s == ItemStatusReceived
}

// PurchaseOrder is one order of goods from a supplier. Stock enters owned
// warehouses only through a purchase order: the source is the supplier's
// non-owned warehouse and the destination is an owned warehouse.
type PurchaseOrder struct {
	shared.BaseAggregateRoot
	Reference              string               `gorm:"type:varchar(100);not null;uniqueIndex"`
	SourceWarehouseID      uuid.UUID            `gorm:"type:uuid;not null;index"`
	DestinationWarehouseID uuid.UUID            `gorm:"type:uuid;not null;index"`
	Currency               valueobject.Currency `gorm:"type:varchar(3);not null"`

	Items []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID;references:ID"`
}

// TableName returns the table name for GORM
func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// NewPurchaseOrder creates a purchase order between a non-owned source and
// an owned destination warehouse.
func NewPurchaseOrder(reference string, source, destination *warehouse.Warehouse, currency valueobject.Currency) (*PurchaseOrder, error) {
	if reference == "" {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Purchase order reference cannot be empty")
	}
	if source == nil || destination == nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Source and destination warehouses are required")
	}
	if source.Owned {
		return nil, shared.NewDomainError("INVALID_SOURCE", "Source warehouse must be non-owned")
	}
	if !destination.Owned {
		return nil, shared.NewDomainError("INVALID_DESTINATION", "Destination warehouse must be owned")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	if !currency.IsValid() {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency must be a three-letter code")
	}

	return &PurchaseOrder{
		BaseAggregateRoot:      shared.NewBaseAggregateRoot(),
		Reference:              reference,
		SourceWarehouseID:      source.ID,
		DestinationWarehouseID: destination.ID,
		Currency:               currency,
		Items:                  make([]PurchaseOrderItem, 0),
	}, nil
}

// AddItem appends a draft line item to the purchase order
func (po *PurchaseOrder) AddItem(variantID uuid.UUID, quantityOrdered int, totalPrice decimal.Decimal) (*PurchaseOrderItem, error) {
	item, err := NewPurchaseOrderItem(po.ID, variantID, quantityOrdered, totalPrice)
	if err != nil {
		return nil, err
	}
	po.Items = append(po.Items, *item)
	po.UpdatedAt = time.Now()
	po.IncrementVersion()
	return &po.Items[len(po.Items)-1], nil
}

// PurchaseOrderItem is a variant + quantity line on a purchase order.
// Not unique on (order, variant): the same variant may appear on multiple
// lines when split across shipments.
type PurchaseOrderItem struct {
	shared.BaseEntity
	PurchaseOrderID uuid.UUID               `gorm:"type:uuid;not null;index"`
	VariantID       uuid.UUID               `gorm:"type:uuid;not null;index"`
	QuantityOrdered int                     `gorm:"not null"`
	// Total physically received across all receipt check-ins
	QuantityReceived int `gorm:"not null;default:0"`
	// Quantity promised to customer orders through allocation sources
	QuantityAllocated int                     `gorm:"not null;default:0"`
	TotalPrice        decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	Status            PurchaseOrderItemStatus `gorm:"type:varchar(32);not null;default:'DRAFT'"`
	ShipmentID        *uuid.UUID              `gorm:"type:uuid;index"`
	ConfirmedAt       *time.Time              `gorm:"type:timestamp"`

	Adjustments []PurchaseOrderItemAdjustment `gorm:"foreignKey:PurchaseOrderItemID;references:ID"`
}

// TableName returns the table name for GORM
func (PurchaseOrderItem) TableName() string {
	return "purchase_order_items"
}

// NewPurchaseOrderItem creates a new draft purchase order item
func NewPurchaseOrderItem(orderID, variantID uuid.UUID, quantityOrdered int, totalPrice decimal.Decimal) (*PurchaseOrderItem, error) {
	if variantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VARIANT", "Variant ID cannot be empty")
	}
	if quantityOrdered <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Ordered quantity must be positive")
	}
	if totalPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Total price cannot be negative")
	}

	return &PurchaseOrderItem{
		BaseEntity:      shared.NewBaseEntity(),
		PurchaseOrderID: orderID,
		VariantID:       variantID,
		QuantityOrdered: quantityOrdered,
		TotalPrice:      totalPrice,
		Status:          ItemStatusDraft,
		Adjustments:     make([]PurchaseOrderItemAdjustment, 0),
	}, nil
}

// Confirm issues the supplier commitment for this item
func (i *PurchaseOrderItem) Confirm() error {
	if !i.Status.CanTransitionTo(ItemStatusConfirmed) {
		return shared.NewDomainError("INVALID_STATUS", "Only draft items can be confirmed")
	}
	now := time.Now()
	i.Status = ItemStatusConfirmed
	i.ConfirmedAt = &now
	i.UpdatedAt = now
	return nil
}

// AttachShipment links the item to an inbound shipment
func (i *PurchaseOrderItem) AttachShipment(shipmentID uuid.UUID) error {
	if shipmentID == uuid.Nil {
		return shared.NewDomainError("INVALID_SHIPMENT", "Shipment ID cannot be empty")
	}
	if i.ShipmentID != nil && *i.ShipmentID != shipmentID {
		return shared.NewDomainError("ALREADY_LINKED", "Item is already on a different shipment")
	}
	i.ShipmentID = &shipmentID
	i.UpdatedAt = time.Now()
	return nil
}

// RecordReceipt adds physically received quantity and advances the status.
// A shortfall against QuantityOrdered is recorded separately as an
// adjustment, not an error.
func (i *PurchaseOrderItem) RecordReceipt(quantity int) error {
	if quantity < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Received quantity cannot be negative")
	}
	if !i.Status.IsConfirmedOrLater() || i.Status == ItemStatusReceived {
		return shared.NewDomainError("INVALID_STATUS", "Item must be confirmed before receiving")
	}

	i.QuantityReceived += quantity
	if i.QuantityReceived >= i.QuantityOrdered {
		i.Status = ItemStatusReceived
	} else {
		i.Status = ItemStatusPartiallyReceived
	}
	i.UpdatedAt = time.Now()
	return nil
}

// ProcessedAdjustmentTotal sums the quantity changes of processed adjustments
func (i *PurchaseOrderItem) ProcessedAdjustmentTotal() int {
	total := 0
	for idx := range i.Adjustments {
		if i.Adjustments[idx].ProcessedAt != nil {
			total += i.Adjustments[idx].QuantityChange
		}
	}
	return total
}

// HasUnprocessedAdjustments reports whether any adjustment still needs processing
func (i *PurchaseOrderItem) HasUnprocessedAdjustments() bool {
	for idx := range i.Adjustments {
		if i.Adjustments[idx].ProcessedAt == nil {
			return true
		}
	}
	return false
}

// AvailableQuantity is the amount still available for allocation sources:
// ordered plus processed adjustments minus what is already promised.
func (i *PurchaseOrderItem) AvailableQuantity() int {
	available := i.QuantityOrdered + i.ProcessedAdjustmentTotal() - i.QuantityAllocated
	if available < 0 {
		return 0
	}
	return available
}

// ReserveSource tracks quantity promised to an allocation source
func (i *PurchaseOrderItem) ReserveSource(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Source quantity must be positive")
	}
	if quantity > i.AvailableQuantity() {
		return shared.ErrInsufficientStock
	}
	i.QuantityAllocated += quantity
	i.UpdatedAt = time.Now()
	return nil
}

// ReleaseSource returns previously promised quantity
func (i *PurchaseOrderItem) ReleaseSource(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Source quantity must be positive")
	}
	if quantity > i.QuantityAllocated {
		return shared.NewDomainError("INVALID_QUANTITY", "Cannot release more than is sourced")
	}
	i.QuantityAllocated -= quantity
	i.UpdatedAt = time.Now()
	return nil
}

// UnitPrice is the per-unit cost after processed adjustments. Supplier
// credits (affects-payable) reduce cost and quantity together so the unit
// price holds; losses we absorb only reduce quantity, making each
// remaining unit more expensive.
func (i *PurchaseOrderItem) UnitPrice() decimal.Decimal {
	if i.QuantityOrdered == 0 {
		return decimal.Zero
	}
	baseUnitPrice := i.TotalPrice.Div(decimal.NewFromInt(int64(i.QuantityOrdered)))

	payableAdjustment := 0
	allAdjustments := 0
	for idx := range i.Adjustments {
		if i.Adjustments[idx].ProcessedAt == nil {
			continue
		}
		allAdjustments += i.Adjustments[idx].QuantityChange
		if i.Adjustments[idx].AffectsPayable {
			payableAdjustment += i.Adjustments[idx].QuantityChange
		}
	}

	adjustedCost := i.TotalPrice.Add(decimal.NewFromInt(int64(payableAdjustment)).Mul(baseUnitPrice))
	adjustedQuantity := i.QuantityOrdered + allAdjustments
	if adjustedQuantity > 0 {
		return adjustedCost.Div(decimal.NewFromInt(int64(adjustedQuantity)))
	}
	return baseUnitPrice
}
