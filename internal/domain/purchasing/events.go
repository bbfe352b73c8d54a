package purchasing

import (
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	EventTypeItemConfirmed       = "purchasing.item.confirmed"
	EventTypeItemReceived        = "purchasing.item.received"
	EventTypeReceiptCompleted    = "purchasing.receipt.completed"
	EventTypeAdjustmentProcessed = "purchasing.adjustment.processed"
)

// ItemConfirmedEvent fires when a supplier commitment is issued for an item
type ItemConfirmedEvent struct {
	shared.BaseDomainEvent
	ItemID          uuid.UUID `json:"item_id"`
	PurchaseOrderID uuid.UUID `json:"purchase_order_id"`
	VariantID       uuid.UUID `json:"variant_id"`
	QuantityOrdered int       `json:"quantity_ordered"`
}

// NewItemConfirmedEvent creates a new item confirmed event
func NewItemConfirmedEvent(item *PurchaseOrderItem) *ItemConfirmedEvent {
	return &ItemConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeItemConfirmed, "PurchaseOrderItem", item.ID),
		ItemID:          item.ID,
		PurchaseOrderID: item.PurchaseOrderID,
		VariantID:       item.VariantID,
		QuantityOrdered: item.QuantityOrdered,
	}
}

// ItemReceivedEvent fires when physical receipt quantity is recorded
type ItemReceivedEvent struct {
	shared.BaseDomainEvent
	ItemID           uuid.UUID `json:"item_id"`
	PurchaseOrderID  uuid.UUID `json:"purchase_order_id"`
	VariantID        uuid.UUID `json:"variant_id"`
	QuantityReceived int       `json:"quantity_received"`
	FullyReceived    bool      `json:"fully_received"`
}

// NewItemReceivedEvent creates a new item received event
func NewItemReceivedEvent(item *PurchaseOrderItem, quantity int) *ItemReceivedEvent {
	return &ItemReceivedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeItemReceived, "PurchaseOrderItem", item.ID),
		ItemID:           item.ID,
		PurchaseOrderID:  item.PurchaseOrderID,
		VariantID:        item.VariantID,
		QuantityReceived: quantity,
		FullyReceived:    item.Status == ItemStatusReceived,
	}
}

// ReceiptCompletedEvent fires when a goods receipt is closed
type ReceiptCompletedEvent struct {
	shared.BaseDomainEvent
	ReceiptID  uuid.UUID `json:"receipt_id"`
	ShipmentID uuid.UUID `json:"shipment_id"`
	LineCount  int       `json:"line_count"`
}

// NewReceiptCompletedEvent creates a new receipt completed event
func NewReceiptCompletedEvent(receipt *Receipt) *ReceiptCompletedEvent {
	return &ReceiptCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceiptCompleted, "Receipt", receipt.ID),
		ReceiptID:       receipt.ID,
		ShipmentID:      receipt.ShipmentID,
		LineCount:       len(receipt.Lines),
	}
}

// AdjustmentProcessedEvent fires when an adjustment's downstream effects
// have been applied
type AdjustmentProcessedEvent struct {
	shared.BaseDomainEvent
	AdjustmentID   uuid.UUID        `json:"adjustment_id"`
	ItemID         uuid.UUID        `json:"item_id"`
	QuantityChange int              `json:"quantity_change"`
	Reason         AdjustmentReason `json:"reason"`
	AffectsPayable bool             `json:"affects_payable"`
}

// NewAdjustmentProcessedEvent creates a new adjustment processed event
func NewAdjustmentProcessedEvent(adjustment *PurchaseOrderItemAdjustment) *AdjustmentProcessedEvent {
	return &AdjustmentProcessedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAdjustmentProcessed, "PurchaseOrderItemAdjustment", adjustment.ID),
		AdjustmentID:    adjustment.ID,
		ItemID:          adjustment.PurchaseOrderItemID,
		QuantityChange:  adjustment.QuantityChange,
		Reason:          adjustment.Reason,
		AffectsPayable:  adjustment.AffectsPayable,
	}
}
