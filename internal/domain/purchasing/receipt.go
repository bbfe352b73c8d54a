package purchasing

import (
	"time"

	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// ReceiptStatus represents the lifecycle of a goods receipt
type ReceiptStatus string

const (
	ReceiptStatusInProgress ReceiptStatus = "IN_PROGRESS"
	ReceiptStatusCompleted  ReceiptStatus = "COMPLETED"
)

// IsValid checks if the status is a valid ReceiptStatus
func (s ReceiptStatus) IsValid() bool {
	return s == ReceiptStatusInProgress || s == ReceiptStatusCompleted
}

// String returns the string representation of ReceiptStatus
func (s ReceiptStatus) String() string {
	return string(s)
}

// Receipt records the physical check-in of an arrived inbound shipment.
// Each check-in line counts units of one purchase order item; finishing
// the receipt compares checked-in totals against committed quantities and
// the shortfall becomes a short-delivery adjustment.
type Receipt struct {
	shared.BaseAggregateRoot
	ShipmentID  uuid.UUID     `gorm:"type:uuid;not null;index"`
	Status      ReceiptStatus `gorm:"type:varchar(16);not null;default:'IN_PROGRESS'"`
	StartedBy   string        `gorm:"type:varchar(100)"`
	CompletedAt *time.Time    `gorm:"type:timestamp"`

	Lines []ReceiptLine `gorm:"foreignKey:ReceiptID;references:ID"`
}

// TableName returns the table name for GORM
func (Receipt) TableName() string {
	return "receipts"
}

// NewReceipt starts a receipt against an arrived inbound shipment
func NewReceipt(shipmentID uuid.UUID, startedBy string) (*Receipt, error) {
	if shipmentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SHIPMENT", "Shipment ID cannot be empty")
	}

	return &Receipt{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ShipmentID:        shipmentID,
		Status:            ReceiptStatusInProgress,
		StartedBy:         startedBy,
		Lines:             make([]ReceiptLine, 0),
	}, nil
}

// CheckIn counts received units against a purchase order item on this
// receipt's shipment. Items not attached to the shipment are rejected.
func (r *Receipt) CheckIn(item *PurchaseOrderItem, quantity int) (*ReceiptLine, error) {
	if r.Status != ReceiptStatusInProgress {
		return nil, shared.NewDomainError("RECEIPT_COMPLETED", "Receipt has already been completed")
	}
	if item == nil {
		return nil, shared.NewDomainError("INVALID_ITEM", "Purchase order item is required")
	}
	if item.ShipmentID == nil || *item.ShipmentID != r.ShipmentID {
		return nil, shared.NewDomainError("NOT_IN_SHIPMENT", "Purchase order item is not part of this shipment")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Check-in quantity must be positive")
	}

	line := ReceiptLine{
		BaseEntity:          shared.NewBaseEntity(),
		ReceiptID:           r.ID,
		PurchaseOrderItemID: item.ID,
		VariantID:           item.VariantID,
		Quantity:            quantity,
	}
	r.Lines = append(r.Lines, line)
	r.UpdatedAt = time.Now()
	return &r.Lines[len(r.Lines)-1], nil
}

// TotalForItem sums checked-in quantity for one purchase order item
func (r *Receipt) TotalForItem(itemID uuid.UUID) int {
	total := 0
	for i := range r.Lines {
		if r.Lines[i].PurchaseOrderItemID == itemID {
			total += r.Lines[i].Quantity
		}
	}
	return total
}

// CheckedInItemIDs returns the distinct purchase order items counted so far
func (r *Receipt) CheckedInItemIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	ids := make([]uuid.UUID, 0, len(r.Lines))
	for i := range r.Lines {
		id := r.Lines[i].PurchaseOrderItemID
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// Complete closes the receipt. No further check-ins are accepted.
func (r *Receipt) Complete() error {
	if r.Status != ReceiptStatusInProgress {
		return shared.NewDomainError("RECEIPT_COMPLETED", "Receipt has already been completed")
	}
	now := time.Now()
	r.Status = ReceiptStatusCompleted
	r.CompletedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()
	return nil
}

// ReceiptLine is one check-in count against a purchase order item
type ReceiptLine struct {
	shared.BaseEntity
	ReceiptID           uuid.UUID `gorm:"type:uuid;not null;index"`
	PurchaseOrderItemID uuid.UUID `gorm:"type:uuid;not null;index"`
	VariantID           uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity            int       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReceiptLine) TableName() string {
	return "receipt_lines"
}
