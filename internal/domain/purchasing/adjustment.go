package purchasing

import (
	"time"

	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// AdjustmentReason explains a quantity correction on a purchase order item
type AdjustmentReason string

const (
	// ReasonShortDelivery means the supplier shipped fewer units than committed
	ReasonShortDelivery AdjustmentReason = "SHORT_DELIVERY"
	// ReasonShrinkage means units were lost or damaged after receipt
	ReasonShrinkage AdjustmentReason = "SHRINKAGE"
)

// IsValid checks if the reason is a valid AdjustmentReason
func (r AdjustmentReason) IsValid() bool {
	return r == ReasonShortDelivery || r == ReasonShrinkage
}

// String returns the string representation of AdjustmentReason
func (r AdjustmentReason) String() string {
	return string(r)
}

// PurchaseOrderItemAdjustment corrects the effective quantity of a purchase
// order item after confirmation. AffectsPayable distinguishes supplier
// credits from losses we absorb. ProcessedAt is set once downstream effects
// (allocation repair, payable correction) have run; only processed
// adjustments count toward availability.
type PurchaseOrderItemAdjustment struct {
	shared.BaseEntity
	PurchaseOrderItemID uuid.UUID        `gorm:"type:uuid;not null;index"`
	QuantityChange      int              `gorm:"not null"`
	Reason              AdjustmentReason `gorm:"type:varchar(32);not null"`
	AffectsPayable      bool             `gorm:"not null;default:false"`
	Notes               string           `gorm:"type:text"`
	ProcessedAt         *time.Time       `gorm:"type:timestamp"`
}

// TableName returns the table name for GORM
func (PurchaseOrderItemAdjustment) TableName() string {
	return "purchase_order_item_adjustments"
}

// NewAdjustment creates a new unprocessed adjustment
func NewAdjustment(itemID uuid.UUID, quantityChange int, reason AdjustmentReason, affectsPayable bool, notes string) (*PurchaseOrderItemAdjustment, error) {
	if itemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ITEM", "Purchase order item ID cannot be empty")
	}
	if quantityChange == 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Adjustment quantity change cannot be zero")
	}
	if !reason.IsValid() {
		return nil, shared.NewDomainError("INVALID_REASON", "Unknown adjustment reason")
	}

	return &PurchaseOrderItemAdjustment{
		BaseEntity:          shared.NewBaseEntity(),
		PurchaseOrderItemID: itemID,
		QuantityChange:      quantityChange,
		Reason:              reason,
		AffectsPayable:      affectsPayable,
		Notes:               notes,
	}, nil
}

// IsProcessed reports whether downstream effects have been applied
func (a *PurchaseOrderItemAdjustment) IsProcessed() bool {
	return a.ProcessedAt != nil
}

// MarkProcessed records that downstream effects have been applied
func (a *PurchaseOrderItemAdjustment) MarkProcessed() error {
	if a.ProcessedAt != nil {
		return shared.NewDomainError("ALREADY_PROCESSED", "Adjustment has already been processed")
	}
	now := time.Now()
	a.ProcessedAt = &now
	a.UpdatedAt = now
	return nil
}
