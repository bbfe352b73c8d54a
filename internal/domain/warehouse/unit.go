package warehouse

import (
	"time"

	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Unit is one trackable physical item.
//
// Units are created when a purchase order item is confirmed, before the
// goods physically arrive, so a unit with a nil ArrivedAt is a supplier
// commitment rather than stock on a shelf. A consumed unit has been
// assigned to a fulfillment and no longer counts towards stock.
type Unit struct {
	shared.BaseEntity
	VariantID           uuid.UUID       `gorm:"type:uuid;not null;index:idx_unit_variant_warehouse,priority:1"`
	WarehouseID         uuid.UUID       `gorm:"type:uuid;not null;index:idx_unit_variant_warehouse,priority:2"`
	PurchaseOrderItemID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ArrivedAt           *time.Time      `gorm:"type:timestamp;index"`
	Consumed            bool            `gorm:"not null;default:false"`
	ConsumedAt          *time.Time      `gorm:"type:timestamp"`
	WrittenOff          bool            `gorm:"not null;default:false"` // Retired by a shrinkage/leakage adjustment
	BuyPrice            decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	BuyVAT              decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	PriceFrozen         bool            `gorm:"not null;default:false"` // Set once the final purchase invoice is confirmed
}

// TableName returns the table name for GORM
func (Unit) TableName() string {
	return "units"
}

// NewUnit creates a unit for a confirmed purchase order item.
// The unit starts in the non-owned source warehouse with no arrival time.
func NewUnit(variantID, warehouseID, poiID uuid.UUID, buyPrice, buyVAT decimal.Decimal) (*Unit, error) {
	if variantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VARIANT", "Variant ID cannot be empty")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if poiID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PURCHASE_ORDER_ITEM", "Purchase order item ID cannot be empty")
	}
	if buyPrice.IsNegative() || buyVAT.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Buy price and VAT cannot be negative")
	}

	return &Unit{
		BaseEntity:          shared.NewBaseEntity(),
		VariantID:           variantID,
		WarehouseID:         warehouseID,
		PurchaseOrderItemID: poiID,
		BuyPrice:            buyPrice,
		BuyVAT:              buyVAT,
	}, nil
}

// IsCountable reports whether the unit counts towards stock quantity
func (u *Unit) IsCountable() bool {
	return !u.Consumed && !u.WrittenOff
}

// MarkArrived moves the unit into an owned warehouse and stamps arrival.
// A unit may only be physically arrived in an owned warehouse.
func (u *Unit) MarkArrived(ownedWarehouseID uuid.UUID, arrivedAt time.Time) error {
	if ownedWarehouseID == uuid.Nil {
		return shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if u.ArrivedAt != nil {
		return shared.NewDomainError("ALREADY_ARRIVED", "Unit has already arrived")
	}
	u.WarehouseID = ownedWarehouseID
	u.ArrivedAt = &arrivedAt
	u.UpdatedAt = time.Now()
	return nil
}

// Consume assigns the unit to a fulfillment
func (u *Unit) Consume() error {
	if u.Consumed {
		return shared.NewDomainError("ALREADY_CONSUMED", "Unit is already consumed")
	}
	if u.WrittenOff {
		return shared.NewDomainError("WRITTEN_OFF", "Unit has been written off")
	}
	now := time.Now()
	u.Consumed = true
	u.ConsumedAt = &now
	u.UpdatedAt = now
	return nil
}

// WriteOff retires the unit due to leakage or shrinkage
func (u *Unit) WriteOff() error {
	if u.Consumed {
		return shared.NewDomainError("ALREADY_CONSUMED", "Cannot write off a consumed unit")
	}
	if u.WrittenOff {
		return shared.NewDomainError("WRITTEN_OFF", "Unit has already been written off")
	}
	u.WrittenOff = true
	u.UpdatedAt = time.Now()
	return nil
}

// UpdateBuyPrice updates the purchase price while it is still mutable
func (u *Unit) UpdateBuyPrice(buyPrice, buyVAT decimal.Decimal) error {
	if u.PriceFrozen {
		return shared.NewDomainError("PRICE_FROZEN", "Buy price is frozen by a confirmed purchase invoice")
	}
	if buyPrice.IsNegative() || buyVAT.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Buy price and VAT cannot be negative")
	}
	u.BuyPrice = buyPrice
	u.BuyVAT = buyVAT
	u.UpdatedAt = time.Now()
	return nil
}

// FreezePrice locks the purchase price after final invoice confirmation
func (u *Unit) FreezePrice() {
	u.PriceFrozen = true
	u.UpdatedAt = time.Now()
}
