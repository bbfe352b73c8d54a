package order

import (
	"time"

	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/dirac/fulfillment/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of a customer order
type OrderStatus string

const (
	StatusDraft              OrderStatus = "DRAFT"
	StatusUnconfirmed        OrderStatus = "UNCONFIRMED"
	StatusUnfulfilled        OrderStatus = "UNFULFILLED"
	StatusPartiallyFulfilled OrderStatus = "PARTIALLY_FULFILLED"
	StatusFulfilled          OrderStatus = "FULFILLED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusUnconfirmed, StatusUnfulfilled, StatusPartiallyFulfilled, StatusFulfilled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsConfirmed reports whether the order has passed the confirmation gate
func (s OrderStatus) IsConfirmed() bool {
	return s == StatusUnfulfilled || s == StatusPartiallyFulfilled || s == StatusFulfilled
}

// Order is a customer order. Creation requires allocatable stock for every
// line; confirmation additionally requires every allocation to trace to a
// qualifying purchase order item.
type Order struct {
	shared.BaseAggregateRoot
	Reference    string               `gorm:"type:varchar(100);not null;uniqueIndex"`
	CustomerName string               `gorm:"type:varchar(200)"`
	Status       OrderStatus          `gorm:"type:varchar(32);not null;default:'UNCONFIRMED'"`
	Currency     valueobject.Currency `gorm:"type:varchar(3);not null"`
	// Prepayment demanded before fulfillment may be approved. Zero means
	// no deposit is required.
	DepositAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ConfirmedAt   *time.Time      `gorm:"type:timestamp"`

	Lines []OrderLine `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// NewOrder creates a new unconfirmed order
func NewOrder(reference, customerName string, currency valueobject.Currency) (*Order, error) {
	if reference == "" {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Order reference cannot be empty")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	if !currency.IsValid() {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency must be a three-letter code")
	}

	return &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Reference:         reference,
		CustomerName:      customerName,
		Status:            StatusUnconfirmed,
		Currency:          currency,
		DepositAmount:     decimal.Zero,
		Lines:             make([]OrderLine, 0),
	}, nil
}

// AddLine appends a line to an unconfirmed order
func (o *Order) AddLine(variantID uuid.UUID, quantity int, unitPrice decimal.Decimal) (*OrderLine, error) {
	if o.Status.IsConfirmed() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Cannot add lines to a confirmed order")
	}
	line, err := NewOrderLine(o.ID, variantID, quantity, unitPrice)
	if err != nil {
		return nil, err
	}
	o.Lines = append(o.Lines, *line)
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
	return &o.Lines[len(o.Lines)-1], nil
}

// LineByID returns the line with the given ID, or nil
func (o *Order) LineByID(lineID uuid.UUID) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return &o.Lines[i]
		}
	}
	return nil
}

// TotalGross sums line totals
func (o *Order) TotalGross() decimal.Decimal {
	total := decimal.Zero
	for i := range o.Lines {
		total = total.Add(o.Lines[i].TotalGross())
	}
	return total
}

// DepositRequired reports whether a prepayment gates fulfillment approval
func (o *Order) DepositRequired() bool {
	return o.DepositAmount.IsPositive()
}

// SetDeposit records the prepayment demanded for this order. Supplied by
// the accounting authority; never derived here.
func (o *Order) SetDeposit(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_DEPOSIT", "Deposit amount cannot be negative")
	}
	if o.Status == StatusFulfilled {
		return shared.NewDomainError("INVALID_STATUS", "Cannot change deposit on a fulfilled order")
	}
	o.DepositAmount = amount
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
	return nil
}

// Confirm moves the order past the confirmation gate. The caller runs the
// gate first; this only enforces the status machine.
func (o *Order) Confirm() error {
	if o.Status != StatusDraft && o.Status != StatusUnconfirmed {
		return shared.NewDomainError("INVALID_STATUS", "Only unconfirmed orders can be confirmed")
	}
	now := time.Now()
	o.Status = StatusUnfulfilled
	o.ConfirmedAt = &now
	o.UpdatedAt = now
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderConfirmedEvent(o))
	return nil
}

// RecordFulfillmentProgress sets the fulfillment status from the counts of
// fulfilled vs total fulfillments
func (o *Order) RecordFulfillmentProgress(fulfilled, total int) error {
	if !o.Status.IsConfirmed() {
		return shared.NewDomainError("INVALID_STATUS", "Order is not confirmed")
	}
	switch {
	case total > 0 && fulfilled == total:
		o.Status = StatusFulfilled
	case fulfilled > 0:
		o.Status = StatusPartiallyFulfilled
	default:
		o.Status = StatusUnfulfilled
	}
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
	return nil
}

// OrderLine is a variant + quantity demand on an order
type OrderLine struct {
	shared.BaseEntity
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	VariantID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (OrderLine) TableName() string {
	return "order_lines"
}

// NewOrderLine creates a new order line
func NewOrderLine(orderID, variantID uuid.UUID, quantity int, unitPrice decimal.Decimal) (*OrderLine, error) {
	if variantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VARIANT", "Variant ID cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Line quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	return &OrderLine{
		BaseEntity: shared.NewBaseEntity(),
		OrderID:    orderID,
		VariantID:  variantID,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
	}, nil
}

// TotalGross is the line quantity at order price
func (l *OrderLine) TotalGross() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
