// Package billing holds the invoice aggregate. Proforma invoices are
// customer-facing prepayment documents; final invoices are the ones pushed
// to the external accounting authority.
package billing

import (
	"context"
	"time"

	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/dirac/fulfillment/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceType distinguishes prepayment documents from recognized invoices
type InvoiceType string

const (
	TypeProforma InvoiceType = "PROFORMA"
	TypeFinal    InvoiceType = "FINAL"
)

// IsValid checks if the type is a valid InvoiceType
func (t InvoiceType) IsValid() bool {
	return t == TypeProforma || t == TypeFinal
}

// String returns the string representation of InvoiceType
func (t InvoiceType) String() string {
	return string(t)
}

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	StatusOpen InvoiceStatus = "OPEN"
	StatusPaid InvoiceStatus = "PAID"
	StatusVoid InvoiceStatus = "VOID"
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	return s == StatusOpen || s == StatusPaid || s == StatusVoid
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// Invoice references at most one of an order, a fulfillment, or a purchase
// order. Only final invoices are ever pushed to the accounting authority.
type Invoice struct {
	shared.BaseAggregateRoot
	Number   string               `gorm:"type:varchar(100);not null;uniqueIndex"`
	Type     InvoiceType          `gorm:"type:varchar(16);not null"`
	Status   InvoiceStatus        `gorm:"type:varchar(16);not null;default:'OPEN'"`
	Amount   decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Currency valueobject.Currency `gorm:"type:varchar(3);not null"`

	OrderID         *uuid.UUID `gorm:"type:uuid;index"`
	FulfillmentID   *uuid.UUID `gorm:"type:uuid;index"`
	PurchaseOrderID *uuid.UUID `gorm:"type:uuid;index"`

	// Set when a final invoice is handed to the accounting authority
	PushedAt *time.Time `gorm:"type:timestamp"`
	PaidAt   *time.Time `gorm:"type:timestamp"`
}

// TableName returns the table name for GORM
func (Invoice) TableName() string {
	return "invoices"
}

// InvoiceRef names the single entity an invoice is raised against
type InvoiceRef struct {
	OrderID         *uuid.UUID
	FulfillmentID   *uuid.UUID
	PurchaseOrderID *uuid.UUID
}

// NewInvoice creates a new open invoice
func NewInvoice(number string, invoiceType InvoiceType, amount decimal.Decimal, currency valueobject.Currency, ref InvoiceRef) (*Invoice, error) {
	if number == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Invoice number cannot be empty")
	}
	if !invoiceType.IsValid() {
		return nil, shared.NewDomainError("INVALID_TYPE", "Unknown invoice type")
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice amount cannot be negative")
	}
	refs := 0
	if ref.OrderID != nil {
		refs++
	}
	if ref.FulfillmentID != nil {
		refs++
	}
	if ref.PurchaseOrderID != nil {
		refs++
	}
	if refs > 1 {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Invoice may reference at most one entity")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	if !currency.IsValid() {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency must be a three-letter code")
	}

	return &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		Type:              invoiceType,
		Status:            StatusOpen,
		Amount:            amount,
		Currency:          currency,
		OrderID:           ref.OrderID,
		FulfillmentID:     ref.FulfillmentID,
		PurchaseOrderID:   ref.PurchaseOrderID,
	}, nil
}

// MarkPushed records the hand-off to the accounting authority. Proforma
// invoices are never pushed.
func (i *Invoice) MarkPushed() error {
	if i.Type != TypeFinal {
		return shared.NewDomainError("INVALID_TYPE", "Only final invoices are pushed to the accounting authority")
	}
	if i.PushedAt != nil {
		return shared.NewDomainError("ALREADY_PUSHED", "Invoice has already been pushed")
	}
	now := time.Now()
	i.PushedAt = &now
	i.UpdatedAt = now
	i.IncrementVersion()
	return nil
}

// MarkPaid records the external payment confirmation
func (i *Invoice) MarkPaid(paidAt time.Time) error {
	if i.Status == StatusVoid {
		return shared.NewDomainError("INVALID_STATUS", "Void invoices cannot be paid")
	}
	if i.Status == StatusPaid {
		return nil
	}
	i.Status = StatusPaid
	i.PaidAt = &paidAt
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
	return nil
}

// Void cancels an open invoice
func (i *Invoice) Void() error {
	if i.Status != StatusOpen {
		return shared.NewDomainError("INVALID_STATUS", "Only open invoices can be voided")
	}
	i.Status = StatusVoid
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
	return nil
}

// InvoiceRepository defines persistence operations for invoices
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByNumber(ctx context.Context, number string) (*Invoice, error)
	FindByFulfillment(ctx context.Context, fulfillmentID uuid.UUID) ([]*Invoice, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]*Invoice, error)
	Save(ctx context.Context, invoice *Invoice) error
}
