package order

import (
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypeOrderConfirmed = "order.confirmed"
	EventTypeDepositSet     = "order.deposit_set"
)

// OrderConfirmedEvent fires when an order passes the confirmation gate
type OrderConfirmedEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID       `json:"order_id"`
	Reference  string          `json:"reference"`
	TotalGross decimal.Decimal `json:"total_gross"`
	LineCount  int             `json:"line_count"`
}

// NewOrderConfirmedEvent creates a new order confirmed event
func NewOrderConfirmedEvent(o *Order) *OrderConfirmedEvent {
	return &OrderConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderConfirmed, "Order", o.ID),
		OrderID:         o.ID,
		Reference:       o.Reference,
		TotalGross:      o.TotalGross(),
		LineCount:       len(o.Lines),
	}
}

// DepositSetEvent fires when the accounting authority supplies a deposit
type DepositSetEvent struct {
	shared.BaseDomainEvent
	OrderID uuid.UUID       `json:"order_id"`
	Amount  decimal.Decimal `json:"amount"`
}

// NewDepositSetEvent creates a new deposit set event
func NewDepositSetEvent(o *Order) *DepositSetEvent {
	return &DepositSetEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDepositSet, "Order", o.ID),
		OrderID:         o.ID,
		Amount:          o.DepositAmount,
	}
}
