package allocation

import (
	"github.com/dirac/fulfillment/internal/domain/purchasing"
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// GateMode controls which purchase order item status lets an allocation
// source count toward order confirmation
type GateMode string

const (
	// GateOnConfirmed accepts sources whose purchase order item carries a
	// supplier commitment
	GateOnConfirmed GateMode = "confirmed"
	// GateOnReceived accepts sources only once the goods are physically
	// received
	GateOnReceived GateMode = "received"
)

// IsValid checks if the mode is a valid GateMode
func (m GateMode) IsValid() bool {
	return m == GateOnConfirmed || m == GateOnReceived
}

// String returns the string representation of GateMode
func (m GateMode) String() string {
	return string(m)
}

// Confirmation gate errors
var (
	ErrUnderAllocated      = shared.NewDomainError("ORDER_UNDER_ALLOCATED", "Order line is not fully allocated")
	ErrAllocationUnsourced = shared.NewDomainError("ALLOCATION_UNSOURCED", "Allocation is not fully covered by qualifying purchase order items")
)

// LineAllocationView is the assembled picture of one order line's
// allocations the gate judges. The application layer builds it inside the
// confirmation transaction.
type LineAllocationView struct {
	OrderLineID      uuid.UUID
	QuantityRequired int
	Allocations      []*Allocation
	// Status of each purchase order item referenced by a source
	ItemStatuses map[uuid.UUID]purchasing.PurchaseOrderItemStatus
}

// ConfirmationGate decides whether an order's promises are safe to
// confirm: every line fully allocated, and every allocation fully covered
// by sources whose purchase order items pass the gate mode. Allocations
// on raw supplier stock with no purchase order behind them never qualify.
type ConfirmationGate struct {
	mode GateMode
}

// NewConfirmationGate creates a gate with the given mode
func NewConfirmationGate(mode GateMode) (*ConfirmationGate, error) {
	if !mode.IsValid() {
		return nil, shared.NewDomainError("INVALID_GATE_MODE", "Unknown confirmation gate mode")
	}
	return &ConfirmationGate{mode: mode}, nil
}

// Mode returns the gate's mode
func (g *ConfirmationGate) Mode() GateMode {
	return g.mode
}

// CheckLine verifies one order line is fully allocated with every
// allocation covered by qualifying sources
func (g *ConfirmationGate) CheckLine(view LineAllocationView) error {
	allocated := 0
	for _, a := range view.Allocations {
		allocated += a.Quantity
	}
	if allocated < view.QuantityRequired {
		return ErrUnderAllocated
	}

	for _, a := range view.Allocations {
		covered := 0
		for i := range a.Sources {
			status, ok := view.ItemStatuses[a.Sources[i].PurchaseOrderItemID]
			if !ok {
				continue
			}
			if g.sourceQualifies(status) {
				covered += a.Sources[i].Quantity
			}
		}
		if covered < a.Quantity {
			return ErrAllocationUnsourced
		}
	}
	return nil
}

// CheckLines verifies all lines of an order
func (g *ConfirmationGate) CheckLines(views []LineAllocationView) error {
	for _, v := range views {
		if err := g.CheckLine(v); err != nil {
			return err
		}
	}
	return nil
}

func (g *ConfirmationGate) sourceQualifies(status purchasing.PurchaseOrderItemStatus) bool {
	switch g.mode {
	case GateOnReceived:
		return status == purchasing.ItemStatusReceived
	default:
		return status.IsConfirmedOrLater()
	}
}
