package warehouse

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// StockLedger is a domain service for unit-level stock mutations.
//
// It operates on unit slices already loaded (and row-locked) by the
// application layer and modifies them in place; the caller persists the
// changed units and the recomputed stock row in the same transaction.
type StockLedger struct{}

// NewStockLedger creates a new stock ledger service
func NewStockLedger() *StockLedger {
	return &StockLedger{}
}

// SortUnitsFIFO orders units oldest arrival first. Units that have not
// arrived sort after arrived ones, oldest creation first among themselves.
func SortUnitsFIFO(units []*Unit) {
	sort.SliceStable(units, func(i, j int) bool {
		a, b := units[i], units[j]
		switch {
		case a.ArrivedAt == nil && b.ArrivedAt == nil:
			return a.CreatedAt.Before(b.CreatedAt)
		case a.ArrivedAt == nil:
			return false
		case b.ArrivedAt == nil:
			return true
		default:
			return a.ArrivedAt.Before(*b.ArrivedAt)
		}
	})
}

// ConsumeUnits marks quantity units consumed, oldest arrival first, and
// returns the consumed units. It fails with INSUFFICIENT_UNITS if fewer
// countable units exist than requested; the allocation invariants
// guarantee this never happens, so a failure here is a bug and the caller
// must abort the transaction.
func (l *StockLedger) ConsumeUnits(units []*Unit, quantity int, fulfillmentID uuid.UUID) ([]*Unit, error) {
	if quantity <= 0 {
		return nil, errInvalidQuantity("Consume quantity must be positive")
	}

	countable := make([]*Unit, 0, len(units))
	for _, u := range units {
		if u.IsCountable() {
			countable = append(countable, u)
		}
	}
	if len(countable) < quantity {
		return nil, errInsufficientUnits()
	}

	SortUnitsFIFO(countable)

	consumed := make([]*Unit, 0, quantity)
	for _, u := range countable[:quantity] {
		if err := u.Consume(); err != nil {
			return nil, err
		}
		consumed = append(consumed, u)
	}
	return consumed, nil
}

// ReceiveUnits stamps arrival on up to quantity unconsumed units and moves
// them into the owned destination warehouse. Units already consumed by an
// allocation keep their original warehouse attribution so they are not
// counted twice; they are skipped and not included in the result.
func (l *StockLedger) ReceiveUnits(units []*Unit, quantity int, ownedWarehouseID uuid.UUID, arrivedAt time.Time) ([]*Unit, error) {
	if quantity < 0 {
		return nil, errInvalidQuantity("Receive quantity cannot be negative")
	}

	received := make([]*Unit, 0, quantity)
	for _, u := range units {
		if len(received) == quantity {
			break
		}
		if u.Consumed || u.WrittenOff || u.ArrivedAt != nil {
			continue
		}
		if err := u.MarkArrived(ownedWarehouseID, arrivedAt); err != nil {
			return nil, err
		}
		received = append(received, u)
	}
	return received, nil
}

// CountCountable returns the number of units that count towards stock
func CountCountable(units []*Unit) int {
	count := 0
	for _, u := range units {
		if u.IsCountable() {
			count++
		}
	}
	return count
}
