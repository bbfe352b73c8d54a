package fulfillment

import (
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DepositAllocator spreads an order's prepaid deposit across its
// fulfillments, proportionally and in creation order, so the deposit is
// never credited twice and no fulfillment is over-credited.
type DepositAllocator struct{}

// NewDepositAllocator creates a new deposit allocator service
func NewDepositAllocator() *DepositAllocator {
	return &DepositAllocator{}
}

// Credit computes the deposit share for one fulfillment:
// min(remaining deposit, fulfillment total scaled by the order's deposit
// ratio), rounded to whole pence.
func (d *DepositAllocator) Credit(orderTotal, depositAmount, fulfillmentTotal, alreadyAllocated decimal.Decimal) (decimal.Decimal, error) {
	if depositAmount.IsNegative() || fulfillmentTotal.IsNegative() || alreadyAllocated.IsNegative() {
		return decimal.Zero, shared.NewDomainError("INVALID_AMOUNT", "Amounts cannot be negative")
	}
	if !depositAmount.IsPositive() || !orderTotal.IsPositive() {
		return decimal.Zero, nil
	}

	remaining := depositAmount.Sub(alreadyAllocated)
	if !remaining.IsPositive() {
		return decimal.Zero, nil
	}

	proportional := fulfillmentTotal.Mul(depositAmount).Div(orderTotal).Round(2)
	if proportional.GreaterThan(remaining) {
		return remaining, nil
	}
	return proportional, nil
}

// AllocateTo computes and records the deposit credit for a fulfillment,
// given the sum already allocated to the order's other fulfillments.
// Returns the credited amount.
func (d *DepositAllocator) AllocateTo(f *Fulfillment, orderTotal, depositAmount, alreadyAllocated decimal.Decimal) (decimal.Decimal, error) {
	credit, err := d.Credit(orderTotal, depositAmount, f.Total(), alreadyAllocated)
	if err != nil {
		return decimal.Zero, err
	}
	if err := f.SetDepositAllocated(credit); err != nil {
		return decimal.Zero, err
	}
	return credit, nil
}

// AllocateFinal credits the whole remaining deposit to the order's last
// fulfillment, capped at its total, so rounding on the earlier
// proportional credits never strands a penny of the deposit.
func (d *DepositAllocator) AllocateFinal(f *Fulfillment, depositAmount, alreadyAllocated decimal.Decimal) (decimal.Decimal, error) {
	if depositAmount.IsNegative() || alreadyAllocated.IsNegative() {
		return decimal.Zero, shared.NewDomainError("INVALID_AMOUNT", "Amounts cannot be negative")
	}

	credit := depositAmount.Sub(alreadyAllocated)
	if credit.IsNegative() {
		credit = decimal.Zero
	}
	if credit.GreaterThan(f.Total()) {
		credit = f.Total()
	}
	if err := f.SetDepositAllocated(credit); err != nil {
		return decimal.Zero, err
	}
	return credit, nil
}

// ProformaAmount is what the customer still owes for a fulfillment after
// its deposit credit
func (d *DepositAllocator) ProformaAmount(f *Fulfillment) decimal.Decimal {
	amount := f.Total().Sub(f.DepositAllocated)
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}
