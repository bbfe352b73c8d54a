package allocation

import (
	"sort"
	"time"

	"github.com/dirac/fulfillment/internal/domain/purchasing"
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/dirac/fulfillment/internal/domain/warehouse"
	"github.com/google/uuid"
)

// LineRef identifies the order line being allocated. Quantity is the
// line's ordered quantity, the ceiling no allocation target may exceed.
type LineRef struct {
	OrderID     uuid.UUID
	OrderLineID uuid.UUID
	VariantID   uuid.UUID
	Quantity    int
	CreatedAt   time.Time
}

// ErrLineOverAllocation rejects allocation targets above the line's
// ordered quantity
var ErrLineOverAllocation = shared.NewDomainError("LINE_OVER_ALLOCATION", "Allocation target exceeds the line's ordered quantity")

// Allocator reserves stock for order lines. It is a pure domain service:
// callers load the candidate stocks and existing allocations inside one
// transaction, the allocator mutates them in memory, and the caller
// persists everything it returns.
type Allocator struct{}

// NewAllocator creates a new allocator service
func NewAllocator() *Allocator {
	return &Allocator{}
}

// SortStocks orders candidate stocks for allocation: owned warehouses
// first by ascending priority, then non-owned, ties broken by creation
// time for stable results.
func (al *Allocator) SortStocks(stocks []*warehouse.Stock, priorities map[uuid.UUID]int) {
	sort.SliceStable(stocks, func(i, j int) bool {
		if stocks[i].WarehouseOwned != stocks[j].WarehouseOwned {
			return stocks[i].WarehouseOwned
		}
		pi, pj := priorities[stocks[i].WarehouseID], priorities[stocks[j].WarehouseID]
		if pi != pj {
			return pi < pj
		}
		return stocks[i].CreatedAt.Before(stocks[j].CreatedAt)
	})
}

// AllocateResult carries everything Allocate mutated or created
type AllocateResult struct {
	Created []*Allocation
	Updated []*Allocation
	// Stocks whose reserved quantity changed
	TouchedStocks []*warehouse.Stock
}

// Allocate reserves quantity for an order line across the given stocks,
// which must already be sorted. Existing allocations for the line count
// toward the requested quantity, so re-running with the same target is an
// idempotent top-up. Fails without mutating anything when total
// availability cannot cover the shortfall.
func (al *Allocator) Allocate(line LineRef, quantity int, stocks []*warehouse.Stock, existing []*Allocation) (*AllocateResult, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Allocation quantity must be positive")
	}
	if quantity > line.Quantity {
		return nil, ErrLineOverAllocation
	}

	alreadyAllocated := 0
	byStock := make(map[uuid.UUID]*Allocation, len(existing))
	for _, a := range existing {
		if a.OrderLineID == line.OrderLineID {
			alreadyAllocated += a.Quantity
			byStock[a.StockID] = a
		}
	}

	remaining := quantity - alreadyAllocated
	if remaining <= 0 {
		return &AllocateResult{}, nil
	}

	available := 0
	for _, s := range stocks {
		available += s.AvailableQuantity()
	}
	if available < remaining {
		return nil, shared.ErrInsufficientStock
	}

	result := &AllocateResult{}
	for _, s := range stocks {
		if remaining == 0 {
			break
		}
		take := s.AvailableQuantity()
		if take == 0 {
			continue
		}
		if take > remaining {
			take = remaining
		}
		if err := s.Reserve(take); err != nil {
			return nil, err
		}
		result.TouchedStocks = append(result.TouchedStocks, s)

		if a, ok := byStock[s.ID]; ok {
			if err := a.Increase(take); err != nil {
				return nil, err
			}
			result.Updated = append(result.Updated, a)
		} else {
			a, err := NewAllocation(line.OrderID, line.OrderLineID, line.CreatedAt, s.ID, s.WarehouseID, line.VariantID, take)
			if err != nil {
				return nil, err
			}
			result.Created = append(result.Created, a)
		}
		remaining -= take
	}
	return result, nil
}

// DeallocateResult carries everything Deallocate mutated
type DeallocateResult struct {
	// Allocations shrunk to zero; the caller deletes these
	Removed       []*Allocation
	Updated       []*Allocation
	TouchedStocks []*warehouse.Stock
	// Source quantity returned per purchase order item
	ReleasedSources map[uuid.UUID]int
}

// Deallocate releases reserved quantity for an order line, newest
// allocations first so owned, high-priority reservations survive longest.
func (al *Allocator) Deallocate(line LineRef, quantity int, stocks map[uuid.UUID]*warehouse.Stock, existing []*Allocation) (*DeallocateResult, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Deallocation quantity must be positive")
	}

	allocs := make([]*Allocation, 0, len(existing))
	total := 0
	for _, a := range existing {
		if a.OrderLineID == line.OrderLineID {
			allocs = append(allocs, a)
			total += a.Quantity
		}
	}
	if quantity > total {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Cannot deallocate more than is allocated")
	}
	sort.SliceStable(allocs, func(i, j int) bool {
		return allocs[i].CreatedAt.After(allocs[j].CreatedAt)
	})

	result := &DeallocateResult{ReleasedSources: make(map[uuid.UUID]int)}
	remaining := quantity
	for _, a := range allocs {
		if remaining == 0 {
			break
		}
		release := a.Quantity
		if release > remaining {
			release = remaining
		}

		stock, ok := stocks[a.StockID]
		if !ok {
			return nil, shared.NewDomainError("STOCK_NOT_LOADED", "Stock record for allocation was not provided")
		}
		if err := stock.Release(release); err != nil {
			return nil, err
		}
		result.TouchedStocks = append(result.TouchedStocks, stock)

		if release == a.Quantity {
			for i := range a.Sources {
				result.ReleasedSources[a.Sources[i].PurchaseOrderItemID] += a.Sources[i].Quantity
			}
			result.Removed = append(result.Removed, a)
		} else {
			released, err := a.Decrease(release)
			if err != nil {
				return nil, err
			}
			for itemID, qty := range released {
				result.ReleasedSources[itemID] += qty
			}
			result.Updated = append(result.Updated, a)
		}
		remaining -= release
	}
	return result, nil
}

// SortByLineAge orders allocations oldest order line first, so earlier
// customer promises are sourced and repointed before later ones
func SortByLineAge(allocs []*Allocation) {
	sort.SliceStable(allocs, func(i, j int) bool {
		if !allocs[i].OrderLineCreatedAt.Equal(allocs[j].OrderLineCreatedAt) {
			return allocs[i].OrderLineCreatedAt.Before(allocs[j].OrderLineCreatedAt)
		}
		return allocs[i].CreatedAt.Before(allocs[j].CreatedAt)
	})
}

// CoverAllocations backs unsourced allocations with a confirmed purchase
// order item, oldest order line first, until the item's availability is
// exhausted. Mutates both the allocations and the item's sourced quantity.
func (al *Allocator) CoverAllocations(item *purchasing.PurchaseOrderItem, allocs []*Allocation) ([]*Allocation, error) {
	if !item.Status.IsConfirmedOrLater() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Only confirmed items can cover allocations")
	}

	SortByLineAge(allocs)
	covered := make([]*Allocation, 0)
	for _, a := range allocs {
		capacity := item.AvailableQuantity()
		if capacity == 0 {
			break
		}
		need := a.UnsourcedQuantity()
		if need == 0 {
			continue
		}
		take := need
		if take > capacity {
			take = capacity
		}
		if err := item.ReserveSource(take); err != nil {
			return nil, err
		}
		if _, err := a.AddSource(item.ID, take); err != nil {
			return nil, err
		}
		covered = append(covered, a)
	}
	return covered, nil
}

// MoveResult carries the allocation changes from a stock transfer
type MoveResult struct {
	Repointed []*Allocation
	// New allocations created by partial splits
	Created []*Allocation
}

// RepointForTransfer moves allocations from a source stock to a
// destination stock when quantity transfers between warehouses. Oldest
// order lines move first; an allocation straddling the boundary is split.
// Both stocks' reserved counters are adjusted to match.
func (al *Allocator) RepointForTransfer(source, destination *warehouse.Stock, quantity int, allocs []*Allocation) (*MoveResult, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Transfer quantity must be positive")
	}

	onSource := make([]*Allocation, 0, len(allocs))
	for _, a := range allocs {
		if a.StockID == source.ID {
			onSource = append(onSource, a)
		}
	}
	SortByLineAge(onSource)

	result := &MoveResult{}
	remaining := quantity
	for _, a := range onSource {
		if remaining == 0 {
			break
		}
		if a.Quantity <= remaining {
			if err := a.Repoint(destination.ID, destination.WarehouseID); err != nil {
				return nil, err
			}
			source.QuantityAllocated -= a.Quantity
			destination.QuantityAllocated += a.Quantity
			remaining -= a.Quantity
			result.Repointed = append(result.Repointed, a)
		} else {
			moved, err := a.Split(remaining, destination.ID, destination.WarehouseID)
			if err != nil {
				return nil, err
			}
			source.QuantityAllocated -= remaining
			destination.QuantityAllocated += remaining
			remaining = 0
			result.Created = append(result.Created, moved)
		}
	}
	if source.QuantityAllocated < 0 {
		source.QuantityAllocated = 0
	}
	return result, nil
}
