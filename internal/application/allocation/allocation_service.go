package allocation

import (
	"context"
	"fmt"

	"github.com/dirac/fulfillment/internal/domain/allocation"
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/dirac/fulfillment/internal/domain/warehouse"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AllocationService reserves and releases stock for order lines. Every
// operation runs inside one transaction scope so stock row locks serialize
// concurrent allocation of the same variant.
type AllocationService struct {
	scope          TransactionScope
	allocator      *allocation.Allocator
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewAllocationService creates a new AllocationService
func NewAllocationService(scope TransactionScope, logger *zap.Logger) *AllocationService {
	return &AllocationService{
		scope:     scope,
		allocator: allocation.NewAllocator(),
		logger:    logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *AllocationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// AllocateLine reserves quantity for one order line: owned warehouses by
// priority first, then supplier stock, with sources created against the
// oldest available purchase order capacity. Idempotent top-up when the
// line already holds allocations.
func (s *AllocationService) AllocateLine(ctx context.Context, line allocation.LineRef, quantity int) error {
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		return s.AllocateLineIn(ctx, repos, line, quantity)
	})
	if err != nil {
		return err
	}

	s.logger.Info("allocated order line",
		zap.String("order_line_id", line.OrderLineID.String()),
		zap.String("variant_id", line.VariantID.String()),
		zap.Int("quantity", quantity))
	return nil
}

// AllocateLineIn is AllocateLine running inside an existing transaction,
// for callers that compose allocation with other work atomically
func (s *AllocationService) AllocateLineIn(ctx context.Context, repos TransactionalRepositories, line allocation.LineRef, quantity int) error {
	stockRows, err := repos.StockRepo().FindByVariantForUpdate(ctx, line.VariantID)
	if err != nil {
		return fmt.Errorf("loading stocks: %w", err)
	}
	stocks := make([]*warehouse.Stock, 0, len(stockRows))
	for i := range stockRows {
		stocks = append(stocks, &stockRows[i])
	}

	existing, err := repos.AllocationRepo().FindByOrderLine(ctx, line.OrderLineID)
	if err != nil {
		return fmt.Errorf("loading allocations: %w", err)
	}

	result, err := s.allocator.Allocate(line, quantity, stocks, existing)
	if err != nil {
		return err
	}

	touched := append(result.Created, result.Updated...)

	if err := s.coverFromItems(ctx, repos, line.VariantID, touched); err != nil {
		return err
	}

	for _, stock := range result.TouchedStocks {
		if err := repos.StockRepo().SaveWithLock(ctx, stock); err != nil {
			return fmt.Errorf("saving stock: %w", err)
		}
	}
	if err := repos.AllocationRepo().SaveBatch(ctx, touched); err != nil {
		return fmt.Errorf("saving allocations: %w", err)
	}

	s.publishFrom(ctx, touched)
	for _, stock := range result.TouchedStocks {
		s.publishEvents(ctx, stock.GetDomainEvents())
		stock.ClearDomainEvents()
	}
	return nil
}

// DeallocateLine releases reserved quantity for one order line, the exact
// inverse of AllocateLine. Source coverage returns to the purchase order
// items it came from.
func (s *AllocationService) DeallocateLine(ctx context.Context, line allocation.LineRef, quantity int) error {
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		return s.DeallocateLineIn(ctx, repos, line, quantity)
	})
	if err != nil {
		return err
	}

	s.logger.Info("deallocated order line",
		zap.String("order_line_id", line.OrderLineID.String()),
		zap.Int("quantity", quantity))
	return nil
}

// DeallocateLineIn is DeallocateLine running inside an existing transaction
func (s *AllocationService) DeallocateLineIn(ctx context.Context, repos TransactionalRepositories, line allocation.LineRef, quantity int) error {
	stockRows, err := repos.StockRepo().FindByVariantForUpdate(ctx, line.VariantID)
	if err != nil {
		return fmt.Errorf("loading stocks: %w", err)
	}
	stocks := make(map[uuid.UUID]*warehouse.Stock, len(stockRows))
	for i := range stockRows {
		stocks[stockRows[i].ID] = &stockRows[i]
	}

	existing, err := repos.AllocationRepo().FindByOrderLine(ctx, line.OrderLineID)
	if err != nil {
		return fmt.Errorf("loading allocations: %w", err)
	}

	result, err := s.allocator.Deallocate(line, quantity, stocks, existing)
	if err != nil {
		return err
	}

	for itemID, released := range result.ReleasedSources {
		item, err := repos.ItemRepo().FindByIDForUpdate(ctx, itemID)
		if err != nil {
			return fmt.Errorf("loading item %s: %w", itemID, err)
		}
		if err := item.ReleaseSource(released); err != nil {
			return err
		}
		if err := repos.ItemRepo().Save(ctx, item); err != nil {
			return fmt.Errorf("saving item: %w", err)
		}
	}

	for _, stock := range result.TouchedStocks {
		if err := repos.StockRepo().SaveWithLock(ctx, stock); err != nil {
			return fmt.Errorf("saving stock: %w", err)
		}
		s.publishEvents(ctx, stock.GetDomainEvents())
		stock.ClearDomainEvents()
	}
	for _, a := range result.Updated {
		if err := repos.AllocationRepo().Save(ctx, a); err != nil {
			return fmt.Errorf("saving allocation: %w", err)
		}
	}
	for _, a := range result.Removed {
		s.publishEvents(ctx, []shared.DomainEvent{allocation.NewAllocationReleasedEvent(a, a.Quantity)})
		if err := repos.AllocationRepo().Delete(ctx, a.ID); err != nil {
			return fmt.Errorf("deleting allocation: %w", err)
		}
	}
	return nil
}

// AllocateOrderLine resolves the order line and reserves quantity for it.
// Entry point for explicit allocation requests; order creation allocates
// through AllocateLineIn instead.
func (s *AllocationService) AllocateOrderLine(ctx context.Context, orderID, orderLineID uuid.UUID, quantity int) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		line, err := s.resolveLine(ctx, repos, orderID, orderLineID)
		if err != nil {
			return err
		}
		return s.AllocateLineIn(ctx, repos, line, quantity)
	})
}

// ReleaseOrderLine resolves the order line and releases quantity from it
func (s *AllocationService) ReleaseOrderLine(ctx context.Context, orderID, orderLineID uuid.UUID, quantity int) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		line, err := s.resolveLine(ctx, repos, orderID, orderLineID)
		if err != nil {
			return err
		}
		return s.DeallocateLineIn(ctx, repos, line, quantity)
	})
}

// ListByOrder returns all allocations held by an order's lines
func (s *AllocationService) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*allocation.Allocation, error) {
	var allocs []*allocation.Allocation
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		allocs, err = repos.AllocationRepo().FindByOrder(ctx, orderID)
		return err
	})
	return allocs, err
}

func (s *AllocationService) resolveLine(ctx context.Context, repos TransactionalRepositories, orderID, orderLineID uuid.UUID) (allocation.LineRef, error) {
	ord, err := repos.OrderRepo().FindByID(ctx, orderID)
	if err != nil {
		return allocation.LineRef{}, fmt.Errorf("loading order: %w", err)
	}
	line := ord.LineByID(orderLineID)
	if line == nil {
		return allocation.LineRef{}, shared.ErrNotFound
	}
	return allocation.LineRef{
		OrderID:     ord.ID,
		OrderLineID: line.ID,
		VariantID:   line.VariantID,
		Quantity:    line.Quantity,
		CreatedAt:   line.CreatedAt,
	}, nil
}

// CoverUnsourcedAllocations backs unsourced allocations of a variant with a
// newly confirmed purchase order item, oldest order line first. Returns the
// IDs of orders whose allocations gained coverage so the caller can re-run
// the confirmation gate for them.
func (s *AllocationService) CoverUnsourcedAllocations(ctx context.Context, repos TransactionalRepositories, itemID uuid.UUID) ([]uuid.UUID, error) {
	item, err := repos.ItemRepo().FindByIDForUpdate(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("loading item: %w", err)
	}

	allocs, err := repos.AllocationRepo().FindUnsourcedByVariantForUpdate(ctx, item.VariantID)
	if err != nil {
		return nil, fmt.Errorf("loading unsourced allocations: %w", err)
	}

	covered, err := s.allocator.CoverAllocations(item, allocs)
	if err != nil {
		return nil, err
	}
	if len(covered) == 0 {
		return nil, nil
	}

	if err := repos.ItemRepo().Save(ctx, item); err != nil {
		return nil, fmt.Errorf("saving item: %w", err)
	}
	if err := repos.AllocationRepo().SaveBatch(ctx, covered); err != nil {
		return nil, fmt.Errorf("saving allocations: %w", err)
	}

	orderIDs := make([]uuid.UUID, 0, len(covered))
	seen := make(map[uuid.UUID]bool)
	for _, a := range covered {
		if !seen[a.OrderID] {
			seen[a.OrderID] = true
			orderIDs = append(orderIDs, a.OrderID)
		}
	}
	return orderIDs, nil
}

// coverFromItems creates sources for fresh allocations against the oldest
// available purchase order capacity, FIFO across items by confirmation time
func (s *AllocationService) coverFromItems(ctx context.Context, repos TransactionalRepositories, variantID uuid.UUID, allocs []*allocation.Allocation) error {
	uncovered := make([]*allocation.Allocation, 0, len(allocs))
	for _, a := range allocs {
		if a.UnsourcedQuantity() > 0 {
			uncovered = append(uncovered, a)
		}
	}
	if len(uncovered) == 0 {
		return nil
	}

	items, err := repos.ItemRepo().FindAvailableByVariantForUpdate(ctx, variantID)
	if err != nil {
		return fmt.Errorf("loading available items: %w", err)
	}
	for _, item := range items {
		if _, err := s.allocator.CoverAllocations(item, uncovered); err != nil {
			return err
		}
		if err := repos.ItemRepo().Save(ctx, item); err != nil {
			return fmt.Errorf("saving item: %w", err)
		}

		remaining := uncovered[:0]
		for _, a := range uncovered {
			if a.UnsourcedQuantity() > 0 {
				remaining = append(remaining, a)
			}
		}
		uncovered = remaining
		if len(uncovered) == 0 {
			break
		}
	}
	return nil
}

func (s *AllocationService) publishFrom(ctx context.Context, allocs []*allocation.Allocation) {
	for _, a := range allocs {
		s.publishEvents(ctx, a.GetDomainEvents())
		a.ClearDomainEvents()
	}
}

func (s *AllocationService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range events {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish domain event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
}
