package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	allocationapp "github.com/dirac/fulfillment/internal/application/allocation"
	"github.com/dirac/fulfillment/internal/domain/allocation"
	"github.com/dirac/fulfillment/internal/domain/billing"
	"github.com/dirac/fulfillment/internal/domain/fulfillment"
	"github.com/dirac/fulfillment/internal/domain/order"
	"github.com/dirac/fulfillment/internal/domain/purchasing"
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/dirac/fulfillment/internal/domain/shared/valueobject"
)

// CreateOrderLine is one demanded variant on a new order
type CreateOrderLine struct {
	VariantID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
}

// CreateOrderCommand carries the input for creating an order
type CreateOrderCommand struct {
	Reference     string
	CustomerName  string
	Currency      valueobject.Currency
	DepositAmount decimal.Decimal
	Lines         []CreateOrderLine
}

// OrderService drives the order lifecycle: creation allocates stock for
// every line atomically, confirmation runs the sourcing gate and spawns
// fulfillments, picks, deposit credits and proforma invoices.
type OrderService struct {
	scope             TransactionScope
	allocationService *allocationapp.AllocationService
	gate              *allocation.ConfirmationGate
	depositAllocator  *fulfillment.DepositAllocator
	eventPublisher    shared.EventPublisher
	logger            *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(scope TransactionScope, allocationService *allocationapp.AllocationService, gate *allocation.ConfirmationGate, logger *zap.Logger) *OrderService {
	return &OrderService{
		scope:             scope,
		allocationService: allocationService,
		gate:              gate,
		depositAllocator:  fulfillment.NewDepositAllocator(),
		logger:            logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateOrder creates an order and allocates stock for every line in one
// transaction. If any line cannot be fully allocated the whole creation
// fails with ErrInsufficientStock and nothing is persisted.
func (s *OrderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*order.Order, error) {
	if len(cmd.Lines) == 0 {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order must have at least one line")
	}

	var created *order.Order
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		existing, err := repos.OrderRepo().FindByReference(ctx, cmd.Reference)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("checking reference: %w", err)
		}
		if existing != nil {
			return shared.NewDomainError("DUPLICATE_REFERENCE", "An order with this reference already exists")
		}

		ord, err := order.NewOrder(cmd.Reference, cmd.CustomerName, cmd.Currency)
		if err != nil {
			return err
		}
		for _, l := range cmd.Lines {
			if _, err := ord.AddLine(l.VariantID, l.Quantity, l.UnitPrice); err != nil {
				return err
			}
		}
		if cmd.DepositAmount.IsPositive() {
			if err := ord.SetDeposit(cmd.DepositAmount); err != nil {
				return err
			}
		}
		for i := range ord.Lines {
			line := &ord.Lines[i]
			ref := allocation.LineRef{
				OrderID:     ord.ID,
				OrderLineID: line.ID,
				VariantID:   line.VariantID,
				Quantity:    line.Quantity,
				CreatedAt:   line.CreatedAt,
			}
			if err := s.allocationService.AllocateLineIn(ctx, repos, ref, line.Quantity); err != nil {
				return err
			}
		}

		if err := repos.OrderRepo().Save(ctx, ord); err != nil {
			return fmt.Errorf("saving order: %w", err)
		}

		s.publishEvents(ctx, ord.GetDomainEvents())
		ord.ClearDomainEvents()
		created = ord
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("created order",
		zap.String("order_id", created.ID.String()),
		zap.String("reference", created.Reference),
		zap.Int("lines", len(created.Lines)))
	return created, nil
}

// TryConfirm runs the confirmation gate over the order's allocations. On
// success it confirms the order and, in the same transaction, creates one
// fulfillment per owned warehouse the allocations resolve to, a pick per
// fulfillment, deposit credits in fulfillment creation order, and a
// proforma invoice per fulfillment.
func (s *OrderService) TryConfirm(ctx context.Context, orderID uuid.UUID) (*order.Order, error) {
	var confirmed *order.Order
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		ord, err := repos.OrderRepo().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return fmt.Errorf("loading order: %w", err)
		}
		if ord.Status.IsConfirmed() {
			return shared.NewDomainError("ALREADY_CONFIRMED", "Order has already been confirmed")
		}

		allocsByLine, views, err := s.buildGateViews(ctx, repos, ord)
		if err != nil {
			return err
		}
		if err := s.gate.CheckLines(views); err != nil {
			return err
		}

		if err := s.confirmAndSpawn(ctx, repos, ord, allocsByLine); err != nil {
			return err
		}
		confirmed = ord
		return nil
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}

// ConfirmIfEligible runs the confirmation gate for an order inside an
// existing transaction and, when it passes, confirms the order and spawns
// its fulfillment machinery. A gate failure is not an error here: sourcing
// mutations call this after every coverage change and most orders are
// simply not ready yet. Returns whether the order was confirmed.
func (s *OrderService) ConfirmIfEligible(ctx context.Context, repos TransactionalRepositories, orderID uuid.UUID) (bool, error) {
	ord, err := repos.OrderRepo().FindByIDForUpdate(ctx, orderID)
	if err != nil {
		return false, fmt.Errorf("loading order: %w", err)
	}
	if ord.Status.IsConfirmed() {
		return false, nil
	}

	allocsByLine, views, err := s.buildGateViews(ctx, repos, ord)
	if err != nil {
		return false, err
	}
	if err := s.gate.CheckLines(views); err != nil {
		if errors.Is(err, allocation.ErrUnderAllocated) || errors.Is(err, allocation.ErrAllocationUnsourced) {
			return false, nil
		}
		return false, err
	}

	if err := s.confirmAndSpawn(ctx, repos, ord, allocsByLine); err != nil {
		return false, err
	}
	return true, nil
}

// confirmAndSpawn moves the order past the gate: confirms it, creates its
// fulfillments with picks, deposit credits and proforma invoices, and
// saves everything under the order's version lock.
func (s *OrderService) confirmAndSpawn(ctx context.Context, repos TransactionalRepositories, ord *order.Order, allocsByLine map[uuid.UUID][]*allocation.Allocation) error {
	if err := ord.Confirm(); err != nil {
		return err
	}

	fulfillments, err := s.spawnFulfillments(ctx, repos, ord, allocsByLine)
	if err != nil {
		return err
	}

	if err := repos.OrderRepo().SaveWithLock(ctx, ord); err != nil {
		return fmt.Errorf("saving order: %w", err)
	}
	s.publishEvents(ctx, ord.GetDomainEvents())
	ord.ClearDomainEvents()

	s.logger.Info("confirmed order",
		zap.String("order_id", ord.ID.String()),
		zap.Int("fulfillments", len(fulfillments)))
	return nil
}

// GetOrder finds an order by ID
func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*order.Order, error) {
	var found *order.Order
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		ord, err := repos.OrderRepo().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		found = ord
		return nil
	})
	return found, err
}

// ListOrders returns orders matching the filter
func (s *OrderService) ListOrders(ctx context.Context, filter shared.Filter) ([]*order.Order, error) {
	var orders []*order.Order
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.OrderRepo().FindAll(ctx, filter)
		if err != nil {
			return err
		}
		orders = found
		return nil
	})
	return orders, err
}

// SetDeposit records the prepayment the accounting authority demands for
// this order
func (s *OrderService) SetDeposit(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		ord, err := repos.OrderRepo().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return fmt.Errorf("loading order: %w", err)
		}
		if err := ord.SetDeposit(amount); err != nil {
			return err
		}
		if err := repos.OrderRepo().SaveWithLock(ctx, ord); err != nil {
			return fmt.Errorf("saving order: %w", err)
		}
		s.publishEvents(ctx, []shared.DomainEvent{order.NewDepositSetEvent(ord)})
		return nil
	})
}

// buildGateViews assembles the per-line allocation picture the gate judges
func (s *OrderService) buildGateViews(ctx context.Context, repos TransactionalRepositories, ord *order.Order) (map[uuid.UUID][]*allocation.Allocation, []allocation.LineAllocationView, error) {
	itemStatuses := make(map[uuid.UUID]purchasing.PurchaseOrderItemStatus)
	allocsByLine := make(map[uuid.UUID][]*allocation.Allocation, len(ord.Lines))
	views := make([]allocation.LineAllocationView, 0, len(ord.Lines))

	for i := range ord.Lines {
		line := &ord.Lines[i]
		allocs, err := repos.AllocationRepo().FindByOrderLine(ctx, line.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("loading allocations for line %s: %w", line.ID, err)
		}
		allocsByLine[line.ID] = allocs

		for _, a := range allocs {
			for j := range a.Sources {
				itemID := a.Sources[j].PurchaseOrderItemID
				if _, ok := itemStatuses[itemID]; ok {
					continue
				}
				item, err := repos.ItemRepo().FindByID(ctx, itemID)
				if err != nil {
					return nil, nil, fmt.Errorf("loading item %s: %w", itemID, err)
				}
				itemStatuses[itemID] = item.Status
			}
		}

		views = append(views, allocation.LineAllocationView{
			OrderLineID:      line.ID,
			QuantityRequired: line.Quantity,
			Allocations:      allocs,
			ItemStatuses:     itemStatuses,
		})
	}
	return allocsByLine, views, nil
}

// linePortion is the slice of one order line destined for one warehouse
type linePortion struct {
	line     *order.OrderLine
	quantity int
}

// spawnFulfillments groups the order's allocations by the owned warehouse
// the goods will leave from and creates the fulfillment machinery for each
func (s *OrderService) spawnFulfillments(ctx context.Context, repos TransactionalRepositories, ord *order.Order, allocsByLine map[uuid.UUID][]*allocation.Allocation) ([]*fulfillment.Fulfillment, error) {
	warehouseOrder := make([]uuid.UUID, 0, 2)
	portions := make(map[uuid.UUID]map[uuid.UUID]*linePortion)

	for i := range ord.Lines {
		line := &ord.Lines[i]
		for _, a := range allocsByLine[line.ID] {
			whID, err := s.resolveOwnedWarehouse(ctx, repos, a)
			if err != nil {
				return nil, err
			}
			byLine, ok := portions[whID]
			if !ok {
				byLine = make(map[uuid.UUID]*linePortion)
				portions[whID] = byLine
				warehouseOrder = append(warehouseOrder, whID)
			}
			if p, ok := byLine[line.ID]; ok {
				p.quantity += a.Quantity
			} else {
				byLine[line.ID] = &linePortion{line: line, quantity: a.Quantity}
			}
		}
	}

	fulfillments := make([]*fulfillment.Fulfillment, 0, len(warehouseOrder))
	alreadyAllocated := decimal.Zero
	orderTotal := ord.TotalGross()

	for seq, whID := range warehouseOrder {
		f, err := fulfillment.NewFulfillment(ord.ID, whID)
		if err != nil {
			return nil, err
		}
		for i := range ord.Lines {
			line := &ord.Lines[i]
			p, ok := portions[whID][line.ID]
			if !ok {
				continue
			}
			if _, err := f.AddLine(line.ID, line.VariantID, p.quantity, line.UnitPrice); err != nil {
				return nil, err
			}
		}

		// The last fulfillment absorbs whatever rounding left of the
		// deposit, so the credits sum to the deposit exactly.
		var credit decimal.Decimal
		if seq == len(warehouseOrder)-1 {
			credit, err = s.depositAllocator.AllocateFinal(f, ord.DepositAmount, alreadyAllocated)
		} else {
			credit, err = s.depositAllocator.AllocateTo(f, orderTotal, ord.DepositAmount, alreadyAllocated)
		}
		if err != nil {
			return nil, err
		}
		alreadyAllocated = alreadyAllocated.Add(credit)

		net := s.depositAllocator.ProformaAmount(f)
		number := fmt.Sprintf("PI-%s-%d", ord.Reference, seq+1)
		invoice, err := billing.NewInvoice(number, billing.TypeProforma, net, ord.Currency, billing.InvoiceRef{FulfillmentID: &f.ID})
		if err != nil {
			return nil, err
		}
		if err := repos.InvoiceRepo().Save(ctx, invoice); err != nil {
			return nil, fmt.Errorf("saving invoice: %w", err)
		}
		if err := f.AttachProformaInvoice(invoice.ID); err != nil {
			return nil, err
		}
		f.AddDomainEvent(fulfillment.NewProformaInvoiceNeededEvent(f, net))

		if err := repos.FulfillmentRepo().Save(ctx, f); err != nil {
			return nil, fmt.Errorf("saving fulfillment: %w", err)
		}

		pick, err := fulfillment.NewPick(f)
		if err != nil {
			return nil, err
		}
		if err := repos.PickRepo().Save(ctx, pick); err != nil {
			return nil, fmt.Errorf("saving pick: %w", err)
		}

		s.publishEvents(ctx, f.GetDomainEvents())
		f.ClearDomainEvents()
		fulfillments = append(fulfillments, f)
	}
	return fulfillments, nil
}

// resolveOwnedWarehouse maps an allocation to the owned warehouse its goods
// will ship from. Supplier-side allocations resolve through their first
// source's purchase order destination; the gate guarantees sources exist.
func (s *OrderService) resolveOwnedWarehouse(ctx context.Context, repos TransactionalRepositories, a *allocation.Allocation) (uuid.UUID, error) {
	wh, err := repos.WarehouseRepo().FindByID(ctx, a.WarehouseID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("loading warehouse %s: %w", a.WarehouseID, err)
	}
	if wh.Owned {
		return wh.ID, nil
	}

	if len(a.Sources) == 0 {
		return uuid.Nil, shared.NewDomainError("ALLOCATION_UNSOURCED", "Supplier-side allocation has no purchase order source")
	}
	item, err := repos.ItemRepo().FindByID(ctx, a.Sources[0].PurchaseOrderItemID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("loading item: %w", err)
	}
	po, err := repos.PurchaseOrderRepo().FindByID(ctx, item.PurchaseOrderID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("loading purchase order: %w", err)
	}
	return po.DestinationWarehouseID, nil
}

func (s *OrderService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range events {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
}
