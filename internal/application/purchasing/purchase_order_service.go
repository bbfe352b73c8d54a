package purchasing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	allocationapp "github.com/dirac/fulfillment/internal/application/allocation"
	orderapp "github.com/dirac/fulfillment/internal/application/order"
	"github.com/dirac/fulfillment/internal/domain/allocation"
	"github.com/dirac/fulfillment/internal/domain/billing"
	"github.com/dirac/fulfillment/internal/domain/purchasing"
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/dirac/fulfillment/internal/domain/shared/valueobject"
	"github.com/dirac/fulfillment/internal/domain/shipping"
	"github.com/dirac/fulfillment/internal/domain/warehouse"
)

// CreatePurchaseOrderItemInput is one line on a new purchase order
type CreatePurchaseOrderItemInput struct {
	VariantID  uuid.UUID
	Quantity   int
	TotalPrice decimal.Decimal
}

// CreatePurchaseOrderCommand carries the input for creating a purchase order
type CreatePurchaseOrderCommand struct {
	Reference              string
	SourceWarehouseID      uuid.UUID
	DestinationWarehouseID uuid.UUID
	Currency               valueobject.Currency
	Items                  []CreatePurchaseOrderItemInput
}

// PurchaseOrderService drives the purchasing side of the stock ledger:
// confirming an item creates its units at the supplier, raises the
// non-owned stock and re-runs the confirmation gate for every order the
// new coverage touches; adjustments repair availability and allocations.
type PurchaseOrderService struct {
	scope             TransactionScope
	allocationService *allocationapp.AllocationService
	orderService      *orderapp.OrderService
	eventPublisher    shared.EventPublisher
	logger            *zap.Logger
}

// NewPurchaseOrderService creates a new PurchaseOrderService
func NewPurchaseOrderService(scope TransactionScope, allocationService *allocationapp.AllocationService, orderService *orderapp.OrderService, logger *zap.Logger) *PurchaseOrderService {
	return &PurchaseOrderService{
		scope:             scope,
		allocationService: allocationService,
		orderService:      orderService,
		logger:            logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *PurchaseOrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreatePurchaseOrder creates a purchase order with draft items
func (s *PurchaseOrderService) CreatePurchaseOrder(ctx context.Context, cmd CreatePurchaseOrderCommand) (*purchasing.PurchaseOrder, error) {
	var created *purchasing.PurchaseOrder
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		existing, err := repos.PurchaseOrderRepo().FindByReference(ctx, cmd.Reference)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("checking reference: %w", err)
		}
		if existing != nil {
			return shared.NewDomainError("DUPLICATE_REFERENCE", "A purchase order with this reference already exists")
		}

		source, err := repos.WarehouseRepo().FindByID(ctx, cmd.SourceWarehouseID)
		if err != nil {
			return fmt.Errorf("loading source warehouse: %w", err)
		}
		destination, err := repos.WarehouseRepo().FindByID(ctx, cmd.DestinationWarehouseID)
		if err != nil {
			return fmt.Errorf("loading destination warehouse: %w", err)
		}

		po, err := purchasing.NewPurchaseOrder(cmd.Reference, source, destination, cmd.Currency)
		if err != nil {
			return err
		}
		for _, item := range cmd.Items {
			if _, err := po.AddItem(item.VariantID, item.Quantity, item.TotalPrice); err != nil {
				return err
			}
		}
		if err := repos.PurchaseOrderRepo().Save(ctx, po); err != nil {
			return fmt.Errorf("saving purchase order: %w", err)
		}
		created = po
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("created purchase order",
		zap.String("purchase_order_id", created.ID.String()),
		zap.String("reference", created.Reference),
		zap.Int("items", len(created.Items)))
	return created, nil
}

// GetPurchaseOrder finds a purchase order by ID
func (s *PurchaseOrderService) GetPurchaseOrder(ctx context.Context, id uuid.UUID) (*purchasing.PurchaseOrder, error) {
	var found *purchasing.PurchaseOrder
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		po, err := repos.PurchaseOrderRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		found = po
		return nil
	})
	return found, err
}

// ListPurchaseOrders returns purchase orders matching the filter
func (s *PurchaseOrderService) ListPurchaseOrders(ctx context.Context, filter shared.Filter) ([]*purchasing.PurchaseOrder, error) {
	var orders []*purchasing.PurchaseOrder
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.PurchaseOrderRepo().FindAll(ctx, filter)
		if err != nil {
			return err
		}
		orders = found
		return nil
	})
	return orders, err
}

// AddItem appends a draft item to an existing purchase order
func (s *PurchaseOrderService) AddItem(ctx context.Context, purchaseOrderID uuid.UUID, input CreatePurchaseOrderItemInput) (*purchasing.PurchaseOrderItem, error) {
	var added *purchasing.PurchaseOrderItem
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		po, err := repos.PurchaseOrderRepo().FindByID(ctx, purchaseOrderID)
		if err != nil {
			return fmt.Errorf("loading purchase order: %w", err)
		}
		item, err := po.AddItem(input.VariantID, input.Quantity, input.TotalPrice)
		if err != nil {
			return err
		}
		if err := repos.PurchaseOrderRepo().SaveWithLock(ctx, po); err != nil {
			return fmt.Errorf("saving purchase order: %w", err)
		}
		added = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// AttachShipment links a purchase order item to the inbound shipment that
// will carry it
func (s *PurchaseOrderService) AttachShipment(ctx context.Context, itemID, shipmentID uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		shipment, err := repos.ShipmentRepo().FindByID(ctx, shipmentID)
		if err != nil {
			return fmt.Errorf("loading shipment: %w", err)
		}
		if shipment.Direction != shipping.DirectionInbound {
			return shared.NewDomainError("INVALID_SHIPMENT", "Purchase order items travel on inbound shipments")
		}

		item, err := repos.ItemRepo().FindByIDForUpdate(ctx, itemID)
		if err != nil {
			return fmt.Errorf("loading item: %w", err)
		}
		if err := item.AttachShipment(shipment.ID); err != nil {
			return err
		}
		return repos.ItemRepo().Save(ctx, item)
	})
}

// ConfirmItem issues the supplier commitment for one purchase order item:
// units are created at the supplier warehouse with no arrival stamp, the
// non-owned stock's reported quantity rises, and allocations of the variant
// still waiting for sources are covered against the new capacity. Orders
// whose allocations gained coverage go through the confirmation gate in
// the same transaction; the ones that pass confirm and spawn their
// fulfillments. Returns the affected order IDs.
func (s *PurchaseOrderService) ConfirmItem(ctx context.Context, itemID uuid.UUID) ([]uuid.UUID, error) {
	var affectedOrders []uuid.UUID
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		item, err := repos.ItemRepo().FindByIDForUpdate(ctx, itemID)
		if err != nil {
			return fmt.Errorf("loading item: %w", err)
		}
		po, err := repos.PurchaseOrderRepo().FindByID(ctx, item.PurchaseOrderID)
		if err != nil {
			return fmt.Errorf("loading purchase order: %w", err)
		}

		if err := item.Confirm(); err != nil {
			return err
		}

		unitPrice := item.UnitPrice()
		units := make([]*warehouse.Unit, 0, item.QuantityOrdered)
		for n := 0; n < item.QuantityOrdered; n++ {
			unit, err := warehouse.NewUnit(item.VariantID, po.SourceWarehouseID, item.ID, unitPrice, decimal.Zero)
			if err != nil {
				return err
			}
			units = append(units, unit)
		}
		if err := repos.UnitRepo().CreateBatch(ctx, units); err != nil {
			return fmt.Errorf("creating units: %w", err)
		}

		sourceWh, err := repos.WarehouseRepo().FindByID(ctx, po.SourceWarehouseID)
		if err != nil {
			return fmt.Errorf("loading source warehouse: %w", err)
		}
		stock, err := repos.StockRepo().GetOrCreate(ctx, sourceWh, item.VariantID)
		if err != nil {
			return fmt.Errorf("loading source stock: %w", err)
		}
		if err := stock.SetReportedQuantity(stock.Quantity + item.QuantityOrdered); err != nil {
			return err
		}
		if err := repos.StockRepo().SaveWithLock(ctx, stock); err != nil {
			return fmt.Errorf("saving source stock: %w", err)
		}

		if err := repos.ItemRepo().Save(ctx, item); err != nil {
			return fmt.Errorf("saving item: %w", err)
		}

		affectedOrders, err = s.allocationService.CoverUnsourcedAllocations(ctx, repos, item.ID)
		if err != nil {
			return err
		}

		// New coverage may have made waiting orders eligible; re-run the
		// gate for each in the same transaction.
		for _, orderID := range affectedOrders {
			confirmed, err := s.orderService.ConfirmIfEligible(ctx, repos, orderID)
			if err != nil {
				return err
			}
			if confirmed {
				s.logger.Info("order confirmed by purchase order item confirmation",
					zap.String("order_id", orderID.String()),
					zap.String("item_id", item.ID.String()))
			}
		}

		s.publishEvents(ctx, []shared.DomainEvent{purchasing.NewItemConfirmedEvent(item)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("confirmed purchase order item",
		zap.String("item_id", itemID.String()),
		zap.Int("affected_orders", len(affectedOrders)))
	return affectedOrders, nil
}

// RepriceItemUnits corrects the buy price and VAT on every unit a purchase
// order item produced. Prices are mutable until the supplier's final
// invoice is confirmed; after that every unit rejects the update with
// PRICE_FROZEN. Returns the number of repriced units.
func (s *PurchaseOrderService) RepriceItemUnits(ctx context.Context, itemID uuid.UUID, buyPrice, buyVAT decimal.Decimal) (int, error) {
	repriced := 0
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		item, err := repos.ItemRepo().FindByID(ctx, itemID)
		if err != nil {
			return fmt.Errorf("loading item: %w", err)
		}
		units, err := repos.UnitRepo().FindByPurchaseOrderItem(ctx, item.ID)
		if err != nil {
			return fmt.Errorf("loading units: %w", err)
		}
		for _, u := range units {
			if err := u.UpdateBuyPrice(buyPrice, buyVAT); err != nil {
				return err
			}
		}
		if err := repos.UnitRepo().SaveBatch(ctx, units); err != nil {
			return fmt.Errorf("saving units: %w", err)
		}
		repriced = len(units)
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("repriced purchase order item units",
		zap.String("item_id", itemID.String()),
		zap.Int("units", repriced))
	return repriced, nil
}

// ConfirmPurchaseInvoice records the supplier's final invoice for a
// purchase order, pushes it to the accounting authority and freezes the
// buy price on every unit the order produced. The invoice number comes
// from the supplier document and must be unique.
func (s *PurchaseOrderService) ConfirmPurchaseInvoice(ctx context.Context, purchaseOrderID uuid.UUID, number string, amount decimal.Decimal) (*billing.Invoice, error) {
	var created *billing.Invoice
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		po, err := repos.PurchaseOrderRepo().FindByID(ctx, purchaseOrderID)
		if err != nil {
			return fmt.Errorf("loading purchase order: %w", err)
		}

		existing, err := repos.InvoiceRepo().FindByNumber(ctx, number)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("checking invoice number: %w", err)
		}
		if existing != nil {
			return shared.NewDomainError("DUPLICATE_INVOICE_NUMBER", "An invoice with this number already exists")
		}

		invoice, err := billing.NewInvoice(number, billing.TypeFinal, amount, po.Currency, billing.InvoiceRef{PurchaseOrderID: &po.ID})
		if err != nil {
			return err
		}
		if err := invoice.MarkPushed(); err != nil {
			return err
		}
		if err := repos.InvoiceRepo().Save(ctx, invoice); err != nil {
			return fmt.Errorf("saving invoice: %w", err)
		}

		for i := range po.Items {
			units, err := repos.UnitRepo().FindByPurchaseOrderItem(ctx, po.Items[i].ID)
			if err != nil {
				return fmt.Errorf("loading units: %w", err)
			}
			for _, u := range units {
				u.FreezePrice()
			}
			if err := repos.UnitRepo().SaveBatch(ctx, units); err != nil {
				return fmt.Errorf("saving units: %w", err)
			}
		}

		created = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("confirmed purchase invoice",
		zap.String("purchase_order_id", purchaseOrderID.String()),
		zap.String("invoice_number", number))
	return created, nil
}

// CreateAdjustment records an unprocessed quantity correction against a
// confirmed item
func (s *PurchaseOrderService) CreateAdjustment(ctx context.Context, itemID uuid.UUID, quantityChange int, reason purchasing.AdjustmentReason, affectsPayable bool, notes string) (*purchasing.PurchaseOrderItemAdjustment, error) {
	var created *purchasing.PurchaseOrderItemAdjustment
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		item, err := repos.ItemRepo().FindByID(ctx, itemID)
		if err != nil {
			return fmt.Errorf("loading item: %w", err)
		}
		if !item.Status.IsConfirmedOrLater() {
			return shared.NewDomainError("INVALID_STATUS", "Adjustments apply to confirmed items")
		}

		adj, err := purchasing.NewAdjustment(item.ID, quantityChange, reason, affectsPayable, notes)
		if err != nil {
			return err
		}
		if err := repos.AdjustmentRepo().Save(ctx, adj); err != nil {
			return fmt.Errorf("saving adjustment: %w", err)
		}
		created = adj
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ProcessAdjustment applies an adjustment's downstream effects: shrinkage
// units are written off and stock recomputed, and sources promised beyond
// the item's corrected capacity are trimmed so the gate blocks until they
// are re-covered.
func (s *PurchaseOrderService) ProcessAdjustment(ctx context.Context, adjustmentID uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		adj, err := repos.AdjustmentRepo().FindByID(ctx, adjustmentID)
		if err != nil {
			return fmt.Errorf("loading adjustment: %w", err)
		}
		item, err := repos.ItemRepo().FindByIDForUpdate(ctx, adj.PurchaseOrderItemID)
		if err != nil {
			return fmt.Errorf("loading item: %w", err)
		}

		// Operate on the item's own copy so availability math and the
		// processed stamp persist together.
		var target *purchasing.PurchaseOrderItemAdjustment
		for i := range item.Adjustments {
			if item.Adjustments[i].ID == adj.ID {
				target = &item.Adjustments[i]
				break
			}
		}
		if target == nil {
			return shared.ErrNotFound
		}
		if err := target.MarkProcessed(); err != nil {
			return err
		}

		if target.QuantityChange < 0 {
			if err := s.writeOffUnits(ctx, repos, item, -target.QuantityChange); err != nil {
				return err
			}
		}
		if err := s.trimExcessSources(ctx, repos, item); err != nil {
			return err
		}

		if err := repos.ItemRepo().Save(ctx, item); err != nil {
			return fmt.Errorf("saving item: %w", err)
		}
		if err := repos.AdjustmentRepo().Save(ctx, target); err != nil {
			return fmt.Errorf("saving adjustment: %w", err)
		}

		s.publishEvents(ctx, []shared.DomainEvent{purchasing.NewAdjustmentProcessedEvent(target)})
		s.logger.Info("processed adjustment",
			zap.String("adjustment_id", adjustmentID.String()),
			zap.String("item_id", item.ID.String()),
			zap.Int("quantity_change", target.QuantityChange))
		return nil
	})
}

// writeOffUnits retires quantity of the item's countable units, not-yet
// arrived units first, and recomputes the stocks they counted towards
func (s *PurchaseOrderService) writeOffUnits(ctx context.Context, repos TransactionalRepositories, item *purchasing.PurchaseOrderItem, quantity int) error {
	units, err := repos.UnitRepo().FindByPurchaseOrderItem(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("loading units: %w", err)
	}

	candidates := make([]*warehouse.Unit, 0, len(units))
	for _, u := range units {
		if u.IsCountable() && u.ArrivedAt == nil {
			candidates = append(candidates, u)
		}
	}
	for _, u := range units {
		if u.IsCountable() && u.ArrivedAt != nil {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) < quantity {
		quantity = len(candidates)
	}

	writtenOffByWarehouse := make(map[uuid.UUID]int)
	written := make([]*warehouse.Unit, 0, quantity)
	for _, u := range candidates[:quantity] {
		if err := u.WriteOff(); err != nil {
			return err
		}
		writtenOffByWarehouse[u.WarehouseID]++
		written = append(written, u)
	}
	if len(written) == 0 {
		return nil
	}
	if err := repos.UnitRepo().SaveBatch(ctx, written); err != nil {
		return fmt.Errorf("saving units: %w", err)
	}

	for whID, n := range writtenOffByWarehouse {
		wh, err := repos.WarehouseRepo().FindByID(ctx, whID)
		if err != nil {
			return fmt.Errorf("loading warehouse: %w", err)
		}
		stock, err := repos.StockRepo().FindByWarehouseAndVariantForUpdate(ctx, whID, item.VariantID)
		if err != nil {
			return fmt.Errorf("loading stock: %w", err)
		}
		if wh.Owned {
			countable, err := repos.UnitRepo().CountCountable(ctx, whID, item.VariantID)
			if err != nil {
				return fmt.Errorf("counting units: %w", err)
			}
			if err := stock.RecomputeFromUnits(countable); err != nil {
				return err
			}
		} else {
			if err := stock.SetReportedQuantity(stock.Quantity - n); err != nil {
				return err
			}
		}
		if err := repos.StockRepo().SaveWithLock(ctx, stock); err != nil {
			return fmt.Errorf("saving stock: %w", err)
		}
	}
	return nil
}

// trimExcessSources releases source promises the item can no longer honor,
// newest order lines losing coverage first
func (s *PurchaseOrderService) trimExcessSources(ctx context.Context, repos TransactionalRepositories, item *purchasing.PurchaseOrderItem) error {
	excess := item.QuantityAllocated - (item.QuantityOrdered + item.ProcessedAdjustmentTotal())
	if excess <= 0 {
		return nil
	}

	allocs, err := repos.AllocationRepo().FindBySourceItemForUpdate(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("loading sourced allocations: %w", err)
	}
	allocation.SortByLineAge(allocs)

	for i := len(allocs) - 1; i >= 0 && excess > 0; i-- {
		trimmed, err := allocs[i].ReduceSource(item.ID, excess)
		if err != nil {
			return err
		}
		if trimmed == 0 {
			continue
		}
		if err := item.ReleaseSource(trimmed); err != nil {
			return err
		}
		if err := repos.AllocationRepo().Save(ctx, allocs[i]); err != nil {
			return fmt.Errorf("saving allocation: %w", err)
		}
		excess -= trimmed
	}
	return nil
}

func (s *PurchaseOrderService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
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
