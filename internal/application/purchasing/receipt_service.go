package purchasing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	orderapp "github.com/dirac/fulfillment/internal/application/order"
	"github.com/dirac/fulfillment/internal/domain/allocation"
	"github.com/dirac/fulfillment/internal/domain/purchasing"
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/dirac/fulfillment/internal/domain/shipping"
	"github.com/dirac/fulfillment/internal/domain/warehouse"
)

// ReceiptService runs the goods-receipt protocol: a receipt session scoped
// to one inbound shipment accumulates check-in counts, and finishing it
// settles everything at once: item statuses, shortfall adjustments, unit
// arrival, both stocks, and the allocations riding on the moved goods.
type ReceiptService struct {
	scope          TransactionScope
	allocator      *allocation.Allocator
	ledger         *warehouse.StockLedger
	orderService   *orderapp.OrderService
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(scope TransactionScope, orderService *orderapp.OrderService, logger *zap.Logger) *ReceiptService {
	return &ReceiptService{
		scope:        scope,
		allocator:    allocation.NewAllocator(),
		ledger:       warehouse.NewStockLedger(),
		orderService: orderService,
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ReceiptService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// StartReceipt opens a receipt session for an inbound shipment. One
// session per shipment may be in progress at a time.
func (s *ReceiptService) StartReceipt(ctx context.Context, shipmentID uuid.UUID, startedBy string) (*purchasing.Receipt, error) {
	var created *purchasing.Receipt
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		shipment, err := repos.ShipmentRepo().FindByID(ctx, shipmentID)
		if err != nil {
			return fmt.Errorf("loading shipment: %w", err)
		}
		if shipment.Direction != shipping.DirectionInbound {
			return shared.NewDomainError("INVALID_SHIPMENT", "Receipts apply to inbound shipments")
		}
		if shipment.HasArrived() {
			return shared.NewDomainError("ALREADY_ARRIVED", "Shipment has already been received")
		}

		inProgress, err := repos.ReceiptRepo().FindInProgressByShipment(ctx, shipmentID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("checking receipts: %w", err)
		}
		if inProgress != nil {
			return shared.NewDomainError("RECEIPT_IN_PROGRESS", "A receipt is already in progress for this shipment")
		}

		receipt, err := purchasing.NewReceipt(shipmentID, startedBy)
		if err != nil {
			return err
		}
		if err := repos.ReceiptRepo().Save(ctx, receipt); err != nil {
			return fmt.Errorf("saving receipt: %w", err)
		}
		created = receipt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("started receipt",
		zap.String("receipt_id", created.ID.String()),
		zap.String("shipment_id", shipmentID.String()))
	return created, nil
}

// CheckIn counts received units against one purchase order item
func (s *ReceiptService) CheckIn(ctx context.Context, receiptID, itemID uuid.UUID, quantity int) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		receipt, err := repos.ReceiptRepo().FindByID(ctx, receiptID)
		if err != nil {
			return fmt.Errorf("loading receipt: %w", err)
		}
		item, err := repos.ItemRepo().FindByID(ctx, itemID)
		if err != nil {
			return fmt.Errorf("loading item: %w", err)
		}
		if _, err := receipt.CheckIn(item, quantity); err != nil {
			return err
		}
		return repos.ReceiptRepo().Save(ctx, receipt)
	})
}

// CheckInVariant counts received units by variant, the barcode-scanning
// path. The first item on the shipment carrying the variant with ordered
// quantity not yet counted takes the count; NOT_IN_SHIPMENT if none does.
func (s *ReceiptService) CheckInVariant(ctx context.Context, receiptID, variantID uuid.UUID, quantity int) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		receipt, err := repos.ReceiptRepo().FindByID(ctx, receiptID)
		if err != nil {
			return fmt.Errorf("loading receipt: %w", err)
		}
		items, err := repos.ItemRepo().FindByShipment(ctx, receipt.ShipmentID)
		if err != nil {
			return fmt.Errorf("loading shipment items: %w", err)
		}

		var target *purchasing.PurchaseOrderItem
		for _, item := range items {
			if item.VariantID != variantID {
				continue
			}
			if target == nil {
				target = item
			}
			if receipt.TotalForItem(item.ID) < item.QuantityOrdered {
				target = item
				break
			}
		}
		if target == nil {
			return shared.NewDomainError("NOT_IN_SHIPMENT", "Purchase order item is not part of this shipment")
		}

		if _, err := receipt.CheckIn(target, quantity); err != nil {
			return err
		}
		return repos.ReceiptRepo().Save(ctx, receipt)
	})
}

// GetReceipt finds a receipt by ID
func (s *ReceiptService) GetReceipt(ctx context.Context, receiptID uuid.UUID) (*purchasing.Receipt, error) {
	var found *purchasing.Receipt
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		receipt, err := repos.ReceiptRepo().FindByID(ctx, receiptID)
		if err != nil {
			return err
		}
		found = receipt
		return nil
	})
	return found, err
}

// FinishReceipt settles the session: per item the counted quantity is
// recorded, any shortfall becomes a processed short-delivery adjustment
// with its promises trimmed, unconsumed units arrive in the owned
// destination warehouse, both stocks are recomputed, and allocations
// sourced from the item follow the goods to the owned stock. The shipment
// is stamped arrived and the receipt closed.
func (s *ReceiptService) FinishReceipt(ctx context.Context, receiptID uuid.UUID) error {
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		receipt, err := repos.ReceiptRepo().FindByID(ctx, receiptID)
		if err != nil {
			return fmt.Errorf("loading receipt: %w", err)
		}
		if receipt.Status != purchasing.ReceiptStatusInProgress {
			return shared.NewDomainError("RECEIPT_COMPLETED", "Receipt has already been completed")
		}
		shipment, err := repos.ShipmentRepo().FindByID(ctx, receipt.ShipmentID)
		if err != nil {
			return fmt.Errorf("loading shipment: %w", err)
		}
		items, err := repos.ItemRepo().FindByShipment(ctx, receipt.ShipmentID)
		if err != nil {
			return fmt.Errorf("loading shipment items: %w", err)
		}

		now := time.Now()
		events := make([]shared.DomainEvent, 0, len(items)+1)
		for _, item := range items {
			counted := receipt.TotalForItem(item.ID)
			if err := s.settleItem(ctx, repos, item, counted, now); err != nil {
				return err
			}
			events = append(events, purchasing.NewItemReceivedEvent(item, counted))
		}

		// Items moving to RECEIVED can release orders held by a
		// received-mode gate; re-run it for every order the settled items
		// source.
		if err := s.reconfirmSourcedOrders(ctx, repos, items); err != nil {
			return err
		}

		if shipment.Status == shipping.StatusPlanned {
			if err := shipment.Depart(); err != nil {
				return err
			}
		}
		if err := shipment.Arrive(); err != nil {
			return err
		}
		if err := repos.ShipmentRepo().Save(ctx, shipment); err != nil {
			return fmt.Errorf("saving shipment: %w", err)
		}

		if err := receipt.Complete(); err != nil {
			return err
		}
		if err := repos.ReceiptRepo().Save(ctx, receipt); err != nil {
			return fmt.Errorf("saving receipt: %w", err)
		}

		events = append(events, purchasing.NewReceiptCompletedEvent(receipt))
		s.publishEvents(ctx, events)
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("finished receipt", zap.String("receipt_id", receiptID.String()))
	return nil
}

// settleItem applies one item's receipt outcome inside the finish
// transaction
func (s *ReceiptService) settleItem(ctx context.Context, repos TransactionalRepositories, item *purchasing.PurchaseOrderItem, counted int, now time.Time) error {
	locked, err := repos.ItemRepo().FindByIDForUpdate(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("locking item: %w", err)
	}
	*item = *locked

	po, err := repos.PurchaseOrderRepo().FindByID(ctx, item.PurchaseOrderID)
	if err != nil {
		return fmt.Errorf("loading purchase order: %w", err)
	}

	if err := item.RecordReceipt(counted); err != nil {
		return err
	}

	shortfall := item.QuantityOrdered - item.QuantityReceived
	if shortfall > 0 {
		adj, err := purchasing.NewAdjustment(item.ID, -shortfall, purchasing.ReasonShortDelivery, true, "shortfall at goods receipt")
		if err != nil {
			return err
		}
		if err := adj.MarkProcessed(); err != nil {
			return err
		}
		if err := repos.AdjustmentRepo().Save(ctx, adj); err != nil {
			return fmt.Errorf("saving adjustment: %w", err)
		}
		item.Adjustments = append(item.Adjustments, *adj)
	}

	units, err := repos.UnitRepo().FindByPurchaseOrderItem(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("loading units: %w", err)
	}
	received, err := s.ledger.ReceiveUnits(units, counted, po.DestinationWarehouseID, now)
	if err != nil {
		return err
	}

	// Missing goods never arrive; retire their placeholder units.
	writtenOff := make([]*warehouse.Unit, 0, shortfall)
	for _, u := range units {
		if len(writtenOff) == shortfall {
			break
		}
		if u.Consumed || u.WrittenOff || u.ArrivedAt != nil {
			continue
		}
		if err := u.WriteOff(); err != nil {
			return err
		}
		writtenOff = append(writtenOff, u)
	}

	changed := append(received, writtenOff...)
	if len(changed) > 0 {
		if err := repos.UnitRepo().SaveBatch(ctx, changed); err != nil {
			return fmt.Errorf("saving units: %w", err)
		}
	}
	if len(received) > 0 {
		s.publishEvents(ctx, []shared.DomainEvent{
			warehouse.NewUnitsArrivedEvent(po.DestinationWarehouseID, item.VariantID, len(received), now),
		})
	}

	if err := s.trimShortfallSources(ctx, repos, item); err != nil {
		return err
	}

	sourceStock, err := repos.StockRepo().FindByWarehouseAndVariantForUpdate(ctx, po.SourceWarehouseID, item.VariantID)
	if err != nil {
		return fmt.Errorf("loading source stock: %w", err)
	}
	destWh, err := repos.WarehouseRepo().FindByID(ctx, po.DestinationWarehouseID)
	if err != nil {
		return fmt.Errorf("loading destination warehouse: %w", err)
	}
	destStock, err := repos.StockRepo().GetOrCreate(ctx, destWh, item.VariantID)
	if err != nil {
		return fmt.Errorf("loading destination stock: %w", err)
	}

	if len(received) > 0 {
		sourced, err := repos.AllocationRepo().FindBySourceItemForUpdate(ctx, item.ID)
		if err != nil {
			return fmt.Errorf("loading sourced allocations: %w", err)
		}
		move, err := s.allocator.RepointForTransfer(sourceStock, destStock, len(received), sourced)
		if err != nil {
			return err
		}
		moved := append(move.Repointed, move.Created...)
		if len(moved) > 0 {
			if err := repos.AllocationRepo().SaveBatch(ctx, moved); err != nil {
				return fmt.Errorf("saving allocations: %w", err)
			}
		}
	}

	departed := len(received) + len(writtenOff)
	reported := sourceStock.Quantity - departed
	if reported < 0 {
		reported = 0
	}
	if err := sourceStock.SetReportedQuantity(reported); err != nil {
		return err
	}
	if err := repos.StockRepo().SaveWithLock(ctx, sourceStock); err != nil {
		return fmt.Errorf("saving source stock: %w", err)
	}

	countable, err := repos.UnitRepo().CountCountable(ctx, destStock.WarehouseID, item.VariantID)
	if err != nil {
		return fmt.Errorf("counting units: %w", err)
	}
	if err := destStock.RecomputeFromUnits(countable); err != nil {
		return err
	}
	if err := repos.StockRepo().SaveWithLock(ctx, destStock); err != nil {
		return fmt.Errorf("saving destination stock: %w", err)
	}

	return repos.ItemRepo().Save(ctx, item)
}

// reconfirmSourcedOrders runs the confirmation gate for every unconfirmed
// order holding allocations sourced from the settled items, inside the
// finish transaction
func (s *ReceiptService) reconfirmSourcedOrders(ctx context.Context, repos TransactionalRepositories, items []*purchasing.PurchaseOrderItem) error {
	seen := make(map[uuid.UUID]bool)
	for _, item := range items {
		allocs, err := repos.AllocationRepo().FindBySourceItem(ctx, item.ID)
		if err != nil {
			return fmt.Errorf("loading sourced allocations: %w", err)
		}
		for _, a := range allocs {
			if seen[a.OrderID] {
				continue
			}
			seen[a.OrderID] = true
			confirmed, err := s.orderService.ConfirmIfEligible(ctx, repos, a.OrderID)
			if err != nil {
				return err
			}
			if confirmed {
				s.logger.Info("order confirmed by goods receipt",
					zap.String("order_id", a.OrderID.String()))
			}
		}
	}
	return nil
}

// trimShortfallSources releases promises beyond the item's corrected
// capacity, newest order lines losing coverage first
func (s *ReceiptService) trimShortfallSources(ctx context.Context, repos TransactionalRepositories, item *purchasing.PurchaseOrderItem) error {
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

func (s *ReceiptService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
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
