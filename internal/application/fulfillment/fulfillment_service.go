package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dirac/fulfillment/internal/domain/fulfillment"
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/dirac/fulfillment/internal/domain/warehouse"
)

// FulfillmentService drives the outbound side: picking runs, shipment
// links and proforma payments. Every mutation that can satisfy the
// approval predicate re-evaluates the fulfillment in the same transaction.
type FulfillmentService struct {
	scope          TransactionScope
	coordinator    *AutoTransitionCoordinator
	ledger         *warehouse.StockLedger
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewFulfillmentService creates a new FulfillmentService
func NewFulfillmentService(scope TransactionScope, coordinator *AutoTransitionCoordinator, logger *zap.Logger) *FulfillmentService {
	return &FulfillmentService{
		scope:       scope,
		coordinator: coordinator,
		ledger:      warehouse.NewStockLedger(),
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *FulfillmentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// StartPick opens the picking run for a fulfillment
func (s *FulfillmentService) StartPick(ctx context.Context, pickID uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		pick, err := repos.PickRepo().FindByIDForUpdate(ctx, pickID)
		if err != nil {
			return fmt.Errorf("loading pick: %w", err)
		}
		if err := pick.Start(); err != nil {
			return err
		}
		return repos.PickRepo().SaveWithLock(ctx, pick)
	})
}

// RecordPicked sets the absolute picked count for one order line on a pick
func (s *FulfillmentService) RecordPicked(ctx context.Context, pickID, orderLineID uuid.UUID, quantity int) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		pick, err := repos.PickRepo().FindByIDForUpdate(ctx, pickID)
		if err != nil {
			return fmt.Errorf("loading pick: %w", err)
		}
		if err := pick.RecordPicked(orderLineID, quantity); err != nil {
			return err
		}
		return repos.PickRepo().SaveWithLock(ctx, pick)
	})
}

// CompletePick closes the picking run, consumes the picked units from the
// fulfillment's warehouse oldest arrival first, drops the allocations the
// goods were reserved under, and re-evaluates the fulfillment.
func (s *FulfillmentService) CompletePick(ctx context.Context, pickID uuid.UUID) error {
	var transitioned bool
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		pick, err := repos.PickRepo().FindByIDForUpdate(ctx, pickID)
		if err != nil {
			return fmt.Errorf("loading pick: %w", err)
		}
		if err := pick.Complete(); err != nil {
			return err
		}

		f, err := repos.FulfillmentRepo().FindByID(ctx, pick.FulfillmentID)
		if err != nil {
			return fmt.Errorf("loading fulfillment: %w", err)
		}

		for i := range f.Lines {
			if err := s.consumeLine(ctx, repos, f, &f.Lines[i]); err != nil {
				return err
			}
		}

		if err := repos.PickRepo().SaveWithLock(ctx, pick); err != nil {
			return fmt.Errorf("saving pick: %w", err)
		}
		s.publishEvents(ctx, pick.GetDomainEvents())
		pick.ClearDomainEvents()

		transitioned, err = s.coordinator.Evaluate(ctx, repos, f.ID)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("completed pick",
		zap.String("pick_id", pickID.String()),
		zap.Bool("fulfilled", transitioned))
	return nil
}

// consumeLine consumes one fulfillment line's units and removes its
// allocations on the fulfillment's warehouse. Source promises on the
// purchase order items stay spent; the goods left for a customer.
func (s *FulfillmentService) consumeLine(ctx context.Context, repos TransactionalRepositories, f *fulfillment.Fulfillment, line *fulfillment.FulfillmentLine) error {
	stock, err := repos.StockRepo().FindByWarehouseAndVariantForUpdate(ctx, f.WarehouseID, line.VariantID)
	if err != nil {
		return fmt.Errorf("loading stock: %w", err)
	}
	units, err := repos.UnitRepo().FindCountableForUpdate(ctx, f.WarehouseID, line.VariantID)
	if err != nil {
		return fmt.Errorf("loading units: %w", err)
	}

	consumed, err := s.ledger.ConsumeUnits(units, line.Quantity, f.ID)
	if err != nil {
		return err
	}
	if err := repos.UnitRepo().SaveBatch(ctx, consumed); err != nil {
		return fmt.Errorf("saving units: %w", err)
	}
	consumedIDs := make([]uuid.UUID, len(consumed))
	for i, u := range consumed {
		consumedIDs[i] = u.ID
	}
	s.publishEvents(ctx, []shared.DomainEvent{
		warehouse.NewUnitsConsumedEvent(f.WarehouseID, line.VariantID, f.ID, consumedIDs),
	})

	if err := stock.Release(line.Quantity); err != nil {
		return err
	}
	countable, err := repos.UnitRepo().CountCountable(ctx, f.WarehouseID, line.VariantID)
	if err != nil {
		return fmt.Errorf("counting units: %w", err)
	}
	if err := stock.RecomputeFromUnits(countable); err != nil {
		return err
	}
	if err := repos.StockRepo().SaveWithLock(ctx, stock); err != nil {
		return fmt.Errorf("saving stock: %w", err)
	}

	allocs, err := repos.AllocationRepo().FindByOrderLine(ctx, line.OrderLineID)
	if err != nil {
		return fmt.Errorf("loading allocations: %w", err)
	}
	for _, a := range allocs {
		if a.StockID != stock.ID {
			continue
		}
		if err := repos.AllocationRepo().Delete(ctx, a.ID); err != nil {
			return fmt.Errorf("deleting allocation: %w", err)
		}
	}
	return nil
}

// LinkShipment attaches an outbound shipment to a fulfillment and
// re-evaluates the approval predicate
func (s *FulfillmentService) LinkShipment(ctx context.Context, fulfillmentID, shipmentID uuid.UUID) error {
	var transitioned bool
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		f, err := repos.FulfillmentRepo().FindByIDForUpdate(ctx, fulfillmentID)
		if err != nil {
			return fmt.Errorf("loading fulfillment: %w", err)
		}
		shipment, err := repos.ShipmentRepo().FindByID(ctx, shipmentID)
		if err != nil {
			return fmt.Errorf("loading shipment: %w", err)
		}

		if err := f.LinkShipment(shipment); err != nil {
			return err
		}
		if err := repos.FulfillmentRepo().SaveWithLock(ctx, f); err != nil {
			return fmt.Errorf("saving fulfillment: %w", err)
		}
		s.publishEvents(ctx, f.GetDomainEvents())
		f.ClearDomainEvents()

		transitioned, err = s.coordinator.Evaluate(ctx, repos, f.ID)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("linked shipment",
		zap.String("fulfillment_id", fulfillmentID.String()),
		zap.String("shipment_id", shipmentID.String()),
		zap.Bool("fulfilled", transitioned))
	return nil
}

// MarkProformaPaid records the external payment confirmation on the
// fulfillment and its proforma invoice, then re-evaluates
func (s *FulfillmentService) MarkProformaPaid(ctx context.Context, fulfillmentID uuid.UUID, paidAt time.Time) error {
	var transitioned bool
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		f, err := repos.FulfillmentRepo().FindByIDForUpdate(ctx, fulfillmentID)
		if err != nil {
			return fmt.Errorf("loading fulfillment: %w", err)
		}
		if err := f.MarkProformaPaid(paidAt); err != nil {
			return err
		}

		if f.ProformaInvoiceID != nil {
			invoice, err := repos.InvoiceRepo().FindByID(ctx, *f.ProformaInvoiceID)
			if err != nil {
				return fmt.Errorf("loading invoice: %w", err)
			}
			if err := invoice.MarkPaid(paidAt); err != nil {
				return err
			}
			if err := repos.InvoiceRepo().Save(ctx, invoice); err != nil {
				return fmt.Errorf("saving invoice: %w", err)
			}
		}

		if err := repos.FulfillmentRepo().SaveWithLock(ctx, f); err != nil {
			return fmt.Errorf("saving fulfillment: %w", err)
		}
		s.publishEvents(ctx, f.GetDomainEvents())
		f.ClearDomainEvents()

		transitioned, err = s.coordinator.Evaluate(ctx, repos, f.ID)
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Info("marked proforma paid",
		zap.String("fulfillment_id", fulfillmentID.String()),
		zap.Bool("fulfilled", transitioned))
	return nil
}

// GetFulfillment finds a fulfillment by ID
func (s *FulfillmentService) GetFulfillment(ctx context.Context, id uuid.UUID) (*fulfillment.Fulfillment, error) {
	var found *fulfillment.Fulfillment
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		f, err := repos.FulfillmentRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		found = f
		return nil
	})
	return found, err
}

// ListByOrder returns an order's fulfillments in creation order
func (s *FulfillmentService) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*fulfillment.Fulfillment, error) {
	var all []*fulfillment.Fulfillment
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.FulfillmentRepo().FindByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		all = found
		return nil
	})
	return all, err
}

// GetPick finds a picking run by ID
func (s *FulfillmentService) GetPick(ctx context.Context, id uuid.UUID) (*fulfillment.Pick, error) {
	var found *fulfillment.Pick
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		pick, err := repos.PickRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		found = pick
		return nil
	})
	return found, err
}

// ReevaluateOrder re-runs the approval predicate over every fulfillment of
// an order, used after a deposit change
func (s *FulfillmentService) ReevaluateOrder(ctx context.Context, orderID uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		all, err := repos.FulfillmentRepo().FindByOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("loading fulfillments: %w", err)
		}
		for _, f := range all {
			if _, err := s.coordinator.Evaluate(ctx, repos, f.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *FulfillmentService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
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
