package fulfillment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dirac/fulfillment/internal/domain/billing"
	"github.com/dirac/fulfillment/internal/domain/fulfillment"
	"github.com/dirac/fulfillment/internal/domain/order"
	"github.com/dirac/fulfillment/internal/domain/shared"
)

// AutoTransitionCoordinator re-evaluates a fulfillment's approval predicate
// after each trigger: pick completion, shipment link, proforma payment, or
// a deposit change. Callers invoke Evaluate inside the same transaction as
// the trigger mutation; the fulfillment row lock plus the idempotent
// transition make concurrent triggers safe to run twice.
type AutoTransitionCoordinator struct {
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewAutoTransitionCoordinator creates a new coordinator
func NewAutoTransitionCoordinator(logger *zap.Logger) *AutoTransitionCoordinator {
	return &AutoTransitionCoordinator{logger: logger}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (c *AutoTransitionCoordinator) SetEventPublisher(publisher shared.EventPublisher) {
	c.eventPublisher = publisher
}

// Evaluate checks the approval predicate for one fulfillment and commits
// the transition when it holds. Returns whether the fulfillment moved to
// FULFILLED in this call.
func (c *AutoTransitionCoordinator) Evaluate(ctx context.Context, repos TransactionalRepositories, fulfillmentID uuid.UUID) (bool, error) {
	f, err := repos.FulfillmentRepo().FindByIDForUpdate(ctx, fulfillmentID)
	if err != nil {
		return false, fmt.Errorf("loading fulfillment: %w", err)
	}

	pick, err := repos.PickRepo().FindByFulfillment(ctx, f.ID)
	if err != nil {
		return false, fmt.Errorf("loading pick: %w", err)
	}
	ord, err := repos.OrderRepo().FindByID(ctx, f.OrderID)
	if err != nil {
		return false, fmt.Errorf("loading order: %w", err)
	}

	pickCompleted := pick.Status == fulfillment.PickStatusCompleted
	if !f.CanAutoTransitionToFulfilled(pickCompleted, ord.DepositRequired()) {
		return false, nil
	}

	if err := f.TransitionToFulfilled(); err != nil {
		return false, err
	}
	if err := repos.FulfillmentRepo().SaveWithLock(ctx, f); err != nil {
		return false, fmt.Errorf("saving fulfillment: %w", err)
	}

	all, err := repos.FulfillmentRepo().FindByOrder(ctx, f.OrderID)
	if err != nil {
		return false, fmt.Errorf("loading order fulfillments: %w", err)
	}
	fulfilled, seq := 0, 1
	for i, other := range all {
		if other.ID == f.ID {
			seq = i + 1
		}
		if other.ID == f.ID || other.Status == fulfillment.StatusFulfilled {
			fulfilled++
		}
	}
	if err := ord.RecordFulfillmentProgress(fulfilled, len(all)); err != nil {
		return false, err
	}
	if err := repos.OrderRepo().Save(ctx, ord); err != nil {
		return false, fmt.Errorf("saving order: %w", err)
	}

	if err := c.issueFinalInvoice(ctx, repos, f, ord, seq); err != nil {
		return false, err
	}

	c.publishEvents(ctx, f.GetDomainEvents())
	f.ClearDomainEvents()

	c.logger.Info("fulfillment auto-transitioned",
		zap.String("fulfillment_id", f.ID.String()),
		zap.String("order_id", f.OrderID.String()))
	return true, nil
}

// issueFinalInvoice raises the recognized invoice for a fulfillment that
// just moved to FULFILLED, marks it pushed to the accounting authority and
// voids the proforma it supersedes if that one is still open.
func (c *AutoTransitionCoordinator) issueFinalInvoice(ctx context.Context, repos TransactionalRepositories, f *fulfillment.Fulfillment, ord *order.Order, seq int) error {
	number := fmt.Sprintf("FI-%s-%d", ord.Reference, seq)
	invoice, err := billing.NewInvoice(number, billing.TypeFinal, f.Total(), ord.Currency, billing.InvoiceRef{FulfillmentID: &f.ID})
	if err != nil {
		return err
	}
	if err := invoice.MarkPushed(); err != nil {
		return err
	}
	if err := repos.InvoiceRepo().Save(ctx, invoice); err != nil {
		return fmt.Errorf("saving final invoice: %w", err)
	}
	c.logger.Info("final invoice pushed",
		zap.String("invoice_number", number),
		zap.String("fulfillment_id", f.ID.String()))

	if f.ProformaInvoiceID == nil {
		return nil
	}
	proforma, err := repos.InvoiceRepo().FindByID(ctx, *f.ProformaInvoiceID)
	if err != nil {
		return fmt.Errorf("loading proforma invoice: %w", err)
	}
	if proforma.Status != billing.StatusOpen {
		return nil
	}
	if err := proforma.Void(); err != nil {
		return err
	}
	if err := repos.InvoiceRepo().Save(ctx, proforma); err != nil {
		return fmt.Errorf("saving proforma invoice: %w", err)
	}
	return nil
}

func (c *AutoTransitionCoordinator) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if c.eventPublisher == nil {
		return
	}
	for _, event := range events {
		if err := c.eventPublisher.Publish(ctx, event); err != nil {
			c.logger.Warn("failed to publish event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
}
