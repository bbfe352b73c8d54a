package fulfillment

import (
	"context"

	"go.uber.org/zap"

	"github.com/dirac/fulfillment/internal/domain/order"
	"github.com/dirac/fulfillment/internal/domain/shared"
)

// DepositReevaluationHandler reacts to deposit changes on an order by
// re-running the approval predicate over its fulfillments. A raised
// deposit can flip a waiting fulfillment whose proforma was already paid.
type DepositReevaluationHandler struct {
	service *FulfillmentService
	logger  *zap.Logger
}

// NewDepositReevaluationHandler creates a new DepositReevaluationHandler
func NewDepositReevaluationHandler(service *FulfillmentService, logger *zap.Logger) *DepositReevaluationHandler {
	return &DepositReevaluationHandler{service: service, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *DepositReevaluationHandler) EventTypes() []string {
	return []string{order.EventTypeDepositSet}
}

// Handle re-evaluates every fulfillment of the order the deposit was set on
func (h *DepositReevaluationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	orderID := event.AggregateID()
	if err := h.service.ReevaluateOrder(ctx, orderID); err != nil {
		// Invariant violations are bugs; everything else is a condition
		// the next sweep can retry.
		log := h.logger.Warn
		if shared.IsInvariantViolation(err) {
			log = h.logger.Error
		}
		log("failed to re-evaluate order after deposit change",
			zap.String("order_id", orderID.String()),
			zap.Error(err))
		return err
	}
	return nil
}
