package fulfillment

import (
	"context"

	"github.com/google/uuid"
)

// FulfillmentRepository defines persistence operations for fulfillments
type FulfillmentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Fulfillment, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Fulfillment, error)

	// FindByOrder returns the order's fulfillments in creation order, the
	// order deposit credits are handed out in
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]*Fulfillment, error)
	FindByOrderForUpdate(ctx context.Context, orderID uuid.UUID) ([]*Fulfillment, error)

	FindByShipment(ctx context.Context, shipmentID uuid.UUID) ([]*Fulfillment, error)
	Save(ctx context.Context, f *Fulfillment) error
	SaveWithLock(ctx context.Context, f *Fulfillment) error
}

// PickRepository defines persistence operations for picks
type PickRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Pick, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Pick, error)
	FindByFulfillment(ctx context.Context, fulfillmentID uuid.UUID) (*Pick, error)
	Save(ctx context.Context, p *Pick) error
	SaveWithLock(ctx context.Context, p *Pick) error
}
