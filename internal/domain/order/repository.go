package order

import (
	"context"

	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderRepository defines persistence operations for orders
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByReference(ctx context.Context, reference string) (*Order, error)

	// FindUnconfirmed returns orders awaiting the confirmation gate,
	// oldest first, for re-evaluation sweeps
	FindUnconfirmed(ctx context.Context, filter shared.Filter) ([]*Order, error)

	FindAll(ctx context.Context, filter shared.Filter) ([]*Order, error)
	Save(ctx context.Context, order *Order) error
	SaveWithLock(ctx context.Context, order *Order) error
}
