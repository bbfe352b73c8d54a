package allocation

import (
	"context"

	"github.com/dirac/fulfillment/internal/domain/allocation"
	"github.com/dirac/fulfillment/internal/domain/order"
	"github.com/dirac/fulfillment/internal/domain/purchasing"
	"github.com/dirac/fulfillment/internal/domain/warehouse"
)

// TransactionScope provides transactional access to the repositories the
// allocation flows touch. A function executed within a scope runs inside
// one database transaction; row locks taken by ForUpdate loads hold until
// it commits or rolls back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories scoped to
// the current transaction
type TransactionalRepositories interface {
	StockRepo() warehouse.StockRepository
	WarehouseRepo() warehouse.WarehouseRepository
	AllocationRepo() allocation.AllocationRepository
	ItemRepo() purchasing.PurchaseOrderItemRepository
	OrderRepo() order.OrderRepository
}

// NoOpTransactionScope runs the function without a real transaction, for
// tests against in-memory or sqlite repositories.
type NoOpTransactionScope struct {
	stockRepo      warehouse.StockRepository
	warehouseRepo  warehouse.WarehouseRepository
	allocationRepo allocation.AllocationRepository
	itemRepo       purchasing.PurchaseOrderItemRepository
	orderRepo      order.OrderRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given
// repositories
func NewNoOpTransactionScope(
	stockRepo warehouse.StockRepository,
	warehouseRepo warehouse.WarehouseRepository,
	allocationRepo allocation.AllocationRepository,
	itemRepo purchasing.PurchaseOrderItemRepository,
	orderRepo order.OrderRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		stockRepo:      stockRepo,
		warehouseRepo:  warehouseRepo,
		allocationRepo: allocationRepo,
		itemRepo:       itemRepo,
		orderRepo:      orderRepo,
	}
}

// Execute runs the function without transactional guarantees
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// StockRepo returns the stock repository
func (s *NoOpTransactionScope) StockRepo() warehouse.StockRepository { return s.stockRepo }

// WarehouseRepo returns the warehouse repository
func (s *NoOpTransactionScope) WarehouseRepo() warehouse.WarehouseRepository {
	return s.warehouseRepo
}

// AllocationRepo returns the allocation repository
func (s *NoOpTransactionScope) AllocationRepo() allocation.AllocationRepository {
	return s.allocationRepo
}

// ItemRepo returns the purchase order item repository
func (s *NoOpTransactionScope) ItemRepo() purchasing.PurchaseOrderItemRepository {
	return s.itemRepo
}

// OrderRepo returns the order repository
func (s *NoOpTransactionScope) OrderRepo() order.OrderRepository { return s.orderRepo }
