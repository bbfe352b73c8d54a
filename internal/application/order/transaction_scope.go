package order

import (
	"context"

	"github.com/dirac/fulfillment/internal/domain/allocation"
	"github.com/dirac/fulfillment/internal/domain/billing"
	"github.com/dirac/fulfillment/internal/domain/fulfillment"
	"github.com/dirac/fulfillment/internal/domain/order"
	"github.com/dirac/fulfillment/internal/domain/purchasing"
	"github.com/dirac/fulfillment/internal/domain/warehouse"
)

// TransactionScope provides transactional access to the repositories the
// order flows touch
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories scoped to
// the current transaction. Order confirmation spans order, allocation,
// purchasing and fulfillment state, all committed atomically.
type TransactionalRepositories interface {
	OrderRepo() order.OrderRepository
	AllocationRepo() allocation.AllocationRepository
	StockRepo() warehouse.StockRepository
	WarehouseRepo() warehouse.WarehouseRepository
	ItemRepo() purchasing.PurchaseOrderItemRepository
	PurchaseOrderRepo() purchasing.PurchaseOrderRepository
	FulfillmentRepo() fulfillment.FulfillmentRepository
	PickRepo() fulfillment.PickRepository
	InvoiceRepo() billing.InvoiceRepository
}

// NoOpTransactionScope runs the function without a real transaction, for
// tests against in-memory or sqlite repositories.
type NoOpTransactionScope struct {
	orderRepo         order.OrderRepository
	allocationRepo    allocation.AllocationRepository
	stockRepo         warehouse.StockRepository
	warehouseRepo     warehouse.WarehouseRepository
	itemRepo          purchasing.PurchaseOrderItemRepository
	purchaseOrderRepo purchasing.PurchaseOrderRepository
	fulfillmentRepo   fulfillment.FulfillmentRepository
	pickRepo          fulfillment.PickRepository
	invoiceRepo       billing.InvoiceRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given
// repositories
func NewNoOpTransactionScope(
	orderRepo order.OrderRepository,
	allocationRepo allocation.AllocationRepository,
	stockRepo warehouse.StockRepository,
	warehouseRepo warehouse.WarehouseRepository,
	itemRepo purchasing.PurchaseOrderItemRepository,
	purchaseOrderRepo purchasing.PurchaseOrderRepository,
	fulfillmentRepo fulfillment.FulfillmentRepository,
	pickRepo fulfillment.PickRepository,
	invoiceRepo billing.InvoiceRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		orderRepo:         orderRepo,
		allocationRepo:    allocationRepo,
		stockRepo:         stockRepo,
		warehouseRepo:     warehouseRepo,
		itemRepo:          itemRepo,
		purchaseOrderRepo: purchaseOrderRepo,
		fulfillmentRepo:   fulfillmentRepo,
		pickRepo:          pickRepo,
		invoiceRepo:       invoiceRepo,
	}
}

// Execute runs the function without transactional guarantees
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// OrderRepo returns the order repository
func (s *NoOpTransactionScope) OrderRepo() order.OrderRepository { return s.orderRepo }

// AllocationRepo returns the allocation repository
func (s *NoOpTransactionScope) AllocationRepo() allocation.AllocationRepository {
	return s.allocationRepo
}

// StockRepo returns the stock repository
func (s *NoOpTransactionScope) StockRepo() warehouse.StockRepository { return s.stockRepo }

// WarehouseRepo returns the warehouse repository
func (s *NoOpTransactionScope) WarehouseRepo() warehouse.WarehouseRepository {
	return s.warehouseRepo
}

// ItemRepo returns the purchase order item repository
func (s *NoOpTransactionScope) ItemRepo() purchasing.PurchaseOrderItemRepository {
	return s.itemRepo
}

// PurchaseOrderRepo returns the purchase order repository
func (s *NoOpTransactionScope) PurchaseOrderRepo() purchasing.PurchaseOrderRepository {
	return s.purchaseOrderRepo
}

// FulfillmentRepo returns the fulfillment repository
func (s *NoOpTransactionScope) FulfillmentRepo() fulfillment.FulfillmentRepository {
	return s.fulfillmentRepo
}

// PickRepo returns the pick repository
func (s *NoOpTransactionScope) PickRepo() fulfillment.PickRepository { return s.pickRepo }

// InvoiceRepo returns the invoice repository
func (s *NoOpTransactionScope) InvoiceRepo() billing.InvoiceRepository { return s.invoiceRepo }
