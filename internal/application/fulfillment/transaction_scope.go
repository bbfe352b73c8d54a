package fulfillment

import (
	"context"

	"github.com/dirac/fulfillment/internal/domain/allocation"
	"github.com/dirac/fulfillment/internal/domain/billing"
	"github.com/dirac/fulfillment/internal/domain/fulfillment"
	"github.com/dirac/fulfillment/internal/domain/order"
	"github.com/dirac/fulfillment/internal/domain/shipping"
	"github.com/dirac/fulfillment/internal/domain/warehouse"
)

// TransactionScope provides transactional access to the repositories the
// fulfillment flows touch
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories scoped to
// the current transaction. Completing a pick consumes units and drops
// allocations; every trigger re-evaluates the fulfillment in the same
// transaction.
type TransactionalRepositories interface {
	FulfillmentRepo() fulfillment.FulfillmentRepository
	PickRepo() fulfillment.PickRepository
	OrderRepo() order.OrderRepository
	ShipmentRepo() shipping.ShipmentRepository
	WarehouseRepo() warehouse.WarehouseRepository
	StockRepo() warehouse.StockRepository
	UnitRepo() warehouse.UnitRepository
	AllocationRepo() allocation.AllocationRepository
	InvoiceRepo() billing.InvoiceRepository
}

// NoOpTransactionScope runs the function without a real transaction, for
// tests against in-memory or sqlite repositories.
type NoOpTransactionScope struct {
	fulfillmentRepo fulfillment.FulfillmentRepository
	pickRepo        fulfillment.PickRepository
	orderRepo       order.OrderRepository
	shipmentRepo    shipping.ShipmentRepository
	warehouseRepo   warehouse.WarehouseRepository
	stockRepo       warehouse.StockRepository
	unitRepo        warehouse.UnitRepository
	allocationRepo  allocation.AllocationRepository
	invoiceRepo     billing.InvoiceRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given
// repositories
func NewNoOpTransactionScope(
	fulfillmentRepo fulfillment.FulfillmentRepository,
	pickRepo fulfillment.PickRepository,
	orderRepo order.OrderRepository,
	shipmentRepo shipping.ShipmentRepository,
	warehouseRepo warehouse.WarehouseRepository,
	stockRepo warehouse.StockRepository,
	unitRepo warehouse.UnitRepository,
	allocationRepo allocation.AllocationRepository,
	invoiceRepo billing.InvoiceRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		fulfillmentRepo: fulfillmentRepo,
		pickRepo:        pickRepo,
		orderRepo:       orderRepo,
		shipmentRepo:    shipmentRepo,
		warehouseRepo:   warehouseRepo,
		stockRepo:       stockRepo,
		unitRepo:        unitRepo,
		allocationRepo:  allocationRepo,
		invoiceRepo:     invoiceRepo,
	}
}

// Execute runs the function without transactional guarantees
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// FulfillmentRepo returns the fulfillment repository
func (s *NoOpTransactionScope) FulfillmentRepo() fulfillment.FulfillmentRepository {
	return s.fulfillmentRepo
}

// PickRepo returns the pick repository
func (s *NoOpTransactionScope) PickRepo() fulfillment.PickRepository { return s.pickRepo }

// OrderRepo returns the order repository
func (s *NoOpTransactionScope) OrderRepo() order.OrderRepository { return s.orderRepo }

// ShipmentRepo returns the shipment repository
func (s *NoOpTransactionScope) ShipmentRepo() shipping.ShipmentRepository {
	return s.shipmentRepo
}

// WarehouseRepo returns the warehouse repository
func (s *NoOpTransactionScope) WarehouseRepo() warehouse.WarehouseRepository {
	return s.warehouseRepo
}

// StockRepo returns the stock repository
func (s *NoOpTransactionScope) StockRepo() warehouse.StockRepository { return s.stockRepo }

// UnitRepo returns the unit repository
func (s *NoOpTransactionScope) UnitRepo() warehouse.UnitRepository { return s.unitRepo }

// AllocationRepo returns the allocation repository
func (s *NoOpTransactionScope) AllocationRepo() allocation.AllocationRepository {
	return s.allocationRepo
}

// InvoiceRepo returns the invoice repository
func (s *NoOpTransactionScope) InvoiceRepo() billing.InvoiceRepository { return s.invoiceRepo }
