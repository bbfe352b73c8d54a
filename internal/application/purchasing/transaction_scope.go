package purchasing

import (
	"context"

	"github.com/dirac/fulfillment/internal/domain/allocation"
	"github.com/dirac/fulfillment/internal/domain/billing"
	"github.com/dirac/fulfillment/internal/domain/fulfillment"
	"github.com/dirac/fulfillment/internal/domain/order"
	"github.com/dirac/fulfillment/internal/domain/purchasing"
	"github.com/dirac/fulfillment/internal/domain/shipping"
	"github.com/dirac/fulfillment/internal/domain/warehouse"
)

// TransactionScope provides transactional access to the repositories the
// purchasing flows touch
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the repositories scoped to
// the current transaction. Confirming and receiving goods touches units,
// stocks and allocations alongside the purchasing aggregates, and new
// coverage re-runs the order confirmation gate, which spawns fulfillments,
// picks and invoices for orders it releases.
type TransactionalRepositories interface {
	PurchaseOrderRepo() purchasing.PurchaseOrderRepository
	ItemRepo() purchasing.PurchaseOrderItemRepository
	AdjustmentRepo() purchasing.AdjustmentRepository
	ReceiptRepo() purchasing.ReceiptRepository
	ShipmentRepo() shipping.ShipmentRepository
	WarehouseRepo() warehouse.WarehouseRepository
	StockRepo() warehouse.StockRepository
	UnitRepo() warehouse.UnitRepository
	AllocationRepo() allocation.AllocationRepository
	OrderRepo() order.OrderRepository
	FulfillmentRepo() fulfillment.FulfillmentRepository
	PickRepo() fulfillment.PickRepository
	InvoiceRepo() billing.InvoiceRepository
}

// NoOpTransactionScope runs the function without a real transaction, for
// tests against in-memory or sqlite repositories.
type NoOpTransactionScope struct {
	purchaseOrderRepo purchasing.PurchaseOrderRepository
	itemRepo          purchasing.PurchaseOrderItemRepository
	adjustmentRepo    purchasing.AdjustmentRepository
	receiptRepo       purchasing.ReceiptRepository
	shipmentRepo      shipping.ShipmentRepository
	warehouseRepo     warehouse.WarehouseRepository
	stockRepo         warehouse.StockRepository
	unitRepo          warehouse.UnitRepository
	allocationRepo    allocation.AllocationRepository
	orderRepo         order.OrderRepository
	fulfillmentRepo   fulfillment.FulfillmentRepository
	pickRepo          fulfillment.PickRepository
	invoiceRepo       billing.InvoiceRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given
// repositories
func NewNoOpTransactionScope(
	purchaseOrderRepo purchasing.PurchaseOrderRepository,
	itemRepo purchasing.PurchaseOrderItemRepository,
	adjustmentRepo purchasing.AdjustmentRepository,
	receiptRepo purchasing.ReceiptRepository,
	shipmentRepo shipping.ShipmentRepository,
	warehouseRepo warehouse.WarehouseRepository,
	stockRepo warehouse.StockRepository,
	unitRepo warehouse.UnitRepository,
	allocationRepo allocation.AllocationRepository,
	orderRepo order.OrderRepository,
	fulfillmentRepo fulfillment.FulfillmentRepository,
	pickRepo fulfillment.PickRepository,
	invoiceRepo billing.InvoiceRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		purchaseOrderRepo: purchaseOrderRepo,
		itemRepo:          itemRepo,
		adjustmentRepo:    adjustmentRepo,
		receiptRepo:       receiptRepo,
		shipmentRepo:      shipmentRepo,
		warehouseRepo:     warehouseRepo,
		stockRepo:         stockRepo,
		unitRepo:          unitRepo,
		allocationRepo:    allocationRepo,
		orderRepo:         orderRepo,
		fulfillmentRepo:   fulfillmentRepo,
		pickRepo:          pickRepo,
		invoiceRepo:       invoiceRepo,
	}
}

// Execute runs the function without transactional guarantees
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// PurchaseOrderRepo returns the purchase order repository
func (s *NoOpTransactionScope) PurchaseOrderRepo() purchasing.PurchaseOrderRepository {
	return s.purchaseOrderRepo
}

// ItemRepo returns the purchase order item repository
func (s *NoOpTransactionScope) ItemRepo() purchasing.PurchaseOrderItemRepository {
	return s.itemRepo
}

// AdjustmentRepo returns the adjustment repository
func (s *NoOpTransactionScope) AdjustmentRepo() purchasing.AdjustmentRepository {
	return s.adjustmentRepo
}

// ReceiptRepo returns the receipt repository
func (s *NoOpTransactionScope) ReceiptRepo() purchasing.ReceiptRepository {
	return s.receiptRepo
}

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

// OrderRepo returns the order repository
func (s *NoOpTransactionScope) OrderRepo() order.OrderRepository { return s.orderRepo }

// FulfillmentRepo returns the fulfillment repository
func (s *NoOpTransactionScope) FulfillmentRepo() fulfillment.FulfillmentRepository {
	return s.fulfillmentRepo
}

// PickRepo returns the pick repository
func (s *NoOpTransactionScope) PickRepo() fulfillment.PickRepository { return s.pickRepo }

// InvoiceRepo returns the invoice repository
func (s *NoOpTransactionScope) InvoiceRepo() billing.InvoiceRepository { return s.invoiceRepo }
