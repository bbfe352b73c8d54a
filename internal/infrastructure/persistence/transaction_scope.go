package persistence

import (
	"context"

	"gorm.io/gorm"

	allocationapp "github.com/dirac/fulfillment/internal/application/allocation"
	fulfillmentapp "github.com/dirac/fulfillment/internal/application/fulfillment"
	orderapp "github.com/dirac/fulfillment/internal/application/order"
	purchasingapp "github.com/dirac/fulfillment/internal/application/purchasing"
	"github.com/dirac/fulfillment/internal/domain/allocation"
	"github.com/dirac/fulfillment/internal/domain/billing"
	"github.com/dirac/fulfillment/internal/domain/fulfillment"
	"github.com/dirac/fulfillment/internal/domain/order"
	"github.com/dirac/fulfillment/internal/domain/purchasing"
	"github.com/dirac/fulfillment/internal/domain/shipping"
	"github.com/dirac/fulfillment/internal/domain/warehouse"
)

// txRepositories hands out repositories bound to one database transaction.
// Its method set satisfies every application layer's transactional
// repository interface, so a single type backs all four scopes.
type txRepositories struct {
	tx *gorm.DB
}

func (r txRepositories) WarehouseRepo() warehouse.WarehouseRepository { return NewGormWarehouseRepository(r.tx) }
func (r txRepositories) StockRepo() warehouse.StockRepository         { return NewGormStockRepository(r.tx) }
func (r txRepositories) UnitRepo() warehouse.UnitRepository           { return NewGormUnitRepository(r.tx) }
func (r txRepositories) PurchaseOrderRepo() purchasing.PurchaseOrderRepository {
	return NewGormPurchaseOrderRepository(r.tx)
}
func (r txRepositories) ItemRepo() purchasing.PurchaseOrderItemRepository {
	return NewGormPurchaseOrderItemRepository(r.tx)
}
func (r txRepositories) AdjustmentRepo() purchasing.AdjustmentRepository {
	return NewGormAdjustmentRepository(r.tx)
}
func (r txRepositories) ReceiptRepo() purchasing.ReceiptRepository    { return NewGormReceiptRepository(r.tx) }
func (r txRepositories) OrderRepo() order.OrderRepository             { return NewGormOrderRepository(r.tx) }
func (r txRepositories) AllocationRepo() allocation.AllocationRepository {
	return NewGormAllocationRepository(r.tx)
}
func (r txRepositories) ShipmentRepo() shipping.ShipmentRepository { return NewGormShipmentRepository(r.tx) }
func (r txRepositories) FulfillmentRepo() fulfillment.FulfillmentRepository {
	return NewGormFulfillmentRepository(r.tx)
}
func (r txRepositories) PickRepo() fulfillment.PickRepository  { return NewGormPickRepository(r.tx) }
func (r txRepositories) InvoiceRepo() billing.InvoiceRepository { return NewGormInvoiceRepository(r.tx) }

// GormAllocationScope runs allocation flows in a database transaction
type GormAllocationScope struct {
	db *gorm.DB
}

var _ allocationapp.TransactionScope = (*GormAllocationScope)(nil)

// NewGormAllocationScope creates a scope over the given database
func NewGormAllocationScope(db *gorm.DB) *GormAllocationScope {
	return &GormAllocationScope{db: db}
}

// Execute runs fn inside a transaction, rolling back on error
func (s *GormAllocationScope) Execute(ctx context.Context, fn func(repos allocationapp.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(txRepositories{tx: tx})
	})
}

// GormOrderScope runs order flows in a database transaction
type GormOrderScope struct {
	db *gorm.DB
}

var _ orderapp.TransactionScope = (*GormOrderScope)(nil)

// NewGormOrderScope creates a scope over the given database
func NewGormOrderScope(db *gorm.DB) *GormOrderScope {
	return &GormOrderScope{db: db}
}

// Execute runs fn inside a transaction, rolling back on error
func (s *GormOrderScope) Execute(ctx context.Context, fn func(repos orderapp.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(txRepositories{tx: tx})
	})
}

// GormPurchasingScope runs purchasing flows in a database transaction
type GormPurchasingScope struct {
	db *gorm.DB
}

var _ purchasingapp.TransactionScope = (*GormPurchasingScope)(nil)

// NewGormPurchasingScope creates a scope over the given database
func NewGormPurchasingScope(db *gorm.DB) *GormPurchasingScope {
	return &GormPurchasingScope{db: db}
}

// Execute runs fn inside a transaction, rolling back on error
func (s *GormPurchasingScope) Execute(ctx context.Context, fn func(repos purchasingapp.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(txRepositories{tx: tx})
	})
}

// GormFulfillmentScope runs fulfillment flows in a database transaction
type GormFulfillmentScope struct {
	db *gorm.DB
}

var _ fulfillmentapp.TransactionScope = (*GormFulfillmentScope)(nil)

// NewGormFulfillmentScope creates a scope over the given database
func NewGormFulfillmentScope(db *gorm.DB) *GormFulfillmentScope {
	return &GormFulfillmentScope{db: db}
}

// Execute runs fn inside a transaction, rolling back on error
func (s *GormFulfillmentScope) Execute(ctx context.Context, fn func(repos fulfillmentapp.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(txRepositories{tx: tx})
	})
}
