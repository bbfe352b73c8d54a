// Package memory provides in-memory repository implementations for
// application service tests. Find methods return the stored pointers, so a
// test transaction sees its own writes the way a database transaction
// would; ForUpdate variants are plain reads since tests are single-threaded.
package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/dirac/fulfillment/internal/domain/allocation"
	"github.com/dirac/fulfillment/internal/domain/billing"
	"github.com/dirac/fulfillment/internal/domain/fulfillment"
	"github.com/dirac/fulfillment/internal/domain/order"
	"github.com/dirac/fulfillment/internal/domain/purchasing"
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/dirac/fulfillment/internal/domain/shipping"
	"github.com/dirac/fulfillment/internal/domain/warehouse"
)

// Store holds every aggregate the repositories serve
type Store struct {
	warehouses     map[uuid.UUID]*warehouse.Warehouse
	stocks         map[uuid.UUID]*warehouse.Stock
	units          map[uuid.UUID]*warehouse.Unit
	unitOrder      []uuid.UUID
	purchaseOrders map[uuid.UUID]*purchasing.PurchaseOrder
	items          map[uuid.UUID]*purchasing.PurchaseOrderItem
	adjustments    map[uuid.UUID]*purchasing.PurchaseOrderItemAdjustment
	receipts       map[uuid.UUID]*purchasing.Receipt
	shipments      map[uuid.UUID]*shipping.Shipment
	allocations    map[uuid.UUID]*allocation.Allocation
	orders         map[uuid.UUID]*order.Order
	fulfillments   map[uuid.UUID]*fulfillment.Fulfillment
	fulfillOrder   []uuid.UUID
	picks          map[uuid.UUID]*fulfillment.Pick
	invoices       map[uuid.UUID]*billing.Invoice
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		warehouses:     make(map[uuid.UUID]*warehouse.Warehouse),
		stocks:         make(map[uuid.UUID]*warehouse.Stock),
		units:          make(map[uuid.UUID]*warehouse.Unit),
		purchaseOrders: make(map[uuid.UUID]*purchasing.PurchaseOrder),
		items:          make(map[uuid.UUID]*purchasing.PurchaseOrderItem),
		adjustments:    make(map[uuid.UUID]*purchasing.PurchaseOrderItemAdjustment),
		receipts:       make(map[uuid.UUID]*purchasing.Receipt),
		shipments:      make(map[uuid.UUID]*shipping.Shipment),
		allocations:    make(map[uuid.UUID]*allocation.Allocation),
		orders:         make(map[uuid.UUID]*order.Order),
		fulfillments:   make(map[uuid.UUID]*fulfillment.Fulfillment),
		picks:          make(map[uuid.UUID]*fulfillment.Pick),
		invoices:       make(map[uuid.UUID]*billing.Invoice),
	}
}

// Warehouses returns the warehouse repository view
func (s *Store) Warehouses() warehouse.WarehouseRepository { return &warehouseRepo{s} }

// Stocks returns the stock repository view
func (s *Store) Stocks() warehouse.StockRepository { return &stockRepo{s} }

// Units returns the unit repository view
func (s *Store) Units() warehouse.UnitRepository { return &unitRepo{s} }

// PurchaseOrders returns the purchase order repository view
func (s *Store) PurchaseOrders() purchasing.PurchaseOrderRepository { return &purchaseOrderRepo{s} }

// Items returns the purchase order item repository view
func (s *Store) Items() purchasing.PurchaseOrderItemRepository { return &itemRepo{s} }

// Adjustments returns the adjustment repository view
func (s *Store) Adjustments() purchasing.AdjustmentRepository { return &adjustmentRepo{s} }

// Receipts returns the receipt repository view
func (s *Store) Receipts() purchasing.ReceiptRepository { return &receiptRepo{s} }

// Shipments returns the shipment repository view
func (s *Store) Shipments() shipping.ShipmentRepository { return &shipmentRepo{s} }

// Allocations returns the allocation repository view
func (s *Store) Allocations() allocation.AllocationRepository { return &allocationRepo{s} }

// Orders returns the order repository view
func (s *Store) Orders() order.OrderRepository { return &orderRepo{s} }

// Fulfillments returns the fulfillment repository view
func (s *Store) Fulfillments() fulfillment.FulfillmentRepository { return &fulfillmentRepo{s} }

// Picks returns the pick repository view
func (s *Store) Picks() fulfillment.PickRepository { return &pickRepo{s} }

// Invoices returns the invoice repository view
func (s *Store) Invoices() billing.InvoiceRepository { return &invoiceRepo{s} }

// --- warehouses ---

type warehouseRepo struct{ s *Store }

func (r *warehouseRepo) FindByID(_ context.Context, id uuid.UUID) (*warehouse.Warehouse, error) {
	if wh, ok := r.s.warehouses[id]; ok {
		return wh, nil
	}
	return nil, shared.ErrNotFound
}

func (r *warehouseRepo) FindByCode(_ context.Context, code string) (*warehouse.Warehouse, error) {
	for _, wh := range r.s.warehouses {
		if wh.Code == code {
			return wh, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *warehouseRepo) FindOwned(_ context.Context) ([]warehouse.Warehouse, error) {
	owned := make([]warehouse.Warehouse, 0)
	for _, wh := range r.s.warehouses {
		if wh.Owned {
			owned = append(owned, *wh)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].Priority < owned[j].Priority })
	return owned, nil
}

func (r *warehouseRepo) FindAll(_ context.Context, _ shared.Filter) ([]warehouse.Warehouse, error) {
	all := make([]warehouse.Warehouse, 0, len(r.s.warehouses))
	for _, wh := range r.s.warehouses {
		all = append(all, *wh)
	}
	return all, nil
}

func (r *warehouseRepo) Save(_ context.Context, wh *warehouse.Warehouse) error {
	r.s.warehouses[wh.ID] = wh
	return nil
}

func (r *warehouseRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.s.warehouses, id)
	return nil
}

// --- stocks ---

type stockRepo struct{ s *Store }

func (r *stockRepo) FindByID(_ context.Context, id uuid.UUID) (*warehouse.Stock, error) {
	if st, ok := r.s.stocks[id]; ok {
		return st, nil
	}
	return nil, shared.ErrNotFound
}

func (r *stockRepo) findPair(warehouseID, variantID uuid.UUID) (*warehouse.Stock, error) {
	for _, st := range r.s.stocks {
		if st.WarehouseID == warehouseID && st.VariantID == variantID {
			return st, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *stockRepo) FindByWarehouseAndVariant(_ context.Context, warehouseID, variantID uuid.UUID) (*warehouse.Stock, error) {
	return r.findPair(warehouseID, variantID)
}

func (r *stockRepo) FindByWarehouseAndVariantForUpdate(_ context.Context, warehouseID, variantID uuid.UUID) (*warehouse.Stock, error) {
	return r.findPair(warehouseID, variantID)
}

func (r *stockRepo) findByVariant(variantID uuid.UUID) []warehouse.Stock {
	rows := make([]warehouse.Stock, 0)
	for _, st := range r.s.stocks {
		if st.VariantID == variantID {
			rows = append(rows, *st)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.WarehouseOwned != b.WarehouseOwned {
			return a.WarehouseOwned
		}
		pa, pb := 0, 0
		if wh, ok := r.s.warehouses[a.WarehouseID]; ok {
			pa = wh.Priority
		}
		if wh, ok := r.s.warehouses[b.WarehouseID]; ok {
			pb = wh.Priority
		}
		return pa < pb
	})
	return rows
}

func (r *stockRepo) FindByVariant(_ context.Context, variantID uuid.UUID) ([]warehouse.Stock, error) {
	return r.findByVariant(variantID), nil
}

func (r *stockRepo) FindByVariantForUpdate(_ context.Context, variantID uuid.UUID) ([]warehouse.Stock, error) {
	return r.findByVariant(variantID), nil
}

func (r *stockRepo) GetOrCreate(_ context.Context, wh *warehouse.Warehouse, variantID uuid.UUID) (*warehouse.Stock, error) {
	if st, err := r.findPair(wh.ID, variantID); err == nil {
		return st, nil
	}
	st, err := warehouse.NewStock(wh, variantID)
	if err != nil {
		return nil, err
	}
	r.s.stocks[st.ID] = st
	return st, nil
}

func (r *stockRepo) Save(_ context.Context, stock *warehouse.Stock) error {
	r.s.stocks[stock.ID] = stock
	return nil
}

func (r *stockRepo) SaveWithLock(_ context.Context, stock *warehouse.Stock) error {
	r.s.stocks[stock.ID] = stock
	return nil
}

// --- units ---

type unitRepo struct{ s *Store }

func (r *unitRepo) FindByID(_ context.Context, id uuid.UUID) (*warehouse.Unit, error) {
	if u, ok := r.s.units[id]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func (r *unitRepo) findCountable(warehouseID, variantID uuid.UUID) []*warehouse.Unit {
	units := make([]*warehouse.Unit, 0)
	for _, id := range r.s.unitOrder {
		u := r.s.units[id]
		if u.WarehouseID == warehouseID && u.VariantID == variantID && u.IsCountable() {
			units = append(units, u)
		}
	}
	warehouse.SortUnitsFIFO(units)
	return units
}

func (r *unitRepo) FindCountable(_ context.Context, warehouseID, variantID uuid.UUID) ([]*warehouse.Unit, error) {
	return r.findCountable(warehouseID, variantID), nil
}

func (r *unitRepo) FindCountableForUpdate(_ context.Context, warehouseID, variantID uuid.UUID) ([]*warehouse.Unit, error) {
	return r.findCountable(warehouseID, variantID), nil
}

func (r *unitRepo) FindByPurchaseOrderItem(_ context.Context, poiID uuid.UUID) ([]*warehouse.Unit, error) {
	units := make([]*warehouse.Unit, 0)
	for _, id := range r.s.unitOrder {
		u := r.s.units[id]
		if u.PurchaseOrderItemID == poiID {
			units = append(units, u)
		}
	}
	return units, nil
}

func (r *unitRepo) CountCountable(_ context.Context, warehouseID, variantID uuid.UUID) (int, error) {
	return len(r.findCountable(warehouseID, variantID)), nil
}

func (r *unitRepo) CreateBatch(_ context.Context, units []*warehouse.Unit) error {
	for _, u := range units {
		r.s.units[u.ID] = u
		r.s.unitOrder = append(r.s.unitOrder, u.ID)
	}
	return nil
}

func (r *unitRepo) Save(_ context.Context, unit *warehouse.Unit) error {
	if _, ok := r.s.units[unit.ID]; !ok {
		r.s.unitOrder = append(r.s.unitOrder, unit.ID)
	}
	r.s.units[unit.ID] = unit
	return nil
}

func (r *unitRepo) SaveBatch(ctx context.Context, units []*warehouse.Unit) error {
	for _, u := range units {
		if err := r.Save(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

// --- purchase orders ---

type purchaseOrderRepo struct{ s *Store }

func (r *purchaseOrderRepo) registerItems(po *purchasing.PurchaseOrder) {
	for i := range po.Items {
		r.s.items[po.Items[i].ID] = &po.Items[i]
	}
}

func (r *purchaseOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*purchasing.PurchaseOrder, error) {
	if po, ok := r.s.purchaseOrders[id]; ok {
		return po, nil
	}
	return nil, shared.ErrNotFound
}

func (r *purchaseOrderRepo) FindByReference(_ context.Context, reference string) (*purchasing.PurchaseOrder, error) {
	for _, po := range r.s.purchaseOrders {
		if po.Reference == reference {
			return po, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *purchaseOrderRepo) FindAll(_ context.Context, _ shared.Filter) ([]*purchasing.PurchaseOrder, error) {
	all := make([]*purchasing.PurchaseOrder, 0, len(r.s.purchaseOrders))
	for _, po := range r.s.purchaseOrders {
		all = append(all, po)
	}
	return all, nil
}

func (r *purchaseOrderRepo) Save(_ context.Context, po *purchasing.PurchaseOrder) error {
	r.s.purchaseOrders[po.ID] = po
	r.registerItems(po)
	return nil
}

func (r *purchaseOrderRepo) SaveWithLock(_ context.Context, po *purchasing.PurchaseOrder) error {
	r.s.purchaseOrders[po.ID] = po
	r.registerItems(po)
	return nil
}

// --- purchase order items ---

type itemRepo struct{ s *Store }

func (r *itemRepo) FindByID(_ context.Context, id uuid.UUID) (*purchasing.PurchaseOrderItem, error) {
	if item, ok := r.s.items[id]; ok {
		return item, nil
	}
	return nil, shared.ErrNotFound
}

func (r *itemRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*purchasing.PurchaseOrderItem, error) {
	return r.FindByID(ctx, id)
}

func (r *itemRepo) findAvailable(variantID uuid.UUID) []*purchasing.PurchaseOrderItem {
	items := make([]*purchasing.PurchaseOrderItem, 0)
	for _, item := range r.s.items {
		if item.VariantID == variantID && item.Status.IsConfirmedOrLater() && item.AvailableQuantity() > 0 {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i].ConfirmedAt, items[j].ConfirmedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return items
}

func (r *itemRepo) FindAvailableByVariant(_ context.Context, variantID uuid.UUID) ([]*purchasing.PurchaseOrderItem, error) {
	return r.findAvailable(variantID), nil
}

func (r *itemRepo) FindAvailableByVariantForUpdate(_ context.Context, variantID uuid.UUID) ([]*purchasing.PurchaseOrderItem, error) {
	return r.findAvailable(variantID), nil
}

func (r *itemRepo) FindByShipment(_ context.Context, shipmentID uuid.UUID) ([]*purchasing.PurchaseOrderItem, error) {
	items := make([]*purchasing.PurchaseOrderItem, 0)
	for _, item := range r.s.items {
		if item.ShipmentID != nil && *item.ShipmentID == shipmentID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
	return items, nil
}

func (r *itemRepo) Save(_ context.Context, item *purchasing.PurchaseOrderItem) error {
	if po, ok := r.s.purchaseOrders[item.PurchaseOrderID]; ok {
		for i := range po.Items {
			if po.Items[i].ID == item.ID {
				po.Items[i] = *item
				r.s.items[item.ID] = &po.Items[i]
				return nil
			}
		}
	}
	r.s.items[item.ID] = item
	return nil
}

func (r *itemRepo) SaveBatch(ctx context.Context, items []*purchasing.PurchaseOrderItem) error {
	for _, item := range items {
		if err := r.Save(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

// --- adjustments ---

type adjustmentRepo struct{ s *Store }

func (r *adjustmentRepo) FindByID(_ context.Context, id uuid.UUID) (*purchasing.PurchaseOrderItemAdjustment, error) {
	if adj, ok := r.s.adjustments[id]; ok {
		return adj, nil
	}
	return nil, shared.ErrNotFound
}

func (r *adjustmentRepo) FindByItem(_ context.Context, itemID uuid.UUID) ([]*purchasing.PurchaseOrderItemAdjustment, error) {
	out := make([]*purchasing.PurchaseOrderItemAdjustment, 0)
	for _, adj := range r.s.adjustments {
		if adj.PurchaseOrderItemID == itemID {
			out = append(out, adj)
		}
	}
	return out, nil
}

func (r *adjustmentRepo) FindUnprocessed(_ context.Context) ([]*purchasing.PurchaseOrderItemAdjustment, error) {
	out := make([]*purchasing.PurchaseOrderItemAdjustment, 0)
	for _, adj := range r.s.adjustments {
		if adj.ProcessedAt == nil {
			out = append(out, adj)
		}
	}
	return out, nil
}

func (r *adjustmentRepo) Save(_ context.Context, adj *purchasing.PurchaseOrderItemAdjustment) error {
	r.s.adjustments[adj.ID] = adj
	if item, ok := r.s.items[adj.PurchaseOrderItemID]; ok {
		found := false
		for i := range item.Adjustments {
			if item.Adjustments[i].ID == adj.ID {
				item.Adjustments[i] = *adj
				found = true
				break
			}
		}
		if !found {
			item.Adjustments = append(item.Adjustments, *adj)
		}
	}
	return nil
}

// --- receipts ---

type receiptRepo struct{ s *Store }

func (r *receiptRepo) FindByID(_ context.Context, id uuid.UUID) (*purchasing.Receipt, error) {
	if rec, ok := r.s.receipts[id]; ok {
		return rec, nil
	}
	return nil, shared.ErrNotFound
}

func (r *receiptRepo) FindByShipment(_ context.Context, shipmentID uuid.UUID) ([]*purchasing.Receipt, error) {
	out := make([]*purchasing.Receipt, 0)
	for _, rec := range r.s.receipts {
		if rec.ShipmentID == shipmentID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *receiptRepo) FindInProgressByShipment(_ context.Context, shipmentID uuid.UUID) (*purchasing.Receipt, error) {
	for _, rec := range r.s.receipts {
		if rec.ShipmentID == shipmentID && rec.Status == purchasing.ReceiptStatusInProgress {
			return rec, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *receiptRepo) Save(_ context.Context, rec *purchasing.Receipt) error {
	r.s.receipts[rec.ID] = rec
	return nil
}

// --- shipments ---

type shipmentRepo struct{ s *Store }

func (r *shipmentRepo) FindByID(_ context.Context, id uuid.UUID) (*shipping.Shipment, error) {
	if sh, ok := r.s.shipments[id]; ok {
		return sh, nil
	}
	return nil, shared.ErrNotFound
}

func (r *shipmentRepo) FindByReference(_ context.Context, reference string) (*shipping.Shipment, error) {
	for _, sh := range r.s.shipments {
		if sh.Reference == reference {
			return sh, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *shipmentRepo) FindByDirection(_ context.Context, direction shipping.Direction, _ shared.Filter) ([]*shipping.Shipment, error) {
	out := make([]*shipping.Shipment, 0)
	for _, sh := range r.s.shipments {
		if sh.Direction == direction {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (r *shipmentRepo) Save(_ context.Context, sh *shipping.Shipment) error {
	r.s.shipments[sh.ID] = sh
	return nil
}

// --- allocations ---

type allocationRepo struct{ s *Store }

func (r *allocationRepo) FindByID(_ context.Context, id uuid.UUID) (*allocation.Allocation, error) {
	if a, ok := r.s.allocations[id]; ok {
		return a, nil
	}
	return nil, shared.ErrNotFound
}

func (r *allocationRepo) collect(match func(*allocation.Allocation) bool) []*allocation.Allocation {
	out := make([]*allocation.Allocation, 0)
	for _, a := range r.s.allocations {
		if match(a) {
			out = append(out, a)
		}
	}
	allocation.SortByLineAge(out)
	return out
}

func (r *allocationRepo) FindByOrderLine(_ context.Context, orderLineID uuid.UUID) ([]*allocation.Allocation, error) {
	return r.collect(func(a *allocation.Allocation) bool { return a.OrderLineID == orderLineID }), nil
}

func (r *allocationRepo) FindByOrder(_ context.Context, orderID uuid.UUID) ([]*allocation.Allocation, error) {
	return r.collect(func(a *allocation.Allocation) bool { return a.OrderID == orderID }), nil
}

func (r *allocationRepo) FindByStock(_ context.Context, stockID uuid.UUID) ([]*allocation.Allocation, error) {
	return r.collect(func(a *allocation.Allocation) bool { return a.StockID == stockID }), nil
}

func (r *allocationRepo) FindByStockForUpdate(ctx context.Context, stockID uuid.UUID) ([]*allocation.Allocation, error) {
	return r.FindByStock(ctx, stockID)
}

func (r *allocationRepo) FindUnsourcedByVariant(_ context.Context, variantID uuid.UUID) ([]*allocation.Allocation, error) {
	return r.collect(func(a *allocation.Allocation) bool {
		return a.VariantID == variantID && a.UnsourcedQuantity() > 0
	}), nil
}

func (r *allocationRepo) FindUnsourcedByVariantForUpdate(ctx context.Context, variantID uuid.UUID) ([]*allocation.Allocation, error) {
	return r.FindUnsourcedByVariant(ctx, variantID)
}

func (r *allocationRepo) FindBySourceItem(_ context.Context, itemID uuid.UUID) ([]*allocation.Allocation, error) {
	return r.collect(func(a *allocation.Allocation) bool {
		for i := range a.Sources {
			if a.Sources[i].PurchaseOrderItemID == itemID {
				return true
			}
		}
		return false
	}), nil
}

func (r *allocationRepo) FindBySourceItemForUpdate(ctx context.Context, itemID uuid.UUID) ([]*allocation.Allocation, error) {
	return r.FindBySourceItem(ctx, itemID)
}

func (r *allocationRepo) Save(_ context.Context, a *allocation.Allocation) error {
	r.s.allocations[a.ID] = a
	return nil
}

func (r *allocationRepo) SaveBatch(ctx context.Context, allocations []*allocation.Allocation) error {
	for _, a := range allocations {
		if err := r.Save(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (r *allocationRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.s.allocations, id)
	return nil
}

// --- orders ---

type orderRepo struct{ s *Store }

func (r *orderRepo) FindByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	if o, ok := r.s.orders[id]; ok {
		return o, nil
	}
	return nil, shared.ErrNotFound
}

func (r *orderRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *orderRepo) FindByReference(_ context.Context, reference string) (*order.Order, error) {
	for _, o := range r.s.orders {
		if o.Reference == reference {
			return o, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *orderRepo) FindUnconfirmed(_ context.Context, _ shared.Filter) ([]*order.Order, error) {
	out := make([]*order.Order, 0)
	for _, o := range r.s.orders {
		if !o.Status.IsConfirmed() {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *orderRepo) FindAll(_ context.Context, _ shared.Filter) ([]*order.Order, error) {
	out := make([]*order.Order, 0, len(r.s.orders))
	for _, o := range r.s.orders {
		out = append(out, o)
	}
	return out, nil
}

func (r *orderRepo) Save(_ context.Context, o *order.Order) error {
	r.s.orders[o.ID] = o
	return nil
}

func (r *orderRepo) SaveWithLock(_ context.Context, o *order.Order) error {
	r.s.orders[o.ID] = o
	return nil
}

// --- fulfillments ---

type fulfillmentRepo struct{ s *Store }

func (r *fulfillmentRepo) FindByID(_ context.Context, id uuid.UUID) (*fulfillment.Fulfillment, error) {
	if f, ok := r.s.fulfillments[id]; ok {
		return f, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fulfillmentRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*fulfillment.Fulfillment, error) {
	return r.FindByID(ctx, id)
}

func (r *fulfillmentRepo) findByOrder(orderID uuid.UUID) []*fulfillment.Fulfillment {
	out := make([]*fulfillment.Fulfillment, 0)
	for _, id := range r.s.fulfillOrder {
		f := r.s.fulfillments[id]
		if f.OrderID == orderID {
			out = append(out, f)
		}
	}
	return out
}

func (r *fulfillmentRepo) FindByOrder(_ context.Context, orderID uuid.UUID) ([]*fulfillment.Fulfillment, error) {
	return r.findByOrder(orderID), nil
}

func (r *fulfillmentRepo) FindByOrderForUpdate(_ context.Context, orderID uuid.UUID) ([]*fulfillment.Fulfillment, error) {
	return r.findByOrder(orderID), nil
}

func (r *fulfillmentRepo) FindByShipment(_ context.Context, shipmentID uuid.UUID) ([]*fulfillment.Fulfillment, error) {
	out := make([]*fulfillment.Fulfillment, 0)
	for _, id := range r.s.fulfillOrder {
		f := r.s.fulfillments[id]
		if f.ShipmentID != nil && *f.ShipmentID == shipmentID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *fulfillmentRepo) Save(_ context.Context, f *fulfillment.Fulfillment) error {
	if _, ok := r.s.fulfillments[f.ID]; !ok {
		r.s.fulfillOrder = append(r.s.fulfillOrder, f.ID)
	}
	r.s.fulfillments[f.ID] = f
	return nil
}

func (r *fulfillmentRepo) SaveWithLock(ctx context.Context, f *fulfillment.Fulfillment) error {
	return r.Save(ctx, f)
}

// --- picks ---

type pickRepo struct{ s *Store }

func (r *pickRepo) FindByID(_ context.Context, id uuid.UUID) (*fulfillment.Pick, error) {
	if p, ok := r.s.picks[id]; ok {
		return p, nil
	}
	return nil, shared.ErrNotFound
}

func (r *pickRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*fulfillment.Pick, error) {
	return r.FindByID(ctx, id)
}

func (r *pickRepo) FindByFulfillment(_ context.Context, fulfillmentID uuid.UUID) (*fulfillment.Pick, error) {
	for _, p := range r.s.picks {
		if p.FulfillmentID == fulfillmentID {
			return p, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *pickRepo) Save(_ context.Context, p *fulfillment.Pick) error {
	r.s.picks[p.ID] = p
	return nil
}

func (r *pickRepo) SaveWithLock(ctx context.Context, p *fulfillment.Pick) error {
	return r.Save(ctx, p)
}

// --- invoices ---

type invoiceRepo struct{ s *Store }

func (r *invoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*billing.Invoice, error) {
	if inv, ok := r.s.invoices[id]; ok {
		return inv, nil
	}
	return nil, shared.ErrNotFound
}

func (r *invoiceRepo) FindByNumber(_ context.Context, number string) (*billing.Invoice, error) {
	for _, inv := range r.s.invoices {
		if inv.Number == number {
			return inv, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *invoiceRepo) FindByFulfillment(_ context.Context, fulfillmentID uuid.UUID) ([]*billing.Invoice, error) {
	out := make([]*billing.Invoice, 0)
	for _, inv := range r.s.invoices {
		if inv.FulfillmentID != nil && *inv.FulfillmentID == fulfillmentID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *invoiceRepo) FindByOrder(_ context.Context, orderID uuid.UUID) ([]*billing.Invoice, error) {
	out := make([]*billing.Invoice, 0)
	for _, inv := range r.s.invoices {
		if inv.OrderID != nil && *inv.OrderID == orderID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *invoiceRepo) Save(_ context.Context, inv *billing.Invoice) error {
	r.s.invoices[inv.ID] = inv
	return nil
}
