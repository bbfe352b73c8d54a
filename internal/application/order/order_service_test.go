package order_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	allocationapp "github.com/dirac/fulfillment/internal/application/allocation"
	orderapp "github.com/dirac/fulfillment/internal/application/order"
	purchasingapp "github.com/dirac/fulfillment/internal/application/purchasing"
	"github.com/dirac/fulfillment/internal/domain/allocation"
	"github.com/dirac/fulfillment/internal/domain/order"
	"github.com/dirac/fulfillment/internal/domain/purchasing"
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/dirac/fulfillment/internal/domain/shared/valueobject"
	"github.com/dirac/fulfillment/internal/domain/shipping"
	"github.com/dirac/fulfillment/internal/domain/warehouse"
	"github.com/dirac/fulfillment/internal/testsupport/memory"
)

type testEnv struct {
	store          *memory.Store
	orderService   *orderapp.OrderService
	allocService   *allocationapp.AllocationService
	poService      *purchasingapp.PurchaseOrderService
	receiptService *purchasingapp.ReceiptService

	owned    *warehouse.Warehouse
	owned2   *warehouse.Warehouse
	supplier *warehouse.Warehouse

	shipmentSeq int
	poSeq       int
}

func newTestEnv(t *testing.T, mode allocation.GateMode) *testEnv {
	t.Helper()
	store := memory.NewStore()
	logger := zap.NewNop()
	ctx := context.Background()

	owned, err := warehouse.NewWarehouse("LDN", "London", true, 1)
	require.NoError(t, err)
	owned2, err := warehouse.NewWarehouse("MCR", "Manchester", true, 2)
	require.NoError(t, err)
	supplier, err := warehouse.NewWarehouse("SUP", "Supplier", false, 0)
	require.NoError(t, err)
	require.NoError(t, store.Warehouses().Save(ctx, owned))
	require.NoError(t, store.Warehouses().Save(ctx, owned2))
	require.NoError(t, store.Warehouses().Save(ctx, supplier))

	allocScope := allocationapp.NewNoOpTransactionScope(
		store.Stocks(), store.Warehouses(), store.Allocations(), store.Items(), store.Orders())
	allocService := allocationapp.NewAllocationService(allocScope, logger)

	gate, err := allocation.NewConfirmationGate(mode)
	require.NoError(t, err)
	orderScope := orderapp.NewNoOpTransactionScope(
		store.Orders(), store.Allocations(), store.Stocks(), store.Warehouses(),
		store.Items(), store.PurchaseOrders(), store.Fulfillments(), store.Picks(), store.Invoices())
	orderService := orderapp.NewOrderService(orderScope, allocService, gate, logger)

	purchScope := purchasingapp.NewNoOpTransactionScope(
		store.PurchaseOrders(), store.Items(), store.Adjustments(), store.Receipts(),
		store.Shipments(), store.Warehouses(), store.Stocks(), store.Units(),
		store.Allocations(), store.Orders(), store.Fulfillments(), store.Picks(),
		store.Invoices())
	poService := purchasingapp.NewPurchaseOrderService(purchScope, allocService, orderService, logger)
	receiptService := purchasingapp.NewReceiptService(purchScope, orderService, logger)

	return &testEnv{
		store:          store,
		orderService:   orderService,
		allocService:   allocService,
		poService:      poService,
		receiptService: receiptService,
		owned:          owned,
		owned2:         owned2,
		supplier:       supplier,
	}
}

// confirmedItem raises a confirmed purchase order item for the variant,
// destined for the given owned warehouse
func (e *testEnv) confirmedItem(t *testing.T, variantID uuid.UUID, quantity int, destination *warehouse.Warehouse, totalPrice decimal.Decimal) *purchasing.PurchaseOrderItem {
	t.Helper()
	ctx := context.Background()
	e.poSeq++
	po, err := e.poService.CreatePurchaseOrder(ctx, purchasingapp.CreatePurchaseOrderCommand{
		Reference:              fmt.Sprintf("PO-%d", e.poSeq),
		SourceWarehouseID:      e.supplier.ID,
		DestinationWarehouseID: destination.ID,
		Currency:               valueobject.GBP,
		Items: []purchasingapp.CreatePurchaseOrderItemInput{
			{VariantID: variantID, Quantity: quantity, TotalPrice: totalPrice},
		},
	})
	require.NoError(t, err)
	item := &po.Items[0]
	_, err = e.poService.ConfirmItem(ctx, item.ID)
	require.NoError(t, err)
	return item
}

// receivedStock confirms and fully receives an item so the destination
// warehouse holds arrived units
func (e *testEnv) receivedStock(t *testing.T, variantID uuid.UUID, quantity int, destination *warehouse.Warehouse) *purchasing.PurchaseOrderItem {
	t.Helper()
	item := e.confirmedItem(t, variantID, quantity, destination, decimal.NewFromInt(int64(quantity*10)))
	e.receiveItem(t, item, quantity)
	return item
}

// receiveItem runs the receipt protocol for one item, checking in the
// given quantity
func (e *testEnv) receiveItem(t *testing.T, item *purchasing.PurchaseOrderItem, quantity int) {
	t.Helper()
	ctx := context.Background()
	e.shipmentSeq++
	shipment, err := shipping.NewShipment(fmt.Sprintf("SHP-%d", e.shipmentSeq), shipping.DirectionInbound, e.supplier.ID)
	require.NoError(t, err)
	require.NoError(t, e.store.Shipments().Save(ctx, shipment))
	require.NoError(t, e.poService.AttachShipment(ctx, item.ID, shipment.ID))

	receipt, err := e.receiptService.StartReceipt(ctx, shipment.ID, "tester")
	require.NoError(t, err)
	if quantity > 0 {
		require.NoError(t, e.receiptService.CheckIn(ctx, receipt.ID, item.ID, quantity))
	}
	require.NoError(t, e.receiptService.FinishReceipt(ctx, receipt.ID))
}

func (e *testEnv) createOrder(t *testing.T, reference string, deposit decimal.Decimal, lines ...orderapp.CreateOrderLine) *order.Order {
	t.Helper()
	ord, err := e.orderService.CreateOrder(context.Background(), orderapp.CreateOrderCommand{
		Reference:     reference,
		CustomerName:  "Dirac Ltd",
		Currency:      valueobject.GBP,
		DepositAmount: deposit,
		Lines:         lines,
	})
	require.NoError(t, err)
	return ord
}

func TestOrderService_CreateOrder(t *testing.T) {
	t.Run("allocates every line on creation", func(t *testing.T) {
		env := newTestEnv(t, allocation.GateOnConfirmed)
		ctx := context.Background()
		variantID := uuid.New()
		env.receivedStock(t, variantID, 10, env.owned)

		ord := env.createOrder(t, "ORD-1", decimal.Zero,
			orderapp.CreateOrderLine{VariantID: variantID, Quantity: 6, UnitPrice: decimal.NewFromInt(100)})

		allocs, err := env.store.Allocations().FindByOrderLine(ctx, ord.Lines[0].ID)
		require.NoError(t, err)
		require.Len(t, allocs, 1)
		assert.Equal(t, 6, allocs[0].Quantity)
		assert.True(t, allocs[0].IsFullySourced())

		stock, err := env.store.Stocks().FindByWarehouseAndVariant(ctx, env.owned.ID, variantID)
		require.NoError(t, err)
		assert.Equal(t, 10, stock.Quantity)
		assert.Equal(t, 6, stock.QuantityAllocated)
	})

	t.Run("insufficient stock blocks creation", func(t *testing.T) {
		env := newTestEnv(t, allocation.GateOnConfirmed)
		ctx := context.Background()
		variantID := uuid.New()
		env.receivedStock(t, variantID, 4, env.owned)

		_, err := env.orderService.CreateOrder(ctx, orderapp.CreateOrderCommand{
			Reference: "ORD-1",
			Currency:  valueobject.GBP,
			Lines:     []orderapp.CreateOrderLine{{VariantID: variantID, Quantity: 5, UnitPrice: decimal.NewFromInt(100)}},
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)

		_, err = env.store.Orders().FindByReference(ctx, "ORD-1")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("duplicate reference rejected", func(t *testing.T) {
		env := newTestEnv(t, allocation.GateOnConfirmed)
		variantID := uuid.New()
		env.receivedStock(t, variantID, 10, env.owned)

		env.createOrder(t, "ORD-1", decimal.Zero,
			orderapp.CreateOrderLine{VariantID: variantID, Quantity: 2, UnitPrice: decimal.NewFromInt(100)})
		_, err := env.orderService.CreateOrder(context.Background(), orderapp.CreateOrderCommand{
			Reference: "ORD-1",
			Currency:  valueobject.GBP,
			Lines:     []orderapp.CreateOrderLine{{VariantID: variantID, Quantity: 1, UnitPrice: decimal.NewFromInt(100)}},
		})
		require.Error(t, err)
	})
}

// Ten demanded, four on the shelf from a received purchase and six inbound
// on a confirmed one. Allocation spans both; the gate's verdict depends on
// its mode.
func TestOrderService_TryConfirm_SplitSourcing(t *testing.T) {
	setup := func(t *testing.T, mode allocation.GateMode) (*testEnv, *order.Order, *purchasing.PurchaseOrderItem) {
		env := newTestEnv(t, mode)
		variantID := uuid.New()
		env.receivedStock(t, variantID, 4, env.owned)
		inbound := env.confirmedItem(t, variantID, 6, env.owned, decimal.NewFromInt(60))

		ord := env.createOrder(t, "ORD-1", decimal.Zero,
			orderapp.CreateOrderLine{VariantID: variantID, Quantity: 10, UnitPrice: decimal.NewFromInt(100)})
		return env, ord, inbound
	}

	t.Run("confirmed mode accepts inbound sources", func(t *testing.T) {
		env, ord, _ := setup(t, allocation.GateOnConfirmed)
		ctx := context.Background()

		confirmed, err := env.orderService.TryConfirm(ctx, ord.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusUnfulfilled, confirmed.Status)

		fulfillments, err := env.store.Fulfillments().FindByOrder(ctx, ord.ID)
		require.NoError(t, err)
		require.Len(t, fulfillments, 1)
		assert.Equal(t, env.owned.ID, fulfillments[0].WarehouseID)
		require.Len(t, fulfillments[0].Lines, 1)
		assert.Equal(t, 10, fulfillments[0].Lines[0].Quantity)

		pick, err := env.store.Picks().FindByFulfillment(ctx, fulfillments[0].ID)
		require.NoError(t, err)
		require.Len(t, pick.Items, 1)
		assert.Equal(t, 10, pick.Items[0].QuantityRequired)

		require.NotNil(t, fulfillments[0].ProformaInvoiceID)
		invoice, err := env.store.Invoices().FindByID(ctx, *fulfillments[0].ProformaInvoiceID)
		require.NoError(t, err)
		assert.True(t, invoice.Amount.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("received mode blocks until goods arrive", func(t *testing.T) {
		env, ord, inbound := setup(t, allocation.GateOnReceived)
		ctx := context.Background()

		_, err := env.orderService.TryConfirm(ctx, ord.ID)
		require.Error(t, err)
		assert.ErrorIs(t, err, allocation.ErrAllocationUnsourced)

		env.receiveItem(t, inbound, 6)

		// The receipt's gate sweep already confirmed the order.
		reloaded, err := env.store.Orders().FindByID(ctx, ord.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusUnfulfilled, reloaded.Status)

		_, err = env.orderService.TryConfirm(ctx, ord.ID)
		require.Error(t, err)

		// Receipt moved the supplier-side allocation onto the owned stock.
		stock, err := env.store.Stocks().FindByWarehouseAndVariant(ctx, env.owned.ID, ord.Lines[0].VariantID)
		require.NoError(t, err)
		assert.Equal(t, 10, stock.Quantity)
		assert.Equal(t, 10, stock.QuantityAllocated)
	})

	t.Run("under-allocated order never confirms", func(t *testing.T) {
		env := newTestEnv(t, allocation.GateOnConfirmed)
		ctx := context.Background()
		variantID := uuid.New()
		env.receivedStock(t, variantID, 10, env.owned)

		ord := env.createOrder(t, "ORD-1", decimal.Zero,
			orderapp.CreateOrderLine{VariantID: variantID, Quantity: 4, UnitPrice: decimal.NewFromInt(100)})
		require.NoError(t, env.allocService.DeallocateLine(ctx, allocation.LineRef{
			OrderID:     ord.ID,
			OrderLineID: ord.Lines[0].ID,
			VariantID:   variantID,
			Quantity:    ord.Lines[0].Quantity,
			CreatedAt:   ord.Lines[0].CreatedAt,
		}, 2))

		_, err := env.orderService.TryConfirm(ctx, ord.ID)
		assert.ErrorIs(t, err, allocation.ErrUnderAllocated)
	})

	t.Run("already confirmed is rejected", func(t *testing.T) {
		env, ord, _ := setup(t, allocation.GateOnConfirmed)
		ctx := context.Background()
		_, err := env.orderService.TryConfirm(ctx, ord.ID)
		require.NoError(t, err)
		_, err = env.orderService.TryConfirm(ctx, ord.ID)
		require.Error(t, err)
	})
}

// A £1000 order with a £100 deposit split across two warehouses 600/400
// credits the deposit 60/40 and invoices the remainder 540/360.
func TestOrderService_TryConfirm_DepositSplit(t *testing.T) {
	env := newTestEnv(t, allocation.GateOnConfirmed)
	ctx := context.Background()
	variantA := uuid.New()
	variantB := uuid.New()
	env.receivedStock(t, variantA, 6, env.owned)
	env.receivedStock(t, variantB, 4, env.owned2)

	ord := env.createOrder(t, "ORD-1", decimal.NewFromInt(100),
		orderapp.CreateOrderLine{VariantID: variantA, Quantity: 6, UnitPrice: decimal.NewFromInt(100)},
		orderapp.CreateOrderLine{VariantID: variantB, Quantity: 4, UnitPrice: decimal.NewFromInt(100)})

	_, err := env.orderService.TryConfirm(ctx, ord.ID)
	require.NoError(t, err)

	fulfillments, err := env.store.Fulfillments().FindByOrder(ctx, ord.ID)
	require.NoError(t, err)
	require.Len(t, fulfillments, 2)

	first, second := fulfillments[0], fulfillments[1]
	assert.True(t, first.Total().Equal(decimal.NewFromInt(600)))
	assert.True(t, first.DepositAllocated.Equal(decimal.NewFromInt(60)))
	assert.True(t, second.Total().Equal(decimal.NewFromInt(400)))
	assert.True(t, second.DepositAllocated.Equal(decimal.NewFromInt(40)))

	firstInvoice, err := env.store.Invoices().FindByID(ctx, *first.ProformaInvoiceID)
	require.NoError(t, err)
	secondInvoice, err := env.store.Invoices().FindByID(ctx, *second.ProformaInvoiceID)
	require.NoError(t, err)
	assert.True(t, firstInvoice.Amount.Equal(decimal.NewFromInt(540)))
	assert.True(t, secondInvoice.Amount.Equal(decimal.NewFromInt(360)))
}

func TestOrderService_SetDeposit(t *testing.T) {
	env := newTestEnv(t, allocation.GateOnConfirmed)
	ctx := context.Background()
	variantID := uuid.New()
	env.receivedStock(t, variantID, 5, env.owned)

	ord := env.createOrder(t, "ORD-1", decimal.Zero,
		orderapp.CreateOrderLine{VariantID: variantID, Quantity: 5, UnitPrice: decimal.NewFromInt(100)})

	require.NoError(t, env.orderService.SetDeposit(ctx, ord.ID, decimal.NewFromInt(50)))

	reloaded, err := env.store.Orders().FindByID(ctx, ord.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.DepositAmount.Equal(decimal.NewFromInt(50)))
	assert.True(t, reloaded.DepositRequired())

	err = env.orderService.SetDeposit(ctx, ord.ID, decimal.NewFromInt(-1))
	require.Error(t, err)
}
