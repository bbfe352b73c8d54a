package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	allocationapp "github.com/dirac/fulfillment/internal/application/allocation"
	orderapp "github.com/dirac/fulfillment/internal/application/order"
	purchasingapp "github.com/dirac/fulfillment/internal/application/purchasing"
	"github.com/dirac/fulfillment/internal/domain/allocation"
	"github.com/dirac/fulfillment/internal/domain/purchasing"
	"github.com/dirac/fulfillment/internal/domain/shared/valueobject"
	"github.com/dirac/fulfillment/internal/domain/warehouse"
	"github.com/dirac/fulfillment/internal/testsupport/memory"
)

type purchaseOrderHandlerEnv struct {
	engine       *gin.Engine
	store        *memory.Store
	poService    *purchasingapp.PurchaseOrderService
	orderService *orderapp.OrderService
	owned        *warehouse.Warehouse
	supplier     *warehouse.Warehouse
}

func newPurchaseOrderTestServer(t *testing.T) *purchaseOrderHandlerEnv {
	t.Helper()
	store := memory.NewStore()
	logger := zap.NewNop()
	ctx := context.Background()

	owned, err := warehouse.NewWarehouse("LDN", "London", true, 1)
	require.NoError(t, err)
	supplier, err := warehouse.NewWarehouse("SUP", "Supplier", false, 0)
	require.NoError(t, err)
	require.NoError(t, store.Warehouses().Save(ctx, owned))
	require.NoError(t, store.Warehouses().Save(ctx, supplier))

	allocScope := allocationapp.NewNoOpTransactionScope(
		store.Stocks(), store.Warehouses(), store.Allocations(), store.Items(), store.Orders())
	allocService := allocationapp.NewAllocationService(allocScope, logger)

	gate, err := allocation.NewConfirmationGate(allocation.GateOnConfirmed)
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

	engine := gin.New()
	api := engine.Group("/api/v1")
	NewPurchaseOrderHandler(poService).RegisterRoutes(api)

	return &purchaseOrderHandlerEnv{
		engine:       engine,
		store:        store,
		poService:    poService,
		orderService: orderService,
		owned:        owned,
		supplier:     supplier,
	}
}

func TestPurchaseOrderHandler_ConfirmItem(t *testing.T) {
	t.Run("responds with the orders affected by the new coverage", func(t *testing.T) {
		env := newPurchaseOrderTestServer(t)
		ctx := context.Background()
		variantID := uuid.New()

		po, err := env.poService.CreatePurchaseOrder(ctx, purchasingapp.CreatePurchaseOrderCommand{
			Reference:              "PO-H1",
			SourceWarehouseID:      env.supplier.ID,
			DestinationWarehouseID: env.owned.ID,
			Currency:               valueobject.GBP,
			Items: []purchasingapp.CreatePurchaseOrderItemInput{
				{VariantID: variantID, Quantity: 6, TotalPrice: decimal.NewFromInt(60)},
			},
		})
		require.NoError(t, err)
		item := po.Items[0]
		_, err = env.poService.ConfirmItem(ctx, item.ID)
		require.NoError(t, err)

		ord, err := env.orderService.CreateOrder(ctx, orderapp.CreateOrderCommand{
			Reference:    "ORD-H1",
			CustomerName: "Dirac Ltd",
			Currency:     valueobject.GBP,
			Lines:        []orderapp.CreateOrderLine{{VariantID: variantID, Quantity: 6, UnitPrice: decimal.NewFromInt(100)}},
		})
		require.NoError(t, err)

		adj, err := env.poService.CreateAdjustment(ctx, item.ID, -2, purchasing.ReasonShrinkage, false, "")
		require.NoError(t, err)
		require.NoError(t, env.poService.ProcessAdjustment(ctx, adj.ID))

		replacement, err := env.poService.AddItem(ctx, po.ID, purchasingapp.CreatePurchaseOrderItemInput{
			VariantID: variantID, Quantity: 3, TotalPrice: decimal.NewFromInt(30),
		})
		require.NoError(t, err)

		w := doJSON(t, env.engine, http.MethodPost, "/api/v1/purchase-order-items/"+replacement.ID.String()+"/confirm", nil)
		require.Equal(t, http.StatusOK, w.Code)

		data := decodeResponse(t, w).Data.(map[string]interface{})
		assert.Equal(t, replacement.ID.String(), data["item_id"])
		affected, ok := data["affected_order_ids"].([]interface{})
		require.True(t, ok)
		require.Len(t, affected, 1)
		assert.Equal(t, ord.ID.String(), affected[0])
	})

	t.Run("rejects a malformed item ID", func(t *testing.T) {
		env := newPurchaseOrderTestServer(t)
		w := doJSON(t, env.engine, http.MethodPost, "/api/v1/purchase-order-items/not-a-uuid/confirm", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
