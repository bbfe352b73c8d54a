package purchasing

import (
	"testing"
	"time"

	"github.com/dirac/fulfillment/internal/domain/shared/valueobject"
	"github.com/dirac/fulfillment/internal/domain/warehouse"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestWarehouses(t *testing.T) (*warehouse.Warehouse, *warehouse.Warehouse) {
	t.Helper()
	supplier, err := warehouse.NewWarehouse("SUP-01", "Supplier", false, 0)
	require.NoError(t, err)
	owned, err := warehouse.NewWarehouse("LDN-01", "London", true, 1)
	require.NoError(t, err)
	return supplier, owned
}

func createTestOrder(t *testing.T) *PurchaseOrder {
	t.Helper()
	supplier, owned := createTestWarehouses(t)
	po, err := NewPurchaseOrder("PO-2026-001", supplier, owned, valueobject.GBP)
	require.NoError(t, err)
	return po
}

func TestNewPurchaseOrder(t *testing.T) {
	supplier, owned := createTestWarehouses(t)

	t.Run("valid purchase order", func(t *testing.T) {
		po, err := NewPurchaseOrder("PO-001", supplier, owned, valueobject.GBP)
		require.NoError(t, err)
		assert.Equal(t, "PO-001", po.Reference)
		assert.Equal(t, supplier.ID, po.SourceWarehouseID)
		assert.Equal(t, owned.ID, po.DestinationWarehouseID)
		assert.Equal(t, valueobject.GBP, po.Currency)
		assert.Empty(t, po.Items)
	})

	t.Run("defaults currency", func(t *testing.T) {
		po, err := NewPurchaseOrder("PO-002", supplier, owned, "")
		require.NoError(t, err)
		assert.Equal(t, valueobject.DefaultCurrency, po.Currency)
	})

	t.Run("rejects owned source", func(t *testing.T) {
		_, err := NewPurchaseOrder("PO-003", owned, owned, valueobject.GBP)
		assert.Error(t, err)
	})

	t.Run("rejects non-owned destination", func(t *testing.T) {
		_, err := NewPurchaseOrder("PO-004", supplier, supplier, valueobject.GBP)
		assert.Error(t, err)
	})

	t.Run("rejects empty reference", func(t *testing.T) {
		_, err := NewPurchaseOrder("", supplier, owned, valueobject.GBP)
		assert.Error(t, err)
	})
}

func TestPurchaseOrder_AddItem(t *testing.T) {
	po := createTestOrder(t)
	variantID := uuid.New()

	t.Run("adds draft item", func(t *testing.T) {
		item, err := po.AddItem(variantID, 10, decimal.NewFromInt(500))
		require.NoError(t, err)
		assert.Equal(t, ItemStatusDraft, item.Status)
		assert.Equal(t, 10, item.QuantityOrdered)
		assert.Equal(t, 0, item.QuantityReceived)
		assert.Equal(t, 0, item.QuantityAllocated)
		assert.Len(t, po.Items, 1)
	})

	t.Run("same variant can appear twice", func(t *testing.T) {
		_, err := po.AddItem(variantID, 5, decimal.NewFromInt(250))
		require.NoError(t, err)
		assert.Len(t, po.Items, 2)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := po.AddItem(variantID, 0, decimal.NewFromInt(100))
		assert.Error(t, err)
	})
}

func TestPurchaseOrderItem_Confirm(t *testing.T) {
	po := createTestOrder(t)
	item, err := po.AddItem(uuid.New(), 10, decimal.NewFromInt(500))
	require.NoError(t, err)

	t.Run("confirm draft item", func(t *testing.T) {
		require.NoError(t, item.Confirm())
		assert.Equal(t, ItemStatusConfirmed, item.Status)
		require.NotNil(t, item.ConfirmedAt)
	})

	t.Run("cannot confirm twice", func(t *testing.T) {
		assert.Error(t, item.Confirm())
	})
}

func TestPurchaseOrderItem_RecordReceipt(t *testing.T) {
	t.Run("partial then full receipt", func(t *testing.T) {
		po := createTestOrder(t)
		item, _ := po.AddItem(uuid.New(), 20, decimal.NewFromInt(1000))
		require.NoError(t, item.Confirm())

		require.NoError(t, item.RecordReceipt(12))
		assert.Equal(t, ItemStatusPartiallyReceived, item.Status)
		assert.Equal(t, 12, item.QuantityReceived)

		require.NoError(t, item.RecordReceipt(8))
		assert.Equal(t, ItemStatusReceived, item.Status)
		assert.Equal(t, 20, item.QuantityReceived)
	})

	t.Run("rejects receipt on draft item", func(t *testing.T) {
		po := createTestOrder(t)
		item, _ := po.AddItem(uuid.New(), 20, decimal.NewFromInt(1000))
		assert.Error(t, item.RecordReceipt(5))
	})

	t.Run("rejects receipt on fully received item", func(t *testing.T) {
		po := createTestOrder(t)
		item, _ := po.AddItem(uuid.New(), 5, decimal.NewFromInt(100))
		require.NoError(t, item.Confirm())
		require.NoError(t, item.RecordReceipt(5))
		assert.Error(t, item.RecordReceipt(1))
	})
}

func TestPurchaseOrderItem_AvailableQuantity(t *testing.T) {
	po := createTestOrder(t)
	item, _ := po.AddItem(uuid.New(), 20, decimal.NewFromInt(1000))
	require.NoError(t, item.Confirm())

	t.Run("starts at ordered quantity", func(t *testing.T) {
		assert.Equal(t, 20, item.AvailableQuantity())
	})

	t.Run("sourcing reduces availability", func(t *testing.T) {
		require.NoError(t, item.ReserveSource(12))
		assert.Equal(t, 8, item.AvailableQuantity())
		assert.Equal(t, 12, item.QuantityAllocated)
	})

	t.Run("cannot source beyond availability", func(t *testing.T) {
		assert.Error(t, item.ReserveSource(9))
	})

	t.Run("processed negative adjustment reduces availability", func(t *testing.T) {
		adj, err := NewAdjustment(item.ID, -2, ReasonShortDelivery, true, "")
		require.NoError(t, err)
		require.NoError(t, adj.MarkProcessed())
		item.Adjustments = append(item.Adjustments, *adj)
		assert.Equal(t, 6, item.AvailableQuantity())
	})

	t.Run("unprocessed adjustment does not count", func(t *testing.T) {
		adj, err := NewAdjustment(item.ID, -3, ReasonShrinkage, false, "")
		require.NoError(t, err)
		item.Adjustments = append(item.Adjustments, *adj)
		assert.Equal(t, 6, item.AvailableQuantity())
		assert.True(t, item.HasUnprocessedAdjustments())
	})

	t.Run("floors at zero", func(t *testing.T) {
		adj, err := NewAdjustment(item.ID, -10, ReasonShrinkage, false, "")
		require.NoError(t, err)
		require.NoError(t, adj.MarkProcessed())
		item.Adjustments = append(item.Adjustments, *adj)
		assert.Equal(t, 0, item.AvailableQuantity())
	})

	t.Run("releasing sourced quantity restores availability", func(t *testing.T) {
		require.NoError(t, item.ReleaseSource(12))
		assert.Equal(t, 8, item.AvailableQuantity())
	})
}

func TestPurchaseOrderItem_UnitPrice(t *testing.T) {
	t.Run("base unit price", func(t *testing.T) {
		po := createTestOrder(t)
		item, _ := po.AddItem(uuid.New(), 20, decimal.NewFromInt(1000))
		assert.True(t, item.UnitPrice().Equal(decimal.NewFromInt(50)))
	})

	t.Run("supplier credit keeps unit price", func(t *testing.T) {
		po := createTestOrder(t)
		item, _ := po.AddItem(uuid.New(), 20, decimal.NewFromInt(1000))
		adj, _ := NewAdjustment(item.ID, -2, ReasonShortDelivery, true, "")
		require.NoError(t, adj.MarkProcessed())
		item.Adjustments = append(item.Adjustments, *adj)
		// 900 over 18 units
		assert.True(t, item.UnitPrice().Equal(decimal.NewFromInt(50)))
	})

	t.Run("absorbed loss raises unit price", func(t *testing.T) {
		po := createTestOrder(t)
		item, _ := po.AddItem(uuid.New(), 20, decimal.NewFromInt(1000))
		adj, _ := NewAdjustment(item.ID, -4, ReasonShrinkage, false, "")
		require.NoError(t, adj.MarkProcessed())
		item.Adjustments = append(item.Adjustments, *adj)
		// 1000 over 16 units
		assert.True(t, item.UnitPrice().Equal(decimal.NewFromFloat(62.5)))
	})
}

func TestPurchaseOrderItem_AttachShipment(t *testing.T) {
	po := createTestOrder(t)
	item, _ := po.AddItem(uuid.New(), 10, decimal.NewFromInt(500))
	shipmentID := uuid.New()

	require.NoError(t, item.AttachShipment(shipmentID))
	require.NotNil(t, item.ShipmentID)
	assert.Equal(t, shipmentID, *item.ShipmentID)

	t.Run("idempotent for same shipment", func(t *testing.T) {
		assert.NoError(t, item.AttachShipment(shipmentID))
	})

	t.Run("rejects a second shipment", func(t *testing.T) {
		assert.Error(t, item.AttachShipment(uuid.New()))
	})
}

func TestAdjustment_MarkProcessed(t *testing.T) {
	adj, err := NewAdjustment(uuid.New(), -3, ReasonShrinkage, false, "damaged in transit")
	require.NoError(t, err)
	assert.False(t, adj.IsProcessed())

	require.NoError(t, adj.MarkProcessed())
	assert.True(t, adj.IsProcessed())
	assert.WithinDuration(t, time.Now(), *adj.ProcessedAt, time.Second)

	assert.Error(t, adj.MarkProcessed())
}

func TestAdjustment_Validation(t *testing.T) {
	t.Run("rejects zero change", func(t *testing.T) {
		_, err := NewAdjustment(uuid.New(), 0, ReasonShrinkage, false, "")
		assert.Error(t, err)
	})

	t.Run("rejects unknown reason", func(t *testing.T) {
		_, err := NewAdjustment(uuid.New(), -1, AdjustmentReason("BAD"), false, "")
		assert.Error(t, err)
	})
}
