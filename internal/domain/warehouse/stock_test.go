package warehouse

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestWarehouse(t *testing.T, owned bool) *Warehouse {
	t.Helper()
	code := "WH-" + uuid.NewString()[:8]
	wh, err := NewWarehouse(code, "Test Warehouse", owned, 0)
	require.NoError(t, err)
	return wh
}

func createTestStock(t *testing.T, owned bool) *Stock {
	t.Helper()
	stock, err := NewStock(createTestWarehouse(t, owned), uuid.New())
	require.NoError(t, err)
	return stock
}

func TestNewStock(t *testing.T) {
	t.Run("creates stock for warehouse-variant pair", func(t *testing.T) {
		wh := createTestWarehouse(t, true)
		variantID := uuid.New()

		stock, err := NewStock(wh, variantID)

		require.NoError(t, err)
		assert.Equal(t, wh.ID, stock.WarehouseID)
		assert.Equal(t, variantID, stock.VariantID)
		assert.True(t, stock.WarehouseOwned)
		assert.Zero(t, stock.Quantity)
		assert.Zero(t, stock.QuantityAllocated)
	})

	t.Run("fails with nil warehouse", func(t *testing.T) {
		stock, err := NewStock(nil, uuid.New())

		require.Error(t, err)
		assert.Nil(t, stock)
	})

	t.Run("fails with nil variant ID", func(t *testing.T) {
		stock, err := NewStock(createTestWarehouse(t, true), uuid.Nil)

		require.Error(t, err)
		assert.Nil(t, stock)
	})
}

func TestStock_Reserve(t *testing.T) {
	t.Run("reserves available stock", func(t *testing.T) {
		stock := createTestStock(t, true)
		stock.Quantity = 10

		err := stock.Reserve(4)

		require.NoError(t, err)
		assert.Equal(t, 4, stock.QuantityAllocated)
		assert.Equal(t, 6, stock.AvailableQuantity())
	})

	t.Run("fails when request exceeds available quantity", func(t *testing.T) {
		stock := createTestStock(t, true)
		stock.Quantity = 10
		stock.QuantityAllocated = 8

		err := stock.Reserve(3)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "Insufficient stock")
		assert.Equal(t, 8, stock.QuantityAllocated)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		stock := createTestStock(t, true)
		stock.Quantity = 10

		require.Error(t, stock.Reserve(0))
		require.Error(t, stock.Reserve(-1))
	})

	t.Run("emits StockReserved event", func(t *testing.T) {
		stock := createTestStock(t, true)
		stock.Quantity = 10

		require.NoError(t, stock.Reserve(2))

		events := stock.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeStockReserved, events[0].EventType())
	})
}

func TestStock_Release(t *testing.T) {
	t.Run("releases a reservation", func(t *testing.T) {
		stock := createTestStock(t, true)
		stock.Quantity = 10
		require.NoError(t, stock.Reserve(6))

		err := stock.Release(4)

		require.NoError(t, err)
		assert.Equal(t, 2, stock.QuantityAllocated)
	})

	t.Run("fails to release more than allocated", func(t *testing.T) {
		stock := createTestStock(t, true)
		stock.Quantity = 10
		require.NoError(t, stock.Reserve(3))

		err := stock.Release(5)

		require.Error(t, err)
		assert.Equal(t, 3, stock.QuantityAllocated)
	})
}

func TestStock_ReserveReleaseRoundTrip(t *testing.T) {
	stock := createTestStock(t, true)
	stock.Quantity = 10
	before := stock.QuantityAllocated

	require.NoError(t, stock.Reserve(7))
	require.NoError(t, stock.Release(7))

	assert.Equal(t, before, stock.QuantityAllocated)
	assert.Equal(t, 10, stock.Quantity)
}

func TestStock_RecomputeFromUnits(t *testing.T) {
	t.Run("sets derived quantity for owned stock", func(t *testing.T) {
		stock := createTestStock(t, true)

		require.NoError(t, stock.RecomputeFromUnits(7))

		assert.Equal(t, 7, stock.Quantity)
	})

	t.Run("does not bump version when count is unchanged", func(t *testing.T) {
		stock := createTestStock(t, true)
		require.NoError(t, stock.RecomputeFromUnits(7))
		version := stock.Version

		require.NoError(t, stock.RecomputeFromUnits(7))

		assert.Equal(t, version, stock.Version)
	})

	t.Run("fails on non-owned stock", func(t *testing.T) {
		stock := createTestStock(t, false)

		err := stock.RecomputeFromUnits(7)

		require.Error(t, err)
	})
}

func TestStock_SetReportedQuantity(t *testing.T) {
	t.Run("sets upper bound on non-owned stock", func(t *testing.T) {
		stock := createTestStock(t, false)

		require.NoError(t, stock.SetReportedQuantity(120))

		assert.Equal(t, 120, stock.Quantity)
	})

	t.Run("fails on owned stock", func(t *testing.T) {
		stock := createTestStock(t, true)

		err := stock.SetReportedQuantity(120)

		require.Error(t, err)
	})
}
