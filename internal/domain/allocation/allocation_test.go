package allocation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestAllocation(t *testing.T, quantity int) *Allocation {
	t.Helper()
	a, err := NewAllocation(uuid.New(), uuid.New(), time.Now(), uuid.New(), uuid.New(), uuid.New(), quantity)
	require.NoError(t, err)
	return a
}

func TestNewAllocation(t *testing.T) {
	t.Run("valid allocation", func(t *testing.T) {
		a := createTestAllocation(t, 5)
		assert.Equal(t, 5, a.Quantity)
		assert.Empty(t, a.Sources)
		assert.Len(t, a.GetDomainEvents(), 1)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := NewAllocation(uuid.New(), uuid.New(), time.Now(), uuid.New(), uuid.New(), uuid.New(), 0)
		assert.Error(t, err)
	})
}

func TestAllocation_Sources(t *testing.T) {
	a := createTestAllocation(t, 10)
	itemA := uuid.New()
	itemB := uuid.New()

	t.Run("add source", func(t *testing.T) {
		_, err := a.AddSource(itemA, 6)
		require.NoError(t, err)
		assert.Equal(t, 6, a.SourcedQuantity())
		assert.Equal(t, 4, a.UnsourcedQuantity())
		assert.False(t, a.IsFullySourced())
	})

	t.Run("same item merges into one source", func(t *testing.T) {
		_, err := a.AddSource(itemA, 2)
		require.NoError(t, err)
		require.Len(t, a.Sources, 1)
		assert.Equal(t, 8, a.Sources[0].Quantity)
	})

	t.Run("coverage cannot exceed allocation quantity", func(t *testing.T) {
		_, err := a.AddSource(itemB, 3)
		assert.Error(t, err)
	})

	t.Run("fill to exactly full", func(t *testing.T) {
		_, err := a.AddSource(itemB, 2)
		require.NoError(t, err)
		assert.True(t, a.IsFullySourced())
	})
}

func TestAllocation_Decrease(t *testing.T) {
	t.Run("trims sources newest first", func(t *testing.T) {
		a := createTestAllocation(t, 10)
		itemA, itemB := uuid.New(), uuid.New()
		_, err := a.AddSource(itemA, 6)
		require.NoError(t, err)
		_, err = a.AddSource(itemB, 4)
		require.NoError(t, err)

		released, err := a.Decrease(5)
		require.NoError(t, err)
		assert.Equal(t, 5, a.Quantity)
		assert.Equal(t, 5, a.SourcedQuantity())
		assert.Equal(t, 4, released[itemB])
		assert.Equal(t, 1, released[itemA])
	})

	t.Run("decrease with no sources releases nothing", func(t *testing.T) {
		a := createTestAllocation(t, 10)
		released, err := a.Decrease(4)
		require.NoError(t, err)
		assert.Empty(t, released)
		assert.Equal(t, 6, a.Quantity)
	})

	t.Run("cannot decrease below zero", func(t *testing.T) {
		a := createTestAllocation(t, 3)
		_, err := a.Decrease(4)
		assert.Error(t, err)
	})
}

func TestAllocation_Split(t *testing.T) {
	a := createTestAllocation(t, 10)
	itemA, itemB := uuid.New(), uuid.New()
	_, err := a.AddSource(itemA, 6)
	require.NoError(t, err)
	_, err = a.AddSource(itemB, 4)
	require.NoError(t, err)

	destStock, destWarehouse := uuid.New(), uuid.New()
	moved, err := a.Split(7, destStock, destWarehouse)
	require.NoError(t, err)

	assert.Equal(t, 3, a.Quantity)
	assert.Equal(t, 7, moved.Quantity)
	assert.Equal(t, destStock, moved.StockID)
	assert.Equal(t, destWarehouse, moved.WarehouseID)
	assert.Equal(t, a.OrderLineID, moved.OrderLineID)
	assert.Equal(t, a.OrderLineCreatedAt, moved.OrderLineCreatedAt)

	// Sources carried newest first: all of itemB plus 3 of itemA
	assert.Equal(t, 3, a.SourcedQuantity())
	assert.Equal(t, 7, moved.SourcedQuantity())
	assert.True(t, a.IsFullySourced())
	assert.True(t, moved.IsFullySourced())

	t.Run("split quantity bounds", func(t *testing.T) {
		_, err := a.Split(3, destStock, destWarehouse)
		assert.Error(t, err)
		_, err = a.Split(0, destStock, destWarehouse)
		assert.Error(t, err)
	})
}

func TestAllocation_Repoint(t *testing.T) {
	a := createTestAllocation(t, 5)
	stockID, warehouseID := uuid.New(), uuid.New()
	require.NoError(t, a.Repoint(stockID, warehouseID))
	assert.Equal(t, stockID, a.StockID)
	assert.Equal(t, warehouseID, a.WarehouseID)
}
