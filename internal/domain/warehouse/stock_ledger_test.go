package warehouse

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestUnit(t *testing.T, warehouseID uuid.UUID, arrivedAt *time.Time) *Unit {
	t.Helper()
	unit, err := NewUnit(uuid.New(), warehouseID, uuid.New(), decimal.NewFromInt(10), decimal.NewFromInt(2))
	require.NoError(t, err)
	unit.ArrivedAt = arrivedAt
	return unit
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestStockLedger_ConsumeUnits(t *testing.T) {
	ledger := NewStockLedger()
	warehouseID := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("consumes oldest arrivals first", func(t *testing.T) {
		newest := createTestUnit(t, warehouseID, timePtr(base.Add(48*time.Hour)))
		oldest := createTestUnit(t, warehouseID, timePtr(base))
		middle := createTestUnit(t, warehouseID, timePtr(base.Add(24*time.Hour)))
		units := []*Unit{newest, oldest, middle}

		consumed, err := ledger.ConsumeUnits(units, 2, uuid.New())

		require.NoError(t, err)
		require.Len(t, consumed, 2)
		assert.Equal(t, oldest.ID, consumed[0].ID)
		assert.Equal(t, middle.ID, consumed[1].ID)
		assert.True(t, oldest.Consumed)
		assert.True(t, middle.Consumed)
		assert.False(t, newest.Consumed)
	})

	t.Run("skips already consumed units", func(t *testing.T) {
		first := createTestUnit(t, warehouseID, timePtr(base))
		second := createTestUnit(t, warehouseID, timePtr(base.Add(time.Hour)))
		require.NoError(t, first.Consume())

		consumed, err := ledger.ConsumeUnits([]*Unit{first, second}, 1, uuid.New())

		require.NoError(t, err)
		require.Len(t, consumed, 1)
		assert.Equal(t, second.ID, consumed[0].ID)
	})

	t.Run("fails with insufficient units as invariant violation", func(t *testing.T) {
		only := createTestUnit(t, warehouseID, timePtr(base))

		consumed, err := ledger.ConsumeUnits([]*Unit{only}, 2, uuid.New())

		require.Error(t, err)
		assert.Nil(t, consumed)
		assert.Contains(t, err.Error(), "unconsumed units")
		assert.False(t, only.Consumed, "no partial consumption on failure")
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := ledger.ConsumeUnits(nil, 0, uuid.New())
		require.Error(t, err)
	})
}

func TestStockLedger_ReceiveUnits(t *testing.T) {
	ledger := NewStockLedger()
	sourceID := uuid.New()
	ownedID := uuid.New()
	arrivedAt := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	t.Run("moves unconsumed units to the owned warehouse", func(t *testing.T) {
		a := createTestUnit(t, sourceID, nil)
		b := createTestUnit(t, sourceID, nil)

		received, err := ledger.ReceiveUnits([]*Unit{a, b}, 2, ownedID, arrivedAt)

		require.NoError(t, err)
		require.Len(t, received, 2)
		for _, u := range received {
			assert.Equal(t, ownedID, u.WarehouseID)
			require.NotNil(t, u.ArrivedAt)
			assert.Equal(t, arrivedAt, *u.ArrivedAt)
		}
	})

	t.Run("leaves consumed units attributed to the source warehouse", func(t *testing.T) {
		consumed := createTestUnit(t, sourceID, nil)
		require.NoError(t, consumed.Consume())
		free := createTestUnit(t, sourceID, nil)

		received, err := ledger.ReceiveUnits([]*Unit{consumed, free}, 2, ownedID, arrivedAt)

		require.NoError(t, err)
		require.Len(t, received, 1)
		assert.Equal(t, free.ID, received[0].ID)
		assert.Equal(t, sourceID, consumed.WarehouseID)
		assert.Nil(t, consumed.ArrivedAt)
	})

	t.Run("receives at most the requested quantity", func(t *testing.T) {
		units := []*Unit{
			createTestUnit(t, sourceID, nil),
			createTestUnit(t, sourceID, nil),
			createTestUnit(t, sourceID, nil),
		}

		received, err := ledger.ReceiveUnits(units, 2, ownedID, arrivedAt)

		require.NoError(t, err)
		assert.Len(t, received, 2)
		assert.Nil(t, units[2].ArrivedAt)
	})
}

func TestSortUnitsFIFO(t *testing.T) {
	warehouseID := uuid.New()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	notArrived := createTestUnit(t, warehouseID, nil)
	late := createTestUnit(t, warehouseID, timePtr(base.Add(time.Hour)))
	early := createTestUnit(t, warehouseID, timePtr(base))
	units := []*Unit{notArrived, late, early}

	SortUnitsFIFO(units)

	assert.Equal(t, early.ID, units[0].ID)
	assert.Equal(t, late.ID, units[1].ID)
	assert.Equal(t, notArrived.ID, units[2].ID, "units without arrival sort last")
}

func TestUnit_Lifecycle(t *testing.T) {
	t.Run("arrival is one-way", func(t *testing.T) {
		unit := createTestUnit(t, uuid.New(), nil)
		owned := uuid.New()

		require.NoError(t, unit.MarkArrived(owned, time.Now()))

		err := unit.MarkArrived(owned, time.Now())
		require.Error(t, err)
	})

	t.Run("consumed units count towards nothing", func(t *testing.T) {
		unit := createTestUnit(t, uuid.New(), nil)
		require.True(t, unit.IsCountable())

		require.NoError(t, unit.Consume())

		assert.False(t, unit.IsCountable())
		require.Error(t, unit.Consume())
	})

	t.Run("written off units cannot be consumed", func(t *testing.T) {
		unit := createTestUnit(t, uuid.New(), nil)

		require.NoError(t, unit.WriteOff())

		assert.False(t, unit.IsCountable())
		require.Error(t, unit.Consume())
	})

	t.Run("buy price is mutable until frozen", func(t *testing.T) {
		unit := createTestUnit(t, uuid.New(), nil)

		require.NoError(t, unit.UpdateBuyPrice(decimal.NewFromInt(12), decimal.NewFromInt(3)))
		unit.FreezePrice()

		err := unit.UpdateBuyPrice(decimal.NewFromInt(15), decimal.NewFromInt(3))
		require.Error(t, err)
		assert.Equal(t, "12", unit.BuyPrice.String())
	})
}

func TestCountCountable(t *testing.T) {
	warehouseID := uuid.New()
	a := createTestUnit(t, warehouseID, nil)
	b := createTestUnit(t, warehouseID, nil)
	c := createTestUnit(t, warehouseID, nil)
	require.NoError(t, b.Consume())
	require.NoError(t, c.WriteOff())

	assert.Equal(t, 1, CountCountable([]*Unit{a, b, c}))
}
