package order

import (
	"testing"

	"github.com/dirac/fulfillment/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestOrder(t *testing.T) *Order {
	t.Helper()
	o, err := NewOrder("ORD-001", "Acme Ltd", valueobject.GBP)
	require.NoError(t, err)
	return o
}

func TestNewOrder(t *testing.T) {
	o := createTestOrder(t)
	assert.Equal(t, StatusUnconfirmed, o.Status)
	assert.False(t, o.DepositRequired())
	assert.True(t, o.TotalGross().IsZero())

	t.Run("rejects empty reference", func(t *testing.T) {
		_, err := NewOrder("", "Acme Ltd", valueobject.GBP)
		assert.Error(t, err)
	})
}

func TestOrder_AddLine(t *testing.T) {
	o := createTestOrder(t)

	line, err := o.AddLine(uuid.New(), 10, decimal.NewFromInt(25))
	require.NoError(t, err)
	assert.True(t, line.TotalGross().Equal(decimal.NewFromInt(250)))

	_, err = o.AddLine(uuid.New(), 4, decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.True(t, o.TotalGross().Equal(decimal.NewFromInt(450)))

	t.Run("rejects invalid lines", func(t *testing.T) {
		_, err := o.AddLine(uuid.Nil, 1, decimal.NewFromInt(1))
		assert.Error(t, err)
		_, err = o.AddLine(uuid.New(), 0, decimal.NewFromInt(1))
		assert.Error(t, err)
	})

	t.Run("no lines after confirmation", func(t *testing.T) {
		require.NoError(t, o.Confirm())
		_, err := o.AddLine(uuid.New(), 1, decimal.NewFromInt(1))
		assert.Error(t, err)
	})
}

func TestOrder_Confirm(t *testing.T) {
	o := createTestOrder(t)
	_, err := o.AddLine(uuid.New(), 2, decimal.NewFromInt(10))
	require.NoError(t, err)

	require.NoError(t, o.Confirm())
	assert.Equal(t, StatusUnfulfilled, o.Status)
	require.NotNil(t, o.ConfirmedAt)
	assert.True(t, o.Status.IsConfirmed())

	t.Run("cannot confirm twice", func(t *testing.T) {
		assert.Error(t, o.Confirm())
	})
}

func TestOrder_SetDeposit(t *testing.T) {
	o := createTestOrder(t)

	require.NoError(t, o.SetDeposit(decimal.NewFromInt(100)))
	assert.True(t, o.DepositRequired())

	require.NoError(t, o.SetDeposit(decimal.Zero))
	assert.False(t, o.DepositRequired())

	t.Run("rejects negative amount", func(t *testing.T) {
		assert.Error(t, o.SetDeposit(decimal.NewFromInt(-1)))
	})
}

func TestOrder_RecordFulfillmentProgress(t *testing.T) {
	o := createTestOrder(t)
	_, err := o.AddLine(uuid.New(), 2, decimal.NewFromInt(10))
	require.NoError(t, err)

	t.Run("requires confirmation", func(t *testing.T) {
		assert.Error(t, o.RecordFulfillmentProgress(0, 2))
	})

	require.NoError(t, o.Confirm())

	t.Run("none fulfilled", func(t *testing.T) {
		require.NoError(t, o.RecordFulfillmentProgress(0, 2))
		assert.Equal(t, StatusUnfulfilled, o.Status)
	})

	t.Run("partially fulfilled", func(t *testing.T) {
		require.NoError(t, o.RecordFulfillmentProgress(1, 2))
		assert.Equal(t, StatusPartiallyFulfilled, o.Status)
	})

	t.Run("fully fulfilled", func(t *testing.T) {
		require.NoError(t, o.RecordFulfillmentProgress(2, 2))
		assert.Equal(t, StatusFulfilled, o.Status)
	})
}
