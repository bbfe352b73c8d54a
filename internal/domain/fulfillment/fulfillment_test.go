package fulfillment

import (
	"testing"
	"time"

	"github.com/dirac/fulfillment/internal/domain/shipping"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestFulfillment(t *testing.T) *Fulfillment {
	t.Helper()
	f, err := NewFulfillment(uuid.New(), uuid.New())
	require.NoError(t, err)
	_, err = f.AddLine(uuid.New(), uuid.New(), 6, decimal.NewFromInt(100))
	require.NoError(t, err)
	_, err = f.AddLine(uuid.New(), uuid.New(), 2, decimal.NewFromInt(50))
	require.NoError(t, err)
	return f
}

func outboundShipment(t *testing.T, warehouseID uuid.UUID) *shipping.Shipment {
	t.Helper()
	s, err := shipping.NewShipment("OUT-"+uuid.NewString()[:8], shipping.DirectionOutbound, warehouseID)
	require.NoError(t, err)
	return s
}

func TestNewFulfillment(t *testing.T) {
	f := createTestFulfillment(t)
	assert.Equal(t, StatusWaitingForApproval, f.Status)
	assert.True(t, f.Total().Equal(decimal.NewFromInt(700)))
	assert.False(t, f.ProformaInvoicePaid)
	assert.True(t, f.DepositAllocated.IsZero())
}

func TestFulfillment_LinkShipment(t *testing.T) {
	t.Run("links outbound shipment from own warehouse", func(t *testing.T) {
		f := createTestFulfillment(t)
		s := outboundShipment(t, f.WarehouseID)
		require.NoError(t, f.LinkShipment(s))
		require.NotNil(t, f.ShipmentID)
		assert.Equal(t, s.ID, *f.ShipmentID)
	})

	t.Run("relinking the same shipment is a no-op", func(t *testing.T) {
		f := createTestFulfillment(t)
		s := outboundShipment(t, f.WarehouseID)
		require.NoError(t, f.LinkShipment(s))
		version := f.Version
		require.NoError(t, f.LinkShipment(s))
		assert.Equal(t, version, f.Version)
	})

	t.Run("a different shipment is rejected", func(t *testing.T) {
		f := createTestFulfillment(t)
		require.NoError(t, f.LinkShipment(outboundShipment(t, f.WarehouseID)))
		err := f.LinkShipment(outboundShipment(t, f.WarehouseID))
		assert.ErrorIs(t, err, ErrAlreadyLinked)
	})

	t.Run("wrong warehouse is rejected", func(t *testing.T) {
		f := createTestFulfillment(t)
		err := f.LinkShipment(outboundShipment(t, uuid.New()))
		assert.ErrorIs(t, err, ErrWrongWarehouse)
	})

	t.Run("inbound shipment is rejected", func(t *testing.T) {
		f := createTestFulfillment(t)
		inbound, err := shipping.NewShipment("IN-1", shipping.DirectionInbound, f.WarehouseID)
		require.NoError(t, err)
		assert.Error(t, f.LinkShipment(inbound))
	})
}

func TestFulfillment_MarkProformaPaid(t *testing.T) {
	f := createTestFulfillment(t)
	paidAt := time.Now()

	require.NoError(t, f.MarkProformaPaid(paidAt))
	assert.True(t, f.ProformaInvoicePaid)
	require.NotNil(t, f.ProformaPaidAt)

	t.Run("one-way and idempotent", func(t *testing.T) {
		version := f.Version
		require.NoError(t, f.MarkProformaPaid(time.Now()))
		assert.Equal(t, version, f.Version)
		assert.Equal(t, paidAt, *f.ProformaPaidAt)
	})
}

// The approval predicate must hold regardless of the order in which the
// three triggering facts arrive.
func TestFulfillment_AutoTransitionPredicate_AllOrderings(t *testing.T) {
	type step int
	const (
		completePick step = iota
		linkShipment
		payProforma
	)
	orderings := [][]step{
		{completePick, linkShipment, payProforma},
		{completePick, payProforma, linkShipment},
		{linkShipment, completePick, payProforma},
		{linkShipment, payProforma, completePick},
		{payProforma, completePick, linkShipment},
		{payProforma, linkShipment, completePick},
	}

	for _, ordering := range orderings {
		f := createTestFulfillment(t)
		pickCompleted := false

		for i, s := range ordering {
			switch s {
			case completePick:
				pickCompleted = true
			case linkShipment:
				require.NoError(t, f.LinkShipment(outboundShipment(t, f.WarehouseID)))
			case payProforma:
				require.NoError(t, f.MarkProformaPaid(time.Now()))
			}
			ready := f.CanAutoTransitionToFulfilled(pickCompleted, true)
			if i < len(ordering)-1 {
				assert.False(t, ready, "ordering %v fired early at step %d", ordering, i)
			} else {
				assert.True(t, ready, "ordering %v did not fire", ordering)
			}
		}
	}
}

func TestFulfillment_AutoTransitionPredicate(t *testing.T) {
	t.Run("no deposit required skips the payment fact", func(t *testing.T) {
		f := createTestFulfillment(t)
		require.NoError(t, f.LinkShipment(outboundShipment(t, f.WarehouseID)))
		assert.False(t, f.CanAutoTransitionToFulfilled(false, false))
		assert.True(t, f.CanAutoTransitionToFulfilled(true, false))
	})

	t.Run("deposit required blocks until proforma paid", func(t *testing.T) {
		f := createTestFulfillment(t)
		require.NoError(t, f.LinkShipment(outboundShipment(t, f.WarehouseID)))
		assert.False(t, f.CanAutoTransitionToFulfilled(true, true))
		require.NoError(t, f.MarkProformaPaid(time.Now()))
		assert.True(t, f.CanAutoTransitionToFulfilled(true, true))
	})

	t.Run("fulfilled is terminal", func(t *testing.T) {
		f := createTestFulfillment(t)
		require.NoError(t, f.LinkShipment(outboundShipment(t, f.WarehouseID)))
		require.NoError(t, f.TransitionToFulfilled())
		assert.False(t, f.CanAutoTransitionToFulfilled(true, false))
	})
}

func TestFulfillment_TransitionToFulfilled(t *testing.T) {
	f := createTestFulfillment(t)
	require.NoError(t, f.TransitionToFulfilled())
	assert.Equal(t, StatusFulfilled, f.Status)
	require.NotNil(t, f.FulfilledAt)

	t.Run("idempotent", func(t *testing.T) {
		version := f.Version
		fulfilledAt := *f.FulfilledAt
		require.NoError(t, f.TransitionToFulfilled())
		assert.Equal(t, version, f.Version)
		assert.Equal(t, fulfilledAt, *f.FulfilledAt)
	})

	t.Run("no new lines after fulfilment", func(t *testing.T) {
		_, err := f.AddLine(uuid.New(), uuid.New(), 1, decimal.NewFromInt(10))
		assert.Error(t, err)
	})
}
