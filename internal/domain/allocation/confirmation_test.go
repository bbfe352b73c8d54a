package allocation

import (
	"testing"
	"time"

	"github.com/dirac/fulfillment/internal/domain/purchasing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildView(required int) LineAllocationView {
	return LineAllocationView{
		OrderLineID:      uuid.New(),
		QuantityRequired: required,
		ItemStatuses:     make(map[uuid.UUID]purchasing.PurchaseOrderItemStatus),
	}
}

func sourcedAllocation(t *testing.T, view *LineAllocationView, quantity int, status purchasing.PurchaseOrderItemStatus) *Allocation {
	t.Helper()
	a, err := NewAllocation(uuid.New(), uuid.New(), time.Now(), uuid.New(), uuid.New(), uuid.New(), quantity)
	require.NoError(t, err)
	itemID := uuid.New()
	_, err = a.AddSource(itemID, quantity)
	require.NoError(t, err)
	view.ItemStatuses[itemID] = status
	view.Allocations = append(view.Allocations, a)
	return a
}

func bareAllocation(t *testing.T, view *LineAllocationView, quantity int) *Allocation {
	t.Helper()
	a, err := NewAllocation(uuid.New(), uuid.New(), time.Now(), uuid.New(), uuid.New(), uuid.New(), quantity)
	require.NoError(t, err)
	view.Allocations = append(view.Allocations, a)
	return a
}

func TestConfirmationGate_CheckLine(t *testing.T) {
	gate, err := NewConfirmationGate(GateOnConfirmed)
	require.NoError(t, err)

	t.Run("fully sourced line passes", func(t *testing.T) {
		view := buildView(10)
		sourcedAllocation(t, &view, 4, purchasing.ItemStatusReceived)
		sourcedAllocation(t, &view, 6, purchasing.ItemStatusConfirmed)
		assert.NoError(t, gate.CheckLine(view))
	})

	t.Run("under-allocated line fails", func(t *testing.T) {
		view := buildView(10)
		sourcedAllocation(t, &view, 4, purchasing.ItemStatusReceived)
		assert.ErrorIs(t, gate.CheckLine(view), ErrUnderAllocated)
	})

	t.Run("allocation without sources fails", func(t *testing.T) {
		view := buildView(10)
		sourcedAllocation(t, &view, 4, purchasing.ItemStatusReceived)
		bareAllocation(t, &view, 6)
		assert.ErrorIs(t, gate.CheckLine(view), ErrAllocationUnsourced)
	})

	t.Run("partially covered allocation fails", func(t *testing.T) {
		view := buildView(6)
		a := bareAllocation(t, &view, 6)
		itemID := uuid.New()
		_, err := a.AddSource(itemID, 4)
		require.NoError(t, err)
		view.ItemStatuses[itemID] = purchasing.ItemStatusConfirmed
		assert.ErrorIs(t, gate.CheckLine(view), ErrAllocationUnsourced)
	})

	t.Run("draft item does not qualify", func(t *testing.T) {
		view := buildView(6)
		sourcedAllocation(t, &view, 6, purchasing.ItemStatusDraft)
		assert.ErrorIs(t, gate.CheckLine(view), ErrAllocationUnsourced)
	})
}

func TestConfirmationGate_Modes(t *testing.T) {
	buildWith := func(t *testing.T, status purchasing.PurchaseOrderItemStatus) LineAllocationView {
		view := buildView(6)
		sourcedAllocation(t, &view, 6, status)
		return view
	}

	t.Run("confirmed mode accepts supplier commitments", func(t *testing.T) {
		gate, err := NewConfirmationGate(GateOnConfirmed)
		require.NoError(t, err)
		assert.NoError(t, gate.CheckLine(buildWith(t, purchasing.ItemStatusConfirmed)))
		assert.NoError(t, gate.CheckLine(buildWith(t, purchasing.ItemStatusPartiallyReceived)))
		assert.NoError(t, gate.CheckLine(buildWith(t, purchasing.ItemStatusReceived)))
	})

	t.Run("received mode requires fully received items", func(t *testing.T) {
		gate, err := NewConfirmationGate(GateOnReceived)
		require.NoError(t, err)
		assert.ErrorIs(t, gate.CheckLine(buildWith(t, purchasing.ItemStatusConfirmed)), ErrAllocationUnsourced)
		assert.ErrorIs(t, gate.CheckLine(buildWith(t, purchasing.ItemStatusPartiallyReceived)), ErrAllocationUnsourced)
		assert.NoError(t, gate.CheckLine(buildWith(t, purchasing.ItemStatusReceived)))
	})

	t.Run("rejects unknown mode", func(t *testing.T) {
		_, err := NewConfirmationGate(GateMode("later"))
		assert.Error(t, err)
	})
}

func TestConfirmationGate_CheckLines(t *testing.T) {
	gate, err := NewConfirmationGate(GateOnConfirmed)
	require.NoError(t, err)

	good := buildView(3)
	sourcedAllocation(t, &good, 3, purchasing.ItemStatusReceived)

	bad := buildView(3)
	sourcedAllocation(t, &bad, 1, purchasing.ItemStatusReceived)

	assert.NoError(t, gate.CheckLines([]LineAllocationView{good}))
	assert.ErrorIs(t, gate.CheckLines([]LineAllocationView{good, bad}), ErrUnderAllocated)
}
