package allocation

import (
	"testing"
	"time"

	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/dirac/fulfillment/internal/domain/shared/valueobject"
	"github.com/dirac/fulfillment/internal/domain/purchasing"
	"github.com/dirac/fulfillment/internal/domain/warehouse"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createOwnedStock(t *testing.T, priority, quantity int, variantID uuid.UUID) (*warehouse.Warehouse, *warehouse.Stock) {
	t.Helper()
	wh, err := warehouse.NewWarehouse("OWN-"+uuid.NewString()[:8], "Owned", true, priority)
	require.NoError(t, err)
	stock, err := warehouse.NewStock(wh, variantID)
	require.NoError(t, err)
	require.NoError(t, stock.RecomputeFromUnits(quantity))
	return wh, stock
}

func createSupplierStock(t *testing.T, quantity int, variantID uuid.UUID) (*warehouse.Warehouse, *warehouse.Stock) {
	t.Helper()
	wh, err := warehouse.NewWarehouse("SUP-"+uuid.NewString()[:8], "Supplier", false, 0)
	require.NoError(t, err)
	stock, err := warehouse.NewStock(wh, variantID)
	require.NoError(t, err)
	require.NoError(t, stock.SetReportedQuantity(quantity))
	return wh, stock
}

// testLine orders 10 of the variant, enough headroom for every target in
// these tests
func testLine(variantID uuid.UUID) LineRef {
	return LineRef{
		OrderID:     uuid.New(),
		OrderLineID: uuid.New(),
		VariantID:   variantID,
		Quantity:    10,
		CreatedAt:   time.Now(),
	}
}

func TestAllocator_SortStocks(t *testing.T) {
	variantID := uuid.New()
	whA, stockA := createOwnedStock(t, 2, 10, variantID)
	whB, stockB := createOwnedStock(t, 1, 10, variantID)
	whC, stockC := createSupplierStock(t, 10, variantID)

	priorities := map[uuid.UUID]int{whA.ID: whA.Priority, whB.ID: whB.Priority, whC.ID: whC.Priority}
	stocks := []*warehouse.Stock{stockC, stockA, stockB}

	NewAllocator().SortStocks(stocks, priorities)

	assert.Equal(t, stockB.ID, stocks[0].ID)
	assert.Equal(t, stockA.ID, stocks[1].ID)
	assert.Equal(t, stockC.ID, stocks[2].ID)
}

func TestAllocator_Allocate(t *testing.T) {
	al := NewAllocator()

	t.Run("spans owned stocks before supplier stock", func(t *testing.T) {
		variantID := uuid.New()
		_, owned := createOwnedStock(t, 1, 4, variantID)
		_, supplier := createSupplierStock(t, 10, variantID)
		line := testLine(variantID)

		result, err := al.Allocate(line, 10, []*warehouse.Stock{owned, supplier}, nil)
		require.NoError(t, err)
		require.Len(t, result.Created, 2)
		assert.Equal(t, 4, result.Created[0].Quantity)
		assert.Equal(t, owned.ID, result.Created[0].StockID)
		assert.Equal(t, 6, result.Created[1].Quantity)
		assert.Equal(t, supplier.ID, result.Created[1].StockID)
		assert.Equal(t, 4, owned.QuantityAllocated)
		assert.Equal(t, 6, supplier.QuantityAllocated)
	})

	t.Run("insufficient total leaves everything untouched", func(t *testing.T) {
		variantID := uuid.New()
		_, owned := createOwnedStock(t, 1, 4, variantID)
		_, supplier := createSupplierStock(t, 3, variantID)
		line := testLine(variantID)

		_, err := al.Allocate(line, 10, []*warehouse.Stock{owned, supplier}, nil)
		require.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.Equal(t, 0, owned.QuantityAllocated)
		assert.Equal(t, 0, supplier.QuantityAllocated)
	})

	t.Run("top-up is idempotent against existing allocations", func(t *testing.T) {
		variantID := uuid.New()
		_, owned := createOwnedStock(t, 1, 10, variantID)
		line := testLine(variantID)

		first, err := al.Allocate(line, 6, []*warehouse.Stock{owned}, nil)
		require.NoError(t, err)
		require.Len(t, first.Created, 1)

		second, err := al.Allocate(line, 6, []*warehouse.Stock{owned}, first.Created)
		require.NoError(t, err)
		assert.Empty(t, second.Created)
		assert.Empty(t, second.Updated)
		assert.Equal(t, 6, owned.QuantityAllocated)

		third, err := al.Allocate(line, 9, []*warehouse.Stock{owned}, first.Created)
		require.NoError(t, err)
		require.Len(t, third.Updated, 1)
		assert.Equal(t, 9, third.Updated[0].Quantity)
		assert.Equal(t, 9, owned.QuantityAllocated)
	})

	t.Run("rejects a target above the ordered quantity", func(t *testing.T) {
		variantID := uuid.New()
		_, owned := createOwnedStock(t, 1, 10, variantID)
		line := testLine(variantID)
		line.Quantity = 3

		_, err := al.Allocate(line, 9, []*warehouse.Stock{owned}, nil)
		require.ErrorIs(t, err, ErrLineOverAllocation)
		assert.Equal(t, 0, owned.QuantityAllocated)
	})
}

func TestAllocator_Deallocate(t *testing.T) {
	al := NewAllocator()
	variantID := uuid.New()
	_, owned := createOwnedStock(t, 1, 4, variantID)
	_, supplier := createSupplierStock(t, 10, variantID)
	line := testLine(variantID)

	result, err := al.Allocate(line, 10, []*warehouse.Stock{owned, supplier}, nil)
	require.NoError(t, err)
	allocs := result.Created
	stocks := map[uuid.UUID]*warehouse.Stock{owned.ID: owned, supplier.ID: supplier}

	t.Run("releases newest allocation first", func(t *testing.T) {
		dealloc, err := al.Deallocate(line, 6, stocks, allocs)
		require.NoError(t, err)
		require.Len(t, dealloc.Removed, 1)
		assert.Equal(t, supplier.ID, dealloc.Removed[0].StockID)
		assert.Equal(t, 0, supplier.QuantityAllocated)
		assert.Equal(t, 4, owned.QuantityAllocated)
	})

	t.Run("cannot deallocate more than allocated", func(t *testing.T) {
		remaining := []*Allocation{allocs[0]}
		_, err := al.Deallocate(line, 5, stocks, remaining)
		assert.Error(t, err)
	})

	t.Run("releases sourced quantity back to items", func(t *testing.T) {
		_, sup2 := createSupplierStock(t, 10, variantID)
		line2 := testLine(variantID)
		res, err := al.Allocate(line2, 5, []*warehouse.Stock{sup2}, nil)
		require.NoError(t, err)
		itemID := uuid.New()
		_, err = res.Created[0].AddSource(itemID, 5)
		require.NoError(t, err)

		dealloc, err := al.Deallocate(line2, 5, map[uuid.UUID]*warehouse.Stock{sup2.ID: sup2}, res.Created)
		require.NoError(t, err)
		assert.Equal(t, 5, dealloc.ReleasedSources[itemID])
	})
}

func createConfirmedItem(t *testing.T, variantID uuid.UUID, ordered int) *purchasing.PurchaseOrderItem {
	t.Helper()
	supplier, err := warehouse.NewWarehouse("SUP-"+uuid.NewString()[:8], "Supplier", false, 0)
	require.NoError(t, err)
	owned, err := warehouse.NewWarehouse("OWN-"+uuid.NewString()[:8], "Owned", true, 1)
	require.NoError(t, err)
	po, err := purchasing.NewPurchaseOrder("PO-"+uuid.NewString()[:8], supplier, owned, valueobject.GBP)
	require.NoError(t, err)
	item, err := po.AddItem(variantID, ordered, decimal.NewFromInt(int64(ordered*50)))
	require.NoError(t, err)
	require.NoError(t, item.Confirm())
	return item
}

func TestAllocator_CoverAllocations(t *testing.T) {
	al := NewAllocator()
	variantID := uuid.New()

	t.Run("covers oldest order line first", func(t *testing.T) {
		old := createTestAllocation(t, 6)
		old.OrderLineCreatedAt = time.Now().Add(-time.Hour)
		recent := createTestAllocation(t, 6)

		item := createConfirmedItem(t, variantID, 8)
		covered, err := al.CoverAllocations(item, []*Allocation{recent, old})
		require.NoError(t, err)
		require.Len(t, covered, 2)
		assert.Equal(t, 6, old.SourcedQuantity())
		assert.Equal(t, 2, recent.SourcedQuantity())
		assert.Equal(t, 0, item.AvailableQuantity())
	})

	t.Run("skips already covered allocations", func(t *testing.T) {
		a := createTestAllocation(t, 4)
		item := createConfirmedItem(t, variantID, 10)
		_, err := a.AddSource(uuid.New(), 4)
		require.NoError(t, err)

		covered, err := al.CoverAllocations(item, []*Allocation{a})
		require.NoError(t, err)
		assert.Empty(t, covered)
		assert.Equal(t, 10, item.AvailableQuantity())
	})

	t.Run("rejects draft item", func(t *testing.T) {
		supplier, _ := warehouse.NewWarehouse("SUP-x", "Supplier", false, 0)
		owned, _ := warehouse.NewWarehouse("OWN-x", "Owned", true, 1)
		po, err := purchasing.NewPurchaseOrder("PO-draft", supplier, owned, valueobject.GBP)
		require.NoError(t, err)
		draft, err := po.AddItem(variantID, 5, decimal.NewFromInt(250))
		require.NoError(t, err)

		_, err = al.CoverAllocations(draft, nil)
		assert.Error(t, err)
	})
}

func TestAllocator_RepointForTransfer(t *testing.T) {
	al := NewAllocator()
	variantID := uuid.New()

	t.Run("repoints whole allocations and splits the straddler", func(t *testing.T) {
		_, source := createSupplierStock(t, 20, variantID)
		_, dest := createOwnedStock(t, 1, 0, variantID)

		lineA := testLine(variantID)
		lineB := testLine(variantID)
		resA, err := al.Allocate(lineA, 4, []*warehouse.Stock{source}, nil)
		require.NoError(t, err)
		resA.Created[0].OrderLineCreatedAt = time.Now().Add(-time.Hour)
		resB, err := al.Allocate(lineB, 6, []*warehouse.Stock{source}, nil)
		require.NoError(t, err)

		allocs := append(resA.Created, resB.Created...)
		moved, err := al.RepointForTransfer(source, dest, 7, allocs)
		require.NoError(t, err)

		require.Len(t, moved.Repointed, 1)
		assert.Equal(t, lineA.OrderLineID, moved.Repointed[0].OrderLineID)
		assert.Equal(t, dest.ID, moved.Repointed[0].StockID)

		require.Len(t, moved.Created, 1)
		assert.Equal(t, lineB.OrderLineID, moved.Created[0].OrderLineID)
		assert.Equal(t, 3, moved.Created[0].Quantity)
		assert.Equal(t, 3, resB.Created[0].Quantity)
		assert.Equal(t, source.ID, resB.Created[0].StockID)

		assert.Equal(t, 3, source.QuantityAllocated)
		assert.Equal(t, 7, dest.QuantityAllocated)
	})

	t.Run("nothing to repoint", func(t *testing.T) {
		_, source := createSupplierStock(t, 10, variantID)
		_, dest := createOwnedStock(t, 1, 0, variantID)
		moved, err := al.RepointForTransfer(source, dest, 5, nil)
		require.NoError(t, err)
		assert.Empty(t, moved.Repointed)
		assert.Empty(t, moved.Created)
	})
}
