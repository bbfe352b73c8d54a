package persistence

import (
	"context"
	"testing"

	"github.com/dirac/fulfillment/internal/domain/order"
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOrderTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&order.Order{}, &order.OrderLine{})
	require.NoError(t, err)

	return db
}

func newTestOrder(t *testing.T, reference string) *order.Order {
	t.Helper()
	o, err := order.NewOrder(reference, "Acme Labs", "GBP")
	require.NoError(t, err)
	_, err = o.AddLine(uuid.New(), 3, decimal.NewFromInt(120))
	require.NoError(t, err)
	return o
}

func TestGormOrderRepository_SaveAndFind(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	t.Run("round-trips an order with lines", func(t *testing.T) {
		o := newTestOrder(t, "SO-1001")
		require.NoError(t, repo.Save(ctx, o))

		found, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, "SO-1001", found.Reference)
		assert.Equal(t, order.StatusUnconfirmed, found.Status)
		require.Len(t, found.Lines, 1)
		assert.Equal(t, 3, found.Lines[0].Quantity)
	})

	t.Run("finds by reference", func(t *testing.T) {
		o := newTestOrder(t, "SO-1002")
		require.NoError(t, repo.Save(ctx, o))

		found, err := repo.FindByReference(ctx, "SO-1002")
		require.NoError(t, err)
		assert.Equal(t, o.ID, found.ID)
	})

	t.Run("returns ErrNotFound for missing order", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormOrderRepository_FindUnconfirmed(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	unconfirmed := newTestOrder(t, "SO-2001")
	require.NoError(t, repo.Save(ctx, unconfirmed))

	confirmed := newTestOrder(t, "SO-2002")
	require.NoError(t, confirmed.Confirm())
	require.NoError(t, repo.Save(ctx, confirmed))

	orders, err := repo.FindUnconfirmed(ctx, shared.Filter{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "SO-2001", orders[0].Reference)
}

func TestGormOrderRepository_SaveWithLock(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	t.Run("persists a version bump", func(t *testing.T) {
		o := newTestOrder(t, "SO-3001")
		require.NoError(t, repo.Save(ctx, o))

		require.NoError(t, o.SetDeposit(decimal.NewFromInt(50)))
		require.NoError(t, repo.SaveWithLock(ctx, o))

		found, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, found.Version)
		assert.True(t, found.DepositAmount.Equal(decimal.NewFromInt(50)))
	})

	t.Run("rejects a stale version", func(t *testing.T) {
		o := newTestOrder(t, "SO-3002")
		o.IncrementVersion()
		require.NoError(t, repo.Save(ctx, o))

		stale := newTestOrder(t, "SO-3002-stale")
		stale.ID = o.ID
		// Version still 1, behind the stored row
		err := repo.SaveWithLock(ctx, stale)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CONCURRENT_MODIFICATION", domainErr.Code)
	})
}
