package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/dirac/fulfillment/internal/domain/warehouse"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func stockRows(id, warehouseID, variantID uuid.UUID, quantity, allocated int, owned bool, version int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "warehouse_id", "variant_id", "quantity", "quantity_allocated", "warehouse_owned", "version",
	}).AddRow(id, warehouseID, variantID, quantity, allocated, owned, version)
}

func TestGormStockRepository_FindByID(t *testing.T) {
	t.Run("finds existing stock", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormStockRepository(db)

		stockID := uuid.New()
		warehouseID := uuid.New()
		variantID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "stocks" WHERE id = \$1`).
			WithArgs(stockID, 1).
			WillReturnRows(stockRows(stockID, warehouseID, variantID, 10, 4, true, 1))

		stock, err := repo.FindByID(context.Background(), stockID)

		assert.NoError(t, err)
		require.NotNil(t, stock)
		assert.Equal(t, 10, stock.Quantity)
		assert.Equal(t, 4, stock.QuantityAllocated)
		assert.True(t, stock.WarehouseOwned)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for missing stock", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormStockRepository(db)

		stockID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "stocks" WHERE id = \$1`).
			WithArgs(stockID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		stock, err := repo.FindByID(context.Background(), stockID)

		assert.Nil(t, stock)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStockRepository_SaveWithLock(t *testing.T) {
	t.Run("updates when the stored version is older", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormStockRepository(db)

		wh, err := warehouse.NewWarehouse("LDN", "London", true, 0)
		require.NoError(t, err)
		stock, err := warehouse.NewStock(wh, uuid.New())
		require.NoError(t, err)
		require.NoError(t, stock.RecomputeFromUnits(5))

		mock.ExpectExec(`UPDATE "stocks" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.SaveWithLock(context.Background(), stock))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects a stale aggregate", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormStockRepository(db)

		wh, err := warehouse.NewWarehouse("LDN", "London", true, 0)
		require.NoError(t, err)
		stock, err := warehouse.NewStock(wh, uuid.New())
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "stocks" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err = repo.SaveWithLock(context.Background(), stock)

		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "CONCURRENT_MODIFICATION", domainErr.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
