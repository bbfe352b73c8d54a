package persistence

import (
	"context"
	"errors"

	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/dirac/fulfillment/internal/domain/warehouse"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockRepository implements warehouse.StockRepository using GORM
type GormStockRepository struct {
	db *gorm.DB
}

var _ warehouse.StockRepository = (*GormStockRepository)(nil)

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

// FindByID finds a stock row by its ID
func (r *GormStockRepository) FindByID(ctx context.Context, id uuid.UUID) (*warehouse.Stock, error) {
	var stock warehouse.Stock
	if err := r.db.WithContext(ctx).First(&stock, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &stock, nil
}

// FindByWarehouseAndVariant finds the stock row for a warehouse-variant pair
func (r *GormStockRepository) FindByWarehouseAndVariant(ctx context.Context, warehouseID, variantID uuid.UUID) (*warehouse.Stock, error) {
	return r.findPair(r.db.WithContext(ctx), warehouseID, variantID)
}

// FindByWarehouseAndVariantForUpdate locks the row for the duration of the
// current transaction
func (r *GormStockRepository) FindByWarehouseAndVariantForUpdate(ctx context.Context, warehouseID, variantID uuid.UUID) (*warehouse.Stock, error) {
	return r.findPair(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), warehouseID, variantID)
}

func (r *GormStockRepository) findPair(query *gorm.DB, warehouseID, variantID uuid.UUID) (*warehouse.Stock, error) {
	var stock warehouse.Stock
	if err := query.
		Where("warehouse_id = ? AND variant_id = ?", warehouseID, variantID).
		First(&stock).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &stock, nil
}

// FindByVariant finds all stock rows for a variant in allocation order:
// owned warehouses first by priority, then non-owned.
func (r *GormStockRepository) FindByVariant(ctx context.Context, variantID uuid.UUID) ([]warehouse.Stock, error) {
	return r.findByVariant(r.db.WithContext(ctx), variantID)
}

// FindByVariantForUpdate locks and returns all stock rows for a variant in
// allocation order
func (r *GormStockRepository) FindByVariantForUpdate(ctx context.Context, variantID uuid.UUID) ([]warehouse.Stock, error) {
	// Lock the stock rows only, not the joined warehouse rows
	return r.findByVariant(r.db.WithContext(ctx).Clauses(clause.Locking{
		Strength: "UPDATE",
		Table:    clause.Table{Name: "stocks"},
	}), variantID)
}

func (r *GormStockRepository) findByVariant(query *gorm.DB, variantID uuid.UUID) ([]warehouse.Stock, error) {
	var stocks []warehouse.Stock
	if err := query.
		Joins("JOIN warehouses ON warehouses.id = stocks.warehouse_id").
		Where("stocks.variant_id = ?", variantID).
		Order("stocks.warehouse_owned DESC, warehouses.priority ASC, stocks.created_at ASC").
		Find(&stocks).Error; err != nil {
		return nil, err
	}
	return stocks, nil
}

// GetOrCreate gets an existing stock row or creates a zero one
func (r *GormStockRepository) GetOrCreate(ctx context.Context, wh *warehouse.Warehouse, variantID uuid.UUID) (*warehouse.Stock, error) {
	stock, err := r.FindByWarehouseAndVariant(ctx, wh.ID, variantID)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	stock, err = warehouse.NewStock(wh, variantID)
	if err != nil {
		return nil, err
	}
	// A concurrent creator may win the race on the unique pair index;
	// fall back to reading the row it inserted.
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(stock).Error; err != nil {
		return nil, err
	}
	return r.FindByWarehouseAndVariant(ctx, wh.ID, variantID)
}

// Save creates or updates a stock row
func (r *GormStockRepository) Save(ctx context.Context, stock *warehouse.Stock) error {
	return r.db.WithContext(ctx).Save(stock).Error
}

// SaveWithLock saves only if no concurrent writer bumped the stored
// version past the one this aggregate was loaded at
func (r *GormStockRepository) SaveWithLock(ctx context.Context, stock *warehouse.Stock) error {
	result := r.db.WithContext(ctx).
		Model(&warehouse.Stock{}).
		Where("id = ? AND version < ?", stock.ID, stock.Version).
		Select("*").
		Updates(stock)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "The stock record has been modified by another process")
	}
	return nil
}
