package persistence

import (
	"context"
	"errors"

	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/dirac/fulfillment/internal/domain/warehouse"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormWarehouseRepository implements warehouse.WarehouseRepository using GORM
type GormWarehouseRepository struct {
	db *gorm.DB
}

var _ warehouse.WarehouseRepository = (*GormWarehouseRepository)(nil)

// NewGormWarehouseRepository creates a new GormWarehouseRepository
func NewGormWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

// FindByID finds a warehouse by its ID
func (r *GormWarehouseRepository) FindByID(ctx context.Context, id uuid.UUID) (*warehouse.Warehouse, error) {
	var wh warehouse.Warehouse
	if err := r.db.WithContext(ctx).First(&wh, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &wh, nil
}

// FindByCode finds a warehouse by its unique code
func (r *GormWarehouseRepository) FindByCode(ctx context.Context, code string) (*warehouse.Warehouse, error) {
	var wh warehouse.Warehouse
	if err := r.db.WithContext(ctx).First(&wh, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &wh, nil
}

// FindOwned finds all owned warehouses ordered by allocation priority
func (r *GormWarehouseRepository) FindOwned(ctx context.Context) ([]warehouse.Warehouse, error) {
	var warehouses []warehouse.Warehouse
	if err := r.db.WithContext(ctx).
		Where("owned = ?", true).
		Order("priority ASC, name ASC").
		Find(&warehouses).Error; err != nil {
		return nil, err
	}
	return warehouses, nil
}

// FindAll finds all warehouses matching the filter
func (r *GormWarehouseRepository) FindAll(ctx context.Context, filter shared.Filter) ([]warehouse.Warehouse, error) {
	var warehouses []warehouse.Warehouse
	query := r.db.WithContext(ctx).Model(&warehouse.Warehouse{})

	if owned, ok := filter.Filters["owned"]; ok {
		query = query.Where("owned = ?", owned)
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, WarehouseSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	if err := query.Find(&warehouses).Error; err != nil {
		return nil, err
	}
	return warehouses, nil
}

// Save creates or updates a warehouse
func (r *GormWarehouseRepository) Save(ctx context.Context, wh *warehouse.Warehouse) error {
	return r.db.WithContext(ctx).Save(wh).Error
}

// Delete deletes a warehouse
func (r *GormWarehouseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&warehouse.Warehouse{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
