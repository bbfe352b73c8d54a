package persistence

import (
	"context"
	"errors"

	"github.com/dirac/fulfillment/internal/domain/purchasing"
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPurchaseOrderRepository implements purchasing.PurchaseOrderRepository
// using GORM
type GormPurchaseOrderRepository struct {
	db *gorm.DB
}

var _ purchasing.PurchaseOrderRepository = (*GormPurchaseOrderRepository)(nil)

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: db}
}

// FindByID finds a purchase order with its items and their adjustments
func (r *GormPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*purchasing.PurchaseOrder, error) {
	var po purchasing.PurchaseOrder
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Adjustments").
		First(&po, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &po, nil
}

// FindByReference finds a purchase order by its unique reference
func (r *GormPurchaseOrderRepository) FindByReference(ctx context.Context, reference string) (*purchasing.PurchaseOrder, error) {
	var po purchasing.PurchaseOrder
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Adjustments").
		First(&po, "reference = ?", reference).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &po, nil
}

// FindAll finds all purchase orders matching the filter
func (r *GormPurchaseOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]*purchasing.PurchaseOrder, error) {
	var orders []*purchasing.PurchaseOrder
	query := r.db.WithContext(ctx).Model(&purchasing.PurchaseOrder{}).Preload("Items")

	if warehouseID, ok := filter.Filters["destination_warehouse_id"]; ok {
		query = query.Where("destination_warehouse_id = ?", warehouseID)
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, PurchaseOrderSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Save creates or updates a purchase order and its items
func (r *GormPurchaseOrderRepository) Save(ctx context.Context, po *purchasing.PurchaseOrder) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(po).Error
}

// SaveWithLock saves with optimistic locking on the aggregate version
func (r *GormPurchaseOrderRepository) SaveWithLock(ctx context.Context, po *purchasing.PurchaseOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&purchasing.PurchaseOrder{}).
			Where("id = ? AND version < ?", po.ID, po.Version).
			Select("*").
			Omit(clause.Associations).
			Updates(po)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "The purchase order has been modified by another process")
		}
		if len(po.Items) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).
				Omit("Adjustments").
				Create(&po.Items).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
