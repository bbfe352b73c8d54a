package persistence

import (
	"context"
	"errors"

	"github.com/dirac/fulfillment/internal/domain/order"
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements order.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

var _ order.OrderRepository = (*GormOrderRepository)(nil)

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order with its lines
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.findByID(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate locks the order row for the current transaction
func (r *GormOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.findByID(r.db.WithContext(ctx).Clauses(clause.Locking{
		Strength: "UPDATE",
		Table:    clause.Table{Name: "orders"},
	}), id)
}

func (r *GormOrderRepository) findByID(query *gorm.DB, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := query.Preload("Lines").First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByReference finds an order by its unique reference
func (r *GormOrderRepository) FindByReference(ctx context.Context, reference string) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&o, "reference = ?", reference).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindUnconfirmed returns orders awaiting the confirmation gate, oldest
// first, for re-evaluation sweeps
func (r *GormOrderRepository) FindUnconfirmed(ctx context.Context, filter shared.Filter) ([]*order.Order, error) {
	var orders []*order.Order
	query := r.db.WithContext(ctx).
		Preload("Lines").
		Where("status = ?", order.StatusUnconfirmed).
		Order("created_at ASC")

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// FindAll finds all orders matching the filter
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]*order.Order, error) {
	var orders []*order.Order
	query := r.db.WithContext(ctx).Model(&order.Order{}).Preload("Lines")

	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	if customer, ok := filter.Filters["customer_name"]; ok {
		query = query.Where("customer_name = ?", customer)
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, OrderSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Save creates or updates an order and its lines
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(o).Error
}

// SaveWithLock saves with optimistic locking on the aggregate version
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&order.Order{}).
			Where("id = ? AND version < ?", o.ID, o.Version).
			Select("*").
			Omit(clause.Associations).
			Updates(o)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "The order has been modified by another process")
		}
		if len(o.Lines) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).
				Create(&o.Lines).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
