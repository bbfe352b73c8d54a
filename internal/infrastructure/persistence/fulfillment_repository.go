package persistence

import (
	"context"
	"errors"

	"github.com/dirac/fulfillment/internal/domain/fulfillment"
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormFulfillmentRepository implements fulfillment.FulfillmentRepository using GORM
type GormFulfillmentRepository struct {
	db *gorm.DB
}

var _ fulfillment.FulfillmentRepository = (*GormFulfillmentRepository)(nil)

// NewGormFulfillmentRepository creates a new GormFulfillmentRepository
func NewGormFulfillmentRepository(db *gorm.DB) *GormFulfillmentRepository {
	return &GormFulfillmentRepository{db: db}
}

func (r *GormFulfillmentRepository) lockingQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Clauses(clause.Locking{
		Strength: "UPDATE",
		Table:    clause.Table{Name: "fulfillments"},
	})
}

// FindByID finds a fulfillment with its lines
func (r *GormFulfillmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*fulfillment.Fulfillment, error) {
	return r.findByID(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate locks the fulfillment row for the current transaction.
// The auto-transition check runs under this lock so concurrent triggers
// converging on the same fulfillment serialize.
func (r *GormFulfillmentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*fulfillment.Fulfillment, error) {
	return r.findByID(r.lockingQuery(ctx), id)
}

func (r *GormFulfillmentRepository) findByID(query *gorm.DB, id uuid.UUID) (*fulfillment.Fulfillment, error) {
	var f fulfillment.Fulfillment
	if err := query.Preload("Lines").First(&f, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// FindByOrder returns the order's fulfillments in creation order, the
// order deposit credits are handed out in
func (r *GormFulfillmentRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]*fulfillment.Fulfillment, error) {
	return r.findByOrder(r.db.WithContext(ctx), orderID)
}

// FindByOrderForUpdate locks the order's fulfillment rows
func (r *GormFulfillmentRepository) FindByOrderForUpdate(ctx context.Context, orderID uuid.UUID) ([]*fulfillment.Fulfillment, error) {
	return r.findByOrder(r.lockingQuery(ctx), orderID)
}

func (r *GormFulfillmentRepository) findByOrder(query *gorm.DB, orderID uuid.UUID) ([]*fulfillment.Fulfillment, error) {
	var fulfillments []*fulfillment.Fulfillment
	if err := query.
		Preload("Lines").
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&fulfillments).Error; err != nil {
		return nil, err
	}
	return fulfillments, nil
}

// FindByShipment finds the fulfillments linked to an outbound shipment
func (r *GormFulfillmentRepository) FindByShipment(ctx context.Context, shipmentID uuid.UUID) ([]*fulfillment.Fulfillment, error) {
	var fulfillments []*fulfillment.Fulfillment
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("shipment_id = ?", shipmentID).
		Order("created_at ASC").
		Find(&fulfillments).Error; err != nil {
		return nil, err
	}
	return fulfillments, nil
}

// Save creates or updates a fulfillment and its lines
func (r *GormFulfillmentRepository) Save(ctx context.Context, f *fulfillment.Fulfillment) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(f).Error
}

// SaveWithLock saves with optimistic locking on the aggregate version
func (r *GormFulfillmentRepository) SaveWithLock(ctx context.Context, f *fulfillment.Fulfillment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&fulfillment.Fulfillment{}).
			Where("id = ? AND version < ?", f.ID, f.Version).
			Select("*").
			Omit(clause.Associations).
			Updates(f)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewDomainError("CONCURRENT_MODIFICATION", "The fulfillment has been modified by another process")
		}
		if len(f.Lines) > 0 {
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).
				Create(&f.Lines).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
