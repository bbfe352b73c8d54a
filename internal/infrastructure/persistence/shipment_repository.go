package persistence

import (
	"context"
	"errors"

	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/dirac/fulfillment/internal/domain/shipping"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormShipmentRepository implements shipping.ShipmentRepository using GORM
type GormShipmentRepository struct {
	db *gorm.DB
}

var _ shipping.ShipmentRepository = (*GormShipmentRepository)(nil)

// NewGormShipmentRepository creates a new GormShipmentRepository
func NewGormShipmentRepository(db *gorm.DB) *GormShipmentRepository {
	return &GormShipmentRepository{db: db}
}

// FindByID finds a shipment by ID
func (r *GormShipmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*shipping.Shipment, error) {
	var s shipping.Shipment
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// FindByReference finds a shipment by its unique reference
func (r *GormShipmentRepository) FindByReference(ctx context.Context, reference string) (*shipping.Shipment, error) {
	var s shipping.Shipment
	if err := r.db.WithContext(ctx).First(&s, "reference = ?", reference).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// FindByDirection finds shipments travelling the given direction
func (r *GormShipmentRepository) FindByDirection(ctx context.Context, direction shipping.Direction, filter shared.Filter) ([]*shipping.Shipment, error) {
	var shipments []*shipping.Shipment
	query := r.db.WithContext(ctx).
		Model(&shipping.Shipment{}).
		Where("direction = ?", direction)

	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	if warehouseID, ok := filter.Filters["warehouse_id"]; ok {
		query = query.Where("warehouse_id = ?", warehouseID)
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, ShipmentSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))

	if err := query.Find(&shipments).Error; err != nil {
		return nil, err
	}
	return shipments, nil
}

// Save creates or updates a shipment
func (r *GormShipmentRepository) Save(ctx context.Context, shipment *shipping.Shipment) error {
	return r.db.WithContext(ctx).Save(shipment).Error
}
