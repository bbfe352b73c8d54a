package persistence

import (
	"context"
	"errors"

	"github.com/dirac/fulfillment/internal/domain/purchasing"
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReceiptRepository implements purchasing.ReceiptRepository using GORM
type GormReceiptRepository struct {
	db *gorm.DB
}

var _ purchasing.ReceiptRepository = (*GormReceiptRepository)(nil)

// NewGormReceiptRepository creates a new GormReceiptRepository
func NewGormReceiptRepository(db *gorm.DB) *GormReceiptRepository {
	return &GormReceiptRepository{db: db}
}

// FindByID finds a receipt with its check-in lines
func (r *GormReceiptRepository) FindByID(ctx context.Context, id uuid.UUID) (*purchasing.Receipt, error) {
	var receipt purchasing.Receipt
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&receipt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &receipt, nil
}

// FindByShipment finds all receipts recorded against a shipment
func (r *GormReceiptRepository) FindByShipment(ctx context.Context, shipmentID uuid.UUID) ([]*purchasing.Receipt, error) {
	var receipts []*purchasing.Receipt
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("shipment_id = ?", shipmentID).
		Order("created_at ASC").
		Find(&receipts).Error; err != nil {
		return nil, err
	}
	return receipts, nil
}

// FindInProgressByShipment finds the open receipt for a shipment, if any
func (r *GormReceiptRepository) FindInProgressByShipment(ctx context.Context, shipmentID uuid.UUID) (*purchasing.Receipt, error) {
	var receipt purchasing.Receipt
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("shipment_id = ? AND status = ?", shipmentID, purchasing.ReceiptStatusInProgress).
		First(&receipt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &receipt, nil
}

// Save creates or updates a receipt and its lines
func (r *GormReceiptRepository) Save(ctx context.Context, receipt *purchasing.Receipt) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(receipt).Error
}
