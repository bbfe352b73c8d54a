package persistence

import (
	"context"
	"errors"

	"github.com/dirac/fulfillment/internal/domain/billing"
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements billing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var inv billing.Invoice
	if err := r.db.WithContext(ctx).First(&inv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// FindByNumber finds an invoice by its unique number
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, number string) (*billing.Invoice, error) {
	var inv billing.Invoice
	if err := r.db.WithContext(ctx).First(&inv, "number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// FindByFulfillment finds the invoices raised against a fulfillment
func (r *GormInvoiceRepository) FindByFulfillment(ctx context.Context, fulfillmentID uuid.UUID) ([]*billing.Invoice, error) {
	var invoices []*billing.Invoice
	if err := r.db.WithContext(ctx).
		Where("fulfillment_id = ?", fulfillmentID).
		Order("created_at ASC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindByOrder finds the invoices raised against an order
func (r *GormInvoiceRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]*billing.Invoice, error) {
	var invoices []*billing.Invoice
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// Save creates or updates an invoice
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	return r.db.WithContext(ctx).Save(invoice).Error
}
