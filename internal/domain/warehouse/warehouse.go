package warehouse

import (
	"time"

	"github.com/dirac/fulfillment/internal/domain/shared"
)

// Warehouse represents a physical or virtual stock location.
//
// Owned warehouses hold stock the company physically controls; their
// quantities are exact and derived from unit rows. Non-owned warehouses
// represent supplier-held stock that has not been purchased yet; their
// quantities are externally reported upper bounds.
type Warehouse struct {
	shared.BaseAggregateRoot
	Code     string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name     string `gorm:"type:varchar(200);not null"`
	Owned    bool   `gorm:"not null;default:false"`
	Priority int    `gorm:"not null;default:0"` // Allocation order among owned warehouses, lower first
}

// TableName returns the table name for GORM
func (Warehouse) TableName() string {
	return "warehouses"
}

// NewWarehouse creates a new warehouse
func NewWarehouse(code, name string, owned bool, priority int) (*Warehouse, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Warehouse code cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Warehouse name cannot be empty")
	}

	return &Warehouse{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              name,
		Owned:             owned,
		Priority:          priority,
	}, nil
}

// Rename updates the warehouse display name
func (w *Warehouse) Rename(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Warehouse name cannot be empty")
	}
	w.Name = name
	w.UpdatedAt = time.Now()
	w.IncrementVersion()
	return nil
}

// SetPriority updates the allocation priority
func (w *Warehouse) SetPriority(priority int) {
	w.Priority = priority
	w.UpdatedAt = time.Now()
	w.IncrementVersion()
}
