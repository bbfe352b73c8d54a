package fulfillment

import (
	"time"

	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// PickStatus represents the status of a picking run
type PickStatus string

const (
	PickStatusNotStarted PickStatus = "NOT_STARTED"
	PickStatusInProgress PickStatus = "IN_PROGRESS"
	PickStatusCompleted  PickStatus = "COMPLETED"
)

// IsValid checks if the status is a valid PickStatus
func (s PickStatus) IsValid() bool {
	switch s {
	case PickStatusNotStarted, PickStatusInProgress, PickStatusCompleted:
		return true
	}
	return false
}

// String returns the string representation of PickStatus
func (s PickStatus) String() string {
	return string(s)
}

// Pick is the warehouse picking run for one fulfillment, created alongside
// it. Completing the pick consumes the picked units from stock.
type Pick struct {
	shared.BaseAggregateRoot
	FulfillmentID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex"`
	Status        PickStatus `gorm:"type:varchar(16);not null;default:'NOT_STARTED'"`
	StartedAt     *time.Time `gorm:"type:timestamp"`
	CompletedAt   *time.Time `gorm:"type:timestamp"`

	Items []PickItem `gorm:"foreignKey:PickID;references:ID"`
}

// TableName returns the table name for GORM
func (Pick) TableName() string {
	return "picks"
}

// NewPick creates a pick in NOT_STARTED with one item per fulfillment line
func NewPick(f *Fulfillment) (*Pick, error) {
	if f == nil {
		return nil, shared.NewDomainError("INVALID_FULFILLMENT", "Fulfillment is required")
	}

	p := &Pick{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		FulfillmentID:     f.ID,
		Status:            PickStatusNotStarted,
		Items:             make([]PickItem, 0, len(f.Lines)),
	}
	for i := range f.Lines {
		p.Items = append(p.Items, PickItem{
			BaseEntity:       shared.NewBaseEntity(),
			PickID:           p.ID,
			OrderLineID:      f.Lines[i].OrderLineID,
			VariantID:        f.Lines[i].VariantID,
			QuantityRequired: f.Lines[i].Quantity,
		})
	}
	return p, nil
}

// Start opens the picking run
func (p *Pick) Start() error {
	if p.Status != PickStatusNotStarted {
		return shared.NewDomainError("INVALID_STATUS", "Pick has already been started")
	}
	now := time.Now()
	p.Status = PickStatusInProgress
	p.StartedAt = &now
	p.UpdatedAt = now
	p.IncrementVersion()
	return nil
}

// RecordPicked sets the picked count for one order line. Counts are
// absolute, matching scanner totals, not increments. Keyed by order line
// rather than variant because an order may carry the same variant on
// several lines, each with its own pick item.
func (p *Pick) RecordPicked(orderLineID uuid.UUID, quantity int) error {
	if p.Status != PickStatusInProgress {
		return shared.NewDomainError("INVALID_STATUS", "Pick is not in progress")
	}
	if quantity < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Picked quantity cannot be negative")
	}

	for i := range p.Items {
		if p.Items[i].OrderLineID == orderLineID {
			if quantity > p.Items[i].QuantityRequired {
				return shared.NewDomainError("INVALID_QUANTITY", "Picked quantity exceeds the required quantity")
			}
			p.Items[i].QuantityPicked = quantity
			p.UpdatedAt = time.Now()
			return nil
		}
	}
	return shared.NewDomainError("NOT_IN_PICK", "Order line is not part of this pick")
}

// IsFullyPicked reports whether every item reached its required quantity
func (p *Pick) IsFullyPicked() bool {
	for i := range p.Items {
		if p.Items[i].QuantityPicked < p.Items[i].QuantityRequired {
			return false
		}
	}
	return true
}

// Complete closes the picking run. Every item must be fully picked.
func (p *Pick) Complete() error {
	if p.Status != PickStatusInProgress {
		return shared.NewDomainError("INVALID_STATUS", "Pick is not in progress")
	}
	if !p.IsFullyPicked() {
		return shared.NewDomainError("PICK_INCOMPLETE", "Not all items are fully picked")
	}
	now := time.Now()
	p.Status = PickStatusCompleted
	p.CompletedAt = &now
	p.UpdatedAt = now
	p.IncrementVersion()
	p.AddDomainEvent(NewPickCompletedEvent(p))
	return nil
}

// PickItem tracks picked vs required quantity for one variant
type PickItem struct {
	shared.BaseEntity
	PickID           uuid.UUID `gorm:"type:uuid;not null;index"`
	OrderLineID      uuid.UUID `gorm:"type:uuid;not null"`
	VariantID        uuid.UUID `gorm:"type:uuid;not null"`
	QuantityRequired int       `gorm:"not null"`
	QuantityPicked   int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (PickItem) TableName() string {
	return "pick_items"
}
