// Package shipping holds the physical shipment aggregate shared by the
// inbound (purchasing) and outbound (fulfillment) flows.
package shipping

import (
	"context"
	"time"

	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// Direction distinguishes inbound supplier shipments from outbound
// customer shipments
type Direction string

const (
	DirectionInbound  Direction = "INBOUND"
	DirectionOutbound Direction = "OUTBOUND"
)

// IsValid checks if the direction is a valid Direction
func (d Direction) IsValid() bool {
	return d == DirectionInbound || d == DirectionOutbound
}

// String returns the string representation of Direction
func (d Direction) String() string {
	return string(d)
}

// ShipmentStatus represents the lifecycle of a physical shipment
type ShipmentStatus string

const (
	StatusPlanned   ShipmentStatus = "PLANNED"
	StatusDeparted  ShipmentStatus = "DEPARTED"
	StatusArrived   ShipmentStatus = "ARRIVED"
	StatusCancelled ShipmentStatus = "CANCELLED"
)

// IsValid checks if the status is a valid ShipmentStatus
func (s ShipmentStatus) IsValid() bool {
	switch s {
	case StatusPlanned, StatusDeparted, StatusArrived, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of ShipmentStatus
func (s ShipmentStatus) String() string {
	return string(s)
}

// Shipment is a physical movement of goods between locations. Inbound
// shipments carry purchase order items toward an owned warehouse; outbound
// shipments carry fulfillments toward customers.
type Shipment struct {
	shared.BaseAggregateRoot
	Reference   string         `gorm:"type:varchar(100);not null;uniqueIndex"`
	Direction   Direction      `gorm:"type:varchar(16);not null"`
	Status      ShipmentStatus `gorm:"type:varchar(16);not null;default:'PLANNED'"`
	WarehouseID uuid.UUID      `gorm:"type:uuid;not null;index"`
	Carrier     string         `gorm:"type:varchar(100)"`
	TrackingRef string         `gorm:"type:varchar(200)"`
	DepartedAt  *time.Time     `gorm:"type:timestamp"`
	ArrivedAt   *time.Time     `gorm:"type:timestamp"`
}

// TableName returns the table name for GORM
func (Shipment) TableName() string {
	return "shipments"
}

// NewShipment creates a planned shipment. For inbound shipments the
// warehouse is the owned destination; for outbound it is the owned origin.
func NewShipment(reference string, direction Direction, warehouseID uuid.UUID) (*Shipment, error) {
	if reference == "" {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Shipment reference cannot be empty")
	}
	if !direction.IsValid() {
		return nil, shared.NewDomainError("INVALID_DIRECTION", "Unknown shipment direction")
	}
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}

	return &Shipment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Reference:         reference,
		Direction:         direction,
		Status:            StatusPlanned,
		WarehouseID:       warehouseID,
	}, nil
}

// Depart marks the shipment as having left its origin
func (s *Shipment) Depart() error {
	if s.Status != StatusPlanned {
		return shared.NewDomainError("INVALID_STATUS", "Only planned shipments can depart")
	}
	now := time.Now()
	s.Status = StatusDeparted
	s.DepartedAt = &now
	s.UpdatedAt = now
	s.IncrementVersion()
	return nil
}

// Arrive marks the shipment as having reached its destination
func (s *Shipment) Arrive() error {
	if s.Status != StatusDeparted {
		return shared.NewDomainError("INVALID_STATUS", "Only departed shipments can arrive")
	}
	now := time.Now()
	s.Status = StatusArrived
	s.ArrivedAt = &now
	s.UpdatedAt = now
	s.IncrementVersion()
	return nil
}

// Cancel cancels a shipment that has not departed
func (s *Shipment) Cancel() error {
	if s.Status != StatusPlanned {
		return shared.NewDomainError("INVALID_STATUS", "Only planned shipments can be cancelled")
	}
	s.Status = StatusCancelled
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}

// HasArrived reports whether the goods are physically at the destination
func (s *Shipment) HasArrived() bool {
	return s.Status == StatusArrived
}

// ShipmentRepository defines persistence operations for shipments
type ShipmentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Shipment, error)
	FindByReference(ctx context.Context, reference string) (*Shipment, error)
	FindByDirection(ctx context.Context, direction Direction, filter shared.Filter) ([]*Shipment, error)
	Save(ctx context.Context, shipment *Shipment) error
}
