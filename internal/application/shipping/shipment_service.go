package shipping

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/dirac/fulfillment/internal/domain/shipping"
)

// CreateShipmentCommand carries the input for planning a shipment
type CreateShipmentCommand struct {
	Reference   string
	Direction   shipping.Direction
	WarehouseID uuid.UUID
	Carrier     string
	TrackingRef string
}

// ShipmentService plans shipments and walks them through their lifecycle.
// Arrival of inbound shipments is driven by the receipt protocol, not here.
type ShipmentService struct {
	repo   shipping.ShipmentRepository
	logger *zap.Logger
}

// NewShipmentService creates a new ShipmentService
func NewShipmentService(repo shipping.ShipmentRepository, logger *zap.Logger) *ShipmentService {
	return &ShipmentService{repo: repo, logger: logger}
}

// CreateShipment plans a shipment with a unique reference
func (s *ShipmentService) CreateShipment(ctx context.Context, cmd CreateShipmentCommand) (*shipping.Shipment, error) {
	if _, err := s.repo.FindByReference(ctx, cmd.Reference); err == nil {
		return nil, shared.NewDomainError("DUPLICATE_REFERENCE", "A shipment with this reference already exists")
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("checking shipment reference: %w", err)
	}

	shipment, err := shipping.NewShipment(cmd.Reference, cmd.Direction, cmd.WarehouseID)
	if err != nil {
		return nil, err
	}
	shipment.Carrier = cmd.Carrier
	shipment.TrackingRef = cmd.TrackingRef
	if err := s.repo.Save(ctx, shipment); err != nil {
		return nil, fmt.Errorf("saving shipment: %w", err)
	}

	s.logger.Info("created shipment",
		zap.String("shipment_id", shipment.ID.String()),
		zap.String("reference", shipment.Reference),
		zap.String("direction", shipment.Direction.String()))
	return shipment, nil
}

// DepartShipment marks a planned shipment as having left its origin
func (s *ShipmentService) DepartShipment(ctx context.Context, id uuid.UUID) (*shipping.Shipment, error) {
	shipment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := shipment.Depart(); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, shipment); err != nil {
		return nil, fmt.Errorf("saving shipment: %w", err)
	}

	s.logger.Info("shipment departed", zap.String("shipment_id", shipment.ID.String()))
	return shipment, nil
}

// CancelShipment cancels a planned shipment
func (s *ShipmentService) CancelShipment(ctx context.Context, id uuid.UUID) (*shipping.Shipment, error) {
	shipment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := shipment.Cancel(); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, shipment); err != nil {
		return nil, fmt.Errorf("saving shipment: %w", err)
	}

	s.logger.Info("shipment cancelled", zap.String("shipment_id", shipment.ID.String()))
	return shipment, nil
}

// GetShipment finds a shipment by ID
func (s *ShipmentService) GetShipment(ctx context.Context, id uuid.UUID) (*shipping.Shipment, error) {
	return s.repo.FindByID(ctx, id)
}

// ListByDirection returns shipments travelling the given direction
func (s *ShipmentService) ListByDirection(ctx context.Context, direction shipping.Direction, filter shared.Filter) ([]*shipping.Shipment, error) {
	return s.repo.FindByDirection(ctx, direction, filter)
}
