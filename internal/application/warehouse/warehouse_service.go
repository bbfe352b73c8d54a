package warehouse

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/dirac/fulfillment/internal/domain/warehouse"
)

// CreateWarehouseCommand carries the input for registering a warehouse
type CreateWarehouseCommand struct {
	Code     string
	Name     string
	Owned    bool
	Priority int
}

// WarehouseService manages the warehouse registry. Warehouses are setup
// data; everything else in the system references them by ID.
type WarehouseService struct {
	repo   warehouse.WarehouseRepository
	logger *zap.Logger
}

// NewWarehouseService creates a new WarehouseService
func NewWarehouseService(repo warehouse.WarehouseRepository, logger *zap.Logger) *WarehouseService {
	return &WarehouseService{repo: repo, logger: logger}
}

// CreateWarehouse registers a warehouse with a unique code
func (s *WarehouseService) CreateWarehouse(ctx context.Context, cmd CreateWarehouseCommand) (*warehouse.Warehouse, error) {
	if _, err := s.repo.FindByCode(ctx, cmd.Code); err == nil {
		return nil, shared.NewDomainError("DUPLICATE_REFERENCE", "A warehouse with this code already exists")
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("checking warehouse code: %w", err)
	}

	wh, err := warehouse.NewWarehouse(cmd.Code, cmd.Name, cmd.Owned, cmd.Priority)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, wh); err != nil {
		return nil, fmt.Errorf("saving warehouse: %w", err)
	}

	s.logger.Info("created warehouse",
		zap.String("warehouse_id", wh.ID.String()),
		zap.String("code", wh.Code),
		zap.Bool("owned", wh.Owned))
	return wh, nil
}

// UpdateWarehouseCommand carries the mutable warehouse fields. Nil means
// leave the field unchanged.
type UpdateWarehouseCommand struct {
	Name     *string
	Priority *int
}

// UpdateWarehouse renames a warehouse or changes its allocation priority.
// Code and ownership are fixed at registration.
func (s *WarehouseService) UpdateWarehouse(ctx context.Context, id uuid.UUID, cmd UpdateWarehouseCommand) (*warehouse.Warehouse, error) {
	wh, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cmd.Name != nil {
		if err := wh.Rename(*cmd.Name); err != nil {
			return nil, err
		}
	}
	if cmd.Priority != nil {
		wh.SetPriority(*cmd.Priority)
	}
	if err := s.repo.Save(ctx, wh); err != nil {
		return nil, fmt.Errorf("saving warehouse: %w", err)
	}

	s.logger.Info("updated warehouse",
		zap.String("warehouse_id", wh.ID.String()),
		zap.String("code", wh.Code))
	return wh, nil
}

// GetWarehouse finds a warehouse by ID
func (s *WarehouseService) GetWarehouse(ctx context.Context, id uuid.UUID) (*warehouse.Warehouse, error) {
	return s.repo.FindByID(ctx, id)
}

// ListWarehouses returns warehouses matching the filter
func (s *WarehouseService) ListWarehouses(ctx context.Context, filter shared.Filter) ([]warehouse.Warehouse, error) {
	return s.repo.FindAll(ctx, filter)
}

// ListOwned returns the owned warehouses in allocation priority order
func (s *WarehouseService) ListOwned(ctx context.Context) ([]warehouse.Warehouse, error) {
	return s.repo.FindOwned(ctx)
}
