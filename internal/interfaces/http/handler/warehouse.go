package handler

import (
	"time"

	warehouseapp "github.com/dirac/fulfillment/internal/application/warehouse"
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/dirac/fulfillment/internal/domain/warehouse"
	"github.com/dirac/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WarehouseHandler handles warehouse registry endpoints
type WarehouseHandler struct {
	BaseHandler
	service *warehouseapp.WarehouseService
}

// NewWarehouseHandler creates a new WarehouseHandler
func NewWarehouseHandler(service *warehouseapp.WarehouseService) *WarehouseHandler {
	return &WarehouseHandler{service: service}
}

// CreateWarehouseRequest is the request body for registering a warehouse
type CreateWarehouseRequest struct {
	Code     string `json:"code" binding:"required,min=1,max=50"`
	Name     string `json:"name" binding:"required,min=1,max=200"`
	Owned    bool   `json:"owned"`
	Priority int    `json:"priority" binding:"min=0"`
}

// WarehouseResponse is the transport shape of a warehouse
type WarehouseResponse struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Owned     bool      `json:"owned"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

func toWarehouseResponse(wh *warehouse.Warehouse) WarehouseResponse {
	return WarehouseResponse{
		ID:        wh.ID,
		Code:      wh.Code,
		Name:      wh.Name,
		Owned:     wh.Owned,
		Priority:  wh.Priority,
		CreatedAt: wh.CreatedAt,
	}
}

// Create registers a new warehouse
func (h *WarehouseHandler) Create(c *gin.Context) {
	var req CreateWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	wh, err := h.service.CreateWarehouse(c.Request.Context(), warehouseapp.CreateWarehouseCommand{
		Code:     req.Code,
		Name:     req.Name,
		Owned:    req.Owned,
		Priority: req.Priority,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, toWarehouseResponse(wh))
}

// UpdateWarehouseRequest is the request body for updating a warehouse.
// Omitted fields stay unchanged.
type UpdateWarehouseRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=200"`
	Priority *int    `json:"priority" binding:"omitempty,min=0"`
}

// Update renames a warehouse or changes its allocation priority
func (h *WarehouseHandler) Update(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid warehouse ID")
		return
	}

	var req UpdateWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	wh, err := h.service.UpdateWarehouse(c.Request.Context(), id, warehouseapp.UpdateWarehouseCommand{
		Name:     req.Name,
		Priority: req.Priority,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toWarehouseResponse(wh))
}

// Get returns one warehouse
func (h *WarehouseHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid warehouse ID")
		return
	}

	wh, err := h.service.GetWarehouse(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toWarehouseResponse(wh))
}

// List returns warehouses matching the query
func (h *WarehouseHandler) List(c *gin.Context) {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
		Filters:  map[string]interface{}{},
	}
	if owned := c.Query("owned"); owned != "" {
		filter.Filters["owned"] = owned == "true"
	}

	warehouses, err := h.service.ListWarehouses(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]WarehouseResponse, 0, len(warehouses))
	for i := range warehouses {
		responses = append(responses, toWarehouseResponse(&warehouses[i]))
	}
	h.SuccessWithMeta(c, responses, filter.Page, filter.PageSize, len(responses))
}

// ListOwned returns the owned warehouses in allocation priority order
func (h *WarehouseHandler) ListOwned(c *gin.Context) {
	warehouses, err := h.service.ListOwned(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]WarehouseResponse, 0, len(warehouses))
	for i := range warehouses {
		responses = append(responses, toWarehouseResponse(&warehouses[i]))
	}
	h.Success(c, responses)
}

// RegisterRoutes registers all warehouse routes
func (h *WarehouseHandler) RegisterRoutes(rg *gin.RouterGroup) {
	warehouses := rg.Group("/warehouses")
	{
		warehouses.POST("", h.Create)
		warehouses.GET("", h.List)
		warehouses.GET("/owned", h.ListOwned)
		warehouses.GET("/:id", h.Get)
		warehouses.PUT("/:id", h.Update)
	}
}
