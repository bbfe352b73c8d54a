package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	shippingapp "github.com/dirac/fulfillment/internal/application/shipping"
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/dirac/fulfillment/internal/domain/shipping"
	"github.com/dirac/fulfillment/internal/interfaces/http/dto"
)

// ShipmentHandler handles shipment endpoints
type ShipmentHandler struct {
	BaseHandler
	service *shippingapp.ShipmentService
}

// NewShipmentHandler creates a new ShipmentHandler
func NewShipmentHandler(service *shippingapp.ShipmentService) *ShipmentHandler {
	return &ShipmentHandler{service: service}
}

// CreateShipmentRequest is the request body for planning a shipment
type CreateShipmentRequest struct {
	Reference   string    `json:"reference" binding:"required,min=1,max=100"`
	Direction   string    `json:"direction" binding:"required,oneof=INBOUND OUTBOUND"`
	WarehouseID uuid.UUID `json:"warehouse_id" binding:"required"`
	Carrier     string    `json:"carrier" binding:"max=100"`
	TrackingRef string    `json:"tracking_ref" binding:"max=200"`
}

// ShipmentResponse is the transport shape of a shipment
type ShipmentResponse struct {
	ID          uuid.UUID               `json:"id"`
	Reference   string                  `json:"reference"`
	Direction   shipping.Direction      `json:"direction"`
	Status      shipping.ShipmentStatus `json:"status"`
	WarehouseID uuid.UUID               `json:"warehouse_id"`
	Carrier     string                  `json:"carrier,omitempty"`
	TrackingRef string                  `json:"tracking_ref,omitempty"`
	DepartedAt  *time.Time              `json:"departed_at,omitempty"`
	ArrivedAt   *time.Time              `json:"arrived_at,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

func toShipmentResponse(s *shipping.Shipment) ShipmentResponse {
	return ShipmentResponse{
		ID:          s.ID,
		Reference:   s.Reference,
		Direction:   s.Direction,
		Status:      s.Status,
		WarehouseID: s.WarehouseID,
		Carrier:     s.Carrier,
		TrackingRef: s.TrackingRef,
		DepartedAt:  s.DepartedAt,
		ArrivedAt:   s.ArrivedAt,
		CreatedAt:   s.CreatedAt,
	}
}

// Create plans a new shipment
func (h *ShipmentHandler) Create(c *gin.Context) {
	var req CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	shipment, err := h.service.CreateShipment(c.Request.Context(), shippingapp.CreateShipmentCommand{
		Reference:   req.Reference,
		Direction:   shipping.Direction(req.Direction),
		WarehouseID: req.WarehouseID,
		Carrier:     req.Carrier,
		TrackingRef: req.TrackingRef,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, toShipmentResponse(shipment))
}

// Get returns one shipment
func (h *ShipmentHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid shipment ID")
		return
	}

	shipment, err := h.service.GetShipment(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toShipmentResponse(shipment))
}

// List returns shipments travelling the queried direction
func (h *ShipmentHandler) List(c *gin.Context) {
	direction := shipping.Direction(c.Query("direction"))
	if !direction.IsValid() {
		h.BadRequest(c, "Query parameter direction must be INBOUND or OUTBOUND")
		return
	}

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
	if status := c.Query("status"); status != "" {
		filter.Filters["status"] = status
	}

	shipments, err := h.service.ListByDirection(c.Request.Context(), direction, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]ShipmentResponse, 0, len(shipments))
	for _, s := range shipments {
		responses = append(responses, toShipmentResponse(s))
	}
	h.SuccessWithMeta(c, responses, filter.Page, filter.PageSize, len(responses))
}

// Depart marks a planned shipment as having left its origin
func (h *ShipmentHandler) Depart(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid shipment ID")
		return
	}

	shipment, err := h.service.DepartShipment(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toShipmentResponse(shipment))
}

// Cancel cancels a planned shipment
func (h *ShipmentHandler) Cancel(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid shipment ID")
		return
	}

	shipment, err := h.service.CancelShipment(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toShipmentResponse(shipment))
}

// RegisterRoutes registers all shipment routes
func (h *ShipmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	shipments := rg.Group("/shipments")
	{
		shipments.POST("", h.Create)
		shipments.GET("", h.List)
		shipments.GET("/:id", h.Get)
		shipments.POST("/:id/depart", h.Depart)
		shipments.POST("/:id/cancel", h.Cancel)
	}
}
