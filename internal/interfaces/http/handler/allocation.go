package handler

import (
	"time"

	allocationapp "github.com/dirac/fulfillment/internal/application/allocation"
	"github.com/dirac/fulfillment/internal/domain/allocation"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AllocationHandler exposes explicit stock reservation endpoints. Order
// creation allocates implicitly; these routes cover manual top-ups and
// releases on existing lines.
type AllocationHandler struct {
	BaseHandler
	service *allocationapp.AllocationService
}

// NewAllocationHandler creates a new AllocationHandler
func NewAllocationHandler(service *allocationapp.AllocationService) *AllocationHandler {
	return &AllocationHandler{service: service}
}

// AllocationQuantityRequest is the request body for allocating or
// releasing stock on an order line
type AllocationQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// AllocationSourceResponse is the transport shape of a source promise
type AllocationSourceResponse struct {
	ID                  uuid.UUID `json:"id"`
	PurchaseOrderItemID uuid.UUID `json:"purchase_order_item_id"`
	Quantity            int       `json:"quantity"`
}

// AllocationResponse is the transport shape of an allocation
type AllocationResponse struct {
	ID          uuid.UUID                  `json:"id"`
	OrderID     uuid.UUID                  `json:"order_id"`
	OrderLineID uuid.UUID                  `json:"order_line_id"`
	StockID     uuid.UUID                  `json:"stock_id"`
	WarehouseID uuid.UUID                  `json:"warehouse_id"`
	VariantID   uuid.UUID                  `json:"variant_id"`
	Quantity    int                        `json:"quantity"`
	Sources     []AllocationSourceResponse `json:"sources"`
	CreatedAt   time.Time                  `json:"created_at"`
}

func toAllocationResponse(a *allocation.Allocation) AllocationResponse {
	sources := make([]AllocationSourceResponse, 0, len(a.Sources))
	for i := range a.Sources {
		src := &a.Sources[i]
		sources = append(sources, AllocationSourceResponse{
			ID:                  src.ID,
			PurchaseOrderItemID: src.PurchaseOrderItemID,
			Quantity:            src.Quantity,
		})
	}
	return AllocationResponse{
		ID:          a.ID,
		OrderID:     a.OrderID,
		OrderLineID: a.OrderLineID,
		StockID:     a.StockID,
		WarehouseID: a.WarehouseID,
		VariantID:   a.VariantID,
		Quantity:    a.Quantity,
		Sources:     sources,
		CreatedAt:   a.CreatedAt,
	}
}

// Allocate reserves additional quantity for an order line
func (h *AllocationHandler) Allocate(c *gin.Context) {
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}
	lineID, ok := parseUUIDParam(c, "line_id")
	if !ok {
		h.BadRequest(c, "Invalid order line ID")
		return
	}

	var req AllocationQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.service.AllocateOrderLine(c.Request.Context(), orderID, lineID, req.Quantity); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// Release returns reserved quantity from an order line to its stocks
func (h *AllocationHandler) Release(c *gin.Context) {
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}
	lineID, ok := parseUUIDParam(c, "line_id")
	if !ok {
		h.BadRequest(c, "Invalid order line ID")
		return
	}

	var req AllocationQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.service.ReleaseOrderLine(c.Request.Context(), orderID, lineID, req.Quantity); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// ListByOrder returns every allocation held by an order's lines
func (h *AllocationHandler) ListByOrder(c *gin.Context) {
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	allocs, err := h.service.ListByOrder(c.Request.Context(), orderID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]AllocationResponse, 0, len(allocs))
	for _, a := range allocs {
		responses = append(responses, toAllocationResponse(a))
	}
	h.Success(c, responses)
}

// RegisterRoutes registers all allocation routes
func (h *AllocationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/orders/:id/allocations", h.ListByOrder)
	rg.POST("/orders/:id/lines/:line_id/allocations", h.Allocate)
	rg.POST("/orders/:id/lines/:line_id/allocations/release", h.Release)
}
