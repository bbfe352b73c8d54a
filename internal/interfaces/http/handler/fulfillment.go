package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	fulfillmentapp "github.com/dirac/fulfillment/internal/application/fulfillment"
	"github.com/dirac/fulfillment/internal/domain/fulfillment"
)

// FulfillmentHandler handles fulfillment and picking endpoints
type FulfillmentHandler struct {
	BaseHandler
	service *fulfillmentapp.FulfillmentService
}

// NewFulfillmentHandler creates a new FulfillmentHandler
func NewFulfillmentHandler(service *fulfillmentapp.FulfillmentService) *FulfillmentHandler {
	return &FulfillmentHandler{service: service}
}

// LinkShipmentRequest is the request body for linking a fulfillment to its
// outbound shipment
type LinkShipmentRequest struct {
	ShipmentID uuid.UUID `json:"shipment_id" binding:"required"`
}

// ProformaPaidRequest is the request body for recording an external
// payment confirmation. An absent paid_at defaults to now.
type ProformaPaidRequest struct {
	PaidAt *time.Time `json:"paid_at"`
}

// RecordPickedRequest is the request body for counting picked goods
type RecordPickedRequest struct {
	OrderLineID uuid.UUID `json:"order_line_id" binding:"required"`
	Quantity    int       `json:"quantity" binding:"required,min=1"`
}

// FulfillmentLineResponse is the transport shape of a fulfillment line
type FulfillmentLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	OrderLineID uuid.UUID       `json:"order_line_id"`
	VariantID   uuid.UUID       `json:"variant_id"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// FulfillmentResponse is the transport shape of a fulfillment
type FulfillmentResponse struct {
	ID                  uuid.UUID                     `json:"id"`
	OrderID             uuid.UUID                     `json:"order_id"`
	WarehouseID         uuid.UUID                     `json:"warehouse_id"`
	Status              fulfillment.FulfillmentStatus `json:"status"`
	ShipmentID          *uuid.UUID                    `json:"shipment_id,omitempty"`
	ProformaInvoiceID   *uuid.UUID                    `json:"proforma_invoice_id,omitempty"`
	ProformaInvoicePaid bool                          `json:"proforma_invoice_paid"`
	ProformaPaidAt      *time.Time                    `json:"proforma_paid_at,omitempty"`
	DepositAllocated    decimal.Decimal               `json:"deposit_allocated"`
	FulfilledAt         *time.Time                    `json:"fulfilled_at,omitempty"`
	Lines               []FulfillmentLineResponse     `json:"lines"`
	CreatedAt           time.Time                     `json:"created_at"`
}

// PickItemResponse is the transport shape of a pick item
type PickItemResponse struct {
	ID               uuid.UUID `json:"id"`
	OrderLineID      uuid.UUID `json:"order_line_id"`
	VariantID        uuid.UUID `json:"variant_id"`
	QuantityRequired int       `json:"quantity_required"`
	QuantityPicked   int       `json:"quantity_picked"`
}

// PickResponse is the transport shape of a picking run
type PickResponse struct {
	ID            uuid.UUID              `json:"id"`
	FulfillmentID uuid.UUID              `json:"fulfillment_id"`
	Status        fulfillment.PickStatus `json:"status"`
	StartedAt     *time.Time             `json:"started_at,omitempty"`
	CompletedAt   *time.Time             `json:"completed_at,omitempty"`
	Items         []PickItemResponse     `json:"items"`
}

func toFulfillmentResponse(f *fulfillment.Fulfillment) FulfillmentResponse {
	lines := make([]FulfillmentLineResponse, 0, len(f.Lines))
	for i := range f.Lines {
		l := &f.Lines[i]
		lines = append(lines, FulfillmentLineResponse{
			ID:          l.ID,
			OrderLineID: l.OrderLineID,
			VariantID:   l.VariantID,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		})
	}
	return FulfillmentResponse{
		ID:                  f.ID,
		OrderID:             f.OrderID,
		WarehouseID:         f.WarehouseID,
		Status:              f.Status,
		ShipmentID:          f.ShipmentID,
		ProformaInvoiceID:   f.ProformaInvoiceID,
		ProformaInvoicePaid: f.ProformaInvoicePaid,
		ProformaPaidAt:      f.ProformaPaidAt,
		DepositAllocated:    f.DepositAllocated,
		FulfilledAt:         f.FulfilledAt,
		Lines:               lines,
		CreatedAt:           f.CreatedAt,
	}
}

func toPickResponse(pick *fulfillment.Pick) PickResponse {
	items := make([]PickItemResponse, 0, len(pick.Items))
	for i := range pick.Items {
		item := &pick.Items[i]
		items = append(items, PickItemResponse{
			ID:               item.ID,
			OrderLineID:      item.OrderLineID,
			VariantID:        item.VariantID,
			QuantityRequired: item.QuantityRequired,
			QuantityPicked:   item.QuantityPicked,
		})
	}
	return PickResponse{
		ID:            pick.ID,
		FulfillmentID: pick.FulfillmentID,
		Status:        pick.Status,
		StartedAt:     pick.StartedAt,
		CompletedAt:   pick.CompletedAt,
		Items:         items,
	}
}

// Get returns one fulfillment with its lines
func (h *FulfillmentHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid fulfillment ID")
		return
	}

	f, err := h.service.GetFulfillment(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toFulfillmentResponse(f))
}

// ListByOrder returns an order's fulfillments in creation order
func (h *FulfillmentHandler) ListByOrder(c *gin.Context) {
	orderID, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	all, err := h.service.ListByOrder(c.Request.Context(), orderID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]FulfillmentResponse, 0, len(all))
	for _, f := range all {
		responses = append(responses, toFulfillmentResponse(f))
	}
	h.Success(c, responses)
}

// LinkShipment links a fulfillment to its outbound shipment and
// re-evaluates the approval predicate
func (h *FulfillmentHandler) LinkShipment(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid fulfillment ID")
		return
	}

	var req LinkShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.service.LinkShipment(c.Request.Context(), id, req.ShipmentID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	f, err := h.service.GetFulfillment(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toFulfillmentResponse(f))
}

// MarkProformaPaid records the external payment confirmation and
// re-evaluates the approval predicate
func (h *FulfillmentHandler) MarkProformaPaid(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid fulfillment ID")
		return
	}

	var req ProformaPaidRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, err.Error())
			return
		}
	}
	paidAt := time.Now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}

	if err := h.service.MarkProformaPaid(c.Request.Context(), id, paidAt); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	f, err := h.service.GetFulfillment(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toFulfillmentResponse(f))
}

// GetPick returns one picking run with its items
func (h *FulfillmentHandler) GetPick(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid pick ID")
		return
	}

	pick, err := h.service.GetPick(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toPickResponse(pick))
}

// StartPick opens the picking run
func (h *FulfillmentHandler) StartPick(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid pick ID")
		return
	}

	if err := h.service.StartPick(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	pick, err := h.service.GetPick(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toPickResponse(pick))
}

// RecordPicked counts picked goods against the run's item for one order
// line
func (h *FulfillmentHandler) RecordPicked(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid pick ID")
		return
	}

	var req RecordPickedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.service.RecordPicked(c.Request.Context(), id, req.OrderLineID, req.Quantity); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	pick, err := h.service.GetPick(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toPickResponse(pick))
}

// CompletePick closes the run. Every item must be fully picked; the picked
// units leave their stock and the approval predicate is re-evaluated.
func (h *FulfillmentHandler) CompletePick(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid pick ID")
		return
	}

	if err := h.service.CompletePick(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	pick, err := h.service.GetPick(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toPickResponse(pick))
}

// RegisterRoutes registers all fulfillment and pick routes
func (h *FulfillmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	fulfillments := rg.Group("/fulfillments")
	{
		fulfillments.GET("/:id", h.Get)
		fulfillments.PUT("/:id/shipment", h.LinkShipment)
		fulfillments.POST("/:id/proforma-paid", h.MarkProformaPaid)
	}

	picks := rg.Group("/picks")
	{
		picks.GET("/:id", h.GetPick)
		picks.POST("/:id/start", h.StartPick)
		picks.POST("/:id/items", h.RecordPicked)
		picks.POST("/:id/complete", h.CompletePick)
	}

	rg.GET("/orders/:id/fulfillments", h.ListByOrder)
}
