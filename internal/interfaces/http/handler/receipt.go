package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	purchasingapp "github.com/dirac/fulfillment/internal/application/purchasing"
	"github.com/dirac/fulfillment/internal/domain/purchasing"
)

// ReceiptHandler handles goods-in receipt endpoints
type ReceiptHandler struct {
	BaseHandler
	service *purchasingapp.ReceiptService
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(service *purchasingapp.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{service: service}
}

// StartReceiptRequest is the request body for opening a receipt session
type StartReceiptRequest struct {
	ShipmentID uuid.UUID `json:"shipment_id" binding:"required"`
	StartedBy  string    `json:"started_by" binding:"max=100"`
}

// CheckInRequest is the request body for counting goods against a receipt.
// Exactly one of item_id and variant_id must be set: item_id counts against
// a specific purchase order item, variant_id lets the receipt spread the
// count across the shipment's items for that variant.
type CheckInRequest struct {
	ItemID    *uuid.UUID `json:"item_id"`
	VariantID *uuid.UUID `json:"variant_id"`
	Quantity  int        `json:"quantity" binding:"required,min=1"`
}

// ReceiptLineResponse is the transport shape of a receipt line
type ReceiptLineResponse struct {
	ID                  uuid.UUID `json:"id"`
	PurchaseOrderItemID uuid.UUID `json:"purchase_order_item_id"`
	VariantID           uuid.UUID `json:"variant_id"`
	Quantity            int       `json:"quantity"`
}

// ReceiptResponse is the transport shape of a receipt
type ReceiptResponse struct {
	ID          uuid.UUID                `json:"id"`
	ShipmentID  uuid.UUID                `json:"shipment_id"`
	Status      purchasing.ReceiptStatus `json:"status"`
	StartedBy   string                   `json:"started_by,omitempty"`
	CompletedAt *time.Time               `json:"completed_at,omitempty"`
	Lines       []ReceiptLineResponse    `json:"lines"`
	CreatedAt   time.Time                `json:"created_at"`
}

func toReceiptResponse(receipt *purchasing.Receipt) ReceiptResponse {
	lines := make([]ReceiptLineResponse, 0, len(receipt.Lines))
	for i := range receipt.Lines {
		l := &receipt.Lines[i]
		lines = append(lines, ReceiptLineResponse{
			ID:                  l.ID,
			PurchaseOrderItemID: l.PurchaseOrderItemID,
			VariantID:           l.VariantID,
			Quantity:            l.Quantity,
		})
	}
	return ReceiptResponse{
		ID:          receipt.ID,
		ShipmentID:  receipt.ShipmentID,
		Status:      receipt.Status,
		StartedBy:   receipt.StartedBy,
		CompletedAt: receipt.CompletedAt,
		Lines:       lines,
		CreatedAt:   receipt.CreatedAt,
	}
}

// Start opens a receipt session against an inbound shipment
func (h *ReceiptHandler) Start(c *gin.Context) {
	var req StartReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	receipt, err := h.service.StartReceipt(c.Request.Context(), req.ShipmentID, req.StartedBy)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, toReceiptResponse(receipt))
}

// Get returns one receipt with its lines
func (h *ReceiptHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid receipt ID")
		return
	}

	receipt, err := h.service.GetReceipt(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toReceiptResponse(receipt))
}

// CheckIn counts goods against the receipt
func (h *ReceiptHandler) CheckIn(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid receipt ID")
		return
	}

	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var err error
	switch {
	case req.ItemID != nil && req.VariantID != nil:
		h.BadRequest(c, "Provide either item_id or variant_id, not both")
		return
	case req.ItemID != nil:
		err = h.service.CheckIn(c.Request.Context(), id, *req.ItemID, req.Quantity)
	case req.VariantID != nil:
		err = h.service.CheckInVariant(c.Request.Context(), id, *req.VariantID, req.Quantity)
	default:
		h.BadRequest(c, "Either item_id or variant_id is required")
		return
	}
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	receipt, err := h.service.GetReceipt(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toReceiptResponse(receipt))
}

// Finish settles the receipt: shortfalls become processed adjustments,
// goods move into the owned destination warehouse and sourced allocations
// follow them.
func (h *ReceiptHandler) Finish(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid receipt ID")
		return
	}

	if err := h.service.FinishReceipt(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	receipt, err := h.service.GetReceipt(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toReceiptResponse(receipt))
}

// RegisterRoutes registers all receipt routes
func (h *ReceiptHandler) RegisterRoutes(rg *gin.RouterGroup) {
	receipts := rg.Group("/receipts")
	{
		receipts.POST("", h.Start)
		receipts.GET("/:id", h.Get)
		receipts.POST("/:id/check-in", h.CheckIn)
		receipts.POST("/:id/finish", h.Finish)
	}
}
