package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	purchasingapp "github.com/dirac/fulfillment/internal/application/purchasing"
	"github.com/dirac/fulfillment/internal/domain/purchasing"
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/dirac/fulfillment/internal/domain/shared/valueobject"
	"github.com/dirac/fulfillment/internal/interfaces/http/dto"
)

// PurchaseOrderHandler handles purchase order and adjustment endpoints
type PurchaseOrderHandler struct {
	BaseHandler
	service *purchasingapp.PurchaseOrderService
}

// NewPurchaseOrderHandler creates a new PurchaseOrderHandler
func NewPurchaseOrderHandler(service *purchasingapp.PurchaseOrderService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{service: service}
}

// CreatePurchaseOrderItemRequest is one item on a new purchase order
type CreatePurchaseOrderItemRequest struct {
	VariantID  uuid.UUID       `json:"variant_id" binding:"required"`
	Quantity   int             `json:"quantity" binding:"required,min=1"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// CreatePurchaseOrderRequest is the request body for creating a purchase order
type CreatePurchaseOrderRequest struct {
	Reference              string                           `json:"reference" binding:"required,min=1,max=100"`
	SourceWarehouseID      uuid.UUID                        `json:"source_warehouse_id" binding:"required"`
	DestinationWarehouseID uuid.UUID                        `json:"destination_warehouse_id" binding:"required"`
	Currency               string                           `json:"currency" binding:"required,currency"`
	Items                  []CreatePurchaseOrderItemRequest `json:"items" binding:"omitempty,dive"`
}

// AttachShipmentRequest is the request body for linking an item to an
// inbound shipment
type AttachShipmentRequest struct {
	ShipmentID uuid.UUID `json:"shipment_id" binding:"required"`
}

// ConfirmInvoiceRequest is the request body for confirming the supplier's
// final invoice on a purchase order
type ConfirmInvoiceRequest struct {
	Number string          `json:"number" binding:"required,min=1,max=100"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// RepriceItemRequest is the request body for correcting the buy price on
// the units of a purchase order item
type RepriceItemRequest struct {
	BuyPrice decimal.Decimal `json:"buy_price" binding:"required"`
	BuyVAT   decimal.Decimal `json:"buy_vat"`
}

// CreateAdjustmentRequest is the request body for recording a quantity
// correction against a purchase order item
type CreateAdjustmentRequest struct {
	QuantityChange int    `json:"quantity_change" binding:"required"`
	Reason         string `json:"reason" binding:"required"`
	AffectsPayable bool   `json:"affects_payable"`
	Notes          string `json:"notes"`
}

// AdjustmentResponse is the transport shape of an adjustment
type AdjustmentResponse struct {
	ID                  uuid.UUID  `json:"id"`
	PurchaseOrderItemID uuid.UUID  `json:"purchase_order_item_id"`
	QuantityChange      int        `json:"quantity_change"`
	Reason              string     `json:"reason"`
	AffectsPayable      bool       `json:"affects_payable"`
	Notes               string     `json:"notes,omitempty"`
	ProcessedAt         *time.Time `json:"processed_at,omitempty"`
}

// PurchaseOrderItemResponse is the transport shape of a purchase order item
type PurchaseOrderItemResponse struct {
	ID                uuid.UUID                          `json:"id"`
	PurchaseOrderID   uuid.UUID                          `json:"purchase_order_id"`
	VariantID         uuid.UUID                          `json:"variant_id"`
	QuantityOrdered   int                                `json:"quantity_ordered"`
	QuantityReceived  int                                `json:"quantity_received"`
	QuantityAllocated int                                `json:"quantity_allocated"`
	TotalPrice        decimal.Decimal                    `json:"total_price"`
	Status            purchasing.PurchaseOrderItemStatus `json:"status"`
	ShipmentID        *uuid.UUID                         `json:"shipment_id,omitempty"`
	ConfirmedAt       *time.Time                         `json:"confirmed_at,omitempty"`
	Adjustments       []AdjustmentResponse               `json:"adjustments,omitempty"`
}

// PurchaseOrderResponse is the transport shape of a purchase order
type PurchaseOrderResponse struct {
	ID                     uuid.UUID                   `json:"id"`
	Reference              string                      `json:"reference"`
	SourceWarehouseID      uuid.UUID                   `json:"source_warehouse_id"`
	DestinationWarehouseID uuid.UUID                   `json:"destination_warehouse_id"`
	Currency               string                      `json:"currency"`
	Items                  []PurchaseOrderItemResponse `json:"items"`
	CreatedAt              time.Time                   `json:"created_at"`
}

func toAdjustmentResponse(adj *purchasing.PurchaseOrderItemAdjustment) AdjustmentResponse {
	return AdjustmentResponse{
		ID:                  adj.ID,
		PurchaseOrderItemID: adj.PurchaseOrderItemID,
		QuantityChange:      adj.QuantityChange,
		Reason:              adj.Reason.String(),
		AffectsPayable:      adj.AffectsPayable,
		Notes:               adj.Notes,
		ProcessedAt:         adj.ProcessedAt,
	}
}

func toPurchaseOrderItemResponse(item *purchasing.PurchaseOrderItem) PurchaseOrderItemResponse {
	resp := PurchaseOrderItemResponse{
		ID:                item.ID,
		PurchaseOrderID:   item.PurchaseOrderID,
		VariantID:         item.VariantID,
		QuantityOrdered:   item.QuantityOrdered,
		QuantityReceived:  item.QuantityReceived,
		QuantityAllocated: item.QuantityAllocated,
		TotalPrice:        item.TotalPrice,
		Status:            item.Status,
		ShipmentID:        item.ShipmentID,
		ConfirmedAt:       item.ConfirmedAt,
	}
	for i := range item.Adjustments {
		resp.Adjustments = append(resp.Adjustments, toAdjustmentResponse(&item.Adjustments[i]))
	}
	return resp
}

func toPurchaseOrderResponse(po *purchasing.PurchaseOrder) PurchaseOrderResponse {
	items := make([]PurchaseOrderItemResponse, 0, len(po.Items))
	for i := range po.Items {
		items = append(items, toPurchaseOrderItemResponse(&po.Items[i]))
	}
	return PurchaseOrderResponse{
		ID:                     po.ID,
		Reference:              po.Reference,
		SourceWarehouseID:      po.SourceWarehouseID,
		DestinationWarehouseID: po.DestinationWarehouseID,
		Currency:               string(po.Currency),
		Items:                  items,
		CreatedAt:              po.CreatedAt,
	}
}

// Create creates a purchase order with its draft items
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req CreatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	cmd := purchasingapp.CreatePurchaseOrderCommand{
		Reference:              req.Reference,
		SourceWarehouseID:      req.SourceWarehouseID,
		DestinationWarehouseID: req.DestinationWarehouseID,
		Currency:               valueobject.Currency(req.Currency),
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, purchasingapp.CreatePurchaseOrderItemInput{
			VariantID:  item.VariantID,
			Quantity:   item.Quantity,
			TotalPrice: item.TotalPrice,
		})
	}

	po, err := h.service.CreatePurchaseOrder(c.Request.Context(), cmd)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, toPurchaseOrderResponse(po))
}

// Get returns one purchase order with its items
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid purchase order ID")
		return
	}

	po, err := h.service.GetPurchaseOrder(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toPurchaseOrderResponse(po))
}

// List returns purchase orders matching the query
func (h *PurchaseOrderHandler) List(c *gin.Context) {
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
	}

	orders, err := h.service.ListPurchaseOrders(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]PurchaseOrderResponse, 0, len(orders))
	for _, po := range orders {
		responses = append(responses, toPurchaseOrderResponse(po))
	}
	h.SuccessWithMeta(c, responses, filter.Page, filter.PageSize, len(responses))
}

// AddItem appends a draft item to an existing purchase order
func (h *PurchaseOrderHandler) AddItem(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid purchase order ID")
		return
	}

	var req CreatePurchaseOrderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	item, err := h.service.AddItem(c.Request.Context(), id, purchasingapp.CreatePurchaseOrderItemInput{
		VariantID:  req.VariantID,
		Quantity:   req.Quantity,
		TotalPrice: req.TotalPrice,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, toPurchaseOrderItemResponse(item))
}

// ConfirmItem confirms a purchase order item. Units materialize at the
// source warehouse, waiting unsourced allocations get covered, and orders
// whose coverage is now complete are confirmed in the same transaction.
func (h *PurchaseOrderHandler) ConfirmItem(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid purchase order item ID")
		return
	}

	affectedOrders, err := h.service.ConfirmItem(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, gin.H{"item_id": id, "affected_order_ids": affectedOrders})
}

// ConfirmInvoice records the supplier's final invoice for a purchase order
// and freezes the buy price on every unit the order produced
func (h *PurchaseOrderHandler) ConfirmInvoice(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid purchase order ID")
		return
	}

	var req ConfirmInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	invoice, err := h.service.ConfirmPurchaseInvoice(c.Request.Context(), id, req.Number, req.Amount)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, gin.H{
		"id":        invoice.ID,
		"number":    invoice.Number,
		"type":      invoice.Type.String(),
		"amount":    invoice.Amount,
		"pushed_at": invoice.PushedAt,
	})
}

// RepriceItem corrects the buy price and VAT on the units of one purchase
// order item. Rejected with PRICE_FROZEN once the final purchase invoice
// is confirmed.
func (h *PurchaseOrderHandler) RepriceItem(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid purchase order item ID")
		return
	}

	var req RepriceItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	repriced, err := h.service.RepriceItemUnits(c.Request.Context(), id, req.BuyPrice, req.BuyVAT)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, gin.H{"item_id": id, "units_repriced": repriced})
}

// AttachShipment links a purchase order item to an inbound shipment
func (h *PurchaseOrderHandler) AttachShipment(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid purchase order item ID")
		return
	}

	var req AttachShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.service.AttachShipment(c.Request.Context(), id, req.ShipmentID); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// CreateAdjustment records a quantity correction against an item
func (h *PurchaseOrderHandler) CreateAdjustment(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid purchase order item ID")
		return
	}

	var req CreateAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	reason := purchasing.AdjustmentReason(req.Reason)
	adj, err := h.service.CreateAdjustment(c.Request.Context(), id, req.QuantityChange, reason, req.AffectsPayable, req.Notes)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, toAdjustmentResponse(adj))
}

// ProcessAdjustment applies a pending adjustment. Negative changes write
// off unarrived units and trim excess allocation promises.
func (h *PurchaseOrderHandler) ProcessAdjustment(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid adjustment ID")
		return
	}

	if err := h.service.ProcessAdjustment(c.Request.Context(), id); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes registers all purchase order routes
func (h *PurchaseOrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/purchase-orders")
	{
		orders.POST("", h.Create)
		orders.GET("", h.List)
		orders.GET("/:id", h.Get)
		orders.POST("/:id/items", h.AddItem)
		orders.POST("/:id/invoice", h.ConfirmInvoice)
	}

	items := rg.Group("/purchase-order-items")
	{
		items.POST("/:id/confirm", h.ConfirmItem)
		items.PUT("/:id/shipment", h.AttachShipment)
		items.PUT("/:id/price", h.RepriceItem)
		items.POST("/:id/adjustments", h.CreateAdjustment)
	}

	adjustments := rg.Group("/adjustments")
	{
		adjustments.POST("/:id/process", h.ProcessAdjustment)
	}
}
