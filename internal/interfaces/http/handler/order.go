package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	orderapp "github.com/dirac/fulfillment/internal/application/order"
	"github.com/dirac/fulfillment/internal/domain/order"
	"github.com/dirac/fulfillment/internal/domain/shared"
	"github.com/dirac/fulfillment/internal/domain/shared/valueobject"
	"github.com/dirac/fulfillment/internal/interfaces/http/dto"
)

// OrderHandler handles customer order endpoints
type OrderHandler struct {
	BaseHandler
	service *orderapp.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(service *orderapp.OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// CreateOrderLineRequest is one demanded variant on a new order
type CreateOrderLineRequest struct {
	VariantID uuid.UUID       `json:"variant_id" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CreateOrderRequest is the request body for creating an order
type CreateOrderRequest struct {
	Reference     string                   `json:"reference" binding:"required,min=1,max=100"`
	CustomerName  string                   `json:"customer_name" binding:"max=200"`
	Currency      string                   `json:"currency" binding:"required,currency"`
	DepositAmount decimal.Decimal          `json:"deposit_amount"`
	Lines         []CreateOrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// SetDepositRequest is the request body for changing an order's deposit
type SetDepositRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// OrderLineResponse is the transport shape of an order line
type OrderLineResponse struct {
	ID        uuid.UUID       `json:"id"`
	VariantID uuid.UUID       `json:"variant_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderResponse is the transport shape of an order
type OrderResponse struct {
	ID            uuid.UUID           `json:"id"`
	Reference     string              `json:"reference"`
	CustomerName  string              `json:"customer_name"`
	Status        order.OrderStatus   `json:"status"`
	Currency      string              `json:"currency"`
	DepositAmount decimal.Decimal     `json:"deposit_amount"`
	ConfirmedAt   *time.Time          `json:"confirmed_at,omitempty"`
	Lines         []OrderLineResponse `json:"lines"`
	CreatedAt     time.Time           `json:"created_at"`
}

func toOrderResponse(ord *order.Order) OrderResponse {
	lines := make([]OrderLineResponse, 0, len(ord.Lines))
	for i := range ord.Lines {
		l := &ord.Lines[i]
		lines = append(lines, OrderLineResponse{
			ID:        l.ID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return OrderResponse{
		ID:            ord.ID,
		Reference:     ord.Reference,
		CustomerName:  ord.CustomerName,
		Status:        ord.Status,
		Currency:      string(ord.Currency),
		DepositAmount: ord.DepositAmount,
		ConfirmedAt:   ord.ConfirmedAt,
		Lines:         lines,
		CreatedAt:     ord.CreatedAt,
	}
}

// Create creates an order and allocates stock for every line
func (h *OrderHandler) Create(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	cmd := orderapp.CreateOrderCommand{
		Reference:     req.Reference,
		CustomerName:  req.CustomerName,
		Currency:      valueobject.Currency(req.Currency),
		DepositAmount: req.DepositAmount,
	}
	for _, l := range req.Lines {
		cmd.Lines = append(cmd.Lines, orderapp.CreateOrderLine{
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}

	ord, err := h.service.CreateOrder(c.Request.Context(), cmd)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, toOrderResponse(ord))
}

// Get returns one order with its lines
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	ord, err := h.service.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toOrderResponse(ord))
}

// List returns orders matching the query
func (h *OrderHandler) List(c *gin.Context) {
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

	orders, err := h.service.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]OrderResponse, 0, len(orders))
	for _, ord := range orders {
		responses = append(responses, toOrderResponse(ord))
	}
	h.SuccessWithMeta(c, responses, filter.Page, filter.PageSize, len(responses))
}

// Confirm runs the sourcing gate over the order. On success the order is
// confirmed and its fulfillments, picks and proforma invoices are spawned;
// otherwise the blocking condition comes back as a domain error.
func (h *OrderHandler) Confirm(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	ord, err := h.service.TryConfirm(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toOrderResponse(ord))
}

// SetDeposit changes the prepayment demanded for the order
func (h *OrderHandler) SetDeposit(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req SetDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.service.SetDeposit(c.Request.Context(), id, req.Amount); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	ord, err := h.service.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toOrderResponse(ord))
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	{
		orders.POST("", h.Create)
		orders.GET("", h.List)
		orders.GET("/:id", h.Get)
		orders.POST("/:id/confirm", h.Confirm)
		orders.PUT("/:id/deposit", h.SetDeposit)
	}
}
