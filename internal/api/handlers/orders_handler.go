package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/tablebite/ordering/internal/api/response"
	"github.com/tablebite/ordering/internal/api/validation"
	"github.com/tablebite/ordering/internal/models"
)

// OrdersService defines the interface for order business logic.
type OrdersService interface {
	CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, filters *models.ListOrdersFilters) ([]models.Order, error)
}

// OrdersHandler handles HTTP requests for orders.
type OrdersHandler struct {
	service OrdersService
}

// NewOrdersHandler creates a new orders handler.
func NewOrdersHandler(service OrdersService) *OrdersHandler {
	return &OrdersHandler{service: service}
}

// Create handles POST /api/orders
// @Summary Place an order
// @Tags Orders
// @Accept json
// @Produce json
// @Param request body CreateOrderRequest true "Customer, payment and line items"
// @Success 201 {object} Order
// @Failure 400 {object} ProblemDetails
// @Failure 500 {object} ProblemDetails
// @Router /api/orders [post]
func (h *OrdersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if err := validation.DecodeJSON(r, &req); err != nil {
		response.RespondBadRequest(w, "Invalid request body")

		return
	}

	if err := validation.ValidateStruct(req); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	order, err := h.service.CreateOrder(r.Context(), &req)
	if err != nil {
		respondServiceError(w, r, err, "")

		return
	}

	response.RespondJSON(w, http.StatusCreated, order)
}

// Get handles GET /api/orders/{id}
// @Summary Get an order by ID
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID (UUID)"
// @Success 200 {object} Order
// @Failure 400 {object} ProblemDetails "Invalid UUID format"
// @Failure 404 {object} ProblemDetails "Order not found"
// @Router /api/orders/{id} [get]
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		response.RespondBadRequest(w, "Invalid UUID format")

		return
	}

	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err, "Order not found")

		return
	}

	response.RespondJSON(w, http.StatusOK, order)
}

// List handles GET /api/orders
// @Summary List orders, newest first
// @Tags Orders
// @Produce json
// @Param limit query int false "Page size (default 100)"
// @Param offset query int false "Rows to skip"
// @Success 200 {array} Order
// @Failure 400 {object} ProblemDetails
// @Router /api/orders [get]
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	var filters models.ListOrdersFilters
	if err := validation.ValidateAndDecodeQueryParams(r, &filters); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	orders, err := h.service.ListOrders(r.Context(), &filters)
	if err != nil {
		respondServiceError(w, r, err, "")

		return
	}

	response.RespondJSON(w, http.StatusOK, orders)
}
