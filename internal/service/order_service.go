package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/tablebite/ordering/internal/datatypes"
	"github.com/tablebite/ordering/internal/huberrors"
	"github.com/tablebite/ordering/internal/models"
)

const (
	minItemQuantity = 1
	maxItemQuantity = 9
	// totalTolerance absorbs client-side float rounding; anything larger is a real mismatch.
	totalTolerance = 0.005
)

// OrdersRepository defines the interface for order data access.
type OrdersRepository interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filters *models.ListOrdersFilters) ([]models.Order, error)
}

// OrderService validates, prices and stores orders, then notifies the kitchen.
type OrderService struct {
	repo      OrdersRepository
	publisher MessagePublisher
}

// NewOrderService creates an OrderService. publisher may be nil.
func NewOrderService(repo OrdersRepository, publisher MessagePublisher) *OrderService {
	return &OrderService{repo: repo, publisher: publisher}
}

// CreateOrder checks req, computes subtotals and the total server-side and stores the
// order with its items atomically. Invalid input is rejected before anything is written.
func (s *OrderService) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	order, err := buildOrder(req)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	slog.InfoContext(ctx, "Order created", "order_id", created.ID, "items", len(created.Items), "total", created.TotalPrice)

	if s.publisher != nil {
		s.publisher.PublishEvent(ctx, datatypes.OrderCreated, orderCreatedEvent(created))
	}

	return created, nil
}

// GetOrder retrieves one order with its items.
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.repo.GetByID(ctx, id)
}

// ListOrders returns orders newest first.
func (s *OrderService) ListOrders(ctx context.Context, filters *models.ListOrdersFilters) ([]models.Order, error) {
	if filters.Limit <= 0 {
		filters.Limit = 100
	}

	return s.repo.List(ctx, filters)
}

func buildOrder(req *models.CreateOrderRequest) (*models.Order, error) {
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)

	if firstName == "" || lastName == "" {
		return nil, huberrors.NewValidationError("firstName", "first and last name are required")
	}

	phone, ok := models.StripPhoneOrCardSeparators(req.Phone)
	if !ok || len(phone) != 10 {
		return nil, huberrors.NewValidationError("phone", "phone must contain exactly 10 digits")
	}

	card, ok := models.StripPhoneOrCardSeparators(req.CreditCard)
	if !ok || len(card) < 13 || len(card) > 16 {
		return nil, huberrors.NewValidationError("creditCard", "card number must contain 13 to 16 digits")
	}

	if len(req.Items) == 0 {
		return nil, huberrors.NewValidationError("items", "order must contain at least one item")
	}

	order := &models.Order{
		ID:               uuid.Must(uuid.NewV7()),
		FirstName:        firstName,
		LastName:         lastName,
		Phone:            phone,
		PaymentReference: maskCard(card),
		Items:            make([]models.OrderItem, 0, len(req.Items)),
	}

	var total float64

	for i, item := range req.Items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			return nil, huberrors.NewValidationError(fmt.Sprintf("items[%d].name", i), "item name is required")
		}

		if item.Price <= 0 || math.IsNaN(item.Price) || math.IsInf(item.Price, 0) {
			return nil, huberrors.NewValidationError(fmt.Sprintf("items[%d].price", i), "price must be greater than 0")
		}

		if item.Quantity < minItemQuantity || item.Quantity > maxItemQuantity {
			return nil, huberrors.NewValidationError(
				fmt.Sprintf("items[%d].quantity", i),
				fmt.Sprintf("quantity must be between %d and %d", minItemQuantity, maxItemQuantity),
			)
		}

		price := roundCents(item.Price)
		subtotal := roundCents(price * float64(item.Quantity))
		total += subtotal

		order.Items = append(order.Items, models.OrderItem{
			OrderID:   order.ID,
			ItemName:  name,
			ItemPrice: price,
			Quantity:  item.Quantity,
			Subtotal:  subtotal,
		})
	}

	order.TotalPrice = roundCents(total)

	if req.TotalPrice != nil && math.Abs(*req.TotalPrice-order.TotalPrice) > totalTolerance {
		return nil, huberrors.NewValidationError("totalPrice",
			fmt.Sprintf("total %.2f does not match the sum of items %.2f", *req.TotalPrice, order.TotalPrice))
	}

	return order, nil
}

// maskCard keeps only the last four digits of the card number.
func maskCard(digits string) string {
	return "**** " + digits[len(digits)-4:]
}

func orderCreatedEvent(order *models.Order) models.OrderCreatedEvent {
	items := make([]models.OrderEventItem, len(order.Items))
	for i, it := range order.Items {
		items[i] = models.OrderEventItem{Name: it.ItemName, Quantity: it.Quantity, Price: it.ItemPrice}
	}

	return models.OrderCreatedEvent{
		OrderID:    order.ID,
		Customer:   order.FirstName + " " + order.LastName,
		TotalPrice: order.TotalPrice,
		Items:      items,
		CreatedAt:  order.CreatedAt,
	}
}
