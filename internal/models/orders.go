package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Order is a persisted customer order. The card number is never stored;
// PaymentReference keeps only a masked form of it.
type Order struct {
	ID               uuid.UUID   `json:"id"`
	FirstName        string      `json:"first_name"`
	LastName         string      `json:"last_name"`
	Phone            string      `json:"phone"`
	PaymentReference string      `json:"payment_reference"`
	TotalPrice       float64     `json:"total_price"`
	CreatedAt        time.Time   `json:"created_at"`
	Items            []OrderItem `json:"items"`
}

// OrderItem is one line of an order.
type OrderItem struct {
	ID        int64     `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	ItemName  string    `json:"item_name"`
	ItemPrice float64   `json:"item_price"`
	Quantity  int       `json:"quantity"`
	Subtotal  float64   `json:"subtotal"`
}

// CreateOrderRequest is the POST /api/orders body.
// TotalPrice is optional; when present it must match the server-side total.
type CreateOrderRequest struct {
	FirstName  string                   `json:"firstName" validate:"required,max=100,no_null_bytes"`
	LastName   string                   `json:"lastName" validate:"required,max=100,no_null_bytes"`
	Phone      string                   `json:"phone" validate:"required,phone_digits"`
	CreditCard string                   `json:"creditCard" validate:"required,card_digits"`
	Items      []CreateOrderItemRequest `json:"items" validate:"required,min=1,dive"`
	TotalPrice *float64                 `json:"totalPrice,omitempty" validate:"omitempty,gte=0"`
}

// CreateOrderItemRequest is one requested line item.
type CreateOrderItemRequest struct {
	Name     string  `json:"name" validate:"required,max=255,no_null_bytes"`
	Price    float64 `json:"price" validate:"gt=0"`
	Quantity int     `json:"quantity" validate:"min=1,max=9"`
}

// ListOrdersFilters is the query string accepted by GET /api/orders.
type ListOrdersFilters struct {
	Limit  int `form:"limit" validate:"omitempty,min=1,max=1000"`
	Offset int `form:"offset" validate:"omitempty,min=0"`
}

// OrderCreatedEvent is the payload published to the kitchen when an order commits.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID        `json:"order_id"`
	Customer   string           `json:"customer_name"`
	TotalPrice float64          `json:"total_price"`
	Items      []OrderEventItem `json:"items"`
	CreatedAt  time.Time        `json:"created_at"`
}

// OrderEventItem is a line in OrderCreatedEvent.
type OrderEventItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// StripPhoneOrCardSeparators removes the spaces, dashes, dots, parentheses and
// leading plus that customers type into phone and card fields. It reports false
// when anything other than digits remains.
func StripPhoneOrCardSeparators(s string) (string, bool) {
	var b strings.Builder

	for _, r := range strings.TrimPrefix(strings.TrimSpace(s), "+") {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return "", false
		}
	}

	return b.String(), true
}
