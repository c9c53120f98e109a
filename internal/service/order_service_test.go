package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jaswdr/faker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablebite/ordering/internal/datatypes"
	"github.com/tablebite/ordering/internal/huberrors"
	"github.com/tablebite/ordering/internal/models"
)

type mockOrdersRepo struct {
	created    *models.Order
	createErr  error
	getResult  *models.Order
	getErr     error
	listFilter *models.ListOrdersFilters
}

func (m *mockOrdersRepo) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}

	m.created = order
	out := *order
	out.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	return &out, nil
}

func (m *mockOrdersRepo) GetByID(_ context.Context, _ uuid.UUID) (*models.Order, error) {
	return m.getResult, m.getErr
}

func (m *mockOrdersRepo) List(_ context.Context, filters *models.ListOrdersFilters) ([]models.Order, error) {
	m.listFilter = filters

	return []models.Order{}, nil
}

type capturingOrderPublisher struct {
	events []datatypes.EventType
	data   []any
}

func (p *capturingOrderPublisher) PublishEvent(_ context.Context, eventType datatypes.EventType, data any) {
	p.events = append(p.events, eventType)
	p.data = append(p.data, data)
}

func validOrderRequest() *models.CreateOrderRequest {
	fake := faker.New()

	return &models.CreateOrderRequest{
		FirstName:  fake.Person().FirstName(),
		LastName:   fake.Person().LastName(),
		Phone:      "(555) 123-4567",
		CreditCard: "4111 1111 1111 1111",
		Items: []models.CreateOrderItemRequest{
			{Name: "Margherita Pizza", Price: 12.99, Quantity: 2},
			{Name: "Caesar Salad", Price: 9.99, Quantity: 1},
		},
	}
}

func TestOrderService_CreateOrder(t *testing.T) {
	repo := &mockOrdersRepo{}
	pub := &capturingOrderPublisher{}
	svc := NewOrderService(repo, pub)

	req := validOrderRequest()
	total := 35.97
	req.TotalPrice = &total

	order, err := svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, uuid.Version(7), order.ID.Version())
	assert.Equal(t, "5551234567", order.Phone)
	assert.Equal(t, "**** 1111", order.PaymentReference)
	assert.InDelta(t, 35.97, order.TotalPrice, 1e-9)
	require.Len(t, order.Items, 2)
	assert.InDelta(t, 25.98, order.Items[0].Subtotal, 1e-9)
	assert.Equal(t, order.ID, order.Items[0].OrderID)

	require.Equal(t, []datatypes.EventType{datatypes.OrderCreated}, pub.events)
	event, ok := pub.data[0].(models.OrderCreatedEvent)
	require.True(t, ok)
	assert.Equal(t, order.ID, event.OrderID)
	assert.Equal(t, req.FirstName+" "+req.LastName, event.Customer)
	assert.Equal(t, order.CreatedAt, event.CreatedAt)
	assert.Len(t, event.Items, 2)
}

func TestOrderService_CreateOrder_cardNeverStored(t *testing.T) {
	repo := &mockOrdersRepo{}
	svc := NewOrderService(repo, nil)

	req := validOrderRequest()
	req.CreditCard = "378282246310005"

	_, err := svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "**** 0005", repo.created.PaymentReference)
	assert.NotContains(t, repo.created.PaymentReference, "3782822")
}

func TestOrderService_CreateOrder_validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.CreateOrderRequest)
		field  string
	}{
		{name: "blank first name", mutate: func(r *models.CreateOrderRequest) { r.FirstName = "  " }, field: "firstName"},
		{name: "short phone", mutate: func(r *models.CreateOrderRequest) { r.Phone = "555-1234" }, field: "phone"},
		{name: "letters in phone", mutate: func(r *models.CreateOrderRequest) { r.Phone = "555abc4567" }, field: "phone"},
		{name: "short card", mutate: func(r *models.CreateOrderRequest) { r.CreditCard = "4111 1111" }, field: "creditCard"},
		{name: "no items", mutate: func(r *models.CreateOrderRequest) { r.Items = nil }, field: "items"},
		{name: "zero quantity", mutate: func(r *models.CreateOrderRequest) { r.Items[0].Quantity = 0 }, field: "items[0].quantity"},
		{name: "quantity above nine", mutate: func(r *models.CreateOrderRequest) { r.Items[1].Quantity = 10 }, field: "items[1].quantity"},
		{name: "free item", mutate: func(r *models.CreateOrderRequest) { r.Items[0].Price = 0 }, field: "items[0].price"},
		{name: "unnamed item", mutate: func(r *models.CreateOrderRequest) { r.Items[1].Name = "" }, field: "items[1].name"},
		{
			name: "total mismatch",
			mutate: func(r *models.CreateOrderRequest) {
				wrong := 10.0
				r.TotalPrice = &wrong
			},
			field: "totalPrice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockOrdersRepo{}
			pub := &capturingOrderPublisher{}
			svc := NewOrderService(repo, pub)

			req := validOrderRequest()
			tt.mutate(req)

			_, err := svc.CreateOrder(context.Background(), req)
			require.Error(t, err)
			require.ErrorIs(t, err, huberrors.ErrValidation)

			var vErr *huberrors.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)

			assert.Nil(t, repo.created, "nothing written")
			assert.Empty(t, pub.events)
		})
	}
}

func TestOrderService_CreateOrder_totalWithinTolerance(t *testing.T) {
	svc := NewOrderService(&mockOrdersRepo{}, nil)

	req := validOrderRequest()
	nearly := 35.974
	req.TotalPrice = &nearly

	_, err := svc.CreateOrder(context.Background(), req)
	require.NoError(t, err)
}

func TestOrderService_CreateOrder_repositoryErrorSkipsEvent(t *testing.T) {
	pub := &capturingOrderPublisher{}
	svc := NewOrderService(&mockOrdersRepo{createErr: errors.New("connection reset")}, pub)

	_, err := svc.CreateOrder(context.Background(), validOrderRequest())
	require.Error(t, err)
	assert.Empty(t, pub.events)
}

func TestOrderService_GetOrder_notFound(t *testing.T) {
	svc := NewOrderService(&mockOrdersRepo{getErr: huberrors.NewNotFoundError("order", "Order not found")}, nil)

	_, err := svc.GetOrder(context.Background(), uuid.New())
	require.ErrorIs(t, err, huberrors.ErrNotFound)
}

func TestOrderService_ListOrders_defaultsLimit(t *testing.T) {
	repo := &mockOrdersRepo{}
	svc := NewOrderService(repo, nil)

	_, err := svc.ListOrders(context.Background(), &models.ListOrdersFilters{})
	require.NoError(t, err)
	assert.Equal(t, 100, repo.listFilter.Limit)
}
