// Package repository provides PostgreSQL data access for orders and menu embeddings.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tablebite/ordering/internal/huberrors"
	"github.com/tablebite/ordering/internal/models"
)

const defaultOrdersLimit = 100

// OrdersRepository handles data access for orders and their line items.
type OrdersRepository struct {
	db     *pgxpool.Pool
	timing *slog.Logger
}

// OrdersOption configures an OrdersRepository.
type OrdersOption func(*OrdersRepository)

// WithPerformanceLogging logs the duration of each PostgreSQL step to logger at Info.
// A nil logger uses slog.Default().
func WithPerformanceLogging(logger *slog.Logger) OrdersOption {
	return func(r *OrdersRepository) {
		if logger == nil {
			logger = slog.Default()
		}

		r.timing = logger
	}
}

// NewOrdersRepository creates a new orders repository.
func NewOrdersRepository(db *pgxpool.Pool, opts ...OrdersOption) *OrdersRepository {
	r := &OrdersRepository{db: db}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// logStep records how long one database step took. No-op unless performance logging is on.
func (r *OrdersRepository) logStep(ctx context.Context, step string, start time.Time, attrs ...any) {
	if r.timing == nil {
		return
	}

	args := append([]any{"step", step, "duration_ms", time.Since(start).Milliseconds()}, attrs...)
	r.timing.InfoContext(ctx, "PostgreSQL timing", args...)
}

// Create inserts the order and all of its items in one transaction. Either
// everything is written or nothing is.
func (r *OrdersRepository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	start := time.Now()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin order transaction: %w", err)
	}

	r.logStep(ctx, "begin", start)

	// No-op once committed.
	defer func() { _ = tx.Rollback(ctx) }()

	created := *order
	created.Items = make([]models.OrderItem, len(order.Items))

	start = time.Now()
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (id, first_name, last_name, phone, payment_reference, total_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, order.ID, order.FirstName, order.LastName, order.Phone, order.PaymentReference, order.TotalPrice,
	).Scan(&created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	r.logStep(ctx, "insert_order", start)

	start = time.Now()
	if err := insertItems(ctx, tx, order.ID, order.Items, created.Items); err != nil {
		return nil, err
	}

	r.logStep(ctx, "insert_items", start, "items", len(order.Items))

	start = time.Now()
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit order transaction: %w", err)
	}

	r.logStep(ctx, "commit", start)

	return &created, nil
}

// insertItems sends every item insert in one batch round trip and fills out with the stored rows.
func insertItems(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, items, out []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(`
			INSERT INTO order_items (order_id, item_name, item_price, quantity, subtotal)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, orderID, item.ItemName, item.ItemPrice, item.Quantity, item.Subtotal)
	}

	results := tx.SendBatch(ctx, batch)

	for i, item := range items {
		item.OrderID = orderID

		if err := results.QueryRow().Scan(&item.ID); err != nil {
			_ = results.Close()

			return fmt.Errorf("failed to insert order item %d: %w", i, err)
		}

		out[i] = item
	}

	if err := results.Close(); err != nil {
		return fmt.Errorf("close order items batch: %w", err)
	}

	return nil
}

// GetByID retrieves one order with its items.
func (r *OrdersRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order

	start := time.Now()
	err := r.db.QueryRow(ctx, `
		SELECT id, first_name, last_name, phone, payment_reference, total_price, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(
		&order.ID, &order.FirstName, &order.LastName, &order.Phone,
		&order.PaymentReference, &order.TotalPrice, &order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, huberrors.NewNotFoundError("order", "Order not found")
		}

		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	r.logStep(ctx, "get_order", start)

	start = time.Now()
	items, err := r.itemsFor(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}

	r.logStep(ctx, "get_order_items", start)

	order.Items = items[id]
	if order.Items == nil {
		order.Items = []models.OrderItem{}
	}

	return &order, nil
}

// List returns orders newest first, each with its items. Items for the whole
// page are loaded with a single query.
func (r *OrdersRepository) List(ctx context.Context, filters *models.ListOrdersFilters) ([]models.Order, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = defaultOrdersLimit
	}

	start := time.Now()
	rows, err := r.db.Query(ctx, `
		SELECT id, first_name, last_name, phone, payment_reference, total_price, created_at
		FROM orders
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, filters.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	ids := []uuid.UUID{}

	for rows.Next() {
		var order models.Order

		err := rows.Scan(
			&order.ID, &order.FirstName, &order.LastName, &order.Phone,
			&order.PaymentReference, &order.TotalPrice, &order.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		orders = append(orders, order)
		ids = append(ids, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	r.logStep(ctx, "list_orders", start, "orders", len(orders))

	if len(ids) == 0 {
		return orders, nil
	}

	start = time.Now()
	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	r.logStep(ctx, "list_order_items", start, "orders", len(ids))

	for i := range orders {
		orders[i].Items = items[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []models.OrderItem{}
		}
	}

	return orders, nil
}

// Count returns the number of stored orders.
func (r *OrdersRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}

	return n, nil
}

func (r *OrdersRepository) itemsFor(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]models.OrderItem, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, item_name, item_price, quantity, subtotal
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	byOrder := make(map[uuid.UUID][]models.OrderItem, len(orderIDs))

	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ItemName, &item.ItemPrice, &item.Quantity, &item.Subtotal); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}

		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return byOrder, nil
}
