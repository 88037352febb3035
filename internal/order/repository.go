package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("order not found")

// ErrStaleStatus is returned when a status update lost a race against a
// concurrent transition.
var ErrStaleStatus = errors.New("order status changed concurrently")

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID string) (*Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
	// UpdateStatus persists a transition computed by the workflow. The update
	// is conditional on the status the workflow read, so concurrent
	// transitions cannot overwrite each other.
	UpdateStatus(ctx context.Context, o *Order, from Status) error
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, order_number, customer_id, status, subtotal, tax, total, shipping_address, billing_address, notes, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		o.ID, o.OrderNumber, o.CustomerID, o.Status, o.Subtotal, o.Tax, o.Total,
		o.ShippingAddress, o.BillingAddress, o.Notes, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, total)
             VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.NewString(), o.ID, it.ProductID, it.Quantity, it.UnitPrice, it.Total,
		)
		if err != nil {
			return fmt.Errorf("insert order_item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *repo) GetByID(ctx context.Context, orderID string) (*Order, error) {
	return r.getOne(ctx, `WHERE id = $1`, orderID)
}

func (r *repo) GetByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	return r.getOne(ctx, `WHERE order_number = $1`, orderNumber)
}

func (r *repo) getOne(ctx context.Context, where string, arg any) (*Order, error) {
	var o Order
	err := r.db.QueryRowContext(ctx,
		`SELECT id, order_number, customer_id, status, subtotal, tax, total, shipping_address, billing_address, notes, created_at, shipped_at, delivered_at
         FROM orders `+where,
		arg,
	).Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.Status, &o.Subtotal, &o.Tax, &o.Total,
		&o.ShippingAddress, &o.BillingAddress, &o.Notes, &o.CreatedAt, &o.ShippedAt, &o.DeliveredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	items, err := r.loadItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return &o, nil
}

func (r *repo) loadItems(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, quantity, unit_price, total
         FROM order_items WHERE order_id = $1`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("select order_items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.UnitPrice, &it.Total); err != nil {
			return nil, fmt.Errorf("scan order_item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return items, nil
}

func (r *repo) ListByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_number, customer_id, status, subtotal, tax, total, shipping_address, billing_address, notes, created_at, shipped_at, delivered_at
         FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.Status, &o.Subtotal, &o.Tax, &o.Total,
			&o.ShippingAddress, &o.BillingAddress, &o.Notes, &o.CreatedAt, &o.ShippedAt, &o.DeliveredAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	for i := range orders {
		items, err := r.loadItems(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}

	return orders, nil
}

func (r *repo) UpdateStatus(ctx context.Context, o *Order, from Status) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders
         SET status = $2, notes = $3, shipped_at = $4, delivered_at = $5
         WHERE id = $1 AND status = $6`,
		o.ID, o.Status, o.Notes, o.ShippedAt, o.DeliveredAt, from,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrStaleStatus
	}
	return nil
}
