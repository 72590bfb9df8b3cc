package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID string) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// UpdateStatusFrom moves the order to status only while it is still in from. It
	// returns nil, nil when the order is missing or no longer in from.
	UpdateStatusFrom(ctx context.Context, orderID string, from, status Status) (*Order, error)
	Delete(ctx context.Context, orderID string) (bool, error)
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

const selectOrderColumns = `id, user_id, shipping_address, phone_number, total_amount, payment_method, order_status, created_at, updated_at`

func (r *repo) Create(ctx context.Context, o *Order) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = o.CreatedAt

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, shipping_address, phone_number, total_amount, payment_method, order_status, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, o.UserID, o.ShippingAddress, o.PhoneNumber, o.TotalAmount, o.PaymentMethod, string(o.Status), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, it := range o.Products {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (id, order_id, product_id, quantity)
             VALUES ($1, $2, $3, $4)`,
			uuid.NewString(), o.ID, it.ProductID, it.Quantity,
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
	var (
		o      Order
		status string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT `+selectOrderColumns+`
         FROM orders WHERE id = $1`,
		orderID,
	).Scan(&o.ID, &o.UserID, &o.ShippingAddress, &o.PhoneNumber, &o.TotalAmount, &o.PaymentMethod, &status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select order: %w", err)
	}
	o.Status = Status(status)

	rows, err := r.db.QueryContext(ctx,
		`SELECT product_id, quantity
         FROM order_items WHERE order_id = $1`,
		o.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("select order_items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan order_item: %w", err)
		}
		o.Products = append(o.Products, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return &o, nil
}

func (r *repo) List(ctx context.Context) ([]Order, error) {
	return r.listJoined(ctx, `
		SELECT
			o.id, o.user_id, o.shipping_address, o.phone_number, o.total_amount, o.payment_method, o.order_status, o.created_at, o.updated_at,
			oi.product_id, oi.quantity
		FROM orders o
		LEFT JOIN order_items oi ON oi.order_id = o.id
		ORDER BY o.created_at DESC, o.id
	`)
}

func (r *repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return r.listJoined(ctx, `
		SELECT
			o.id, o.user_id, o.shipping_address, o.phone_number, o.total_amount, o.payment_method, o.order_status, o.created_at, o.updated_at,
			oi.product_id, oi.quantity
		FROM orders o
		LEFT JOIN order_items oi ON oi.order_id = o.id
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC, o.id
	`, userID)
}

// listJoined folds order/item join rows back into orders. Rows must be grouped by order id.
func (r *repo) listJoined(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		var (
			o         Order
			status    string
			productID sql.NullString
			quantity  sql.NullInt64
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.ShippingAddress, &o.PhoneNumber, &o.TotalAmount, &o.PaymentMethod, &status, &o.CreatedAt, &o.UpdatedAt,
			&productID, &quantity); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		o.Status = Status(status)

		if n := len(orders); n == 0 || orders[n-1].ID != o.ID {
			orders = append(orders, o)
		}
		if productID.Valid {
			last := &orders[len(orders)-1]
			last.Products = append(last.Products, Item{ProductID: productID.String, Quantity: int(quantity.Int64)})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return orders, nil
}

func (r *repo) UpdateStatusFrom(ctx context.Context, orderID string, from, status Status) (*Order, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET order_status = $2, updated_at = NOW() WHERE id = $1 AND order_status = $3`,
		orderID, string(status), string(from),
	)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, orderID)
}

func (r *repo) Delete(ctx context.Context, orderID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
	if err != nil {
		return false, fmt.Errorf("delete order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
