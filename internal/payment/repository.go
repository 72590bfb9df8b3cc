package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("payment not found")

type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*Payment, error)
	Update(ctx context.Context, p *Payment) (*Payment, error)
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, p *Payment) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.UpdatedAt = p.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (id, user_id, order_id, payment_method, total_amount, payment_status, gateway_intent_id, gateway_charge_id, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.UserID, p.OrderID, string(p.Method), p.TotalAmount, string(p.Status),
		nullString(p.GatewayIntentID), nullString(p.GatewayChargeID), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByOrderID returns the most recent payment for the order, or nil when there is none.
func (r *repo) GetByOrderID(ctx context.Context, orderID string) (*Payment, error) {
	var (
		p                  Payment
		method, status     string
		intentID, chargeID sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, order_id, payment_method, total_amount, payment_status, gateway_intent_id, gateway_charge_id, created_at, updated_at
         FROM payments WHERE order_id = $1
         ORDER BY created_at DESC
         LIMIT 1`,
		orderID,
	).Scan(&p.ID, &p.UserID, &p.OrderID, &method, &p.TotalAmount, &status, &intentID, &chargeID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select payment: %w", err)
	}
	p.Method = Method(method)
	p.Status = Status(status)
	if intentID.Valid {
		p.GatewayIntentID = &intentID.String
	}
	if chargeID.Valid {
		p.GatewayChargeID = &chargeID.String
	}
	return &p, nil
}

// Update writes the mutable fields (status and gateway ids) of the whole record.
func (r *repo) Update(ctx context.Context, p *Payment) (*Payment, error) {
	p.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments
         SET payment_status = $2, gateway_intent_id = $3, gateway_charge_id = $4, updated_at = $5
         WHERE id = $1`,
		p.ID, string(p.Status), nullString(p.GatewayIntentID), nullString(p.GatewayChargeID), p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("update payment %s: %w", p.ID, ErrNotFound)
	}
	return p, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
