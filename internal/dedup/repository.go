// Package dedup records which payment gateway webhook deliveries were already applied.
package dedup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type Repository interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string) error
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

func (r *repo) Seen(ctx context.Context, eventID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1
		FROM gateway_webhook_events
		WHERE event_id = $1
	`, eventID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("select webhook event %s: %w", eventID, err)
	}
	return true, nil
}

// MarkProcessed is safe to call more than once for the same event.
func (r *repo) MarkProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO gateway_webhook_events (event_id, event_type, processed_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (event_id) DO NOTHING
	`, eventID, eventType)
	if err != nil {
		return fmt.Errorf("insert webhook event %s: %w", eventID, err)
	}
	return nil
}
