// Package sequence hands out per-partition producer sequences for published events.
package sequence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyPartition is returned when no partition key is given.
var ErrEmptyPartition = errors.New("empty partition key")

type Repository interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

type repo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repo{db: db}
}

const nextSequenceSQL = `
	INSERT INTO event_sequence AS s (partition_key, last_sequence)
	VALUES ($1, 1)
	ON CONFLICT (partition_key) DO UPDATE
	SET last_sequence = s.last_sequence + 1, updated_at = NOW()
	RETURNING s.last_sequence`

// NextSequence reserves the next position for partitionKey, starting at 1. Gaps are
// possible when a reserved position is never published.
func (r *repo) NextSequence(ctx context.Context, partitionKey string) (int64, error) {
	key := strings.TrimSpace(partitionKey)
	if key == "" {
		return 0, ErrEmptyPartition
	}
	var next int64
	if err := r.db.QueryRowContext(ctx, nextSequenceSQL, key).Scan(&next); err != nil {
		return 0, fmt.Errorf("reserve sequence for %s: %w", key, err)
	}
	return next, nil
}
