package dedup

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Executor is the subset of pgx methods the ledger needs, so it can run
// against a pool or inside a caller's transaction.
type Executor interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Repository records which (event, product) pairs a consumer has already
// applied, so a redelivered message does not reserve the same line twice.
type Repository struct {
	executor Executor
}

func NewRepository(exec Executor) *Repository {
	return &Repository{executor: exec}
}

// WithExecutor returns a shallow copy using the provided executor (e.g., a transaction).
func (r *Repository) WithExecutor(exec Executor) *Repository {
	return &Repository{executor: exec}
}

// MarkProcessed claims the (consumer, eventID, productID) triple. It returns
// false when the triple was already claimed, meaning the line must be skipped.
// Run inside the same transaction as the side effect it guards.
func (r *Repository) MarkProcessed(ctx context.Context, consumerName, eventID, productID string) (bool, error) {
	tag, err := r.executor.Exec(ctx, `
		INSERT INTO processed_events (consumer_name, event_id, product_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (consumer_name, event_id, product_id) DO NOTHING
	`, consumerName, eventID, productID)
	if err != nil {
		return false, fmt.Errorf("insert processed event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Seen reports whether the triple has been claimed, without claiming it.
func (r *Repository) Seen(ctx context.Context, consumerName, eventID, productID string) (bool, error) {
	var exists bool
	err := r.executor.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM processed_events
			WHERE consumer_name=$1 AND event_id=$2 AND product_id=$3
		)
	`, consumerName, eventID, productID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("select processed event: %w", err)
	}
	return exists, nil
}
