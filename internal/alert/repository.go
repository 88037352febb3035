package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("alert not found")

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	Create(ctx context.Context, a *Alert) error
	List(ctx context.Context, unresolvedOnly bool) ([]Alert, error)
	MarkRead(ctx context.Context, alertID string) error
	Resolve(ctx context.Context, alertID, resolvedBy string) error
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, a *Alert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO alerts (id, type, severity, title, message, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, a.ID, a.Type, a.Severity, a.Title, a.Message)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, unresolvedOnly bool) ([]Alert, error) {
	query := `
		SELECT id, type, severity, title, message, is_read, is_resolved, resolved_at, resolved_by, created_at
		FROM alerts`
	if unresolvedOnly {
		query += ` WHERE NOT is_resolved`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select alerts: %w", err)
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.Type, &a.Severity, &a.Title, &a.Message, &a.IsRead, &a.IsResolved, &a.ResolvedAt, &a.ResolvedBy, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func (r *PostgresRepository) MarkRead(ctx context.Context, alertID string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE alerts SET is_read=TRUE WHERE id=$1`, alertID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) Resolve(ctx context.Context, alertID, resolvedBy string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE alerts SET is_resolved=TRUE, resolved_at=now(), resolved_by=$2
		WHERE id=$1
	`, alertID, resolvedBy)
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
