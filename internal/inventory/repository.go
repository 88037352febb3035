package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("not found")

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type Repository interface {
	Get(ctx context.Context, productID string) (Item, error)
	Upsert(ctx context.Context, item Item) error
	Movements(ctx context.Context, productID string) ([]Movement, error)
	Reserve(ctx context.Context, productID string, qty int, reference string) (Mutation, error)
	Release(ctx context.Context, productID string, qty int, reference string) (Mutation, error)
	Commit(ctx context.Context, productID string, qty int, reference string) (Mutation, error)
	Adjust(ctx context.Context, productID string, delta int, reason, createdBy string) (Mutation, error)
}

// TransactionalRepository exposes the same mutations inside a caller-owned
// transaction, so event handlers can pair them with the dedup ledger.
type TransactionalRepository interface {
	Repository
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	ReserveTx(ctx context.Context, tx pgx.Tx, productID string, qty int, reference string) (Mutation, error)
	ReleaseTx(ctx context.Context, tx pgx.Tx, productID string, qty int, reference string) (Mutation, error)
	CommitTx(ctx context.Context, tx pgx.Tx, productID string, qty int, reference string) (Mutation, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Get(ctx context.Context, productID string) (Item, error) {
	return scanItem(r.pool.QueryRow(ctx, `
		SELECT product_id, quantity, reserved_quantity, minimum_stock, maximum_stock, location, updated_at
		FROM inventory_items WHERE product_id=$1
	`, productID))
}

func (r *PostgresRepository) Upsert(ctx context.Context, item Item) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inventory_items (product_id, quantity, reserved_quantity, minimum_stock, maximum_stock, location)
		VALUES ($1, $2, 0, $3, $4, $5)
		ON CONFLICT (product_id) DO UPDATE SET
			quantity=EXCLUDED.quantity,
			minimum_stock=EXCLUDED.minimum_stock,
			maximum_stock=EXCLUDED.maximum_stock,
			location=EXCLUDED.location,
			updated_at=now()
	`, item.ProductID, item.Quantity, item.MinimumStock, item.MaximumStock, item.Location)
	return err
}

func (r *PostgresRepository) Movements(ctx context.Context, productID string) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, movement_type, quantity, previous_quantity, new_quantity, reason, reference, created_by, created_at
		FROM stock_movements WHERE product_id=$1 ORDER BY created_at
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Type, &m.Quantity, &m.PreviousQuantity, &m.NewQuantity, &m.Reason, &m.Reference, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (r *PostgresRepository) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	return r.pool.BeginTx(ctx, txOptions)
}

func (r *PostgresRepository) Reserve(ctx context.Context, productID string, qty int, reference string) (Mutation, error) {
	return r.inTx(ctx, func(tx pgx.Tx) (Mutation, error) {
		return r.reserveTx(ctx, tx, productID, qty, reference)
	})
}

func (r *PostgresRepository) Release(ctx context.Context, productID string, qty int, reference string) (Mutation, error) {
	return r.inTx(ctx, func(tx pgx.Tx) (Mutation, error) {
		return r.releaseTx(ctx, tx, productID, qty, reference)
	})
}

func (r *PostgresRepository) Commit(ctx context.Context, productID string, qty int, reference string) (Mutation, error) {
	return r.inTx(ctx, func(tx pgx.Tx) (Mutation, error) {
		return r.commitTx(ctx, tx, productID, qty, reference)
	})
}

func (r *PostgresRepository) Adjust(ctx context.Context, productID string, delta int, reason, createdBy string) (Mutation, error) {
	return r.inTx(ctx, func(tx pgx.Tx) (Mutation, error) {
		return r.adjustTx(ctx, tx, productID, delta, reason, createdBy)
	})
}

func (r *PostgresRepository) ReserveTx(ctx context.Context, tx pgx.Tx, productID string, qty int, reference string) (Mutation, error) {
	return r.reserveTx(ctx, tx, productID, qty, reference)
}

func (r *PostgresRepository) ReleaseTx(ctx context.Context, tx pgx.Tx, productID string, qty int, reference string) (Mutation, error) {
	return r.releaseTx(ctx, tx, productID, qty, reference)
}

func (r *PostgresRepository) CommitTx(ctx context.Context, tx pgx.Tx, productID string, qty int, reference string) (Mutation, error) {
	return r.commitTx(ctx, tx, productID, qty, reference)
}

func (r *PostgresRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) (Mutation, error)) (Mutation, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Mutation{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	mut, err := fn(tx)
	if err != nil {
		return mut, err
	}
	if err := tx.Commit(ctx); err != nil {
		return mut, fmt.Errorf("commit: %w", err)
	}
	return mut, nil
}

// reserveTx increments the reserved counter iff enough stock is available.
// The SELECT ... FOR UPDATE serializes concurrent reservations per product so
// the availability check and the increment are one critical section.
func (r *PostgresRepository) reserveTx(ctx context.Context, tx pgx.Tx, productID string, qty int, reference string) (Mutation, error) {
	before, err := lockItem(ctx, tx, productID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Mutation{}, nil
		}
		return Mutation{}, err
	}

	if before.Available() < qty {
		return Mutation{Before: before, After: before}, nil
	}

	after := before
	after.Reserved += qty
	if err := updateCounters(ctx, tx, after); err != nil {
		return Mutation{}, err
	}
	if err := insertMovement(ctx, tx, Movement{
		ProductID:        productID,
		Type:             MovementReserved,
		Quantity:         qty,
		PreviousQuantity: before.Reserved,
		NewQuantity:      after.Reserved,
		Reference:        reference,
	}); err != nil {
		return Mutation{}, err
	}

	return Mutation{Applied: true, Before: before, After: after}, nil
}

// releaseTx undoes a reservation, clamping at zero so a double release (or a
// release for an order that never reserved) cannot drive the counter negative.
func (r *PostgresRepository) releaseTx(ctx context.Context, tx pgx.Tx, productID string, qty int, reference string) (Mutation, error) {
	before, err := lockItem(ctx, tx, productID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Mutation{}, nil
		}
		return Mutation{}, err
	}

	release := qty
	if release > before.Reserved {
		release = before.Reserved
	}
	if release == 0 {
		return Mutation{Before: before, After: before}, nil
	}

	after := before
	after.Reserved -= release
	if err := updateCounters(ctx, tx, after); err != nil {
		return Mutation{}, err
	}
	if err := insertMovement(ctx, tx, Movement{
		ProductID:        productID,
		Type:             MovementReleased,
		Quantity:         release,
		PreviousQuantity: before.Reserved,
		NewQuantity:      after.Reserved,
		Reference:        reference,
	}); err != nil {
		return Mutation{}, err
	}

	return Mutation{Applied: true, Before: before, After: after}, nil
}

// commitTx converts a reservation into an on-hand decrement at shipment.
func (r *PostgresRepository) commitTx(ctx context.Context, tx pgx.Tx, productID string, qty int, reference string) (Mutation, error) {
	before, err := lockItem(ctx, tx, productID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Mutation{}, nil
		}
		return Mutation{}, err
	}

	if before.Reserved < qty || before.Quantity < qty {
		return Mutation{Before: before, After: before}, nil
	}

	after := before
	after.Quantity -= qty
	after.Reserved -= qty
	if err := updateCounters(ctx, tx, after); err != nil {
		return Mutation{}, err
	}
	if err := insertMovement(ctx, tx, Movement{
		ProductID:        productID,
		Type:             MovementOut,
		Quantity:         qty,
		PreviousQuantity: before.Quantity,
		NewQuantity:      after.Quantity,
		Reference:        reference,
	}); err != nil {
		return Mutation{}, err
	}

	return Mutation{Applied: true, Before: before, After: after}, nil
}

// adjustTx applies a direct on-hand correction, independent of reservations.
func (r *PostgresRepository) adjustTx(ctx context.Context, tx pgx.Tx, productID string, delta int, reason, createdBy string) (Mutation, error) {
	before, err := lockItem(ctx, tx, productID)
	if err != nil {
		return Mutation{}, err
	}

	newQty := before.Quantity + delta
	if newQty < 0 || newQty < before.Reserved {
		return Mutation{Before: before, After: before}, nil
	}

	after := before
	after.Quantity = newQty
	if err := updateCounters(ctx, tx, after); err != nil {
		return Mutation{}, err
	}
	if err := insertMovement(ctx, tx, Movement{
		ProductID:        productID,
		Type:             MovementAdjustment,
		Quantity:         delta,
		PreviousQuantity: before.Quantity,
		NewQuantity:      after.Quantity,
		Reason:           reason,
		CreatedBy:        createdBy,
	}); err != nil {
		return Mutation{}, err
	}

	return Mutation{Applied: true, Before: before, After: after}, nil
}

func lockItem(ctx context.Context, tx pgx.Tx, productID string) (Item, error) {
	return scanItem(tx.QueryRow(ctx, `
		SELECT product_id, quantity, reserved_quantity, minimum_stock, maximum_stock, location, updated_at
		FROM inventory_items WHERE product_id=$1
		FOR UPDATE
	`, productID))
}

func scanItem(row pgx.Row) (Item, error) {
	var item Item
	err := row.Scan(&item.ProductID, &item.Quantity, &item.Reserved, &item.MinimumStock, &item.MaximumStock, &item.Location, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrNotFound
		}
		return Item{}, err
	}
	return item, nil
}

func updateCounters(ctx context.Context, tx pgx.Tx, item Item) error {
	_, err := tx.Exec(ctx, `
		UPDATE inventory_items
		SET quantity=$2, reserved_quantity=$3, updated_at=now()
		WHERE product_id=$1
	`, item.ProductID, item.Quantity, item.Reserved)
	if err != nil {
		return fmt.Errorf("update counters: %w", err)
	}
	return nil
}

func insertMovement(ctx context.Context, tx pgx.Tx, m Movement) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO stock_movements (id, product_id, movement_type, quantity, previous_quantity, new_quantity, reason, reference, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, uuid.NewString(), m.ProductID, m.Type, m.Quantity, m.PreviousQuantity, m.NewQuantity, m.Reason, m.Reference, m.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}
