package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var itemColumns = []string{
	"product_id", "quantity", "reserved_quantity", "minimum_stock", "maximum_stock", "location", "updated_at",
}

func itemRow(item Item) *pgxmock.Rows {
	return pgxmock.NewRows(itemColumns).
		AddRow(item.ProductID, item.Quantity, item.Reserved, item.MinimumStock, item.MaximumStock, item.Location, item.UpdatedAt)
}

func TestPostgresGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`FROM inventory_items`).
		WithArgs("p1").
		WillReturnRows(itemRow(Item{ProductID: "p1", Quantity: 10, Reserved: 2, MinimumStock: 5, MaximumStock: 100, Location: "A-01", UpdatedAt: now}))

	repo := NewPostgresRepository(mock)
	item, err := repo.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", item.ProductID)
	assert.Equal(t, 8, item.Available())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM inventory_items`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	repo := NewPostgresRepository(mock)
	_, err = repo.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReserveApplied(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("p1").
		WillReturnRows(itemRow(Item{ProductID: "p1", Quantity: 10}))
	mock.ExpectExec(`UPDATE inventory_items`).
		WithArgs("p1", 10, 3).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO stock_movements`).
		WithArgs(pgxmock.AnyArg(), "p1", MovementReserved, 3, 0, 3, "", "ORDER-1", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	repo := NewPostgresRepository(mock)
	mut, err := repo.Reserve(context.Background(), "p1", 3, "ORDER-1")
	require.NoError(t, err)
	assert.True(t, mut.Applied)
	assert.Equal(t, 3, mut.After.Reserved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReserveInsufficient(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("p1").
		WillReturnRows(itemRow(Item{ProductID: "p1", Quantity: 3, Reserved: 2}))
	mock.ExpectCommit()

	repo := NewPostgresRepository(mock)
	mut, err := repo.Reserve(context.Background(), "p1", 2, "ORDER-1")
	require.NoError(t, err)
	assert.False(t, mut.Applied, "no counter update and no movement on a short reserve")
	assert.Equal(t, 2, mut.Before.Reserved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReserveMissingProduct(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectCommit()

	repo := NewPostgresRepository(mock)
	mut, err := repo.Reserve(context.Background(), "ghost", 1, "ORDER-1")
	require.NoError(t, err)
	assert.False(t, mut.Applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReleaseClampsAtZero(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("p1").
		WillReturnRows(itemRow(Item{ProductID: "p1", Quantity: 10, Reserved: 2}))
	mock.ExpectExec(`UPDATE inventory_items`).
		WithArgs("p1", 10, 0).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO stock_movements`).
		WithArgs(pgxmock.AnyArg(), "p1", MovementReleased, 2, 2, 0, "", "ORDER-1", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	repo := NewPostgresRepository(mock)
	mut, err := repo.Release(context.Background(), "p1", 5, "ORDER-1")
	require.NoError(t, err)
	assert.True(t, mut.Applied)
	assert.Equal(t, 0, mut.After.Reserved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCommitMovesReservedToShipped(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs("p1").
		WillReturnRows(itemRow(Item{ProductID: "p1", Quantity: 10, Reserved: 4}))
	mock.ExpectExec(`UPDATE inventory_items`).
		WithArgs("p1", 6, 0).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO stock_movements`).
		WithArgs(pgxmock.AnyArg(), "p1", MovementOut, 4, 10, 6, "", "ORDER-1", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	repo := NewPostgresRepository(mock)
	mut, err := repo.Commit(context.Background(), "p1", 4, "ORDER-1")
	require.NoError(t, err)
	assert.True(t, mut.Applied)
	assert.Equal(t, 6, mut.After.Quantity)
	assert.Equal(t, 0, mut.After.Reserved)
	assert.NoError(t, mock.ExpectationsWereMet())
}
