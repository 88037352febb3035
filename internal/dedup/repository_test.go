package dedup

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkProcessedClaimsOnce(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`INSERT INTO processed_events`).
		WithArgs("inventory-order-events", "evt-1", "p1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO processed_events`).
		WithArgs("inventory-order-events", "evt-1", "p1").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	repo := NewRepository(mock)

	applied, err := repo.MarkProcessed(context.Background(), "inventory-order-events", "evt-1", "p1")
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.MarkProcessed(context.Background(), "inventory-order-events", "evt-1", "p1")
	require.NoError(t, err)
	assert.False(t, applied, "second claim of the same triple must report already processed")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeen(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("inventory-order-events", "evt-1", "p1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	repo := NewRepository(mock)
	seen, err := repo.Seen(context.Background(), "inventory-order-events", "evt-1", "p1")
	require.NoError(t, err)
	assert.True(t, seen)
	assert.NoError(t, mock.ExpectationsWereMet())
}
