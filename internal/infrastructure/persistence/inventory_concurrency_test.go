package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taic/backend/internal/domain/inventory"
	"github.com/taic/backend/internal/domain/shared"
)

// Reservations race checkout requests, so stock writes go through
// SaveWithLock. These tests pin the CAS semantics: a stale version
// loses and surfaces CONCURRENT_MODIFICATION to the caller.

func newTestItem(t *testing.T) *inventory.InventoryItem {
	t.Helper()

	item, err := inventory.NewInventoryItem(uuid.New(), uuid.New())
	require.NoError(t, err)
	require.NoError(t, item.Receive(100))
	return item
}

func TestSaveWithLock_OptimisticLocking(t *testing.T) {
	t.Run("succeeds when version matches", func(t *testing.T) {
		repo, mock, mockDB := newMockInventoryItemRepository(t)
		defer mockDB.Close()

		item := newTestItem(t)
		versionBefore := item.Version

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "inventory_items" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.SaveWithLock(context.Background(), item)

		assert.NoError(t, err)
		assert.Equal(t, versionBefore+1, item.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fails with CONCURRENT_MODIFICATION when version is stale", func(t *testing.T) {
		repo, mock, mockDB := newMockInventoryItemRepository(t)
		defer mockDB.Close()

		item := newTestItem(t)
		versionBefore := item.Version

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "inventory_items" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.SaveWithLock(context.Background(), item)

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, "CONCURRENT_MODIFICATION", domainErr.Code)
		assert.Equal(t, versionBefore, item.Version, "stale writer must not advance the version")
	})

	t.Run("persists reservations in the same transaction", func(t *testing.T) {
		repo, mock, mockDB := newMockInventoryItemRepository(t)
		defer mockDB.Close()

		item := newTestItem(t)
		_, err := item.Reserve(5, uuid.New(), time.Now().Add(30*time.Minute))
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "inventory_items" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "stock_reservations" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err = repo.SaveWithLock(context.Background(), item)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reservation write failure rolls the stock update back", func(t *testing.T) {
		repo, mock, mockDB := newMockInventoryItemRepository(t)
		defer mockDB.Close()

		item := newTestItem(t)
		_, err := item.Reserve(5, uuid.New(), time.Now().Add(30*time.Minute))
		require.NoError(t, err)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "inventory_items" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "stock_reservations" SET`).
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		err = repo.SaveWithLock(context.Background(), item)

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// Two checkouts loading the same snapshot cannot both commit: the loser
// retries against fresh state and then sees the stock is gone.
func TestOversellPrevention_Domain(t *testing.T) {
	item, err := inventory.NewInventoryItem(uuid.New(), uuid.New())
	require.NoError(t, err)
	require.NoError(t, item.Receive(10))

	expiry := time.Now().Add(30 * time.Minute)

	_, err = item.Reserve(8, uuid.New(), expiry)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Available())

	_, err = item.Reserve(5, uuid.New(), expiry)
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "INSUFFICIENT_STOCK", domainErr.Code)

	// The failed attempt must not leak held units
	assert.Equal(t, 8, item.Reserved)
	assert.Equal(t, 2, item.Available())
}

func TestVersionIncrement(t *testing.T) {
	item, err := inventory.NewInventoryItem(uuid.New(), uuid.New())
	require.NoError(t, err)

	v0 := item.Version
	require.NoError(t, item.Receive(10))
	assert.Equal(t, v0+1, item.Version)

	_, err = item.Reserve(3, uuid.New(), time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, v0+2, item.Version)
}
