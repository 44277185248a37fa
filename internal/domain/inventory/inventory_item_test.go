package inventory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taic/backend/internal/domain/shared"
)

func createTestItem(t *testing.T) *InventoryItem {
	item, err := NewInventoryItem(uuid.New(), uuid.New())
	require.NoError(t, err)
	return item
}

func createStockedItem(t *testing.T, onHand int) *InventoryItem {
	item := createTestItem(t)
	require.NoError(t, item.Receive(onHand))
	item.ClearDomainEvents()
	return item
}

func assertDomainErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

// ============================================
// NewInventoryItem Tests
// ============================================

func TestNewInventoryItem(t *testing.T) {
	t.Run("creates empty item", func(t *testing.T) {
		merchantID := uuid.New()
		productID := uuid.New()
		item, err := NewInventoryItem(merchantID, productID)

		require.NoError(t, err)
		assert.Equal(t, merchantID, item.MerchantID)
		assert.Equal(t, productID, item.ProductID)
		assert.Equal(t, 0, item.OnHand)
		assert.Equal(t, 0, item.Reserved)
		assert.Equal(t, 0, item.Available())
	})

	t.Run("requires merchant and product", func(t *testing.T) {
		_, err := NewInventoryItem(uuid.Nil, uuid.New())
		assertDomainErrorCode(t, err, "INVALID_MERCHANT")

		_, err = NewInventoryItem(uuid.New(), uuid.Nil)
		assertDomainErrorCode(t, err, "INVALID_PRODUCT")
	})
}

// ============================================
// Receive Tests
// ============================================

func TestInventoryItemReceive(t *testing.T) {
	t.Run("adds to on-hand", func(t *testing.T) {
		item := createTestItem(t)

		require.NoError(t, item.Receive(10))
		require.NoError(t, item.Receive(5))

		assert.Equal(t, 15, item.OnHand)
		assert.Equal(t, 15, item.Available())
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		item := createTestItem(t)
		assertDomainErrorCode(t, item.Receive(0), "INVALID_QUANTITY")
		assertDomainErrorCode(t, item.Receive(-3), "INVALID_QUANTITY")
	})

	t.Run("publishes StockReceived", func(t *testing.T) {
		item := createTestItem(t)
		require.NoError(t, item.Receive(10))

		events := item.GetDomainEvents()
		require.Len(t, events, 1)
		event, ok := events[0].(*StockReceivedEvent)
		require.True(t, ok)
		assert.Equal(t, 10, event.Quantity)
		assert.Equal(t, 10, event.OnHand)
	})
}

// ============================================
// Adjust Tests
// ============================================

func TestInventoryItemAdjust(t *testing.T) {
	t.Run("sets counted quantity", func(t *testing.T) {
		item := createStockedItem(t, 10)

		require.NoError(t, item.Adjust(7, "cycle count"))

		assert.Equal(t, 7, item.OnHand)
		events := item.GetDomainEvents()
		require.Len(t, events, 1)
		event := events[0].(*StockAdjustedEvent)
		assert.Equal(t, 10, event.OldQuantity)
		assert.Equal(t, 7, event.NewQuantity)
		assert.Equal(t, "cycle count", event.Reason)
	})

	t.Run("requires reason", func(t *testing.T) {
		item := createStockedItem(t, 10)
		assertDomainErrorCode(t, item.Adjust(7, "  "), "REASON_REQUIRED")
	})

	t.Run("rejects negative quantity", func(t *testing.T) {
		item := createStockedItem(t, 10)
		assertDomainErrorCode(t, item.Adjust(-1, "count"), "INVALID_QUANTITY")
	})

	t.Run("cannot drop below reserved", func(t *testing.T) {
		item := createStockedItem(t, 10)
		_, err := item.Reserve(6, uuid.New(), time.Now().Add(time.Hour))
		require.NoError(t, err)

		assertDomainErrorCode(t, item.Adjust(5, "count"), "RESERVED_EXCEEDS_STOCK")
		assert.NoError(t, item.Adjust(6, "count"))
	})

	t.Run("emits StockLow when under threshold", func(t *testing.T) {
		item := createStockedItem(t, 10)
		require.NoError(t, item.SetLowStockThreshold(5))

		require.NoError(t, item.Adjust(3, "shrinkage"))

		var low *StockLowEvent
		for _, e := range item.GetDomainEvents() {
			if l, ok := e.(*StockLowEvent); ok {
				low = l
			}
		}
		require.NotNil(t, low)
		assert.Equal(t, 3, low.Available)
		assert.Equal(t, 5, low.Threshold)
	})
}

// ============================================
// Reserve Tests
// ============================================

func TestInventoryItemReserve(t *testing.T) {
	t.Run("holds units for an order", func(t *testing.T) {
		item := createStockedItem(t, 10)
		orderID := uuid.New()
		expiresAt := time.Now().Add(30 * time.Minute)

		reservation, err := item.Reserve(4, orderID, expiresAt)

		require.NoError(t, err)
		assert.Equal(t, 10, item.OnHand)
		assert.Equal(t, 4, item.Reserved)
		assert.Equal(t, 6, item.Available())
		assert.Equal(t, orderID, reservation.OrderID)
		assert.Equal(t, ReservationStatusActive, reservation.Status)
		assert.True(t, reservation.ExpiresAt.Equal(expiresAt))
	})

	t.Run("fails when available is short", func(t *testing.T) {
		item := createStockedItem(t, 10)
		_, err := item.Reserve(7, uuid.New(), time.Now().Add(time.Hour))
		require.NoError(t, err)

		_, err = item.Reserve(4, uuid.New(), time.Now().Add(time.Hour))
		assertDomainErrorCode(t, err, "INSUFFICIENT_STOCK")

		// State is untouched by the failed reserve
		assert.Equal(t, 7, item.Reserved)
		assert.Len(t, item.ActiveReservations(), 1)
	})

	t.Run("validates inputs", func(t *testing.T) {
		item := createStockedItem(t, 10)

		_, err := item.Reserve(0, uuid.New(), time.Now().Add(time.Hour))
		assertDomainErrorCode(t, err, "INVALID_QUANTITY")

		_, err = item.Reserve(1, uuid.Nil, time.Now().Add(time.Hour))
		assertDomainErrorCode(t, err, "INVALID_ORDER")
	})

	t.Run("publishes StockReserved", func(t *testing.T) {
		item := createStockedItem(t, 10)
		reservation, err := item.Reserve(4, uuid.New(), time.Now().Add(time.Hour))
		require.NoError(t, err)

		events := item.GetDomainEvents()
		require.Len(t, events, 1)
		event := events[0].(*StockReservedEvent)
		assert.Equal(t, reservation.ID, event.ReservationID)
		assert.Equal(t, 4, event.Quantity)
	})
}

// ============================================
// Release Tests
// ============================================

func TestInventoryItemRelease(t *testing.T) {
	t.Run("returns units to available", func(t *testing.T) {
		item := createStockedItem(t, 10)
		reservation, err := item.Reserve(4, uuid.New(), time.Now().Add(time.Hour))
		require.NoError(t, err)

		require.NoError(t, item.Release(reservation.ID))

		assert.Equal(t, 10, item.OnHand)
		assert.Equal(t, 0, item.Reserved)
		assert.Equal(t, 10, item.Available())
		assert.Equal(t, ReservationStatusReleased, item.Reservations[0].Status)
		assert.NotNil(t, item.Reservations[0].ClosedAt)
	})

	t.Run("rejects unknown or closed reservation", func(t *testing.T) {
		item := createStockedItem(t, 10)
		reservation, err := item.Reserve(4, uuid.New(), time.Now().Add(time.Hour))
		require.NoError(t, err)

		assertDomainErrorCode(t, item.Release(uuid.New()), "RESERVATION_NOT_FOUND")

		require.NoError(t, item.Release(reservation.ID))
		assertDomainErrorCode(t, item.Release(reservation.ID), "RESERVATION_NOT_FOUND")
	})
}

// ============================================
// Commit Tests
// ============================================

func TestInventoryItemCommit(t *testing.T) {
	t.Run("consumes reserved and on-hand", func(t *testing.T) {
		item := createStockedItem(t, 10)
		reservation, err := item.Reserve(4, uuid.New(), time.Now().Add(time.Hour))
		require.NoError(t, err)

		require.NoError(t, item.Commit(reservation.ID))

		assert.Equal(t, 6, item.OnHand)
		assert.Equal(t, 0, item.Reserved)
		assert.Equal(t, 6, item.Available())
		assert.Equal(t, ReservationStatusCommitted, item.Reservations[0].Status)
	})

	t.Run("commit is single-shot", func(t *testing.T) {
		item := createStockedItem(t, 10)
		reservation, err := item.Reserve(4, uuid.New(), time.Now().Add(time.Hour))
		require.NoError(t, err)

		require.NoError(t, item.Commit(reservation.ID))
		assertDomainErrorCode(t, item.Commit(reservation.ID), "RESERVATION_NOT_FOUND")
		assertDomainErrorCode(t, item.Release(reservation.ID), "RESERVATION_NOT_FOUND")

		assert.Equal(t, 6, item.OnHand)
	})

	t.Run("emits StockLow when threshold crossed", func(t *testing.T) {
		item := createStockedItem(t, 10)
		require.NoError(t, item.SetLowStockThreshold(8))
		reservation, err := item.Reserve(4, uuid.New(), time.Now().Add(time.Hour))
		require.NoError(t, err)
		item.ClearDomainEvents()

		require.NoError(t, item.Commit(reservation.ID))

		types := make([]string, 0)
		for _, e := range item.GetDomainEvents() {
			types = append(types, e.EventType())
		}
		assert.Contains(t, types, EventTypeStockCommitted)
		assert.Contains(t, types, EventTypeStockLow)
	})
}

// ============================================
// ReleaseExpired Tests
// ============================================

func TestInventoryItemReleaseExpired(t *testing.T) {
	t.Run("releases only lapsed active reservations", func(t *testing.T) {
		item := createStockedItem(t, 20)
		now := time.Now()

		expired, err := item.Reserve(5, uuid.New(), now.Add(-time.Minute))
		require.NoError(t, err)
		_, err = item.Reserve(3, uuid.New(), now.Add(time.Hour))
		require.NoError(t, err)

		released := item.ReleaseExpired(now)

		assert.Equal(t, 1, released)
		assert.Equal(t, 3, item.Reserved)
		assert.Equal(t, ReservationStatusReleased, item.Reservations[0].Status)
		assert.Equal(t, expired.OrderID, item.Reservations[0].OrderID)
	})

	t.Run("never releases committed reservations", func(t *testing.T) {
		item := createStockedItem(t, 20)
		now := time.Now()

		reservation, err := item.Reserve(5, uuid.New(), now.Add(-time.Minute))
		require.NoError(t, err)
		require.NoError(t, item.Commit(reservation.ID))
		onHand := item.OnHand

		released := item.ReleaseExpired(now)

		assert.Equal(t, 0, released)
		assert.Equal(t, onHand, item.OnHand)
		assert.Equal(t, ReservationStatusCommitted, item.Reservations[0].Status)
	})
}

// ============================================
// Query helper Tests
// ============================================

func TestInventoryItemQueries(t *testing.T) {
	t.Run("CanFulfill", func(t *testing.T) {
		item := createStockedItem(t, 10)
		_, err := item.Reserve(4, uuid.New(), time.Now().Add(time.Hour))
		require.NoError(t, err)

		assert.True(t, item.CanFulfill(6))
		assert.False(t, item.CanFulfill(7))
	})

	t.Run("FindReservationByOrder", func(t *testing.T) {
		item := createStockedItem(t, 10)
		orderID := uuid.New()
		_, err := item.Reserve(4, orderID, time.Now().Add(time.Hour))
		require.NoError(t, err)

		found := item.FindReservationByOrder(orderID)
		require.NotNil(t, found)
		assert.Equal(t, 4, found.Quantity)

		assert.Nil(t, item.FindReservationByOrder(uuid.New()))

		require.NoError(t, item.Release(found.ID))
		assert.Nil(t, item.FindReservationByOrder(orderID))
	})

	t.Run("low stock threshold validation", func(t *testing.T) {
		item := createTestItem(t)
		assertDomainErrorCode(t, item.SetLowStockThreshold(-1), "INVALID_QUANTITY")

		require.NoError(t, item.SetLowStockThreshold(0))
		assert.False(t, item.IsLowStock())
	})
}
