package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taic/backend/internal/domain/shared"
)

// InventoryItemRepository defines the interface for inventory item persistence
type InventoryItemRepository interface {
	// FindByID finds an inventory item by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryItem, error)

	// FindByIDForMerchant finds an inventory item by ID within a merchant
	FindByIDForMerchant(ctx context.Context, merchantID, id uuid.UUID) (*InventoryItem, error)

	// FindByProduct finds the inventory item for a merchant-product combination
	FindByProduct(ctx context.Context, merchantID, productID uuid.UUID) (*InventoryItem, error)

	// FindByProducts finds inventory items for several products of one merchant
	FindByProducts(ctx context.Context, merchantID uuid.UUID, productIDs []uuid.UUID) ([]InventoryItem, error)

	// FindAllForMerchant finds all inventory items for a merchant
	FindAllForMerchant(ctx context.Context, merchantID uuid.UUID, filter shared.Filter) ([]InventoryItem, error)

	// FindLowStock finds items whose available units are below their threshold
	FindLowStock(ctx context.Context, merchantID uuid.UUID, filter shared.Filter) ([]InventoryItem, error)

	// FindByOrderReservations finds items holding active reservations for an order
	FindByOrderReservations(ctx context.Context, orderID uuid.UUID) ([]InventoryItem, error)

	// FindWithExpiredReservations finds items holding active reservations past their expiry
	FindWithExpiredReservations(ctx context.Context, asOf time.Time, limit int) ([]InventoryItem, error)

	// Save creates or updates an inventory item and its reservations
	Save(ctx context.Context, item *InventoryItem) error

	// SaveWithLock saves with optimistic locking (checks version)
	SaveWithLock(ctx context.Context, item *InventoryItem) error

	// Delete deletes an inventory item
	Delete(ctx context.Context, id uuid.UUID) error

	// CountForMerchant counts inventory items for a merchant
	CountForMerchant(ctx context.Context, merchantID uuid.UUID, filter shared.Filter) (int64, error)

	// ExistsByProduct checks if inventory exists for a merchant-product combination
	ExistsByProduct(ctx context.Context, merchantID, productID uuid.UUID) (bool, error)
}

// StockReservationRepository defines read access to reservations across items
type StockReservationRepository interface {
	// FindByID finds a reservation by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*StockReservation, error)

	// FindByOrder finds all reservations for an order
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]StockReservation, error)

	// FindActiveByOrder finds reservations for an order that still hold stock
	FindActiveByOrder(ctx context.Context, orderID uuid.UUID) ([]StockReservation, error)

	// CountActive counts reservations that still hold stock
	CountActive(ctx context.Context) (int64, error)
}
