package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/taic/backend/internal/domain/shared"
)

// SalesStats aggregates a merchant's sales figures over a set of statuses
type SalesStats struct {
	OrderCount int64
	GrossSales decimal.Decimal // Sum of order totals
	Earnings   decimal.Decimal // Sum of totals minus platform fees
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// FindByID finds an order with its items by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByIDForBuyer finds an order by ID scoped to the buyer who placed it
	FindByIDForBuyer(ctx context.Context, buyerID, id uuid.UUID) (*Order, error)

	// FindByIDForMerchant finds an order by ID scoped to the selling merchant
	FindByIDForMerchant(ctx context.Context, merchantID, id uuid.UUID) (*Order, error)

	// FindByOrderNumber finds an order by its order number
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)

	// FindByBuyer finds orders placed by a buyer
	FindByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) ([]Order, error)

	// FindByMerchant finds orders sold by a merchant
	FindByMerchant(ctx context.Context, merchantID uuid.UUID, filter shared.Filter) ([]Order, error)

	// FindAll finds all orders matching the filter (admin)
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, error)

	// Save creates or updates an order and its items
	Save(ctx context.Context, order *Order) error

	// SaveWithLock saves an order with optimistic locking (version check)
	SaveWithLock(ctx context.Context, order *Order) error

	// CountByBuyer counts orders placed by a buyer
	CountByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) (int64, error)

	// CountByMerchant counts orders sold by a merchant
	CountByMerchant(ctx context.Context, merchantID uuid.UUID, filter shared.Filter) (int64, error)

	// Count counts all orders matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// CountByMerchantAndStatus counts a merchant's orders in a status
	CountByMerchantAndStatus(ctx context.Context, merchantID uuid.UUID, status OrderStatus) (int64, error)

	// MerchantSalesStats sums a merchant's order totals and earnings
	// over orders in the given statuses
	MerchantSalesStats(ctx context.Context, merchantID uuid.UUID, statuses ...OrderStatus) (*SalesStats, error)

	// ExistsByOrderNumber checks if an order number is already taken
	ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error)
}
