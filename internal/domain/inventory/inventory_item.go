package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taic/backend/internal/domain/shared"
)

// InventoryItem tracks stock for a single product of a single merchant.
// It is the aggregate root for stock operations.
// The composite identifier is MerchantID + ProductID.
type InventoryItem struct {
	shared.MerchantAggregateRoot
	ProductID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_merchant_product,priority:2"`
	OnHand            int       `gorm:"not null;default:0"` // Physical units in stock
	Reserved          int       `gorm:"not null;default:0"` // Units held for pending orders
	LowStockThreshold int       `gorm:"not null;default:0"` // 0 disables low-stock alerts

	// Associations - loaded lazily
	Reservations []StockReservation `gorm:"foreignKey:InventoryItemID;references:ID"`
}

// TableName returns the table name for GORM
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// NewInventoryItem creates a new inventory item for a merchant-product combination
func NewInventoryItem(merchantID, productID uuid.UUID) (*InventoryItem, error) {
	if merchantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MERCHANT", "Merchant ID cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}

	return &InventoryItem{
		MerchantAggregateRoot: shared.NewMerchantAggregateRoot(merchantID),
		ProductID:             productID,
		Reservations:          make([]StockReservation, 0),
	}, nil
}

// Available returns the units that can still be reserved
func (i *InventoryItem) Available() int {
	return i.OnHand - i.Reserved
}

// Receive adds received units to on-hand stock
func (i *InventoryItem) Receive(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Receive quantity must be positive")
	}

	i.OnHand += quantity
	i.Touch()

	i.AddDomainEvent(NewStockReceivedEvent(i, quantity))

	return nil
}

// Adjust sets on-hand stock to a counted quantity.
// The new quantity cannot drop below the currently reserved units.
func (i *InventoryItem) Adjust(quantity int, reason string) error {
	if quantity < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Adjusted quantity cannot be negative")
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewDomainError("REASON_REQUIRED", "Adjustment reason is required")
	}
	if quantity < i.Reserved {
		return shared.NewDomainError("RESERVED_EXCEEDS_STOCK", "Adjusted quantity cannot be below reserved units")
	}

	oldQuantity := i.OnHand
	i.OnHand = quantity
	i.Touch()

	i.AddDomainEvent(NewStockAdjustedEvent(i, oldQuantity, quantity, reason))
	i.checkLowStock()

	return nil
}

// Reserve holds units for a pending order until it is paid or cancelled.
// Fails with INSUFFICIENT_STOCK when fewer units are available than requested.
func (i *InventoryItem) Reserve(quantity int, orderID uuid.UUID, expiresAt time.Time) (*StockReservation, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Reserve quantity must be positive")
	}
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order ID is required")
	}
	if i.Available() < quantity {
		return nil, shared.NewDomainError("INSUFFICIENT_STOCK", "Insufficient available stock to reserve")
	}

	i.Reserved += quantity
	i.Touch()

	reservation := NewStockReservation(i.ID, orderID, quantity, expiresAt)
	i.Reservations = append(i.Reservations, *reservation)

	i.AddDomainEvent(NewStockReservedEvent(i, reservation))
	i.checkLowStock()

	return reservation, nil
}

// Release returns a reservation's units to available stock.
// Used when the backing order is cancelled or the reservation expires.
func (i *InventoryItem) Release(reservationID uuid.UUID) error {
	idx := i.findActiveReservation(reservationID)
	if idx < 0 {
		return shared.NewDomainError("RESERVATION_NOT_FOUND", "Reservation not found or no longer active")
	}

	reservation := &i.Reservations[idx]
	i.Reserved -= reservation.Quantity
	i.Touch()

	reservation.Release()

	i.AddDomainEvent(NewStockReleasedEvent(i, reservation))

	return nil
}

// Commit consumes a reservation after its order is paid.
// Both reserved and on-hand drop by the reserved quantity.
func (i *InventoryItem) Commit(reservationID uuid.UUID) error {
	idx := i.findActiveReservation(reservationID)
	if idx < 0 {
		return shared.NewDomainError("RESERVATION_NOT_FOUND", "Reservation not found or no longer active")
	}

	reservation := &i.Reservations[idx]
	i.Reserved -= reservation.Quantity
	i.OnHand -= reservation.Quantity
	i.Touch()

	reservation.Commit()

	i.AddDomainEvent(NewStockCommittedEvent(i, reservation))
	i.checkLowStock()

	return nil
}

// ReleaseExpired releases every active reservation whose expiry has passed.
// Committed and already released reservations are never touched.
// Returns the number of reservations released.
func (i *InventoryItem) ReleaseExpired(now time.Time) int {
	count := 0
	for idx := range i.Reservations {
		r := &i.Reservations[idx]
		if r.IsActive() && r.IsExpired(now) {
			if err := i.Release(r.ID); err == nil {
				count++
			}
		}
	}
	return count
}

// SetLowStockThreshold sets the quantity below which low-stock alerts fire.
// Zero disables alerts.
func (i *InventoryItem) SetLowStockThreshold(quantity int) error {
	if quantity < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Low stock threshold cannot be negative")
	}

	i.LowStockThreshold = quantity
	i.Touch()

	return nil
}

// CanFulfill returns true if enough units are available to reserve
func (i *InventoryItem) CanFulfill(quantity int) bool {
	return i.Available() >= quantity
}

// IsLowStock returns true if available units have fallen below the threshold
func (i *InventoryItem) IsLowStock() bool {
	return i.LowStockThreshold > 0 && i.Available() < i.LowStockThreshold
}

// ActiveReservations returns all reservations that are still holding stock
func (i *InventoryItem) ActiveReservations() []StockReservation {
	active := make([]StockReservation, 0)
	for _, r := range i.Reservations {
		if r.IsActive() {
			active = append(active, r)
		}
	}
	return active
}

// FindReservationByOrder returns the active reservation held for an order, if any
func (i *InventoryItem) FindReservationByOrder(orderID uuid.UUID) *StockReservation {
	for idx := range i.Reservations {
		if i.Reservations[idx].OrderID == orderID && i.Reservations[idx].IsActive() {
			return &i.Reservations[idx]
		}
	}
	return nil
}

func (i *InventoryItem) findActiveReservation(reservationID uuid.UUID) int {
	for idx := range i.Reservations {
		if i.Reservations[idx].ID == reservationID && i.Reservations[idx].IsActive() {
			return idx
		}
	}
	return -1
}

func (i *InventoryItem) checkLowStock() {
	if i.IsLowStock() {
		i.AddDomainEvent(NewStockLowEvent(i))
	}
}
