package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/taic/backend/internal/domain/shared"
)

// ReservationStatus represents the lifecycle state of a stock reservation
type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusReleased  ReservationStatus = "released"  // Returned to stock (cancelled or expired)
	ReservationStatusCommitted ReservationStatus = "committed" // Consumed by a paid order
)

// StockReservation holds units of an inventory item for a pending order
type StockReservation struct {
	shared.BaseEntity
	InventoryItemID uuid.UUID         `gorm:"type:uuid;not null;index"`
	OrderID         uuid.UUID         `gorm:"type:uuid;not null;index"`
	Quantity        int               `gorm:"not null"`
	Status          ReservationStatus `gorm:"type:varchar(20);not null;default:'active';index"`
	ExpiresAt       time.Time         `gorm:"not null;index"`
	ClosedAt        *time.Time        // When the reservation was released or committed
}

// TableName returns the table name for GORM
func (StockReservation) TableName() string {
	return "stock_reservations"
}

// NewStockReservation creates a new active reservation
func NewStockReservation(inventoryItemID, orderID uuid.UUID, quantity int, expiresAt time.Time) *StockReservation {
	return &StockReservation{
		BaseEntity:      shared.NewBaseEntity(),
		InventoryItemID: inventoryItemID,
		OrderID:         orderID,
		Quantity:        quantity,
		Status:          ReservationStatusActive,
		ExpiresAt:       expiresAt,
	}
}

// IsActive returns true if the reservation is still holding stock
func (r *StockReservation) IsActive() bool {
	return r.Status == ReservationStatusActive
}

// IsExpired returns true if the reservation's hold has lapsed at the given time
func (r *StockReservation) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Release marks the reservation as returned to stock
func (r *StockReservation) Release() {
	now := time.Now()
	r.Status = ReservationStatusReleased
	r.ClosedAt = &now
	r.UpdatedAt = now
}

// Commit marks the reservation as consumed by a paid order
func (r *StockReservation) Commit() {
	now := time.Now()
	r.Status = ReservationStatusCommitted
	r.ClosedAt = &now
	r.UpdatedAt = now
}
