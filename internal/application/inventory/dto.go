package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/taic/backend/internal/domain/inventory"
)

// ReceiveStockRequest represents a request to add received units to stock
type ReceiveStockRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// AdjustStockRequest represents a request to correct on-hand stock to a counted quantity
type AdjustStockRequest struct {
	Quantity int    `json:"quantity" binding:"gte=0"`
	Reason   string `json:"reason" binding:"required,max=500"`
}

// SetLowStockThresholdRequest represents a request to change the low-stock alert threshold
type SetLowStockThresholdRequest struct {
	Threshold int `json:"threshold" binding:"gte=0"`
}

// InventoryListFilter represents filter options for inventory listings
type InventoryListFilter struct {
	Search   string `form:"search"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// InventoryItemResponse represents an inventory item in API responses
type InventoryItemResponse struct {
	ID                uuid.UUID `json:"id"`
	MerchantID        uuid.UUID `json:"merchant_id"`
	ProductID         uuid.UUID `json:"product_id"`
	OnHand            int       `json:"on_hand"`
	Reserved          int       `json:"reserved"`
	Available         int       `json:"available"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	IsLowStock        bool      `json:"is_low_stock"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	Version           int       `json:"version"`
}

// ReservationResponse represents a stock reservation in API responses
type ReservationResponse struct {
	ID        uuid.UUID  `json:"id"`
	ProductID uuid.UUID  `json:"product_id"`
	OrderID   uuid.UUID  `json:"order_id"`
	Quantity  int        `json:"quantity"`
	Status    string     `json:"status"`
	ExpiresAt time.Time  `json:"expires_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// ToInventoryItemResponse converts a domain inventory item to a response DTO
func ToInventoryItemResponse(item *inventory.InventoryItem) *InventoryItemResponse {
	return &InventoryItemResponse{
		ID:                item.ID,
		MerchantID:        item.MerchantID,
		ProductID:         item.ProductID,
		OnHand:            item.OnHand,
		Reserved:          item.Reserved,
		Available:         item.Available(),
		LowStockThreshold: item.LowStockThreshold,
		IsLowStock:        item.IsLowStock(),
		CreatedAt:         item.CreatedAt,
		UpdatedAt:         item.UpdatedAt,
		Version:           item.Version,
	}
}

// ToReservationResponse converts a reservation attached to an item to a response DTO
func ToReservationResponse(item *inventory.InventoryItem, reservation *inventory.StockReservation) *ReservationResponse {
	return &ReservationResponse{
		ID:        reservation.ID,
		ProductID: item.ProductID,
		OrderID:   reservation.OrderID,
		Quantity:  reservation.Quantity,
		Status:    string(reservation.Status),
		ExpiresAt: reservation.ExpiresAt,
		ClosedAt:  reservation.ClosedAt,
	}
}
