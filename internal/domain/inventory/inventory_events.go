package inventory

import (
	"github.com/google/uuid"
	"github.com/taic/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeInventoryItem = "InventoryItem"

// Event type constants
const (
	EventTypeStockReceived  = "StockReceived"
	EventTypeStockAdjusted  = "StockAdjusted"
	EventTypeStockReserved  = "StockReserved"
	EventTypeStockReleased  = "StockReleased"
	EventTypeStockCommitted = "StockCommitted"
	EventTypeStockLow       = "StockLow"
)

// StockReceivedEvent is published when units are added to on-hand stock
type StockReceivedEvent struct {
	shared.BaseDomainEvent
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	MerchantID      uuid.UUID `json:"merchant_id"`
	ProductID       uuid.UUID `json:"product_id"`
	Quantity        int       `json:"quantity"`
	OnHand          int       `json:"on_hand"`
}

// NewStockReceivedEvent creates a new StockReceivedEvent
func NewStockReceivedEvent(item *InventoryItem, quantity int) *StockReceivedEvent {
	return &StockReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReceived, AggregateTypeInventoryItem, item.ID),
		InventoryItemID: item.ID,
		MerchantID:      item.MerchantID,
		ProductID:       item.ProductID,
		Quantity:        quantity,
		OnHand:          item.OnHand,
	}
}

// StockAdjustedEvent is published when on-hand stock is corrected to a counted quantity
type StockAdjustedEvent struct {
	shared.BaseDomainEvent
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	MerchantID      uuid.UUID `json:"merchant_id"`
	ProductID       uuid.UUID `json:"product_id"`
	OldQuantity     int       `json:"old_quantity"`
	NewQuantity     int       `json:"new_quantity"`
	Reason          string    `json:"reason"`
}

// NewStockAdjustedEvent creates a new StockAdjustedEvent
func NewStockAdjustedEvent(item *InventoryItem, oldQuantity, newQuantity int, reason string) *StockAdjustedEvent {
	return &StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAdjusted, AggregateTypeInventoryItem, item.ID),
		InventoryItemID: item.ID,
		MerchantID:      item.MerchantID,
		ProductID:       item.ProductID,
		OldQuantity:     oldQuantity,
		NewQuantity:     newQuantity,
		Reason:          reason,
	}
}

// StockReservedEvent is published when units are held for a pending order
type StockReservedEvent struct {
	shared.BaseDomainEvent
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	MerchantID      uuid.UUID `json:"merchant_id"`
	ProductID       uuid.UUID `json:"product_id"`
	ReservationID   uuid.UUID `json:"reservation_id"`
	OrderID         uuid.UUID `json:"order_id"`
	Quantity        int       `json:"quantity"`
}

// NewStockReservedEvent creates a new StockReservedEvent
func NewStockReservedEvent(item *InventoryItem, reservation *StockReservation) *StockReservedEvent {
	return &StockReservedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReserved, AggregateTypeInventoryItem, item.ID),
		InventoryItemID: item.ID,
		MerchantID:      item.MerchantID,
		ProductID:       item.ProductID,
		ReservationID:   reservation.ID,
		OrderID:         reservation.OrderID,
		Quantity:        reservation.Quantity,
	}
}

// StockReleasedEvent is published when a reservation's units return to stock
type StockReleasedEvent struct {
	shared.BaseDomainEvent
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	MerchantID      uuid.UUID `json:"merchant_id"`
	ProductID       uuid.UUID `json:"product_id"`
	ReservationID   uuid.UUID `json:"reservation_id"`
	OrderID         uuid.UUID `json:"order_id"`
	Quantity        int       `json:"quantity"`
}

// NewStockReleasedEvent creates a new StockReleasedEvent
func NewStockReleasedEvent(item *InventoryItem, reservation *StockReservation) *StockReleasedEvent {
	return &StockReleasedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReleased, AggregateTypeInventoryItem, item.ID),
		InventoryItemID: item.ID,
		MerchantID:      item.MerchantID,
		ProductID:       item.ProductID,
		ReservationID:   reservation.ID,
		OrderID:         reservation.OrderID,
		Quantity:        reservation.Quantity,
	}
}

// StockCommittedEvent is published when a paid order consumes its reservation
type StockCommittedEvent struct {
	shared.BaseDomainEvent
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	MerchantID      uuid.UUID `json:"merchant_id"`
	ProductID       uuid.UUID `json:"product_id"`
	ReservationID   uuid.UUID `json:"reservation_id"`
	OrderID         uuid.UUID `json:"order_id"`
	Quantity        int       `json:"quantity"`
	OnHand          int       `json:"on_hand"`
}

// NewStockCommittedEvent creates a new StockCommittedEvent
func NewStockCommittedEvent(item *InventoryItem, reservation *StockReservation) *StockCommittedEvent {
	return &StockCommittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockCommitted, AggregateTypeInventoryItem, item.ID),
		InventoryItemID: item.ID,
		MerchantID:      item.MerchantID,
		ProductID:       item.ProductID,
		ReservationID:   reservation.ID,
		OrderID:         reservation.OrderID,
		Quantity:        reservation.Quantity,
		OnHand:          item.OnHand,
	}
}

// stockLowSchemaVersion is 2: v1 named the threshold field min_quantity.
// The serializer registry upgrades stored v1 payloads on read.
const stockLowSchemaVersion = 2

// StockLowEvent is published when available units fall below the alert threshold
type StockLowEvent struct {
	shared.BaseDomainEvent
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	MerchantID      uuid.UUID `json:"merchant_id"`
	ProductID       uuid.UUID `json:"product_id"`
	Available       int       `json:"available"`
	Threshold       int       `json:"threshold"`
}

// NewStockLowEvent creates a new StockLowEvent
func NewStockLowEvent(item *InventoryItem) *StockLowEvent {
	return &StockLowEvent{
		BaseDomainEvent: shared.NewVersionedBaseDomainEvent(EventTypeStockLow, AggregateTypeInventoryItem, item.ID, stockLowSchemaVersion),
		InventoryItemID: item.ID,
		MerchantID:      item.MerchantID,
		ProductID:       item.ProductID,
		Available:       item.Available(),
		Threshold:       item.LowStockThreshold,
	}
}
