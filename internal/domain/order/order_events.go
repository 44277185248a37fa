package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/taic/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderCreated   = "OrderCreated"
	EventTypeOrderPaid      = "OrderPaid"
	EventTypeOrderShipped   = "OrderShipped"
	EventTypeOrderDelivered = "OrderDelivered"
	EventTypeOrderCompleted = "OrderCompleted"
	EventTypeOrderCancelled = "OrderCancelled"
	EventTypeOrderRefunded  = "OrderRefunded"
)

// OrderItemSnapshot carries the per-line facts downstream handlers need
type OrderItemSnapshot struct {
	ProductID        uuid.UUID       `json:"product_id"`
	ProductName      string          `json:"product_name"`
	Quantity         int             `json:"quantity"`
	LineTotal        decimal.Decimal `json:"line_total"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	MerchantEarnings decimal.Decimal `json:"merchant_earnings"`
}

func snapshotItems(o *Order) []OrderItemSnapshot {
	snapshots := make([]OrderItemSnapshot, 0, len(o.Items))
	for _, item := range o.Items {
		snapshots = append(snapshots, OrderItemSnapshot{
			ProductID:        item.ProductID,
			ProductName:      item.ProductName,
			Quantity:         item.Quantity,
			LineTotal:        item.LineTotal,
			CommissionAmount: item.CommissionAmount,
			MerchantEarnings: item.MerchantEarnings,
		})
	}
	return snapshots
}

// OrderCreatedEvent is published when checkout places a new order
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID           `json:"order_id"`
	OrderNumber string              `json:"order_number"`
	MerchantID  uuid.UUID           `json:"merchant_id"`
	BuyerID     uuid.UUID           `json:"buyer_id"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Items       []OrderItemSnapshot `json:"items"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		MerchantID:      o.MerchantID,
		BuyerID:         o.BuyerID,
		TotalAmount:     o.TotalAmount,
		Items:           snapshotItems(o),
	}
}

// OrderPaidEvent is published when payment for an order is captured
type OrderPaidEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	MerchantID  uuid.UUID       `json:"merchant_id"`
	BuyerID     uuid.UUID       `json:"buyer_id"`
	PaymentID   uuid.UUID       `json:"payment_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	PaidAt      time.Time       `json:"paid_at"`
}

// NewOrderPaidEvent creates a new OrderPaidEvent
func NewOrderPaidEvent(o *Order) *OrderPaidEvent {
	var paymentID uuid.UUID
	if o.PaymentID != nil {
		paymentID = *o.PaymentID
	}
	var paidAt time.Time
	if o.PaidAt != nil {
		paidAt = *o.PaidAt
	}
	return &OrderPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPaid, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		MerchantID:      o.MerchantID,
		BuyerID:         o.BuyerID,
		PaymentID:       paymentID,
		TotalAmount:     o.TotalAmount,
		PaidAt:          paidAt,
	}
}

// OrderShippedEvent is published when the merchant hands the order to a carrier
type OrderShippedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID `json:"order_id"`
	OrderNumber    string    `json:"order_number"`
	MerchantID     uuid.UUID `json:"merchant_id"`
	BuyerID        uuid.UUID `json:"buyer_id"`
	TrackingNumber string    `json:"tracking_number"`
	Carrier        string    `json:"carrier"`
}

// NewOrderShippedEvent creates a new OrderShippedEvent
func NewOrderShippedEvent(o *Order) *OrderShippedEvent {
	return &OrderShippedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderShipped, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		MerchantID:      o.MerchantID,
		BuyerID:         o.BuyerID,
		TrackingNumber:  o.TrackingNumber,
		Carrier:         o.Carrier,
	}
}

// OrderDeliveredEvent is published when the carrier confirms delivery
type OrderDeliveredEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	MerchantID  uuid.UUID `json:"merchant_id"`
	BuyerID     uuid.UUID `json:"buyer_id"`
}

// NewOrderDeliveredEvent creates a new OrderDeliveredEvent
func NewOrderDeliveredEvent(o *Order) *OrderDeliveredEvent {
	return &OrderDeliveredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderDelivered, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		MerchantID:      o.MerchantID,
		BuyerID:         o.BuyerID,
	}
}

// OrderCompletedEvent is published when an order finishes and earnings vest.
// Item snapshots let the ledger credit each line's merchant earnings.
type OrderCompletedEvent struct {
	shared.BaseDomainEvent
	OrderID          uuid.UUID           `json:"order_id"`
	OrderNumber      string              `json:"order_number"`
	MerchantID       uuid.UUID           `json:"merchant_id"`
	BuyerID          uuid.UUID           `json:"buyer_id"`
	PlatformFee      decimal.Decimal     `json:"platform_fee"`
	MerchantEarnings decimal.Decimal     `json:"merchant_earnings"`
	Items            []OrderItemSnapshot `json:"items"`
}

// NewOrderCompletedEvent creates a new OrderCompletedEvent
func NewOrderCompletedEvent(o *Order) *OrderCompletedEvent {
	return &OrderCompletedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeOrderCompleted, AggregateTypeOrder, o.ID),
		OrderID:          o.ID,
		OrderNumber:      o.OrderNumber,
		MerchantID:       o.MerchantID,
		BuyerID:          o.BuyerID,
		PlatformFee:      o.PlatformFee,
		MerchantEarnings: o.GetMerchantEarningsMoney().Amount(),
		Items:            snapshotItems(o),
	}
}

// OrderCancelledEvent is published when an order is cancelled.
// WasPaid tells handlers whether a refund must accompany the stock release.
type OrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	MerchantID  uuid.UUID `json:"merchant_id"`
	BuyerID     uuid.UUID `json:"buyer_id"`
	Reason      string    `json:"reason"`
	WasPaid     bool      `json:"was_paid"`
}

// NewOrderCancelledEvent creates a new OrderCancelledEvent
func NewOrderCancelledEvent(o *Order, reason string, wasPaid bool) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCancelled, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		MerchantID:      o.MerchantID,
		BuyerID:         o.BuyerID,
		Reason:          reason,
		WasPaid:         wasPaid,
	}
}

// OrderRefundedEvent is published when the full order amount is returned
type OrderRefundedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	MerchantID  uuid.UUID       `json:"merchant_id"`
	BuyerID     uuid.UUID       `json:"buyer_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewOrderRefundedEvent creates a new OrderRefundedEvent
func NewOrderRefundedEvent(o *Order) *OrderRefundedEvent {
	return &OrderRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderRefunded, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		MerchantID:      o.MerchantID,
		BuyerID:         o.BuyerID,
		TotalAmount:     o.TotalAmount,
	}
}
