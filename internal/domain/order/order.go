package order

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/taic/backend/internal/domain/shared"
	"github.com/taic/backend/internal/domain/shared/valueobject"
)

// OrderStatus represents the fulfillment state of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"    // Awaiting payment
	OrderStatusPaid       OrderStatus = "PAID"       // Payment captured, stock committed
	OrderStatusProcessing OrderStatus = "PROCESSING" // Merchant preparing shipment
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCompleted  OrderStatus = "COMPLETED" // Earnings credited to merchant
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transitions are allowed
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled || s == OrderStatusRefunded
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusPaid || target == OrderStatusCancelled
	case OrderStatusPaid:
		return target == OrderStatusProcessing || target == OrderStatusCancelled || target == OrderStatusRefunded
	case OrderStatusProcessing:
		return target == OrderStatusShipped || target == OrderStatusRefunded
	case OrderStatusShipped:
		return target == OrderStatusDelivered || target == OrderStatusRefunded
	case OrderStatusDelivered:
		return target == OrderStatusCompleted || target == OrderStatusRefunded
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded:
		return false // Terminal states
	}
	return false
}

// ShippingAddress is the delivery destination snapshot taken at checkout
type ShippingAddress struct {
	RecipientName string `gorm:"type:varchar(200)"`
	Phone         string `gorm:"type:varchar(50)"`
	Line1         string `gorm:"type:varchar(200)"`
	Line2         string `gorm:"type:varchar(200)"`
	City          string `gorm:"type:varchar(100)"`
	State         string `gorm:"type:varchar(100)"`
	PostalCode    string `gorm:"type:varchar(20)"`
	Country       string `gorm:"type:varchar(2)"` // ISO 3166-1 alpha-2
}

// Validate checks that the required address fields are present
func (a ShippingAddress) Validate() error {
	if strings.TrimSpace(a.RecipientName) == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "Recipient name is required")
	}
	if strings.TrimSpace(a.Line1) == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "Address line 1 is required")
	}
	if strings.TrimSpace(a.City) == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "City is required")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "Postal code is required")
	}
	if len(a.Country) != 2 {
		return shared.NewDomainError("INVALID_ADDRESS", "Country must be a 2-letter ISO code")
	}
	return nil
}

// Order is the aggregate root for a buyer's purchase from a single merchant.
// Checkout splits multi-merchant carts, so every item shares the order's
// MerchantID. Items are immutable after creation.
type Order struct {
	shared.MerchantAggregateRoot
	OrderNumber     string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	BuyerID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	BuyerEmail      string          `gorm:"type:varchar(320);not null"`
	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;references:ID"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Sum of line totals
	ShippingFee     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Subtotal + ShippingFee
	PlatformFee     decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Sum of item commissions
	Status          OrderStatus     `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	PaymentID       *uuid.UUID      `gorm:"type:uuid"`
	TrackingNumber  string          `gorm:"type:varchar(100)"`
	Carrier         string          `gorm:"type:varchar(100)"`
	CancelReason    string          `gorm:"type:text"`
	PaidAt          *time.Time
	ShippedAt       *time.Time
	DeliveredAt     *time.Time
	CompletedAt     *time.Time
	CancelledAt     *time.Time
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// NewOrder creates an order in PENDING status from checkout lines.
// The item list is fixed at creation; changing a cart means a new checkout.
func NewOrder(merchantID, buyerID uuid.UUID, orderNumber, buyerEmail string, shipping ShippingAddress, lines []OrderLine, shippingFee valueobject.Money) (*Order, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if len(orderNumber) > 50 {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number cannot exceed 50 characters")
	}
	if merchantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MERCHANT", "Merchant ID cannot be empty")
	}
	if buyerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BUYER", "Buyer ID cannot be empty")
	}
	if buyerEmail == "" {
		return nil, shared.NewDomainError("INVALID_EMAIL", "Buyer email cannot be empty")
	}
	if err := shipping.Validate(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("NO_ITEMS", "Order must contain at least one item")
	}
	if shippingFee.IsNegative() {
		return nil, shared.NewDomainError("INVALID_SHIPPING_FEE", "Shipping fee cannot be negative")
	}

	order := &Order{
		MerchantAggregateRoot: shared.NewMerchantAggregateRoot(merchantID),
		OrderNumber:           orderNumber,
		BuyerID:               buyerID,
		BuyerEmail:            strings.ToLower(buyerEmail),
		ShippingAddress:       shipping,
		Items:                 make([]OrderItem, 0, len(lines)),
		ShippingFee:           shippingFee.Amount(),
		Status:                OrderStatusPending,
	}

	subtotal := valueobject.ZeroUSD()
	platformFee := valueobject.ZeroUSD()
	for _, line := range lines {
		item, err := NewOrderItem(order.ID, merchantID, line)
		if err != nil {
			return nil, err
		}
		order.Items = append(order.Items, *item)
		if subtotal, err = subtotal.Add(item.GetLineTotalMoney()); err != nil {
			return nil, err
		}
		if platformFee, err = platformFee.Add(item.GetCommissionMoney()); err != nil {
			return nil, err
		}
	}

	total, err := subtotal.Add(shippingFee)
	if err != nil {
		return nil, err
	}
	order.Subtotal = subtotal.Amount()
	order.PlatformFee = platformFee.Amount()
	order.TotalAmount = total.Amount()

	order.AddDomainEvent(NewOrderCreatedEvent(order))

	return order, nil
}

// MarkPaid records a captured payment and moves the order to PAID
func (o *Order) MarkPaid(paymentID uuid.UUID) error {
	if err := o.ensureTransition(OrderStatusPaid); err != nil {
		return err
	}
	if paymentID == uuid.Nil {
		return shared.NewDomainError("INVALID_PAYMENT", "Payment ID cannot be empty")
	}

	now := time.Now()
	o.Status = OrderStatusPaid
	o.PaymentID = &paymentID
	o.PaidAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderPaidEvent(o))

	return nil
}

// StartProcessing moves a paid order into the merchant's fulfillment queue
func (o *Order) StartProcessing() error {
	if err := o.ensureTransition(OrderStatusProcessing); err != nil {
		return err
	}

	o.Status = OrderStatusProcessing
	o.Touch()

	return nil
}

// MarkShipped records the shipment and its tracking details
func (o *Order) MarkShipped(trackingNumber, carrier string) error {
	if err := o.ensureTransition(OrderStatusShipped); err != nil {
		return err
	}
	if strings.TrimSpace(trackingNumber) == "" {
		return shared.NewDomainError("TRACKING_REQUIRED", "Tracking number is required")
	}

	now := time.Now()
	o.Status = OrderStatusShipped
	o.TrackingNumber = trackingNumber
	o.Carrier = carrier
	o.ShippedAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderShippedEvent(o))

	return nil
}

// MarkDelivered records that the carrier delivered the order
func (o *Order) MarkDelivered() error {
	if err := o.ensureTransition(OrderStatusDelivered); err != nil {
		return err
	}

	now := time.Now()
	o.Status = OrderStatusDelivered
	o.DeliveredAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderDeliveredEvent(o))

	return nil
}

// Complete finishes the order and releases merchant earnings for payout
func (o *Order) Complete() error {
	if err := o.ensureTransition(OrderStatusCompleted); err != nil {
		return err
	}

	now := time.Now()
	o.Status = OrderStatusCompleted
	o.CompletedAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderCompletedEvent(o))

	return nil
}

// Cancel cancels a PENDING or PAID order.
// The OrderCancelled event carries whether payment had been captured so
// downstream handlers know to release the reservation and refund.
func (o *Order) Cancel(reason string) error {
	if err := o.ensureTransition(OrderStatusCancelled); err != nil {
		return err
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewDomainError("REASON_REQUIRED", "Cancellation reason is required")
	}

	wasPaid := o.Status == OrderStatusPaid
	now := time.Now()
	o.Status = OrderStatusCancelled
	o.CancelReason = reason
	o.CancelledAt = &now
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderCancelledEvent(o, reason, wasPaid))

	return nil
}

// MarkRefunded records a completed refund of the full order amount
func (o *Order) MarkRefunded() error {
	if err := o.ensureTransition(OrderStatusRefunded); err != nil {
		return err
	}

	now := time.Now()
	o.Status = OrderStatusRefunded
	o.UpdatedAt = now

	o.AddDomainEvent(NewOrderRefundedEvent(o))

	return nil
}

// BelongsToBuyer returns true if the order was placed by the given user
func (o *Order) BelongsToBuyer(userID uuid.UUID) bool {
	return o.BuyerID == userID
}

// BelongsToMerchant returns true if the order's items are sold by the given merchant
func (o *Order) BelongsToMerchant(merchantID uuid.UUID) bool {
	return o.MerchantID == merchantID
}

// IsCancellableByBuyer returns true while the buyer may still cancel unaided
func (o *Order) IsCancellableByBuyer() bool {
	return o.Status == OrderStatusPending
}

// GetSubtotalMoney returns the item subtotal as Money
func (o *Order) GetSubtotalMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(o.Subtotal)
}

// GetShippingFeeMoney returns the shipping fee as Money
func (o *Order) GetShippingFeeMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(o.ShippingFee)
}

// GetTotalMoney returns the charged total as Money
func (o *Order) GetTotalMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(o.TotalAmount)
}

// GetPlatformFeeMoney returns the summed commissions as Money
func (o *Order) GetPlatformFeeMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(o.PlatformFee)
}

// GetMerchantEarningsMoney returns the merchant's share of the order as Money
func (o *Order) GetMerchantEarningsMoney() valueobject.Money {
	earnings := decimal.Zero
	for _, item := range o.Items {
		earnings = earnings.Add(item.MerchantEarnings)
	}
	return valueobject.NewMoneyUSD(earnings)
}

func (o *Order) ensureTransition(target OrderStatus) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATUS_TRANSITION",
			fmt.Sprintf("Cannot transition order from %s to %s", o.Status, target))
	}
	return nil
}

// orderNumberAlphabet excludes 0/O/1/I/L to keep numbers readable over the phone
const orderNumberAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// NewOrderNumber generates an order number of the form TAIC-YYYYMMDD-XXXXXX.
// The random suffix makes collisions unlikely; the unique index on
// order_number catches the rest and callers retry.
func NewOrderNumber(t time.Time) string {
	suffix := make([]byte, 6)
	random := make([]byte, 6)
	_, _ = rand.Read(random)
	for i, b := range random {
		suffix[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}
	return fmt.Sprintf("TAIC-%s-%s", t.Format("20060102"), string(suffix))
}
