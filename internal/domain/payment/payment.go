package payment

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/taic/backend/internal/domain/shared"
	"github.com/taic/backend/internal/domain/shared/valueobject"
)

// PaymentStatus mirrors the Stripe payment intent lifecycle
type PaymentStatus string

const (
	PaymentStatusRequiresPayment PaymentStatus = "requires_payment" // Intent created, awaiting buyer action
	PaymentStatusProcessing      PaymentStatus = "processing"
	PaymentStatusSucceeded       PaymentStatus = "succeeded"
	PaymentStatusFailed          PaymentStatus = "failed" // Retryable, the intent stays open
	PaymentStatusRefunded        PaymentStatus = "refunded"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusRequiresPayment, PaymentStatusProcessing, PaymentStatusSucceeded,
		PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// ProviderStripe is the only payment provider in use
const ProviderStripe = "stripe"

// Payment is the aggregate root tracking the charge for one order.
// Status transitions are driven by Stripe webhooks, which replay and
// arrive out of order, so every transition is idempotent: marking a
// payment with its current status is a no-op, and late events never
// regress a settled payment.
type Payment struct {
	shared.BaseAggregateRoot
	OrderID               uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Provider              string          `gorm:"type:varchar(20);not null;default:'stripe'"`
	Amount                decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	StripePaymentIntentID string          `gorm:"type:varchar(255);index"`
	ClientSecret          string          `gorm:"-"` // Returned to the buyer once, never persisted
	Status                PaymentStatus   `gorm:"type:varchar(30);not null;default:'requires_payment';index"`
	FailureReason         string          `gorm:"type:text"`
	RefundID              string          `gorm:"type:varchar(255)"`
	SucceededAt           *time.Time
	RefundedAt            *time.Time
}

// TableName returns the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// NewPayment creates a payment awaiting buyer action
func NewPayment(orderID uuid.UUID, amount valueobject.Money) (*Payment, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}

	return &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderID:           orderID,
		Provider:          ProviderStripe,
		Amount:            amount.Amount(),
		Status:            PaymentStatusRequiresPayment,
	}, nil
}

// AttachIntent records the Stripe payment intent backing this payment.
// The client secret is transient and only lives on the instance that
// created the intent.
func (p *Payment) AttachIntent(intentID, clientSecret string) error {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return shared.NewDomainError("INVALID_INTENT", "Payment intent ID cannot be empty")
	}
	if p.StripePaymentIntentID != "" && p.StripePaymentIntentID != intentID {
		return shared.NewDomainError("INTENT_ALREADY_ATTACHED", "Payment is already backed by a different intent")
	}

	p.StripePaymentIntentID = intentID
	p.ClientSecret = clientSecret
	p.Touch()

	return nil
}

// MarkProcessing records that the buyer submitted payment details.
// Only a fresh payment moves to processing; anything later stays put.
func (p *Payment) MarkProcessing() error {
	if p.Status != PaymentStatusRequiresPayment {
		return nil
	}

	p.Status = PaymentStatusProcessing
	p.Touch()

	return nil
}

// MarkSucceeded records a captured charge. Replays and late webhooks
// after a refund are no-ops; a failed payment may still succeed when
// the buyer retries the same intent.
func (p *Payment) MarkSucceeded() error {
	if p.Status == PaymentStatusSucceeded || p.Status == PaymentStatusRefunded {
		return nil
	}

	now := time.Now()
	p.Status = PaymentStatusSucceeded
	p.FailureReason = ""
	p.SucceededAt = &now
	p.UpdatedAt = now

	p.AddDomainEvent(NewPaymentSucceededEvent(p))

	return nil
}

// MarkFailed records a failed charge attempt. Settled payments are
// never regressed by a late failure webhook.
func (p *Payment) MarkFailed(reason string) error {
	if p.Status == PaymentStatusSucceeded || p.Status == PaymentStatusRefunded ||
		p.Status == PaymentStatusFailed {
		return nil
	}

	if strings.TrimSpace(reason) == "" {
		reason = "payment failed"
	}

	p.Status = PaymentStatusFailed
	p.FailureReason = reason
	p.Touch()

	p.AddDomainEvent(NewPaymentFailedEvent(p))

	return nil
}

// MarkRefunded records a completed full refund of a captured charge
func (p *Payment) MarkRefunded(refundID string) error {
	if p.Status == PaymentStatusRefunded {
		return nil
	}
	if p.Status != PaymentStatusSucceeded {
		return shared.NewDomainError("REFUND_NOT_ALLOWED", "Only a succeeded payment can be refunded")
	}
	if strings.TrimSpace(refundID) == "" {
		return shared.NewDomainError("INVALID_REFUND", "Refund ID cannot be empty")
	}

	now := time.Now()
	p.Status = PaymentStatusRefunded
	p.RefundID = refundID
	p.RefundedAt = &now
	p.UpdatedAt = now

	p.AddDomainEvent(NewPaymentRefundedEvent(p))

	return nil
}

// IsSettled returns true once the charge has been captured or refunded
func (p *Payment) IsSettled() bool {
	return p.Status == PaymentStatusSucceeded || p.Status == PaymentStatusRefunded
}

// GetAmountMoney returns the charge amount as Money
func (p *Payment) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(p.Amount)
}
