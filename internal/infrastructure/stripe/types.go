package stripe

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentIntentStatus represents the status of a Stripe payment intent
type PaymentIntentStatus string

const (
	// IntentStatusRequiresPaymentMethod indicates the buyer has not submitted payment details yet
	IntentStatusRequiresPaymentMethod PaymentIntentStatus = "requires_payment_method"

	// IntentStatusRequiresConfirmation indicates the intent is awaiting confirmation
	IntentStatusRequiresConfirmation PaymentIntentStatus = "requires_confirmation"

	// IntentStatusRequiresAction indicates the buyer must complete an extra step (3DS)
	IntentStatusRequiresAction PaymentIntentStatus = "requires_action"

	// IntentStatusProcessing indicates Stripe is processing the charge
	IntentStatusProcessing PaymentIntentStatus = "processing"

	// IntentStatusRequiresCapture indicates an authorized charge awaiting capture
	IntentStatusRequiresCapture PaymentIntentStatus = "requires_capture"

	// IntentStatusCanceled indicates the intent was canceled
	IntentStatusCanceled PaymentIntentStatus = "canceled"

	// IntentStatusSucceeded indicates the charge was captured
	IntentStatusSucceeded PaymentIntentStatus = "succeeded"
)

// String returns the string representation of PaymentIntentStatus
func (s PaymentIntentStatus) String() string {
	return string(s)
}

// IsSucceeded returns true if the charge was captured
func (s PaymentIntentStatus) IsSucceeded() bool {
	return s == IntentStatusSucceeded
}

// IsFinal returns true if the intent can no longer change state
func (s PaymentIntentStatus) IsFinal() bool {
	return s == IntentStatusSucceeded || s == IntentStatusCanceled
}

// CreatePaymentIntentInput contains input for creating a payment intent
type CreatePaymentIntentInput struct {
	OrderID     uuid.UUID
	OrderNumber string
	Amount      decimal.Decimal // Major units; converted to minor units on the wire
	Currency    string          // Optional, falls back to the configured currency
	Description string
	Metadata    map[string]string
}

// PaymentIntentOutput contains the result of creating or fetching a payment intent
type PaymentIntentOutput struct {
	IntentID     string
	ClientSecret string
	Status       PaymentIntentStatus
	Amount       int64 // Minor units as Stripe reports them
	Currency     string
}

// RefundInput contains input for refunding a captured payment intent in full
type RefundInput struct {
	PaymentIntentID string
	OrderID         uuid.UUID
	Note            string // Free-text context recorded in the refund metadata
}

// RefundOutput contains the result of creating a refund
type RefundOutput struct {
	RefundID string
	Status   string
	Amount   int64
	Currency string
}
