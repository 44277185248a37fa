package stripe

import (
	"context"
	"fmt"
	"maps"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"github.com/stripe/stripe-go/v81/refund"
	"go.uber.org/zap"
)

// StripeAdapter implements Stripe payment operations for checkout and refunds
type StripeAdapter struct {
	config *StripeConfig
	logger *zap.Logger
}

// NewStripeAdapter creates a new Stripe adapter
func NewStripeAdapter(config *StripeConfig, logger *zap.Logger) (*StripeAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Initialize Stripe client
	config.InitStripeClient()

	return &StripeAdapter{
		config: config,
		logger: logger,
	}, nil
}

// CreatePaymentIntent creates a payment intent for an order charge.
// The amount is converted to minor units and the order reference rides
// along in the intent metadata so webhooks can be traced back.
func (a *StripeAdapter) CreatePaymentIntent(ctx context.Context, input CreatePaymentIntentInput) (*PaymentIntentOutput, error) {
	a.logger.Debug("Creating Stripe payment intent",
		zap.String("order_id", input.OrderID.String()),
		zap.String("amount", input.Amount.String()))

	currency := input.Currency
	if currency == "" {
		currency = a.config.Currency
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(input.Amount)),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}

	if input.Description != "" {
		params.Description = stripe.String(input.Description)
	}

	// Add metadata
	params.Metadata = map[string]string{
		"order_id":     input.OrderID.String(),
		"order_number": input.OrderNumber,
	}
	maps.Copy(params.Metadata, input.Metadata)

	intent, err := paymentintent.New(params)
	if err != nil {
		a.logger.Error("Failed to create Stripe payment intent",
			zap.String("order_id", input.OrderID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create payment intent: %w", err)
	}

	a.logger.Info("Created Stripe payment intent",
		zap.String("order_id", input.OrderID.String()),
		zap.String("intent_id", intent.ID),
		zap.Int64("amount", intent.Amount))

	return toPaymentIntentOutput(intent), nil
}

// GetPaymentIntent retrieves a payment intent from Stripe
func (a *StripeAdapter) GetPaymentIntent(ctx context.Context, intentID string) (*PaymentIntentOutput, error) {
	a.logger.Debug("Getting Stripe payment intent", zap.String("intent_id", intentID))

	intent, err := paymentintent.Get(intentID, nil)
	if err != nil {
		a.logger.Error("Failed to get Stripe payment intent",
			zap.String("intent_id", intentID),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to get payment intent: %w", err)
	}

	return toPaymentIntentOutput(intent), nil
}

// CreateRefund refunds a captured payment intent in full
func (a *StripeAdapter) CreateRefund(ctx context.Context, input RefundInput) (*RefundOutput, error) {
	a.logger.Debug("Creating Stripe refund",
		zap.String("intent_id", input.PaymentIntentID),
		zap.String("order_id", input.OrderID.String()))

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(input.PaymentIntentID),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}

	params.Metadata = map[string]string{
		"order_id": input.OrderID.String(),
	}
	if input.Note != "" {
		params.Metadata["note"] = input.Note
	}

	ref, err := refund.New(params)
	if err != nil {
		a.logger.Error("Failed to create Stripe refund",
			zap.String("intent_id", input.PaymentIntentID),
			zap.String("order_id", input.OrderID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create refund: %w", err)
	}

	a.logger.Info("Created Stripe refund",
		zap.String("intent_id", input.PaymentIntentID),
		zap.String("refund_id", ref.ID),
		zap.Int64("amount", ref.Amount))

	return &RefundOutput{
		RefundID: ref.ID,
		Status:   string(ref.Status),
		Amount:   ref.Amount,
		Currency: string(ref.Currency),
	}, nil
}

// toPaymentIntentOutput maps a Stripe payment intent to the adapter output
func toPaymentIntentOutput(intent *stripe.PaymentIntent) *PaymentIntentOutput {
	return &PaymentIntentOutput{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       mapStripeIntentStatus(intent.Status),
		Amount:       intent.Amount,
		Currency:     string(intent.Currency),
	}
}

// mapStripeIntentStatus maps a Stripe payment intent status to our status type
func mapStripeIntentStatus(status stripe.PaymentIntentStatus) PaymentIntentStatus {
	switch status {
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		return IntentStatusRequiresPaymentMethod
	case stripe.PaymentIntentStatusRequiresConfirmation:
		return IntentStatusRequiresConfirmation
	case stripe.PaymentIntentStatusRequiresAction:
		return IntentStatusRequiresAction
	case stripe.PaymentIntentStatusProcessing:
		return IntentStatusProcessing
	case stripe.PaymentIntentStatusRequiresCapture:
		return IntentStatusRequiresCapture
	case stripe.PaymentIntentStatusCanceled:
		return IntentStatusCanceled
	case stripe.PaymentIntentStatusSucceeded:
		return IntentStatusSucceeded
	default:
		return PaymentIntentStatus(status)
	}
}

// toMinorUnits converts a major-unit amount to the integer minor units
// Stripe expects (dollars to cents). Amounts are already rounded to
// cents by the order math; Round guards against anything finer.
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
