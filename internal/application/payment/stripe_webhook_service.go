package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"github.com/taic/backend/internal/domain/order"
	"github.com/taic/backend/internal/domain/payment"
	"github.com/taic/backend/internal/domain/shared"
	infraStripe "github.com/taic/backend/internal/infrastructure/stripe"
	"github.com/taic/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// defaultWebhookDedupTTL is how long processed Stripe event IDs stay in
// the idempotency store. Stripe retries for up to three days.
const defaultWebhookDedupTTL = 72 * time.Hour

// StripeWebhookService handles Stripe webhook events
type StripeWebhookService struct {
	config           *infraStripe.StripeConfig
	paymentRepo      payment.PaymentRepository
	orderRepo        order.OrderRepository
	webhookEventRepo payment.WebhookEventRepository
	idempotencyStore shared.IdempotencyStore
	payments         *PaymentService
	ledger           EarningsLedger
	eventPublisher   shared.EventPublisher
	metrics          *telemetry.BusinessMetrics
	logger           *zap.Logger
	dedupTTL         time.Duration
}

// StripeWebhookServiceConfig contains configuration for StripeWebhookService
type StripeWebhookServiceConfig struct {
	Config           *infraStripe.StripeConfig
	PaymentRepo      payment.PaymentRepository
	OrderRepo        order.OrderRepository
	WebhookEventRepo payment.WebhookEventRepository
	IdempotencyStore shared.IdempotencyStore
	Payments         *PaymentService
	Ledger           EarningsLedger
	EventPublisher   shared.EventPublisher
	Metrics          *telemetry.BusinessMetrics
	Logger           *zap.Logger
	DedupTTL         time.Duration
}

// NewStripeWebhookService creates a new StripeWebhookService
func NewStripeWebhookService(cfg StripeWebhookServiceConfig) *StripeWebhookService {
	ttl := cfg.DedupTTL
	if ttl <= 0 {
		ttl = defaultWebhookDedupTTL
	}

	return &StripeWebhookService{
		config:           cfg.Config,
		paymentRepo:      cfg.PaymentRepo,
		orderRepo:        cfg.OrderRepo,
		webhookEventRepo: cfg.WebhookEventRepo,
		idempotencyStore: cfg.IdempotencyStore,
		payments:         cfg.Payments,
		ledger:           cfg.Ledger,
		eventPublisher:   cfg.EventPublisher,
		metrics:          cfg.Metrics,
		logger:           cfg.Logger,
		dedupTTL:         ttl,
	}
}

// WebhookResult contains the result of processing a webhook
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// ProcessWebhook processes a Stripe webhook event
func (s *StripeWebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	// Verify webhook signature
	event, err := webhook.ConstructEvent(payload, signature, s.config.WebhookSecret)
	if err != nil {
		s.logger.Error("Failed to verify webhook signature",
			zap.Error(err))
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	s.logger.Info("Processing Stripe webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
		Processed: true,
	}

	record, replay, err := s.claimEvent(ctx, event)
	if err != nil {
		return nil, err
	}
	if replay {
		result.Message = "Duplicate event ignored"
		return result, nil
	}

	// Handle different event types
	handled := true
	switch event.Type {
	case "payment_intent.succeeded":
		err = s.handlePaymentIntentSucceeded(ctx, event)
	case "payment_intent.payment_failed":
		err = s.handlePaymentIntentFailed(ctx, event)
	case "charge.refunded":
		err = s.handleChargeRefunded(ctx, event)
	default:
		s.logger.Debug("Unhandled webhook event type",
			zap.String("event_type", string(event.Type)))
		result.Message = "Event type not handled"
		handled = false
	}

	if err != nil {
		s.logger.Error("Failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		record.MarkFailed(err.Error())
		s.updateRecord(ctx, record)
		result.Processed = false
		result.Message = err.Error()
		return result, err
	}

	if handled {
		record.MarkProcessed()
	} else {
		record.MarkSkipped()
	}
	s.updateRecord(ctx, record)
	s.markDeduped(ctx, event.ID)

	return result, nil
}

// claimEvent records the delivery and reports whether this event was
// already handled. The Redis check is only the fast path; the unique
// index on webhook_events is what actually rejects replays.
func (s *StripeWebhookService) claimEvent(ctx context.Context, event stripe.Event) (*payment.WebhookEvent, bool, error) {
	if s.idempotencyStore != nil {
		processed, err := s.idempotencyStore.IsProcessed(ctx, event.ID)
		if err != nil {
			s.logger.Warn("Idempotency store check failed, falling back to database",
				zap.String("event_id", event.ID),
				zap.Error(err))
		} else if processed {
			s.logger.Info("Webhook replay caught by idempotency store",
				zap.String("event_id", event.ID))
			return nil, true, nil
		}
	}

	record, err := payment.NewWebhookEvent(event.ID, string(event.Type))
	if err != nil {
		return nil, false, err
	}

	if err := s.webhookEventRepo.Create(ctx, record); err != nil {
		if !errors.Is(err, shared.ErrAlreadyExists) {
			return nil, false, fmt.Errorf("failed to record webhook event: %w", err)
		}

		existing, err := s.webhookEventRepo.FindByStripeEventID(ctx, event.ID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to load webhook event record: %w", err)
		}
		if existing.IsHandled() {
			s.logger.Info("Webhook replay already handled",
				zap.String("event_id", event.ID))
			return nil, true, nil
		}
		// An earlier delivery failed partway, run the handler again
		record = existing
	}

	return record, false, nil
}

// handlePaymentIntentSucceeded handles payment_intent.succeeded events
func (s *StripeWebhookService) handlePaymentIntentSucceeded(ctx context.Context, event stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}

	s.logger.Info("Handling payment intent succeeded",
		zap.String("intent_id", intent.ID))

	p, err := s.paymentRepo.FindByStripeIntent(ctx, intent.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Note: ErrNotFound is acknowledged rather than failed so
			// Stripe stops retrying events for intents we never stored.
			s.logger.Warn("No payment recorded for Stripe intent",
				zap.String("intent_id", intent.ID))
			return nil
		}
		return fmt.Errorf("failed to find payment: %w", err)
	}

	if p.Status == payment.PaymentStatusRefunded {
		// The refund webhook outran this one. The money is already
		// back with the buyer, so the order must not move to paid.
		s.logger.Info("Success event for refunded payment, leaving order untouched",
			zap.String("payment_id", p.ID.String()),
			zap.String("intent_id", intent.ID))
		return nil
	}

	if err := p.MarkSucceeded(); err != nil {
		return err
	}
	if err := s.paymentRepo.SaveWithLock(ctx, p); err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	s.publishEvents(ctx, p)

	ord, err := s.orderRepo.FindByID(ctx, p.OrderID)
	if err != nil {
		return fmt.Errorf("failed to find order %s: %w", p.OrderID, err)
	}

	if ord.Status == order.OrderStatusCancelled {
		// The buyer completed payment after the order was cancelled.
		// Return the money rather than resurrecting the order.
		s.logger.Warn("Payment captured for cancelled order, refunding",
			zap.String("order_id", ord.ID.String()),
			zap.String("order_number", ord.OrderNumber),
			zap.String("intent_id", intent.ID))
		return s.payments.RefundOrderPayment(ctx, ord.ID)
	}

	if ord.Status != order.OrderStatusPending {
		s.logger.Info("Order already past pending, skipping paid transition",
			zap.String("order_id", ord.ID.String()),
			zap.String("status", ord.Status.String()))
		return nil
	}

	if err := ord.MarkPaid(p.ID); err != nil {
		return err
	}
	if err := s.orderRepo.SaveWithLock(ctx, ord); err != nil {
		return fmt.Errorf("failed to save paid order %s: %w", ord.OrderNumber, err)
	}
	s.publishEvents(ctx, ord)

	s.recordPayment(ctx, ord.MerchantID, telemetry.PaymentOutcomeSucceeded)

	s.logger.Info("Order paid",
		zap.String("order_id", ord.ID.String()),
		zap.String("order_number", ord.OrderNumber),
		zap.String("amount", p.Amount.String()))

	return nil
}

func (s *StripeWebhookService) recordPayment(ctx context.Context, merchantID uuid.UUID, outcome telemetry.PaymentOutcome) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordPayment(ctx, merchantID, outcome)
}

// handlePaymentIntentFailed handles payment_intent.payment_failed events.
// The order stays PENDING so the buyer can retry the same intent.
func (s *StripeWebhookService) handlePaymentIntentFailed(ctx context.Context, event stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}

	reason := ""
	if intent.LastPaymentError != nil {
		reason = intent.LastPaymentError.Msg
	}

	s.logger.Info("Handling payment intent failed",
		zap.String("intent_id", intent.ID),
		zap.String("reason", reason))

	p, err := s.paymentRepo.FindByStripeIntent(ctx, intent.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("No payment recorded for Stripe intent",
				zap.String("intent_id", intent.ID))
			return nil
		}
		return fmt.Errorf("failed to find payment: %w", err)
	}

	if err := p.MarkFailed(reason); err != nil {
		return err
	}
	if err := s.paymentRepo.SaveWithLock(ctx, p); err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}
	s.publishEvents(ctx, p)

	if s.metrics != nil {
		if ord, err := s.orderRepo.FindByID(ctx, p.OrderID); err == nil {
			s.recordPayment(ctx, ord.MerchantID, telemetry.PaymentOutcomeFailed)
		}
	}

	s.logger.Info("Payment attempt failed",
		zap.String("payment_id", p.ID.String()),
		zap.String("order_id", p.OrderID.String()),
		zap.String("reason", p.FailureReason))

	return nil
}

// handleChargeRefunded handles charge.refunded events. This covers
// refunds issued outside the API (Stripe dashboard) and doubles as the
// convergence path when our own refund only landed partway.
func (s *StripeWebhookService) handleChargeRefunded(ctx context.Context, event stripe.Event) error {
	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return fmt.Errorf("failed to unmarshal charge: %w", err)
	}

	if charge.PaymentIntent == nil {
		s.logger.Warn("Charge has no payment intent, skipping",
			zap.String("charge_id", charge.ID))
		return nil
	}

	s.logger.Info("Handling charge refunded",
		zap.String("charge_id", charge.ID),
		zap.String("intent_id", charge.PaymentIntent.ID))

	p, err := s.paymentRepo.FindByStripeIntent(ctx, charge.PaymentIntent.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("No payment recorded for refunded charge",
				zap.String("charge_id", charge.ID))
			return nil
		}
		return fmt.Errorf("failed to find payment: %w", err)
	}

	// The refund list is not always expanded on webhook payloads
	refundID := ""
	if charge.Refunds != nil && len(charge.Refunds.Data) > 0 {
		refundID = charge.Refunds.Data[0].ID
	}
	if refundID == "" {
		refundID = charge.ID
	}

	newlyRefunded := p.Status != payment.PaymentStatusRefunded
	if newlyRefunded {
		if p.Status != payment.PaymentStatusSucceeded {
			// The refund event outran the success event; a refunded
			// charge necessarily succeeded first.
			_ = p.MarkSucceeded()
		}
		if err := p.MarkRefunded(refundID); err != nil {
			return err
		}
		if err := s.paymentRepo.SaveWithLock(ctx, p); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		s.publishEvents(ctx, p)
	}

	ord, err := s.orderRepo.FindByID(ctx, p.OrderID)
	if err != nil {
		return fmt.Errorf("failed to find order %s: %w", p.OrderID, err)
	}
	if newlyRefunded {
		s.recordPayment(ctx, ord.MerchantID, telemetry.PaymentOutcomeRefunded)
	}

	if ord.Status.CanTransitionTo(order.OrderStatusRefunded) {
		if err := ord.MarkRefunded(); err != nil {
			return err
		}
		if err := s.orderRepo.SaveWithLock(ctx, ord); err != nil {
			return fmt.Errorf("failed to save refunded order %s: %w", ord.OrderNumber, err)
		}
		s.publishEvents(ctx, ord)
	} else if ord.Status != order.OrderStatusRefunded {
		// Cancelled and completed orders keep their terminal status;
		// only the payment record reflects the refund.
		s.logger.Info("Order status unchanged by external refund",
			zap.String("order_id", ord.ID.String()),
			zap.String("status", ord.Status.String()))
	}

	if s.ledger != nil {
		earnings := ord.GetMerchantEarningsMoney()
		description := fmt.Sprintf("Refund reversal for order %s", ord.OrderNumber)
		if err := s.ledger.ReverseSale(ctx, ord.MerchantID, ord.ID, earnings.Amount(), description); err != nil {
			return fmt.Errorf("failed to reverse earnings for order %s: %w", ord.OrderNumber, err)
		}
	}

	s.logger.Info("Charge refund recorded",
		zap.String("order_id", ord.ID.String()),
		zap.String("order_number", ord.OrderNumber),
		zap.String("refund_id", refundID))

	return nil
}

func (s *StripeWebhookService) updateRecord(ctx context.Context, record *payment.WebhookEvent) {
	if err := s.webhookEventRepo.Update(ctx, record); err != nil {
		s.logger.Warn("Failed to update webhook event record",
			zap.String("stripe_event_id", record.StripeEventID),
			zap.Error(err))
	}
}

func (s *StripeWebhookService) markDeduped(ctx context.Context, eventID string) {
	if s.idempotencyStore == nil {
		return
	}
	if _, err := s.idempotencyStore.MarkProcessed(ctx, eventID, s.dedupTTL); err != nil {
		s.logger.Warn("Failed to mark webhook event in idempotency store",
			zap.String("event_id", eventID),
			zap.Error(err))
	}
}

func (s *StripeWebhookService) publishEvents(ctx context.Context, aggregate shared.AggregateRoot) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range aggregate.GetDomainEvents() {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish payment event",
				zap.String("event_type", event.EventType()),
				zap.Error(err))
		}
	}
	aggregate.ClearDomainEvents()
}
