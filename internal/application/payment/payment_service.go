package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/taic/backend/internal/domain/order"
	"github.com/taic/backend/internal/domain/payment"
	"github.com/taic/backend/internal/domain/shared"
	infraStripe "github.com/taic/backend/internal/infrastructure/stripe"
	"go.uber.org/zap"
)

// StripeGateway is the surface of the Stripe adapter the payment
// services depend on
type StripeGateway interface {
	// CreatePaymentIntent creates an intent for an order charge
	CreatePaymentIntent(ctx context.Context, input infraStripe.CreatePaymentIntentInput) (*infraStripe.PaymentIntentOutput, error)

	// GetPaymentIntent retrieves the live state of an intent
	GetPaymentIntent(ctx context.Context, intentID string) (*infraStripe.PaymentIntentOutput, error)

	// CreateRefund refunds a captured intent in full
	CreateRefund(ctx context.Context, input infraStripe.RefundInput) (*infraStripe.RefundOutput, error)
}

// EarningsLedger reverses a merchant's sale credit when a credited
// order is refunded. Implementations decide whether a credit exists
// and must be idempotent across redeliveries.
type EarningsLedger interface {
	ReverseSale(ctx context.Context, merchantID, orderID uuid.UUID, amount decimal.Decimal, description string) error
}

// PaymentService manages the payment lifecycle backing orders: intent
// creation at checkout, payment lookups, and full refunds
type PaymentService struct {
	paymentRepo    payment.PaymentRepository
	orderRepo      order.OrderRepository
	gateway        StripeGateway
	ledger         EarningsLedger
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	paymentRepo payment.PaymentRepository,
	orderRepo order.OrderRepository,
	gateway StripeGateway,
	ledger EarningsLedger,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		gateway:     gateway,
		ledger:      ledger,
		logger:      logger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *PaymentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateIntent creates the payment record and Stripe payment intent for
// a freshly placed order and returns the payment ID plus the client
// secret the buyer needs to complete the charge.
func (s *PaymentService) CreateIntent(ctx context.Context, ord *order.Order) (uuid.UUID, string, error) {
	p, err := payment.NewPayment(ord.ID, ord.GetTotalMoney())
	if err != nil {
		return uuid.Nil, "", err
	}

	output, err := s.gateway.CreatePaymentIntent(ctx, infraStripe.CreatePaymentIntentInput{
		OrderID:     ord.ID,
		OrderNumber: ord.OrderNumber,
		Amount:      p.Amount,
		Description: fmt.Sprintf("Order %s", ord.OrderNumber),
	})
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to create payment intent for order %s: %w", ord.OrderNumber, err)
	}

	if err := p.AttachIntent(output.IntentID, output.ClientSecret); err != nil {
		return uuid.Nil, "", err
	}

	if err := s.paymentRepo.Save(ctx, p); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			// A payment already exists for this order, so reuse its
			// intent instead of charging twice. The client secret is
			// transient and has to be fetched back from Stripe.
			return s.resumeExistingPayment(ctx, ord)
		}
		return uuid.Nil, "", fmt.Errorf("failed to save payment: %w", err)
	}

	s.logger.Info("Payment intent created",
		zap.String("order_id", ord.ID.String()),
		zap.String("order_number", ord.OrderNumber),
		zap.String("payment_id", p.ID.String()),
		zap.String("intent_id", output.IntentID))

	return p.ID, output.ClientSecret, nil
}

func (s *PaymentService) resumeExistingPayment(ctx context.Context, ord *order.Order) (uuid.UUID, string, error) {
	existing, err := s.paymentRepo.FindByOrder(ctx, ord.ID)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to find existing payment for order %s: %w", ord.OrderNumber, err)
	}

	output, err := s.gateway.GetPaymentIntent(ctx, existing.StripePaymentIntentID)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to fetch intent for existing payment: %w", err)
	}

	s.logger.Info("Reusing existing payment intent for order",
		zap.String("order_id", ord.ID.String()),
		zap.String("payment_id", existing.ID.String()),
		zap.String("intent_id", existing.StripePaymentIntentID))

	return existing.ID, output.ClientSecret, nil
}

// GetForBuyer returns the payment backing one of the buyer's own
// orders. While the payment is still collectable, the client secret is
// fetched back from Stripe so a buyer who dropped off checkout can
// resume it.
func (s *PaymentService) GetForBuyer(ctx context.Context, buyerID, orderID uuid.UUID) (*PaymentResponse, error) {
	ord, err := s.orderRepo.FindByIDForBuyer(ctx, buyerID, orderID)
	if err != nil {
		return nil, err
	}

	p, err := s.paymentRepo.FindByOrder(ctx, ord.ID)
	if err != nil {
		return nil, err
	}

	response := ToPaymentResponse(p)
	if !p.IsSettled() && p.Status != payment.PaymentStatusFailed && p.StripePaymentIntentID != "" {
		output, err := s.gateway.GetPaymentIntent(ctx, p.StripePaymentIntentID)
		if err != nil {
			s.logger.Warn("Failed to fetch client secret for open payment",
				zap.String("payment_id", p.ID.String()),
				zap.Error(err))
		} else {
			response.ClientSecret = output.ClientSecret
		}
	}

	return response, nil
}

// GetForMerchant returns the payment backing one of the merchant's orders
func (s *PaymentService) GetForMerchant(ctx context.Context, merchantID, orderID uuid.UUID) (*PaymentResponse, error) {
	ord, err := s.orderRepo.FindByIDForMerchant(ctx, merchantID, orderID)
	if err != nil {
		return nil, err
	}

	p, err := s.paymentRepo.FindByOrder(ctx, ord.ID)
	if err != nil {
		return nil, err
	}

	return ToPaymentResponse(p), nil
}

// Get returns the payment backing any order (admin)
func (s *PaymentService) Get(ctx context.Context, orderID uuid.UUID) (*PaymentResponse, error) {
	p, err := s.paymentRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return ToPaymentResponse(p), nil
}

// RefundOrder refunds an order in full on behalf of an admin. The order
// moves to REFUNDED, the Stripe charge is refunded, and any earnings
// already credited to the merchant are reversed.
func (s *PaymentService) RefundOrder(ctx context.Context, orderID uuid.UUID, reason string) (*PaymentResponse, error) {
	ord, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return s.refundOrder(ctx, ord, reason)
}

// RefundOrderForMerchant refunds one of the merchant's own orders in full
func (s *PaymentService) RefundOrderForMerchant(ctx context.Context, merchantID, orderID uuid.UUID, reason string) (*PaymentResponse, error) {
	ord, err := s.orderRepo.FindByIDForMerchant(ctx, merchantID, orderID)
	if err != nil {
		return nil, err
	}

	return s.refundOrder(ctx, ord, reason)
}

func (s *PaymentService) refundOrder(ctx context.Context, ord *order.Order, reason string) (*PaymentResponse, error) {
	// Fail on the status check before touching Stripe
	if err := ord.MarkRefunded(); err != nil {
		return nil, err
	}

	p, err := s.paymentRepo.FindByOrder(ctx, ord.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("PAYMENT_NOT_FOUND", "No payment recorded for this order")
		}
		return nil, err
	}

	if err := s.refundPayment(ctx, p, reason); err != nil {
		return nil, err
	}

	if err := s.orderRepo.SaveWithLock(ctx, ord); err != nil {
		return nil, fmt.Errorf("failed to save refunded order %s: %w", ord.OrderNumber, err)
	}
	s.publishEvents(ctx, ord)

	// The charge is already returned at this point, so a failed ledger
	// reversal must not fail the request. The charge.refunded webhook
	// retries the same idempotent reversal until it lands.
	if err := s.reverseCreditedEarnings(ctx, ord); err != nil {
		s.logger.Error("Failed to reverse credited earnings after refund",
			zap.String("order_id", ord.ID.String()),
			zap.Error(err))
	}

	s.logger.Info("Order refunded",
		zap.String("order_id", ord.ID.String()),
		zap.String("order_number", ord.OrderNumber),
		zap.String("amount", p.Amount.String()),
		zap.String("reason", reason))

	return ToPaymentResponse(p), nil
}

// RefundOrderPayment refunds whatever was captured for an order without
// touching the order itself. The cancellation flow uses this: the order
// is already CANCELLED and stays there, only the charge is returned.
func (s *PaymentService) RefundOrderPayment(ctx context.Context, orderID uuid.UUID) error {
	p, err := s.paymentRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("failed to find payment for order %s: %w", orderID, err)
	}

	if p.Status == payment.PaymentStatusRefunded {
		s.logger.Info("Payment already refunded, skipping",
			zap.String("payment_id", p.ID.String()),
			zap.String("order_id", orderID.String()))
		return nil
	}

	if p.Status != payment.PaymentStatusSucceeded {
		// Webhook delivery can lag the capture, so a cancellation may
		// arrive while the local record still reads processing. Check
		// the live intent before deciding there is nothing to refund.
		if p.StripePaymentIntentID == "" {
			s.logger.Warn("No charge captured for cancelled order, nothing to refund",
				zap.String("payment_id", p.ID.String()),
				zap.String("order_id", orderID.String()))
			return nil
		}

		output, err := s.gateway.GetPaymentIntent(ctx, p.StripePaymentIntentID)
		if err != nil {
			return fmt.Errorf("failed to check intent before refund: %w", err)
		}
		if !output.Status.IsSucceeded() {
			s.logger.Info("Charge never captured, nothing to refund",
				zap.String("payment_id", p.ID.String()),
				zap.String("order_id", orderID.String()),
				zap.String("intent_status", output.Status.String()))
			return nil
		}

		// Bring the local record up to date with the capture before refunding
		_ = p.MarkSucceeded()
	}

	if err := s.refundPayment(ctx, p, "order cancelled"); err != nil {
		return err
	}

	s.logger.Info("Payment refunded for cancelled order",
		zap.String("payment_id", p.ID.String()),
		zap.String("order_id", orderID.String()),
		zap.String("amount", p.Amount.String()))

	return nil
}

// refundPayment creates the Stripe refund and settles the payment
// record. Already-refunded payments are left alone so a retried
// request does not hit Stripe twice.
func (s *PaymentService) refundPayment(ctx context.Context, p *payment.Payment, note string) error {
	if p.Status == payment.PaymentStatusRefunded {
		return nil
	}

	output, err := s.gateway.CreateRefund(ctx, infraStripe.RefundInput{
		PaymentIntentID: p.StripePaymentIntentID,
		OrderID:         p.OrderID,
		Note:            note,
	})
	if err != nil {
		return fmt.Errorf("failed to refund payment %s: %w", p.ID, err)
	}

	if err := p.MarkRefunded(output.RefundID); err != nil {
		return err
	}
	if err := s.paymentRepo.SaveWithLock(ctx, p); err != nil {
		return fmt.Errorf("failed to save refunded payment: %w", err)
	}
	s.publishEvents(ctx, p)

	return nil
}

// reverseCreditedEarnings debits back the merchant's sale credit for a
// refunded order. The ledger skips orders that were never credited.
func (s *PaymentService) reverseCreditedEarnings(ctx context.Context, ord *order.Order) error {
	if s.ledger == nil {
		return nil
	}

	earnings := ord.GetMerchantEarningsMoney()
	description := fmt.Sprintf("Refund reversal for order %s", ord.OrderNumber)
	if err := s.ledger.ReverseSale(ctx, ord.MerchantID, ord.ID, earnings.Amount(), description); err != nil {
		return fmt.Errorf("failed to reverse earnings for order %s: %w", ord.OrderNumber, err)
	}

	return nil
}

func (s *PaymentService) publishEvents(ctx context.Context, aggregate shared.AggregateRoot) {
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
