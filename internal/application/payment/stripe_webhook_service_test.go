package payment

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"

	"github.com/taic/backend/internal/domain/order"
	"github.com/taic/backend/internal/domain/payment"
	"github.com/taic/backend/internal/domain/shared"
	infraStripe "github.com/taic/backend/internal/infrastructure/stripe"
)

// ============================================================================
// Helpers
// ============================================================================

const webhookTestSecret = "whsec_test_secret"

type webhookServiceMocks struct {
	paymentRepo      *MockPaymentRepository
	orderRepo        *MockOrderRepository
	webhookEventRepo *MockWebhookEventRepository
	idempotency      *MockIdempotencyStore
	gateway          *MockStripeGateway
	ledger           *MockEarningsLedger
	publisher        *MockEventPublisher
}

func newWebhookService() (*StripeWebhookService, *webhookServiceMocks) {
	mocks := &webhookServiceMocks{
		paymentRepo:      new(MockPaymentRepository),
		orderRepo:        new(MockOrderRepository),
		webhookEventRepo: new(MockWebhookEventRepository),
		idempotency:      new(MockIdempotencyStore),
		gateway:          new(MockStripeGateway),
		ledger:           new(MockEarningsLedger),
		publisher:        new(MockEventPublisher),
	}
	payments := NewPaymentService(mocks.paymentRepo, mocks.orderRepo, mocks.gateway, mocks.ledger, zap.NewNop())
	service := NewStripeWebhookService(StripeWebhookServiceConfig{
		Config: &infraStripe.StripeConfig{
			SecretKey:     "sk_test_123456789",
			WebhookSecret: webhookTestSecret,
			IsTestMode:    true,
			Currency:      "usd",
		},
		PaymentRepo:      mocks.paymentRepo,
		OrderRepo:        mocks.orderRepo,
		WebhookEventRepo: mocks.webhookEventRepo,
		IdempotencyStore: mocks.idempotency,
		Payments:         payments,
		Ledger:           mocks.ledger,
		Logger:           zap.NewNop(),
	})
	return service, mocks
}

// signedPayload signs the payload the way Stripe does so ConstructEvent
// accepts it
func signedPayload(t *testing.T, payload []byte) string {
	t.Helper()
	ts := time.Now()
	sig := webhook.ComputeSignature(ts, payload, webhookTestSecret)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(sig))
}

func intentEvent(t *testing.T, eventType stripe.EventType, intent stripe.PaymentIntent) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(intent)
	require.NoError(t, err)
	return stripe.Event{
		ID:   "evt_test123",
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

func chargeRefundedEvent(t *testing.T, charge stripe.Charge) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(charge)
	require.NoError(t, err)
	return stripe.Event{
		ID:   "evt_refund123",
		Type: "charge.refunded",
		Data: &stripe.EventData{Raw: raw},
	}
}

// ============================================================================
// ProcessWebhook
// ============================================================================

func TestStripeWebhookService_ProcessWebhook_InvalidSignature(t *testing.T) {
	service, _ := newWebhookService()

	payload := []byte(`{"type": "payment_intent.succeeded"}`)
	signature := "invalid_signature"

	result, err := service.ProcessWebhook(context.Background(), payload, signature)

	assert.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "webhook signature verification failed")
}

func TestStripeWebhookService_ProcessWebhook_DuplicateCaughtByStore(t *testing.T) {
	service, mocks := newWebhookService()
	ctx := context.Background()

	payload := []byte(`{"id":"evt_dup123","type":"payment_intent.succeeded","data":{"object":{"id":"pi_test123"}}}`)
	mocks.idempotency.On("IsProcessed", ctx, "evt_dup123").Return(true, nil)

	result, err := service.ProcessWebhook(ctx, payload, signedPayload(t, payload))

	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Equal(t, "Duplicate event ignored", result.Message)
	mocks.webhookEventRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mocks.paymentRepo.AssertNotCalled(t, "FindByStripeIntent", mock.Anything, mock.Anything)
}

func TestStripeWebhookService_ProcessWebhook_DuplicateCaughtByDatabase(t *testing.T) {
	service, mocks := newWebhookService()
	ctx := context.Background()

	payload := []byte(`{"id":"evt_dup456","type":"payment_intent.succeeded","data":{"object":{"id":"pi_test123"}}}`)

	handled, err := payment.NewWebhookEvent("evt_dup456", "payment_intent.succeeded")
	require.NoError(t, err)
	handled.MarkProcessed()

	mocks.idempotency.On("IsProcessed", ctx, "evt_dup456").Return(false, nil)
	mocks.webhookEventRepo.On("Create", ctx, mock.AnythingOfType("*payment.WebhookEvent")).Return(shared.ErrAlreadyExists)
	mocks.webhookEventRepo.On("FindByStripeEventID", ctx, "evt_dup456").Return(handled, nil)

	result, err := service.ProcessWebhook(ctx, payload, signedPayload(t, payload))

	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Equal(t, "Duplicate event ignored", result.Message)
	mocks.paymentRepo.AssertNotCalled(t, "FindByStripeIntent", mock.Anything, mock.Anything)
}

func TestStripeWebhookService_ProcessWebhook_FailedDeliveryReprocessed(t *testing.T) {
	service, mocks := newWebhookService()
	ctx := context.Background()

	ord := createTestOrder(t, uuid.New(), uuid.New())
	p := createOpenPayment(t, ord.ID)

	intentJSON, err := json.Marshal(stripe.PaymentIntent{ID: "pi_test123"})
	require.NoError(t, err)
	payload := []byte(fmt.Sprintf(`{"id":"evt_retry123","type":"payment_intent.succeeded","data":{"object":%s}}`, intentJSON))

	// The first delivery died partway, so the record exists as failed
	failed, err := payment.NewWebhookEvent("evt_retry123", "payment_intent.succeeded")
	require.NoError(t, err)
	failed.MarkFailed("database gone")

	mocks.idempotency.On("IsProcessed", ctx, "evt_retry123").Return(false, nil)
	mocks.webhookEventRepo.On("Create", ctx, mock.AnythingOfType("*payment.WebhookEvent")).Return(shared.ErrAlreadyExists)
	mocks.webhookEventRepo.On("FindByStripeEventID", ctx, "evt_retry123").Return(failed, nil)
	mocks.paymentRepo.On("FindByStripeIntent", ctx, "pi_test123").Return(p, nil)
	mocks.paymentRepo.On("SaveWithLock", ctx, p).Return(nil)
	mocks.orderRepo.On("FindByID", ctx, ord.ID).Return(ord, nil)
	mocks.orderRepo.On("SaveWithLock", ctx, ord).Return(nil)
	mocks.webhookEventRepo.On("Update", ctx, failed).Return(nil)
	mocks.idempotency.On("MarkProcessed", ctx, "evt_retry123", 72*time.Hour).Return(true, nil)

	result, err := service.ProcessWebhook(ctx, payload, signedPayload(t, payload))

	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Equal(t, payment.PaymentStatusSucceeded, p.Status)
	assert.Equal(t, payment.WebhookEventStatusProcessed, failed.Status)
}

func TestStripeWebhookService_ProcessWebhook_UnhandledTypeAcknowledged(t *testing.T) {
	service, mocks := newWebhookService()
	ctx := context.Background()

	payload := []byte(`{"id":"evt_other123","type":"customer.created","data":{"object":{"id":"cus_test123"}}}`)

	var recorded *payment.WebhookEvent
	mocks.idempotency.On("IsProcessed", ctx, "evt_other123").Return(false, nil)
	mocks.webhookEventRepo.On("Create", ctx, mock.AnythingOfType("*payment.WebhookEvent")).Return(nil)
	mocks.webhookEventRepo.On("Update", ctx, mock.AnythingOfType("*payment.WebhookEvent")).Run(func(args mock.Arguments) {
		recorded = args.Get(1).(*payment.WebhookEvent)
	}).Return(nil)
	mocks.idempotency.On("MarkProcessed", ctx, "evt_other123", 72*time.Hour).Return(true, nil)

	result, err := service.ProcessWebhook(ctx, payload, signedPayload(t, payload))

	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Equal(t, "Event type not handled", result.Message)
	require.NotNil(t, recorded)
	assert.Equal(t, payment.WebhookEventStatusSkipped, recorded.Status)
}

func TestStripeWebhookService_ProcessWebhook_SucceededEndToEnd(t *testing.T) {
	service, mocks := newWebhookService()
	ctx := context.Background()

	ord := createTestOrder(t, uuid.New(), uuid.New())
	p := createOpenPayment(t, ord.ID)

	intentJSON, err := json.Marshal(stripe.PaymentIntent{ID: "pi_test123"})
	require.NoError(t, err)
	payload := []byte(fmt.Sprintf(`{"id":"evt_paid123","type":"payment_intent.succeeded","data":{"object":%s}}`, intentJSON))

	var recorded *payment.WebhookEvent
	mocks.idempotency.On("IsProcessed", ctx, "evt_paid123").Return(false, nil)
	mocks.webhookEventRepo.On("Create", ctx, mock.AnythingOfType("*payment.WebhookEvent")).Return(nil)
	mocks.paymentRepo.On("FindByStripeIntent", ctx, "pi_test123").Return(p, nil)
	mocks.paymentRepo.On("SaveWithLock", ctx, p).Return(nil)
	mocks.orderRepo.On("FindByID", ctx, ord.ID).Return(ord, nil)
	mocks.orderRepo.On("SaveWithLock", ctx, ord).Return(nil)
	mocks.webhookEventRepo.On("Update", ctx, mock.AnythingOfType("*payment.WebhookEvent")).Run(func(args mock.Arguments) {
		recorded = args.Get(1).(*payment.WebhookEvent)
	}).Return(nil)
	mocks.idempotency.On("MarkProcessed", ctx, "evt_paid123", 72*time.Hour).Return(true, nil)

	result, err := service.ProcessWebhook(ctx, payload, signedPayload(t, payload))

	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Equal(t, payment.PaymentStatusSucceeded, p.Status)
	assert.Equal(t, order.OrderStatusPaid, ord.Status)
	require.NotNil(t, recorded)
	assert.Equal(t, payment.WebhookEventStatusProcessed, recorded.Status)
	mocks.idempotency.AssertExpectations(t)
}

func TestStripeWebhookService_ProcessWebhook_HandlerFailureRecorded(t *testing.T) {
	service, mocks := newWebhookService()
	ctx := context.Background()

	intentJSON, err := json.Marshal(stripe.PaymentIntent{ID: "pi_test123"})
	require.NoError(t, err)
	payload := []byte(fmt.Sprintf(`{"id":"evt_fail123","type":"payment_intent.succeeded","data":{"object":%s}}`, intentJSON))

	var recorded *payment.WebhookEvent
	mocks.idempotency.On("IsProcessed", ctx, "evt_fail123").Return(false, nil)
	mocks.webhookEventRepo.On("Create", ctx, mock.AnythingOfType("*payment.WebhookEvent")).Return(nil)
	mocks.paymentRepo.On("FindByStripeIntent", ctx, "pi_test123").Return(nil, errors.New("database gone"))
	mocks.webhookEventRepo.On("Update", ctx, mock.AnythingOfType("*payment.WebhookEvent")).Run(func(args mock.Arguments) {
		recorded = args.Get(1).(*payment.WebhookEvent)
	}).Return(nil)

	result, err := service.ProcessWebhook(ctx, payload, signedPayload(t, payload))

	require.Error(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Processed)
	assert.Contains(t, result.Message, "failed to find payment")
	require.NotNil(t, recorded)
	assert.Equal(t, payment.WebhookEventStatusFailed, recorded.Status)
	assert.Contains(t, recorded.LastError, "failed to find payment")
	// A failed event must stay retryable
	mocks.idempotency.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
}

func TestStripeWebhookService_ProcessWebhook_StoreOutageFallsBackToDatabase(t *testing.T) {
	service, mocks := newWebhookService()
	ctx := context.Background()

	intentJSON, err := json.Marshal(stripe.PaymentIntent{ID: "pi_unknown"})
	require.NoError(t, err)
	payload := []byte(fmt.Sprintf(`{"id":"evt_redis123","type":"payment_intent.succeeded","data":{"object":%s}}`, intentJSON))

	mocks.idempotency.On("IsProcessed", ctx, "evt_redis123").Return(false, errors.New("redis: connection refused"))
	mocks.webhookEventRepo.On("Create", ctx, mock.AnythingOfType("*payment.WebhookEvent")).Return(nil)
	mocks.paymentRepo.On("FindByStripeIntent", ctx, "pi_unknown").Return(nil, shared.ErrNotFound)
	mocks.webhookEventRepo.On("Update", ctx, mock.AnythingOfType("*payment.WebhookEvent")).Return(nil)
	mocks.idempotency.On("MarkProcessed", ctx, "evt_redis123", 72*time.Hour).
		Return(false, errors.New("redis: connection refused"))

	result, err := service.ProcessWebhook(ctx, payload, signedPayload(t, payload))

	require.NoError(t, err)
	assert.True(t, result.Processed)
}

// ============================================================================
// payment_intent.succeeded
// ============================================================================

func TestStripeWebhookService_handlePaymentIntentSucceeded_MarksOrderPaid(t *testing.T) {
	service, mocks := newWebhookService()
	ctx := context.Background()

	ord := createTestOrder(t, uuid.New(), uuid.New())
	p := createOpenPayment(t, ord.ID)

	event := intentEvent(t, "payment_intent.succeeded", stripe.PaymentIntent{ID: "pi_test123"})

	mocks.paymentRepo.On("FindByStripeIntent", ctx, "pi_test123").Return(p, nil)
	mocks.paymentRepo.On("SaveWithLock", ctx, p).Return(nil)
	mocks.orderRepo.On("FindByID", ctx, ord.ID).Return(ord, nil)
	mocks.orderRepo.On("SaveWithLock", ctx, ord).Return(nil)

	err := service.handlePaymentIntentSucceeded(ctx, event)

	require.NoError(t, err)
	assert.Equal(t, payment.PaymentStatusSucceeded, p.Status)
	assert.Equal(t, order.OrderStatusPaid, ord.Status)
	require.NotNil(t, ord.PaymentID)
	assert.Equal(t, p.ID, *ord.PaymentID)
}

func TestStripeWebhookService_handlePaymentIntentSucceeded_PaymentNotFound(t *testing.T) {
	service, mocks := newWebhookService()
	ctx := context.Background()

	event := intentEvent(t, "payment_intent.succeeded", stripe.PaymentIntent{ID: "pi_unknown"})

	mocks.paymentRepo.On("FindByStripeIntent", ctx, "pi_unknown").Return(nil, shared.ErrNotFound)

	// Acknowledged so Stripe stops retrying
	err := service.handlePaymentIntentSucceeded(ctx, event)

	require.NoError(t, err)
	mocks.orderRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestStripeWebhookService_handlePaymentIntentSucceeded_ReplayOnPaidOrder(t *testing.T) {
	service, mocks := newWebhookService()
	ctx := context.Background()

	ord := createPaidOrder(t, uuid.New(), uuid.New())
	p := createSucceededPayment(t, ord.ID)

	event := intentEvent(t, "payment_intent.succeeded", stripe.PaymentIntent{ID: "pi_test123"})

	mocks.paymentRepo.On("FindByStripeIntent", ctx, "pi_test123").Return(p, nil)
	mocks.paymentRepo.On("SaveWithLock", ctx, p).Return(nil)
	mocks.orderRepo.On("FindByID", ctx, ord.ID).Return(ord, nil)

	err := service.handlePaymentIntentSucceeded(ctx, event)

	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusPaid, ord.Status)
	mocks.orderRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
}

func TestStripeWebhookService_handlePaymentIntentSucceeded_CancelledOrderRefunded(t *testing.T) {
	service, mocks := newWebhookService()
	ctx := context.Background()

	ord := createTestOrder(t, uuid.New(), uuid.New())
	require.NoError(t, ord.Cancel("reservation expired"))
	ord.ClearDomainEvents()
	p := createOpenPayment(t, ord.ID)

	event := intentEvent(t, "payment_intent.succeeded", stripe.PaymentIntent{ID: "pi_test123"})

	mocks.paymentRepo.On("FindByStripeIntent", ctx, "pi_test123").Return(p, nil)
	mocks.paymentRepo.On("SaveWithLock", ctx, p).Return(nil)
	mocks.orderRepo.On("FindByID", ctx, ord.ID).Return(ord, nil)
	mocks.paymentRepo.On("FindByOrder", ctx, ord.ID).Return(p, nil)
	mocks.gateway.On("CreateRefund", ctx, mock.MatchedBy(func(input infraStripe.RefundInput) bool {
		return input.PaymentIntentID == "pi_test123" && input.Note == "order cancelled"
	})).Return(&infraStripe.RefundOutput{RefundID: "re_auto123"}, nil)

	err := service.handlePaymentIntentSucceeded(ctx, event)

	require.NoError(t, err)
	// The money goes back to the buyer, the order is not resurrected
	assert.Equal(t, order.OrderStatusCancelled, ord.Status)
	assert.Equal(t, payment.PaymentStatusRefunded, p.Status)
	assert.Equal(t, "re_auto123", p.RefundID)
	mocks.orderRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
}

func TestStripeWebhookService_handlePaymentIntentSucceeded_AfterRefundLeavesOrder(t *testing.T) {
	service, mocks := newWebhookService()
	ctx := context.Background()

	orderID := uuid.New()
	p := createSucceededPayment(t, orderID)
	require.NoError(t, p.MarkRefunded("re_prior123"))
	p.ClearDomainEvents()

	event := intentEvent(t, "payment_intent.succeeded", stripe.PaymentIntent{ID: "pi_test123"})

	mocks.paymentRepo.On("FindByStripeIntent", ctx, "pi_test123").Return(p, nil)

	err := service.handlePaymentIntentSucceeded(ctx, event)

	require.NoError(t, err)
	assert.Equal(t, payment.PaymentStatusRefunded, p.Status)
	mocks.paymentRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	mocks.orderRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestStripeWebhookService_handlePaymentIntentSucceeded_PublishesEvents(t *testing.T) {
	service, mocks := newWebhookService()
	service.eventPublisher = mocks.publisher
	ctx := context.Background()

	ord := createTestOrder(t, uuid.New(), uuid.New())
	p := createOpenPayment(t, ord.ID)

	event := intentEvent(t, "payment_intent.succeeded", stripe.PaymentIntent{ID: "pi_test123"})

	mocks.paymentRepo.On("FindByStripeIntent", ctx, "pi_test123").Return(p, nil)
	mocks.paymentRepo.On("SaveWithLock", ctx, p).Return(nil)
	mocks.orderRepo.On("FindByID", ctx, ord.ID).Return(ord, nil)
	mocks.orderRepo.On("SaveWithLock", ctx, ord).Return(nil)

	mocks.publisher.On("Publish", ctx, mock.MatchedBy(func(events []shared.DomainEvent) bool {
		return len(events) == 1 && events[0].EventType() == payment.EventTypePaymentSucceeded
	})).Return(nil).Once()
	mocks.publisher.On("Publish", ctx, mock.MatchedBy(func(events []shared.DomainEvent) bool {
		return len(events) == 1 && events[0].EventType() == order.EventTypeOrderPaid
	})).Return(nil).Once()

	err := service.handlePaymentIntentSucceeded(ctx, event)

	require.NoError(t, err)
	mocks.publisher.AssertExpectations(t)
}

// ============================================================================
// payment_intent.payment_failed
// ============================================================================

func TestStripeWebhookService_handlePaymentIntentFailed_RecordsReason(t *testing.T) {
	service, mocks := newWebhookService()
	ctx := context.Background()

	orderID := uuid.New()
	p := createOpenPayment(t, orderID)

	event := intentEvent(t, "payment_intent.payment_failed", stripe.PaymentIntent{
		ID:               "pi_test123",
		LastPaymentError: &stripe.Error{Msg: "Your card was declined."},
	})

	mocks.paymentRepo.On("FindByStripeIntent", ctx, "pi_test123").Return(p, nil)
	mocks.paymentRepo.On("SaveWithLock", ctx, p).Return(nil)

	err := service.handlePaymentIntentFailed(ctx, event)

	require.NoError(t, err)
	assert.Equal(t, payment.PaymentStatusFailed, p.Status)
	assert.Equal(t, "Your card was declined.", p.FailureReason)
	// The order stays pending so the buyer can retry the same intent
	mocks.orderRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestStripeWebhookService_handlePaymentIntentFailed_LateFailureIgnored(t *testing.T) {
	service, mocks := newWebhookService()
	ctx := context.Background()

	orderID := uuid.New()
	p := createSucceededPayment(t, orderID)

	event := intentEvent(t, "payment_intent.payment_failed", stripe.PaymentIntent{
		ID:               "pi_test123",
		LastPaymentError: &stripe.Error{Msg: "expired card"},
	})

	mocks.paymentRepo.On("FindByStripeIntent", ctx, "pi_test123").Return(p, nil)
	mocks.paymentRepo.On("SaveWithLock", ctx, p).Return(nil)

	err := service.handlePaymentIntentFailed(ctx, event)

	require.NoError(t, err)
	assert.Equal(t, payment.PaymentStatusSucceeded, p.Status)
	assert.Empty(t, p.FailureReason)
}

// ============================================================================
// charge.refunded
// ============================================================================

func TestStripeWebhookService_handleChargeRefunded_DashboardRefund(t *testing.T) {
	service, mocks := newWebhookService()
	ctx := context.Background()

	merchantID := uuid.New()
	ord := createDeliveredOrder(t, merchantID, uuid.New())
	p := createSucceededPayment(t, ord.ID)

	event := chargeRefundedEvent(t, stripe.Charge{
		ID:            "ch_test123",
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_test123"},
		Refunds:       &stripe.RefundList{Data: []*stripe.Refund{{ID: "re_dash123"}}},
	})

	mocks.paymentRepo.On("FindByStripeIntent", ctx, "pi_test123").Return(p, nil)
	mocks.paymentRepo.On("SaveWithLock", ctx, p).Return(nil)
	mocks.orderRepo.On("FindByID", ctx, ord.ID).Return(ord, nil)
	mocks.orderRepo.On("SaveWithLock", ctx, ord).Return(nil)
	mocks.ledger.On("ReverseSale", ctx, merchantID, ord.ID, mock.MatchedBy(func(amount decimal.Decimal) bool {
		return amount.StringFixed(2) == "161.98"
	}), mock.AnythingOfType("string")).Return(nil)

	err := service.handleChargeRefunded(ctx, event)

	require.NoError(t, err)
	assert.Equal(t, payment.PaymentStatusRefunded, p.Status)
	assert.Equal(t, "re_dash123", p.RefundID)
	assert.Equal(t, order.OrderStatusRefunded, ord.Status)
	mocks.ledger.AssertExpectations(t)
}

func TestStripeWebhookService_handleChargeRefunded_CompletedOrderKeepsStatus(t *testing.T) {
	service, mocks := newWebhookService()
	ctx := context.Background()

	merchantID := uuid.New()
	ord := createDeliveredOrder(t, merchantID, uuid.New())
	require.NoError(t, ord.Complete())
	ord.ClearDomainEvents()
	p := createSucceededPayment(t, ord.ID)

	event := chargeRefundedEvent(t, stripe.Charge{
		ID:            "ch_test123",
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_test123"},
		Refunds:       &stripe.RefundList{Data: []*stripe.Refund{{ID: "re_dash456"}}},
	})

	mocks.paymentRepo.On("FindByStripeIntent", ctx, "pi_test123").Return(p, nil)
	mocks.paymentRepo.On("SaveWithLock", ctx, p).Return(nil)
	mocks.orderRepo.On("FindByID", ctx, ord.ID).Return(ord, nil)
	mocks.ledger.On("ReverseSale", ctx, merchantID, ord.ID, mock.Anything, mock.Anything).Return(nil)

	err := service.handleChargeRefunded(ctx, event)

	require.NoError(t, err)
	assert.Equal(t, payment.PaymentStatusRefunded, p.Status)
	// Completed is terminal, only the payment and ledger reflect the refund
	assert.Equal(t, order.OrderStatusCompleted, ord.Status)
	mocks.orderRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	mocks.ledger.AssertExpectations(t)
}

func TestStripeWebhookService_handleChargeRefunded_RefundOutranSuccess(t *testing.T) {
	service, mocks := newWebhookService()
	ctx := context.Background()

	merchantID := uuid.New()
	ord := createTestOrder(t, merchantID, uuid.New())
	p := createOpenPayment(t, ord.ID)

	event := chargeRefundedEvent(t, stripe.Charge{
		ID:            "ch_test123",
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_test123"},
		Refunds:       &stripe.RefundList{Data: []*stripe.Refund{{ID: "re_fast123"}}},
	})

	mocks.paymentRepo.On("FindByStripeIntent", ctx, "pi_test123").Return(p, nil)
	mocks.paymentRepo.On("SaveWithLock", ctx, p).Return(nil)
	mocks.orderRepo.On("FindByID", ctx, ord.ID).Return(ord, nil)
	mocks.ledger.On("ReverseSale", ctx, merchantID, ord.ID, mock.Anything, mock.Anything).Return(nil)

	err := service.handleChargeRefunded(ctx, event)

	require.NoError(t, err)
	// A refunded charge necessarily succeeded first
	assert.Equal(t, payment.PaymentStatusRefunded, p.Status)
	assert.NotNil(t, p.SucceededAt)
	// Pending cannot move to refunded, the order waits for its own events
	assert.Equal(t, order.OrderStatusPending, ord.Status)
	mocks.orderRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
}

func TestStripeWebhookService_handleChargeRefunded_NoIntentOnCharge(t *testing.T) {
	service, mocks := newWebhookService()
	ctx := context.Background()

	event := chargeRefundedEvent(t, stripe.Charge{ID: "ch_orphan123"})

	err := service.handleChargeRefunded(ctx, event)

	require.NoError(t, err)
	mocks.paymentRepo.AssertNotCalled(t, "FindByStripeIntent", mock.Anything, mock.Anything)
}

func TestStripeWebhookService_handleChargeRefunded_ReplayStillReversesLedger(t *testing.T) {
	service, mocks := newWebhookService()
	ctx := context.Background()

	merchantID := uuid.New()
	ord := createDeliveredOrder(t, merchantID, uuid.New())
	require.NoError(t, ord.MarkRefunded())
	ord.ClearDomainEvents()
	p := createSucceededPayment(t, ord.ID)
	require.NoError(t, p.MarkRefunded("re_done123"))
	p.ClearDomainEvents()

	event := chargeRefundedEvent(t, stripe.Charge{
		ID:            "ch_test123",
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_test123"},
	})

	mocks.paymentRepo.On("FindByStripeIntent", ctx, "pi_test123").Return(p, nil)
	mocks.orderRepo.On("FindByID", ctx, ord.ID).Return(ord, nil)
	mocks.ledger.On("ReverseSale", ctx, merchantID, ord.ID, mock.Anything, mock.Anything).Return(nil)

	err := service.handleChargeRefunded(ctx, event)

	require.NoError(t, err)
	assert.Equal(t, "re_done123", p.RefundID)
	mocks.paymentRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	mocks.orderRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	// The reversal is idempotent, so the replay converges the ledger
	mocks.ledger.AssertExpectations(t)
}

func TestStripeWebhookService_handleChargeRefunded_FallsBackToChargeID(t *testing.T) {
	service, mocks := newWebhookService()
	ctx := context.Background()

	merchantID := uuid.New()
	ord := createDeliveredOrder(t, merchantID, uuid.New())
	p := createSucceededPayment(t, ord.ID)

	// Webhook payloads do not always expand the refund list
	event := chargeRefundedEvent(t, stripe.Charge{
		ID:            "ch_bare123",
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_test123"},
	})

	mocks.paymentRepo.On("FindByStripeIntent", ctx, "pi_test123").Return(p, nil)
	mocks.paymentRepo.On("SaveWithLock", ctx, p).Return(nil)
	mocks.orderRepo.On("FindByID", ctx, ord.ID).Return(ord, nil)
	mocks.orderRepo.On("SaveWithLock", ctx, ord).Return(nil)
	mocks.ledger.On("ReverseSale", ctx, merchantID, ord.ID, mock.Anything, mock.Anything).Return(nil)

	err := service.handleChargeRefunded(ctx, event)

	require.NoError(t, err)
	assert.Equal(t, "ch_bare123", p.RefundID)
}

func TestStripeWebhookService_handleChargeRefunded_LedgerFailurePropagates(t *testing.T) {
	service, mocks := newWebhookService()
	ctx := context.Background()

	merchantID := uuid.New()
	ord := createDeliveredOrder(t, merchantID, uuid.New())
	p := createSucceededPayment(t, ord.ID)

	event := chargeRefundedEvent(t, stripe.Charge{
		ID:            "ch_test123",
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_test123"},
		Refunds:       &stripe.RefundList{Data: []*stripe.Refund{{ID: "re_dash123"}}},
	})

	mocks.paymentRepo.On("FindByStripeIntent", ctx, "pi_test123").Return(p, nil)
	mocks.paymentRepo.On("SaveWithLock", ctx, p).Return(nil)
	mocks.orderRepo.On("FindByID", ctx, ord.ID).Return(ord, nil)
	mocks.orderRepo.On("SaveWithLock", ctx, ord).Return(nil)
	mocks.ledger.On("ReverseSale", ctx, merchantID, ord.ID, mock.Anything, mock.Anything).
		Return(errors.New("ledger: connection lost"))

	// Stripe retries the delivery, which retries the reversal
	err := service.handleChargeRefunded(ctx, event)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reverse earnings")
}

func TestNewStripeWebhookService_DefaultDedupTTL(t *testing.T) {
	service, _ := newWebhookService()
	assert.Equal(t, 72*time.Hour, service.dedupTTL)
}
