package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/taic/backend/internal/domain/order"
	"github.com/taic/backend/internal/domain/shared"
)

// EarningsLedger credits a merchant's balance with the earnings of a
// completed sale. Implemented by the payout ledger service.
type EarningsLedger interface {
	CreditSale(ctx context.Context, merchantID, orderID uuid.UUID, amount decimal.Decimal, description string) error
}

// OrderCompletedHandler credits the merchant's earnings to their payout
// ledger when an order completes
type OrderCompletedHandler struct {
	ledger EarningsLedger
	logger *zap.Logger
}

// NewOrderCompletedHandler creates a new order completed handler
func NewOrderCompletedHandler(ledger EarningsLedger, logger *zap.Logger) *OrderCompletedHandler {
	return &OrderCompletedHandler{
		ledger: ledger,
		logger: logger,
	}
}

// EventTypes returns the event types this handler processes
func (h *OrderCompletedHandler) EventTypes() []string {
	return []string{order.EventTypeOrderCompleted}
}

// Handle appends a sale credit for the order's merchant earnings
func (h *OrderCompletedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	completedEvent, ok := event.(*order.OrderCompletedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", order.EventTypeOrderCompleted),
			zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: expected %s, got %s", order.EventTypeOrderCompleted, event.EventType())
	}

	if !completedEvent.MerchantEarnings.IsPositive() {
		h.logger.Warn("Order completed with no merchant earnings, skipping credit",
			zap.String("order_id", completedEvent.OrderID.String()),
			zap.String("order_number", completedEvent.OrderNumber))
		return nil
	}

	description := fmt.Sprintf("Sale credit for order %s", completedEvent.OrderNumber)
	if err := h.ledger.CreditSale(ctx, completedEvent.MerchantID, completedEvent.OrderID, completedEvent.MerchantEarnings, description); err != nil {
		return fmt.Errorf("failed to credit earnings for order %s: %w", completedEvent.OrderNumber, err)
	}

	h.logger.Info("Merchant earnings credited",
		zap.String("order_id", completedEvent.OrderID.String()),
		zap.String("order_number", completedEvent.OrderNumber),
		zap.String("merchant_id", completedEvent.MerchantID.String()),
		zap.String("amount", completedEvent.MerchantEarnings.String()))

	return nil
}

var _ shared.EventHandler = (*OrderCompletedHandler)(nil)
