package event

import (
	"github.com/taic/backend/internal/domain/catalog"
	"github.com/taic/backend/internal/domain/identity"
	"github.com/taic/backend/internal/domain/inventory"
	"github.com/taic/backend/internal/domain/merchant"
	"github.com/taic/backend/internal/domain/order"
	"github.com/taic/backend/internal/domain/payment"
	"github.com/taic/backend/internal/domain/payout"
)

// RegisterAllEvents registers all domain event types with the serializer
// This is required for the OutboxProcessor to deserialize events from the outbox table
func RegisterAllEvents(serializer *VersionedSerializer) error {
	// Identity events
	serializer.Register(identity.EventTypeUserRegistered, &identity.UserRegisteredEvent{})
	serializer.Register(identity.EventTypeUserPasswordChanged, &identity.UserPasswordChangedEvent{})
	serializer.Register(identity.EventTypeUserStatusChanged, &identity.UserStatusChangedEvent{})
	serializer.Register(identity.EventTypeUserMerchantLinked, &identity.UserMerchantLinkedEvent{})

	// Merchant lifecycle events
	serializer.Register(merchant.EventTypeMerchantApplied, &merchant.MerchantAppliedEvent{})
	serializer.Register(merchant.EventTypeMerchantApproved, &merchant.MerchantApprovedEvent{})
	serializer.Register(merchant.EventTypeMerchantRejected, &merchant.MerchantRejectedEvent{})
	serializer.Register(merchant.EventTypeMerchantSuspended, &merchant.MerchantSuspendedEvent{})
	serializer.Register(merchant.EventTypeMerchantReinstated, &merchant.MerchantReinstatedEvent{})
	serializer.Register(merchant.EventTypeMerchantCommissionRateChanged, &merchant.MerchantCommissionRateChangedEvent{})
	serializer.Register(merchant.EventTypeMerchantPayoutSettingsChanged, &merchant.MerchantPayoutSettingsChangedEvent{})

	// Catalog - category events
	serializer.Register(catalog.EventTypeCategoryCreated, &catalog.CategoryCreatedEvent{})
	serializer.Register(catalog.EventTypeCategoryUpdated, &catalog.CategoryUpdatedEvent{})
	serializer.Register(catalog.EventTypeCategoryDeleted, &catalog.CategoryDeletedEvent{})
	serializer.Register(catalog.EventTypeCategoryVisibilityChanged, &catalog.CategoryVisibilityChangedEvent{})

	// Catalog - product events
	serializer.Register(catalog.EventTypeProductCreated, &catalog.ProductCreatedEvent{})
	serializer.Register(catalog.EventTypeProductUpdated, &catalog.ProductUpdatedEvent{})
	serializer.Register(catalog.EventTypeProductPriceChanged, &catalog.ProductPriceChangedEvent{})
	serializer.Register(catalog.EventTypeProductStatusChanged, &catalog.ProductStatusChangedEvent{})
	serializer.Register(catalog.EventTypeProductImageAdded, &catalog.ProductImageAddedEvent{})
	serializer.Register(catalog.EventTypeProductImageRemoved, &catalog.ProductImageRemovedEvent{})
	serializer.Register(catalog.EventTypeProductImageUploaded, &catalog.ProductImageUploadedEvent{})

	// Inventory events
	serializer.Register(inventory.EventTypeStockReceived, &inventory.StockReceivedEvent{})
	serializer.Register(inventory.EventTypeStockAdjusted, &inventory.StockAdjustedEvent{})
	serializer.Register(inventory.EventTypeStockReserved, &inventory.StockReservedEvent{})
	serializer.Register(inventory.EventTypeStockReleased, &inventory.StockReleasedEvent{})
	serializer.Register(inventory.EventTypeStockCommitted, &inventory.StockCommittedEvent{})

	// StockLow v1 called the alert threshold min_quantity; v2 renamed it
	// when per-item thresholds replaced the global default.
	if err := serializer.RegisterVersioned(inventory.EventTypeStockLow, 2, &inventory.StockLowEvent{},
		RenameField(1, "min_quantity", "threshold"),
	); err != nil {
		return err
	}

	// Order lifecycle events
	serializer.Register(order.EventTypeOrderCreated, &order.OrderCreatedEvent{})
	serializer.Register(order.EventTypeOrderPaid, &order.OrderPaidEvent{})
	serializer.Register(order.EventTypeOrderShipped, &order.OrderShippedEvent{})
	serializer.Register(order.EventTypeOrderDelivered, &order.OrderDeliveredEvent{})
	serializer.Register(order.EventTypeOrderCompleted, &order.OrderCompletedEvent{})
	serializer.Register(order.EventTypeOrderCancelled, &order.OrderCancelledEvent{})
	serializer.Register(order.EventTypeOrderRefunded, &order.OrderRefundedEvent{})

	// Payment events
	serializer.Register(payment.EventTypePaymentSucceeded, &payment.PaymentSucceededEvent{})
	serializer.Register(payment.EventTypePaymentFailed, &payment.PaymentFailedEvent{})
	serializer.Register(payment.EventTypePaymentRefunded, &payment.PaymentRefundedEvent{})

	// Payout events
	serializer.Register(payout.EventTypePayoutRequested, &payout.PayoutRequestedEvent{})
	serializer.Register(payout.EventTypePayoutSent, &payout.PayoutSentEvent{})
	serializer.Register(payout.EventTypePayoutFailed, &payout.PayoutFailedEvent{})

	return nil
}
