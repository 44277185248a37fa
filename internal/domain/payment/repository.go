package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PaymentRepository defines the persistence interface for payments
type PaymentRepository interface {
	// FindByID retrieves a payment by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByOrder retrieves the payment backing an order
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*Payment, error)

	// FindByStripeIntent retrieves the payment backed by a Stripe intent
	FindByStripeIntent(ctx context.Context, intentID string) (*Payment, error)

	// Save persists a payment (create or update)
	Save(ctx context.Context, p *Payment) error

	// SaveWithLock persists a payment with optimistic concurrency control.
	// Webhook deliveries race each other, so updates go through here.
	SaveWithLock(ctx context.Context, p *Payment) error
}

// WebhookEventRepository defines the persistence interface for the
// webhook dedup records
type WebhookEventRepository interface {
	// Create inserts a new record. A replayed Stripe event ID returns
	// shared.ErrAlreadyExists.
	Create(ctx context.Context, event *WebhookEvent) error

	// FindByStripeEventID retrieves a record by the Stripe event ID
	FindByStripeEventID(ctx context.Context, stripeEventID string) (*WebhookEvent, error)

	// Update persists handler outcome changes
	Update(ctx context.Context, event *WebhookEvent) error

	// DeleteHandledBefore removes handled records older than the cutoff
	// and returns how many were deleted
	DeleteHandledBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
