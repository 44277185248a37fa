package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/taic/backend/internal/domain/payment"
	"github.com/taic/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormWebhookEventRepository implements WebhookEventRepository using GORM
type GormWebhookEventRepository struct {
	db *gorm.DB
}

// NewGormWebhookEventRepository creates a new GormWebhookEventRepository
func NewGormWebhookEventRepository(db *gorm.DB) *GormWebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

// Create inserts a new record. A replayed Stripe event ID trips the
// unique index and comes back as shared.ErrAlreadyExists.
func (r *GormWebhookEventRepository) Create(ctx context.Context, event *payment.WebhookEvent) error {
	return translateError(r.db.WithContext(ctx).Create(event).Error)
}

// FindByStripeEventID retrieves a record by the Stripe event ID
func (r *GormWebhookEventRepository) FindByStripeEventID(ctx context.Context, stripeEventID string) (*payment.WebhookEvent, error) {
	var event payment.WebhookEvent
	if err := r.db.WithContext(ctx).
		Where("stripe_event_id = ?", stripeEventID).
		First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &event, nil
}

// Update persists handler outcome changes
func (r *GormWebhookEventRepository) Update(ctx context.Context, event *payment.WebhookEvent) error {
	result := r.db.WithContext(ctx).Save(event)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteHandledBefore removes handled records older than the cutoff
// and returns how many were deleted. Records still in received status
// are kept so an in-flight delivery cannot lose its dedup row.
func (r *GormWebhookEventRepository) DeleteHandledBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status IN ? AND received_at < ?",
			[]payment.WebhookEventStatus{
				payment.WebhookEventStatusProcessed,
				payment.WebhookEventStatusSkipped,
				payment.WebhookEventStatusFailed,
			}, cutoff).
		Delete(&payment.WebhookEvent{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Ensure GormWebhookEventRepository implements WebhookEventRepository
var _ payment.WebhookEventRepository = (*GormWebhookEventRepository)(nil)
