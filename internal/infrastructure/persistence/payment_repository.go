package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/taic/backend/internal/domain/payment"
	"github.com/taic/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID retrieves a payment by its ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	var p payment.Payment
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindByOrder retrieves the payment backing an order
func (r *GormPaymentRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*payment.Payment, error) {
	var p payment.Payment
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// FindByStripeIntent retrieves the payment backed by a Stripe intent
func (r *GormPaymentRepository) FindByStripeIntent(ctx context.Context, intentID string) (*payment.Payment, error) {
	var p payment.Payment
	if err := r.db.WithContext(ctx).
		Where("stripe_payment_intent_id = ?", intentID).
		First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Save persists a payment. A second payment for the same order trips
// the unique index and comes back as shared.ErrAlreadyExists.
func (r *GormPaymentRepository) Save(ctx context.Context, p *payment.Payment) error {
	return translateError(r.db.WithContext(ctx).Save(p).Error)
}

// SaveWithLock persists a payment with optimistic concurrency control
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, p *payment.Payment) error {
	currentVersion := p.Version
	result := r.db.WithContext(ctx).
		Model(&payment.Payment{}).
		Where("id = ? AND version = ?", p.ID, currentVersion).
		Updates(map[string]interface{}{
			"stripe_payment_intent_id": p.StripePaymentIntentID,
			"status":                   p.Status,
			"failure_reason":           p.FailureReason,
			"refund_id":                p.RefundID,
			"succeeded_at":             p.SucceededAt,
			"refunded_at":              p.RefundedAt,
			"version":                  currentVersion + 1,
			"updated_at":               p.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("CONCURRENT_MODIFICATION", "Payment was modified by another transaction")
	}
	p.Version = currentVersion + 1
	return nil
}

// Ensure GormPaymentRepository implements PaymentRepository
var _ payment.PaymentRepository = (*GormPaymentRepository)(nil)
