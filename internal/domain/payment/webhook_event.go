package payment

import (
	"strings"
	"time"

	"github.com/taic/backend/internal/domain/shared"
)

// WebhookEventStatus tracks how far a received webhook got
type WebhookEventStatus string

const (
	WebhookEventStatusReceived  WebhookEventStatus = "received"
	WebhookEventStatusProcessed WebhookEventStatus = "processed"
	WebhookEventStatusSkipped   WebhookEventStatus = "skipped" // Acknowledged but no handler for the type
	WebhookEventStatusFailed    WebhookEventStatus = "failed"
)

// WebhookEvent is the durable dedup record for Stripe webhook deliveries.
// The unique index on StripeEventID is what actually rejects replays; the
// Redis idempotency store in front of it only saves a round trip.
type WebhookEvent struct {
	shared.BaseEntity
	StripeEventID string             `gorm:"type:varchar(255);not null;uniqueIndex"`
	Type          string             `gorm:"type:varchar(100);not null;index"`
	Status        WebhookEventStatus `gorm:"type:varchar(20);not null;default:'received'"`
	ReceivedAt    time.Time          `gorm:"not null;index"`
	ProcessedAt   *time.Time
	LastError     string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (WebhookEvent) TableName() string {
	return "webhook_events"
}

// NewWebhookEvent records a freshly received Stripe event
func NewWebhookEvent(stripeEventID, eventType string) (*WebhookEvent, error) {
	stripeEventID = strings.TrimSpace(stripeEventID)
	if stripeEventID == "" {
		return nil, shared.NewDomainError("INVALID_WEBHOOK_EVENT", "Stripe event ID cannot be empty")
	}
	if strings.TrimSpace(eventType) == "" {
		return nil, shared.NewDomainError("INVALID_WEBHOOK_EVENT", "Event type cannot be empty")
	}

	return &WebhookEvent{
		BaseEntity:    shared.NewBaseEntity(),
		StripeEventID: stripeEventID,
		Type:          eventType,
		Status:        WebhookEventStatusReceived,
		ReceivedAt:    time.Now(),
	}, nil
}

// MarkProcessed records that the event's handler ran to completion
func (e *WebhookEvent) MarkProcessed() {
	now := time.Now()
	e.Status = WebhookEventStatusProcessed
	e.ProcessedAt = &now
	e.UpdatedAt = now
}

// MarkSkipped records that the event type has no handler
func (e *WebhookEvent) MarkSkipped() {
	now := time.Now()
	e.Status = WebhookEventStatusSkipped
	e.ProcessedAt = &now
	e.UpdatedAt = now
}

// MarkFailed records a handler error for later inspection
func (e *WebhookEvent) MarkFailed(errMsg string) {
	e.Status = WebhookEventStatusFailed
	e.LastError = errMsg
	e.Touch()
}

// IsHandled returns true if the event should not be processed again
func (e *WebhookEvent) IsHandled() bool {
	return e.Status == WebhookEventStatusProcessed || e.Status == WebhookEventStatusSkipped
}
