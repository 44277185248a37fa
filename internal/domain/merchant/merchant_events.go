package merchant

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/taic/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeMerchant = "Merchant"

// Event type constants
const (
	EventTypeMerchantApplied               = "MerchantApplied"
	EventTypeMerchantApproved              = "MerchantApproved"
	EventTypeMerchantRejected              = "MerchantRejected"
	EventTypeMerchantSuspended             = "MerchantSuspended"
	EventTypeMerchantReinstated            = "MerchantReinstated"
	EventTypeMerchantCommissionRateChanged = "MerchantCommissionRateChanged"
	EventTypeMerchantPayoutSettingsChanged = "MerchantPayoutSettingsChanged"
)

// MerchantAppliedEvent is published when a new merchant application is submitted
type MerchantAppliedEvent struct {
	shared.BaseDomainEvent
	MerchantID   uuid.UUID `json:"merchant_id"`
	OwnerUserID  uuid.UUID `json:"owner_user_id"`
	BusinessName string    `json:"business_name"`
	Slug         string    `json:"slug"`
	ContactEmail string    `json:"contact_email"`
}

// NewMerchantAppliedEvent creates a new MerchantAppliedEvent
func NewMerchantAppliedEvent(m *Merchant) *MerchantAppliedEvent {
	return &MerchantAppliedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMerchantApplied, AggregateTypeMerchant, m.ID),
		MerchantID:      m.ID,
		OwnerUserID:     m.OwnerUserID,
		BusinessName:    m.BusinessName,
		Slug:            m.Slug,
		ContactEmail:    m.ContactEmail,
	}
}

// MerchantApprovedEvent is published when an application passes review
type MerchantApprovedEvent struct {
	shared.BaseDomainEvent
	MerchantID   uuid.UUID `json:"merchant_id"`
	OwnerUserID  uuid.UUID `json:"owner_user_id"`
	BusinessName string    `json:"business_name"`
}

// NewMerchantApprovedEvent creates a new MerchantApprovedEvent
func NewMerchantApprovedEvent(m *Merchant) *MerchantApprovedEvent {
	return &MerchantApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMerchantApproved, AggregateTypeMerchant, m.ID),
		MerchantID:      m.ID,
		OwnerUserID:     m.OwnerUserID,
		BusinessName:    m.BusinessName,
	}
}

// MerchantRejectedEvent is published when an application fails review
type MerchantRejectedEvent struct {
	shared.BaseDomainEvent
	MerchantID  uuid.UUID `json:"merchant_id"`
	OwnerUserID uuid.UUID `json:"owner_user_id"`
	Reason      string    `json:"reason"`
}

// NewMerchantRejectedEvent creates a new MerchantRejectedEvent
func NewMerchantRejectedEvent(m *Merchant, reason string) *MerchantRejectedEvent {
	return &MerchantRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMerchantRejected, AggregateTypeMerchant, m.ID),
		MerchantID:      m.ID,
		OwnerUserID:     m.OwnerUserID,
		Reason:          reason,
	}
}

// MerchantSuspendedEvent is published when an approved merchant is suspended
type MerchantSuspendedEvent struct {
	shared.BaseDomainEvent
	MerchantID uuid.UUID `json:"merchant_id"`
	Reason     string    `json:"reason"`
}

// NewMerchantSuspendedEvent creates a new MerchantSuspendedEvent
func NewMerchantSuspendedEvent(m *Merchant, reason string) *MerchantSuspendedEvent {
	return &MerchantSuspendedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMerchantSuspended, AggregateTypeMerchant, m.ID),
		MerchantID:      m.ID,
		Reason:          reason,
	}
}

// MerchantReinstatedEvent is published when a suspended merchant is restored
type MerchantReinstatedEvent struct {
	shared.BaseDomainEvent
	MerchantID uuid.UUID `json:"merchant_id"`
}

// NewMerchantReinstatedEvent creates a new MerchantReinstatedEvent
func NewMerchantReinstatedEvent(m *Merchant) *MerchantReinstatedEvent {
	return &MerchantReinstatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMerchantReinstated, AggregateTypeMerchant, m.ID),
		MerchantID:      m.ID,
	}
}

// MerchantCommissionRateChangedEvent is published when an admin changes the rate
type MerchantCommissionRateChangedEvent struct {
	shared.BaseDomainEvent
	MerchantID uuid.UUID       `json:"merchant_id"`
	OldRate    decimal.Decimal `json:"old_rate"`
	NewRate    decimal.Decimal `json:"new_rate"`
}

// NewMerchantCommissionRateChangedEvent creates a new MerchantCommissionRateChangedEvent
func NewMerchantCommissionRateChangedEvent(m *Merchant, oldRate, newRate decimal.Decimal) *MerchantCommissionRateChangedEvent {
	return &MerchantCommissionRateChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMerchantCommissionRateChanged, AggregateTypeMerchant, m.ID),
		MerchantID:      m.ID,
		OldRate:         oldRate,
		NewRate:         newRate,
	}
}

// MerchantPayoutSettingsChangedEvent is published when payout destination changes
type MerchantPayoutSettingsChangedEvent struct {
	shared.BaseDomainEvent
	MerchantID    uuid.UUID      `json:"merchant_id"`
	Currency      PayoutCurrency `json:"currency"`
	WalletAddress string         `json:"wallet_address"`
}

// NewMerchantPayoutSettingsChangedEvent creates a new MerchantPayoutSettingsChangedEvent
func NewMerchantPayoutSettingsChangedEvent(m *Merchant) *MerchantPayoutSettingsChangedEvent {
	return &MerchantPayoutSettingsChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMerchantPayoutSettingsChanged, AggregateTypeMerchant, m.ID),
		MerchantID:      m.ID,
		Currency:        m.PayoutSettings.Currency,
		WalletAddress:   m.PayoutSettings.WalletAddress,
	}
}
