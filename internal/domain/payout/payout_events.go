package payout

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/taic/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypePayout = "Payout"

// Event type constants
const (
	EventTypePayoutRequested = "PayoutRequested"
	EventTypePayoutSent      = "PayoutSent"
	EventTypePayoutFailed    = "PayoutFailed"
)

// PayoutRequestedEvent is published when a merchant requests a withdrawal
type PayoutRequestedEvent struct {
	shared.BaseDomainEvent
	PayoutID       uuid.UUID       `json:"payout_id"`
	MerchantID     uuid.UUID       `json:"merchant_id"`
	Amount         decimal.Decimal `json:"amount"`
	CryptoCurrency string          `json:"crypto_currency"`
	WalletAddress  string          `json:"wallet_address"`
}

// NewPayoutRequestedEvent creates a new PayoutRequestedEvent
func NewPayoutRequestedEvent(p *Payout) *PayoutRequestedEvent {
	return &PayoutRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePayoutRequested, AggregateTypePayout, p.ID),
		PayoutID:        p.ID,
		MerchantID:      p.MerchantID,
		Amount:          p.Amount,
		CryptoCurrency:  p.CryptoCurrency,
		WalletAddress:   p.WalletAddress,
	}
}

// PayoutSentEvent is published when the treasury accepts the transfer
type PayoutSentEvent struct {
	shared.BaseDomainEvent
	PayoutID           uuid.UUID       `json:"payout_id"`
	MerchantID         uuid.UUID       `json:"merchant_id"`
	Amount             decimal.Decimal `json:"amount"`
	TreasuryTransferID string          `json:"treasury_transfer_id"`
	TxHash             string          `json:"tx_hash"`
}

// NewPayoutSentEvent creates a new PayoutSentEvent
func NewPayoutSentEvent(p *Payout) *PayoutSentEvent {
	return &PayoutSentEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypePayoutSent, AggregateTypePayout, p.ID),
		PayoutID:           p.ID,
		MerchantID:         p.MerchantID,
		Amount:             p.Amount,
		TreasuryTransferID: p.TreasuryTransferID,
		TxHash:             p.TxHash,
	}
}

// PayoutFailedEvent is published only on terminal failure, after all
// retry attempts are exhausted
type PayoutFailedEvent struct {
	shared.BaseDomainEvent
	PayoutID   uuid.UUID       `json:"payout_id"`
	MerchantID uuid.UUID       `json:"merchant_id"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	Attempts   int             `json:"attempts"`
}

// NewPayoutFailedEvent creates a new PayoutFailedEvent
func NewPayoutFailedEvent(p *Payout) *PayoutFailedEvent {
	return &PayoutFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePayoutFailed, AggregateTypePayout, p.ID),
		PayoutID:        p.ID,
		MerchantID:      p.MerchantID,
		Amount:          p.Amount,
		Reason:          p.FailureReason,
		Attempts:        p.Attempts,
	}
}
