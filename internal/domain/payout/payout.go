package payout

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/taic/backend/internal/domain/shared"
	"github.com/taic/backend/internal/domain/shared/valueobject"
)

// PayoutStatus represents the lifecycle of a crypto payout
type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"    // Waiting for the processor (or for a retry slot)
	PayoutStatusProcessing PayoutStatus = "processing" // Claimed, transfer in flight
	PayoutStatusSent       PayoutStatus = "sent"
	PayoutStatusFailed     PayoutStatus = "failed" // Terminal, funds returned via ledger reversal
)

// IsValid checks if the status is a valid PayoutStatus
func (s PayoutStatus) IsValid() bool {
	switch s {
	case PayoutStatusPending, PayoutStatusProcessing, PayoutStatusSent, PayoutStatusFailed:
		return true
	}
	return false
}

// String returns the string representation of PayoutStatus
func (s PayoutStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transitions are allowed
func (s PayoutStatus) IsTerminal() bool {
	return s == PayoutStatusSent || s == PayoutStatusFailed
}

// RetryPolicy controls how failed transfer attempts are rescheduled
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy retries up to 5 times, doubling from one minute
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 5,
	BaseDelay:   time.Minute,
	MaxDelay:    time.Hour,
}

// Delay returns the wait before the given attempt number may run again.
// Attempt 1 waits BaseDelay, each further attempt doubles, capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Payout is the aggregate root for one withdrawal of merchant earnings
// to a crypto wallet. The wallet address is snapshotted at request time
// so later settings changes cannot redirect an in-flight payout. The
// idempotency key is fixed for the payout's lifetime: retries of the
// treasury transfer reuse it, so the treasury never double-sends.
type Payout struct {
	shared.MerchantAggregateRoot
	Amount             decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CryptoCurrency     string          `gorm:"type:varchar(10);not null"`
	WalletAddress      string          `gorm:"type:varchar(128);not null"`
	Status             PayoutStatus    `gorm:"type:varchar(20);not null;default:'pending';index"`
	Attempts           int             `gorm:"not null;default:0"`
	NextAttemptAt      *time.Time      `gorm:"index"`
	TreasuryTransferID string          `gorm:"type:varchar(100)"`
	TxHash             string          `gorm:"type:varchar(100)"`
	FailureReason      string          `gorm:"type:text"`
	IdempotencyKey     string          `gorm:"type:varchar(64);not null;uniqueIndex"`
	SentAt             *time.Time
}

// TableName returns the table name for GORM
func (Payout) TableName() string {
	return "payouts"
}

// NewPayout creates a pending payout request. The caller has already
// verified the amount against the merchant's available balance inside
// the same transaction that appends the payout_debit ledger entry.
func NewPayout(merchantID uuid.UUID, amount, minAmount valueobject.Money, cryptoCurrency, walletAddress string) (*Payout, error) {
	if merchantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MERCHANT", "Merchant ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payout amount must be positive")
	}
	below, err := amount.LessThan(minAmount)
	if err != nil {
		return nil, err
	}
	if below {
		return nil, shared.NewDomainError("AMOUNT_BELOW_MINIMUM", "Payout amount is below the minimum")
	}
	cryptoCurrency = strings.ToUpper(strings.TrimSpace(cryptoCurrency))
	if cryptoCurrency == "" {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Crypto currency is required")
	}
	walletAddress = strings.TrimSpace(walletAddress)
	if walletAddress == "" {
		return nil, shared.NewDomainError("WALLET_REQUIRED", "Merchant has no wallet address configured")
	}

	now := time.Now()
	p := &Payout{
		MerchantAggregateRoot: shared.NewMerchantAggregateRoot(merchantID),
		Amount:                amount.Amount(),
		CryptoCurrency:        cryptoCurrency,
		WalletAddress:         walletAddress,
		Status:                PayoutStatusPending,
		Attempts:              0,
		NextAttemptAt:         &now,
		IdempotencyKey:        uuid.NewString(),
	}

	p.AddDomainEvent(NewPayoutRequestedEvent(p))

	return p, nil
}

// MarkProcessing claims the payout for a transfer attempt. The claim is
// made durable through SaveWithLock; a concurrent processor loses the
// version race and moves on.
func (p *Payout) MarkProcessing() error {
	if p.Status != PayoutStatusPending {
		return shared.NewDomainError("PAYOUT_NOT_CLAIMABLE", "Payout is not awaiting processing")
	}

	p.Status = PayoutStatusProcessing
	p.Attempts++
	p.NextAttemptAt = nil
	p.Touch()

	return nil
}

// MarkSent records a transfer accepted by the treasury service
func (p *Payout) MarkSent(transferID, txHash string) error {
	if p.Status != PayoutStatusProcessing {
		return shared.NewDomainError("INVALID_PAYOUT_STATE", "Only a processing payout can be marked sent")
	}
	if strings.TrimSpace(transferID) == "" {
		return shared.NewDomainError("TRANSFER_ID_REQUIRED", "Treasury transfer ID cannot be empty")
	}

	now := time.Now()
	p.Status = PayoutStatusSent
	p.TreasuryTransferID = transferID
	p.TxHash = txHash
	p.FailureReason = ""
	p.SentAt = &now
	p.UpdatedAt = now

	p.AddDomainEvent(NewPayoutSentEvent(p))

	return nil
}

// MarkFailed records a failed transfer attempt. While attempts remain
// the payout is rescheduled with exponential backoff; once they are
// exhausted it fails terminally and the caller reverses the ledger
// debit in the same transaction.
func (p *Payout) MarkFailed(reason string, policy RetryPolicy) error {
	if p.Status != PayoutStatusProcessing {
		return shared.NewDomainError("INVALID_PAYOUT_STATE", "Only a processing payout can be marked failed")
	}
	if strings.TrimSpace(reason) == "" {
		reason = "transfer failed"
	}

	p.FailureReason = reason

	if p.Attempts >= policy.MaxAttempts {
		p.Status = PayoutStatusFailed
		p.NextAttemptAt = nil
		p.Touch()

		p.AddDomainEvent(NewPayoutFailedEvent(p))

		return nil
	}

	return p.ScheduleRetry(time.Now().Add(policy.Delay(p.Attempts)))
}

// ScheduleRetry re-queues the payout for another attempt at the given time
func (p *Payout) ScheduleRetry(at time.Time) error {
	if p.Status != PayoutStatusProcessing && p.Status != PayoutStatusFailed {
		return shared.NewDomainError("INVALID_PAYOUT_STATE", "Payout cannot be rescheduled from its current state")
	}

	p.Status = PayoutStatusPending
	p.NextAttemptAt = &at
	p.Touch()

	return nil
}

// IsDue returns true if the processor should pick the payout up
func (p *Payout) IsDue(now time.Time) bool {
	if p.Status != PayoutStatusPending {
		return false
	}
	return p.NextAttemptAt == nil || !p.NextAttemptAt.After(now)
}

// GetAmountMoney returns the payout amount as Money
func (p *Payout) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(p.Amount)
}
