package payout

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/taic/backend/internal/domain/shared"
	"github.com/taic/backend/internal/domain/shared/valueobject"
)

// LedgerEntryType classifies ledger movements. The sign of an entry's
// amount is fixed by its type: credits are positive, debits negative,
// adjustments carry either sign.
type LedgerEntryType string

const (
	LedgerEntryTypeSaleCredit  LedgerEntryType = "sale_credit"  // Merchant earnings on order completion
	LedgerEntryTypePayoutDebit LedgerEntryType = "payout_debit" // Funds reserved when a payout is requested
	LedgerEntryTypeRefundDebit LedgerEntryType = "refund_debit" // Earnings clawed back on refund
	LedgerEntryTypeAdjustment  LedgerEntryType = "adjustment"   // Correction, e.g. reversing a failed payout
)

// IsValid checks if the type is a valid LedgerEntryType
func (t LedgerEntryType) IsValid() bool {
	switch t {
	case LedgerEntryTypeSaleCredit, LedgerEntryTypePayoutDebit,
		LedgerEntryTypeRefundDebit, LedgerEntryTypeAdjustment:
		return true
	}
	return false
}

// LedgerEntry is one movement on a merchant's balance. The ledger is
// append-only: entries are never updated or deleted, and a merchant's
// available balance is the sum of their entry amounts.
type LedgerEntry struct {
	shared.BaseEntity
	MerchantID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type         LedgerEntryType `gorm:"type:varchar(20);not null;index"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Signed by type
	BalanceAfter decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OrderID      *uuid.UUID      `gorm:"type:uuid;index"`
	PayoutID     *uuid.UUID      `gorm:"type:uuid;index"`
	Description  string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// NewSaleCredit credits the merchant's earnings from a completed order
func NewSaleCredit(merchantID, orderID uuid.UUID, amount, balanceAfter valueobject.Money, description string) (*LedgerEntry, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order ID cannot be empty")
	}
	return newEntry(merchantID, LedgerEntryTypeSaleCredit, amount.Amount(), balanceAfter, &orderID, nil, description)
}

// NewPayoutDebit reserves funds for a requested payout
func NewPayoutDebit(merchantID, payoutID uuid.UUID, amount, balanceAfter valueobject.Money, description string) (*LedgerEntry, error) {
	if payoutID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PAYOUT", "Payout ID cannot be empty")
	}
	return newEntry(merchantID, LedgerEntryTypePayoutDebit, amount.Amount().Neg(), balanceAfter, nil, &payoutID, description)
}

// NewRefundDebit claws back earnings for a refunded order
func NewRefundDebit(merchantID, orderID uuid.UUID, amount, balanceAfter valueobject.Money, description string) (*LedgerEntry, error) {
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ORDER", "Order ID cannot be empty")
	}
	return newEntry(merchantID, LedgerEntryTypeRefundDebit, amount.Amount().Neg(), balanceAfter, &orderID, nil, description)
}

// NewPayoutReversal returns reserved funds after a payout terminally fails
func NewPayoutReversal(merchantID, payoutID uuid.UUID, amount, balanceAfter valueobject.Money, description string) (*LedgerEntry, error) {
	if payoutID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PAYOUT", "Payout ID cannot be empty")
	}
	return newEntry(merchantID, LedgerEntryTypeAdjustment, amount.Amount(), balanceAfter, nil, &payoutID, description)
}

// NewAdjustment records a manual correction with an explicitly signed amount
func NewAdjustment(merchantID uuid.UUID, signedAmount decimal.Decimal, balanceAfter valueobject.Money, description string) (*LedgerEntry, error) {
	if merchantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MERCHANT", "Merchant ID cannot be empty")
	}
	if signedAmount.IsZero() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Adjustment amount cannot be zero")
	}
	if strings.TrimSpace(description) == "" {
		return nil, shared.NewDomainError("DESCRIPTION_REQUIRED", "Adjustments must carry a description")
	}

	return &LedgerEntry{
		BaseEntity:   shared.NewBaseEntity(),
		MerchantID:   merchantID,
		Type:         LedgerEntryTypeAdjustment,
		Amount:       signedAmount,
		BalanceAfter: balanceAfter.Amount(),
		Description:  description,
	}, nil
}

func newEntry(merchantID uuid.UUID, entryType LedgerEntryType, signedAmount decimal.Decimal, balanceAfter valueobject.Money, orderID, payoutID *uuid.UUID, description string) (*LedgerEntry, error) {
	if merchantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MERCHANT", "Merchant ID cannot be empty")
	}
	if signedAmount.IsZero() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Ledger amount cannot be zero")
	}

	return &LedgerEntry{
		BaseEntity:   shared.NewBaseEntity(),
		MerchantID:   merchantID,
		Type:         entryType,
		Amount:       signedAmount,
		BalanceAfter: balanceAfter.Amount(),
		OrderID:      orderID,
		PayoutID:     payoutID,
		Description:  description,
	}, nil
}

// IsCredit returns true if the entry increases the merchant's balance
func (e *LedgerEntry) IsCredit() bool {
	return e.Amount.IsPositive()
}

// GetAmountMoney returns the signed entry amount as Money
func (e *LedgerEntry) GetAmountMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(e.Amount)
}

// GetBalanceAfterMoney returns the post-entry balance snapshot as Money
func (e *LedgerEntry) GetBalanceAfterMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(e.BalanceAfter)
}

// MerchantBalance is the computed view of a merchant's funds: what they
// can withdraw now and what is tied up in in-flight payouts.
type MerchantBalance struct {
	MerchantID    uuid.UUID       `json:"merchant_id"`
	Available     decimal.Decimal `json:"available"`
	PendingPayout decimal.Decimal `json:"pending_payout"`
}

// GetAvailableMoney returns the withdrawable balance as Money
func (b MerchantBalance) GetAvailableMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(b.Available)
}

// GetPendingPayoutMoney returns the in-flight payout total as Money
func (b MerchantBalance) GetPendingPayoutMoney() valueobject.Money {
	return valueobject.NewMoneyUSD(b.PendingPayout)
}
