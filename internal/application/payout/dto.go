package payout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/taic/backend/internal/domain/payout"
)

// RequestPayoutRequest represents a merchant withdrawal request
type RequestPayoutRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// PayoutResponse represents a payout in API responses
type PayoutResponse struct {
	ID                 uuid.UUID       `json:"id"`
	MerchantID         uuid.UUID       `json:"merchant_id"`
	Amount             decimal.Decimal `json:"amount"`
	CryptoCurrency     string          `json:"crypto_currency"`
	WalletAddress      string          `json:"wallet_address"`
	Status             string          `json:"status"`
	Attempts           int             `json:"attempts"`
	TreasuryTransferID string          `json:"treasury_transfer_id,omitempty"`
	TxHash             string          `json:"tx_hash,omitempty"`
	FailureReason      string          `json:"failure_reason,omitempty"`
	SentAt             *time.Time      `json:"sent_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// LedgerEntryResponse represents a ledger entry in API responses
type LedgerEntryResponse struct {
	ID           uuid.UUID       `json:"id"`
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	OrderID      *uuid.UUID      `json:"order_id,omitempty"`
	PayoutID     *uuid.UUID      `json:"payout_id,omitempty"`
	Description  string          `json:"description,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// BalanceResponse represents a merchant's balance view
type BalanceResponse struct {
	MerchantID    uuid.UUID       `json:"merchant_id"`
	Available     decimal.Decimal `json:"available"`
	PendingPayout decimal.Decimal `json:"pending_payout"`
	Currency      string          `json:"currency"`
}

// PayoutListFilter represents filter options for payout listings
type PayoutListFilter struct {
	Status   string `form:"status" binding:"omitempty,oneof=pending processing sent failed"`
	Page     int    `form:"page" binding:"min=0"`
	PageSize int    `form:"page_size" binding:"min=0,max=100"`
}

// LedgerListFilter represents filter options for ledger listings
type LedgerListFilter struct {
	Type     string `form:"type" binding:"omitempty,oneof=sale_credit payout_debit refund_debit adjustment"`
	Page     int    `form:"page" binding:"min=0"`
	PageSize int    `form:"page_size" binding:"min=0,max=100"`
}

// toPayoutResponse converts a payout aggregate to its response DTO
func toPayoutResponse(p *payout.Payout) *PayoutResponse {
	return &PayoutResponse{
		ID:                 p.ID,
		MerchantID:         p.MerchantID,
		Amount:             p.Amount,
		CryptoCurrency:     p.CryptoCurrency,
		WalletAddress:      p.WalletAddress,
		Status:             p.Status.String(),
		Attempts:           p.Attempts,
		TreasuryTransferID: p.TreasuryTransferID,
		TxHash:             p.TxHash,
		FailureReason:      p.FailureReason,
		SentAt:             p.SentAt,
		CreatedAt:          p.CreatedAt,
	}
}

// toLedgerEntryResponse converts a ledger entry to its response DTO
func toLedgerEntryResponse(e *payout.LedgerEntry) *LedgerEntryResponse {
	return &LedgerEntryResponse{
		ID:           e.ID,
		Type:         string(e.Type),
		Amount:       e.Amount,
		BalanceAfter: e.BalanceAfter,
		OrderID:      e.OrderID,
		PayoutID:     e.PayoutID,
		Description:  e.Description,
		CreatedAt:    e.CreatedAt,
	}
}
