package treasury

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransferStatus is the treasury-side lifecycle of a transfer
type TransferStatus string

const (
	TransferStatusQueued    TransferStatus = "queued"
	TransferStatusSubmitted TransferStatus = "submitted" // Broadcast to the chain
	TransferStatusConfirmed TransferStatus = "confirmed"
	TransferStatusRejected  TransferStatus = "rejected"
)

// Accepted returns true when the treasury has taken responsibility for
// the transfer. Confirmation happens asynchronously on-chain; the payout
// is considered sent once the treasury accepts it.
func (s TransferStatus) Accepted() bool {
	return s == TransferStatusQueued || s == TransferStatusSubmitted || s == TransferStatusConfirmed
}

// TransferInput is the request to execute one crypto transfer
type TransferInput struct {
	// IdempotencyKey deduplicates retries; the treasury returns the
	// original transfer when it sees a key again
	IdempotencyKey string
	PayoutID       uuid.UUID
	MerchantID     uuid.UUID
	// Amount is the fiat-denominated amount; the treasury converts to
	// the destination crypto at execution time
	Amount         decimal.Decimal
	FiatCurrency   string
	CryptoCurrency string
	WalletAddress  string
}

// TransferOutput is the treasury's view of a transfer
type TransferOutput struct {
	TransferID  string
	Status      TransferStatus
	TxHash      string
	SubmittedAt *time.Time
}

// transferRequest is the wire shape of POST /api/v1/transfers
type transferRequest struct {
	Reference      string `json:"reference"`
	MerchantRef    string `json:"merchant_ref"`
	Amount         string `json:"amount"`
	FiatCurrency   string `json:"fiat_currency"`
	CryptoCurrency string `json:"crypto_currency"`
	WalletAddress  string `json:"wallet_address"`
}

// transferResponse is the wire shape of a transfer resource
type transferResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	TxHash      string `json:"tx_hash,omitempty"`
	SubmittedAt string `json:"submitted_at,omitempty"`
}

// errorResponse is the treasury's error envelope
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// mapTransferStatus maps a treasury status string to TransferStatus.
// Unknown statuses map to queued so the processor keeps polling rather
// than failing a transfer the treasury may still complete.
func mapTransferStatus(status string) TransferStatus {
	switch status {
	case "queued", "pending":
		return TransferStatusQueued
	case "submitted", "broadcasting":
		return TransferStatusSubmitted
	case "confirmed", "settled":
		return TransferStatusConfirmed
	case "rejected", "failed":
		return TransferStatusRejected
	default:
		return TransferStatusQueued
	}
}
