package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/taic/backend/internal/domain/payment"
)

// RefundOrderRequest is the payload for refunding an order in full
type RefundOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// PaymentResponse represents a payment in API responses.
// ClientSecret is only populated for the buyer while the payment is
// still collectable; it never comes from the database.
type PaymentResponse struct {
	ID            uuid.UUID       `json:"id"`
	OrderID       uuid.UUID       `json:"order_id"`
	Provider      string          `json:"provider"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	FailureReason string          `json:"failure_reason,omitempty"`
	RefundID      string          `json:"refund_id,omitempty"`
	ClientSecret  string          `json:"client_secret,omitempty"`
	SucceededAt   *time.Time      `json:"succeeded_at,omitempty"`
	RefundedAt    *time.Time      `json:"refunded_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ToPaymentResponse converts a domain payment to a response DTO
func ToPaymentResponse(p *payment.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Provider:      p.Provider,
		Amount:        p.Amount,
		Status:        p.Status.String(),
		FailureReason: p.FailureReason,
		RefundID:      p.RefundID,
		ClientSecret:  p.ClientSecret,
		SucceededAt:   p.SucceededAt,
		RefundedAt:    p.RefundedAt,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}
