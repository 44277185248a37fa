package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	paymentapp "github.com/taic/backend/internal/application/payment"
)

// Stripe keeps webhook events small; 64KB leaves generous headroom while
// bounding what an unauthenticated caller can make us buffer.
const maxWebhookPayloadSize = 64 << 10

// StripeWebhookHandler receives payment events pushed by Stripe. The
// endpoint is unauthenticated; the Stripe-Signature header is the
// authentication.
type StripeWebhookHandler struct {
	BaseHandler
	webhookService *paymentapp.StripeWebhookService
}

func NewStripeWebhookHandler(webhookService *paymentapp.StripeWebhookService) *StripeWebhookHandler {
	return &StripeWebhookHandler{webhookService: webhookService}
}

// StripeWebhookResponse is the acknowledgment body returned to Stripe.
//
//	@Description	Stripe webhook acknowledgment
type StripeWebhookResponse struct {
	Received  bool   `json:"received" example:"true"`
	EventID   string `json:"event_id,omitempty" example:"evt_1234567890"`
	EventType string `json:"event_type,omitempty" example:"payment_intent.succeeded"`
	Message   string `json:"message,omitempty" example:"Webhook processed successfully"`
}

func webhookReject(c *gin.Context, status int, message string) {
	c.JSON(status, StripeWebhookResponse{Received: false, Message: message})
}

// HandleStripeWebhook godoc
//
//	@ID				handleStripeWebhook
//	@Summary		Handle Stripe webhook
//	@Description	Receive and process payment events from Stripe
//	@Tags			webhooks
//	@Accept			json
//	@Produce		json
//	@Param			Stripe-Signature	header		string					true	"Stripe webhook signature"
//	@Success		200					{object}	StripeWebhookResponse	"Webhook processed successfully"
//	@Failure		400					{object}	StripeWebhookResponse	"Invalid request"
//	@Failure		401					{object}	StripeWebhookResponse	"Invalid signature"
//	@Failure		413					{object}	StripeWebhookResponse	"Payload too large"
//	@Failure		500					{object}	StripeWebhookResponse	"Processing failed"
//	@Router			/webhooks/stripe [post]
func (h *StripeWebhookHandler) HandleStripeWebhook(c *gin.Context) {
	// Signature verification needs the raw bytes, so the payload is read
	// before any JSON binding could touch it.
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	switch {
	case err != nil:
		webhookReject(c, http.StatusBadRequest, "Failed to read request body")
		return
	case len(payload) > maxWebhookPayloadSize:
		webhookReject(c, http.StatusRequestEntityTooLarge, "Payload too large")
		return
	}

	signature := c.GetHeader("Stripe-Signature")
	if signature == "" {
		webhookReject(c, http.StatusUnauthorized, "Missing Stripe-Signature header")
		return
	}

	result, err := h.webhookService.ProcessWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		// A nil result means the event never passed signature verification
		// or could not be claimed.
		if result == nil {
			webhookReject(c, http.StatusUnauthorized, "Webhook signature verification failed")
			return
		}

		// Processing failed after the event was verified. Return 500 so
		// Stripe retries the delivery; the dedup record keeps replays of
		// successfully handled events from reprocessing. Internal error
		// details stay out of the response.
		c.JSON(http.StatusInternalServerError, StripeWebhookResponse{
			Received:  true,
			EventID:   result.EventID,
			EventType: result.EventType,
			Message:   "Webhook received but processing failed",
		})
		return
	}

	c.JSON(http.StatusOK, StripeWebhookResponse{
		Received:  true,
		EventID:   result.EventID,
		EventType: result.EventType,
		Message:   result.Message,
	})
}
