package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/taic/backend/internal/domain/shared"
)

// OutboxAdminHandler exposes the transactional outbox to operators:
// backlog counts, the dead-letter queue, and requeueing of dead entries
// after the underlying fault is fixed.
type OutboxAdminHandler struct {
	BaseHandler
	outboxRepo shared.OutboxRepository
}

// NewOutboxAdminHandler creates a new OutboxAdminHandler
func NewOutboxAdminHandler(outboxRepo shared.OutboxRepository) *OutboxAdminHandler {
	return &OutboxAdminHandler{
		outboxRepo: outboxRepo,
	}
}

// OutboxEntryResponse represents an outbox entry in admin responses
// @name HandlerOutboxEntryResponse
type OutboxEntryResponse struct {
	ID            string     `json:"id" example:"9b2a4b1e-0f6e-4f44-9d6e-0a0a8f3d2c11"`
	EventID       string     `json:"event_id" example:"5f3c2d1a-7b8e-4c9d-a1b2-c3d4e5f6a7b8"`
	EventType     string     `json:"event_type" example:"OrderCreated"`
	AggregateID   string     `json:"aggregate_id" example:"1a2b3c4d-5e6f-4a8b-9c0d-1e2f3a4b5c6d"`
	AggregateType string     `json:"aggregate_type" example:"Order"`
	Status        string     `json:"status" example:"DEAD"`
	RetryCount    int        `json:"retry_count" example:"5"`
	LastError     string     `json:"last_error,omitempty" example:"handler panic: nil pointer"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}

func toOutboxEntryResponse(e *shared.OutboxEntry) OutboxEntryResponse {
	return OutboxEntryResponse{
		ID:            e.ID.String(),
		EventID:       e.EventID.String(),
		EventType:     e.EventType,
		AggregateID:   e.AggregateID.String(),
		AggregateType: e.AggregateType,
		Status:        string(e.Status),
		RetryCount:    e.RetryCount,
		LastError:     e.LastError,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
		ProcessedAt:   e.ProcessedAt,
	}
}

type outboxDeadQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// Stats godoc
// @Summary      Outbox backlog by status
// @Description  Returns the number of outbox entries per delivery status
// @Tags         admin-outbox
// @Produce      json
// @Success      200 {object} dto.Response{data=map[string]int64}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/outbox/stats [get]
func (h *OutboxAdminHandler) Stats(c *gin.Context) {
	counts, err := h.outboxRepo.CountByStatus(c.Request.Context())
	if err != nil {
		h.InternalError(c, "Failed to count outbox entries")
		return
	}

	stats := make(map[string]int64, len(counts))
	for status, count := range counts {
		stats[string(status)] = count
	}
	h.Success(c, stats)
}

// ListDead godoc
// @Summary      List dead-letter entries
// @Description  Returns outbox entries that exhausted their retries
// @Tags         admin-outbox
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Success      200 {object} dto.Response{data=[]OutboxEntryResponse,meta=dto.Meta}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/outbox/dead [get]
func (h *OutboxAdminHandler) ListDead(c *gin.Context) {
	var query outboxDeadQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}
	if query.Page < 1 {
		query.Page = 1
	}
	if query.PageSize < 1 || query.PageSize > 100 {
		query.PageSize = 20
	}

	entries, total, err := h.outboxRepo.FindDead(c.Request.Context(), query.Page, query.PageSize)
	if err != nil {
		h.InternalError(c, "Failed to list dead-letter entries")
		return
	}

	items := make([]OutboxEntryResponse, len(entries))
	for i, e := range entries {
		items[i] = toOutboxEntryResponse(e)
	}
	h.SuccessWithMeta(c, items, total, query.Page, query.PageSize)
}

// RequeueDead godoc
// @Summary      Requeue a dead-letter entry
// @Description  Resets a dead entry to pending so the outbox processor retries it
// @Tags         admin-outbox
// @Produce      json
// @Param        id path string true "Outbox entry ID" format(uuid)
// @Success      200 {object} dto.Response{data=OutboxEntryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /admin/outbox/dead/{id}/requeue [post]
func (h *OutboxAdminHandler) RequeueDead(c *gin.Context) {
	entryID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid outbox entry ID format")
		return
	}

	ctx := c.Request.Context()
	entry, err := h.outboxRepo.FindByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.NotFound(c, "Outbox entry not found")
			return
		}
		h.InternalError(c, "Failed to load outbox entry")
		return
	}

	if err := entry.ResetForRetry(); err != nil {
		h.UnprocessableEntity(c, "OUTBOX_ENTRY_NOT_DEAD", err.Error())
		return
	}

	if err := h.outboxRepo.Update(ctx, entry); err != nil {
		h.InternalError(c, "Failed to requeue outbox entry")
		return
	}

	h.Success(c, toOutboxEntryResponse(entry))
}
