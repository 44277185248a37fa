package handler

import (
	"github.com/gin-gonic/gin"

	aiapp "github.com/taic/backend/internal/application/ai"
)

// AIHandler handles the AI surfaces: merchant product brainstorming, the
// shopping assistant, and avatar chat sessions
type AIHandler struct {
	BaseHandler
	ideaService      *aiapp.ProductIdeaService
	assistantService *aiapp.ShoppingAssistantService
	avatarService    *aiapp.AvatarChatService
}

// NewAIHandler creates a new AIHandler
func NewAIHandler(
	ideaService *aiapp.ProductIdeaService,
	assistantService *aiapp.ShoppingAssistantService,
	avatarService *aiapp.AvatarChatService,
) *AIHandler {
	return &AIHandler{
		ideaService:      ideaService,
		assistantService: assistantService,
		avatarService:    avatarService,
	}
}

// SessionDetailResponse is an avatar session with its message history
type SessionDetailResponse struct {
	Session  *aiapp.SessionResponse  `json:"session"`
	Messages []aiapp.MessageResponse `json:"messages"`
}

// GenerateIdeas godoc
// @Summary      Generate listing ideas
// @Description  Brainstorm product listing ideas for the merchant's niche
// @Tags         ai
// @Accept       json
// @Produce      json
// @Param        request body ai.GenerateIdeasRequest true "Brainstorming prompt"
// @Success      200 {object} dto.Response{data=ai.GenerateIdeasResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /merchant/ai/product-ideas [post]
func (h *AIHandler) GenerateIdeas(c *gin.Context) {
	merchantID, err := getMerchantID(c)
	if err != nil {
		h.Forbidden(c, "Merchant account required")
		return
	}

	var req aiapp.GenerateIdeasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	ideas, err := h.ideaService.GenerateIdeas(c.Request.Context(), merchantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ideas)
}

// AcceptIdea godoc
// @Summary      Accept a listing idea
// @Description  Create a draft listing from an accepted AI-generated idea
// @Tags         ai
// @Accept       json
// @Produce      json
// @Param        request body ai.CreateDraftRequest true "Accepted idea"
// @Success      201 {object} dto.Response{data=ai.DraftProductResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /merchant/ai/product-ideas/accept [post]
func (h *AIHandler) AcceptIdea(c *gin.Context) {
	merchantID, err := getMerchantID(c)
	if err != nil {
		h.Forbidden(c, "Merchant account required")
		return
	}

	var req aiapp.CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	draft, err := h.ideaService.CreateDraftFromIdea(c.Request.Context(), merchantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, draft)
}

// Ask godoc
// @Summary      Ask the shopping assistant
// @Description  Ask a natural-language question about the catalog; continues an existing conversation when conversation_id is set
// @Tags         ai
// @Accept       json
// @Produce      json
// @Param        request body ai.AskRequest true "Shopper question"
// @Success      200 {object} dto.Response{data=ai.AskResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /assistant/ask [post]
func (h *AIHandler) Ask(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req aiapp.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	answer, err := h.assistantService.Ask(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, answer)
}

// StartSession godoc
// @Summary      Start an avatar session
// @Description  Open a new avatar chat session; the response includes the avatar's greeting
// @Tags         ai
// @Produce      json
// @Success      201 {object} dto.Response{data=ai.SessionResponse}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /avatar/sessions [post]
func (h *AIHandler) StartSession(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	session, err := h.avatarService.StartSession(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, session)
}

// SendMessage godoc
// @Summary      Send an avatar message
// @Description  Send a message in an avatar session and receive the avatar's reply
// @Tags         ai
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Param        request body ai.SendMessageRequest true "Message content"
// @Success      200 {object} dto.Response{data=ai.MessageResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      502 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /avatar/sessions/{id}/messages [post]
func (h *AIHandler) SendMessage(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	sessionID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid session ID format")
		return
	}

	var req aiapp.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	reply, err := h.avatarService.SendMessage(c.Request.Context(), userID, sessionID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, reply)
}

// GetSession godoc
// @Summary      Get an avatar session
// @Description  Retrieve an avatar session with its full message history
// @Tags         ai
// @Produce      json
// @Param        id path string true "Session ID" format(uuid)
// @Success      200 {object} dto.Response{data=SessionDetailResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /avatar/sessions/{id} [get]
func (h *AIHandler) GetSession(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	sessionID, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid session ID format")
		return
	}

	session, messages, err := h.avatarService.GetSession(c.Request.Context(), userID, sessionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, SessionDetailResponse{
		Session:  session,
		Messages: messages,
	})
}

// ListSessions godoc
// @Summary      List avatar sessions
// @Description  Retrieve a paginated list of the user's avatar sessions
// @Tags         ai
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20)
// @Success      200 {object} dto.Response{data=[]ai.SessionResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /avatar/sessions [get]
func (h *AIHandler) ListSessions(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var filter aiapp.SessionListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}
	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.PageSize == 0 {
		filter.PageSize = 20
	}

	result, err := h.avatarService.ListSessions(c.Request.Context(), userID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, filter.Page, filter.PageSize)
}
