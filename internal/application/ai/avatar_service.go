package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taic/backend/internal/domain/ai"
	"github.com/taic/backend/internal/domain/shared"
	gemini "github.com/taic/backend/internal/infrastructure/ai"
)

// AvatarConfig carries the sales avatar persona and context window
type AvatarConfig struct {
	// PersonaName is the avatar's display name, used in session titles
	PersonaName string
	// SystemPrompt sets the avatar's persona and tone
	SystemPrompt    string
	HistoryMessages int
	HistoryChars    int
}

// DefaultAvatarConfig returns the avatar defaults
func DefaultAvatarConfig() AvatarConfig {
	return AvatarConfig{
		PersonaName: "Tai",
		SystemPrompt: `You are Tai, a friendly sales assistant for an online marketplace.
You help shoppers figure out what they are looking for and keep the tone warm and concise.
You never make up order details or promise delivery dates.`,
		HistoryMessages: 12,
		HistoryChars:    6000,
	}
}

// AvatarChatService runs persona chat sessions with shoppers
type AvatarChatService struct {
	conversationRepo ai.ConversationRepository
	gateway          GeminiGateway
	config           AvatarConfig
	logger           *zap.Logger
}

// NewAvatarChatService creates a new AvatarChatService
func NewAvatarChatService(
	conversationRepo ai.ConversationRepository,
	gateway GeminiGateway,
	config AvatarConfig,
	logger *zap.Logger,
) *AvatarChatService {
	return &AvatarChatService{
		conversationRepo: conversationRepo,
		gateway:          gateway,
		config:           config,
		logger:           logger,
	}
}

// StartSession opens a new avatar session and greets the shopper under
// the persona. Nothing is persisted when the provider fails.
func (s *AvatarChatService) StartSession(ctx context.Context, userID uuid.UUID) (*SessionResponse, error) {
	conversation, err := ai.NewConversation(userID, ai.KindSalesAvatar, fmt.Sprintf("Chat with %s", s.config.PersonaName))
	if err != nil {
		return nil, err
	}

	greeting, err := s.gateway.GenerateText(ctx, gemini.TextRequest{
		SystemInstruction: s.config.SystemPrompt,
		Prompt:            "Greet the shopper who just opened a chat with you, in one or two sentences.",
	})
	if err != nil {
		s.logger.Warn("Avatar greeting failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, mapProviderError(err)
	}

	message, err := conversation.AppendAssistantMessage(greeting, nil)
	if err != nil {
		return nil, err
	}
	if err := s.conversationRepo.Save(ctx, conversation); err != nil {
		return nil, err
	}

	response := toSessionResponse(conversation)
	greetingResponse := toMessageResponse(message)
	response.Greeting = &greetingResponse
	return &response, nil
}

// SendMessage adds the shopper's turn, asks the model for a reply with
// the recent window as context, and persists both turns together only
// after the provider succeeded.
func (s *AvatarChatService) SendMessage(ctx context.Context, userID, sessionID uuid.UUID, req SendMessageRequest) (*MessageResponse, error) {
	conversation, err := s.loadSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	history := historyTurns(conversation.RecentWindow(s.config.HistoryMessages, s.config.HistoryChars))

	reply, err := s.gateway.GenerateText(ctx, gemini.TextRequest{
		SystemInstruction: s.config.SystemPrompt,
		History:           history,
		Prompt:            req.Content,
	})
	if err != nil {
		s.logger.Warn("Avatar reply failed",
			zap.String("user_id", userID.String()),
			zap.String("conversation_id", conversation.ID.String()),
			zap.Error(err))
		return nil, mapProviderError(err)
	}

	if _, err := conversation.AppendUserMessage(req.Content); err != nil {
		return nil, err
	}
	message, err := conversation.AppendAssistantMessage(reply, nil)
	if err != nil {
		return nil, err
	}
	if err := s.conversationRepo.Save(ctx, conversation); err != nil {
		return nil, err
	}

	response := toMessageResponse(message)
	return &response, nil
}

// GetSession returns one avatar session with its messages
func (s *AvatarChatService) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*SessionResponse, []MessageResponse, error) {
	conversation, err := s.loadSession(ctx, userID, sessionID)
	if err != nil {
		return nil, nil, err
	}

	session := toSessionResponse(conversation)
	messages := make([]MessageResponse, 0, len(conversation.Messages))
	for i := range conversation.Messages {
		messages = append(messages, toMessageResponse(&conversation.Messages[i]))
	}
	return &session, messages, nil
}

// ListSessions lists the shopper's avatar sessions, newest activity first
func (s *AvatarChatService) ListSessions(ctx context.Context, userID uuid.UUID, req SessionListFilter) (*shared.Paginated[SessionResponse], error) {
	filter := shared.DefaultFilter()
	if req.Page > 0 {
		filter.Page = req.Page
	}
	if req.PageSize > 0 {
		filter.PageSize = req.PageSize
	}
	filter.Filters["kind"] = ai.KindSalesAvatar.String()

	conversations, err := s.conversationRepo.FindByUser(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.conversationRepo.CountByUser(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	sessions := make([]SessionResponse, 0, len(conversations))
	for i := range conversations {
		sessions = append(sessions, toSessionResponse(&conversations[i]))
	}

	result := shared.NewPaginated(sessions, total, filter.Page, filter.PageSize)
	return &result, nil
}

func (s *AvatarChatService) loadSession(ctx context.Context, userID, sessionID uuid.UUID) (*ai.Conversation, error) {
	conversation, err := s.conversationRepo.FindByIDForUser(ctx, userID, sessionID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("SESSION_NOT_FOUND", "Chat session not found")
		}
		return nil, err
	}
	if conversation.Kind != ai.KindSalesAvatar {
		return nil, shared.NewDomainError("SESSION_NOT_FOUND", "Chat session not found")
	}
	return conversation, nil
}
