package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taic/backend/internal/domain/ai"
	"github.com/taic/backend/internal/domain/catalog"
	"github.com/taic/backend/internal/domain/shared"
	gemini "github.com/taic/backend/internal/infrastructure/ai"
)

const assistantSystemInstruction = `You are a shopping assistant for an online marketplace.
Answer the shopper's question using only the catalog listings provided in the prompt.
When you recommend a listing, mention it by its exact name.
If no listing fits, say so honestly and do not invent products.
Keep answers short and conversational.`

// AssistantConfig carries the shopping assistant knobs
type AssistantConfig struct {
	// SearchLimit caps how many catalog listings ground one answer
	SearchLimit int
	// HistoryMessages and HistoryChars bound the prompt context window
	HistoryMessages int
	HistoryChars    int
}

// DefaultAssistantConfig returns the assistant defaults
func DefaultAssistantConfig() AssistantConfig {
	return AssistantConfig{
		SearchLimit:     5,
		HistoryMessages: 10,
		HistoryChars:    4000,
	}
}

// ShoppingAssistantService answers shopper questions grounded in the
// active catalog and keeps the conversation thread
type ShoppingAssistantService struct {
	conversationRepo ai.ConversationRepository
	productRepo      catalog.ProductRepository
	gateway          GeminiGateway
	config           AssistantConfig
	logger           *zap.Logger
}

// NewShoppingAssistantService creates a new ShoppingAssistantService
func NewShoppingAssistantService(
	conversationRepo ai.ConversationRepository,
	productRepo catalog.ProductRepository,
	gateway GeminiGateway,
	config AssistantConfig,
	logger *zap.Logger,
) *ShoppingAssistantService {
	return &ShoppingAssistantService{
		conversationRepo: conversationRepo,
		productRepo:      productRepo,
		gateway:          gateway,
		config:           config,
		logger:           logger,
	}
}

// Ask answers a shopper's question. The active catalog is searched for
// matching listings, the hits ground the prompt, and the exchange is
// persisted only after the provider succeeded, so a failed call never
// corrupts the thread.
func (s *ShoppingAssistantService) Ask(ctx context.Context, userID uuid.UUID, req AskRequest) (*AskResponse, error) {
	conversation, err := s.loadOrStartConversation(ctx, userID, req.ConversationID)
	if err != nil {
		return nil, err
	}

	products, err := s.productRepo.SearchActive(ctx, req.Query, s.config.SearchLimit)
	if err != nil {
		return nil, err
	}

	history := historyTurns(conversation.RecentWindow(s.config.HistoryMessages, s.config.HistoryChars))

	answer, err := s.gateway.GenerateText(ctx, gemini.TextRequest{
		SystemInstruction: assistantSystemInstruction,
		History:           history,
		Prompt:            buildAssistantPrompt(req.Query, products),
	})
	if err != nil {
		s.logger.Warn("Assistant answer failed",
			zap.String("user_id", userID.String()),
			zap.String("conversation_id", conversation.ID.String()),
			zap.Error(err))
		return nil, mapProviderError(err)
	}

	recommended := recommendedProducts(answer, products)
	refs := make([]uuid.UUID, 0, len(recommended))
	for i := range recommended {
		refs = append(refs, recommended[i].ID)
	}

	if _, err := conversation.AppendUserMessage(req.Query); err != nil {
		return nil, err
	}
	if _, err := conversation.AppendAssistantMessage(answer, refs); err != nil {
		return nil, err
	}
	if err := s.conversationRepo.Save(ctx, conversation); err != nil {
		return nil, err
	}

	response := &AskResponse{
		ConversationID: conversation.ID,
		Answer:         answer,
		Products:       make([]ProductRefResponse, 0, len(recommended)),
	}
	for i := range recommended {
		response.Products = append(response.Products, toProductRefResponse(&recommended[i]))
	}
	return response, nil
}

func (s *ShoppingAssistantService) loadOrStartConversation(ctx context.Context, userID uuid.UUID, conversationID *uuid.UUID) (*ai.Conversation, error) {
	if conversationID == nil {
		return ai.NewConversation(userID, ai.KindShoppingAssistant, "")
	}

	conversation, err := s.conversationRepo.FindByIDForUser(ctx, userID, *conversationID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("CONVERSATION_NOT_FOUND", "Conversation not found")
		}
		return nil, err
	}
	if conversation.Kind != ai.KindShoppingAssistant {
		return nil, shared.NewDomainError("CONVERSATION_NOT_FOUND", "Conversation not found")
	}
	return conversation, nil
}

// buildAssistantPrompt combines the grounding block and the question.
// An empty catalog hit list is stated explicitly so the model declines
// instead of inventing listings.
func buildAssistantPrompt(query string, products []catalog.Product) string {
	var sb strings.Builder
	if len(products) == 0 {
		sb.WriteString("No catalog listings matched this question.\n")
	} else {
		sb.WriteString("Catalog listings matching this question:\n")
		for i := range products {
			p := &products[i]
			price := p.GetPriceMoney()
			fmt.Fprintf(&sb, "- %s (%s %s): %s\n",
				p.Name, price.StringFixed(2), price.Currency(), summarize(p.Description, 200))
		}
	}
	sb.WriteString("\nQuestion: ")
	sb.WriteString(query)
	return sb.String()
}

// recommendedProducts keeps the listings the answer actually mentioned
// by name, preserving search order
func recommendedProducts(answer string, products []catalog.Product) []catalog.Product {
	lower := strings.ToLower(answer)
	matched := make([]catalog.Product, 0, len(products))
	for i := range products {
		if strings.Contains(lower, strings.ToLower(products[i].Name)) {
			matched = append(matched, products[i])
		}
	}
	return matched
}

func summarize(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= limit {
		return text
	}
	return text[:limit] + "…"
}
