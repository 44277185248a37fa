package ai

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/taic/backend/internal/domain/ai"
	"github.com/taic/backend/internal/domain/catalog"
)

// GenerateIdeasRequest is a merchant's brainstorming prompt
type GenerateIdeasRequest struct {
	Niche    string `json:"niche" binding:"required,max=200"`
	Audience string `json:"audience" binding:"max=200"`
	Count    int    `json:"count" binding:"omitempty,min=1,max=10"`
}

// ProductIdea is one AI-generated listing suggestion
type ProductIdea struct {
	Name                string   `json:"name"`
	Description         string   `json:"description"`
	SuggestedPriceRange string   `json:"suggested_price_range"`
	Tags                []string `json:"tags"`
}

// GenerateIdeasResponse carries the generated suggestions
type GenerateIdeasResponse struct {
	Ideas []ProductIdea `json:"ideas"`
}

// CreateDraftRequest turns an accepted idea into a draft listing
type CreateDraftRequest struct {
	Name        string           `json:"name" binding:"required,max=200"`
	Description string           `json:"description" binding:"max=5000"`
	SKU         string           `json:"sku" binding:"required,max=64"`
	Price       *decimal.Decimal `json:"price"`
}

// DraftProductResponse describes the listing created from an idea
type DraftProductResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	SKU         string    `json:"sku"`
	Status      string    `json:"status"`
	AIGenerated bool      `json:"ai_generated"`
	CreatedAt   time.Time `json:"created_at"`
}

// AskRequest is a shopper's question to the shopping assistant
type AskRequest struct {
	ConversationID *uuid.UUID `json:"conversation_id"`
	Query          string     `json:"query" binding:"required,max=2000"`
}

// ProductRefResponse is a catalog listing the assistant recommended
type ProductRefResponse struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Slug     string          `json:"slug"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}

// AskResponse carries the assistant's answer and the listings it drew on
type AskResponse struct {
	ConversationID uuid.UUID            `json:"conversation_id"`
	Answer         string               `json:"answer"`
	Products       []ProductRefResponse `json:"products"`
}

// SendMessageRequest is a shopper's turn in an avatar session
type SendMessageRequest struct {
	Content string `json:"content" binding:"required,max=4000"`
}

// MessageResponse is one turn in a conversation
type MessageResponse struct {
	ID          uuid.UUID   `json:"id"`
	Role        string      `json:"role"`
	Content     string      `json:"content"`
	ProductRefs []uuid.UUID `json:"product_refs,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// SessionResponse describes an avatar chat session
type SessionResponse struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	CreatedAt     time.Time  `json:"created_at"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	// Greeting is only set when the session was just started
	Greeting *MessageResponse `json:"greeting,omitempty"`
}

// SessionListFilter carries pagination for listing avatar sessions
type SessionListFilter struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

func toMessageResponse(m *ai.Message) MessageResponse {
	return MessageResponse{
		ID:          m.ID,
		Role:        string(m.Role),
		Content:     m.Content,
		ProductRefs: m.ProductRefs,
		CreatedAt:   m.CreatedAt,
	}
}

func toSessionResponse(c *ai.Conversation) SessionResponse {
	return SessionResponse{
		ID:            c.ID,
		Title:         c.Title,
		CreatedAt:     c.CreatedAt,
		LastMessageAt: c.LastMessageAt,
	}
}

func toProductRefResponse(p *catalog.Product) ProductRefResponse {
	price := p.GetPriceMoney()
	return ProductRefResponse{
		ID:       p.ID,
		Name:     p.Name,
		Slug:     p.Slug,
		Price:    price.Amount(),
		Currency: string(price.Currency()),
	}
}
