package ai

import (
	"context"

	"github.com/google/uuid"
	"github.com/taic/backend/internal/domain/shared"
)

// ConversationRepository defines the persistence interface for conversations
type ConversationRepository interface {
	// FindByID retrieves a conversation with its messages in order
	FindByID(ctx context.Context, id uuid.UUID) (*Conversation, error)

	// FindByIDForUser retrieves a conversation by ID within a user.
	// A miss across the user boundary returns ErrNotFound.
	FindByIDForUser(ctx context.Context, userID, id uuid.UUID) (*Conversation, error)

	// FindByUser lists a user's conversations without their messages,
	// newest activity first. Filter by kind via Filters["kind"].
	FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]Conversation, error)

	// Save persists a conversation and any new messages
	Save(ctx context.Context, c *Conversation) error

	// Delete removes a conversation and its messages
	Delete(ctx context.Context, id uuid.UUID) error

	// CountByUser counts a user's conversations
	CountByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) (int64, error)
}
