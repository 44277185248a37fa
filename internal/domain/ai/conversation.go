package ai

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/taic/backend/internal/domain/shared"
)

// ConversationKind distinguishes the AI surfaces a conversation belongs to
type ConversationKind string

const (
	KindShoppingAssistant ConversationKind = "shopping_assistant"
	KindSalesAvatar       ConversationKind = "sales_avatar"
)

// IsValid checks if the kind is a valid ConversationKind
func (k ConversationKind) IsValid() bool {
	return k == KindShoppingAssistant || k == KindSalesAvatar
}

// String returns the string representation of ConversationKind
func (k ConversationKind) String() string {
	return string(k)
}

const (
	// MaxMessageLength bounds a single message's content
	MaxMessageLength = 8000
	// MaxTitleLength bounds the conversation title
	MaxTitleLength = 200
	// DefaultTitle is used until the first user message names the conversation
	DefaultTitle = "New conversation"
)

// Conversation is the aggregate root for one user's chat thread with an
// AI surface. Messages only ever get appended; prompt context is built
// from a recent window rather than the full history.
type Conversation struct {
	shared.BaseAggregateRoot
	UserID        uuid.UUID        `gorm:"type:uuid;not null;index"`
	Kind          ConversationKind `gorm:"type:varchar(30);not null;index"`
	Title         string           `gorm:"type:varchar(200);not null"`
	Messages      []Message        `gorm:"foreignKey:ConversationID;references:ID"`
	LastMessageAt *time.Time       `gorm:"index"`
}

// TableName returns the table name for GORM
func (Conversation) TableName() string {
	return "conversations"
}

// NewConversation starts an empty conversation for a user
func NewConversation(userID uuid.UUID, kind ConversationKind, title string) (*Conversation, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_KIND", "Unknown conversation kind")
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	// Truncate on a rune boundary; the title column counts characters.
	if utf8.RuneCountInString(title) > MaxTitleLength {
		title = string([]rune(title)[:MaxTitleLength])
	}

	return &Conversation{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		Kind:              kind,
		Title:             title,
		Messages:          make([]Message, 0),
	}, nil
}

// AppendUserMessage adds the user's turn to the thread
func (c *Conversation) AppendUserMessage(content string) (*Message, error) {
	return c.append(MessageRoleUser, content, nil)
}

// AppendAssistantMessage adds the model's reply, optionally carrying the
// products it recommended
func (c *Conversation) AppendAssistantMessage(content string, productRefs []uuid.UUID) (*Message, error) {
	return c.append(MessageRoleAssistant, content, productRefs)
}

func (c *Conversation) append(role MessageRole, content string, productRefs []uuid.UUID) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, shared.NewDomainError("EMPTY_MESSAGE", "Message content cannot be empty")
	}
	if len(content) > MaxMessageLength {
		return nil, shared.NewDomainError("MESSAGE_TOO_LONG", "Message content exceeds the maximum length")
	}

	message := newMessage(c.ID, role, content, productRefs, len(c.Messages)+1)
	c.Messages = append(c.Messages, message)

	now := message.CreatedAt
	c.LastMessageAt = &now
	c.UpdatedAt = now
	c.IncrementVersion()

	if c.Title == DefaultTitle && role == MessageRoleUser {
		c.Title = TitleFromContent(content)
	}

	return &c.Messages[len(c.Messages)-1], nil
}

// Rename sets a user-chosen title
func (c *Conversation) Rename(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return shared.NewDomainError("TITLE_REQUIRED", "Conversation title cannot be empty")
	}
	if len(title) > MaxTitleLength {
		return shared.NewDomainError("TITLE_TOO_LONG", "Conversation title exceeds the maximum length")
	}

	c.Title = title
	c.Touch()
	c.IncrementVersion()

	return nil
}

// RecentWindow returns the newest messages that fit both budgets, in
// chronological order. The latest message is always included even when
// it alone exceeds the character budget, so a prompt is never empty.
func (c *Conversation) RecentWindow(maxMessages, maxChars int) []Message {
	if len(c.Messages) == 0 || maxMessages <= 0 {
		return nil
	}

	start := len(c.Messages)
	chars := 0
	for start > 0 {
		candidate := c.Messages[start-1]
		if len(c.Messages)-start+1 > maxMessages {
			break
		}
		if chars+len(candidate.Content) > maxChars && start < len(c.Messages) {
			break
		}
		chars += len(candidate.Content)
		start--
	}

	window := make([]Message, len(c.Messages)-start)
	copy(window, c.Messages[start:])
	return window
}

// LastMessage returns the newest message, or nil for an empty thread
func (c *Conversation) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return &c.Messages[len(c.Messages)-1]
}

// BelongsToUser returns true if the conversation is owned by the given user
func (c *Conversation) BelongsToUser(userID uuid.UUID) bool {
	return c.UserID == userID
}

// TitleFromContent derives a short title from a message, cutting on a
// word boundary where possible
func TitleFromContent(content string) string {
	const limit = 60

	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}

	cut := string(runes[:limit])
	if idx := strings.LastIndex(cut, " "); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}
