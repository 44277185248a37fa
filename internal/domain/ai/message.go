package ai

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/taic/backend/internal/domain/shared"
)

// MessageRole identifies who authored a message
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// IsValid checks if the role is a valid MessageRole
func (r MessageRole) IsValid() bool {
	return r == MessageRoleUser || r == MessageRoleAssistant
}

// ProductRefs is a list of product IDs an assistant reply recommended,
// stored as a JSON column
type ProductRefs []uuid.UUID

// Value implements driver.Valuer for GORM
func (r ProductRefs) Value() (driver.Value, error) {
	if len(r) == 0 {
		return nil, nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner for GORM
func (r *ProductRefs) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ProductRefs", value)
	}

	return json.Unmarshal(data, r)
}

// Message is one turn in a conversation. The Seq column keeps the order
// stable under same-timestamp inserts.
type Message struct {
	shared.BaseEntity
	ConversationID uuid.UUID   `gorm:"type:uuid;not null;index:idx_messages_conversation_seq,priority:1"`
	Seq            int         `gorm:"not null;index:idx_messages_conversation_seq,priority:2"`
	Role           MessageRole `gorm:"type:varchar(20);not null"`
	Content        string      `gorm:"type:text;not null"`
	ProductRefs    ProductRefs `gorm:"type:jsonb"`
}

// TableName returns the table name for GORM
func (Message) TableName() string {
	return "conversation_messages"
}

func newMessage(conversationID uuid.UUID, role MessageRole, content string, productRefs []uuid.UUID, seq int) Message {
	return Message{
		BaseEntity:     shared.NewBaseEntity(),
		ConversationID: conversationID,
		Seq:            seq,
		Role:           role,
		Content:        content,
		ProductRefs:    productRefs,
	}
}

// IsFromUser returns true for user-authored messages
func (m *Message) IsFromUser() bool {
	return m.Role == MessageRoleUser
}
