package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/taic/backend/internal/domain/ai"
	"github.com/taic/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormConversationRepository implements ConversationRepository using GORM
type GormConversationRepository struct {
	db *gorm.DB
}

// NewGormConversationRepository creates a new GormConversationRepository
func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{db: db}
}

// FindByID retrieves a conversation with its messages in order
func (r *GormConversationRepository) FindByID(ctx context.Context, id uuid.UUID) (*ai.Conversation, error) {
	var c ai.Conversation
	if err := r.db.WithContext(ctx).
		Preload("Messages", messageOrder).
		First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindByIDForUser retrieves a conversation by ID within a user
func (r *GormConversationRepository) FindByIDForUser(ctx context.Context, userID, id uuid.UUID) (*ai.Conversation, error) {
	var c ai.Conversation
	if err := r.db.WithContext(ctx).
		Preload("Messages", messageOrder).
		Where("user_id = ? AND id = ?", userID, id).
		First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindByUser lists a user's conversations without their messages,
// newest activity first
func (r *GormConversationRepository) FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]ai.Conversation, error) {
	var conversations []ai.Conversation
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&ai.Conversation{}).Where("user_id = ?", userID),
		filter,
	)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderBy := ValidateSortField(filter.OrderBy, ConversationSortFields, "last_message_at")
		query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("last_message_at DESC NULLS LAST, created_at DESC")
	}

	if err := query.Find(&conversations).Error; err != nil {
		return nil, err
	}
	return conversations, nil
}

// Save persists a conversation and any new messages
func (r *GormConversationRepository) Save(ctx context.Context, c *ai.Conversation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Messages").Save(c).Error; err != nil {
			return translateError(err)
		}

		for i := range c.Messages {
			c.Messages[i].ConversationID = c.ID
			if err := tx.Save(&c.Messages[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// Delete removes a conversation and its messages
func (r *GormConversationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&ai.Message{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&ai.Conversation{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// CountByUser counts a user's conversations
func (r *GormConversationRepository) CountByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&ai.Conversation{}).Where("user_id = ?", userID),
		filter,
	)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// messageOrder keeps preloaded messages in conversation order
func messageOrder(db *gorm.DB) *gorm.DB {
	return db.Order("messages.seq ASC")
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormConversationRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("title ILIKE ?", "%"+filter.Search+"%")
	}

	for key, value := range filter.Filters {
		switch key {
		case "kind":
			query = query.Where("kind = ?", value)
		}
	}

	return query
}

// Ensure GormConversationRepository implements ConversationRepository
var _ ai.ConversationRepository = (*GormConversationRepository)(nil)
