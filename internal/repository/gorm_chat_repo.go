package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weiawesome/wes-io-chat/internal/domain"
)

// GormChatRepository implements ChatRepository using GORM. Membership lives
// in chat_members so "chats of user" is an indexed lookup.
type GormChatRepository struct {
	db *gorm.DB
}

func NewGormChatRepository(db *gorm.DB) *GormChatRepository {
	return &GormChatRepository{db: db}
}

func preloadMembers(db *gorm.DB) *gorm.DB {
	return db.Preload("Members", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position")
	})
}

// Create stores chat and its members.
func (r *GormChatRepository) Create(ctx context.Context, chat *domain.Chat) error {
	if chat.ID == "" {
		chat.ID = uuid.New().String()
	}

	model := domain.ChatToModel(chat)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}

	chat.CreatedAt = model.CreatedAt
	chat.UpdatedAt = model.UpdatedAt
	return nil
}

// GetByID retrieves a chat with its members.
func (r *GormChatRepository) GetByID(ctx context.Context, id string) (*domain.Chat, error) {
	var model domain.ChatModel
	if err := preloadMembers(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ErrChatNotFound)
	}
	return model.ToDomain(), nil
}

// ListByMember returns the chats userID belongs to, most recently updated first.
func (r *GormChatRepository) ListByMember(ctx context.Context, userID string) ([]*domain.Chat, error) {
	sub := r.db.Model(&domain.ChatMemberModel{}).Select("chat_id").Where("user_id = ?", userID)
	return r.list(preloadMembers(r.db.WithContext(ctx)).Where("id IN (?)", sub))
}

// ListGroupsByAdmin returns the group chats administered by userID.
func (r *GormChatRepository) ListGroupsByAdmin(ctx context.Context, userID string) ([]*domain.Chat, error) {
	return r.list(preloadMembers(r.db.WithContext(ctx)).Where("is_group_chat = ? AND group_admin = ?", true, userID))
}

func (r *GormChatRepository) list(q *gorm.DB) ([]*domain.Chat, error) {
	var models []domain.ChatModel
	if err := q.Order("updated_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	chats := make([]*domain.Chat, len(models))
	for i := range models {
		chats[i] = models[i].ToDomain()
	}
	return chats, nil
}

// Update rewrites the chat row and replaces its member rows.
func (r *GormChatRepository) Update(ctx context.Context, chat *domain.Chat) error {
	model := domain.ChatToModel(chat)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.ChatModel{}).Where("id = ?", chat.ID).Updates(map[string]interface{}{
			"name":        model.Name,
			"group_admin": model.GroupAdmin,
			"updated_at":  tx.NowFunc(),
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrChatNotFound
		}

		if err := tx.Where("chat_id = ?", chat.ID).Delete(&domain.ChatMemberModel{}).Error; err != nil {
			return err
		}
		if len(model.Members) > 0 {
			if err := tx.Create(&model.Members).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a chat and its membership.
func (r *GormChatRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", id).Delete(&domain.ChatMemberModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.ChatModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrChatNotFound
		}
		return nil
	})
}
