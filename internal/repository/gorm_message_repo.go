package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weiawesome/wes-io-chat/internal/domain"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Create stores msg and fills in its ID and creation time.
func (r *GormMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}

	model := domain.MessageToModel(msg)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	msg.CreatedAt = model.CreatedAt
	return nil
}

// ListByChat returns messages of chatID newest first.
func (r *GormMessageRepository) ListByChat(ctx context.Context, chatID string, offset, limit int) ([]*domain.Message, int64, error) {
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&domain.MessageModel{}).Where("chat_id = ?", chatID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []domain.MessageModel
	err := db.Where("chat_id = ?", chatID).
		Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	msgs := make([]*domain.Message, len(models))
	for i := range models {
		msgs[i] = models[i].ToDomain()
	}
	return msgs, total, nil
}

// ListAttachmentsByChat returns every attachment stored in chatID.
func (r *GormMessageRepository) ListAttachmentsByChat(ctx context.Context, chatID string) ([]domain.Attachment, error) {
	var models []domain.MessageModel
	err := r.db.WithContext(ctx).
		Select("attachments").
		Where("chat_id = ? AND attachments IS NOT NULL AND attachments <> ? AND attachments <> ?", chatID, "null", "[]").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	var out []domain.Attachment
	for _, m := range models {
		out = append(out, m.Attachments.Data...)
	}
	return out, nil
}

// DeleteByChat removes all messages of chatID.
func (r *GormMessageRepository) DeleteByChat(ctx context.Context, chatID string) error {
	return r.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&domain.MessageModel{}).Error
}
