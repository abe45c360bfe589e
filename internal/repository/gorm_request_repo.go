package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weiawesome/wes-io-chat/internal/domain"
)

// GormRequestRepository implements RequestRepository using GORM.
type GormRequestRepository struct {
	db *gorm.DB
}

func NewGormRequestRepository(db *gorm.DB) *GormRequestRepository {
	return &GormRequestRepository{db: db}
}

func (r *GormRequestRepository) Create(ctx context.Context, req *domain.FriendRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.Status == "" {
		req.Status = domain.RequestPending
	}

	model := &domain.RequestModel{
		ID:         req.ID,
		Status:     req.Status,
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	req.CreatedAt = model.CreatedAt
	return nil
}

func (r *GormRequestRepository) GetByID(ctx context.Context, id string) (*domain.FriendRequest, error) {
	var model domain.RequestModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err, ErrRequestNotFound)
	}
	return model.ToDomain(), nil
}

func (r *GormRequestRepository) FindBetween(ctx context.Context, a, b string) (*domain.FriendRequest, error) {
	var model domain.RequestModel
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		First(&model).Error
	if err != nil {
		return nil, notFound(err, ErrRequestNotFound)
	}
	return model.ToDomain(), nil
}

func (r *GormRequestRepository) ListPendingForReceiver(ctx context.Context, receiverID string) ([]*domain.FriendRequest, error) {
	var models []domain.RequestModel
	err := r.db.WithContext(ctx).
		Where("receiver_id = ? AND status = ?", receiverID, domain.RequestPending).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]*domain.FriendRequest, len(models))
	for i := range models {
		out[i] = models[i].ToDomain()
	}
	return out, nil
}

func (r *GormRequestRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&domain.RequestModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRequestNotFound
	}
	return nil
}
