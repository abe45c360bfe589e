package repository

import (
	"context"
	"errors"

	"github.com/weiawesome/wes-io-chat/internal/domain"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailExists     = errors.New("email already exists")
	ErrUsernameExists  = errors.New("username already exists")
	ErrChatNotFound    = errors.New("chat not found")
	ErrRequestNotFound = errors.New("request not found")
)

// UserRepository defines the interface for user data persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// GetByIDs returns the users that exist among ids, in no particular order.
	GetByIDs(ctx context.Context, ids []string) ([]*domain.User, error)
	// SearchByName matches fullName case-insensitively, skipping excluded ids.
	SearchByName(ctx context.Context, name string, exclude []string, limit int) ([]*domain.User, error)
}

// ChatRepository defines the interface for chat and membership persistence.
type ChatRepository interface {
	Create(ctx context.Context, chat *domain.Chat) error
	GetByID(ctx context.Context, id string) (*domain.Chat, error)
	ListByMember(ctx context.Context, userID string) ([]*domain.Chat, error)
	ListGroupsByAdmin(ctx context.Context, userID string) ([]*domain.Chat, error)
	// Update replaces name, admin and members of an existing chat.
	Update(ctx context.Context, chat *domain.Chat) error
	Delete(ctx context.Context, id string) error
}

// MessageRepository defines the interface for message persistence.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	// ListByChat returns one page, newest first, and the total count.
	ListByChat(ctx context.Context, chatID string, offset, limit int) ([]*domain.Message, int64, error)
	ListAttachmentsByChat(ctx context.Context, chatID string) ([]domain.Attachment, error)
	DeleteByChat(ctx context.Context, chatID string) error
}

// RequestRepository defines the interface for friend request persistence.
type RequestRepository interface {
	Create(ctx context.Context, req *domain.FriendRequest) error
	GetByID(ctx context.Context, id string) (*domain.FriendRequest, error)
	// FindBetween finds a request between a and b in either direction.
	FindBetween(ctx context.Context, a, b string) (*domain.FriendRequest, error)
	ListPendingForReceiver(ctx context.Context, receiverID string) ([]*domain.FriendRequest, error)
	Delete(ctx context.Context, id string) error
}
