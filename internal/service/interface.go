package service

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/weiawesome/wes-io-chat/internal/domain"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrForbidden          = errors.New("not allowed")
	ErrSelfRequest        = errors.New("cannot send a request to yourself")
	ErrRequestExists      = errors.New("request already sent")
	ErrNotGroup           = errors.New("this is not a group chat")
	ErrNotMember          = errors.New("you are not a member of this chat")
	ErrInvalidMembers     = errors.New("invalid members")
	ErrTooFewMembers      = errors.New("group must have at least 3 members")
	ErrMemberLimit        = errors.New("group members limit reached")
	ErrFileCount          = errors.New("files must be between 1 and 5")
)

// Emitter delivers an event to the live connections of userIDs.
type Emitter interface {
	Emit(event string, userIDs []string, data interface{}) int
}

// Persister durably stores a message.
type Persister interface {
	Persist(ctx context.Context, msg *domain.Message) error
}

// TokenIssuer mints session tokens.
type TokenIssuer interface {
	GenerateToken(userID string) (string, time.Time, error)
}

// Upload is one file received from a multipart form.
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UserService covers accounts, search and friend requests.
type UserService interface {
	Signup(ctx context.Context, req *domain.SignupRequest, avatar *Upload) (*domain.User, string, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.User, string, error)
	Profile(ctx context.Context, userID string) (*domain.User, error)
	Search(ctx context.Context, userID, name string) ([]domain.UserSummary, error)
	SendRequest(ctx context.Context, userID, receiverID string) error
	// AnswerRequest returns the new direct chat, or nil when rejected.
	AnswerRequest(ctx context.Context, userID, requestID string, accept bool) (*domain.Chat, error)
	Notifications(ctx context.Context, userID string) ([]domain.Notification, error)
	Friends(ctx context.Context, userID, chatID string) ([]domain.UserSummary, error)
}

// ChatService covers chats, groups and message history.
type ChatService interface {
	CreateGroup(ctx context.Context, userID string, req *domain.NewGroupRequest) (*domain.Chat, error)
	MyChats(ctx context.Context, userID string) ([]domain.ChatView, error)
	MyGroups(ctx context.Context, userID string) ([]domain.ChatView, error)
	AddMembers(ctx context.Context, userID string, req *domain.AddMembersRequest) (*domain.Chat, error)
	RemoveMember(ctx context.Context, userID string, req *domain.RemoveMemberRequest) (*domain.Chat, error)
	LeaveGroup(ctx context.Context, userID, chatID string) error
	SendAttachments(ctx context.Context, userID, chatID string, files []Upload) (*domain.RealtimeMessage, error)
	Messages(ctx context.Context, userID, chatID string, page int) (*domain.MessagePage, error)
	Details(ctx context.Context, userID, chatID string) (*domain.ChatView, error)
	Rename(ctx context.Context, userID, chatID, name string) (*domain.Chat, error)
	Delete(ctx context.Context, userID, chatID string) error
}
