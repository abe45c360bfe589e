package domain

import (
	"time"

	"github.com/weiawesome/wes-io-chat/pkg/database"
)

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID             string    `gorm:"type:varchar(36);primaryKey"`
	Username       string    `gorm:"type:varchar(50);uniqueIndex;not null"`
	Email          string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	FullName       string    `gorm:"type:varchar(100);index"`
	AvatarPublicID string    `gorm:"type:varchar(255)"`
	AvatarURL      string    `gorm:"type:text"`
	PasswordHash   string    `gorm:"type:varchar(255);not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts UserModel to domain User.
func (m *UserModel) ToDomain() *User {
	return &User{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		FullName:     m.FullName,
		Avatar:       Attachment{PublicID: m.AvatarPublicID, URL: m.AvatarURL},
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// UserToModel converts domain User to UserModel.
func UserToModel(u *User) *UserModel {
	return &UserModel{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		FullName:       u.FullName,
		AvatarPublicID: u.Avatar.PublicID,
		AvatarURL:      u.Avatar.URL,
		PasswordHash:   u.PasswordHash,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

// ChatModel is the GORM model for the chats table.
type ChatModel struct {
	ID          string            `gorm:"type:varchar(36);primaryKey"`
	Name        string            `gorm:"type:varchar(100);not null"`
	IsGroupChat bool              `gorm:"not null;default:false"`
	GroupAdmin  string            `gorm:"type:varchar(36);index"`
	Members     []ChatMemberModel `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time         `gorm:"autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime"`
}

func (ChatModel) TableName() string {
	return "chats"
}

// ChatMemberModel is one row of chat membership.
type ChatMemberModel struct {
	ChatID   string    `gorm:"type:varchar(36);primaryKey"`
	UserID   string    `gorm:"type:varchar(36);primaryKey;index"`
	Position int       `gorm:"not null;default:0"`
	JoinedAt time.Time `gorm:"autoCreateTime"`
}

func (ChatMemberModel) TableName() string {
	return "chat_members"
}

// ToDomain converts ChatModel to domain Chat. Members must be preloaded.
func (m *ChatModel) ToDomain() *Chat {
	members := make([]string, len(m.Members))
	for i, cm := range m.Members {
		members[i] = cm.UserID
	}
	return &Chat{
		ID:          m.ID,
		Name:        m.Name,
		IsGroupChat: m.IsGroupChat,
		GroupAdmin:  m.GroupAdmin,
		Members:     members,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ChatToModel converts domain Chat to ChatModel.
func ChatToModel(c *Chat) *ChatModel {
	members := make([]ChatMemberModel, len(c.Members))
	for i, id := range c.Members {
		members[i] = ChatMemberModel{ChatID: c.ID, UserID: id, Position: i}
	}
	return &ChatModel{
		ID:          c.ID,
		Name:        c.Name,
		IsGroupChat: c.IsGroupChat,
		GroupAdmin:  c.GroupAdmin,
		Members:     members,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// MessageModel is the GORM model for the messages table.
type MessageModel struct {
	ID          string                      `gorm:"type:varchar(36);primaryKey"`
	Content     string                      `gorm:"type:text"`
	Attachments database.JSON[[]Attachment] `gorm:"type:text"`
	SenderID    string                      `gorm:"type:varchar(36);index;not null"`
	ChatID      string                      `gorm:"type:varchar(36);index:idx_messages_chat_created;not null"`
	CreatedAt   time.Time                   `gorm:"autoCreateTime;index:idx_messages_chat_created"`
}

func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts MessageModel to domain Message.
func (m *MessageModel) ToDomain() *Message {
	attachments := m.Attachments.Data
	if attachments == nil {
		attachments = []Attachment{}
	}
	return &Message{
		ID:          m.ID,
		Content:     m.Content,
		Attachments: attachments,
		SenderID:    m.SenderID,
		ChatID:      m.ChatID,
		CreatedAt:   m.CreatedAt,
	}
}

// MessageToModel converts domain Message to MessageModel.
func MessageToModel(msg *Message) *MessageModel {
	return &MessageModel{
		ID:          msg.ID,
		Content:     msg.Content,
		Attachments: database.NewJSON(msg.Attachments),
		SenderID:    msg.SenderID,
		ChatID:      msg.ChatID,
		CreatedAt:   msg.CreatedAt,
	}
}

// RequestModel is the GORM model for the requests table.
type RequestModel struct {
	ID         string    `gorm:"type:varchar(36);primaryKey"`
	Status     string    `gorm:"type:varchar(16);not null;default:pending"`
	SenderID   string    `gorm:"type:varchar(36);index;not null"`
	ReceiverID string    `gorm:"type:varchar(36);index;not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (RequestModel) TableName() string {
	return "requests"
}

// ToDomain converts RequestModel to domain FriendRequest.
func (m *RequestModel) ToDomain() *FriendRequest {
	return &FriendRequest{
		ID:         m.ID,
		Status:     m.Status,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		CreatedAt:  m.CreatedAt,
	}
}

// Models lists every table for auto-migration.
func Models() []interface{} {
	return []interface{}{&UserModel{}, &ChatModel{}, &ChatMemberModel{}, &MessageModel{}, &RequestModel{}}
}
