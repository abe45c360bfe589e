package domain

import "time"

// Chat is a direct or group conversation. Members always includes the admin
// of a group.
type Chat struct {
	ID          string    `json:"_id"`
	Name        string    `json:"chatName"`
	IsGroupChat bool      `json:"isGroupChat"`
	GroupAdmin  string    `json:"groupAdmin,omitempty"`
	Members     []string  `json:"members"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// HasMember reports whether userID belongs to the chat.
func (c *Chat) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// MembersExcept returns the members other than userID.
func (c *Chat) MembersExcept(userID string) []string {
	out := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		if m != userID {
			out = append(out, m)
		}
	}
	return out
}

// ChatView is a chat listing entry with its member profiles resolved.
type ChatView struct {
	ID          string        `json:"_id"`
	Name        string        `json:"chatName"`
	IsGroupChat bool          `json:"isGroupChat"`
	GroupAdmin  string        `json:"groupAdmin,omitempty"`
	Avatars     []string      `json:"avatar"`
	Members     []UserSummary `json:"members"`
}

// NewGroupRequest creates a group chat.
type NewGroupRequest struct {
	Name    string   `json:"chatName" binding:"required"`
	Members []string `json:"members" binding:"required"`
}

// AddMembersRequest adds members to a group.
type AddMembersRequest struct {
	ChatID  string   `json:"chatId" binding:"required"`
	Members []string `json:"members" binding:"required"`
}

// RemoveMemberRequest removes one member from a group.
type RemoveMemberRequest struct {
	ChatID string `json:"chatId" binding:"required"`
	UserID string `json:"userId" binding:"required"`
}

// RenameRequest renames a group.
type RenameRequest struct {
	Name string `json:"name" binding:"required"`
}
