package domain

import "time"

// User is an account as seen by the realtime layer and the REST API.
type User struct {
	ID           string     `json:"_id"`
	Username     string     `json:"username"`
	Email        string     `json:"email,omitempty"`
	FullName     string     `json:"fullName"`
	Avatar       Attachment `json:"avatar"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// AsSender returns the short form embedded in messages and notifications.
func (u *User) AsSender() Sender {
	return Sender{ID: u.ID, FullName: u.FullName}
}

// UserSummary is the public profile returned by search and friend listings.
type UserSummary struct {
	ID       string `json:"_id"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// Summary converts u to its public profile.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, FullName: u.FullName, Avatar: u.Avatar.URL}
}

// SignupRequest carries the multipart signup form fields.
type SignupRequest struct {
	FullName string `form:"fullName" binding:"required"`
	Username string `form:"username" binding:"required"`
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required,min=6"`
}

// LoginRequest is the login body.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}
