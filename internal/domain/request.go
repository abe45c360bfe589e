package domain

import "time"

// Friend request states.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

// FriendRequest is a pending or answered friend request.
type FriendRequest struct {
	ID         string    `json:"_id"`
	Status     string    `json:"status"`
	SenderID   string    `json:"sender"`
	ReceiverID string    `json:"receiver"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Notification is a pending request shown to its receiver.
type Notification struct {
	ID     string      `json:"_id"`
	Sender UserSummary `json:"sender"`
}

// SendRequestBody is the send-request body.
type SendRequestBody struct {
	UserID string `json:"userId" binding:"required"`
}

// AcceptRequestBody answers a request.
type AcceptRequestBody struct {
	RequestID string `json:"requestId" binding:"required"`
	Accept    *bool  `json:"accept" binding:"required"`
}
