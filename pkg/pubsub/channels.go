package pubsub

import (
	"fmt"
	"time"
)

// ChannelChatMessages carries durable-message notifications for one chat.
const ChannelChatMessages = "chat:room:%s:messages"

// Event types.
const (
	EventMessageCreated = "message_created"
)

// ChatMessagesChannel returns the channel name for a chat's message events.
func ChatMessagesChannel(chatID string) string {
	return fmt.Sprintf(ChannelChatMessages, chatID)
}

// MessageCreatedPayload is published after a message has been stored.
type MessageCreatedPayload struct {
	MessageID      string    `json:"message_id"`
	ChatID         string    `json:"chat_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	AttachmentURLs []string  `json:"attachment_urls,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
