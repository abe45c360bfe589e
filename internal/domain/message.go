package domain

import "time"

// Attachment references a blob in storage.
type Attachment struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
}

// Sender identifies the author of a realtime message or notification.
type Sender struct {
	ID       string `json:"_id"`
	FullName string `json:"fullName"`
}

// Message is the durable message record.
type Message struct {
	ID          string       `json:"_id"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments"`
	SenderID    string       `json:"sender"`
	ChatID      string       `json:"chat"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// RealtimeMessage is the ephemeral form delivered to live connections. Its
// ID is generated at send time and differs from the stored record's ID.
type RealtimeMessage struct {
	ID          string       `json:"_id"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Sender      Sender       `json:"sender"`
	ChatID      string       `json:"chat"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Durable returns the record handed to the store.
func (m *RealtimeMessage) Durable() *Message {
	return &Message{
		Content:     m.Content,
		Attachments: m.Attachments,
		SenderID:    m.Sender.ID,
		ChatID:      m.ChatID,
	}
}

// MessageView is a stored message with its sender resolved.
type MessageView struct {
	ID          string       `json:"_id"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments"`
	Sender      Sender       `json:"sender"`
	ChatID      string       `json:"chat"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// MessagePage is one page of chat history.
type MessagePage struct {
	Messages   []MessageView `json:"messages"`
	TotalPages int           `json:"totalPages"`
}
