package domain

import "encoding/json"

// Event names exchanged over the websocket channel.
const (
	EventNewMessage      = "NEW_MESSAGE"
	EventNewMessageAlert = "NEW_MESSAGE_ALERT"
	EventStartTyping     = "START_TYPING"
	EventStopTyping      = "STOP_TYPING"
	EventChatJoined      = "CHAT_JOINED"
	EventChatLeft        = "CHAT_LEFT"
	EventOnlineUsers     = "ONLINE_USERS"
	EventAlert           = "ALERT"
	EventRefetchChats    = "REFETCH_CHATS"
	EventNewRequest      = "NEW_REQUEST"
)

// Envelope is the frame format in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutboundEnvelope is the frame written to clients.
type OutboundEnvelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// EncodeEvent marshals an outbound frame.
func EncodeEvent(event string, data interface{}) ([]byte, error) {
	return json.Marshal(OutboundEnvelope{Event: event, Data: data})
}

// Inbound payloads.

type NewMessagePayload struct {
	ChatID  string   `json:"chatId"`
	Members []string `json:"members"`
	Message string   `json:"message"`
}

type TypingPayload struct {
	ChatID  string   `json:"chatId"`
	Members []string `json:"members"`
}

type PresencePayload struct {
	UserID  string   `json:"userId"`
	Members []string `json:"members"`
}

// Outbound payloads.

type NewMessageEvent struct {
	ChatID  string           `json:"chatId"`
	Message *RealtimeMessage `json:"message"`
}

type ChatRef struct {
	ChatID string `json:"chatId"`
}

type ChatAlert struct {
	ChatID  string `json:"chatId"`
	Message string `json:"message"`
}

type FriendRequestEvent struct {
	Sender  Sender `json:"sender"`
	Message string `json:"message"`
}
