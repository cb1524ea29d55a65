package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"chatroom/internal/models"
)

// Event is the envelope for everything sent to clients.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// clientEvent is the wire shape read from clients. The payload stays
// raw until the handler for the event type decodes it.
type clientEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Inbound event types.
const (
	EventMessage      = "message"
	EventTyping       = "typing"
	EventGetUsersList = "getUsersList"
)

// Outbound event types.
const (
	EventMessageHistory = "messageHistory"
	EventUsersList      = "usersList"
	EventUserTyping     = "userTyping"
	EventUserJoined     = "userJoined"
	EventUserLeft       = "userLeft"
	EventMessageDeleted = "messageDeleted"
	EventError          = "error"
)

type MessagePayload struct {
	Message string `json:"message"`
}

type TypingPayload struct {
	IsTyping bool `json:"isTyping"`
}

type UserTypingPayload struct {
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

// NotificationPayload announces a join or leave. Same shape as a chat
// message on the wire, but never persisted.
type NotificationPayload struct {
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"type"`
}

type DeletedPayload struct {
	ID string `json:"id"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func joinedEvent(username string) Event {
	return notification(EventUserJoined, username, fmt.Sprintf("%s joined the chat", username))
}

func leftEvent(username string) Event {
	return notification(EventUserLeft, username, fmt.Sprintf("%s left the chat", username))
}

func notification(eventType, username, text string) Event {
	return Event{
		Type: eventType,
		Data: NotificationPayload{
			Username:  username,
			Message:   text,
			Timestamp: time.Now().UTC(),
			Kind:      models.KindNotification,
		},
	}
}

func errorEvent(message string) Event {
	return Event{Type: EventError, Data: ErrorPayload{Message: message}}
}
