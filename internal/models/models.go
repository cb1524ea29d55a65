package models

import "time"

// Message kinds as stored and broadcast. Notifications (join/leave
// announcements) share the ChatMessage wire shape but are never
// persisted.
const (
	KindMessage      = "message"
	KindNotification = "notification"
)

type User struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Password  string     `json:"-"`
	CreatedAt time.Time  `json:"createdAt"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"type"`
}
