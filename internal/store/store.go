package store

import (
	"errors"
	"time"

	"chatroom/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Filter narrows ListMessages results. Zero values leave the
// corresponding dimension unconstrained.
type Filter struct {
	Limit    int
	Before   time.Time
	Username string
	Contains string
}

type Store interface {
	// User operations
	CreateUser(username, hashedPassword string) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	UpdateLastLogin(username string) (*models.User, error)
	CountUsers() (int, error)

	// Message operations
	AppendMessage(author, body string) (*models.ChatMessage, error)
	RecentMessages(limit int) ([]models.ChatMessage, error)
	ListMessages(f Filter) ([]models.ChatMessage, int, error)
	GetMessageByID(id string) (*models.ChatMessage, error)
	DeleteMessage(id string) (bool, error)
	CountMessages() (int, error)
	PruneMessages(keep int) (int64, error)

	Close() error
}
