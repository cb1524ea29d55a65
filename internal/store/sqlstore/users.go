package sqlstore

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"chatroom/internal/models"
	"chatroom/internal/store"
)

func (s *SQLStore) CreateUser(username, hashedPassword string) (*models.User, error) {
	user := &models.User{
		ID:        "user_" + uuid.NewString(),
		Username:  username,
		Password:  hashedPassword,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(
		`INSERT INTO users (id, username, password, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Username, user.Password, user.CreatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return nil, store.ErrAlreadyExists
		}
		return nil, err
	}
	return user, nil
}

// GetUserByUsername is case-insensitive; the username column carries
// COLLATE NOCASE.
func (s *SQLStore) GetUserByUsername(username string) (*models.User, error) {
	var (
		user      models.User
		lastLogin sql.NullTime
	)
	err := s.db.QueryRow(
		`SELECT id, username, password, created_at, last_login FROM users WHERE username = ?`,
		username,
	).Scan(&user.ID, &user.Username, &user.Password, &user.CreatedAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		user.LastLogin = &t
	}
	return &user, nil
}

func (s *SQLStore) UpdateLastLogin(username string) (*models.User, error) {
	result, err := s.db.Exec(
		`UPDATE users SET last_login = ? WHERE username = ?`,
		time.Now().UTC(), username,
	)
	if err != nil {
		return nil, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetUserByUsername(username)
}

func (s *SQLStore) CountUsers() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}
