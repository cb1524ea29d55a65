package sqlstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"chatroom/internal/store"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetUser(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)

	user, err := s.CreateUser("alice", "hashed-password")
	req.NoError(err)
	req.NotEmpty(user.ID)
	req.Equal("alice", user.Username)
	req.NotZero(user.CreatedAt)
	req.Nil(user.LastLogin)

	got, err := s.GetUserByUsername("alice")
	req.NoError(err)
	req.Equal(user.ID, got.ID)
	req.Equal("hashed-password", got.Password)
}

func TestGetUserCaseInsensitive(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)

	_, err := s.CreateUser("Alice", "hash")
	req.NoError(err)

	got, err := s.GetUserByUsername("aLiCe")
	req.NoError(err)
	req.Equal("Alice", got.Username)
}

func TestCreateUserDuplicate(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)

	_, err := s.CreateUser("alice", "hash")
	req.NoError(err)

	_, err = s.CreateUser("alice", "hash")
	req.ErrorIs(err, store.ErrAlreadyExists)

	// Usernames are unique case-insensitively.
	_, err = s.CreateUser("ALICE", "hash")
	req.ErrorIs(err, store.ErrAlreadyExists)
}

func TestGetUserNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetUserByUsername("nobody")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateLastLogin(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)

	_, err := s.CreateUser("alice", "hash")
	req.NoError(err)

	updated, err := s.UpdateLastLogin("alice")
	req.NoError(err)
	req.NotNil(updated.LastLogin)

	_, err = s.UpdateLastLogin("nobody")
	req.ErrorIs(err, store.ErrNotFound)
}

func TestCountUsers(t *testing.T) {
	req := require.New(t)
	s := newTestStore(t)

	n, err := s.CountUsers()
	req.NoError(err)
	req.Equal(0, n)

	_, err = s.CreateUser("alice", "hash")
	req.NoError(err)
	_, err = s.CreateUser("bob", "hash")
	req.NoError(err)

	n, err = s.CountUsers()
	req.NoError(err)
	req.Equal(2, n)
}
