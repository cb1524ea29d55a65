package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"chatroom/internal/auth"
	"chatroom/internal/middleware"
	"chatroom/internal/models"
	"chatroom/internal/store/sqlstore"
	"chatroom/internal/ws"
)

type messagesEnv struct {
	handler *MessageHandler
	store   *sqlstore.SQLStore
	tokens  *auth.TokenIssuer
	auth    func(http.Handler) http.Handler
}

func newMessagesEnv(t *testing.T) *messagesEnv {
	t.Helper()
	st, err := sqlstore.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)

	hub := ws.NewHub(logger, st, auth.NewVerifier(tokens, st), ws.Options{})
	go hub.Run()

	return &messagesEnv{
		handler: &MessageHandler{Store: st, Hub: hub, Log: logger, MaxLength: 500},
		store:   st,
		tokens:  tokens,
		auth:    middleware.Auth(tokens),
	}
}

func (e *messagesEnv) bearer(t *testing.T, username string) string {
	t.Helper()
	token, err := e.tokens.Generate(username)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestCreateMessage(t *testing.T) {
	req := require.New(t)
	env := newMessagesEnv(t)

	body, _ := json.Marshal(map[string]string{"message": "  hello over http  "})
	r := httptest.NewRequest("POST", "/api/messages", bytes.NewReader(body))
	r.Header.Set("Authorization", env.bearer(t, "alice"))
	rr := httptest.NewRecorder()
	env.auth(http.HandlerFunc(env.handler.Create)).ServeHTTP(rr, r)

	req.Equal(http.StatusCreated, rr.Code)

	var msg models.ChatMessage
	req.NoError(json.NewDecoder(rr.Body).Decode(&msg))
	req.Equal("alice", msg.Username)
	req.Equal("hello over http", msg.Message)
	req.NotEmpty(msg.ID)

	count, err := env.store.CountMessages()
	req.NoError(err)
	req.Equal(1, count)
}

func TestCreateMessageRejections(t *testing.T) {
	env := newMessagesEnv(t)

	// No token.
	r := httptest.NewRequest("POST", "/api/messages", strings.NewReader(`{"message":"hi"}`))
	rr := httptest.NewRecorder()
	env.auth(http.HandlerFunc(env.handler.Create)).ServeHTTP(rr, r)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	// Empty and over-length bodies.
	for _, message := range []string{"", "   ", strings.Repeat("x", 501)} {
		body, _ := json.Marshal(map[string]string{"message": message})
		r := httptest.NewRequest("POST", "/api/messages", bytes.NewReader(body))
		r.Header.Set("Authorization", env.bearer(t, "alice"))
		rr := httptest.NewRecorder()
		env.auth(http.HandlerFunc(env.handler.Create)).ServeHTTP(rr, r)
		require.Equal(t, http.StatusBadRequest, rr.Code)
	}

	count, err := env.store.CountMessages()
	require.NoError(t, err)
	require.Equal(t, 0, count)
}

func TestDeleteMessage(t *testing.T) {
	req := require.New(t)
	env := newMessagesEnv(t)

	msg, err := env.store.AppendMessage("alice", "mine")
	req.NoError(err)

	del := func(id, username string) *httptest.ResponseRecorder {
		r := httptest.NewRequest("DELETE", "/api/messages/"+id, nil)
		r = mux.SetURLVars(r, map[string]string{"id": id})
		r.Header.Set("Authorization", env.bearer(t, username))
		rr := httptest.NewRecorder()
		env.auth(http.HandlerFunc(env.handler.Delete)).ServeHTTP(rr, r)
		return rr
	}

	// Only the author may delete.
	rr := del(msg.ID, "bob")
	req.Equal(http.StatusForbidden, rr.Code)

	rr = del(msg.ID, "alice")
	req.Equal(http.StatusOK, rr.Code)

	rr = del(msg.ID, "alice")
	req.Equal(http.StatusNotFound, rr.Code)

	rr = del("msg_unknown", "alice")
	req.Equal(http.StatusNotFound, rr.Code)
}

func TestListMessages(t *testing.T) {
	req := require.New(t)
	env := newMessagesEnv(t)

	for _, body := range []string{"one", "two", "three"} {
		_, err := env.store.AppendMessage("alice", body)
		req.NoError(err)
	}
	_, err := env.store.AppendMessage("bob", "four")
	req.NoError(err)

	r := httptest.NewRequest("GET", "/api/messages?limit=2", nil)
	rr := httptest.NewRecorder()
	env.handler.List(rr, r)
	req.Equal(http.StatusOK, rr.Code)

	var resp struct {
		Messages []models.ChatMessage `json:"messages"`
		Total    int                  `json:"total"`
		HasMore  bool                 `json:"hasMore"`
	}
	req.NoError(json.NewDecoder(rr.Body).Decode(&resp))
	req.Len(resp.Messages, 2)
	req.Equal(4, resp.Total)
	req.True(resp.HasMore)
	req.Equal("four", resp.Messages[0].Message) // newest first

	// Filter by author.
	r = httptest.NewRequest("GET", "/api/messages?user=alice", nil)
	rr = httptest.NewRecorder()
	env.handler.List(rr, r)
	req.NoError(json.NewDecoder(rr.Body).Decode(&resp))
	req.Equal(3, resp.Total)

	// Invalid cursor.
	r = httptest.NewRequest("GET", "/api/messages?before=yesterday", nil)
	rr = httptest.NewRecorder()
	env.handler.List(rr, r)
	req.Equal(http.StatusBadRequest, rr.Code)
}

func TestRecentMessages(t *testing.T) {
	req := require.New(t)
	env := newMessagesEnv(t)

	for _, body := range []string{"one", "two", "three"} {
		_, err := env.store.AppendMessage("alice", body)
		req.NoError(err)
	}

	r := httptest.NewRequest("GET", "/api/messages/recent?count=2", nil)
	rr := httptest.NewRecorder()
	env.handler.Recent(rr, r)
	req.Equal(http.StatusOK, rr.Code)

	var resp struct {
		Messages []models.ChatMessage `json:"messages"`
		Total    int                  `json:"total"`
	}
	req.NoError(json.NewDecoder(rr.Body).Decode(&resp))
	req.Len(resp.Messages, 2)
	req.Equal(3, resp.Total)
	// Chronological, like websocket history.
	req.Equal("two", resp.Messages[0].Message)
	req.Equal("three", resp.Messages[1].Message)
}
