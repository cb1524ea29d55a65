package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorilla/mux"

	"chatroom/internal/middleware"
	"chatroom/internal/store"
	"chatroom/internal/ws"
)

const maxPageSize = 100

type MessageHandler struct {
	Store     store.Store
	Hub       *ws.Hub
	Log       *slog.Logger
	MaxLength int
}

// List supports limit, before (RFC 3339), q and user query parameters
// and returns matches newest-first with a pagination envelope.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	f := store.Filter{
		Limit:    pageSize(r, 50),
		Username: strings.TrimSpace(r.URL.Query().Get("user")),
		Contains: strings.TrimSpace(r.URL.Query().Get("q")),
	}
	if before := r.URL.Query().Get("before"); before != "" {
		t, err := time.Parse(time.RFC3339, before)
		if err != nil {
			writeError(w, http.StatusBadRequest, "before must be an RFC 3339 timestamp")
			return
		}
		f.Before = t
	}

	messages, total, err := h.Store.ListMessages(f)
	if err != nil {
		h.Log.Error("list messages", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	var nextCursor any
	if len(messages) > 0 {
		nextCursor = messages[len(messages)-1].Timestamp
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages":   messages,
		"total":      total,
		"hasMore":    total > len(messages),
		"nextCursor": nextCursor,
	})
}

// Recent returns the newest messages in chronological order, the same
// slice a fresh websocket connection receives as history.
func (h *MessageHandler) Recent(w http.ResponseWriter, r *http.Request) {
	messages, err := h.Store.RecentMessages(pageSize(r, 50))
	if err != nil {
		h.Log.Error("recent messages", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	total, err := h.Store.CountMessages()
	if err != nil {
		h.Log.Error("count messages", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": messages,
		"total":    total,
	})
}

// Create persists a message posted over HTTP and pushes it through the
// hub, so both ingress paths emit identical broadcasts.
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	username := middleware.Username(r)

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	body := strings.TrimSpace(req.Message)
	if body == "" {
		writeError(w, http.StatusBadRequest, "message is empty")
		return
	}
	if utf8.RuneCountInString(body) > h.MaxLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("message too long (max %d characters)", h.MaxLength))
		return
	}

	msg, err := h.Store.AppendMessage(username, body)
	if err != nil {
		h.Log.Error("save message", "user", username, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.Hub.Broadcast(ws.Event{Type: ws.EventMessage, Data: msg})
	writeJSON(w, http.StatusCreated, msg)
}

// Delete removes a message; only its author may do so.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	username := middleware.Username(r)
	id := mux.Vars(r)["id"]

	msg, err := h.Store.GetMessageByID(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	if err != nil {
		h.Log.Error("get message", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !strings.EqualFold(msg.Username, username) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	deleted, err := h.Store.DeleteMessage(id)
	if err != nil {
		h.Log.Error("delete message", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}

	h.Hub.Broadcast(ws.Event{Type: ws.EventMessageDeleted, Data: ws.DeletedPayload{ID: id}})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func pageSize(r *http.Request, def int) int {
	for _, key := range []string{"limit", "count"} {
		if raw := r.URL.Query().Get(key); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				if n > maxPageSize {
					return maxPageSize
				}
				return n
			}
		}
	}
	return def
}
