package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"chatroom/internal/store"
	"chatroom/internal/ws"
)

type HealthHandler struct {
	Store store.Store
	Hub   *ws.Hub
	Log   *slog.Logger
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.CountUsers()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	messages, err := h.Store.CountMessages()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"timestamp": time.Now().UTC(),
		"database": map[string]int{
			"users":    users,
			"messages": messages,
		},
	})
}

func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	connected := h.Hub.Snapshot()

	totalMessages, err := h.Store.CountMessages()
	if err != nil {
		h.Log.Error("count messages", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	totalUsers, err := h.Store.CountUsers()
	if err != nil {
		h.Log.Error("count users", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"connectedUsers":     len(connected),
		"connectedUsersList": connected,
		"totalMessages":      totalMessages,
		"totalUsers":         totalUsers,
	})
}
