package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"chatroom/internal/auth"
	"chatroom/internal/store"
)

type AuthHandler struct {
	Store  store.Store
	Tokens *auth.TokenIssuer
	Log    *slog.Logger
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := auth.ValidateCredentials(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user, err := h.Store.CreateUser(req.Username, hash)
	if errors.Is(err, store.ErrAlreadyExists) {
		writeError(w, http.StatusConflict, "username is already taken")
		return
	}
	if err != nil {
		h.Log.Error("create user", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	token, err := h.Tokens.Generate(user.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.Log.Info("user registered", "user", user.Username, "id", user.ID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "account created",
		"user":    user,
		"token":   token,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.Store.GetUserByUsername(req.Username)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	if !auth.CheckPassword(user.Password, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	if updated, err := h.Store.UpdateLastLogin(user.Username); err == nil {
		user = updated
	}

	token, err := h.Tokens.Generate(user.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.Log.Info("user logged in", "user", user.Username)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "login successful",
		"user":    user,
		"token":   token,
	})
}

// Verify resolves a bearer token to its account, for clients restoring
// a stored session.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		writeError(w, http.StatusUnauthorized, "missing token")
		return
	}

	claims, err := h.Tokens.Parse(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	user, err := h.Store.GetUserByUsername(claims.Username)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unknown account")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "token valid",
		"user":    user,
	})
}
