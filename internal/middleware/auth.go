package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"chatroom/internal/auth"
)

type contextKey string

const usernameKey contextKey = "username"

// Auth requires a valid bearer token and stores the authenticated
// username in the request context.
func Auth(tokens *auth.TokenIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token := strings.TrimPrefix(header, "Bearer ")
			if token == "" || token == header {
				unauthorized(w, "missing token")
				return
			}

			claims, err := tokens.Parse(token)
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), usernameKey, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Username returns the authenticated username placed by Auth, or ""
// for unauthenticated requests.
func Username(r *http.Request) string {
	username, _ := r.Context().Value(usernameKey).(string)
	return username
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
