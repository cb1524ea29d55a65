package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"chatroom/internal/auth"
)

func TestAuth(t *testing.T) {
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	signed, err := tokens.Generate("alice")
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "alice", Username(r))
		w.WriteHeader(http.StatusOK)
	})
	handler := Auth(tokens)(next)

	cases := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer " + signed, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"no bearer prefix", signed, http.StatusUnauthorized},
		{"garbage token", "Bearer garbage", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, r)
			require.Equal(t, tc.wantStatus, rr.Code)
		})
	}
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	expired := auth.NewTokenIssuer("test-secret", -time.Minute)
	signed, err := expired.Generate("alice")
	require.NoError(t, err)

	handler := Auth(auth.NewTokenIssuer("test-secret", time.Hour))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run")
		}))

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+signed)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, r)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUsernameWithoutAuth(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	require.Empty(t, Username(r))
}

func TestRateLimit(t *testing.T) {
	handler := RateLimit(rate.Every(time.Hour), 2)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	request := func(addr string) int {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, r)
		return rr.Code
	}

	require.Equal(t, http.StatusOK, request("1.2.3.4:1111"))
	require.Equal(t, http.StatusOK, request("1.2.3.4:2222"))
	require.Equal(t, http.StatusTooManyRequests, request("1.2.3.4:3333"))

	// Budgets are per client host.
	require.Equal(t, http.StatusOK, request("5.6.7.8:1111"))
}
