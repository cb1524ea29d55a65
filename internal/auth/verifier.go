package auth

import (
	"chatroom/internal/store"
)

// Identity is the authenticated principal behind a connection.
type Identity struct {
	UserID   string
	Username string
}

// Verifier resolves a bearer token to a known account. Used on every
// websocket handshake, so it does nothing beyond signature validation
// and a local account lookup.
type Verifier struct {
	tokens *TokenIssuer
	users  store.Store
}

func NewVerifier(tokens *TokenIssuer, users store.Store) *Verifier {
	return &Verifier{tokens: tokens, users: users}
}

func (v *Verifier) Verify(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}
	claims, err := v.tokens.Parse(token)
	if err != nil {
		return Identity{}, err
	}
	user, err := v.users.GetUserByUsername(claims.Username)
	if err != nil {
		// A signed token whose account has since disappeared is as
		// dead as a forged one.
		return Identity{}, ErrUnauthenticated
	}
	return Identity{UserID: user.ID, Username: user.Username}, nil
}
