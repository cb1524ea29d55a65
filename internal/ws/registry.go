package ws

import "github.com/samber/lo"

// Registry tracks live connections and enforces at most one connection
// per user. The forward and reverse maps are only ever updated
// together. The registry is owned by the hub goroutine and must not be
// touched from anywhere else; that single-writer discipline is what
// makes its operations atomic without a lock.
type Registry struct {
	byConn map[string]*Client // connection id -> client
	byUser map[string]string  // user id -> connection id
}

func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]*Client),
		byUser: make(map[string]string),
	}
}

// Register inserts the client under both maps. If another connection
// was still registered for the same user it is removed first and
// returned, so the caller can tear down its transport. The newer
// connection always wins.
func (r *Registry) Register(c *Client) (evicted *Client) {
	if oldConn, ok := r.byUser[c.identity.UserID]; ok && oldConn != c.id {
		evicted = r.byConn[oldConn]
		delete(r.byConn, oldConn)
	}
	r.byConn[c.id] = c
	r.byUser[c.identity.UserID] = c.id
	return evicted
}

// Remove deletes the connection if present and returns it; it returns
// nil for unknown or already-superseded connections. The reverse
// mapping is only cleared when it still points at this connection id —
// a stale connection must never unmap its replacement.
func (r *Registry) Remove(connID string) *Client {
	c, ok := r.byConn[connID]
	if !ok {
		return nil
	}
	delete(r.byConn, connID)
	if r.byUser[c.identity.UserID] == connID {
		delete(r.byUser, c.identity.UserID)
	}
	return c
}

func (r *Registry) Get(connID string) (*Client, bool) {
	c, ok := r.byConn[connID]
	return c, ok
}

// All returns the live clients in no particular order.
func (r *Registry) All() []*Client {
	return lo.Values(r.byConn)
}

// Usernames returns the distinct usernames currently connected.
// Distinctness holds by construction: one connection per user.
func (r *Registry) Usernames() []string {
	return lo.Map(lo.Values(r.byConn), func(c *Client, _ int) string {
		return c.identity.Username
	})
}

// Count reports the number of distinct users connected.
func (r *Registry) Count() int {
	return len(r.byUser)
}
