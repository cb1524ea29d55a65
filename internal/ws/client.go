package ws

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chatroom/internal/auth"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
	maxFrameSize = 4096
)

// Client is one live websocket connection tied to an authenticated
// user. Its fields never change after construction; a reconnect is a
// new Client.
type Client struct {
	id       string
	identity auth.Identity
	joinedAt time.Time

	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// closeReason is set by the hub before it closes send, so the
	// writer can say why in the close frame. The channel close is the
	// synchronization point.
	closeReason string
}

func newClient(hub *Hub, conn *websocket.Conn, identity auth.Identity) *Client {
	return &Client{
		id:       uuid.NewString(),
		identity: identity,
		joinedAt: time.Now().UTC(),
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, hub.sendBuffer),
	}
}

// readPump relays inbound events to the hub. One per connection; the
// hub is the only goroutine that acts on what it reads.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var ev clientEvent
		if err := c.conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.log.Debug("read error", "user", c.identity.Username, "err", err)
			}
			return
		}
		c.hub.inbound <- inboundEvent{client: c, event: ev}
	}
}

// writePump drains the send channel to the connection. The hub closing
// the channel is the signal to send a close frame and tear down.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, c.closeReason))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
