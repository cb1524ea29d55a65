package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gorilla/websocket"

	"chatroom/internal/auth"
	"chatroom/internal/models"
	"chatroom/internal/store"
)

const (
	defaultHistoryLimit     = 50
	defaultMaxMessageLength = 500
	defaultSendBuffer       = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type inboundEvent struct {
	client *Client
	event  clientEvent
}

// ConnectedUser is a point-in-time view of one connection, exposed for
// the stats endpoint.
type ConnectedUser struct {
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joinedAt"`
}

type Options struct {
	HistoryLimit     int // messages replayed to a new connection
	MaxMessageLength int // runes, after trimming
	SendBuffer       int // per-client outbound queue
}

// Hub owns the connection registry and all broadcast fan-out. Every
// mutation of shared state happens on the Run goroutine; the exported
// methods communicate with it through channels.
type Hub struct {
	log      *slog.Logger
	store    store.Store
	verifier *auth.Verifier
	registry *Registry

	historyLimit     int
	maxMessageLength int
	sendBuffer       int

	register   chan *Client
	unregister chan *Client
	inbound    chan inboundEvent
	events     chan Event
	snapshots  chan chan []ConnectedUser
}

func NewHub(log *slog.Logger, st store.Store, verifier *auth.Verifier, opts Options) *Hub {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = defaultMaxMessageLength
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	return &Hub{
		log:              log,
		store:            st,
		verifier:         verifier,
		registry:         NewRegistry(),
		historyLimit:     opts.HistoryLimit,
		maxMessageLength: opts.MaxMessageLength,
		sendBuffer:       opts.SendBuffer,
		register:         make(chan *Client),
		unregister:       make(chan *Client),
		inbound:          make(chan inboundEvent),
		events:           make(chan Event),
		snapshots:        make(chan chan []ConnectedUser),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.handleConnect(client)
		case client := <-h.unregister:
			h.handleDisconnect(client)
		case in := <-h.inbound:
			h.handleEvent(in)
		case ev := <-h.events:
			h.broadcast(ev)
		case resp := <-h.snapshots:
			resp <- h.snapshot()
		}
	}
}

// ServeWS authenticates the handshake and admits the connection.
// Browsers cannot set headers on a websocket dial, so the token
// normally travels in a query parameter; a bearer header works too.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}

	identity, err := h.verifier.Verify(token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := newClient(h, conn, identity)
	h.register <- client
	go client.writePump()
	go client.readPump()
}

// Broadcast publishes an event to every connected client. Safe to call
// from any goroutine; used by the HTTP ingress so REST-created messages
// reach clients through the same channel as realtime ones.
func (h *Hub) Broadcast(ev Event) {
	h.events <- ev
}

// Snapshot returns the current connections, served from the hub
// goroutine so it never observes a half-applied registry update.
func (h *Hub) Snapshot() []ConnectedUser {
	resp := make(chan []ConnectedUser, 1)
	h.snapshots <- resp
	return <-resp
}

func (h *Hub) handleConnect(c *Client) {
	if evicted := h.registry.Register(c); evicted != nil {
		h.log.Info("replacing connection",
			"user", c.identity.Username, "old", evicted.id, "new", c.id)
		evicted.closeReason = "signed in from another location"
		close(evicted.send)
	}

	history, err := h.store.RecentMessages(h.historyLimit)
	if err != nil {
		h.log.Error("load history", "err", err)
	}
	if history == nil {
		history = []models.ChatMessage{}
	}
	h.sendTo(c, Event{Type: EventMessageHistory, Data: history})

	h.broadcastExcept(c, joinedEvent(c.identity.Username))
	h.broadcastPresence()

	h.log.Info("connected", "user", c.identity.Username, "conn", c.id)
}

func (h *Hub) handleDisconnect(c *Client) {
	if h.registry.Remove(c.id) == nil {
		// Unknown or superseded connection: the user is still present
		// through a newer one, so nothing is announced.
		return
	}
	close(c.send)

	h.broadcast(leftEvent(c.identity.Username))
	h.broadcastPresence()
	// The client may have vanished mid-keystroke; clear any typing
	// indicator it left behind.
	h.broadcast(Event{Type: EventUserTyping, Data: UserTypingPayload{Username: c.identity.Username}})

	h.log.Info("disconnected", "user", c.identity.Username, "conn", c.id)
}

func (h *Hub) handleEvent(in inboundEvent) {
	if _, ok := h.registry.Get(in.client.id); !ok {
		// Event from a connection racing its own teardown.
		return
	}

	switch in.event.Type {
	case EventMessage:
		h.handleChatMessage(in.client, in.event.Data)
	case EventTyping:
		h.handleTyping(in.client, in.event.Data)
	case EventGetUsersList:
		h.sendTo(in.client, Event{Type: EventUsersList, Data: h.registry.Usernames()})
	default:
		h.sendTo(in.client, errorEvent(fmt.Sprintf("unknown event type: %s", in.event.Type)))
	}
}

func (h *Hub) handleChatMessage(c *Client, data json.RawMessage) {
	var p MessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.sendTo(c, errorEvent("invalid message payload"))
		return
	}

	body := strings.TrimSpace(p.Message)
	if body == "" {
		h.sendTo(c, errorEvent("message is empty"))
		return
	}
	if utf8.RuneCountInString(body) > h.maxMessageLength {
		h.sendTo(c, errorEvent(fmt.Sprintf("message too long (max %d characters)", h.maxMessageLength)))
		return
	}

	msg, err := h.store.AppendMessage(c.identity.Username, body)
	if err != nil {
		h.log.Error("save message", "user", c.identity.Username, "err", err)
		h.sendTo(c, errorEvent("failed to send message"))
		return
	}

	// The sender gets the persisted message through the same broadcast
	// as everyone else; no local echo is authoritative.
	h.broadcast(Event{Type: EventMessage, Data: msg})
}

func (h *Hub) handleTyping(c *Client, data json.RawMessage) {
	var p TypingPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	h.broadcastExcept(c, Event{
		Type: EventUserTyping,
		Data: UserTypingPayload{Username: c.identity.Username, IsTyping: p.IsTyping},
	})
}

func (h *Hub) broadcastPresence() {
	h.broadcast(Event{Type: EventUsersList, Data: h.registry.Usernames()})
}

func (h *Hub) broadcast(ev Event) {
	h.broadcastExcept(nil, ev)
}

func (h *Hub) broadcastExcept(skip *Client, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("marshal event", "type", ev.Type, "err", err)
		return
	}

	var stalled []*Client
	for _, c := range h.registry.All() {
		if c == skip {
			continue
		}
		select {
		case c.send <- data:
		default:
			stalled = append(stalled, c)
		}
	}
	// A client that cannot drain its buffer is cut loose, outside the
	// iteration so the registry is not mutated mid-range.
	for _, c := range stalled {
		h.log.Warn("dropping stalled connection", "user", c.identity.Username, "conn", c.id)
		h.handleDisconnect(c)
	}
}

func (h *Hub) sendTo(c *Client, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("marshal event", "type", ev.Type, "err", err)
		return
	}
	select {
	case c.send <- data:
	default:
		h.handleDisconnect(c)
	}
}

func (h *Hub) snapshot() []ConnectedUser {
	users := make([]ConnectedUser, 0, h.registry.Count())
	for _, c := range h.registry.All() {
		users = append(users, ConnectedUser{
			Username: c.identity.Username,
			JoinedAt: c.joinedAt,
		})
	}
	return users
}
