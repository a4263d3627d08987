// Package notify pushes per-user change notices to websocket clients.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Notice types
const (
	TypeEventCreated  = "event.created"
	TypeEventDeleted  = "event.deleted"
	TypePendingQueued = "pending.queued"
	TypeSyncCompleted = "sync.completed"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// Envelope wraps every message sent to clients.
type Envelope struct {
	Type      string `json:"type"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

type message struct {
	username string
	payload  []byte
}

// Hub tracks connected clients per user. Run must be started before clients
// connect.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	clients    map[string]map[*client]struct{}
	mu         sync.RWMutex
	register   chan *client
	unregister chan *client
	publish    chan message
	done       chan struct{}
}

// NewHub creates a hub. Browser origins must appear in allowedOrigins ("*"
// allows any); requests without an Origin header or from the same host are
// always accepted.
func NewHub(logger *slog.Logger, allowedOrigins []string) *Hub {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Hub{
		logger:     logger,
		clients:    make(map[string]map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		publish:    make(chan message, 256),
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}

// Run owns the client registry until ctx is canceled, then disconnects
// every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, set := range h.clients {
				for c := range set {
					c.close()
				}
			}
			h.clients = make(map[string]map[*client]struct{})
			h.mu.Unlock()
			close(h.done)
			return

		case c := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[c.username]
			if !ok {
				set = make(map[*client]struct{})
				h.clients[c.username] = set
			}
			set[c] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("websocket client connected", "client_id", c.id, "username", c.username)

		case c := <-h.unregister:
			h.drop(c)
			h.logger.Debug("websocket client disconnected", "client_id", c.id, "username", c.username)

		case m := <-h.publish:
			h.mu.RLock()
			var slow []*client
			for c := range h.clients[m.username] {
				select {
				case c.send <- m.payload:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()
			for _, c := range slow {
				h.logger.Warn("dropping slow websocket client", "client_id", c.id, "username", c.username)
				h.drop(c)
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.clients[c.username]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.username)
	}
	c.close()
}

// Notify queues a notice for every connection of username. It never blocks;
// notices are dropped when the hub is saturated.
func (h *Hub) Notify(username, noticeType string, data any) {
	payload, err := json.Marshal(Envelope{
		Type:      noticeType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		h.logger.Error("failed to marshal notice", "type", noticeType, "error", err)
		return
	}

	select {
	case h.publish <- message{username: username, payload: payload}:
	default:
		h.logger.Warn("notification queue full, dropping notice", "type", noticeType, "username", username)
	}
}

// ClientCount returns the number of open connections for username.
func (h *Hub) ClientCount(username string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[username])
}

// ServeWS upgrades the request and attaches the connection to username.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, username string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		id:       uuid.NewString(),
		username: username,
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

type client struct {
	id       string
	username string
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	once     sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	pong, _ := json.Marshal(map[string]string{"action": "pong"})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read error", "client_id", c.id, "error", err)
			}
			return
		}

		var req struct {
			Action string `json:"action"`
		}
		if err := json.Unmarshal(data, &req); err != nil || req.Action != "ping" {
			continue
		}
		select {
		case c.send <- pong:
		default:
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
