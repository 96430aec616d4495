package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/wricardo/resource-rush/game/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Event names sent to clients
const (
	EventStateUpdate = "state_update"
	EventMoveResult  = "move_result"
	EventBulkResult  = "bulk_move_result"
	EventConfirm     = "confirm"
	EventReset       = "reset"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the JSON frame sent to clients
type Message struct {
	SessionID string           `json:"session_id"`
	Event     string           `json:"event"`
	GameState *engine.Snapshot `json:"game_state,omitempty"`
	Data      interface{}      `json:"data,omitempty"`
}

// Client is one WebSocket connection watching a session
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

// Hub keeps the clients of every session and fans out updates to them.
// Broadcasts never block: a client whose buffer is full is dropped.
type Hub struct {
	sessions map[string]map[*Client]bool
	mu       sync.RWMutex

	register   chan *Client
	unregister chan *Client
	quit       chan struct{}
	stopOnce   sync.Once
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
	}
}

// Run processes register and unregister requests until ctx is done, then
// disconnects every client
func (h *Hub) Run(ctx context.Context) {
	defer h.stop()
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) stop() {
	h.stopOnce.Do(func() {
		close(h.quit)

		h.mu.Lock()
		defer h.mu.Unlock()
		for id, clients := range h.sessions {
			for client := range clients {
				close(client.send)
			}
			delete(h.sessions, id)
		}
	})
}

// ServeWS upgrades the request and attaches the connection to a session.
// initial, when not nil, is the first frame the client receives.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string, initial *engine.Snapshot) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "session", sessionID, "err", err)
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, engine.WebSocketBufferSize),
		sessionID: sessionKey(sessionID),
	}

	if initial != nil {
		if data, err := encode(sessionID, EventStateUpdate, initial, nil); err == nil {
			client.send <- data
		}
	}

	select {
	case h.register <- client:
	case <-h.quit:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// BroadcastToSession sends the latest snapshot to every client of a session
func (h *Hub) BroadcastToSession(sessionID string, state *engine.Snapshot) {
	data, err := encode(sessionID, EventStateUpdate, state, nil)
	if err != nil {
		log.Warn("failed to marshal websocket message", "session", sessionID, "err", err)
		return
	}
	h.deliver(sessionID, data)
}

// BroadcastEvent sends a named event with an arbitrary payload to every
// client of a session
func (h *Hub) BroadcastEvent(sessionID, event string, data interface{}) {
	frame, err := encode(sessionID, event, nil, data)
	if err != nil {
		log.Warn("failed to marshal websocket event", "session", sessionID, "event", event, "err", err)
		return
	}
	h.deliver(sessionID, frame)
}

// ClientCount returns the number of clients watching a session
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionKey(sessionID)])
}

func sessionKey(id string) string {
	return strings.ToLower(id)
}

func encode(sessionID, event string, state *engine.Snapshot, data interface{}) ([]byte, error) {
	return json.Marshal(&Message{
		SessionID: sessionID,
		Event:     event,
		GameState: state,
		Data:      data,
	})
}

// deliver queues a frame on every client of a session without blocking
func (h *Hub) deliver(sessionID string, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := sessionKey(sessionID)
	for client := range h.sessions[key] {
		select {
		case client.send <- data:
		default:
			log.Warn("dropping slow websocket client", "session", key)
			h.removeLocked(client)
		}
	}
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true

	log.Debug("websocket client registered", "session", client.sessionID, "clients", len(h.sessions[client.sessionID]))
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

// removeLocked closes a client's queue once. h.mu must be held.
func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.sessions[client.sessionID]
	if !ok || !clients[client] {
		return
	}

	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.sessions, client.sessionID)
	}

	log.Debug("websocket client unregistered", "session", client.sessionID, "clients", len(clients))
}

// readPump drains the connection so control frames are processed. Clients
// do not send commands.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn("websocket read failed", "session", c.sessionID, "err", err)
			}
			return
		}
	}
}

// writePump writes queued frames and pings until the queue is closed
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One frame per message so clients can parse each as JSON
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
