// Package livefeed streams conversation activity to admin dashboards over websockets.
package livefeed

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wolfman30/neumaticos-whatsapp/pkg/logging"
)

// Event types.
const (
	EventMessage = "message"
	EventPaused  = "paused"
	EventResumed = "resumed"
	EventStatus  = "status"
	EventHello   = "hello"
)

const (
	clientBuffer = 32
	writeTimeout = 5 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 45 * time.Second
	maxReadBytes = 1024
)

// Event is one item of the feed.
type Event struct {
	Type           string    `json:"type"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Role           string    `json:"role,omitempty"`
	Content        string    `json:"content,omitempty"`
	Intent         string    `json:"intent,omitempty"`
	SentByHuman    bool      `json:"sent_by_human,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	At             time.Time `json:"at"`
}

type client struct {
	id string
	// conversationID, when set, limits the client to one conversation.
	conversationID string
	send           chan Event
}

// Hub fans events out to connected viewers. A viewer whose buffer is full is
// disconnected rather than slowing the broadcaster.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logging.Logger
	now      func() time.Time

	mu      sync.RWMutex
	clients map[string]*client
}

// NewHub builds a hub. An empty allowedOrigins accepts same-origin requests only.
func NewHub(allowedOrigins []string, logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	h := &Hub{logger: logger, now: time.Now, clients: make(map[string]*client)}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowed["*"] || allowed[origin] {
				return true
			}
			return origin == "http://"+r.Host || origin == "https://"+r.Host
		},
	}
	return h
}

// Broadcast queues evt for every interested viewer.
func (h *Hub) Broadcast(evt Event) {
	if h == nil {
		return
	}
	if evt.At.IsZero() {
		evt.At = h.now().UTC()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		if c.conversationID != "" && c.conversationID != evt.ConversationID {
			continue
		}
		select {
		case c.send <- evt:
		default:
			h.logger.Warn("livefeed: dropping slow viewer", "client_id", id)
			delete(h.clients, id)
			close(c.send)
		}
	}
}

// Clients reports the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if current, ok := h.clients[c.id]; ok && current == c {
		delete(h.clients, c.id)
		close(c.send)
	}
	h.mu.Unlock()
}

// ServeHTTP upgrades the request and streams events until the viewer leaves.
// The optional conversation_id query parameter filters the feed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("livefeed: upgrade failed", "error", err)
		return
	}
	c := &client{
		id:             uuid.NewString(),
		conversationID: r.URL.Query().Get("conversation_id"),
		send:           make(chan Event, clientBuffer),
	}
	c.send <- Event{Type: EventHello, ConversationID: c.conversationID, At: h.now().UTC()}
	h.register(c)
	h.logger.Info("livefeed: viewer connected", "client_id", c.id, "conversation_id", c.conversationID)

	go h.writePump(conn, c)
	h.readPump(conn, c)
}

// readPump discards viewer input and notices disconnects.
func (h *Hub) readPump(conn *websocket.Conn, c *client) {
	defer func() {
		h.unregister(c)
		_ = conn.Close()
		h.logger.Info("livefeed: viewer disconnected", "client_id", c.id)
	}()
	conn.SetReadLimit(maxReadBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case evt, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
