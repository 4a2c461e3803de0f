// Package notify delivers batch notifications to dashboard clients.
package notify

import (
	"sync"
	"time"

	"github.com/acord-review/backend/internal/models"
	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// DefaultHistorySize is used when the hub is created with a non-positive size.
const DefaultHistorySize = 50

const writeTimeout = 5 * time.Second

// Client is one registered WebSocket connection. All writes to the
// connection must go through the client so they are serialized.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// WriteJSON encodes v with sonic and writes it as a text frame.
func (c *Client) WriteJSON(v any) error {
	payload, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(payload)
}

func (c *Client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub keeps recent notifications and broadcasts new ones to all clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	history []models.Notification
	size    int
	sent    int
	now     func() time.Time
	log     *log.Logger
}

// NewHub creates a hub remembering the last historySize notifications.
func NewHub(historySize int, logger *log.Logger) *Hub {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		history: make([]models.Notification, 0, historySize),
		size:    historySize,
		now:     time.Now,
		log:     logger.WithPrefix("[Notify]"),
	}
}

// Register adds a WebSocket connection to the hub.
func (h *Hub) Register(conn *websocket.Conn) *Client {
	c := &Client{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.log.Debug("client connected", "clients", n)
	return c
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// Clients returns the number of registered clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify records the notification and sends it to every client. Delivery is
// fire-and-forget: a client whose write fails is dropped.
func (h *Hub) Notify(n models.Notification) {
	if n.Timestamp == 0 {
		n.Timestamp = h.now().UnixMilli()
	}

	h.mu.Lock()
	if len(h.history) == h.size {
		copy(h.history, h.history[1:])
		h.history = h.history[:h.size-1]
	}
	h.history = append(h.history, n)
	h.sent++
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	h.log.Info(n.Title, "description", n.Description)

	if len(clients) == 0 {
		return
	}

	payload, err := sonic.Marshal(n)
	if err != nil {
		h.log.Error("failed to encode notification", "err", err)
		return
	}

	for _, c := range clients {
		if err := c.write(payload); err != nil {
			h.log.Warn("dropping client after failed write", "err", err)
			h.Unregister(c)
			c.conn.Close()
		}
	}
}

// Recent returns up to limit of the latest notifications, oldest first.
// A non-positive limit returns the whole history.
func (h *Hub) Recent(limit int) []models.Notification {
	h.mu.RLock()
	defer h.mu.RUnlock()

	start := 0
	if limit > 0 && limit < len(h.history) {
		start = len(h.history) - limit
	}
	out := make([]models.Notification, len(h.history)-start)
	copy(out, h.history[start:])
	return out
}

// Sent returns how many notifications have been issued.
func (h *Hub) Sent() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sent
}
