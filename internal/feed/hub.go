// Package feed broadcasts compiled alerts to connected operator
// consoles over websockets. The consoles themselves are external; this
// is only the outbound feed.
package feed

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/pauldevelopai/alibi-sub001/internal/alert"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The feed is read-only and carries no credentials; origin policy
	// belongs to the external auth layer fronting this daemon.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans emitted alerts out to every connected client. Slow clients
// are disconnected rather than allowed to stall the pipeline.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]bool)}
}

// Broadcast queues the alert to all clients. Never blocks: a client
// with a full send buffer is dropped.
func (h *Hub) Broadcast(msg alert.AlertMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Feed] Marshal alert %s: %v", msg.AlertID, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			go h.drop(c)
		}
	}
}

// ServeWS upgrades the request and attaches the client to the feed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Feed] Upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 64)}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *Hub) writeLoop(c *client) {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.drop(c)
			return
		}
	}
}

// readLoop only exists to notice disconnects; the feed accepts no
// inbound messages.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		c.conn.Close()
	}
	h.mu.Unlock()
}

// ClientCount reports connected consoles, for health reporting.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
