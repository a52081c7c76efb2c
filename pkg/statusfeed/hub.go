// Package statusfeed broadcasts orchestrator heartbeat summaries to
// connected operator consoles over a websocket.
package statusfeed

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opsloom/sentinel/pkg/orchestrator"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Hub fans out orchestrator.Summary broadcasts to every connected client.
// Mirrors the Remote Executor's audit ring in spirit: a mutex-protected
// in-memory set, no durable subscriber list.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	log     *slog.Logger
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub constructs an empty Hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{clients: make(map[*client]struct{}), log: log}
}

// Broadcast encodes summary as JSON and sends it to every connected client.
// Clients whose send buffer is full are dropped rather than blocking the
// orchestrator's heartbeat loop.
func (h *Hub) Broadcast(summary orchestrator.Summary) {
	payload, err := json.Marshal(summary)
	if err != nil {
		h.log.Error("statusfeed: marshaling summary", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.log.Warn("statusfeed: dropping slow client")
			h.removeLocked(c)
		}
	}
}

// ServeHTTP upgrades the connection to a websocket and registers it for
// broadcasts until the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("statusfeed: upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 16)}
	h.add(c)
	defer h.remove(c)

	go c.writePump()
	c.readPump(h.log)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		c.conn.Close()
	}
}

// writePump drains the client's send channel to its websocket connection.
func (c *client) writePump() {
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// readPump discards incoming messages but keeps the read loop alive so
// disconnects and pongs are observed; operator consoles are subscribe-only.
func (c *client) readPump(log *slog.Logger) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
