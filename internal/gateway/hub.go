// Package gateway exposes the engine to chart consumers over WebSocket.
// The hub fans out snapshot envelopes to every connected client and funnels
// activate/deactivate commands into a single channel drained by the engine
// loop, so clients never touch the indicator state directly.
package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"chart-systemv1/internal/model"

	"github.com/gorilla/websocket"
)

// Command is a client request to change the active indicator set. The
// engine loop executes it and replies on the originating client.
type Command struct {
	Client *Client
	Action string // "activate" or "deactivate"
	ID     string
	ReqID  string
}

// Hub manages WebSocket clients and snapshot fan-out.
type Hub struct {
	// Commands carries activate/deactivate requests to the engine loop.
	Commands chan Command

	// Optional hook — called when the client count changes.
	OnClientChange func(n int)

	mu      sync.RWMutex
	clients map[*Client]bool
	latest  []byte // last snapshot envelope, sent to new clients
}

// NewHub creates a hub with an empty client set.
func NewHub() *Hub {
	return &Hub{
		Commands: make(chan Command, 64),
		clients:  make(map[*Client]bool),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

// HandleWS upgrades an HTTP connection and registers the client.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] upgrade error: %v", err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	initial := h.latest
	h.mu.Unlock()

	log.Printf("[gateway] ws client connected (%d total)", count)
	if h.OnClientChange != nil {
		h.OnClientChange(count)
	}

	if initial != nil {
		client.enqueue(initial)
	}

	go client.writePump()
	go client.readPump()
}

// RemoveClient removes a client from the hub. The client's send channel is
// deliberately left open: the engine loop may still hold a queued command
// from this client and reply to it after the disconnect. writePump exits
// through the closed connection instead, and the channel is collected with
// the client.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()

	if h.OnClientChange != nil {
		h.OnClientChange(count)
	}
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// snapshotEnvelope is the wire shape pushed after every recompute.
type snapshotEnvelope struct {
	Type   string                  `json:"type"`
	TS     int64                   `json:"ts"`
	Active []string                `json:"active"`
	Series map[string]model.Series `json:"series"`
	Candle *model.Candle           `json:"candle,omitempty"`
}

// BroadcastSnapshot fans the current active series mapping out to every
// client and returns the envelope so callers can mirror it elsewhere.
// The latest envelope is retained for newly connecting clients.
func (h *Hub) BroadcastSnapshot(active []string, series map[string]model.Series, last *model.Candle) []byte {
	envelope, err := json.Marshal(snapshotEnvelope{
		Type:   "snapshot",
		TS:     time.Now().UnixMilli(),
		Active: active,
		Series: series,
		Candle: last,
	})
	if err != nil {
		log.Printf("[gateway] snapshot marshal error: %v", err)
		return nil
	}

	h.mu.Lock()
	h.latest = envelope
	for client := range h.clients {
		select {
		case client.send <- envelope:
		default: // slow client — drop, next snapshot supersedes
		}
	}
	h.mu.Unlock()

	return envelope
}
