package api

import (
	"encoding/json"
	"net/http"
	"sync"

	ws "github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/warp/carepoints/session"
)

// Message is the change notification pushed to every websocket client.
type Message struct {
	Type   string `json:"type"`
	Entity string `json:"entity"`
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
	Op     string `json:"op,omitempty"`
}

// NewMessage derives Type from entity and action, e.g. "coupon_created".
func NewMessage(c session.Change) Message {
	return Message{
		Type:   c.Entity + "_" + c.Action,
		Entity: c.Entity,
		Action: c.Action,
		ID:     c.ID,
		Op:     c.Op,
	}
}

// Hub tracks connected clients and fans out messages to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		log:     log.Named("hub"),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes c and closes its send channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast queues msg for every client. Clients with a full buffer miss it.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("marshal broadcast", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.Debug("client buffer full, message dropped", zap.String("type", msg.Type))
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and runs it as a hub client until it
// disconnects.
// GET /api/ws
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		InsecureSkipVerify: true, // single household; CORS is handled by the router
	})
	if err != nil {
		h.log.Warn("websocket accept", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	NewClient(h, conn).Run(r.Context())
}
