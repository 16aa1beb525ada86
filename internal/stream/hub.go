package stream

import (
	"net/http"
	"sync"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ClientMsg is a control message from a spectator connection.
type ClientMsg struct {
	Type   string `json:"type"` // subscribe | unsubscribe | ping
	DuelID string `json:"duel_id,omitempty"`
}

// Envelope wraps an engine event for the wire.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// client wraps a websocket connection with a write mutex. gorilla supports
// at most one concurrent writer per connection, and both the connection's
// control loop and Broadcast write to it.
type client struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *client) writeMessage(messageType int, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(messageType, payload)
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(v)
}

// Hub fans engine events out to websocket spectators. Each connection
// subscribes to the duel ids it wants to follow; Broadcast delivers one
// event to every connection subscribed to that duel.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu   sync.RWMutex
	subs map[string]map[*client]struct{} // duelID -> connections
}

// NewHub creates a hub with the given origin policy. A nil policy allows
// every origin, which is only appropriate behind a trusted proxy.
func NewHub(allowOrigin func(r *http.Request) bool, logger *zap.Logger) *Hub {
	if allowOrigin == nil {
		allowOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		logger:   logger,
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS upgrades the request and serves the connection's control loop
// until the client disconnects. Reads stay on this goroutine; writes go
// through the client's mutex because Broadcast targets the same connection
// from other goroutines.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("ws-upgrade-failed", zap.Error(err))
		return
	}
	defer ws.Close()

	c := &client{ws: ws}

	ConnectionsActive.Inc()
	defer ConnectionsActive.Dec()

	for {
		var msg ClientMsg
		err = ws.ReadJSON(&msg)
		if err != nil {
			break
		}

		switch msg.Type {
		case "subscribe":
			if msg.DuelID == "" {
				continue
			}
			h.mu.Lock()
			if _, ok := h.subs[msg.DuelID]; !ok {
				h.subs[msg.DuelID] = make(map[*client]struct{})
			}
			h.subs[msg.DuelID][c] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			h.mu.Lock()
			if set, ok := h.subs[msg.DuelID]; ok {
				delete(set, c)
				if len(set) == 0 {
					delete(h.subs, msg.DuelID)
				}
			}
			h.mu.Unlock()
		case "ping":
			_ = c.writeJSON(map[string]string{"type": "pong"})
		}
	}

	// Drop the connection from every subscription on disconnect.
	h.mu.Lock()
	for _, set := range h.subs {
		delete(set, c)
	}
	h.mu.Unlock()
}

// Broadcast delivers an event envelope to every connection subscribed to the
// duel. Write errors are per-connection and do not abort the fan-out.
func (h *Hub) Broadcast(duelID string, env Envelope) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.subs[duelID]))
	for c := range h.subs[duelID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	payload, err := json.Marshal(env)
	if err != nil {
		h.logger.Warn("ws-encode-failed", zap.String("duel-id", duelID), zap.Error(err))
		return
	}

	for _, c := range clients {
		err = c.writeMessage(websocket.TextMessage, payload)
		if err != nil {
			h.logger.Debug("ws-write-failed", zap.Error(err))
			continue
		}
		MessagesSentTotal.Inc()
	}
}

// Close drops every subscription and closes the remaining connections.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	seen := make(map[*client]struct{})
	for _, set := range h.subs {
		for c := range set {
			seen[c] = struct{}{}
		}
	}
	for c := range seen {
		_ = c.ws.Close()
	}
	h.subs = make(map[string]map[*client]struct{})
	h.logger.Info("stream-hub-closed", zap.Int("connections", len(seen)))
	return nil
}
