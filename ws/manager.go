package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub fans backend events out to connected dashboard clients.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*websocket.Conn // subscriber id -> conn
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]*websocket.Conn)}
}

// Register adds a subscriber connection, replacing any existing one with
// the same id.
func (h *Hub) Register(id string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.conns[id]; ok && old != conn {
		_ = old.Close()
	}
	h.conns[id] = conn
}

// Unregister removes and closes a subscriber connection.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conn, ok := h.conns[id]; ok {
		_ = conn.Close()
		delete(h.conns, id)
	}
}

// Publish broadcasts an event envelope to all subscribers. Connections
// that fail to write are dropped; event delivery is best effort.
func (h *Hub) Publish(event string, data map[string]interface{}) {
	envelope := map[string]interface{}{
		"type":      event,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			_ = conn.Close()
			delete(h.conns, id)
		}
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
