package backend

import (
	"sync"

	"github.com/bkohler93/ranked-backend/internal/shared/message"
	"github.com/bkohler93/ranked-backend/pkg/uuidstring"
)

// Hub maps session ids to live clients so handlers and scheduler loops can
// push envelopes to specific connections.
type Hub struct {
	mu      sync.Mutex
	clients map[uuidstring.ID]*Client
}

func NewHub() *Hub {
	return &Hub{clients: make(map[uuidstring.ID]*Client)}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID()] = c
}

func (h *Hub) Unregister(id uuidstring.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, id)
}

// Rekey moves a client to a reclaimed session id.
func (h *Hub) Rekey(oldID, newID uuidstring.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[oldID]
	if !ok {
		return
	}
	delete(h.clients, oldID)
	h.clients[newID] = c
}

// Send pushes an envelope to one session; unknown ids are dropped silently,
// the target may have disconnected since the caller snapshotted state.
func (h *Hub) Send(id uuidstring.ID, out message.Outbound) {
	h.mu.Lock()
	c, ok := h.clients[id]
	h.mu.Unlock()
	if ok {
		c.Send(out)
	}
}

// Broadcast pushes an envelope to every live client.
func (h *Hub) Broadcast(out message.Outbound) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		c.Send(out)
	}
}
