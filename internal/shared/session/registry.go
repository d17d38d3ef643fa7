// Package session tracks every open connection and, for connections hosting
// a match, the live game state. The registry is the single mutation point
// for both; every operation holds the lock for a handful of synchronous
// steps and never suspends while holding it.
package session

import (
	"sync"
	"time"

	"github.com/bkohler93/ranked-backend/internal/shared/wserr"
	"github.com/bkohler93/ranked-backend/pkg/uuidstring"
)

type ConnStatus string

const (
	ConnPending ConnStatus = "pending"
	ConnStarted ConnStatus = "started"
)

// Connection is one persistent session: a game-server process or the
// lobby/bot process. IsLobby and the server address are set once by the
// handshake.
type Connection struct {
	ID            uuidstring.ID
	LastHeartbeat time.Time
	Status        ConnStatus
	IsLobby       bool
	ServerIP      string
	ServerPort    int
	Game          *Game
}

type Registry struct {
	mu    sync.Mutex
	conns map[uuidstring.ID]*Connection
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[uuidstring.ID]*Connection),
		now:   time.Now,
	}
}

// Register creates a fresh pending connection for a newly opened socket.
func (r *Registry) Register(id uuidstring.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[id] = &Connection{
		ID:            id,
		LastHeartbeat: r.now(),
		Status:        ConnPending,
	}
}

// Remove drops a connection, returning its final state for offline
// reporting.
func (r *Registry) Remove(id uuidstring.ID) (Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok {
		return Connection{}, false
	}
	delete(r.conns, id)
	return *c, true
}

func (r *Registry) Get(id uuidstring.ID) (Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok {
		return Connection{}, false
	}
	return *c, true
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Heartbeat refreshes a connection's liveness stamp.
func (r *Registry) Heartbeat(id uuidstring.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok {
		return false
	}
	c.LastHeartbeat = r.now()
	return true
}

// SetHandshake records the identity a connection declared for itself.
func (r *Registry) SetHandshake(id uuidstring.ID, serverIP string, serverPort int, isLobby bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok {
		return wserr.NotFoundf("connection %s not found", id)
	}
	c.ServerIP = serverIP
	c.ServerPort = serverPort
	c.IsLobby = isLobby
	c.LastHeartbeat = r.now()
	return nil
}

// Rekey moves a connection to a reclaimed session id, replacing any stale
// entry already under it.
func (r *Registry) Rekey(oldID, newID uuidstring.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[oldID]
	if !ok {
		return wserr.NotFoundf("connection %s not found", oldID)
	}
	delete(r.conns, oldID)
	c.ID = newID
	r.conns[newID] = c
	return nil
}

// PendingServers returns the connections eligible to host a match: pending
// status and not a lobby.
func (r *Registry) PendingServers() []Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	var servers []Connection
	for _, c := range r.conns {
		if c.Status == ConnPending && !c.IsLobby {
			servers = append(servers, *c)
		}
	}
	return servers
}

func (r *Registry) Lobbies() []Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	var lobbies []Connection
	for _, c := range r.conns {
		if c.IsLobby {
			lobbies = append(lobbies, *c)
		}
	}
	return lobbies
}

func (r *Registry) LiveIDs() []uuidstring.ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uuidstring.ID, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}

// Sweep evicts every connection whose last heartbeat is older than timeout
// and returns the evicted set.
func (r *Registry) Sweep(timeout time.Duration) []Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	var evicted []Connection
	cutoff := r.now().Add(-timeout)
	for id, c := range r.conns {
		if c.LastHeartbeat.Before(cutoff) {
			evicted = append(evicted, *c)
			delete(r.conns, id)
		}
	}
	return evicted
}

// AssignGame hands a new game to a pending game server and marks it started.
// Only the matchmaking tick calls this; a client can never request a game
// directly.
func (r *Registry) AssignGame(id uuidstring.ID, g *Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok {
		return wserr.NotFoundf("connection %s not found", id)
	}
	if c.IsLobby {
		return wserr.State("lobby cannot host a game")
	}
	if c.Status != ConnPending || c.Game != nil {
		return wserr.State("server already has a game assigned")
	}
	c.Status = ConnStarted
	c.Game = g
	return nil
}

// ClearGame removes the game from a connection and resets it to pending,
// returning the detached game. The slot is fresh afterwards; the game record
// is never reused.
func (r *Registry) ClearGame(id uuidstring.ID) (*Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok {
		return nil, wserr.NotFoundf("connection %s not found", id)
	}
	if c.Game == nil {
		return nil, wserr.State("no active game")
	}
	g := c.Game
	c.Game = nil
	c.Status = ConnPending
	return g, nil
}

// WithGame runs fn against a connection's live game under the registry lock.
// fn must not suspend. Returns a state error when no game is assigned.
func (r *Registry) WithGame(id uuidstring.ID, fn func(g *Game) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	if !ok {
		return wserr.NotFoundf("connection %s not found", id)
	}
	if c.Game == nil {
		return wserr.State("no active game")
	}
	return fn(c.Game)
}
