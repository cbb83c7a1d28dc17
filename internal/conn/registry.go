// internal/conn/registry.go
package conn

import (
	"log"
	"sync"
	"time"

	"github.com/nrujac/gamehub/internal/errs"
)

// Registry owns the identity<->connection mapping. At most one active
// connection exists per username; a fresh socket for a username the registry
// already tracks replaces (and closes) the old one.
//
// The lock is held only for map access, never across a broadcast.
type Registry struct {
	mu     sync.Mutex
	byUser map[string]*Connection
	byID   map[string]*Connection
	rooms  map[string]string // connection ID -> room ID the socket is joined to
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]*Connection),
		byID:   make(map[string]*Connection),
		rooms:  make(map[string]string),
	}
}

// Add registers a connection, displacing any previous connection for the
// same username. The displaced connection (if any) is returned already
// closed so the caller can log or tear down its pumps.
func (r *Registry) Add(c *Connection) *Connection {
	r.mu.Lock()
	old := r.byUser[c.Identity.Username]
	if old != nil {
		delete(r.byID, old.ID)
		delete(r.rooms, old.ID)
	}
	r.byUser[c.Identity.Username] = c
	r.byID[c.ID] = c
	r.mu.Unlock()

	if old != nil {
		log.Printf("registry: user %s reconnected, displacing conn %s", c.Identity.Username, old.ID)
		closeConnection(old)
	}
	return old
}

// Remove drops a connection. A stale entry (the username has since
// reconnected on a different socket) is left alone.
func (r *Registry) Remove(connID string) {
	r.mu.Lock()
	c, ok := r.byID[connID]
	if ok {
		delete(r.byID, connID)
		delete(r.rooms, connID)
		if cur := r.byUser[c.Identity.Username]; cur != nil && cur.ID == connID {
			delete(r.byUser, c.Identity.Username)
		}
	}
	r.mu.Unlock()

	if ok {
		closeConnection(c)
	}
}

func closeConnection(c *Connection) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("registry: recovered closing conn %s: %v", c.ID, r)
		}
	}()
	close(c.OutChan)
	if c.Cancel != nil {
		c.Cancel()
	}
}

// Get looks a connection up by its ID.
func (r *Registry) Get(connID string) (*Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[connID]
	return c, ok
}

// GetByUsername returns the live connection for a username, if any.
func (r *Registry) GetByUsername(username string) (*Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byUser[username]
	return c, ok
}

// SetRoom records which room a connection is currently joined to.
func (r *Registry) SetRoom(connID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[connID]; ok {
		r.rooms[connID] = roomID
	}
}

// ClearRoom marks a connection as back in the lobby view.
func (r *Registry) ClearRoom(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, connID)
}

// RoomOf returns the room a connection is joined to, or "".
func (r *Registry) RoomOf(connID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms[connID]
}

// InRoom reports whether the named user is currently joined to any room.
func (r *Registry) InRoom(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byUser[username]
	if !ok {
		return false
	}
	_, joined := r.rooms[c.ID]
	return joined
}

// LobbyConnections snapshots every connection not joined to a room; these are
// the targets of lobby-scoped broadcasts.
func (r *Registry) LobbyConnections() []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Connection, 0, len(r.byID))
	for id, c := range r.byID {
		if _, joined := r.rooms[id]; !joined {
			out = append(out, c)
		}
	}
	return out
}

// Usernames snapshots every online username, for the lobby users list.
func (r *Registry) Usernames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.byUser))
	for name := range r.byUser {
		out = append(out, name)
	}
	return out
}

// AwaitUser waits, with a bounded retry, for a live connection belonging to
// the named user. Used when an operation needs to notify a counterpart who
// may be mid-reconnect; it never blocks entity locks.
func (r *Registry) AwaitUser(username string, attempts int, delay time.Duration) (*Connection, error) {
	for i := 0; i < attempts; i++ {
		if c, ok := r.GetByUsername(username); ok {
			return c, nil
		}
		time.Sleep(delay)
	}
	return nil, errs.New(errs.Disconnected, "user %s is not connected", username)
}
