// internal/conn/conn.go
package conn

import (
	"log"

	"github.com/google/uuid"
)

// Role is the authenticated identity's privilege level.
type Role string

const (
	RoleGuest  Role = "guest"
	RolePlayer Role = "player"
	RoleAdmin  Role = "admin"
)

// Identity is what the authentication handshake established for a socket.
type Identity struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// Connection is one live socket's presence in the server. Outbound messages
// go through OutChan; a write pump owned by the ws handler drains it.
type Connection struct {
	ID       string
	Identity Identity

	// Cancel stops the goroutines attached to this socket.
	Cancel  func()
	OutChan chan map[string]interface{}
}

// NewConnection allocates a connection with a buffered outbound channel.
func NewConnection(identity Identity, cancel func()) *Connection {
	return &Connection{
		ID:       uuid.NewString(),
		Identity: identity,
		Cancel:   cancel,
		OutChan:  make(chan map[string]interface{}, 16),
	}
}

// Write pushes a message onto the connection's OutChan without blocking.
// A full or closed channel drops the message; entity locks must never wait on
// a slow socket.
func (c *Connection) Write(msg map[string]interface{}) {
	defer func() {
		// OutChan may be closed concurrently by registry removal.
		if r := recover(); r != nil {
			log.Printf("conn %s: dropped write to closed channel", c.ID)
		}
	}()
	select {
	case c.OutChan <- msg:
	default:
		msgType, _ := msg["type"].(string)
		log.Printf("conn %s (%s): OutChan full, dropped message type %q", c.ID, c.Identity.Username, msgType)
	}
}

// WriteError sends a typed error event to this connection only.
func (c *Connection) WriteError(kind, message string) {
	c.Write(map[string]interface{}{
		"type":    "error",
		"kind":    kind,
		"message": message,
	})
}
