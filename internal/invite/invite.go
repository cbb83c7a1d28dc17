// internal/invite/invite.go
package invite

import (
	"log"
	"sync"
	"time"

	"github.com/nrujac/gamehub/internal/conn"
	"github.com/nrujac/gamehub/internal/engine"
	"github.com/nrujac/gamehub/internal/errs"
	"github.com/nrujac/gamehub/internal/room"
)

// Invitation is one outstanding game invitation. At most one exists per
// sender at any time; a sender must cancel before sending another.
type Invitation struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	GameType  engine.GameType `json:"gameType"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Coordinator tracks outstanding invitations keyed by sender and resolves
// accept/decline/cancel. Room creation on acceptance is delegated to the
// room store.
type Coordinator struct {
	mu       sync.Mutex
	bySender map[string]*Invitation
	rooms    *room.Store
	conns    *conn.Registry
}

func NewCoordinator(rooms *room.Store, conns *conn.Registry) *Coordinator {
	return &Coordinator{
		bySender: make(map[string]*Invitation),
		rooms:    rooms,
		conns:    conns,
	}
}

// Send records an invitation from the acting connection to the named user
// and notifies them. Fails if the sender already has one outstanding, if the
// target is seated or spectating in a room, or if the target never comes
// online within the bounded wait.
func (c *Coordinator) Send(from *conn.Connection, to string, gameType engine.GameType) error {
	sender := from.Identity.Username
	if sender == to {
		return errs.New(errs.NotEligible, "you cannot invite yourself")
	}

	c.mu.Lock()
	if _, exists := c.bySender[sender]; exists {
		c.mu.Unlock()
		return errs.New(errs.AlreadyExists, "you already have an outstanding invitation; cancel it first")
	}
	// Reserve the slot before the bounded wait so a concurrent second send
	// from the same user is rejected rather than raced.
	inv := &Invitation{From: sender, To: to, GameType: gameType, CreatedAt: time.Now()}
	c.bySender[sender] = inv
	c.mu.Unlock()

	target, err := c.conns.AwaitUser(to, 3, 500*time.Millisecond)
	if err != nil {
		c.remove(sender)
		return err
	}
	if c.conns.InRoom(to) {
		c.remove(sender)
		return errs.New(errs.NotEligible, "%s is currently in a room", to)
	}

	target.Write(map[string]interface{}{
		"type":     "gameInvitation",
		"from":     sender,
		"gameType": string(gameType),
	})
	log.Printf("invite: %s -> %s (%s)", sender, to, gameType)
	return nil
}

// Accept resolves the invitation sent by from to the accepting connection:
// the invitation is deleted, a room is created with both parties seated
// (sender first), and both are notified. The new room is returned so the
// caller can update connection<->room tracking.
func (c *Coordinator) Accept(accepting *conn.Connection, from string) (*room.Room, error) {
	me := accepting.Identity.Username

	c.mu.Lock()
	inv, ok := c.bySender[from]
	if !ok || inv.To != me {
		c.mu.Unlock()
		return nil, errs.New(errs.NotFound, "no invitation from %s", from)
	}
	delete(c.bySender, from)
	c.mu.Unlock()

	senderConn, err := c.conns.AwaitUser(from, 3, 500*time.Millisecond)
	if err != nil {
		accepting.WriteError(string(errs.Disconnected), from+" is no longer connected")
		return nil, err
	}

	r, err := c.rooms.CreateSeated(from+" vs "+me, inv.GameType, senderConn, accepting)
	if err != nil {
		return nil, err
	}
	notice := map[string]interface{}{
		"type":     "invitationAccepted",
		"roomId":   r.ID,
		"from":     from,
		"to":       me,
		"gameType": string(inv.GameType),
	}
	senderConn.Write(notice)
	accepting.Write(notice)
	return r, nil
}

// Decline deletes the invitation from the named sender and notifies them.
func (c *Coordinator) Decline(declining *conn.Connection, from string) error {
	me := declining.Identity.Username

	c.mu.Lock()
	inv, ok := c.bySender[from]
	if !ok || inv.To != me {
		c.mu.Unlock()
		return errs.New(errs.NotFound, "no invitation from %s", from)
	}
	delete(c.bySender, from)
	c.mu.Unlock()

	if senderConn, ok := c.conns.GetByUsername(from); ok {
		senderConn.Write(map[string]interface{}{
			"type": "invitationDeclined",
			"by":   me,
		})
	}
	return nil
}

// Cancel withdraws the acting connection's outstanding invitation and
// notifies the counterparty.
func (c *Coordinator) Cancel(cancelling *conn.Connection) error {
	sender := cancelling.Identity.Username

	c.mu.Lock()
	inv, ok := c.bySender[sender]
	if !ok {
		c.mu.Unlock()
		return errs.New(errs.NotFound, "you have no outstanding invitation")
	}
	delete(c.bySender, sender)
	c.mu.Unlock()

	if targetConn, ok := c.conns.GetByUsername(inv.To); ok {
		targetConn.Write(map[string]interface{}{
			"type": "invitationCancelled",
			"by":   sender,
		})
	}
	return nil
}

// DropFor clears any invitation state touching the named user, called on
// disconnect: their own outstanding invitation and any invitation addressed
// to them.
func (c *Coordinator) DropFor(username string) {
	c.mu.Lock()
	var notify []*Invitation
	if _, ok := c.bySender[username]; ok {
		delete(c.bySender, username)
	}
	for sender, inv := range c.bySender {
		if inv.To == username {
			delete(c.bySender, sender)
			notify = append(notify, inv)
		}
	}
	c.mu.Unlock()

	for _, inv := range notify {
		if senderConn, ok := c.conns.GetByUsername(inv.From); ok {
			senderConn.Write(map[string]interface{}{
				"type":    "invitationError",
				"kind":    string(errs.Disconnected),
				"message": inv.To + " disconnected",
			})
		}
	}
}

// Outstanding returns the invitation a user currently has pending, if any.
func (c *Coordinator) Outstanding(sender string) (*Invitation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	inv, ok := c.bySender[sender]
	return inv, ok
}

func (c *Coordinator) remove(sender string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bySender, sender)
}
