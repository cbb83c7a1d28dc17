// internal/room/rematch.go
package room

import (
	"sync"

	"github.com/nrujac/gamehub/internal/conn"
	"github.com/nrujac/gamehub/internal/errs"
)

// RematchCoordinator negotiates the bilateral "play again" agreement on a
// finished room. One pending request is tracked per room; the second,
// matching request resolves into a fresh successor room with the seat roles
// swapped.
type RematchCoordinator struct {
	mu      sync.Mutex
	pending map[string]string // room ID -> username that asked first
	store   *Store
}

func NewRematchCoordinator(store *Store) *RematchCoordinator {
	return &RematchCoordinator{
		pending: make(map[string]string),
		store:   store,
	}
}

// Request records a rematch request from c for room r. When the other
// original seat-holder has already asked, the request resolves atomically:
// a successor room is created, both players are notified, and the old
// room's pending state is cleared. The successor room (nil until both have
// asked) is returned so the caller can update connection<->room tracking.
func (rc *RematchCoordinator) Request(r *Room, c *conn.Connection) (*Room, error) {
	r.Mu.Lock()
	if r.Status != StatusFinished {
		r.Mu.Unlock()
		return nil, errs.New(errs.NotEligible, "room %s is not finished", r.ID)
	}
	if len(r.Seats) != 2 {
		r.Mu.Unlock()
		return nil, errs.New(errs.NotEligible, "room %s never had two players", r.ID)
	}
	var me, other *Seat
	for _, s := range r.Seats {
		if s.Username == c.Identity.Username {
			me = s
		} else {
			other = s
		}
	}
	if me == nil || me.Conn == nil {
		r.Mu.Unlock()
		return nil, errs.New(errs.NotEligible, "only the original players can request a rematch")
	}
	otherConn := other.Conn
	gameType := r.GameType
	name := r.Name
	r.Mu.Unlock()

	rc.mu.Lock()
	holder, exists := rc.pending[r.ID]
	if exists && holder == c.Identity.Username {
		rc.mu.Unlock()
		return nil, errs.New(errs.AlreadyExists, "you already requested a rematch for room %s", r.ID)
	}
	if !exists {
		rc.pending[r.ID] = c.Identity.Username
		rc.mu.Unlock()
		if otherConn != nil {
			otherConn.Write(map[string]interface{}{
				"type":     "rematchRequested",
				"roomId":   r.ID,
				"username": c.Identity.Username,
			})
		}
		return nil, nil
	}
	// The counterpart asked first; resolve.
	delete(rc.pending, r.ID)
	rc.mu.Unlock()

	if otherConn == nil {
		return nil, errs.New(errs.Disconnected, "your opponent has left room %s", r.ID)
	}

	// Seat roles swap on the successor: the second requester sits first.
	successor, err := rc.store.CreateSeated(name, gameType, c, otherConn)
	if err != nil {
		return nil, err
	}
	notice := map[string]interface{}{
		"type":       "rematchAccepted",
		"roomId":     successor.ID,
		"prevRoomId": r.ID,
	}
	c.Write(notice)
	otherConn.Write(notice)
	successor.Mu.Lock()
	successor.broadcastUnsafe(map[string]interface{}{
		"type":   "restartGame",
		"roomId": successor.ID,
	})
	successor.Mu.Unlock()
	return successor, nil
}

// Clear drops any pending request for the room, used when either party
// leaves before the agreement completes.
func (rc *RematchCoordinator) Clear(roomID string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	delete(rc.pending, roomID)
}

// Pending reports the username holding the outstanding request, if any.
func (rc *RematchCoordinator) Pending(roomID string) (string, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	u, ok := rc.pending[roomID]
	return u, ok
}
