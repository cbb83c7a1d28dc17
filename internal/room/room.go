// internal/room/room.go
package room

import (
	"log"
	"sync"

	"github.com/nrujac/gamehub/internal/conn"
	"github.com/nrujac/gamehub/internal/engine"
	"github.com/nrujac/gamehub/internal/errs"
)

// Status is the room lifecycle state.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusPlacement  Status = "placement"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// WinnerDraw is the winner value recorded for drawn games.
const WinnerDraw = "Draw"

// seatRoles tags the two seats for turn-order display.
var seatRoles = [2]string{"X", "O"}

// Seat is a player slot. The room only holds a reference to the connection;
// the conn registry owns its lifecycle. Conn goes nil when the holder leaves
// a finished room (the username stays for rematch eligibility).
type Seat struct {
	Username string
	Role     string
	Conn     *conn.Connection
}

// TournamentLink ties a room to the bracket match it decides.
type TournamentLink struct {
	TournamentID string
	Round        int
	Match        int
}

// Room is a single game session: up to two seats, any number of spectators,
// and an engine instance that exclusively owns the game-state blob.
//
// All mutations go through the room's own mutex, so two events for the same
// room never interleave, and every state broadcast happens under the lock in
// mutation order. Writes to member sockets are non-blocking channel pushes,
// so holding the lock across a broadcast never waits on the network.
type Room struct {
	ID       string
	Name     string
	GameType engine.GameType

	Mu         sync.Mutex
	Engine     engine.Engine
	Seats      []*Seat
	Spectators map[string]*conn.Connection // connection ID -> connection
	Status     Status
	Winner     string
	Tournament *TournamentLink

	// OnFinished fires when the room reaches StatusFinished, after the
	// finishing broadcast and with the room lock released. Hooks may take
	// other entity locks (sibling rooms, brackets, the registry) without
	// deadlock risk.
	OnFinished func(r *Room, winner string)

	// OnEmpty fires after the last member leaves, typically wired by the
	// store to delete the room.
	OnEmpty func(roomID string)
}

// New builds a waiting room around a fresh engine instance.
func New(id, name string, eng engine.Engine) *Room {
	return &Room{
		ID:         id,
		Name:       name,
		GameType:   eng.Type(),
		Engine:     eng,
		Spectators: make(map[string]*conn.Connection),
		Status:     StatusWaiting,
	}
}

// AddPlayer fills the next free seat. Filling the second seat starts the
// game, entering the engine's declared initial phase.
func (r *Room) AddPlayer(c *conn.Connection) (*Seat, error) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Status != StatusWaiting {
		return nil, errs.New(errs.InvalidPhase, "room %s is not accepting players", r.ID)
	}
	if len(r.Seats) >= 2 {
		return nil, errs.New(errs.Full, "room %s already has two players", r.ID)
	}
	for _, s := range r.Seats {
		if s.Username == c.Identity.Username {
			return nil, errs.New(errs.AlreadyExists, "you already hold a seat in room %s", r.ID)
		}
	}

	seat := &Seat{
		Username: c.Identity.Username,
		Role:     seatRoles[len(r.Seats)],
		Conn:     c,
	}
	r.Seats = append(r.Seats, seat)

	c.Write(map[string]interface{}{
		"type":   "playersRole",
		"roomId": r.ID,
		"role":   seat.Role,
	})

	if len(r.Seats) == 2 {
		r.startUnsafe()
	}
	return seat, nil
}

// startUnsafe transitions waiting -> placement|in_progress once both seats
// are filled. Assumes lock is held.
func (r *Room) startUnsafe() {
	if r.Engine.InitialPhase() == engine.PhasePlacement {
		r.Status = StatusPlacement
	} else {
		r.Status = StatusInProgress
	}
	log.Printf("room %s: started as %s (%s)", r.ID, r.Status, r.GameType)
	r.broadcastUnsafe(map[string]interface{}{
		"type":     "startGame",
		"roomId":   r.ID,
		"gameType": string(r.GameType),
		"phase":    string(r.Status),
		"players":  r.seatNamesUnsafe(),
	})
	r.broadcastStateUnsafe(nil)
}

// AddSpectator admits a watching connection regardless of room status.
func (r *Room) AddSpectator(c *conn.Connection) {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	r.Spectators[c.ID] = c
	c.Write(map[string]interface{}{
		"type":     "joinedAsSpectator",
		"roomId":   r.ID,
		"gameType": string(r.GameType),
		"players":  r.seatNamesUnsafe(),
	})
	c.Write(r.statePayloadUnsafe(-1))
}

// Move applies one game move from the acting connection. Rejections are
// typed and delivered only to the actor by the caller; room state is
// untouched on rejection.
func (r *Room) Move(c *conn.Connection, payload map[string]interface{}) error {
	r.Mu.Lock()

	if r.Status != StatusInProgress {
		r.Mu.Unlock()
		return errs.New(errs.InvalidPhase, "room %s is not in progress", r.ID)
	}
	seatIdx := r.seatIndexUnsafe(c.Identity.Username)
	if seatIdx == -1 {
		r.Mu.Unlock()
		return errs.New(errs.NotEligible, "spectators cannot move")
	}

	result, err := r.applyMoveGuarded(seatIdx, payload)
	if err != nil {
		r.Mu.Unlock()
		return err
	}

	if result != nil {
		after := r.finishUnsafe(r.winnerName(result))
		r.Mu.Unlock()
		if after != nil {
			after()
		}
		return nil
	}
	r.broadcastStateUnsafe(nil)
	r.Mu.Unlock()
	return nil
}

// applyMoveGuarded shields the orchestrator from a panicking engine: the
// room is closed out with no winner instead of taking the process down.
func (r *Room) applyMoveGuarded(seatIdx int, payload map[string]interface{}) (result *engine.Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("room %s: engine panic: %v", r.ID, rec)
			r.Status = StatusFinished
			r.Winner = ""
			r.broadcastUnsafe(map[string]interface{}{
				"type":    "error",
				"kind":    string(errs.Internal),
				"message": "the game engine failed; the room has been closed",
			})
			result, err = nil, errs.New(errs.Internal, "game engine failure")
		}
	}()
	return r.Engine.ApplyMove(seatIdx, payload)
}

// Placement applies one placement-phase action. Completing placement for
// both seats moves the room to in_progress.
func (r *Room) Placement(c *conn.Connection, payload map[string]interface{}) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.Status != StatusPlacement {
		return errs.New(errs.InvalidPhase, "room %s is not in its placement phase", r.ID)
	}
	seatIdx := r.seatIndexUnsafe(c.Identity.Username)
	if seatIdx == -1 {
		return errs.New(errs.NotEligible, "spectators cannot place")
	}

	complete, err := r.Engine.ApplyPlacement(seatIdx, payload)
	if err != nil {
		return err
	}
	if complete {
		r.Status = StatusInProgress
		r.broadcastUnsafe(map[string]interface{}{
			"type":   "startGame",
			"roomId": r.ID,
			"phase":  string(StatusInProgress),
		})
	}
	r.broadcastStateUnsafe(nil)
	return nil
}

// Chat relays a chat line to every room member. Messages are not persisted.
func (r *Room) Chat(c *conn.Connection, text string) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.broadcastUnsafe(map[string]interface{}{
		"type":     "chat",
		"roomId":   r.ID,
		"username": c.Identity.Username,
		"message":  text,
	})
}

// Leave routes a departing connection: seat vacate (forfeit if the game is
// live) or spectator removal. Returns true when the room became empty and
// OnEmpty fired.
func (r *Room) Leave(c *conn.Connection) bool {
	r.Mu.Lock()

	if _, ok := r.Spectators[c.ID]; ok {
		delete(r.Spectators, c.ID)
		empty := r.emptyUnsafe()
		r.Mu.Unlock()
		return r.maybeDestroy(empty)
	}

	seatIdx := r.seatIndexUnsafe(c.Identity.Username)
	if seatIdx == -1 {
		r.Mu.Unlock()
		return false
	}
	seat := r.Seats[seatIdx]

	var after func()
	switch r.Status {
	case StatusWaiting:
		// No game yet, the seat simply frees up.
		r.Seats = append(r.Seats[:seatIdx], r.Seats[seatIdx+1:]...)
	case StatusPlacement, StatusInProgress:
		// Forfeiture: the remaining seat wins, or a draw if both are gone.
		seat.Conn = nil
		winner := ""
		if other := r.otherLiveSeatUnsafe(seatIdx); other != nil {
			winner = other.Username
		} else {
			winner = WinnerDraw
		}
		r.Engine.Forfeit(seatIdx)
		r.broadcastUnsafe(map[string]interface{}{
			"type":     "playerDisconnected",
			"roomId":   r.ID,
			"username": seat.Username,
		})
		after = r.finishUnsafe(winner)
	case StatusFinished:
		// Historical seat-holder walks away; rematch is off the table.
		seat.Conn = nil
	}

	empty := r.emptyUnsafe()
	r.Mu.Unlock()
	if after != nil {
		after()
	}
	return r.maybeDestroy(empty)
}

func (r *Room) maybeDestroy(empty bool) bool {
	if empty && r.OnEmpty != nil {
		r.OnEmpty(r.ID)
	}
	return empty
}

// finishUnsafe closes the room out and broadcasts the terminal state. The
// OnFinished hook is returned as a closure rather than invoked here: hooks
// reach into sibling rooms and the bracket, so the caller runs the closure
// only after releasing this room's lock.
func (r *Room) finishUnsafe(winner string) func() {
	if r.Status == StatusFinished {
		return nil
	}
	r.Status = StatusFinished
	r.Winner = winner
	log.Printf("room %s: finished, winner=%q", r.ID, winner)

	r.broadcastStateUnsafe(map[string]interface{}{"winner": winner})
	r.broadcastUnsafe(map[string]interface{}{
		"type":   "gameFinished",
		"roomId": r.ID,
		"winner": winner,
	})

	if r.OnFinished == nil {
		return nil
	}
	hook := r.OnFinished
	return func() { hook(r, winner) }
}

// broadcastStateUnsafe fans the authoritative state out to every member,
// rendered per viewer so hidden information stays with its owner. Assumes
// lock is held.
func (r *Room) broadcastStateUnsafe(extra map[string]interface{}) {
	for i, s := range r.Seats {
		if s.Conn == nil {
			continue
		}
		payload := r.statePayloadUnsafe(i)
		for k, v := range extra {
			payload[k] = v
		}
		s.Conn.Write(payload)
	}
	if len(r.Spectators) > 0 {
		payload := r.statePayloadUnsafe(-1)
		for k, v := range extra {
			payload[k] = v
		}
		for _, c := range r.Spectators {
			c.Write(payload)
		}
	}
}

// statePayloadUnsafe renders one gameStateUpdate as seen by a viewer seat
// (-1 for spectators). Assumes lock is held.
func (r *Room) statePayloadUnsafe(viewer int) map[string]interface{} {
	return map[string]interface{}{
		"type":       "gameStateUpdate",
		"roomId":     r.ID,
		"gameType":   string(r.GameType),
		"gameStatus": string(r.Status),
		"winner":     r.Winner,
		"state":      r.Engine.StateFor(viewer),
	}
}

// broadcastUnsafe sends one identical message to every member. Assumes lock
// is held; Write never blocks.
func (r *Room) broadcastUnsafe(msg map[string]interface{}) {
	for _, s := range r.Seats {
		if s.Conn != nil {
			s.Conn.Write(msg)
		}
	}
	for _, c := range r.Spectators {
		c.Write(msg)
	}
}

// IsSeated reports whether the named user currently holds a live seat.
func (r *Room) IsSeated(username string) bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.seatIndexUnsafe(username) != -1
}

// MemberConnIDs snapshots the connection IDs of every attached seat holder
// and spectator.
func (r *Room) MemberConnIDs() []string {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	ids := make([]string, 0, len(r.Seats)+len(r.Spectators))
	for _, s := range r.Seats {
		if s.Conn != nil {
			ids = append(ids, s.Conn.ID)
		}
	}
	for id := range r.Spectators {
		ids = append(ids, id)
	}
	return ids
}

// SeatNames snapshots the seat-holder usernames in seat order.
func (r *Room) SeatNames() []string {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.seatNamesUnsafe()
}

func (r *Room) seatIndexUnsafe(username string) int {
	for i, s := range r.Seats {
		if s.Username == username && s.Conn != nil {
			return i
		}
	}
	return -1
}

func (r *Room) otherLiveSeatUnsafe(idx int) *Seat {
	for i, s := range r.Seats {
		if i != idx && s.Conn != nil {
			return s
		}
	}
	return nil
}

func (r *Room) emptyUnsafe() bool {
	if len(r.Spectators) > 0 {
		return false
	}
	for _, s := range r.Seats {
		if s.Conn != nil {
			return false
		}
	}
	return true
}

func (r *Room) seatNamesUnsafe() []string {
	names := make([]string, 0, len(r.Seats))
	for _, s := range r.Seats {
		names = append(names, s.Username)
	}
	return names
}

func (r *Room) winnerName(result *engine.Result) string {
	if result.Draw || result.Winner < 0 || result.Winner >= len(r.Seats) {
		return WinnerDraw
	}
	return r.Seats[result.Winner].Username
}

// Summary is the public rooms-list projection.
type Summary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	GameType   string `json:"gameType"`
	Seats      int    `json:"seats"`
	Spectators int    `json:"spectators"`
	Status     string `json:"status"`
}

// Summarize snapshots the room for lobby display.
func (r *Room) Summarize() Summary {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return Summary{
		ID:         r.ID,
		Name:       r.Name,
		GameType:   string(r.GameType),
		Seats:      len(r.Seats),
		Spectators: len(r.Spectators),
		Status:     string(r.Status),
	}
}
