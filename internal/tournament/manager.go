// internal/tournament/manager.go
package tournament

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nrujac/gamehub/internal/conn"
	"github.com/nrujac/gamehub/internal/database"
	"github.com/nrujac/gamehub/internal/engine"
	"github.com/nrujac/gamehub/internal/room"
)

// Manager drives tournaments end to end: it relays join/leave/start actions,
// materializes each round's matches as rooms, observes room terminal results
// through the room OnFinished hook, and delivers the advance/eliminate
// notifications.
type Manager struct {
	Tournaments *Store
	Rooms       *room.Store
	Conns       *conn.Registry
	Engines     *engine.Registry
}

func NewManager(tournaments *Store, rooms *room.Store, conns *conn.Registry, engines *engine.Registry) *Manager {
	return &Manager{Tournaments: tournaments, Rooms: rooms, Conns: conns, Engines: engines}
}

// Create registers a tournament and notifies the creator. The game type is
// validated up front so a bad type fails here, not at round materialization.
func (m *Manager) Create(name string, gameType engine.GameType, maxPlayers int, creator *conn.Connection) (*Tournament, error) {
	if _, err := m.Engines.New(gameType); err != nil {
		return nil, err
	}
	t, err := m.Tournaments.Create(name, gameType, maxPlayers, creator.Identity.Username)
	if err != nil {
		return nil, err
	}
	creator.Write(map[string]interface{}{
		"type":       "tournamentCreated",
		"tournament": t.Summarize(),
	})
	return t, nil
}

// Join adds the acting user and tells every participant the roster changed.
func (m *Manager) Join(tournamentID string, c *conn.Connection) error {
	t, err := m.Tournaments.Get(tournamentID)
	if err != nil {
		return err
	}
	if err := t.Join(c.Identity.Username); err != nil {
		return err
	}
	m.broadcastParticipants(t, map[string]interface{}{
		"type":       "tournamentJoined",
		"username":   c.Identity.Username,
		"tournament": t.Summarize(),
		"players":    t.Participants(),
	})
	return nil
}

// Leave removes the acting user while the tournament still waits.
func (m *Manager) Leave(tournamentID string, c *conn.Connection) error {
	t, err := m.Tournaments.Get(tournamentID)
	if err != nil {
		return err
	}
	if err := t.Leave(c.Identity.Username); err != nil {
		return err
	}
	c.Write(map[string]interface{}{
		"type":         "tournamentLeft",
		"tournamentId": t.ID,
	})
	m.broadcastParticipants(t, map[string]interface{}{
		"type":       "tournamentJoined", // roster update, same shape
		"tournament": t.Summarize(),
		"players":    t.Participants(),
	})
	return nil
}

// Start seeds the bracket and materializes round one.
func (m *Manager) Start(tournamentID string, c *conn.Connection) error {
	t, err := m.Tournaments.Get(tournamentID)
	if err != nil {
		return err
	}
	if err := t.Start(c.Identity.Username); err != nil {
		return err
	}
	m.broadcastParticipants(t, map[string]interface{}{
		"type":       "tournamentStarted",
		"tournament": t.Summarize(),
		"bracket":    t.Bracket(),
	})
	m.materialize(t)
	return nil
}

// materialize creates a tournament-linked room for every current-round match
// with both players present. A match whose player is no longer connected is
// resolved as a walkover for the present side.
func (m *Manager) materialize(t *Tournament) {
	round, idxs := t.Playable()
	for _, i := range idxs {
		match, ok := t.MatchAt(round, i)
		if !ok || !match.playable() {
			continue
		}
		c1, ok1 := m.Conns.GetByUsername(match.Player1)
		c2, ok2 := m.Conns.GetByUsername(match.Player2)
		if !ok1 || !ok2 {
			winner := match.Player1
			if !ok1 {
				winner = match.Player2
			}
			log.Printf("tournament %s: walkover in round %d match %d, winner=%s", t.ID, round, i, winner)
			m.recordAndFollowUp(t, round, i, winner)
			continue
		}

		r, err := m.Rooms.NewRoom(fmt.Sprintf("%s r%d m%d", t.Name, round, i+1), t.GameType)
		if err != nil {
			log.Printf("tournament %s: failed to create match room: %v", t.ID, err)
			continue
		}
		r.Tournament = &room.TournamentLink{TournamentID: t.ID, Round: round, Match: i}
		prev := r.OnFinished
		hook := m.roomFinishedHook(t)
		r.OnFinished = func(fr *room.Room, winner string) {
			if prev != nil {
				prev(fr, winner)
			}
			hook(fr, winner)
		}
		t.SetRoom(round, i, r.ID)

		for _, c := range []*conn.Connection{c1, c2} {
			opponent := match.Player2
			if c == c2 {
				opponent = match.Player1
			}
			c.Write(map[string]interface{}{
				"type":         "tournamentMatchStarted",
				"tournamentId": t.ID,
				"roomId":       r.ID,
				"round":        round,
				"opponent":     opponent,
			})
		}
		// Seating second fills the room and starts the game.
		if _, err := r.AddPlayer(c1); err != nil {
			log.Printf("tournament %s: seating %s failed: %v", t.ID, match.Player1, err)
		}
		m.Conns.SetRoom(c1.ID, r.ID)
		if _, err := r.AddPlayer(c2); err != nil {
			log.Printf("tournament %s: seating %s failed: %v", t.ID, match.Player2, err)
		}
		m.Conns.SetRoom(c2.ID, r.ID)
	}
}

// roomFinishedHook adapts a room terminal result into a bracket result. The
// room invokes OnFinished after releasing its own lock, so the hook is free
// to summarize sibling rooms and re-enter the store.
func (m *Manager) roomFinishedHook(t *Tournament) func(r *room.Room, winner string) {
	return func(r *room.Room, winner string) {
		link := r.Tournament
		if link == nil {
			return
		}
		match, ok := t.MatchAt(link.Round, link.Match)
		if !ok {
			return
		}
		// A drawn or vacated match still has to advance someone; the first
		// seat goes through.
		if winner != match.Player1 && winner != match.Player2 {
			winner = match.Player1
		}
		m.recordAndFollowUp(t, link.Round, link.Match, winner)
	}
}

// recordAndFollowUp feeds one terminal result into the bracket (idempotent)
// and applies the match-finish notification policy: the winner of a non-final
// match is told to wait, the loser may leave or spectate a running match;
// when the result ends the tournament those per-match messages are replaced
// by a single tournamentFinished broadcast. A decided match's room has served
// its purpose and is retired from the store.
func (m *Manager) recordAndFollowUp(t *Tournament, round, matchIdx int, winner string) {
	match, _ := t.MatchAt(round, matchIdx)
	applied, roundDone := t.RecordResult(round, matchIdx, winner)
	if !applied {
		return
	}
	if match.RoomID != "" {
		m.retireRoom(match.RoomID)
	}

	if t.Summarize().Status == string(StatusFinished) {
		m.persistOutcome(t, winner)
		m.broadcastParticipants(t, map[string]interface{}{
			"type":         "tournamentFinished",
			"tournamentId": t.ID,
			"winner":       winner,
			"bracket":      t.Bracket(),
		})
		return
	}

	if wc, ok := m.Conns.GetByUsername(winner); ok {
		wc.Write(map[string]interface{}{
			"type":         "tournamentMatchWon",
			"tournamentId": t.ID,
			"round":        round,
			"message":      "you advance; wait for your next match",
		})
	}
	loser := match.Player1
	if loser == winner {
		loser = match.Player2
	}
	if lc, ok := m.Conns.GetByUsername(loser); ok && loser != "" {
		lc.Write(map[string]interface{}{
			"type":          "tournamentMatchFinished",
			"tournamentId":  t.ID,
			"round":         round,
			"winner":        winner,
			"spectateRooms": m.activeRooms(t),
		})
	}

	if roundDone {
		m.materialize(t)
	}
}

// activeRooms enumerates the tournament's rooms still joinable as a
// spectator. Rooms of decided matches have already been retired, so the
// store lookup filters them out.
func (m *Manager) activeRooms(t *Tournament) []room.Summary {
	out := []room.Summary{}
	for _, id := range t.RoomIDs() {
		r, err := m.Rooms.Get(id)
		if err != nil {
			continue
		}
		sum := r.Summarize()
		if sum.Status == string(room.StatusWaiting) || sum.Status == string(room.StatusInProgress) {
			out = append(out, sum)
		}
	}
	return out
}

// retireRoom removes a decided match's room from the store and unbinds the
// members still pointing at it. Winners are re-bound when the next round
// materializes; losers and spectators fall back to the lobby.
func (m *Manager) retireRoom(roomID string) {
	r, err := m.Rooms.Get(roomID)
	if err != nil {
		return
	}
	for _, id := range r.MemberConnIDs() {
		if m.Conns.RoomOf(id) == roomID {
			m.Conns.ClearRoom(id)
		}
	}
	m.Rooms.Delete(roomID)
}

// persistOutcome writes the completed tournament to the database when one is
// configured, off the event path like room results.
func (m *Manager) persistOutcome(t *Tournament, winner string) {
	if !database.Enabled() {
		return
	}
	players := t.Participants()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.RecordTournamentResult(ctx, t.ID, t.Name, string(t.GameType), winner, players); err != nil {
			log.Printf("tournament %s: persisting result failed: %v", t.ID, err)
		}
	}()
}

// broadcastParticipants delivers one message to every registered player's
// live connection. No registry or entity lock is held while writing.
func (m *Manager) broadcastParticipants(t *Tournament, msg map[string]interface{}) {
	for _, username := range t.Participants() {
		if c, ok := m.Conns.GetByUsername(username); ok {
			c.Write(msg)
		}
	}
}
