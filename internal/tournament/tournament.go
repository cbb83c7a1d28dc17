// internal/tournament/tournament.go
package tournament

import (
	"log"
	"sync"

	"github.com/nrujac/gamehub/internal/engine"
	"github.com/nrujac/gamehub/internal/errs"
)

// Status is the tournament lifecycle state.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// Match is one bracket slot pairing. Players are usernames; an empty string
// means the slot is still waiting on a prior round (or is a structural hole
// in an under-filled bracket). Winner, once set, is immutable.
type Match struct {
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
	Winner  string `json:"winner"`
	RoomID  string `json:"roomId,omitempty"`
}

func (m *Match) playable() bool {
	return m.Winner == "" && m.Player1 != "" && m.Player2 != ""
}

// decided reports whether nothing more can come out of this match: it has a
// winner, or it is a structural hole with no players at all.
func (m *Match) decided() bool {
	return m.Winner != "" || (m.Player1 == "" && m.Player2 == "")
}

// Tournament is a single-elimination bracket over one game type. Bracket
// shape: match i of round r feeds slot i/2 of round r+1, the winner taking
// player1 if i is even, player2 if odd.
type Tournament struct {
	ID         string
	Name       string
	GameType   engine.GameType
	MaxPlayers int
	Creator    string

	Mu           sync.Mutex
	Players      []string
	Status       Status
	Rounds       [][]*Match
	CurrentRound int // 1-indexed once started
	Winner       string
}

// Join registers a player while the tournament is waiting.
func (t *Tournament) Join(username string) error {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	if t.Status != StatusWaiting {
		return errs.New(errs.InvalidPhase, "tournament %s has already started", t.ID)
	}
	if len(t.Players) >= t.MaxPlayers {
		return errs.New(errs.Full, "tournament %s is full", t.ID)
	}
	for _, p := range t.Players {
		if p == username {
			return errs.New(errs.AlreadyExists, "you already joined tournament %s", t.ID)
		}
	}
	t.Players = append(t.Players, username)
	return nil
}

// Leave removes a registered player. Only legal while waiting; leaving a
// running tournament is a forfeit handled through the room disconnect path.
func (t *Tournament) Leave(username string) error {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	if t.Status != StatusWaiting {
		return errs.New(errs.InvalidPhase, "tournament %s is underway; leaving forfeits your match", t.ID)
	}
	for i, p := range t.Players {
		if p == username {
			t.Players = append(t.Players[:i], t.Players[i+1:]...)
			return nil
		}
	}
	return errs.New(errs.NotFound, "you are not registered in tournament %s", t.ID)
}

// Start seeds the bracket from the registration order. It requires the
// tournament to be exactly at capacity.
func (t *Tournament) Start(byUsername string) error {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	if t.Status != StatusWaiting {
		return errs.New(errs.InvalidPhase, "tournament %s has already started", t.ID)
	}
	if byUsername != t.Creator {
		return errs.New(errs.NotEligible, "only %s can start tournament %s", t.Creator, t.ID)
	}
	if len(t.Players) < 2 {
		return errs.New(errs.NotEligible, "tournament %s needs at least two players", t.ID)
	}
	if len(t.Players) != t.MaxPlayers {
		return errs.New(errs.Full, "tournament %s has %d of %d players; capacity must be reached to start",
			t.ID, len(t.Players), t.MaxPlayers)
	}

	t.buildBracketUnsafe()
	t.Status = StatusInProgress
	t.CurrentRound = 1
	t.resolveByesUnsafe()
	log.Printf("tournament %s: started with %d players, %d rounds", t.ID, len(t.Players), len(t.Rounds))
	return nil
}

// buildBracketUnsafe seeds round 1 in registration order over the nearest
// power-of-two bracket and allocates the empty later rounds. Assumes lock is
// held.
func (t *Tournament) buildBracketUnsafe() {
	size := 2
	for size < len(t.Players) {
		size *= 2
	}

	t.Rounds = nil
	for n := size / 2; n >= 1; n /= 2 {
		round := make([]*Match, n)
		for i := range round {
			round[i] = &Match{}
		}
		t.Rounds = append(t.Rounds, round)
	}

	for i, p := range t.Players {
		m := t.Rounds[0][i/2]
		if i%2 == 0 {
			m.Player1 = p
		} else {
			m.Player2 = p
		}
	}
}

// resolveByesUnsafe pre-sets winners for current-round matches with a sole
// present player; bye winners cascade into following rounds without being
// materialized as rooms. Assumes lock is held; may advance the round and
// finish the tournament.
func (t *Tournament) resolveByesUnsafe() {
	for {
		round := t.Rounds[t.CurrentRound-1]
		progressed := false
		for i, m := range round {
			if m.Winner != "" || m.playable() {
				continue
			}
			sole := m.Player1
			if sole == "" {
				sole = m.Player2
			}
			if sole == "" {
				continue // structural hole, decided by definition
			}
			m.Winner = sole
			t.propagateUnsafe(t.CurrentRound, i, sole)
			progressed = true
		}
		if !t.roundCompleteUnsafe() {
			return
		}
		if done := t.advanceRoundUnsafe(); done || !progressed {
			return
		}
	}
}

// propagateUnsafe writes a match winner into its successor slot. Assumes
// lock is held.
func (t *Tournament) propagateUnsafe(round, matchIdx int, winner string) {
	if round >= len(t.Rounds) {
		return // final
	}
	next := t.Rounds[round][matchIdx/2]
	if matchIdx%2 == 0 {
		next.Player1 = winner
	} else {
		next.Player2 = winner
	}
}

func (t *Tournament) roundCompleteUnsafe() bool {
	for _, m := range t.Rounds[t.CurrentRound-1] {
		if !m.decided() {
			return false
		}
	}
	return true
}

// advanceRoundUnsafe bumps CurrentRound past a completed round; past the
// final it marks the tournament finished. Returns true when finished.
// Assumes lock is held.
func (t *Tournament) advanceRoundUnsafe() bool {
	t.CurrentRound++
	if t.CurrentRound > len(t.Rounds) {
		final := t.Rounds[len(t.Rounds)-1][0]
		t.Status = StatusFinished
		t.Winner = final.Winner
		log.Printf("tournament %s: finished, winner=%s", t.ID, t.Winner)
		return true
	}
	return false
}

// RecordResult observes one terminal match result. Duplicate signals for an
// already-resolved match are a no-op. Returns whether the result was applied
// and whether the current round completed (meaning the next round should be
// materialized or the tournament is finished).
func (t *Tournament) RecordResult(round, matchIdx int, winner string) (applied, roundDone bool) {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	if t.Status != StatusInProgress || round != t.CurrentRound {
		return false, false
	}
	m := t.Rounds[round-1][matchIdx]
	if m.Winner != "" {
		return false, false
	}
	m.Winner = winner
	t.propagateUnsafe(round, matchIdx, winner)

	if !t.roundCompleteUnsafe() {
		return true, false
	}
	if !t.advanceRoundUnsafe() {
		t.resolveByesUnsafe()
	}
	return true, true
}

// Playable lists the current round's matches that need a room: both players
// present, no winner, not yet materialized. Returns the 1-indexed round the
// indexes belong to.
func (t *Tournament) Playable() (int, []int) {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	if t.Status != StatusInProgress {
		return 0, nil
	}
	var out []int
	for i, m := range t.Rounds[t.CurrentRound-1] {
		if m.playable() && m.RoomID == "" {
			out = append(out, i)
		}
	}
	return t.CurrentRound, out
}

// MatchAt returns a copy of the match at the given 1-indexed round.
func (t *Tournament) MatchAt(round, matchIdx int) (Match, bool) {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	if round < 1 || round > len(t.Rounds) || matchIdx < 0 || matchIdx >= len(t.Rounds[round-1]) {
		return Match{}, false
	}
	return *t.Rounds[round-1][matchIdx], true
}

// SetRoom links a materialized room to its match.
func (t *Tournament) SetRoom(round, matchIdx int, roomID string) {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	if round >= 1 && round <= len(t.Rounds) && matchIdx < len(t.Rounds[round-1]) {
		t.Rounds[round-1][matchIdx].RoomID = roomID
	}
}

// RoomIDs snapshots every room id linked anywhere in the bracket.
func (t *Tournament) RoomIDs() []string {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	var out []string
	for _, round := range t.Rounds {
		for _, m := range round {
			if m.RoomID != "" {
				out = append(out, m.RoomID)
			}
		}
	}
	return out
}

// Summary is the public tournaments-list projection.
type Summary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	GameType       string `json:"gameType"`
	MaxPlayers     int    `json:"maxPlayers"`
	CurrentPlayers int    `json:"currentPlayers"`
	Status         string `json:"status"`
	CurrentRound   int    `json:"currentRound"`
	Winner         string `json:"winner,omitempty"`
}

// Summarize snapshots the tournament for lobby display.
func (t *Tournament) Summarize() Summary {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	return Summary{
		ID:             t.ID,
		Name:           t.Name,
		GameType:       string(t.GameType),
		MaxPlayers:     t.MaxPlayers,
		CurrentPlayers: len(t.Players),
		Status:         string(t.Status),
		CurrentRound:   t.CurrentRound,
		Winner:         t.Winner,
	}
}

// Participants snapshots the registered player list.
func (t *Tournament) Participants() []string {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	out := make([]string, len(t.Players))
	copy(out, t.Players)
	return out
}

// Bracket snapshots the full bracket for broadcast payloads.
func (t *Tournament) Bracket() [][]Match {
	t.Mu.Lock()
	defer t.Mu.Unlock()
	out := make([][]Match, len(t.Rounds))
	for r, round := range t.Rounds {
		out[r] = make([]Match, len(round))
		for i, m := range round {
			out[r][i] = *m
		}
	}
	return out
}
