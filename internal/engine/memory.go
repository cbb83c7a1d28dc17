// internal/engine/memory.go
package engine

import (
	"math/rand"
	"time"

	"github.com/nrujac/gamehub/internal/errs"
)

// memoryPairs is the number of distinct card values on the table (two cards
// each).
const memoryPairs = 8

// Memory implements the memory-match game. The acting seat flips two cards
// per turn (payload {"card": idx}); a matched pair scores a point and keeps
// the turn, a mismatch passes it. The seat with more pairs when the table is
// cleared wins; an even split is a draw.
type Memory struct {
	values    []int // card index -> face value
	matchedBy []int // card index -> seat that matched it, -1 if face down
	firstPick int   // card flipped first this turn, -1 if none
	mismatch  [2]int // last mismatched pair, shown until the next flip; {-1,-1} if none
	scores    [2]int
	turn      int
	over      bool
}

// NewMemory shuffles a fresh table from the wall clock.
func NewMemory() *Memory {
	return NewMemoryWithSeed(time.Now().UnixNano())
}

// NewMemoryWithSeed shuffles deterministically, for reproducible games and
// tests.
func NewMemoryWithSeed(seed int64) *Memory {
	values := make([]int, 0, memoryPairs*2)
	for v := 0; v < memoryPairs; v++ {
		values = append(values, v, v)
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(values), func(i, j int) {
		values[i], values[j] = values[j], values[i]
	})

	matched := make([]int, len(values))
	for i := range matched {
		matched[i] = -1
	}
	return &Memory{
		values:    values,
		matchedBy: matched,
		firstPick: -1,
		mismatch:  [2]int{-1, -1},
	}
}

func (m *Memory) Type() GameType      { return GameMemoryMatch }
func (m *Memory) InitialPhase() Phase { return PhaseInProgress }
func (m *Memory) Turn() int           { return m.turn }

func (m *Memory) ApplyMove(seat int, payload map[string]interface{}) (*Result, error) {
	if m.over {
		return nil, errs.New(errs.InvalidPhase, "game is already over")
	}
	if seat != m.turn {
		return nil, errs.New(errs.NotYourTurn, "it is not your turn")
	}
	card, ok := intField(payload, "card")
	if !ok || card < 0 || card >= len(m.values) {
		return nil, errs.New(errs.NotEligible, "move requires a card index in 0..%d", len(m.values)-1)
	}
	if m.matchedBy[card] != -1 {
		return nil, errs.New(errs.NotEligible, "card %d is already matched", card)
	}
	if card == m.firstPick {
		return nil, errs.New(errs.NotEligible, "card %d is already face up", card)
	}

	if m.firstPick == -1 {
		// First flip of the turn; last turn's mismatch goes face down again.
		m.mismatch = [2]int{-1, -1}
		m.firstPick = card
		return nil, nil
	}

	first := m.firstPick
	m.firstPick = -1
	if m.values[first] == m.values[card] {
		m.matchedBy[first] = seat
		m.matchedBy[card] = seat
		m.scores[seat]++
		if m.scores[0]+m.scores[1] == memoryPairs {
			m.over = true
			return m.finalResult(), nil
		}
		// A match keeps the turn.
		return nil, nil
	}

	m.mismatch = [2]int{first, card}
	m.turn = 1 - m.turn
	return nil, nil
}

func (m *Memory) finalResult() *Result {
	switch {
	case m.scores[0] > m.scores[1]:
		return &Result{Winner: 0}
	case m.scores[1] > m.scores[0]:
		return &Result{Winner: 1}
	default:
		return &Result{Winner: -1, Draw: true}
	}
}

func (m *Memory) ApplyPlacement(seat int, payload map[string]interface{}) (bool, error) {
	return false, errs.New(errs.InvalidPhase, "memory match has no placement phase")
}

func (m *Memory) Forfeit(vacatingSeat int) Result {
	m.over = true
	return Result{Winner: 1 - vacatingSeat}
}

// StateFor hides face-down card values. Revealed information (matched pairs,
// the current flip, the last mismatch) is public, so players and spectators
// share one view.
func (m *Memory) StateFor(viewer int) map[string]interface{} {
	cards := make([]map[string]interface{}, len(m.values))
	for i := range m.values {
		c := map[string]interface{}{"matched": m.matchedBy[i] != -1}
		if m.matchedBy[i] != -1 {
			c["value"] = m.values[i]
			c["matchedBy"] = m.matchedBy[i]
		} else if i == m.firstPick || i == m.mismatch[0] || i == m.mismatch[1] {
			c["value"] = m.values[i]
		}
		cards[i] = c
	}
	return map[string]interface{}{
		"cards":  cards,
		"scores": []int{m.scores[0], m.scores[1]},
		"turn":   m.turn,
	}
}
